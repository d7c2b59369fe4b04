package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mailblocks/internal/templates"
)

var (
	newTemplate  string
	newForce     bool
	newList      bool
	newTitle     string
	newCompany   string
	newHeading   string
	newPreheader string
	newAction    string
	newLabel     string
	newUnsub     string
)

var newCmd = &cobra.Command{
	Use:     "new [file.mjml]",
	Aliases: []string{"init"},
	Short:   "Create a document from a starter template",
	Long: `Create an MJML document from one of the built-in starters. Without a
file name the document is printed to stdout.

Examples:
  mailblocks new --list
  mailblocks new welcome.mjml --template newsletter --company "Acme"
  mailblocks new --template opt-in --action-url https://acme.test/confirm?t=1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNew,
}

func init() {
	rootCmd.AddCommand(newCmd)

	defaults := templates.DefaultContext()
	newCmd.Flags().StringVarP(&newTemplate, "template", "t", "blank", "Starter template name")
	newCmd.Flags().BoolVar(&newForce, "force", false, "Overwrite an existing file")
	newCmd.Flags().BoolVar(&newList, "list", false, "List the available starters")
	newCmd.Flags().StringVar(&newTitle, "title", defaults.Title, "Document title")
	newCmd.Flags().StringVar(&newCompany, "company", defaults.Company, "Sender name used in header and footer")
	newCmd.Flags().StringVar(&newHeading, "heading", defaults.Heading, "Main heading")
	newCmd.Flags().StringVar(&newPreheader, "preheader", defaults.Preheader, "Inbox preview text")
	newCmd.Flags().StringVar(&newAction, "action-url", defaults.ActionURL, "Call to action link")
	newCmd.Flags().StringVar(&newLabel, "action-label", defaults.ActionLabel, "Call to action label")
	newCmd.Flags().StringVar(&newUnsub, "unsubscribe-url", defaults.UnsubscribeURL, "Unsubscribe link")

	AddFlagValidation(newCmd.Flags(), "template", ValidateChoice(templates.Names()...))
}

func runNew(cmd *cobra.Command, args []string) error {
	if newList {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCATEGORY\tDESCRIPTION")
		for _, t := range templates.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.Category, t.Description)
		}
		return w.Flush()
	}

	ctx := templates.DefaultContext()
	ctx.Title = newTitle
	ctx.Company = newCompany
	ctx.Heading = newHeading
	ctx.Preheader = newPreheader
	ctx.ActionURL = newAction
	ctx.ActionLabel = newLabel
	ctx.UnsubscribeURL = newUnsub

	if len(args) == 0 {
		text, err := templates.Render(newTemplate, ctx)
		if err != nil {
			return err
		}
		return writeOutput(cmd, ioFlags{}, text)
	}

	if err := templates.WriteFile(args[0], newTemplate, ctx, newForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Created %s from the %s starter\n", args[0], newTemplate)
	return nil
}
