package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mailblocks/internal/preview"
	"github.com/conneroisu/mailblocks/internal/types"
	"github.com/conneroisu/mailblocks/internal/validation"
)

var (
	outlineIO   ioFlags
	textIO      ioFlags
	textPreview bool
	linksFormat string
	linksCheck  bool
)

var outlineCmd = &cobra.Command{
	Use:   "outline [file.mjml]",
	Short: "Print the block tree as an indented outline",
	Long: `Print one line per block: its type, id, attribute count and the start of
its content.

Examples:
  mailblocks outline welcome.mjml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPreview(cmd, args, outlineIO, func(env *environment, root *types.Block) (string, error) {
			return preview.Outline(env.registry, root), nil
		})
	},
}

var textCmd = &cobra.Command{
	Use:   "text [file.mjml]",
	Short: "Print the plain-text version of a document",
	Long: `Print the text of a document as it would appear in a plain-text
alternative part. Buttons and links keep their target in parentheses,
images are replaced by their alt text.

Examples:
  mailblocks text welcome.mjml
  mailblocks text welcome.mjml --preview   # Inbox preview line only`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPreview(cmd, args, textIO, func(env *environment, root *types.Block) (string, error) {
			if textPreview {
				return preview.PreviewText(env.registry, root), nil
			}
			return preview.PlainText(env.registry, root), nil
		})
	},
}

var linksCmd = &cobra.Command{
	Use:   "links [file.mjml]",
	Short: "List the links of a document",
	Long: `List every link of a document with the block it belongs to.

With --check the command fails when a link is empty, relative or uses a
scheme other than http, https, mailto or tel. Merge tags such as
{{unsubscribe_url}} and *|UNSUB|* are accepted.

Examples:
  mailblocks links welcome.mjml
  mailblocks links welcome.mjml --check`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPreview(cmd, args, ioFlags{}, func(env *environment, root *types.Block) (string, error) {
			links := preview.Links(env.registry, root)
			if linksCheck {
				problems := validation.CheckLinks(links)
				for _, p := range problems {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", p.Message)
				}
				if len(problems) > 0 {
					return "", fmt.Errorf("%d of %d links are invalid", len(problems), len(links))
				}
			}
			if linksFormat != formatText {
				if links == nil {
					links = []preview.Link{}
				}
				return marshal(links, linksFormat)
			}
			var b strings.Builder
			for _, l := range links {
				fmt.Fprintf(&b, "%s\t%s", l.BlockType, l.Href)
				if l.Text != "" {
					fmt.Fprintf(&b, "\t%s", l.Text)
				}
				b.WriteString("\n")
			}
			return b.String(), nil
		})
	},
}

func init() {
	rootCmd.AddCommand(outlineCmd, textCmd, linksCmd)

	addIOFlags(outlineCmd, &outlineIO)
	addIOFlags(textCmd, &textIO)
	textCmd.Flags().BoolVar(&textPreview, "preview", false, "Print only the inbox preview text")
	linksCmd.Flags().StringVarP(&linksFormat, "format", "f", formatText, "Output format (text, json, yaml)")
	linksCmd.Flags().BoolVar(&linksCheck, "check", false, "Fail if any link is unusable in an email")
	AddFlagValidation(linksCmd.Flags(), "format", ValidateChoice(formatText, formatJSON, formatYAML))
}

func runPreview(cmd *cobra.Command, args []string, f ioFlags,
	render func(env *environment, root *types.Block) (string, error),
) error {
	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}

	text, name, err := readInput(cmd, args, f.fromClipboard)
	if err != nil {
		return err
	}
	root, err := env.decoder().DecodeContext(ctx, text)
	if err != nil {
		return env.explain(err, name)
	}

	out, err := render(env, root)
	if err != nil {
		return err
	}
	if out == "" {
		return nil
	}
	return writeOutput(cmd, f, out)
}
