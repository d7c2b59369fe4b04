package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/registry"
)

var (
	componentsFormat   string
	componentsCategory string
)

var componentsCmd = &cobra.Command{
	Use:     "components [type]",
	Aliases: []string{"ls"},
	Short:   "List the component catalog",
	Long: `List every registered component type with its category, content model and
allowed children. Component overlays from components.overlays are included.

Examples:
  mailblocks components                    # Table of all components
  mailblocks components --category Layout  # One category
  mailblocks components mj-button -f yaml  # Defaults of one component`,
	Args: cobra.MaximumNArgs(1),
	RunE: runComponents,
}

func init() {
	rootCmd.AddCommand(componentsCmd)

	componentsCmd.Flags().StringVarP(&componentsFormat, "format", "f", formatTable, "Output format (table, json, yaml)")
	componentsCmd.Flags().StringVar(&componentsCategory, "category", "", "Only list components of this category")
	AddFlagValidation(componentsCmd.Flags(), "format", ValidateChoice(formatTable, formatJSON, formatYAML))
}

func runComponents(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd.Context())
	if err != nil {
		return err
	}

	var infos []registry.Info
	if len(args) == 1 {
		spec, ok := env.registry.Get(args[0])
		if !ok {
			return env.explain(mailerrors.NewValidationError(mailerrors.ErrCodeUnknownType,
				fmt.Sprintf("unknown component type %q", args[0])).WithBlockType(args[0]), "")
		}
		infos = []registry.Info{spec.Info()}
	} else {
		for _, info := range env.registry.Infos() {
			if componentsCategory == "" || strings.EqualFold(info.Category, componentsCategory) {
				infos = append(infos, info)
			}
		}
	}

	if componentsFormat == formatTable {
		return outputComponentTable(cmd.OutOrStdout(), infos, len(args) == 1)
	}
	out, err := marshal(infos, componentsFormat)
	if err != nil {
		return err
	}
	return writeOutput(cmd, ioFlags{}, out)
}

func outputComponentTable(out io.Writer, infos []registry.Info, withDefaults bool) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(out, "No components found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tNAME\tCATEGORY\tMODEL\tCHILDREN")
	fmt.Fprintln(w, "----\t----\t--------\t-----\t--------")
	for _, info := range infos {
		model := info.ContentModel
		if info.Raw {
			model += " (raw)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			info.Type, info.DisplayName, info.Category, model, children(info))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if withDefaults && infos[0].DefaultAttributes.Len() > 0 {
		fmt.Fprintln(out, "\nDefault attributes:")
		for _, attr := range infos[0].DefaultAttributes.All() {
			fmt.Fprintf(out, "  %s: %s\n", attr.Name, attr.Value.Text())
		}
	}
	return nil
}

func children(info registry.Info) string {
	switch {
	case info.AnyChild:
		return "any"
	case len(info.ValidChildren) == 0:
		return "-"
	default:
		return strings.Join(info.ValidChildren, ", ")
	}
}
