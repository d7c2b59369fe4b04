package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/sanitize"
)

var (
	decodeIO       ioFlags
	decodeFormat   string
	decodeSanitize bool
	decodePolicy   string
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file.mjml]",
	Short: "Decode MJML markup into a block tree",
	Long: `Decode MJML markup into a block tree printed as JSON or YAML.

Markup exported by visual editors is repaired before parsing: stray
ampersands are escaped, attribute names are lower-cased, bare flags and
unquoted values get quotes. Pass --log-level debug to see what was fixed.

Examples:
  mailblocks decode welcome.mjml
  mailblocks decode welcome.mjml --format yaml
  mailblocks decode --paste --sanitize --policy strict`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	addIOFlags(decodeCmd, &decodeIO)
	decodeCmd.Flags().StringVarP(&decodeFormat, "format", "f", formatJSON, "Output format (json, yaml)")
	decodeCmd.Flags().BoolVar(&decodeSanitize, "sanitize", false,
		"Sanitize raw markup in the decoded tree (also enabled by sanitize.enabled)")
	decodeCmd.Flags().StringVar(&decodePolicy, "policy", "", "Sanitize policy (strict, ugc); defaults to sanitize.policy")

	AddFlagValidation(decodeCmd.Flags(), "format", ValidateChoice(formatJSON, formatYAML))
	AddFlagValidation(decodeCmd.Flags(), "policy", ValidateChoice(sanitize.Strict, sanitize.UGC))
}

func runDecode(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	op := logging.StartOperation(env.logger, "decode")

	text, name, err := readInput(cmd, args, decodeIO.fromClipboard)
	if err != nil {
		op.EndWithError(ctx, err)
		return err
	}

	root, err := env.decoder().DecodeContext(ctx, text)
	if err != nil {
		op.EndWithError(ctx, err)
		return env.explain(err, name)
	}

	if decodeSanitize || decodePolicy != "" || env.config.Sanitize.Enabled {
		policy := decodePolicy
		if policy == "" {
			policy = env.config.Sanitize.Policy
		}
		s, err := sanitize.New(policy, env.registry, env.logger)
		if err != nil {
			return err
		}
		root, _ = s.Tree(ctx, root)
	}
	op.End(ctx, "input", name, "blocks", root.Count())

	out, err := marshal(root, decodeFormat)
	if err != nil {
		return err
	}
	return writeOutput(cmd, decodeIO, out)
}
