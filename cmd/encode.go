package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/mailblocks/internal/compact"
	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/markup"
	"github.com/conneroisu/mailblocks/internal/sanitize"
)

var (
	encodeIO       ioFlags
	encodeMinify   bool
	encodeSanitize bool
	encodePolicy   string
)

var encodeCmd = &cobra.Command{
	Use:   "encode [tree.json|tree.yaml]",
	Short: "Encode a block tree as MJML markup",
	Long: `Encode a block tree (JSON or YAML) as indented MJML markup.

Raw-content blocks such as mj-text and mj-button are written verbatim, all
other text and every attribute value is escaped.

Examples:
  mailblocks encode welcome.json
  mailblocks encode welcome.yaml -o welcome.mjml
  mailblocks decode in.mjml | mailblocks encode --minify
  mailblocks encode tree.json --sanitize --policy strict --minify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	addIOFlags(encodeCmd, &encodeIO)
	encodeCmd.Flags().BoolVar(&encodeMinify, "minify", false,
		"Minify mj-style sheets and raw markup (also enabled by minify.enabled)")
	encodeCmd.Flags().BoolVar(&encodeSanitize, "sanitize", false,
		"Sanitize raw markup before writing it (also enabled by sanitize.enabled)")
	encodeCmd.Flags().StringVar(&encodePolicy, "policy", "", "Sanitize policy (strict, ugc); defaults to sanitize.policy")

	AddFlagValidation(encodeCmd.Flags(), "policy", ValidateChoice(sanitize.Strict, sanitize.UGC))
}

func runEncode(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	op := logging.StartOperation(env.logger, "encode")

	text, name, err := readInput(cmd, args, encodeIO.fromClipboard)
	if err != nil {
		op.EndWithError(ctx, err)
		return err
	}
	block, err := parseTree(text, name)
	if err != nil {
		op.EndWithError(ctx, err)
		return err
	}

	// Sanitizing runs first so the minifier never sees dropped markup.
	var sanitizeContent, compactContent markup.ContentTransform
	if encodeSanitize || encodePolicy != "" || env.config.Sanitize.Enabled {
		policy := encodePolicy
		if policy == "" {
			policy = env.config.Sanitize.Policy
		}
		s, err := sanitize.New(policy, env.registry, env.logger)
		if err != nil {
			op.EndWithError(ctx, err)
			return err
		}
		sanitizeContent = s.Content
	}
	if encodeMinify || env.config.Minify.Enabled {
		c := compact.New(compact.Options{CSS: env.config.Minify.CSS, HTML: env.config.Minify.HTML},
			env.registry, env.logger)
		compactContent = c.Content
	}

	var opts []markup.Option
	if t := markup.ChainTransforms(sanitizeContent, compactContent); t != nil {
		opts = append(opts, markup.WithContentTransform(t))
	}

	out, err := env.encoder(opts...).Encode(block)
	if err != nil {
		op.EndWithError(ctx, err)
		return err
	}
	op.End(ctx, "input", name, "blocks", block.Count())

	return writeOutput(cmd, encodeIO, out)
}
