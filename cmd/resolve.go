package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/markup"
	"github.com/conneroisu/mailblocks/internal/resolver"
	"github.com/conneroisu/mailblocks/internal/types"
)

var (
	resolveID     string
	resolveType   string
	resolveFormat string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [file.mjml] (--id ID | --type TYPE)",
	Short: "Show the effective attributes of blocks",
	Long: `Show the attributes a renderer would use for a block: the component
defaults, overridden by defaults.* from the configuration, by the
document's mj-attributes (mj-all, the type, then mj-class) and finally by
the block's own attributes.

Examples:
  mailblocks resolve welcome.mjml --type mj-button
  mailblocks resolve welcome.mjml --id 3f0c... --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVar(&resolveID, "id", "", "Resolve the block with this id")
	resolveCmd.Flags().StringVarP(&resolveType, "type", "t", "", "Resolve every block of this type")
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", formatText, "Output format (text, json, yaml)")
	AddFlagValidation(resolveCmd.Flags(), "format", ValidateChoice(formatText, formatJSON, formatYAML))
}

// ResolvedBlock is the output of the resolve command.
type ResolvedBlock struct {
	ID         string           `json:"id,omitempty" yaml:"id,omitempty"`
	Type       string           `json:"type"         yaml:"type"`
	Attributes types.Attributes `json:"attributes"   yaml:"attributes"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	if (resolveID == "") == (resolveType == "") {
		return fmt.Errorf("specify exactly one of --id and --type")
	}

	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}

	text, name, err := readInput(cmd, args, false)
	if err != nil {
		return err
	}
	root, err := env.decoder().DecodeContext(ctx, text)
	if err != nil {
		return env.explain(err, name)
	}

	var targets []*types.Block
	if resolveID != "" {
		block := root.Find(resolveID)
		if block == nil {
			return mailerrors.NewValidationError(mailerrors.ErrCodeBlockNotFound,
				fmt.Sprintf("block %q not found", resolveID)).WithContext("id", resolveID)
		}
		targets = append(targets, block)
	} else {
		targets = bodyBlocks(root, strings.ToLower(resolveType))
	}

	var resolved []ResolvedBlock
	for _, block := range targets {
		configured, err := env.config.Defaults.For(block.Type)
		if err != nil {
			return configError(err)
		}
		resolved = append(resolved, ResolvedBlock{
			ID:         block.ID,
			Type:       block.Type,
			Attributes: resolver.ResolveBlock(env.registry, block, root, configured),
		})
	}

	// A type the document does not use still has defaults worth showing.
	if len(resolved) == 0 {
		blockType := strings.ToLower(resolveType)
		configured, err := env.config.Defaults.For(blockType)
		if err != nil {
			return configError(err)
		}
		docDefaults := configured.Merge(resolver.DocumentDefaults(root, blockType))
		resolved = append(resolved, ResolvedBlock{
			Type:       blockType,
			Attributes: resolver.Resolve(env.registry, blockType, types.Attributes{}, docDefaults),
		})
	}

	if resolveFormat != formatText {
		out, err := marshal(resolved, resolveFormat)
		if err != nil {
			return err
		}
		return writeOutput(cmd, ioFlags{}, out)
	}

	var b strings.Builder
	for i, r := range resolved {
		if i > 0 {
			b.WriteString("\n")
		}
		if r.ID != "" {
			fmt.Fprintf(&b, "%s #%s\n", r.Type, r.ID)
		} else {
			fmt.Fprintf(&b, "%s\n", r.Type)
		}
		for _, attr := range r.Attributes.All() {
			fmt.Fprintf(&b, "  %s: %s\n", markup.CamelToKebab(attr.Name), attr.Value.Text())
		}
	}
	return writeOutput(cmd, ioFlags{}, b.String())
}

// bodyBlocks returns the blocks of blockType outside mj-head, where blocks
// of the same type are attribute declarations rather than content.
func bodyBlocks(root *types.Block, blockType string) []*types.Block {
	var out []*types.Block
	var visit func(b *types.Block)
	visit = func(b *types.Block) {
		if b.Type == "mj-head" {
			return
		}
		if b.Type == blockType {
			out = append(out, b)
		}
		for _, c := range b.Children {
			visit(c)
		}
	}
	visit(root)
	return out
}
