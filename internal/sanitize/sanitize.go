// Package sanitize cleans the raw markup carried by content leaves of
// imported documents.
package sanitize

import (
	"context"
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/registry"
	"github.com/conneroisu/mailblocks/internal/types"
)

// Policy names.
const (
	Strict = "strict"
	UGC    = "ugc"
)

// emailStyles are the inline CSS properties kept by the ugc policy.
var emailStyles = []string{
	"color", "background-color", "font-size", "font-weight", "font-style",
	"font-family", "text-align", "text-decoration", "line-height",
}

// NewPolicy returns the named bluemonday policy. The ugc policy keeps common
// formatting markup plus the class attribute and a set of inline styles.
func NewPolicy(name string) (*bluemonday.Policy, error) {
	switch name {
	case Strict:
		return bluemonday.StrictPolicy(), nil
	case UGC, "":
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").Globally()
		p.AllowAttrs("align").OnElements("p", "div", "td", "th")
		p.AllowStyles(emailStyles...).Globally()
		return p, nil
	default:
		return nil, mailerrors.NewConfigError(mailerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown sanitize policy %q", name)).
			WithContext("policy", name)
	}
}

// Sanitizer applies a policy to raw-content leaves.
type Sanitizer struct {
	policy   *bluemonday.Policy
	registry *registry.ComponentRegistry
	logger   logging.Logger
}

// New builds a Sanitizer. A nil registry means the built-in catalog and a
// nil logger discards output.
func New(policyName string, reg *registry.ComponentRegistry, logger logging.Logger) (*Sanitizer, error) {
	policy, err := NewPolicy(policyName)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = registry.Default()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Sanitizer{policy: policy, registry: reg, logger: logger.WithComponent("sanitize")}, nil
}

// Content sanitizes content when blockType keeps raw markup and returns it
// unchanged otherwise. It has the shape of a markup.ContentTransform.
func (s *Sanitizer) Content(blockType, content string) string {
	if !s.registry.IsRaw(blockType) {
		return content
	}
	return s.policy.Sanitize(content)
}

// Tree returns a sanitized copy of root and the number of leaves whose
// content changed. IDs are kept.
func (s *Sanitizer) Tree(ctx context.Context, root *types.Block) (*types.Block, int) {
	if root == nil {
		return nil, 0
	}
	out := root.Clone(true)
	changed := 0
	_ = out.Walk(func(n *types.Block, _ int) error {
		if n.Content == nil {
			return nil
		}
		clean := s.Content(n.Type, *n.Content)
		if clean != *n.Content {
			s.logger.Debug(ctx, "Sanitized block content", "block_id", n.ID, "block_type", n.Type)
			n.Content = &clean
			changed++
		}
		return nil
	})
	if changed > 0 {
		s.logger.Info(ctx, "Sanitized document", "blocks", changed)
	}
	return out, changed
}
