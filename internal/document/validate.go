package document

import (
	"fmt"
	"strings"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/registry"
	"github.com/conneroisu/mailblocks/internal/types"
)

// Validate checks a tree against the registry's hierarchy and content
// models. It is an authoring-time check; the decoder never calls it.
// Unknown types pass through unchecked. All problems are collected and
// returned together.
func Validate(root *types.Block, reg *registry.ComponentRegistry) error {
	return validate(root, reg, false)
}

// ValidateStrict is Validate that also reports unknown block types.
func ValidateStrict(root *types.Block, reg *registry.ComponentRegistry) error {
	return validate(root, reg, true)
}

func validate(root *types.Block, reg *registry.ComponentRegistry, strict bool) error {
	if root == nil {
		return mailerrors.NewValidationError(mailerrors.ErrCodeNilBlock, "nothing to validate")
	}
	if reg == nil {
		reg = registry.Default()
	}

	collector := mailerrors.NewErrorCollector()
	seen := make(map[string]bool)

	var visit func(b *types.Block, path string)
	visit = func(b *types.Block, path string) {
		if b.Type == "" {
			collector.Add(mailerrors.NewValidationError(mailerrors.ErrCodeInvalidType, "block has no type").
				WithContext("path", path))
		}
		if b.ID != "" {
			if seen[b.ID] {
				collector.Add(mailerrors.NewValidationError(mailerrors.ErrCodeDuplicateID,
					fmt.Sprintf("block id %q is used more than once", b.ID)).
					WithBlockType(b.Type).
					WithContext("path", path))
			}
			seen[b.ID] = true
		}

		spec, known := reg.Get(b.Type)
		switch {
		case !known && strict && b.Type != "":
			collector.Add(mailerrors.NewValidationError(mailerrors.ErrCodeUnknownType,
				fmt.Sprintf("unknown block type %q", b.Type)).
				WithBlockType(b.Type).
				WithContext("path", path))
		case known:
			checkContentModel(collector, spec, b, path)
		}
		if !known && b.Content != nil && len(b.Children) > 0 {
			collector.Add(contentModelError(b.Type, "a block cannot hold both content and children").
				WithContext("path", path))
		}

		for i, c := range b.Children {
			childPath := fmt.Sprintf("%s/%d", path, i)
			if c == nil {
				collector.Add(mailerrors.NewValidationError(mailerrors.ErrCodeNilBlock, "nil child block").
					WithBlockType(b.Type).
					WithContext("path", childPath))
				continue
			}
			if known && spec.ContentModel == types.Container && !spec.Allows(c.Type) {
				collector.Add(mailerrors.NewValidationError(mailerrors.ErrCodeInvalidChild,
					fmt.Sprintf("%s cannot contain %s", b.Type, c.Type)).
					WithBlockType(c.Type).
					WithContext("parent", b.Type).
					WithContext("allowed", strings.Join(spec.ValidChildren, ", ")).
					WithContext("path", childPath))
			}
			visit(c, childPath)
		}
	}
	visit(root, root.Type)

	return collector.Err()
}

func checkContentModel(collector *mailerrors.ErrorCollector, spec registry.Spec, b *types.Block, path string) {
	switch spec.ContentModel {
	case types.Void:
		if b.Content != nil || len(b.Children) > 0 {
			collector.Add(contentModelError(b.Type, "void blocks take neither content nor children").
				WithContext("path", path))
		}
	case types.ContentLeaf:
		if len(b.Children) > 0 {
			collector.Add(contentModelError(b.Type, "content blocks cannot hold children").
				WithContext("path", path))
		}
	case types.Container:
		if b.Content != nil {
			collector.Add(contentModelError(b.Type, "container blocks cannot hold content").
				WithContext("path", path))
		}
	}
}

// Validate checks the tree's current contents with the tree's registry.
func (t *Tree) Validate() error {
	t.mutex.RLock()
	reg := t.registry
	t.mutex.RUnlock()
	return Validate(t.ToBlock(), reg)
}
