// Package resolver computes the effective attributes of a block for display
// and authoring. Results are never written back into a tree: the encoder
// only ever serializes a block's own attributes.
package resolver

import (
	"strings"

	"github.com/conneroisu/mailblocks/internal/registry"
	"github.com/conneroisu/mailblocks/internal/types"
)

const (
	headType       = "mj-head"
	attributesType = "mj-attributes"
	allType        = "mj-all"
	classType      = "mj-class"

	// classAttr is the camel-case name of the mj-class attribute.
	classAttr = "mjClass"
)

// Resolve merges, from lowest to highest precedence, the registry defaults
// for blockType, the document-level defaults and the explicit attributes.
// The merge is a shallow per-key override. Null values never override a
// lower tier. None of the inputs are modified.
func Resolve(reg *registry.ComponentRegistry, blockType string, explicit, documentDefaults types.Attributes) types.Attributes {
	var base types.Attributes
	if reg != nil {
		base = reg.DefaultAttributes(blockType)
	}

	out := base.Clone()
	for _, tier := range []types.Attributes{documentDefaults, explicit} {
		for _, attr := range tier.All() {
			if attr.Value.IsNull() {
				continue
			}
			out.Set(attr.Name, attr.Value)
		}
	}
	return out
}

// DocumentDefaults collects the defaults a document declares for blockType
// in its mj-head > mj-attributes section: mj-all first, then the element
// named after the type. Later declarations win.
func DocumentDefaults(root *types.Block, blockType string) types.Attributes {
	var out types.Attributes
	for _, decl := range declarations(root) {
		if decl.Type == allType || decl.Type == blockType {
			out = out.Merge(decl.Attributes)
		}
	}
	return out
}

// ClassDefaults collects the attributes of the named mj-class declarations,
// applied in the order the names are given.
func ClassDefaults(root *types.Block, classNames ...string) types.Attributes {
	classes := make(map[string]types.Attributes)
	for _, decl := range declarations(root) {
		if decl.Type != classType {
			continue
		}
		name, _ := decl.Attributes.Get("name")
		attrs := decl.Attributes.Clone()
		attrs.Delete("name")
		classes[name.Text()] = classes[name.Text()].Merge(attrs)
	}

	var out types.Attributes
	for _, name := range classNames {
		if attrs, ok := classes[name]; ok {
			out = out.Merge(attrs)
		}
	}
	return out
}

// ResolveBlock resolves block against the defaults declared in root. The
// document tier is the mj-all and per-type defaults overridden by the
// classes named in the block's mj-class attribute. extra, when given, is
// layered under the document's own declarations.
func ResolveBlock(reg *registry.ComponentRegistry, block, root *types.Block, extra ...types.Attributes) types.Attributes {
	if block == nil {
		return types.Attributes{}
	}

	var docDefaults types.Attributes
	docDefaults = docDefaults.Merge(extra...)
	docDefaults = docDefaults.Merge(DocumentDefaults(root, block.Type))
	if v, ok := block.Attributes.Get(classAttr); ok {
		docDefaults = docDefaults.Merge(ClassDefaults(root, strings.Fields(v.Text())...))
	}
	return Resolve(reg, block.Type, block.Attributes, docDefaults)
}

// declarations returns the children of every mj-attributes block directly
// under the document head.
func declarations(root *types.Block) []*types.Block {
	if root == nil {
		return nil
	}

	var out []*types.Block
	for _, head := range root.Children {
		if head == nil || head.Type != headType {
			continue
		}
		for _, section := range head.Children {
			if section == nil || section.Type != attributesType {
				continue
			}
			for _, decl := range section.Children {
				if decl != nil {
					out = append(out, decl)
				}
			}
		}
	}
	return out
}
