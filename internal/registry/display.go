package registry

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/mailblocks/internal/types"
)

// displayName derives a human label from a type tag: "mj-social-element"
// becomes "Social Element". Tags without the mj- prefix keep every part.
func displayName(blockType string) string {
	name := strings.TrimPrefix(blockType, "mj-")
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(parts) == 0 {
		return blockType
	}
	return cases.Title(language.English).String(strings.Join(parts, " "))
}

// DisplayName returns the label for blockType.
func (r *ComponentRegistry) DisplayName(blockType string) string {
	return r.Lookup(blockType).DisplayName
}

// Category returns the palette category for blockType.
func (r *ComponentRegistry) Category(blockType string) string {
	return r.Lookup(blockType).Category
}

// Categories groups registered types by category. Types within a category
// are sorted.
func (r *ComponentRegistry) Categories() map[string][]string {
	out := make(map[string][]string)
	for _, spec := range r.GetAll() {
		out[spec.Category] = append(out[spec.Category], spec.Type)
	}
	return out
}

// Info is the serializable view of a Spec.
type Info struct {
	Type              string           `json:"type"                         yaml:"type"`
	DisplayName       string           `json:"display_name"                 yaml:"display_name"`
	Category          string           `json:"category"                     yaml:"category"`
	ContentModel      string           `json:"content_model"                yaml:"content_model"`
	Raw               bool             `json:"raw,omitempty"                yaml:"raw,omitempty"`
	ValidChildren     []string         `json:"valid_children,omitempty"     yaml:"valid_children,omitempty"`
	AnyChild          bool             `json:"any_child,omitempty"          yaml:"any_child,omitempty"`
	DefaultAttributes types.Attributes `json:"default_attributes,omitempty" yaml:"default_attributes,omitempty"`
}

// Info returns the serializable view of s.
func (s Spec) Info() Info {
	c := s.clone()
	return Info{
		Type:              c.Type,
		DisplayName:       c.DisplayName,
		Category:          c.Category,
		ContentModel:      c.ContentModel.String(),
		Raw:               c.RawContent,
		ValidChildren:     c.ValidChildren,
		AnyChild:          c.AnyChild,
		DefaultAttributes: c.DefaultAttributes,
	}
}

// Infos returns the view of every registered type sorted by type.
func (r *ComponentRegistry) Infos() []Info {
	specs := r.GetAll()
	out := make([]Info, 0, len(specs))
	for _, spec := range specs {
		out = append(out, spec.Info())
	}
	return out
}
