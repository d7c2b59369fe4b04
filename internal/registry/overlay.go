package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/mailblocks/internal/types"
)

// overlayFile is the on-disk shape of a component overlay:
//
//	components:
//	  - type: mj-card
//	    content_model: container
//	    valid_children: [mj-text, mj-image]
//	    category: Custom
//	    default_attributes:
//	      padding: 12px
type overlayFile struct {
	Components []overlaySpec `yaml:"components"`
}

type overlaySpec struct {
	Type              string           `yaml:"type"`
	ContentModel      string           `yaml:"content_model"`
	Raw               bool             `yaml:"raw"`
	ValidChildren     []string         `yaml:"valid_children"`
	AnyChild          bool             `yaml:"any_child"`
	DisplayName       string           `yaml:"display_name"`
	Category          string           `yaml:"category"`
	DefaultAttributes types.Attributes `yaml:"default_attributes"`
}

// ParseOverlay decodes component specs from YAML. Unknown keys are errors so
// that typos in overlay files surface immediately.
func ParseOverlay(data []byte) ([]Spec, error) {
	var file overlayFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse component overlay: %w", err)
	}

	specs := make([]Spec, 0, len(file.Components))
	for i, c := range file.Components {
		if c.Type == "" {
			return nil, fmt.Errorf("component overlay entry %d: type is required", i)
		}
		model := types.ContentLeaf
		if c.ContentModel != "" {
			m, err := types.ParseContentModel(c.ContentModel)
			if err != nil {
				return nil, fmt.Errorf("component %s: %w", c.Type, err)
			}
			model = m
		}
		specs = append(specs, Spec{
			Type:              c.Type,
			ContentModel:      model,
			RawContent:        c.Raw,
			DefaultAttributes: c.DefaultAttributes,
			ValidChildren:     c.ValidChildren,
			AnyChild:          c.AnyChild,
			DisplayName:       c.DisplayName,
			Category:          c.Category,
		})
	}
	return specs, nil
}

// LoadOverlay reads an overlay file and registers every spec in it. Entries
// for built-in types replace the built-in descriptor. Returns the number of
// specs registered.
func (r *ComponentRegistry) LoadOverlay(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read component overlay %s: %w", path, err)
	}
	specs, err := ParseOverlay(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
	}
	return len(specs), nil
}
