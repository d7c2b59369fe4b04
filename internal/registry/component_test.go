package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mailblocks/internal/types"
)

func TestDefaultCatalog(t *testing.T) {
	reg := Default()

	tests := []struct {
		blockType string
		model     types.ContentModel
		raw       bool
	}{
		{"mjml", types.Container, false},
		{"mj-head", types.Container, false},
		{"mj-body", types.Container, false},
		{"mj-section", types.Container, false},
		{"mj-column", types.Container, false},
		{"mj-text", types.ContentLeaf, true},
		{"mj-button", types.ContentLeaf, true},
		{"mj-raw", types.ContentLeaf, true},
		{"mj-title", types.ContentLeaf, false},
		{"mj-preview", types.ContentLeaf, false},
		{"mj-style", types.ContentLeaf, false},
		{"mj-image", types.Void, false},
		{"mj-divider", types.Void, false},
		{"mj-spacer", types.Void, false},
		{"mj-all", types.Void, false},
	}

	for _, tt := range tests {
		t.Run(tt.blockType, func(t *testing.T) {
			spec, ok := reg.Get(tt.blockType)
			require.True(t, ok)
			assert.Equal(t, tt.model, spec.ContentModel)
			assert.Equal(t, tt.raw, spec.RawContent)
			assert.Equal(t, tt.raw, reg.IsRaw(tt.blockType))
		})
	}
}

func TestDefaultCatalogIsConsistent(t *testing.T) {
	reg := Default()

	for _, spec := range reg.GetAll() {
		for _, child := range spec.ValidChildren {
			assert.Truef(t, reg.IsKnown(child), "%s lists unknown child %s", spec.Type, child)
		}
		assert.NotEmpty(t, spec.DisplayName, spec.Type)
		assert.NotEmpty(t, spec.Category, spec.Type)
	}
}

func TestDefaultReturnsIndependentRegistries(t *testing.T) {
	a := Default()
	b := Default()

	a.Remove("mj-text")
	assert.False(t, a.IsKnown("mj-text"))
	assert.True(t, b.IsKnown("mj-text"))
}

func TestDefaultAttributes(t *testing.T) {
	reg := Default()

	width, ok := reg.DefaultAttributes("mj-body").Get("width")
	require.True(t, ok)
	assert.Equal(t, types.String("600px"), width)

	fontSize, ok := reg.DefaultAttributes("mj-text").Get("fontSize")
	require.True(t, ok)
	assert.Equal(t, types.String("13px"), fontSize)

	assert.Equal(t, 0, reg.DefaultAttributes("mj-unknown").Len())
}

func TestSpecCopiesAreIsolated(t *testing.T) {
	reg := Default()

	spec, ok := reg.Get("mj-body")
	require.True(t, ok)
	spec.DefaultAttributes.Set("width", types.String("1px"))
	spec.ValidChildren[0] = "mj-nope"

	fresh, _ := reg.Get("mj-body")
	width, _ := fresh.DefaultAttributes.Get("width")
	assert.Equal(t, types.String("600px"), width)
	assert.Equal(t, "mj-wrapper", fresh.ValidChildren[0])
}

func TestLookupFallback(t *testing.T) {
	reg := Default()

	spec := reg.Lookup("mj-custom-widget")
	assert.Equal(t, "mj-custom-widget", spec.Type)
	assert.True(t, spec.AnyChild)
	assert.Equal(t, 0, spec.DefaultAttributes.Len())
	assert.Equal(t, "Other", spec.Category)
	assert.Equal(t, "Custom Widget", spec.DisplayName)
}

func TestModelFor(t *testing.T) {
	reg := Default()

	assert.Equal(t, types.Void, reg.ModelFor(types.NewBlock("1", "mj-image")))

	unknownLeaf := types.NewBlock("2", "x-widget")
	assert.Equal(t, types.ContentLeaf, reg.ModelFor(unknownLeaf))

	unknownContainer := types.NewBlock("3", "x-widget")
	unknownContainer.Children = []*types.Block{types.NewBlock("4", "mj-text")}
	assert.Equal(t, types.Container, reg.ModelFor(unknownContainer))
}

func TestCanContain(t *testing.T) {
	reg := Default()

	assert.True(t, reg.CanContain("mjml", "mj-body"))
	assert.True(t, reg.CanContain("mj-section", "mj-column"))
	assert.True(t, reg.CanContain("mj-column", "mj-text"))
	assert.False(t, reg.CanContain("mj-body", "mj-column"))
	assert.False(t, reg.CanContain("mj-text", "mj-text"))
	assert.False(t, reg.CanContain("mj-image", "mj-text"))
	assert.True(t, reg.CanContain("x-unknown", "anything"))
}

func TestRegisterValidation(t *testing.T) {
	reg := NewComponentRegistry()

	assert.Error(t, reg.Register(Spec{}))
	assert.Error(t, reg.Register(Spec{Type: "mj bad"}))
	assert.Error(t, reg.Register(Spec{Type: "mj-x", ContentModel: types.Container, RawContent: true}))
	assert.Error(t, reg.Register(Spec{Type: "mj-x", ContentModel: types.Void, ValidChildren: []string{"mj-text"}}))

	require.NoError(t, reg.Register(Spec{Type: "  MJ-Card ", ContentModel: types.Container, AnyChild: true}))
	spec, ok := reg.Get("mj-card")
	require.True(t, ok)
	assert.Equal(t, "Card", spec.DisplayName)
	assert.Equal(t, "Custom", spec.Category)
	assert.Equal(t, []string{"mj-card"}, reg.Types())
	assert.Equal(t, 1, reg.Count())
}

func TestWatchEvents(t *testing.T) {
	reg := NewComponentRegistry()
	events := reg.Watch()
	defer reg.UnWatch(events)

	require.NoError(t, reg.Register(Spec{Type: "mj-card", ContentModel: types.Void}))
	require.NoError(t, reg.Register(Spec{Type: "mj-card", ContentModel: types.ContentLeaf}))
	reg.Remove("mj-card")
	reg.Remove("mj-card")

	expected := []EventType{EventTypeAdded, EventTypeUpdated, EventTypeRemoved}
	for _, want := range expected {
		event := <-events
		assert.Equal(t, want, event.Type)
		assert.Equal(t, "mj-card", event.BlockType)
	}
	assert.Len(t, events, 0)
}

func TestDisplayNames(t *testing.T) {
	reg := Default()

	assert.Equal(t, "Social Element", reg.DisplayName("mj-social-element"))
	assert.Equal(t, "Navbar Link", reg.DisplayName("mj-navbar-link"))
	assert.Equal(t, "Layout", reg.Category("mj-section"))
	assert.Equal(t, "Fancy Box", displayName("fancy_box"))
	assert.Equal(t, "-", displayName("-"))

	categories := reg.Categories()
	assert.Contains(t, categories["Content"], "mj-text")
	assert.Contains(t, categories["Layout"], "mj-column")
}

func TestParseOverlay(t *testing.T) {
	data := []byte(`
components:
  - type: mj-card
    content_model: container
    valid_children: [mj-text, mj-image]
    category: Custom
    default_attributes:
      padding: 12px
      borderRadius: 4
  - type: mj-badge
    raw: true
`)

	specs, err := ParseOverlay(data)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	card := specs[0]
	assert.Equal(t, types.Container, card.ContentModel)
	assert.Equal(t, []string{"padding", "borderRadius"}, card.DefaultAttributes.Keys())
	radius, _ := card.DefaultAttributes.Get("borderRadius")
	assert.Equal(t, types.Number(4), radius)

	badge := specs[1]
	assert.Equal(t, types.ContentLeaf, badge.ContentModel)
	assert.True(t, badge.RawContent)
}

func TestParseOverlayErrors(t *testing.T) {
	_, err := ParseOverlay([]byte("components:\n  - content_model: void\n"))
	assert.ErrorContains(t, err, "type is required")

	_, err = ParseOverlay([]byte("components:\n  - type: mj-x\n    content_model: blob\n"))
	assert.Error(t, err)

	_, err = ParseOverlay([]byte("components:\n  - type: mj-x\n    colour: red\n"))
	assert.Error(t, err)

	specs, err := ParseOverlay(nil)
	assert.NoError(t, err)
	assert.Empty(t, specs)
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "components.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
components:
  - type: mj-body
    content_model: container
    any_child: true
    default_attributes:
      width: 640px
`), 0o644))

	reg := Default()
	n, err := reg.LoadOverlay(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	width, _ := reg.DefaultAttributes("mj-body").Get("width")
	assert.Equal(t, types.String("640px"), width)
	assert.True(t, reg.CanContain("mj-body", "mj-column"))

	_, err = reg.LoadOverlay(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	reg := Default()

	spec, ok := reg.Get("mj-text")
	require.True(t, ok)
	info := spec.Info()
	assert.Equal(t, "mj-text", info.Type)
	assert.Equal(t, "content", info.ContentModel)
	assert.True(t, info.Raw)
	assert.True(t, info.DefaultAttributes.Has("fontSize"))

	info.DefaultAttributes.Set("fontSize", types.String("99px"))
	v, _ := reg.DefaultAttributes("mj-text").Get("fontSize")
	assert.NotEqual(t, "99px", v.Text())

	infos := reg.Infos()
	assert.Len(t, infos, reg.Count())
	assert.Equal(t, "mj-accordion", infos[0].Type)
}
