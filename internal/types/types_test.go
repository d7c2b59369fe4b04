package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValueText(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"string", String("10px"), "10px"},
		{"integer number", Number(600), "600"},
		{"fractional number", Number(1.5), "1.5"},
		{"negative number", Number(-2), "-2"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"null", Null, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.Text())
		})
	}
}

func TestValueIsEmpty(t *testing.T) {
	assert.True(t, Null.IsEmpty())
	assert.True(t, String("").IsEmpty())
	assert.False(t, String(" ").IsEmpty())
	assert.False(t, Number(0).IsEmpty())
	assert.False(t, Bool(false).IsEmpty())
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Number(1).Equal(Number(1)))
	assert.False(t, Number(1).Equal(String("1")))
	assert.False(t, Bool(true).Equal(Bool(false)))
	assert.True(t, Null.Equal(Value{}))
}

func TestValueOf(t *testing.T) {
	v, err := ValueOf(json.Number("42"))
	require.NoError(t, err)
	assert.Equal(t, Number(42), v)

	v, err = ValueOf(7)
	require.NoError(t, err)
	assert.Equal(t, Number(7), v)

	_, err = ValueOf([]interface{}{"a"})
	assert.True(t, errors.Is(err, ErrUnsupportedValue))

	_, err = ValueOf(map[string]interface{}{"a": 1})
	assert.True(t, errors.Is(err, ErrUnsupportedValue))
}

func TestAttributesOrderAndOverride(t *testing.T) {
	var attrs Attributes
	attrs.Set("padding", String("10px"))
	attrs.Set("color", String("red"))
	attrs.Set("padding", String("20px"))

	assert.Equal(t, []string{"padding", "color"}, attrs.Keys())
	v, ok := attrs.Get("padding")
	require.True(t, ok)
	assert.Equal(t, String("20px"), v)

	assert.True(t, attrs.Delete("padding"))
	assert.False(t, attrs.Delete("padding"))
	assert.Equal(t, []string{"color"}, attrs.Keys())
}

func TestAttributesMerge(t *testing.T) {
	base := NewAttributes(Attr{"a", String("1")}, Attr{"b", String("2")})
	over := NewAttributes(Attr{"b", String("3")}, Attr{"c", String("4")})

	merged := base.Merge(over)
	assert.Equal(t, []string{"a", "b", "c"}, merged.Keys())
	b, _ := merged.Get("b")
	assert.Equal(t, String("3"), b)

	// inputs untouched
	b, _ = base.Get("b")
	assert.Equal(t, String("2"), b)
	assert.Equal(t, 2, over.Len())
}

func TestAttributesCloneIsIndependent(t *testing.T) {
	orig := NewAttributes(Attr{"a", String("1")})
	clone := orig.Clone()
	clone.Set("a", String("2"))

	v, _ := orig.Get("a")
	assert.Equal(t, String("1"), v)
}

func TestAttributesJSONKeepsOrder(t *testing.T) {
	input := `{"zIndex":1,"align":"center","hidden":true,"alt":null}`

	var attrs Attributes
	require.NoError(t, json.Unmarshal([]byte(input), &attrs))
	assert.Equal(t, []string{"zIndex", "align", "hidden", "alt"}, attrs.Keys())

	out, err := json.Marshal(attrs)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
	assert.Equal(t, input, string(out))
}

func TestAttributesJSONRejectsNested(t *testing.T) {
	var attrs Attributes
	err := json.Unmarshal([]byte(`{"list":[1,2]}`), &attrs)
	assert.True(t, errors.Is(err, ErrUnsupportedValue))

	err = json.Unmarshal([]byte(`{"obj":{"a":1}}`), &attrs)
	assert.True(t, errors.Is(err, ErrUnsupportedValue))

	err = json.Unmarshal([]byte(`[1]`), &attrs)
	assert.Error(t, err)
}

func TestAttributesYAML(t *testing.T) {
	var attrs Attributes
	require.NoError(t, yaml.Unmarshal([]byte("width: 600px\nborder: 0\nfluid: true\n"), &attrs))
	assert.Equal(t, []string{"width", "border", "fluid"}, attrs.Keys())
	border, _ := attrs.Get("border")
	assert.Equal(t, Number(0), border)

	out, err := yaml.Marshal(attrs)
	require.NoError(t, err)
	assert.Equal(t, "width: 600px\nborder: 0\nfluid: true\n", string(out))

	err = yaml.Unmarshal([]byte("list: [1, 2]\n"), &attrs)
	assert.True(t, errors.Is(err, ErrUnsupportedValue))
}

func TestAttributesFromMapSortsKeys(t *testing.T) {
	attrs, err := AttributesFromMap(map[string]interface{}{"b": "2", "a": 1.0})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, attrs.Keys())

	_, err = AttributesFromMap(map[string]interface{}{"x": []string{"no"}})
	assert.Error(t, err)
}

func sampleTree() *Block {
	root := NewBlock("root", "mjml")
	body := NewBlock("body", "mj-body")
	text := NewBlock("text", "mj-text")
	text.Content = StringPtr("Hello")
	text.Attributes.Set("fontSize", String("16px"))
	body.Children = []*Block{text}
	root.Children = []*Block{body}
	return root
}

func TestBlockValidate(t *testing.T) {
	assert.NoError(t, sampleTree().Validate())

	both := NewBlock("x", "mj-text")
	both.Content = StringPtr("hi")
	both.Children = []*Block{NewBlock("y", "mj-raw")}
	assert.Error(t, both.Validate())

	untyped := NewBlock("x", "")
	assert.Error(t, untyped.Validate())

	nilChild := NewBlock("x", "mj-body")
	nilChild.Children = []*Block{nil}
	assert.Error(t, nilChild.Validate())
}

func TestBlockWalkAndFind(t *testing.T) {
	tree := sampleTree()

	var visited []string
	var depths []int
	require.NoError(t, tree.Walk(func(n *Block, depth int) error {
		visited = append(visited, n.Type)
		depths = append(depths, depth)
		return nil
	}))
	assert.Equal(t, []string{"mjml", "mj-body", "mj-text"}, visited)
	assert.Equal(t, []int{0, 1, 2}, depths)

	assert.Equal(t, "mj-text", tree.Find("text").Type)
	assert.Nil(t, tree.Find("missing"))
	assert.Len(t, tree.FindByType("mj-body"), 1)
	assert.Equal(t, 3, tree.Count())
}

func TestBlockCloneAndEqual(t *testing.T) {
	tree := sampleTree()

	withIDs := tree.Clone(true)
	assert.Equal(t, tree, withIDs)

	withoutIDs := tree.Clone(false)
	assert.Equal(t, "", withoutIDs.ID)
	assert.True(t, tree.Equal(withoutIDs))

	*withoutIDs.Children[0].Children[0].Content = "Changed"
	assert.Equal(t, "Hello", tree.Children[0].Children[0].ContentString())
	assert.False(t, tree.Equal(withoutIDs))
}

func TestBlockEqualTreatsNilAndEmptyChildrenAlike(t *testing.T) {
	a := NewBlock("1", "mj-body")
	b := NewBlock("2", "mj-body")
	b.Children = []*Block{}
	assert.True(t, a.Equal(b))

	c := NewBlock("3", "mj-text")
	c.Content = StringPtr("")
	d := NewBlock("4", "mj-text")
	assert.False(t, c.Equal(d))
}

func TestParseBlockJSON(t *testing.T) {
	data := []byte(`{
		"id": "root",
		"type": "mjml",
		"attributes": {},
		"children": [
			{"id": "b", "type": "mj-body", "attributes": {"width": 600}}
		]
	}`)

	block, err := ParseBlockJSON(data)
	require.NoError(t, err)
	require.Len(t, block.Children, 1)
	width, _ := block.Children[0].Attributes.Get("width")
	assert.Equal(t, Number(600), width)

	_, err = ParseBlockJSON([]byte(`{"id":"x","type":"mj-text","content":"a","children":[{"id":"y","type":"mj-raw"}]}`))
	assert.Error(t, err)
}

func TestContentModel(t *testing.T) {
	for _, m := range []ContentModel{Void, ContentLeaf, Container} {
		parsed, err := ParseContentModel(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseContentModel("blob")
	assert.Error(t, err)
}
