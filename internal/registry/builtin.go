package registry

import "github.com/conneroisu/mailblocks/internal/types"

const defaultFontFamily = "Ubuntu, Helvetica, Arial, sans-serif"

// contentComponents are the blocks that may sit inside a column or hero.
var contentComponents = []string{
	"mj-text",
	"mj-button",
	"mj-image",
	"mj-divider",
	"mj-spacer",
	"mj-social",
	"mj-navbar",
	"mj-carousel",
	"mj-accordion",
	"mj-table",
	"mj-raw",
}

func attrs(pairs ...string) types.Attributes {
	var a types.Attributes
	for i := 0; i+1 < len(pairs); i += 2 {
		a.Set(pairs[i], types.String(pairs[i+1]))
	}
	return a
}

func builtinSpecs() []Spec {
	headAttributeChildren := append([]string{"mj-all", "mj-class"}, contentComponents...)
	headAttributeChildren = append(headAttributeChildren,
		"mj-body", "mj-wrapper", "mj-section", "mj-column", "mj-group", "mj-hero",
		"mj-social-element", "mj-navbar-link", "mj-carousel-image",
		"mj-accordion-element", "mj-accordion-title", "mj-accordion-text",
	)

	return []Spec{
		// Document
		{
			Type:          RootType,
			ContentModel:  types.Container,
			ValidChildren: []string{"mj-head", "mj-body"},
			DisplayName:   "MJML Document",
			Category:      "Document",
		},
		{
			Type:         "mj-head",
			ContentModel: types.Container,
			ValidChildren: []string{
				"mj-attributes", "mj-breakpoint", "mj-font", "mj-html-attributes",
				"mj-preview", "mj-style", "mj-title", "mj-raw",
			},
			DisplayName: "Head",
			Category:    "Document",
		},
		{
			Type:              "mj-body",
			ContentModel:      types.Container,
			ValidChildren:     []string{"mj-wrapper", "mj-section", "mj-hero", "mj-raw"},
			DefaultAttributes: attrs("width", "600px"),
			DisplayName:       "Body",
			Category:          "Document",
		},

		// Head
		{
			Type:          "mj-attributes",
			ContentModel:  types.Container,
			ValidChildren: headAttributeChildren,
			DisplayName:   "Attributes",
			Category:      "Head",
		},
		{Type: "mj-all", ContentModel: types.Void, DisplayName: "All", Category: "Head"},
		{Type: "mj-class", ContentModel: types.Void, DisplayName: "Class", Category: "Head"},
		{Type: "mj-breakpoint", ContentModel: types.Void, DisplayName: "Breakpoint", Category: "Head"},
		{Type: "mj-font", ContentModel: types.Void, DisplayName: "Font", Category: "Head"},
		{
			Type:          "mj-html-attributes",
			ContentModel:  types.Container,
			ValidChildren: []string{"mj-selector"},
			DisplayName:   "HTML Attributes",
			Category:      "Head",
		},
		{
			Type:          "mj-selector",
			ContentModel:  types.Container,
			ValidChildren: []string{"mj-html-attribute"},
			DisplayName:   "Selector",
			Category:      "Head",
		},
		{Type: "mj-html-attribute", ContentModel: types.ContentLeaf, DisplayName: "HTML Attribute", Category: "Head"},
		{Type: "mj-preview", ContentModel: types.ContentLeaf, DisplayName: "Preview", Category: "Head"},
		{Type: "mj-style", ContentModel: types.ContentLeaf, DisplayName: "Style", Category: "Head"},
		{Type: "mj-title", ContentModel: types.ContentLeaf, DisplayName: "Title", Category: "Head"},

		// Layout
		{
			Type:              "mj-wrapper",
			ContentModel:      types.Container,
			ValidChildren:     []string{"mj-section", "mj-hero", "mj-raw"},
			DefaultAttributes: attrs("direction", "ltr", "padding", "20px 0", "textAlign", "center"),
			DisplayName:       "Wrapper",
			Category:          "Layout",
		},
		{
			Type:              "mj-section",
			ContentModel:      types.Container,
			ValidChildren:     []string{"mj-column", "mj-group", "mj-raw"},
			DefaultAttributes: attrs("direction", "ltr", "padding", "20px 0", "textAlign", "center"),
			DisplayName:       "Section",
			Category:          "Layout",
		},
		{
			Type:              "mj-group",
			ContentModel:      types.Container,
			ValidChildren:     []string{"mj-column", "mj-raw"},
			DefaultAttributes: attrs("direction", "ltr"),
			DisplayName:       "Group",
			Category:          "Layout",
		},
		{
			Type:              "mj-column",
			ContentModel:      types.Container,
			ValidChildren:     contentComponents,
			DefaultAttributes: attrs("direction", "ltr", "verticalAlign", "top"),
			DisplayName:       "Column",
			Category:          "Layout",
		},
		{
			Type:          "mj-hero",
			ContentModel:  types.Container,
			ValidChildren: contentComponents,
			DefaultAttributes: attrs(
				"mode", "fixed-height",
				"height", "0px",
				"backgroundPosition", "center center",
				"padding", "0px",
				"verticalAlign", "top",
			),
			DisplayName: "Hero",
			Category:    "Layout",
		},

		// Content
		{
			Type:         "mj-text",
			ContentModel: types.ContentLeaf,
			RawContent:   true,
			DefaultAttributes: attrs(
				"align", "left",
				"color", "#000000",
				"fontFamily", defaultFontFamily,
				"fontSize", "13px",
				"lineHeight", "1",
				"padding", "10px 25px",
			),
			DisplayName: "Text",
			Category:    "Content",
		},
		{
			Type:         "mj-button",
			ContentModel: types.ContentLeaf,
			RawContent:   true,
			DefaultAttributes: attrs(
				"align", "center",
				"backgroundColor", "#414141",
				"border", "none",
				"borderRadius", "3px",
				"color", "#ffffff",
				"fontFamily", defaultFontFamily,
				"fontSize", "13px",
				"fontWeight", "normal",
				"innerPadding", "10px 25px",
				"lineHeight", "120%",
				"padding", "10px 25px",
				"target", "_blank",
				"textDecoration", "none",
				"textTransform", "none",
				"verticalAlign", "middle",
			),
			DisplayName: "Button",
			Category:    "Content",
		},
		{
			Type:         "mj-image",
			ContentModel: types.Void,
			DefaultAttributes: attrs(
				"align", "center",
				"border", "0",
				"height", "auto",
				"padding", "10px 25px",
				"target", "_blank",
				"fontSize", "13px",
			),
			DisplayName: "Image",
			Category:    "Content",
		},
		{
			Type:         "mj-table",
			ContentModel: types.ContentLeaf,
			RawContent:   true,
			DefaultAttributes: attrs(
				"align", "left",
				"border", "none",
				"cellpadding", "0",
				"cellspacing", "0",
				"color", "#000000",
				"fontFamily", defaultFontFamily,
				"fontSize", "13px",
				"lineHeight", "22px",
				"padding", "10px 25px",
				"tableLayout", "auto",
				"width", "100%",
			),
			DisplayName: "Table",
			Category:    "Content",
		},
		{
			Type:         "mj-raw",
			ContentModel: types.ContentLeaf,
			RawContent:   true,
			DisplayName:  "Raw HTML",
			Category:     "Raw",
		},

		// Spacing
		{
			Type:         "mj-divider",
			ContentModel: types.Void,
			DefaultAttributes: attrs(
				"align", "center",
				"borderColor", "#000000",
				"borderStyle", "solid",
				"borderWidth", "4px",
				"padding", "10px 25px",
				"width", "100%",
			),
			DisplayName: "Divider",
			Category:    "Spacing",
		},
		{
			Type:              "mj-spacer",
			ContentModel:      types.Void,
			DefaultAttributes: attrs("height", "20px"),
			DisplayName:       "Spacer",
			Category:          "Spacing",
		},

		// Social
		{
			Type:          "mj-social",
			ContentModel:  types.Container,
			ValidChildren: []string{"mj-social-element"},
			DefaultAttributes: attrs(
				"align", "center",
				"borderRadius", "3px",
				"color", "#333333",
				"fontFamily", defaultFontFamily,
				"fontSize", "13px",
				"iconSize", "20px",
				"innerPadding", "4px",
				"lineHeight", "22px",
				"mode", "horizontal",
				"padding", "10px 25px",
				"textDecoration", "none",
			),
			DisplayName: "Social",
			Category:    "Social",
		},
		{
			Type:         "mj-social-element",
			ContentModel: types.ContentLeaf,
			RawContent:   true,
			DefaultAttributes: attrs(
				"align", "left",
				"color", "#000",
				"borderRadius", "3px",
				"fontFamily", defaultFontFamily,
				"fontSize", "13px",
				"lineHeight", "1",
				"padding", "4px",
				"textPadding", "4px 4px 4px 0",
				"target", "_blank",
				"verticalAlign", "middle",
			),
			DisplayName: "Social Element",
			Category:    "Social",
		},

		// Navigation
		{
			Type:              "mj-navbar",
			ContentModel:      types.Container,
			ValidChildren:     []string{"mj-navbar-link"},
			DefaultAttributes: attrs("align", "center"),
			DisplayName:       "Navbar",
			Category:          "Navigation",
		},
		{
			Type:         "mj-navbar-link",
			ContentModel: types.ContentLeaf,
			RawContent:   true,
			DefaultAttributes: attrs(
				"color", "#000000",
				"fontFamily", defaultFontFamily,
				"fontSize", "13px",
				"fontWeight", "normal",
				"lineHeight", "22px",
				"padding", "15px 10px",
				"target", "_blank",
				"textDecoration", "none",
				"textTransform", "uppercase",
			),
			DisplayName: "Navbar Link",
			Category:    "Navigation",
		},

		// Interactive
		{
			Type:          "mj-carousel",
			ContentModel:  types.Container,
			ValidChildren: []string{"mj-carousel-image"},
			DefaultAttributes: attrs(
				"align", "center",
				"borderRadius", "6px",
				"iconWidth", "44px",
				"thumbnails", "visible",
			),
			DisplayName: "Carousel",
			Category:    "Interactive",
		},
		{
			Type:              "mj-carousel-image",
			ContentModel:      types.Void,
			DefaultAttributes: attrs("target", "_blank"),
			DisplayName:       "Carousel Image",
			Category:          "Interactive",
		},
		{
			Type:          "mj-accordion",
			ContentModel:  types.Container,
			ValidChildren: []string{"mj-accordion-element"},
			DefaultAttributes: attrs(
				"border", "2px solid black",
				"fontFamily", defaultFontFamily,
				"iconAlign", "middle",
				"iconHeight", "32px",
				"iconPosition", "right",
				"iconWidth", "32px",
				"padding", "10px 25px",
			),
			DisplayName: "Accordion",
			Category:    "Interactive",
		},
		{
			Type:          "mj-accordion-element",
			ContentModel:  types.Container,
			ValidChildren: []string{"mj-accordion-title", "mj-accordion-text"},
			DisplayName:   "Accordion Element",
			Category:      "Interactive",
		},
		{
			Type:              "mj-accordion-title",
			ContentModel:      types.ContentLeaf,
			RawContent:        true,
			DefaultAttributes: attrs("fontSize", "13px", "padding", "16px"),
			DisplayName:       "Accordion Title",
			Category:          "Interactive",
		},
		{
			Type:              "mj-accordion-text",
			ContentModel:      types.ContentLeaf,
			RawContent:        true,
			DefaultAttributes: attrs("fontSize", "13px", "lineHeight", "1", "padding", "16px"),
			DisplayName:       "Accordion Text",
			Category:          "Interactive",
		},
	}
}
