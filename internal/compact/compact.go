// Package compact minifies the stylesheets and raw markup of a document
// before it is handed to a renderer. Minified raw markup targets HTML
// consumers: void elements lose their self-closing slash.
package compact

import (
	"context"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"

	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/registry"
	"github.com/conneroisu/mailblocks/internal/types"
)

const (
	mediaCSS  = "text/css"
	mediaHTML = "text/html"
)

// Options selects what gets minified.
type Options struct {
	CSS  bool
	HTML bool
}

// Compactor minifies mj-style sheets and raw-content leaves.
type Compactor struct {
	minifier *minify.M
	opts     Options
	registry *registry.ComponentRegistry
	logger   logging.Logger
}

// New builds a Compactor. A nil registry means the built-in catalog and a
// nil logger discards output.
func New(opts Options, reg *registry.ComponentRegistry, logger logging.Logger) *Compactor {
	if reg == nil {
		reg = registry.Default()
	}
	if logger == nil {
		logger = logging.Nop()
	}

	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	m.Add(mediaHTML, &html.Minifier{
		KeepDefaultAttrVals: true,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
	})

	return &Compactor{
		minifier: m,
		opts:     opts,
		registry: reg,
		logger:   logger.WithComponent("compact"),
	}
}

func (c *Compactor) mediaType(blockType string) string {
	switch {
	case blockType == "mj-style" && c.opts.CSS:
		return mediaCSS
	case c.opts.HTML && c.registry.IsRaw(blockType):
		return mediaHTML
	}
	return ""
}

// Content minifies content according to blockType. Content that fails to
// minify is returned unchanged. It has the shape of a
// markup.ContentTransform.
func (c *Compactor) Content(blockType, content string) string {
	mediaType := c.mediaType(blockType)
	if mediaType == "" {
		return content
	}
	out, err := c.minifier.String(mediaType, content)
	if err != nil {
		c.logger.Warn(context.Background(), err, "Minify failed, keeping content", "block_type", blockType)
		return content
	}
	return out
}

// Tree returns a minified copy of root and the number of bytes saved.
func (c *Compactor) Tree(ctx context.Context, root *types.Block) (*types.Block, int) {
	if root == nil {
		return nil, 0
	}
	out := root.Clone(true)
	saved := 0
	_ = out.Walk(func(n *types.Block, _ int) error {
		if n.Content == nil {
			return nil
		}
		small := c.Content(n.Type, *n.Content)
		saved += len(*n.Content) - len(small)
		n.Content = &small
		return nil
	})
	c.logger.Debug(ctx, "Minified document", "bytes_saved", saved)
	return out, saved
}
