package markup

import (
	"github.com/google/uuid"

	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/registry"
)

const (
	// DefaultMaxDepth bounds element nesting on decode. The root element is
	// at depth 1.
	DefaultMaxDepth = 100
	// DefaultMaxNodes bounds the number of blocks a single decode produces.
	DefaultMaxNodes = 10000

	defaultIndent = "  "
)

// ContentTransform rewrites leaf content before it is written. It receives
// the block type and the unescaped content.
type ContentTransform func(blockType, content string) string

type options struct {
	registry  *registry.ComponentRegistry
	indent    string
	transform ContentTransform
	rootType  string
	newID     func() string
	maxDepth  int
	maxNodes  int
	logger    logging.Logger
}

func defaultOptions() options {
	return options{
		registry: registry.Default(),
		indent:   defaultIndent,
		rootType: registry.RootType,
		newID:    uuid.NewString,
		maxDepth: DefaultMaxDepth,
		maxNodes: DefaultMaxNodes,
		logger:   logging.Nop(),
	}
}

// Option configures an Encoder or a Decoder.
type Option func(*options)

// WithRegistry sets the component catalog consulted for content models and
// raw-content types.
func WithRegistry(reg *registry.ComponentRegistry) Option {
	return func(o *options) {
		if reg != nil {
			o.registry = reg
		}
	}
}

// WithIndent sets the indent unit written per depth level.
func WithIndent(indent string) Option {
	return func(o *options) { o.indent = indent }
}

// WithContentTransform installs a hook applied to every leaf's content
// during encoding.
func WithContentTransform(fn ContentTransform) Option {
	return func(o *options) { o.transform = fn }
}

// WithRootType sets the tag the decoded document element must carry.
func WithRootType(rootType string) Option {
	return func(o *options) {
		if rootType != "" {
			o.rootType = rootType
		}
	}
}

// WithIDGenerator replaces the random id source used on decode.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithMaxDepth bounds element nesting on decode. Values below 1 keep the
// default.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

// WithMaxNodes bounds the number of blocks produced by one decode. Values
// below 1 keep the default.
func WithMaxNodes(nodes int) Option {
	return func(o *options) {
		if nodes > 0 {
			o.maxNodes = nodes
		}
	}
}

// WithLogger sets the logger that receives recovery reports.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// ChainTransforms applies transforms in order. Nil entries are skipped and
// the result is nil when no transform is left.
func ChainTransforms(transforms ...ContentTransform) ContentTransform {
	var chain []ContentTransform
	for _, fn := range transforms {
		if fn != nil {
			chain = append(chain, fn)
		}
	}
	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	}
	return func(blockType, content string) string {
		for _, fn := range chain {
			content = fn(blockType, content)
		}
		return content
	}
}
