// Package registry provides the catalog of email block types: for every
// type tag it knows the content model, the default attributes and the
// child types an author may place inside it.
//
// The registry is data, not behavior. Encoding and attribute resolution
// branch on a Spec's ContentModel rather than on the type name, and
// unknown type tags resolve to a permissive fallback Spec so that imported
// markup never fails just because it uses a custom component.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/mailblocks/internal/types"
)

// RootType is the tag of the document root element.
const RootType = "mjml"

// RenderContext is handed to a Spec's custom Render hook.
type RenderContext struct {
	Block *types.Block
	// Attrs is the already formatted attribute text, including its leading
	// space, or "" when the block has no emitted attributes.
	Attrs  string
	Indent string
	Depth  int
	// RenderChild encodes a child block at the given depth.
	RenderChild func(child *types.Block, depth int) (string, error)
}

// RenderFunc overrides the generic content-model rendering for one type.
type RenderFunc func(rc RenderContext) (string, error)

// Spec describes one block type.
type Spec struct {
	Type              string
	ContentModel      types.ContentModel
	RawContent        bool
	DefaultAttributes types.Attributes
	ValidChildren     []string
	AnyChild          bool
	DisplayName       string
	Category          string
	Render            RenderFunc
}

// clone returns a copy whose slices and attributes are not shared.
func (s Spec) clone() Spec {
	out := s
	out.DefaultAttributes = s.DefaultAttributes.Clone()
	if s.ValidChildren != nil {
		out.ValidChildren = append([]string(nil), s.ValidChildren...)
	}
	return out
}

// Allows reports whether childType may be placed inside this type.
func (s Spec) Allows(childType string) bool {
	if s.ContentModel != types.Container {
		return false
	}
	if s.AnyChild {
		return true
	}
	for _, c := range s.ValidChildren {
		if c == childType {
			return true
		}
	}
	return false
}

// ComponentRegistry manages the known block types.
type ComponentRegistry struct {
	specs    map[string]Spec
	mutex    sync.RWMutex
	watchers []chan ComponentEvent
}

// ComponentEvent represents a change in the component registry
type ComponentEvent struct {
	Type      EventType
	BlockType string
	Timestamp time.Time
}

// EventType represents the type of component event
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

func (t EventType) String() string {
	switch t {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// NewComponentRegistry creates an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		specs:    make(map[string]Spec),
		watchers: make([]chan ComponentEvent, 0),
	}
}

// Default returns a fresh registry holding the built-in MJML catalog.
func Default() *ComponentRegistry {
	r := NewComponentRegistry()
	for _, spec := range builtinSpecs() {
		if err := r.Register(spec); err != nil {
			panic(fmt.Sprintf("registry: invalid builtin spec %s: %v", spec.Type, err))
		}
	}
	return r
}

// Register adds or replaces a spec.
func (r *ComponentRegistry) Register(spec Spec) error {
	spec.Type = strings.ToLower(strings.TrimSpace(spec.Type))
	if spec.Type == "" {
		return fmt.Errorf("component type cannot be empty")
	}
	if strings.ContainsAny(spec.Type, " \t\r\n<>/\"'=") {
		return fmt.Errorf("invalid component type %q", spec.Type)
	}
	if spec.RawContent && spec.ContentModel != types.ContentLeaf {
		return fmt.Errorf("component %s: only content leaves can carry raw content", spec.Type)
	}
	if spec.ContentModel != types.Container && (len(spec.ValidChildren) > 0 || spec.AnyChild) {
		return fmt.Errorf("component %s: only containers can declare children", spec.Type)
	}
	if spec.DisplayName == "" {
		spec.DisplayName = displayName(spec.Type)
	}
	if spec.Category == "" {
		spec.Category = "Custom"
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if _, exists := r.specs[spec.Type]; exists {
		eventType = EventTypeUpdated
	}
	r.specs[spec.Type] = spec.clone()
	r.notify(ComponentEvent{Type: eventType, BlockType: spec.Type, Timestamp: time.Now()})
	return nil
}

// Get retrieves the spec of a known type.
func (r *ComponentRegistry) Get(blockType string) (Spec, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	spec, ok := r.specs[blockType]
	if !ok {
		return Spec{}, false
	}
	return spec.clone(), true
}

// Lookup returns the spec of blockType, or the fallback spec for unknown
// types: no defaults, unrestricted children, and a content model that the
// caller should infer structurally with ModelFor.
func (r *ComponentRegistry) Lookup(blockType string) Spec {
	if spec, ok := r.Get(blockType); ok {
		return spec
	}
	return Spec{
		Type:         blockType,
		ContentModel: types.ContentLeaf,
		AnyChild:     true,
		DisplayName:  displayName(blockType),
		Category:     "Other",
	}
}

// IsKnown reports whether blockType is registered.
func (r *ComponentRegistry) IsKnown(blockType string) bool {
	_, ok := r.Get(blockType)
	return ok
}

// ModelFor returns the content model that governs block. Unknown types are
// containers when they have children and content leaves otherwise.
func (r *ComponentRegistry) ModelFor(block *types.Block) types.ContentModel {
	if spec, ok := r.Get(block.Type); ok {
		return spec.ContentModel
	}
	if len(block.Children) > 0 {
		return types.Container
	}
	return types.ContentLeaf
}

// IsRaw reports whether blockType keeps its content as unescaped markup.
func (r *ComponentRegistry) IsRaw(blockType string) bool {
	spec, ok := r.Get(blockType)
	return ok && spec.RawContent
}

// CanContain reports whether an author may place childType in parentType.
// Unknown parents accept anything.
func (r *ComponentRegistry) CanContain(parentType, childType string) bool {
	spec, ok := r.Get(parentType)
	if !ok {
		return true
	}
	return spec.Allows(childType)
}

// DefaultAttributes returns a copy of the registry defaults for blockType.
func (r *ComponentRegistry) DefaultAttributes(blockType string) types.Attributes {
	spec, ok := r.Get(blockType)
	if !ok {
		return types.Attributes{}
	}
	return spec.DefaultAttributes
}

// Types returns all registered type tags, sorted.
func (r *ComponentRegistry) Types() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]string, 0, len(r.specs))
	for t := range r.specs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// GetAll returns all registered specs sorted by type.
func (r *ComponentRegistry) GetAll() []Spec {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]Spec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, spec.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Remove deletes a type from the registry.
func (r *ComponentRegistry) Remove(blockType string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.specs[blockType]; !exists {
		return
	}
	delete(r.specs, blockType)
	r.notify(ComponentEvent{Type: EventTypeRemoved, BlockType: blockType, Timestamp: time.Now()})
}

// Watch returns a channel that receives registry changes. Slow watchers
// miss events rather than blocking registration.
func (r *ComponentRegistry) Watch() <-chan ComponentEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan ComponentEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *ComponentRegistry) UnWatch(ch <-chan ComponentEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// notify must be called with the write lock held.
func (r *ComponentRegistry) notify(event ComponentEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
		}
	}
}

// Count returns the number of registered types.
func (r *ComponentRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.specs)
}
