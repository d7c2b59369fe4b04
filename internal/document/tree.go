// Package document holds an editable, id-addressed form of a block tree.
//
// A Tree stores every node in a map keyed by id, with parent and child id
// lists alongside. Authoring tools mutate the tree through its methods and
// convert it back to a types.Block for encoding.
package document

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/registry"
	"github.com/conneroisu/mailblocks/internal/types"
)

type node struct {
	block    *types.Block // Children is always nil here
	parent   string
	children []string
}

// Tree is an arena of blocks addressed by id. It is safe for concurrent
// use.
type Tree struct {
	nodes    map[string]*node
	root     string
	registry *registry.ComponentRegistry
	newID    func() string
	mutex    sync.RWMutex
}

// Option configures a Tree.
type Option func(*Tree)

// WithRegistry sets the registry used to enforce content models.
func WithRegistry(reg *registry.ComponentRegistry) Option {
	return func(t *Tree) {
		if reg != nil {
			t.registry = reg
		}
	}
}

// WithIDGenerator replaces uuid.NewString for ids minted by the tree.
func WithIDGenerator(fn func() string) Option {
	return func(t *Tree) {
		if fn != nil {
			t.newID = fn
		}
	}
}

func newTree(opts []Option) *Tree {
	t := &Tree{
		nodes:    make(map[string]*node),
		registry: registry.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// New creates a tree holding a single empty root block.
func New(rootType string, opts ...Option) *Tree {
	t := newTree(opts)
	root := types.NewBlock(t.newID(), rootType)
	t.nodes[root.ID] = &node{block: root}
	t.root = root.ID
	return t
}

// FromBlock copies root into a new tree. Blocks without an id get a fresh
// one; duplicate ids and blocks holding both content and children are
// rejected.
func FromBlock(root *types.Block, opts ...Option) (*Tree, error) {
	if root == nil {
		return nil, mailerrors.NewValidationError(mailerrors.ErrCodeNilBlock, "cannot build a tree from a nil block")
	}

	t := newTree(opts)
	id, err := t.add(root, "")
	if err != nil {
		return nil, err
	}
	t.root = id
	return t, nil
}

// add copies the subtree b under parent. On failure nothing is left behind.
func (t *Tree) add(b *types.Block, parent string) (string, error) {
	var added []string
	id, err := t.addRec(b, parent, &added)
	if err != nil {
		for _, a := range added {
			delete(t.nodes, a)
		}
		return "", err
	}
	return id, nil
}

func (t *Tree) addRec(b *types.Block, parent string, added *[]string) (string, error) {
	if b == nil {
		return "", mailerrors.NewValidationError(mailerrors.ErrCodeNilBlock, "nil child block").
			WithContext("parent", parent)
	}
	if b.Content != nil && len(b.Children) > 0 {
		return "", contentModelError(b.Type, "a block cannot hold both content and children")
	}

	id := b.ID
	if id == "" {
		id = t.newID()
	}
	if _, exists := t.nodes[id]; exists {
		return "", mailerrors.NewValidationError(mailerrors.ErrCodeDuplicateID,
			fmt.Sprintf("block id %q is already in use", id)).
			WithBlockType(b.Type).
			WithContext("id", id)
	}

	own := &types.Block{ID: id, Type: b.Type, Attributes: b.Attributes.Clone()}
	if b.Content != nil {
		c := *b.Content
		own.Content = &c
	}
	n := &node{block: own, parent: parent}
	t.nodes[id] = n
	*added = append(*added, id)

	for _, c := range b.Children {
		childID, err := t.addRec(c, id, added)
		if err != nil {
			return "", err
		}
		n.children = append(n.children, childID)
	}
	return id, nil
}

// Root returns the id of the root block.
func (t *Tree) Root() string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.root
}

// Len returns the number of blocks in the tree.
func (t *Tree) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.nodes)
}

// Get returns a copy of the block stored under id, without its children.
func (t *Tree) Get(id string) (*types.Block, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	return n.block.Clone(true), true
}

// Parent returns the parent id of id. The root has no parent.
func (t *Tree) Parent(id string) (string, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n, ok := t.nodes[id]
	if !ok || n.parent == "" {
		return "", false
	}
	return n.parent, true
}

// Children returns the ordered child ids of id.
func (t *Tree) Children(id string) []string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return append([]string(nil), n.children...)
}

// InsertChild copies child into parentID's child list at index. An index
// out of range appends. It returns the id of the inserted block.
func (t *Tree) InsertChild(parentID string, child *types.Block, index int) (string, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	parent, err := t.lookup(parentID)
	if err != nil {
		return "", err
	}
	if err := t.acceptsChildren(parent); err != nil {
		return "", err
	}

	id, err := t.add(child, parentID)
	if err != nil {
		return "", err
	}
	parent.children = insertAt(parent.children, id, index)
	return id, nil
}

// Remove detaches the subtree at id and returns it. The root cannot be
// removed.
func (t *Tree) Remove(id string) (*types.Block, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	n, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	if id == t.root {
		return nil, invalidMove("the root block cannot be removed", id)
	}

	out := t.assemble(id)
	parent := t.nodes[n.parent]
	parent.children = removeID(parent.children, id)
	t.drop(id)
	return out, nil
}

// Move reparents id under newParentID at index. The root cannot move and a
// block cannot move into its own subtree.
func (t *Tree) Move(id, newParentID string, index int) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	target, err := t.lookup(newParentID)
	if err != nil {
		return err
	}
	if id == t.root {
		return invalidMove("the root block cannot be moved", id)
	}
	for p := newParentID; p != ""; p = t.nodes[p].parent {
		if p == id {
			return invalidMove("a block cannot be moved into its own subtree", id)
		}
	}
	if err := t.acceptsChildren(target); err != nil {
		return err
	}

	old := t.nodes[n.parent]
	old.children = removeID(old.children, id)
	target.children = insertAt(target.children, id, index)
	n.parent = newParentID
	return nil
}

// SetAttribute stores value under name on the block id.
func (t *Tree) SetAttribute(id, name string, value types.Value) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	if name == "" {
		return mailerrors.NewValidationError(mailerrors.ErrCodeInvalidName, "attribute name cannot be empty").
			WithBlockType(n.block.Type)
	}
	n.block.Attributes.Set(name, value)
	return nil
}

// DeleteAttribute removes name from the block id and reports whether it
// was set.
func (t *Tree) DeleteAttribute(id, name string) (bool, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	n, err := t.lookup(id)
	if err != nil {
		return false, err
	}
	return n.block.Attributes.Delete(name), nil
}

// SetContent replaces the content of the block id. A nil content clears
// it. Blocks with children, and registered types that are not content
// leaves, cannot take content.
func (t *Tree) SetContent(id string, content *string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	if content == nil {
		n.block.Content = nil
		return nil
	}
	if len(n.children) > 0 {
		return contentModelError(n.block.Type, "a block with children cannot hold content")
	}
	if spec, ok := t.registry.Get(n.block.Type); ok && spec.ContentModel != types.ContentLeaf {
		return contentModelError(n.block.Type, fmt.Sprintf("%s blocks cannot hold content", spec.ContentModel))
	}

	c := *content
	n.block.Content = &c
	return nil
}

// Replace swaps the subtree at id for a copy of b, in the same position.
// When b has no id the replacement keeps id.
func (t *Tree) Replace(id string, b *types.Block) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	if b == nil {
		return mailerrors.NewValidationError(mailerrors.ErrCodeNilBlock, "cannot replace with a nil block")
	}

	replacement := b
	if b.ID == "" {
		replacement = b.Clone(true)
		replacement.ID = id
	}

	// The old subtree leaves first so its ids can be reused.
	saved := make(map[string]*node)
	t.collect(id, saved)
	for sid := range saved {
		delete(t.nodes, sid)
	}

	newID, err := t.add(replacement, n.parent)
	if err != nil {
		for sid, sn := range saved {
			t.nodes[sid] = sn
		}
		return err
	}

	if n.parent == "" {
		t.root = newID
		return nil
	}
	parent := t.nodes[n.parent]
	for i, c := range parent.children {
		if c == id {
			parent.children[i] = newID
			break
		}
	}
	return nil
}

// ToBlock assembles the whole tree into a nested block.
func (t *Tree) ToBlock() *types.Block {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.assemble(t.root)
}

// Subtree assembles the block at id and its descendants.
func (t *Tree) Subtree(id string) (*types.Block, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if _, ok := t.nodes[id]; !ok {
		return nil, false
	}
	return t.assemble(id), true
}

func (t *Tree) assemble(id string) *types.Block {
	n := t.nodes[id]
	out := n.block.Clone(true)
	if len(n.children) > 0 {
		out.Children = make([]*types.Block, len(n.children))
		for i, c := range n.children {
			out.Children[i] = t.assemble(c)
		}
	}
	return out
}

func (t *Tree) collect(id string, into map[string]*node) {
	n := t.nodes[id]
	into[id] = n
	for _, c := range n.children {
		t.collect(c, into)
	}
}

func (t *Tree) drop(id string) {
	for _, c := range t.nodes[id].children {
		t.drop(c)
	}
	delete(t.nodes, id)
}

func (t *Tree) lookup(id string) (*node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, mailerrors.NewValidationError(mailerrors.ErrCodeBlockNotFound,
			fmt.Sprintf("no block with id %q", id)).
			WithContext("id", id)
	}
	return n, nil
}

func (t *Tree) acceptsChildren(n *node) error {
	if n.block.Content != nil {
		return contentModelError(n.block.Type, "a block with content cannot hold children")
	}
	if spec, ok := t.registry.Get(n.block.Type); ok && spec.ContentModel != types.Container {
		return contentModelError(n.block.Type, fmt.Sprintf("%s blocks cannot hold children", spec.ContentModel))
	}
	return nil
}

func contentModelError(blockType, message string) *mailerrors.MailError {
	return mailerrors.NewValidationError(mailerrors.ErrCodeContentModel, message).
		WithBlockType(blockType)
}

func invalidMove(message, id string) *mailerrors.MailError {
	return mailerrors.NewValidationError(mailerrors.ErrCodeInvalidMove, message).
		WithContext("id", id)
}

func insertAt(ids []string, id string, index int) []string {
	if index < 0 || index >= len(ids) {
		return append(ids, id)
	}
	ids = append(ids, "")
	copy(ids[index+1:], ids[index:])
	ids[index] = id
	return ids
}

func removeID(ids []string, id string) []string {
	for i, c := range ids {
		if c == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
