// Package tree holds the in-memory hierarchy of folders and files.
//
// A Tree is built once from the flat repository listings (Load) and kept
// live afterwards; callers mirror every committed repository change into it
// with Insert, Move and Remove. The Tree is not safe for concurrent use.
package tree

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/pfs/pkg/types"
)

// RootName is the display name of the synthetic root folder.
const RootName = "/"

// Node is one item in the tree. The root node wraps a synthetic folder with
// an empty ID.
type Node struct {
	Item     *types.Item
	parent   *Node
	children []*Node
}

// IsRoot reports whether n is the synthetic root.
func (n *Node) IsRoot() bool { return n.parent == nil && n.Item.ID == "" }

// IsFolder reports whether n can hold children.
func (n *Node) IsFolder() bool { return n.Item.IsFolder() }

// Parent returns the containing node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a snapshot of the node's children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Depth returns the number of edges between n and the root.
func (n *Node) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Path returns the slash-separated names from the root down to n.
func (n *Node) Path() string {
	if n.IsRoot() {
		return RootName
	}
	var parts []string
	for p := n; p != nil && !p.IsRoot(); p = p.parent {
		parts = append(parts, p.Item.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return RootName + strings.Join(parts, types.PathSeparator)
}

// Tree indexes nodes by item ID and keeps parent/child edges.
type Tree struct {
	root  *Node
	index map[string]*Node
}

// New returns an empty tree holding only the synthetic root.
func New() *Tree {
	t := &Tree{}
	t.reset()
	return t
}

func (t *Tree) reset() {
	t.root = &Node{Item: &types.Item{Kind: types.KindFolder, Name: RootName}}
	t.index = make(map[string]*Node)
}

// Load replaces the tree content with the given flat listings. Folders may
// arrive in any order. Items whose parent is not a known folder, and folders
// that would close a cycle, are attached directly under the root.
func (t *Tree) Load(folders, files []*types.Item) {
	t.reset()

	for _, f := range folders {
		t.index[f.ID] = &Node{Item: f}
	}
	for _, f := range folders {
		node := t.index[f.ID]
		parent := t.folderOrRoot(f.ParentID)
		if parent != t.root && createsCycle(node, parent, t.index) {
			parent = t.root
		}
		parent.attach(node)
	}
	for _, f := range files {
		node := &Node{Item: f}
		t.index[f.ID] = node
		t.folderOrRoot(f.ParentID).attach(node)
	}
}

// LoadFrom rebuilds the tree from the repositories' full listings.
func (t *Tree) LoadFrom(folders, files types.Repository) error {
	folderItems, err := folders.FindAll()
	if err != nil {
		return fmt.Errorf("listing folders: %w", err)
	}
	fileItems, err := files.FindAll()
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}
	t.Load(folderItems, fileItems)
	return nil
}

// createsCycle reports whether attaching node under parent would make node
// its own ancestor. Parent links are followed through item ParentIDs because
// attachment order is arbitrary during Load. A chain that loops without
// passing node belongs to some other cycle and does not count.
func createsCycle(node, parent *Node, index map[string]*Node) bool {
	seen := map[string]bool{}
	for p := parent; p != nil; {
		if p == node {
			return true
		}
		id := p.Item.ParentID
		if id == "" || seen[id] {
			return false
		}
		seen[id] = true
		p = index[id]
	}
	return false
}

func (t *Tree) folderOrRoot(id string) *Node {
	if id == "" {
		return t.root
	}
	if n, ok := t.index[id]; ok && n.IsFolder() {
		return n
	}
	return t.root
}

// Root returns the synthetic root node.
func (t *Tree) Root() *Node { return t.root }

// Len returns the number of items in the tree, excluding the root.
func (t *Tree) Len() int { return len(t.index) }

// FindByID returns the node for id. The empty ID resolves to the root.
func (t *Tree) FindByID(id string) (*Node, bool) {
	if id == "" {
		return t.root, true
	}
	n, ok := t.index[id]
	return n, ok
}

// FindByPath resolves a slash-separated name path from the root.
// "/" and "" resolve to the root.
func (t *Tree) FindByPath(path string) (*Node, bool) {
	current := t.root
	for _, part := range strings.Split(strings.Trim(path, types.PathSeparator), types.PathSeparator) {
		if part == "" {
			continue
		}
		var next *Node
		for _, c := range current.children {
			if c.Item.Name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Parent returns the parent of n, or nil for the root.
func (t *Tree) Parent(n *Node) *Node { return n.parent }

// Children returns a snapshot of n's children.
func (t *Tree) Children(n *Node) []*Node { return n.Children() }

// CurrentPlacement returns the folder that creation operations target for a
// given selection: the selection itself if it is a folder, else its parent.
// A nil selection maps to the root.
func (t *Tree) CurrentPlacement(selection *Node) *Node {
	if selection == nil {
		return t.root
	}
	if selection.IsFolder() {
		return selection
	}
	if selection.parent == nil {
		return t.root
	}
	return selection.parent
}

// NameCollides reports whether a child of scope other than exclude is named
// candidate. The comparison is exact and case-sensitive.
func (t *Tree) NameCollides(candidate string, scope, exclude *Node) bool {
	for _, c := range scope.children {
		if c == exclude {
			continue
		}
		if c.Item.Name == candidate {
			return true
		}
	}
	return false
}

// Insert adds item as the last child of parent and indexes it.
func (t *Tree) Insert(parent *Node, item *types.Item) (*Node, error) {
	if !parent.IsFolder() {
		return nil, types.ErrNotAFolder
	}
	if _, exists := t.index[item.ID]; exists || item.ID == "" {
		return nil, types.ErrInvalidID
	}
	n := &Node{Item: item}
	t.index[item.ID] = n
	parent.attach(n)
	return n, nil
}

// Move detaches n from its parent and appends it to dest. The item's
// ParentID is not changed; callers commit it with the rest of the record.
func (t *Tree) Move(n, dest *Node) error {
	if n.IsRoot() {
		return types.ErrRootItem
	}
	if !dest.IsFolder() {
		return types.ErrNotAFolder
	}
	for p := dest; p != nil; p = p.parent {
		if p == n {
			return fmt.Errorf("moving %s into its own subtree: %w", n.Item.ID, types.ErrInvalidItem)
		}
	}
	if n.parent != nil {
		n.parent.detach(n)
	}
	dest.attach(n)
	return nil
}

// Remove detaches n from its parent and drops n and its whole subtree from
// the index.
func (t *Tree) Remove(n *Node) error {
	if n.IsRoot() {
		return types.ErrRootItem
	}
	if n.parent != nil {
		n.parent.detach(n)
	}
	t.Walk(n, func(d *Node) bool {
		delete(t.index, d.Item.ID)
		return true
	})
	return nil
}

// Walk visits n and its descendants depth-first in pre-order. Returning
// false from fn stops the walk.
func (t *Tree) Walk(n *Node, fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children() {
		if !t.Walk(c, fn) {
			return false
		}
	}
	return true
}

// PostOrder returns n's descendants, deepest first, excluding n itself.
func (t *Tree) PostOrder(n *Node) []*Node {
	var out []*Node
	var visit func(*Node)
	visit = func(x *Node) {
		for _, c := range x.children {
			visit(c)
			out = append(out, c)
		}
	}
	visit(n)
	return out
}

func (n *Node) attach(child *Node) {
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) detach(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			break
		}
	}
	child.parent = nil
}
