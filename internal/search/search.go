// Package search finds items in the tree by name or file content.
package search

import (
	"fmt"
	"iter"
	"strings"

	"github.com/mesh-intelligence/pfs/internal/tree"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

// Mode selects what a query is matched against.
type Mode int

const (
	ByName Mode = iota
	ByContent
)

func (m Mode) String() string {
	switch m {
	case ByName:
		return "name"
	case ByContent:
		return "content"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps "name" or "content" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "name":
		return ByName, nil
	case "content":
		return ByContent, nil
	default:
		return 0, fmt.Errorf("unknown search mode %q", s)
	}
}

// Predicate returns the match function for query under mode.
// Matching is case-sensitive and ignores lock state.
func Predicate(query string, mode Mode) func(*types.Item) bool {
	if mode == ByContent {
		return func(it *types.Item) bool {
			return it.IsFile() && it.File.Content != nil && strings.Contains(*it.File.Content, query)
		}
	}
	return func(it *types.Item) bool {
		return strings.Contains(it.Name, query)
	}
}

// Matches yields the nodes under root matching query, in pre-order. The
// synthetic root never matches. Each range over the sequence re-traverses.
func Matches(t *tree.Tree, root *tree.Node, query string, mode Mode) iter.Seq[*tree.Node] {
	match := Predicate(query, mode)
	return func(yield func(*tree.Node) bool) {
		t.Walk(root, func(n *tree.Node) bool {
			if n.IsRoot() || !match(n.Item) {
				return true
			}
			return yield(n)
		})
	}
}

// Search collects the matches of query under root. An empty query is
// rejected with ErrEmptyQuery.
func Search(t *tree.Tree, root *tree.Node, query string, mode Mode) ([]*tree.Node, error) {
	if query == "" {
		return nil, types.ErrEmptyQuery
	}
	if root == nil {
		root = t.Root()
	}
	var out []*tree.Node
	for n := range Matches(t, root, query, mode) {
		out = append(out, n)
	}
	return out, nil
}
