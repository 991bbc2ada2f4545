// Package metrics aggregates storage sizes over the tree.
package metrics

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/mesh-intelligence/pfs/internal/tree"
)

// OthersLabel names the remainder of a Breakdown.
const OthersLabel = "Others"

// AggregateSize returns the total size of the files under n. A file
// contributes its own size; a folder the sum of its children.
func AggregateSize(n *tree.Node) int64 {
	if n == nil {
		return 0
	}
	if n.Item.IsFile() {
		return n.Item.File.Size
	}
	var total int64
	for _, c := range n.Children() {
		total += AggregateSize(c)
	}
	return total
}

// Share is one slice of a Breakdown.
type Share struct {
	Label string  `json:"label"`
	Bytes int64   `json:"bytes"`
	Ratio float64 `json:"ratio"`
}

// Breakdown splits the whole tree's size into the selection and the rest.
type Breakdown struct {
	Total     int64 `json:"total"`
	Selection Share `json:"selection"`
	Others    Share `json:"others"`
}

// NewBreakdown computes selection's share of the total stored under t's root.
// Ratios are 0 when the tree holds no bytes.
func NewBreakdown(t *tree.Tree, selection *tree.Node) Breakdown {
	if selection == nil {
		selection = t.Root()
	}
	total := AggregateSize(t.Root())
	sel := AggregateSize(selection)
	b := Breakdown{
		Total:     total,
		Selection: Share{Label: selection.Path(), Bytes: sel},
		Others:    Share{Label: OthersLabel, Bytes: total - sel},
	}
	if total > 0 {
		b.Selection.Ratio = float64(sel) / float64(total)
		b.Others.Ratio = float64(total-sel) / float64(total)
	}
	return b
}

func (b Breakdown) String() string {
	return fmt.Sprintf("%s: %s (%.1f%%), %s: %s (%.1f%%), total %s",
		b.Selection.Label, humanize.Bytes(uint64(b.Selection.Bytes)), b.Selection.Ratio*100,
		b.Others.Label, humanize.Bytes(uint64(b.Others.Bytes)), b.Others.Ratio*100,
		humanize.Bytes(uint64(b.Total)))
}

// Stats counts the nodes below a subtree root.
type Stats struct {
	FolderCount int   `json:"folders"`
	FileCount   int   `json:"files"`
	LockedCount int   `json:"locked"`
	TotalSize   int64 `json:"total_size"`
	MaxDepth    int   `json:"max_depth"`
}

// Collect walks the subtree under n, excluding n itself.
func Collect(t *tree.Tree, n *tree.Node) Stats {
	var s Stats
	if n == nil {
		return s
	}
	base := n.Depth()
	t.Walk(n, func(d *tree.Node) bool {
		if d == n {
			return true
		}
		if depth := d.Depth() - base; depth > s.MaxDepth {
			s.MaxDepth = depth
		}
		if d.Item.IsFile() {
			s.FileCount++
			s.TotalSize += d.Item.File.Size
			if d.Item.File.Locked {
				s.LockedCount++
			}
		} else {
			s.FolderCount++
		}
		return true
	})
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("%d folders, %d files (%d locked), %s total",
		s.FolderCount, s.FileCount, s.LockedCount, humanize.Bytes(uint64(s.TotalSize)))
}
