package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pfs/internal/tree"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

func sized(id, parent string, size int64) *types.Item {
	f := types.NewFile(id, parent, id+".bin", 0, time.Now())
	f.File.Size = size
	return f
}

func sample() *tree.Tree {
	tr := tree.New()
	tr.Load(
		[]*types.Item{
			types.NewFolder("d1", "", "docs", time.Now()),
			types.NewFolder("d2", "d1", "work", time.Now()),
			types.NewFolder("d3", "", "empty", time.Now()),
		},
		[]*types.Item{sized("f1", "d1", 100), sized("f2", "d2", 250), sized("f3", "", 650)},
	)
	return tr
}

func TestAggregateSize(t *testing.T) {
	tr := sample()
	tests := []struct {
		id   string
		want int64
	}{
		{id: "", want: 1000},
		{id: "d1", want: 350},
		{id: "d2", want: 250},
		{id: "d3", want: 0},
		{id: "f3", want: 650},
	}
	for _, tt := range tests {
		n, ok := tr.FindByID(tt.id)
		require.True(t, ok)
		assert.Equal(t, tt.want, AggregateSize(n), tt.id)
	}
	assert.Equal(t, int64(0), AggregateSize(nil))
}

func TestAggregateSize_RootEqualsSumOfFiles(t *testing.T) {
	tr := sample()
	var sum int64
	tr.Walk(tr.Root(), func(n *tree.Node) bool {
		if n.Item.IsFile() {
			sum += n.Item.File.Size
		}
		return true
	})
	assert.Equal(t, sum, AggregateSize(tr.Root()))
}

func TestNewBreakdown(t *testing.T) {
	tr := sample()
	d1, _ := tr.FindByID("d1")

	b := NewBreakdown(tr, d1)
	assert.Equal(t, int64(1000), b.Total)
	assert.Equal(t, "/docs", b.Selection.Label)
	assert.Equal(t, int64(350), b.Selection.Bytes)
	assert.InDelta(t, 0.35, b.Selection.Ratio, 1e-9)
	assert.Equal(t, OthersLabel, b.Others.Label)
	assert.Equal(t, int64(650), b.Others.Bytes)
	assert.InDelta(t, 0.65, b.Others.Ratio, 1e-9)
	assert.Contains(t, b.String(), "35.0%")

	empty := NewBreakdown(tree.New(), nil)
	assert.Equal(t, 0.0, empty.Selection.Ratio)
}

func TestCollect(t *testing.T) {
	tr := sample()
	s := Collect(tr, tr.Root())
	assert.Equal(t, Stats{FolderCount: 3, FileCount: 3, TotalSize: 1000, MaxDepth: 3}, s)
	assert.Equal(t, "3 folders, 3 files (0 locked), 1.0 kB total", s.String())

	d1, _ := tr.FindByID("d1")
	assert.Equal(t, 2, Collect(tr, d1).MaxDepth)
}
