package tree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pfs/pkg/types"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func folder(id, parent, name string) *types.Item {
	return types.NewFolder(id, parent, name, now)
}

func file(id, parent, name string) *types.Item {
	return types.NewFile(id, parent, name, 0, now)
}

// sampleTree builds:
//
//	/
//	├── docs (d1)
//	│   ├── work (d2)
//	│   │   └── plan.txt (f2)
//	│   └── a.txt (f1)
//	└── top.csv (f3)
func sampleTree(t *testing.T) *Tree {
	t.Helper()
	tr := New()
	// Child folder listed before its parent on purpose.
	tr.Load(
		[]*types.Item{folder("d2", "d1", "work"), folder("d1", "", "docs")},
		[]*types.Item{file("f1", "d1", "a.txt"), file("f2", "d2", "plan.txt"), file("f3", "", "top.csv")},
	)
	return tr
}

func TestLoad_OrderIndependent(t *testing.T) {
	tr := sampleTree(t)

	assert.Equal(t, 5, tr.Len())

	d1, ok := tr.FindByID("d1")
	require.True(t, ok)
	assert.Same(t, tr.Root(), tr.Parent(d1))

	d2, ok := tr.FindByID("d2")
	require.True(t, ok)
	assert.Same(t, d1, tr.Parent(d2))

	f2, ok := tr.FindByID("f2")
	require.True(t, ok)
	assert.Equal(t, "/docs/work/plan.txt", f2.Path())
	assert.Equal(t, 3, f2.Depth())
}

func TestLoad_OrphansAttachToRoot(t *testing.T) {
	tr := New()
	tr.Load(
		[]*types.Item{folder("d1", "missing", "lost")},
		[]*types.Item{file("f1", "gone", "x.txt"), file("f2", "f1", "under-file.txt")},
	)

	for _, id := range []string{"d1", "f1", "f2"} {
		n, ok := tr.FindByID(id)
		require.True(t, ok, id)
		assert.Same(t, tr.Root(), n.Parent(), id)
	}
}

func TestLoad_CycleAttachesToRoot(t *testing.T) {
	tr := New()
	tr.Load([]*types.Item{folder("a", "b", "a"), folder("b", "a", "b")}, nil)

	a, _ := tr.FindByID("a")
	b, _ := tr.FindByID("b")
	assert.NotSame(t, a, b.Parent())
	// Both nodes stay reachable from the root.
	var seen []string
	tr.Walk(tr.Root(), func(n *Node) bool {
		seen = append(seen, n.Item.ID)
		return true
	})
	assert.Contains(t, seen, "a")
	assert.Contains(t, seen, "b")
}

func TestLoad_FolderBelowCycleKeepsParent(t *testing.T) {
	tr := New()
	tr.Load([]*types.Item{folder("a", "b", "a"), folder("b", "a", "b"), folder("c", "a", "c")}, nil)

	a, _ := tr.FindByID("a")
	c, _ := tr.FindByID("c")
	assert.Same(t, a, c.Parent())
	assert.Equal(t, "/a/c", c.Path())
}

func TestLoad_ReplacesPreviousContent(t *testing.T) {
	tr := sampleTree(t)
	tr.Load(nil, []*types.Item{file("only", "", "one.txt")})

	assert.Equal(t, 1, tr.Len())
	_, ok := tr.FindByID("d1")
	assert.False(t, ok)
}

func TestFindByPath(t *testing.T) {
	tr := sampleTree(t)

	n, ok := tr.FindByPath("/docs/work/plan.txt")
	require.True(t, ok)
	assert.Equal(t, "f2", n.Item.ID)

	n, ok = tr.FindByPath("docs")
	require.True(t, ok)
	assert.Equal(t, "d1", n.Item.ID)

	n, ok = tr.FindByPath("/")
	require.True(t, ok)
	assert.True(t, n.IsRoot())

	_, ok = tr.FindByPath("/docs/nope")
	assert.False(t, ok)
}

func TestCurrentPlacement(t *testing.T) {
	tr := sampleTree(t)
	d1, _ := tr.FindByID("d1")
	f1, _ := tr.FindByID("f1")
	f3, _ := tr.FindByID("f3")

	assert.Same(t, d1, tr.CurrentPlacement(d1), "folder selects itself")
	assert.Same(t, d1, tr.CurrentPlacement(f1), "file selects its parent")
	assert.Same(t, tr.Root(), tr.CurrentPlacement(f3), "root-level file selects root")
	assert.Same(t, tr.Root(), tr.CurrentPlacement(nil))
}

func TestNameCollides(t *testing.T) {
	tr := sampleTree(t)
	d1, _ := tr.FindByID("d1")
	f1, _ := tr.FindByID("f1")

	assert.True(t, tr.NameCollides("a.txt", d1, nil))
	assert.False(t, tr.NameCollides("a.txt", d1, f1), "self is excluded")
	assert.False(t, tr.NameCollides("A.txt", d1, nil), "comparison is case-sensitive")
	assert.False(t, tr.NameCollides("plan.txt", d1, nil), "only direct children count")
	assert.True(t, tr.NameCollides("top.csv", tr.Root(), nil))
}

func TestInsertMoveRemove(t *testing.T) {
	tr := sampleTree(t)
	d1, _ := tr.FindByID("d1")
	d2, _ := tr.FindByID("d2")
	f3, _ := tr.FindByID("f3")

	n, err := tr.Insert(d2, file("f4", "d2", "new.txt"))
	require.NoError(t, err)
	assert.Same(t, d2, n.Parent())

	_, err = tr.Insert(f3, file("f5", "f3", "bad.txt"))
	assert.ErrorIs(t, err, types.ErrNotAFolder)

	_, err = tr.Insert(d2, file("f4", "d2", "dup-id.txt"))
	assert.ErrorIs(t, err, types.ErrInvalidID)

	require.NoError(t, tr.Move(f3, d2))
	assert.Same(t, d2, f3.Parent())
	assert.Len(t, tr.Root().Children(), 1)

	assert.ErrorIs(t, tr.Move(d1, d2), types.ErrInvalidItem)

	require.NoError(t, tr.Remove(d1))
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Root().Children())

	assert.ErrorIs(t, tr.Remove(tr.Root()), types.ErrRootItem)
}

func TestWalkAndPostOrder(t *testing.T) {
	tr := sampleTree(t)

	var pre []string
	tr.Walk(tr.Root(), func(n *Node) bool {
		if !n.IsRoot() {
			pre = append(pre, n.Item.ID)
		}
		return true
	})
	assert.Equal(t, []string{"d1", "d2", "f2", "f1", "f3"}, pre)

	d1, _ := tr.FindByID("d1")
	var post []string
	for _, n := range tr.PostOrder(d1) {
		post = append(post, n.Item.ID)
	}
	assert.Equal(t, []string{"f2", "d2", "f1"}, post)
}
