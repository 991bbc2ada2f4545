package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pfs/internal/tree"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

func textFile(id, parent, name, content string) *types.Item {
	f := types.NewFile(id, parent, name, 0, time.Now())
	if content != "" {
		_ = f.SetContent(content, time.Now())
	}
	return f
}

func sample() *tree.Tree {
	tr := tree.New()
	locked := textFile("f3", "d1", "notes.txt", "invoice 7 paid")
	locked.File.Locked = true
	locked.File.PasswordDigest = "x"

	tr.Load(
		[]*types.Item{
			types.NewFolder("d1", "", "invoices", time.Now()),
			types.NewFolder("d2", "", "misc", time.Now()),
		},
		[]*types.Item{
			textFile("f1", "d1", "invoice-01.txt", "total 10"),
			textFile("f2", "d2", "Invoice.csv", ""),
			locked,
			textFile("f4", "d2", "todo.txt", "send invoice"),
			types.NewFile("f5", "", "invoice.png", 0, time.Now()),
		},
	)
	return tr
}

func ids(nodes []*tree.Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Item.ID)
	}
	return out
}

func TestSearch(t *testing.T) {
	tr := sample()

	tests := []struct {
		name  string
		query string
		mode  Mode
		want  []string
	}{
		{name: "by name in pre-order", query: "invoice", mode: ByName, want: []string{"d1", "f1", "f5"}},
		{name: "by name is case-sensitive", query: "Invoice", mode: ByName, want: []string{"f2"}},
		{name: "by content includes locked files", query: "invoice", mode: ByContent, want: []string{"f3", "f4"}},
		{name: "no match", query: "zzz", mode: ByName, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Search(tr, nil, tt.query, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSearch_Subtree(t *testing.T) {
	tr := sample()
	d2, _ := tr.FindByID("d2")
	got, err := Search(tr, d2, "txt", ByName)
	require.NoError(t, err)
	assert.Equal(t, []string{"f4"}, ids(got))
}

func TestSearch_EmptyQuery(t *testing.T) {
	_, err := Search(sample(), nil, "", ByName)
	assert.ErrorIs(t, err, types.ErrEmptyQuery)
}

func TestMatches_StopsEarly(t *testing.T) {
	tr := sample()
	var first []string
	for n := range Matches(tr, tr.Root(), "i", ByName) {
		first = append(first, n.Item.ID)
		break
	}
	assert.Equal(t, []string{"d1"}, first)

	// A fresh range traverses again from the start.
	count := 0
	for range Matches(tr, tr.Root(), "i", ByName) {
		count++
	}
	assert.Greater(t, count, 1)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("content")
	require.NoError(t, err)
	assert.Equal(t, ByContent, m)
	assert.Equal(t, "content", m.String())

	_, err = ParseMode("size")
	assert.Error(t, err)
}
