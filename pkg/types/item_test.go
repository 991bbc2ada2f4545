package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "report.txt", want: "txt"},
		{name: "archive.tar.gz", want: "gz"},
		{name: "Makefile", want: ""},
		{name: "", want: ""},
		{name: "trailing.", want: ""},
		{name: ".hidden", want: "hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseExtension(tt.name))
		})
	}
}

func TestEncodedSize(t *testing.T) {
	assert.Equal(t, int64(0), EncodedSize(""))
	// BOM (2 bytes) + 3 code units.
	assert.Equal(t, int64(8), EncodedSize("abc"))
	// A character outside the BMP takes a surrogate pair.
	assert.Equal(t, int64(6), EncodedSize("\U0001F600"))
}

func TestNewFile(t *testing.T) {
	now := time.Now()

	t.Run("text file starts with empty content", func(t *testing.T) {
		f := NewFile("id-1", "", "notes.TXT", 2, now)
		require.NotNil(t, f.File)
		assert.Equal(t, "TXT", f.File.Extension)
		require.NotNil(t, f.File.Content)
		assert.Equal(t, "", *f.File.Content)
		assert.Equal(t, 2, f.File.Importance)
		assert.Nil(t, f.Changed)
		assert.Equal(t, 0, f.ChangeCounter)
	})

	t.Run("binary file has no content", func(t *testing.T) {
		f := NewFile("id-2", "parent", "photo.png", 0, now)
		assert.Nil(t, f.File.Content)
		assert.Equal(t, "parent", f.ParentID)
	})
}

func TestItemRename(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	f := NewFile("id", "", "a.txt", 0, created)

	now := time.Now()
	f.Rename("a.csv", now)

	assert.Equal(t, "a.csv", f.Name)
	assert.Equal(t, "csv", f.File.Extension)
	assert.Equal(t, 1, f.ChangeCounter)
	require.NotNil(t, f.Changed)
	assert.Equal(t, now, *f.Changed)
	assert.Equal(t, created, f.Created, "Created must not change")
}

func TestItemSetContent(t *testing.T) {
	now := time.Now()

	t.Run("text file", func(t *testing.T) {
		f := NewFile("id", "", "a.txt", 0, now)
		require.NoError(t, f.SetContent("hi", now))
		assert.Equal(t, "hi", f.ContentText())
		assert.Equal(t, int64(6), f.File.Size)
		assert.Equal(t, 1, f.ChangeCounter)
	})

	t.Run("non-text file rejected", func(t *testing.T) {
		f := NewFile("id", "", "a.bin", 0, now)
		assert.ErrorIs(t, f.SetContent("hi", now), ErrNotTextFile)
		assert.Equal(t, 0, f.ChangeCounter)
	})

	t.Run("folder rejected", func(t *testing.T) {
		d := NewFolder("id", "", "docs", now)
		assert.ErrorIs(t, d.SetContent("hi", now), ErrNotAFile)
	})
}

func TestItemRederive(t *testing.T) {
	f := NewFile("id", "", "a.csv", 0, time.Now())
	content := "hello"
	f.File.Content = &content
	f.File.Extension = "exe"
	f.File.Size = 1

	f.Rederive()
	assert.Equal(t, "csv", f.File.Extension)
	assert.Equal(t, EncodedSize("hello"), f.File.Size)
	assert.Equal(t, 0, f.ChangeCounter)

	d := NewFolder("id", "", "docs", time.Now())
	d.Rederive()
	assert.Nil(t, d.File)
}

func TestItemCloneIsDeep(t *testing.T) {
	now := time.Now()
	f := NewFile("orig", "p", "a.txt", 3, now)
	require.NoError(t, f.SetContent("one", now))

	c := f.Clone("copy")
	require.NoError(t, c.SetContent("two", now))
	c.Rename("b.txt", now)

	assert.Equal(t, "copy", c.ID)
	assert.Equal(t, "one", f.ContentText())
	assert.Equal(t, "a.txt", f.Name)
	assert.Equal(t, 1, f.ChangeCounter)
	assert.NotSame(t, f.Changed, c.Changed)
}

func TestItemValidate(t *testing.T) {
	now := time.Now()
	locked := NewFile("id", "", "a.txt", 0, now)
	locked.File.Locked = true

	badImportance := NewFile("id", "", "a.txt", 0, now)
	badImportance.File.Importance = 5

	tests := []struct {
		name    string
		item    *Item
		wantErr error
	}{
		{name: "valid folder", item: NewFolder("id", "", "docs", now)},
		{name: "valid file", item: NewFile("id", "", "a.txt", 4, now)},
		{name: "missing id", item: NewFolder("", "", "docs", now), wantErr: ErrInvalidID},
		{name: "empty name", item: NewFolder("id", "", "", now), wantErr: ErrInvalidName},
		{name: "slash in name", item: NewFile("id", "", "a/b.txt", 0, now), wantErr: ErrInvalidName},
		{name: "locked without digest", item: locked, wantErr: ErrNoDigest},
		{name: "importance out of range", item: badImportance, wantErr: ErrInvalidImportance},
		{name: "unknown kind", item: &Item{Kind: "link", ID: "id", Name: "x"}, wantErr: ErrInvalidItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateImportance(t *testing.T) {
	for i := MinImportance; i <= MaxImportance; i++ {
		assert.NoError(t, ValidateImportance(i))
	}
	assert.ErrorIs(t, ValidateImportance(-1), ErrInvalidImportance)
	assert.ErrorIs(t, ValidateImportance(5), ErrInvalidImportance)
}
