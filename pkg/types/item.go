package types

import (
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
)

// Kind distinguishes the two item variants.
type Kind string

// Item kinds.
const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
)

// Importance bounds for files.
const (
	MinImportance = 0
	MaxImportance = 4
)

// textExtensions lists the extensions whose files carry editable text content.
var textExtensions = map[string]bool{
	"txt": true,
	"csv": true,
}

// Item is a node of the user's file hierarchy: a Folder or a File.
// ParentID is empty for root-level items. The synthetic tree root has an
// empty ID and is never persisted.
type Item struct {
	Kind          Kind       `json:"kind"`
	ID            string     `json:"id"`
	ParentID      string     `json:"parent_id,omitempty"`
	Name          string     `json:"name"`
	Created       time.Time  `json:"created"`
	Changed       *time.Time `json:"changed"`
	ChangeCounter int        `json:"change_counter"`
	File          *FileAttrs `json:"file,omitempty"` // Set iff Kind is KindFile.
}

// FileAttrs holds the File-only part of an Item.
type FileAttrs struct {
	Extension      string  `json:"extension"`
	Locked         bool    `json:"locked"`
	PasswordDigest string  `json:"password_digest,omitempty"`
	Importance     int     `json:"importance"`
	Size           int64   `json:"size"`
	Content        *string `json:"content"` // nil for non-text file types.
}

// NewFolder returns a folder with creation defaults.
func NewFolder(id, parentID, name string, now time.Time) *Item {
	return &Item{
		Kind:     KindFolder,
		ID:       id,
		ParentID: parentID,
		Name:     name,
		Created:  now,
	}
}

// NewFile returns an unlocked file with creation defaults. Text file types
// start with empty content; other types have no content.
func NewFile(id, parentID, name string, importance int, now time.Time) *Item {
	ext := ParseExtension(name)
	attrs := &FileAttrs{
		Extension:  ext,
		Importance: importance,
	}
	if IsTextExtension(ext) {
		empty := ""
		attrs.Content = &empty
	}
	return &Item{
		Kind:     KindFile,
		ID:       id,
		ParentID: parentID,
		Name:     name,
		Created:  now,
		File:     attrs,
	}
}

// IsFile reports whether the item is a File.
func (it *Item) IsFile() bool { return it.Kind == KindFile }

// IsFolder reports whether the item is a Folder.
func (it *Item) IsFolder() bool { return it.Kind == KindFolder }

// IsLocked reports whether the item is a locked File.
func (it *Item) IsLocked() bool { return it.IsFile() && it.File.Locked }

// Clone returns a deep copy of the item carrying the given ID.
// Pass the item's own ID to build a throwaway candidate for validation.
func (it *Item) Clone(id string) *Item {
	c := *it
	c.ID = id
	if it.Changed != nil {
		changed := *it.Changed
		c.Changed = &changed
	}
	if it.File != nil {
		attrs := *it.File
		if it.File.Content != nil {
			content := *it.File.Content
			attrs.Content = &content
		}
		c.File = &attrs
	}
	return &c
}

// Touch records a mutation: bumps the change counter and sets Changed.
func (it *Item) Touch(now time.Time) {
	it.ChangeCounter++
	it.Changed = &now
}

// SetName renames the item in place. For files the extension is recomputed.
// SetName does not touch the change counter; see Rename.
func (it *Item) SetName(name string) {
	it.Name = name
	if it.IsFile() {
		it.File.Extension = ParseExtension(name)
	}
}

// Rename sets the name and records the mutation.
func (it *Item) Rename(name string, now time.Time) {
	it.SetName(name)
	it.Touch(now)
}

// SetContent replaces the text content of a text file, recomputes its size
// and records the mutation. Returns ErrNotAFile or ErrNotTextFile.
func (it *Item) SetContent(content string, now time.Time) error {
	if !it.IsFile() {
		return ErrNotAFile
	}
	if !IsTextExtension(it.File.Extension) {
		return ErrNotTextFile
	}
	it.File.Content = &content
	it.File.Size = EncodedSize(content)
	it.Touch(now)
	return nil
}

// Rederive recomputes the attributes of a file that follow from its name
// and content: the extension, the size, and whether content is kept at all.
// Folders are left alone.
func (it *Item) Rederive() {
	if !it.IsFile() || it.File == nil {
		return
	}
	it.File.Extension = ParseExtension(it.Name)
	if !IsTextExtension(it.File.Extension) {
		it.File.Content = nil
	} else if it.File.Content == nil {
		empty := ""
		it.File.Content = &empty
	}
	it.File.Size = EncodedSize(it.ContentText())
}

// ContentText returns the file content, or "" when absent.
func (it *Item) ContentText() string {
	if !it.IsFile() || it.File.Content == nil {
		return ""
	}
	return *it.File.Content
}

// Validate checks the structural invariants of a stored item.
func (it *Item) Validate() error {
	if it.ID == "" {
		return ErrInvalidID
	}
	if err := ValidateName(it.Name); err != nil {
		return err
	}
	switch it.Kind {
	case KindFolder:
		if it.File != nil {
			return ErrInvalidItem
		}
	case KindFile:
		if it.File == nil {
			return ErrInvalidItem
		}
		if err := ValidateImportance(it.File.Importance); err != nil {
			return err
		}
		if it.File.Locked && it.File.PasswordDigest == "" {
			return ErrNoDigest
		}
	default:
		return ErrInvalidItem
	}
	return nil
}

// PathSeparator separates names in an item path. It cannot appear in a name.
const PathSeparator = "/"

// ValidateName rejects empty names and names that contain PathSeparator.
func ValidateName(name string) error {
	if name == "" || strings.Contains(name, PathSeparator) {
		return ErrInvalidName
	}
	return nil
}

// ValidateImportance rejects values outside [MinImportance, MaxImportance].
func ValidateImportance(importance int) error {
	if importance < MinImportance || importance > MaxImportance {
		return ErrInvalidImportance
	}
	return nil
}

// ParseExtension returns the substring after the last dot of name, or ""
// when name has no dot.
func ParseExtension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i+1:]
}

// IsTextExtension reports whether files with ext hold editable text.
func IsTextExtension(ext string) bool {
	return textExtensions[strings.ToLower(ext)]
}

// EncodedSize returns the byte length of text encoded as UTF-16 with a
// byte-order mark. Empty text has size 0.
func EncodedSize(text string) int64 {
	if text == "" {
		return 0
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	b, err := enc.String(text)
	if err != nil {
		// The encoder substitutes invalid UTF-8, so this is not expected.
		return int64(2 * (len([]rune(text)) + 1))
	}
	return int64(len(b))
}
