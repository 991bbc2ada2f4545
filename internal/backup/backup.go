// Package backup exports the whole item store to a JSON file and restores
// it from one.
//
// The payload is a single object with two arrays, "files" and "folders".
// Every record carries all item fields, password digests included.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/pfs/pkg/types"
)

// FileSuffix ends every backup file name.
const FileSuffix = "_PFS_BK.json"

// Payload is the on-disk backup format.
type Payload struct {
	Files   []*types.Item `json:"files"`
	Folders []*types.Item `json:"folders"`
}

// FileName returns the backup file name for time t.
func FileName(t time.Time) string {
	return fmt.Sprintf("%d%s", t.UnixMilli(), FileSuffix)
}

// Snapshot reads every record from the repositories.
func Snapshot(folders, files types.Repository) (*Payload, error) {
	fo, err := folders.FindAll()
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	fi, err := files.FindAll()
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	if fo == nil {
		fo = []*types.Item{}
	}
	if fi == nil {
		fi = []*types.Item{}
	}
	return &Payload{Files: fi, Folders: fo}, nil
}

// Export writes a snapshot of the repositories to a new file in dir and
// returns its path. It never overwrites: an existing file of the same name
// yields ErrBackupExists.
func Export(folders, files types.Repository, dir string, now time.Time) (string, error) {
	p, err := Snapshot(folders, files)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding backup: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	if err := writeExclusive(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// writeExclusive writes data to a temp file in the target directory, syncs
// it, then hard-links it to path. The link fails if path exists, so a
// reader never observes a partial backup and nothing is overwritten.
func writeExclusive(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".backup-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", path, types.ErrBackupExists)
		}
		return fmt.Errorf("linking backup file: %w", err)
	}
	return nil
}

// ReadFile decodes and validates the backup at path.
func ReadFile(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a payload and validates every record. Records without a
// kind take it from the array they appear in.
func Decode(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidBackup, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Payload) validate() error {
	seen := make(map[string]bool, len(p.Files)+len(p.Folders))
	check := func(kind types.Kind, items []*types.Item) error {
		for i, it := range items {
			if it == nil {
				return fmt.Errorf("%w: null %s record at %d", types.ErrInvalidBackup, kind, i)
			}
			if it.Kind == "" {
				it.Kind = kind
			}
			if it.Kind != kind {
				return fmt.Errorf("%w: %s record %s in %s list", types.ErrInvalidBackup, it.Kind, it.ID, kind)
			}
			if err := it.Validate(); err != nil {
				return fmt.Errorf("%w: record %s: %v", types.ErrInvalidBackup, it.ID, err)
			}
			it.Rederive()
			if seen[it.ID] {
				return fmt.Errorf("%w: duplicate id %s", types.ErrInvalidBackup, it.ID)
			}
			seen[it.ID] = true
		}
		return nil
	}
	if err := check(types.KindFolder, p.Folders); err != nil {
		return err
	}
	return check(types.KindFile, p.Files)
}

// Restore replaces the repositories' content with p. When replacer is not
// nil the swap is atomic. Otherwise every file, then every folder, is
// removed and the payload inserted folders first; a failure part-way leaves
// the store partially restored.
func Restore(p *Payload, folders, files types.Repository, replacer types.Replacer) error {
	ordered := parentsFirst(p.Folders)
	if replacer != nil {
		if err := replacer.ReplaceAll(ordered, p.Files); err != nil {
			return fmt.Errorf("replacing store content: %w", err)
		}
		return nil
	}

	if err := wipe(files); err != nil {
		return fmt.Errorf("removing files: %w", err)
	}
	if err := wipe(folders); err != nil {
		return fmt.Errorf("removing folders: %w", err)
	}
	for _, it := range ordered {
		if _, err := folders.Create(it); err != nil {
			return fmt.Errorf("restoring folder %s: %w", it.ID, err)
		}
	}
	for _, it := range p.Files {
		if _, err := files.Create(it); err != nil {
			return fmt.Errorf("restoring file %s: %w", it.ID, err)
		}
	}
	return nil
}

// wipe removes every record of repo, children before their parents.
func wipe(repo types.Repository) error {
	all, err := repo.FindAll()
	if err != nil {
		return err
	}
	all = parentsFirst(all)
	for i := len(all) - 1; i >= 0; i-- {
		if err := repo.RemoveByID(all[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// parentsFirst orders items so each one follows its parent when the parent
// is in the list. A parent cycle is broken at the first member reached.
func parentsFirst(folders []*types.Item) []*types.Item {
	byID := make(map[string]*types.Item, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}
	out := make([]*types.Item, 0, len(folders))
	placed := make(map[string]bool, len(folders))
	visiting := make(map[string]bool)
	var place func(f *types.Item)
	place = func(f *types.Item) {
		if placed[f.ID] || visiting[f.ID] {
			return
		}
		visiting[f.ID] = true
		if parent, ok := byID[f.ParentID]; ok {
			place(parent)
		}
		visiting[f.ID] = false
		placed[f.ID] = true
		out = append(out, f)
	}
	for _, f := range folders {
		place(f)
	}
	return out
}
