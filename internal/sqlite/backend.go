// Package sqlite implements the SQLite storage backend for the item store.
// Folders and files live in two tables of a single database file, pfs.db,
// under the configured data directory.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/pfs/pkg/types"
)

// DBFile is the database file name inside DataDir.
const DBFile = "pfs.db"

// Compile-time interface checks.
var (
	_ types.Store    = (*Backend)(nil)
	_ types.Replacer = (*Backend)(nil)
)

// Backend implements types.Store on SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[types.Kind]*itemTable
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{
		tables: make(map[types.Kind]*itemTable),
	}
}

// Repository returns the repository for kind.
// Returns ErrStoreDetached if the backend is not attached.
func (b *Backend) Repository(kind types.Kind) (types.Repository, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	t, ok := b.tables[kind]
	if !ok {
		return nil, types.ErrInvalidItem
	}
	return t, nil
}

// Attach opens (or creates) the database under config.DataDir and applies
// the schema. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dsn := "file:" + filepath.Join(dataDir, DBFile) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps pragmas and transactions on the same handle.
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.attached = true
	b.tables[types.KindFolder] = newItemTable(b, folderSpec)
	b.tables[types.KindFile] = newItemTable(b, fileSpec)
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	b.tables = make(map[types.Kind]*itemTable)
	return nil
}

// ReplaceAll deletes every row and inserts folders then files, in one
// transaction. Foreign keys are checked at commit, so folders may arrive in
// any order; a dangling parent reference aborts the whole replacement.
func (b *Backend) ReplaceAll(folders, files []*types.Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA defer_foreign_keys = ON"); err != nil {
		return fmt.Errorf("deferring foreign keys: %w", err)
	}
	// Files first; deleting folders would cascade into them anyway.
	for _, stmt := range []string{"DELETE FROM files", "DELETE FROM folders"} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("clearing tables: %w", err)
		}
	}

	for _, batch := range []struct {
		table *itemTable
		items []*types.Item
	}{
		{b.tables[types.KindFolder], folders},
		{b.tables[types.KindFile], files},
	} {
		for _, it := range batch.items {
			if err := batch.table.accept(it); err != nil {
				return fmt.Errorf("replacing %s records: %w", batch.table.spec.kind, err)
			}
			if _, err := batch.table.insert(tx, it); err != nil {
				return fmt.Errorf("inserting %s %s: %w", it.Kind, it.ID, err)
			}
		}
	}

	// A deferred violation would fail COMMIT and leave the transaction open,
	// so check explicitly while rollback is still possible.
	if err := foreignKeyCheck(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing replacement: %w", err)
	}
	return nil
}

func foreignKeyCheck(tx *sql.Tx) error {
	rows, err := tx.Query("PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("checking foreign keys: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		var table, parent string
		var rowid sql.NullInt64
		var fkid int
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("reading foreign key violation: %w", err)
		}
		return fmt.Errorf("%s row %d references a missing %s row: %w",
			table, rowid.Int64, parent, types.ErrInvalidItem)
	}
	return rows.Err()
}
