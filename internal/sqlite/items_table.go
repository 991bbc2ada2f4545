package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/pfs/pkg/types"
)

// Compile-time interface check: itemTable must implement Repository.
var _ types.Repository = (*itemTable)(nil)

// tableSpec describes how one item kind maps onto its SQLite table.
type tableSpec struct {
	kind    types.Kind
	table   string
	columns []string // columns[0] is the primary key
}

var commonColumns = []string{"parent_id", "name", "created_at", "changed_at", "change_counter"}

var folderSpec = tableSpec{
	kind:    types.KindFolder,
	table:   "folders",
	columns: append([]string{"folder_id"}, commonColumns...),
}

var fileSpec = tableSpec{
	kind:  types.KindFile,
	table: "files",
	columns: append(append([]string{"file_id"}, commonColumns...),
		"extension", "locked", "password_digest", "importance", "size", "content"),
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// itemTable implements types.Repository for one item kind. Each operation
// hydrates or dehydrates between SQLite rows and *types.Item.
type itemTable struct {
	backend *Backend
	spec    tableSpec

	selectSQL string
	insertSQL string
	updateSQL string
	deleteSQL string
}

func newItemTable(b *Backend, spec tableSpec) *itemTable {
	cols := strings.Join(spec.columns, ", ")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(spec.columns)), ", ")
	sets := make([]string, 0, len(spec.columns)-1)
	for _, c := range spec.columns[1:] {
		sets = append(sets, c+" = ?")
	}
	key := spec.columns[0]
	return &itemTable{
		backend:   b,
		spec:      spec,
		selectSQL: fmt.Sprintf("SELECT %s FROM %s", cols, spec.table),
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", spec.table, cols, placeholders),
		updateSQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", spec.table, strings.Join(sets, ", "), key),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE %s = ?", spec.table, key),
	}
}

// FindAll returns every row in insertion order.
func (t *itemTable) FindAll() ([]*types.Item, error) {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()
	if !t.backend.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := t.backend.db.Query(t.selectSQL + " ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.spec.table, err)
	}
	defer rows.Close()

	var out []*types.Item
	for rows.Next() {
		it, err := t.hydrate(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating %s: %w", t.spec.kind, err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", t.spec.table, err)
	}
	return out, nil
}

// FindByID returns the row with id.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (t *itemTable) FindByID(id string) (*types.Item, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()
	if !t.backend.attached {
		return nil, types.ErrStoreDetached
	}

	row := t.backend.db.QueryRow(t.selectSQL+" WHERE "+t.spec.columns[0]+" = ?", id)
	it, err := t.hydrate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting %s %s: %w", t.spec.kind, id, err)
	}
	return it, nil
}

// Create inserts item. Any failure to write exactly one row is reported
// as ErrNotPersisted.
func (t *itemTable) Create(item *types.Item) (*types.Item, error) {
	if err := t.accept(item); err != nil {
		return nil, err
	}
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	if !t.backend.attached {
		return nil, types.ErrStoreDetached
	}

	n, err := t.insert(t.backend.db, item)
	if err != nil {
		return nil, fmt.Errorf("creating %s %s: %w: %v", t.spec.kind, item.ID, types.ErrNotPersisted, err)
	}
	if n != 1 {
		return nil, fmt.Errorf("creating %s %s: %w", t.spec.kind, item.ID, types.ErrNotPersisted)
	}
	return item.Clone(item.ID), nil
}

// Update overwrites every column of an existing row.
// Returns ErrNotFound if no row has the item's ID.
func (t *itemTable) Update(item *types.Item) error {
	if err := t.accept(item); err != nil {
		return err
	}
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	if !t.backend.attached {
		return types.ErrStoreDetached
	}

	values := t.dehydrate(item)
	args := make([]any, 0, len(values))
	args = append(args, values[1:]...)
	args = append(args, values[0])
	res, err := t.backend.db.Exec(t.updateSQL, args...)
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", t.spec.kind, item.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", t.spec.kind, item.ID, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// RemoveByID deletes the row with id. Children of a removed folder go with
// it through the foreign key cascade.
func (t *itemTable) RemoveByID(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	if !t.backend.attached {
		return types.ErrStoreDetached
	}

	res, err := t.backend.db.Exec(t.deleteSQL, id)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", t.spec.kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", t.spec.kind, id, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (t *itemTable) accept(item *types.Item) error {
	if item == nil || item.Kind != t.spec.kind {
		return types.ErrInvalidItem
	}
	return item.Validate()
}

func (t *itemTable) insert(x execer, item *types.Item) (int64, error) {
	res, err := x.Exec(t.insertSQL, t.dehydrate(item)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// dehydrate returns the column values of item in spec order.
func (t *itemTable) dehydrate(it *types.Item) []any {
	values := []any{
		it.ID,
		nullString(it.ParentID),
		it.Name,
		formatTime(it.Created),
		formatTimePtr(it.Changed),
		it.ChangeCounter,
	}
	if t.spec.kind == types.KindFile {
		f := it.File
		var content sql.NullString
		if f.Content != nil {
			content = sql.NullString{String: *f.Content, Valid: true}
		}
		values = append(values,
			f.Extension,
			f.Locked,
			nullString(f.PasswordDigest),
			f.Importance,
			f.Size,
			content,
		)
	}
	return values
}

// hydrate scans one row in spec order into an Item.
func (t *itemTable) hydrate(row scanner) (*types.Item, error) {
	it := &types.Item{Kind: t.spec.kind}
	var (
		parent, changed sql.NullString
		digest, content sql.NullString
		created         string
		attrs           types.FileAttrs
	)
	dest := []any{&it.ID, &parent, &it.Name, &created, &changed, &it.ChangeCounter}
	if t.spec.kind == types.KindFile {
		dest = append(dest, &attrs.Extension, &attrs.Locked, &digest, &attrs.Importance, &attrs.Size, &content)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	it.ParentID = parent.String
	var err error
	if it.Created, err = parseTime(created); err != nil {
		return nil, err
	}
	if changed.Valid {
		ts, err := parseTime(changed.String)
		if err != nil {
			return nil, err
		}
		it.Changed = &ts
	}
	if t.spec.kind == types.KindFile {
		attrs.PasswordDigest = digest.String
		if content.Valid {
			c := content.String
			attrs.Content = &c
		}
		it.File = &attrs
	}
	return it, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return ts, nil
}
