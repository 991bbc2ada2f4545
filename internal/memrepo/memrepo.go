// Package memrepo implements an in-memory Store. It backs the "memory"
// backend and provides failure injection for tests of all-or-nothing
// behavior.
package memrepo

import (
	"fmt"
	"sync"

	"github.com/mesh-intelligence/pfs/pkg/types"
)

// Compile-time interface checks.
var (
	_ types.Store      = (*Store)(nil)
	_ types.Replacer   = (*Store)(nil)
	_ types.Repository = (*Repository)(nil)
)

// Store holds one Repository per item kind.
type Store struct {
	mu       sync.Mutex
	attached bool
	folders  *Repository
	files    *Repository
}

// NewStore returns an attached, empty store.
func NewStore() *Store {
	return newStore(true)
}

// NewDetachedStore returns an empty store that serves nothing until Attach.
func NewDetachedStore() *Store {
	return newStore(false)
}

func newStore(attached bool) *Store {
	s := &Store{attached: attached}
	s.folders = newRepository(s, types.KindFolder)
	s.files = newRepository(s, types.KindFile)
	return s
}

// Folders returns the folder repository.
func (s *Store) Folders() *Repository { return s.folders }

// Files returns the file repository.
func (s *Store) Files() *Repository { return s.files }

// Repository returns the repository for kind.
func (s *Store) Repository(kind types.Kind) (types.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return nil, types.ErrStoreDetached
	}
	switch kind {
	case types.KindFolder:
		return s.folders, nil
	case types.KindFile:
		return s.files, nil
	default:
		return nil, types.ErrInvalidItem
	}
}

// Attach validates config and marks the store attached. Content survives a
// Detach/Attach cycle for the lifetime of the process.
func (s *Store) Attach(config types.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return types.ErrAlreadyAttached
	}
	s.attached = true
	return nil
}

// Detach marks the store detached. Idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = false
	return nil
}

// ReplaceAll swaps both repositories' content at once. Nothing changes if
// any record is invalid or an injected failure fires.
func (s *Store) ReplaceAll(folders, files []*types.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return types.ErrStoreDetached
	}
	if err := s.folders.failure(OpReplace); err != nil {
		return err
	}
	nf, err := buildRecords(types.KindFolder, folders)
	if err != nil {
		return err
	}
	nfi, err := buildRecords(types.KindFile, files)
	if err != nil {
		return err
	}
	s.folders.replace(nf)
	s.files.replace(nfi)
	return nil
}

func buildRecords(kind types.Kind, items []*types.Item) (*records, error) {
	r := newRecords()
	for _, it := range items {
		if it.Kind != kind {
			return nil, fmt.Errorf("replacing %s records: %w", kind, types.ErrInvalidItem)
		}
		if _, dup := r.byID[it.ID]; dup {
			return nil, fmt.Errorf("duplicate id %s: %w", it.ID, types.ErrInvalidID)
		}
		r.put(it.Clone(it.ID))
	}
	return r, nil
}

// Operation names used for failure injection.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpRemove  = "remove"
	OpFindAll = "find_all"
	OpReplace = "replace" // Store.ReplaceAll; inject on the folders repository.
)

type records struct {
	order []string
	byID  map[string]*types.Item
}

func newRecords() *records {
	return &records{byID: make(map[string]*types.Item)}
}

func (r *records) put(it *types.Item) {
	if _, ok := r.byID[it.ID]; !ok {
		r.order = append(r.order, it.ID)
	}
	r.byID[it.ID] = it
}

func (r *records) drop(id string) {
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Repository stores items of one kind. Records are copied on the way in and
// out so callers never share memory with the store.
type Repository struct {
	store *Store
	kind  types.Kind
	data  *records

	failMu sync.Mutex
	fail   map[string]failRule
	calls  map[string]int
}

type failRule struct {
	after int // succeed this many more times before failing
	err   error
}

func newRepository(s *Store, kind types.Kind) *Repository {
	return &Repository{
		store: s,
		kind:  kind,
		data:  newRecords(),
		fail:  make(map[string]failRule),
		calls: make(map[string]int),
	}
}

// FailOn makes op return err after it has succeeded `after` more times.
// FailOn(OpUpdate, 0, err) fails the very next update.
func (r *Repository) FailOn(op string, after int, err error) {
	r.failMu.Lock()
	defer r.failMu.Unlock()
	r.fail[op] = failRule{after: after, err: err}
}

// ClearFailures removes every injected failure.
func (r *Repository) ClearFailures() {
	r.failMu.Lock()
	defer r.failMu.Unlock()
	r.fail = make(map[string]failRule)
}

// Calls returns how many times op was invoked, failed calls included.
func (r *Repository) Calls(op string) int {
	r.failMu.Lock()
	defer r.failMu.Unlock()
	return r.calls[op]
}

// Len returns the number of stored records.
func (r *Repository) Len() int {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.data.order)
}

func (r *Repository) failure(op string) error {
	r.failMu.Lock()
	defer r.failMu.Unlock()
	r.calls[op]++
	rule, ok := r.fail[op]
	if !ok {
		return nil
	}
	if rule.after > 0 {
		rule.after--
		r.fail[op] = rule
		return nil
	}
	return rule.err
}

func (r *Repository) replace(data *records) { r.data = data }

func (r *Repository) check(op string) error {
	if !r.store.attached {
		return types.ErrStoreDetached
	}
	return r.failure(op)
}

// FindAll returns copies of every record in insertion order.
func (r *Repository) FindAll() ([]*types.Item, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.check(OpFindAll); err != nil {
		return nil, err
	}
	out := make([]*types.Item, 0, len(r.data.order))
	for _, id := range r.data.order {
		it := r.data.byID[id]
		out = append(out, it.Clone(it.ID))
	}
	return out, nil
}

// FindByID returns a copy of the record with id.
func (r *Repository) FindByID(id string) (*types.Item, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if !r.store.attached {
		return nil, types.ErrStoreDetached
	}
	if id == "" {
		return nil, types.ErrInvalidID
	}
	it, ok := r.data.byID[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return it.Clone(it.ID), nil
}

// Create stores a copy of item.
func (r *Repository) Create(item *types.Item) (*types.Item, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.check(OpCreate); err != nil {
		return nil, err
	}
	if err := r.accept(item); err != nil {
		return nil, err
	}
	if _, exists := r.data.byID[item.ID]; exists {
		return nil, fmt.Errorf("creating %s %s: %w", r.kind, item.ID, types.ErrNotPersisted)
	}
	r.data.put(item.Clone(item.ID))
	return item.Clone(item.ID), nil
}

// Update overwrites the stored record with a copy of item.
func (r *Repository) Update(item *types.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.check(OpUpdate); err != nil {
		return err
	}
	if err := r.accept(item); err != nil {
		return err
	}
	if _, exists := r.data.byID[item.ID]; !exists {
		return types.ErrNotFound
	}
	r.data.put(item.Clone(item.ID))
	return nil
}

// RemoveByID deletes the record with id.
func (r *Repository) RemoveByID(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.check(OpRemove); err != nil {
		return err
	}
	if _, exists := r.data.byID[id]; !exists {
		return types.ErrNotFound
	}
	r.data.drop(id)
	return nil
}

func (r *Repository) accept(item *types.Item) error {
	if item == nil || item.Kind != r.kind {
		return types.ErrInvalidItem
	}
	return item.Validate()
}
