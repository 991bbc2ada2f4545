package types

// Repository is the persistence boundary for one item kind.
// Records passed in and returned are *Item values of that kind.
type Repository interface {
	// FindAll returns every stored item of this kind, in no particular order.
	FindAll() ([]*Item, error)

	// FindByID returns the item with the given ID.
	// Returns ErrNotFound if no item exists with that ID.
	FindByID(id string) (*Item, error)

	// Create stores a new item and returns the stored record.
	// Returns ErrNotPersisted unless exactly one record was written.
	Create(item *Item) (*Item, error)

	// Update overwrites every field of an existing item.
	// Returns ErrNotFound if no item exists with that ID.
	Update(item *Item) error

	// RemoveByID deletes the item with the given ID.
	// Returns ErrNotFound if no item exists with that ID.
	RemoveByID(id string) error
}

// Store gives access to the per-kind repositories of one backend.
// Callers attach to a backend, fetch repositories, and detach when done.
type Store interface {
	// Repository returns the repository for the given kind.
	// Returns ErrStoreDetached after Detach, ErrInvalidItem for an unknown kind.
	Repository(kind Kind) (Repository, error)

	// Attach connects the Store to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error
}

// Replacer is implemented by stores that can swap their whole content in a
// single atomic step. Folders are written before files.
type Replacer interface {
	ReplaceAll(folders, files []*Item) error
}
