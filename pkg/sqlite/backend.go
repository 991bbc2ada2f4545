// Package sqlite provides the public API for the SQLite item store.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"github.com/mesh-intelligence/pfs/internal/sqlite"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

// Store is the SQLite-backed item store. It also supports atomic whole-store
// replacement.
type Store interface {
	types.Store
	types.Replacer
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "/var/lib/pfs",
//	})
//	defer backend.Detach()
func NewBackend() Store {
	return sqlite.NewBackend()
}
