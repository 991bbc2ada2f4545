// Package session wires a store, the item tree and the engines that operate
// on it into one handle.
package session

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pfs/internal/auth"
	"github.com/mesh-intelligence/pfs/internal/backup"
	"github.com/mesh-intelligence/pfs/internal/engine"
	"github.com/mesh-intelligence/pfs/internal/memrepo"
	"github.com/mesh-intelligence/pfs/internal/tree"
	"github.com/mesh-intelligence/pfs/pkg/sqlite"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

// NewStore returns an unattached store for the named backend.
func NewStore(backend string) (types.Store, error) {
	switch backend {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendMemory:
		return memrepo.NewDetachedStore(), nil
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, fmt.Errorf("%q: %w", backend, types.ErrBackendUnknown)
	}
}

// Session owns the live tree of one attached store.
type Session struct {
	store    types.Store
	folders  types.Repository
	files    types.Repository
	replacer types.Replacer

	tree   *tree.Tree
	engine *engine.Engine
	gate   *auth.Gate

	log   logrus.FieldLogger
	now   func() time.Time
	newID func() string
	hash  auth.Hasher
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger shared by the session and its engines.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) { s.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator overrides item ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Session) { s.newID = newID }
}

// WithHasher overrides the password service.
func WithHasher(h auth.Hasher) Option {
	return func(s *Session) { s.hash = h }
}

// Open loads the tree from an attached store.
func Open(store types.Store, opts ...Option) (*Session, error) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	s := &Session{
		store: store,
		log:   l,
		now:   time.Now,
		newID: engine.NewID,
		hash:  auth.Bcrypt{Cost: auth.DefaultCost},
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.folders, err = store.Repository(types.KindFolder); err != nil {
		return nil, fmt.Errorf("opening folder repository: %w", err)
	}
	if s.files, err = store.Repository(types.KindFile); err != nil {
		return nil, fmt.Errorf("opening file repository: %w", err)
	}
	if r, ok := store.(types.Replacer); ok {
		s.replacer = r
	}

	s.tree = tree.New()
	if err := s.Reload(); err != nil {
		return nil, err
	}
	s.engine = engine.New(s.tree, s.folders, s.files,
		engine.WithLogger(s.log),
		engine.WithClock(s.now),
		engine.WithIDGenerator(s.newID),
	)
	s.engine.OnRenamed(func(id, name string) {
		s.log.WithFields(logrus.Fields{"id": id, "name": name}).Info("item renamed")
	})
	s.gate = auth.NewGate(s.files, s.hash, auth.WithLogger(s.log), auth.WithClock(s.now))
	return s, nil
}

// Tree returns the live tree.
func (s *Session) Tree() *tree.Tree { return s.tree }

// Engine returns the mutation engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Gate returns the lock gate.
func (s *Session) Gate() *auth.Gate { return s.gate }

// Reload rebuilds the tree from the repositories and drops transient state.
func (s *Session) Reload() error {
	if err := s.tree.LoadFrom(s.folders, s.files); err != nil {
		return fmt.Errorf("loading tree: %w", err)
	}
	if s.engine != nil {
		s.engine.Reset()
	}
	if s.gate != nil {
		s.gate.Forget()
	}
	s.log.WithField("items", s.tree.Len()).Debug("tree loaded")
	return nil
}

// Resolve finds a node by item ID, or else by slash path from the root.
func (s *Session) Resolve(ref string) (*tree.Node, error) {
	if n, ok := s.tree.FindByID(ref); ok {
		return n, nil
	}
	if n, ok := s.tree.FindByPath(ref); ok {
		return n, nil
	}
	return nil, fmt.Errorf("%q: %w", ref, types.ErrNotFound)
}

// Backup exports the store into dir, creating dir if needed.
func (s *Session) Backup(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup dir: %w", err)
	}
	path, err := backup.Export(s.folders, s.files, dir, s.now())
	if err != nil {
		s.log.WithError(err).Warn("backup failed")
		return "", err
	}
	s.log.WithField("path", path).Info("backup written")
	return path, nil
}

// Restore replaces the store content with the backup at path and reloads
// the tree. A payload that fails validation leaves everything untouched.
func (s *Session) Restore(path string) error {
	p, err := backup.ReadFile(path)
	if err != nil {
		return err
	}
	if err := backup.Restore(p, s.folders, s.files, s.replacer); err != nil {
		s.log.WithError(err).WithField("path", path).Warn("restore failed")
		// Mirror whatever the store now holds.
		if rerr := s.Reload(); rerr != nil {
			s.log.WithError(rerr).Warn("reload after failed restore")
		}
		return err
	}
	if err := s.Reload(); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"path":    path,
		"folders": len(p.Folders),
		"files":   len(p.Files),
	}).Info("backup restored")
	return nil
}

// Close detaches the store.
func (s *Session) Close() error {
	return s.store.Detach()
}
