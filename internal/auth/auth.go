// Package auth implements the per-file lock state machine and the
// last-authenticated cache.
package auth

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/pfs/internal/tree"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// Hasher is the password service consumed by the Gate.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// Bcrypt hashes passwords with bcrypt.
type Bcrypt struct {
	Cost int
}

// Hash returns the bcrypt digest of secret.
func (b Bcrypt) Hash(secret string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether secret matches digest.
func (b Bcrypt) Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}

// LockRequest carries the user's answers for a lock transition.
// With KeepExisting set, Password must match the file's retained digest and
// Confirm is ignored.
type LockRequest struct {
	Password     string
	Confirm      string
	KeepExisting bool
}

// Gate guards locked files. It remembers at most one authenticated file.
type Gate struct {
	files  types.Repository
	hasher Hasher
	now    func() time.Time
	log    logrus.FieldLogger

	authenticated string
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Gate) { g.log = log }
}

// NewGate returns a Gate persisting lock changes to files.
func NewGate(files types.Repository, hasher Hasher, opts ...Option) *Gate {
	l := logrus.New()
	l.SetOutput(io.Discard)
	g := &Gate{files: files, hasher: hasher, now: time.Now, log: l}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequiresPrompt reports whether selecting item needs a password. Selecting
// any item other than the cached one clears the cache.
func (g *Gate) RequiresPrompt(item *types.Item) bool {
	if item.ID != g.authenticated {
		g.authenticated = ""
	}
	return item.IsLocked() && g.authenticated != item.ID
}

// Authenticate verifies password against a locked file and caches the file
// on success. Unlocked files authenticate trivially.
func (g *Gate) Authenticate(item *types.Item, password string) error {
	if !item.IsLocked() {
		return nil
	}
	if !g.hasher.Verify(password, item.File.PasswordDigest) {
		g.authenticated = ""
		g.log.WithField("id", item.ID).Info("authentication failed")
		return types.ErrAuthFailed
	}
	g.authenticated = item.ID
	return nil
}

// Access runs the selection protocol for item: it prompts only when
// RequiresPrompt says so, and returns ErrAuthRequired for a missing password.
func (g *Gate) Access(item *types.Item, password string) error {
	if !g.RequiresPrompt(item) {
		return nil
	}
	if password == "" {
		return types.ErrAuthRequired
	}
	return g.Authenticate(item, password)
}

// Authenticated returns the cached file ID, or "".
func (g *Gate) Authenticated() string { return g.authenticated }

// Forget clears the cache.
func (g *Gate) Forget() { g.authenticated = "" }

// Lock moves an unlocked file to Locked.
func (g *Gate) Lock(node *tree.Node, req LockRequest) error {
	item := node.Item
	if !item.IsFile() {
		return types.ErrNotAFile
	}
	if item.File.Locked {
		return types.ErrAlreadyLocked
	}
	if req.Password == "" {
		return types.ErrPasswordRequired
	}

	candidate := item.Clone(item.ID)
	if req.KeepExisting {
		if item.File.PasswordDigest == "" {
			return types.ErrNoDigest
		}
		if !g.hasher.Verify(req.Password, item.File.PasswordDigest) {
			return types.ErrAuthFailed
		}
	} else {
		if req.Password != req.Confirm {
			return types.ErrPasswordMismatch
		}
		digest, err := g.hasher.Hash(req.Password)
		if err != nil {
			return err
		}
		candidate.File.PasswordDigest = digest
	}
	candidate.File.Locked = true
	candidate.Touch(g.now())

	if err := g.commit(node, candidate, "lock"); err != nil {
		return err
	}
	if g.authenticated == item.ID {
		g.authenticated = ""
	}
	return nil
}

// Unlock moves a locked file to Unlocked. The digest is kept for a later
// re-lock. A successful unlock authenticates the file.
func (g *Gate) Unlock(node *tree.Node, password string) error {
	item := node.Item
	if !item.IsFile() {
		return types.ErrNotAFile
	}
	if !item.File.Locked {
		return types.ErrNotLocked
	}
	if !g.hasher.Verify(password, item.File.PasswordDigest) {
		g.log.WithField("id", item.ID).Info("unlock refused")
		return types.ErrAuthFailed
	}

	candidate := item.Clone(item.ID)
	candidate.File.Locked = false
	candidate.Touch(g.now())
	if err := g.commit(node, candidate, "unlock"); err != nil {
		return err
	}
	g.authenticated = item.ID
	return nil
}

func (g *Gate) commit(node *tree.Node, candidate *types.Item, op string) error {
	if err := g.files.Update(candidate); err != nil {
		g.log.WithError(err).WithFields(logrus.Fields{"op": op, "id": candidate.ID}).Warn("update failed")
		return fmt.Errorf("updating file %s: %w", candidate.ID, err)
	}
	*node.Item = *candidate
	g.log.WithFields(logrus.Fields{"op": op, "id": candidate.ID}).Debug("lock state changed")
	return nil
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	return errors.Is(err, types.ErrAuthFailed) || errors.Is(err, types.ErrAuthRequired)
}
