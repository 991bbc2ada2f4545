package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/pfs/internal/memrepo"
	"github.com/mesh-intelligence/pfs/internal/tree"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Gate, *memrepo.Store, *tree.Tree) {
	t.Helper()
	s := memrepo.NewStore()
	files := []*types.Item{
		types.NewFile("f1", "", "secret.txt", 0, now),
		types.NewFile("f2", "", "other.txt", 0, now),
	}
	require.NoError(t, s.ReplaceAll(nil, files))
	tr := tree.New()
	require.NoError(t, tr.LoadFrom(s.Folders(), s.Files()))
	g := NewGate(s.Files(), Bcrypt{Cost: bcrypt.MinCost}, WithClock(func() time.Time { return now }))
	return g, s, tr
}

func node(t *testing.T, tr *tree.Tree, id string) *tree.Node {
	t.Helper()
	n, ok := tr.FindByID(id)
	require.True(t, ok)
	return n
}

func TestBcrypt(t *testing.T) {
	h := Bcrypt{Cost: bcrypt.MinCost}
	digest, err := h.Hash("p1")
	require.NoError(t, err)
	assert.NotEqual(t, "p1", digest)
	assert.True(t, h.Verify("p1", digest))
	assert.False(t, h.Verify("p2", digest))
	assert.False(t, h.Verify("p1", "not-a-digest"))
}

func TestLockUnlock(t *testing.T) {
	g, s, tr := setup(t)
	f1 := node(t, tr, "f1")

	require.NoError(t, g.Lock(f1, LockRequest{Password: "p1", Confirm: "p1"}))
	assert.True(t, f1.Item.File.Locked)
	assert.NotEmpty(t, f1.Item.File.PasswordDigest)
	assert.Equal(t, 1, f1.Item.ChangeCounter)

	stored, err := s.Files().FindByID("f1")
	require.NoError(t, err)
	assert.True(t, stored.File.Locked)

	assert.ErrorIs(t, g.Unlock(f1, "p2"), types.ErrAuthFailed)
	assert.True(t, f1.Item.File.Locked)
	assert.Equal(t, 1, f1.Item.ChangeCounter)

	require.NoError(t, g.Unlock(f1, "p1"))
	assert.False(t, f1.Item.File.Locked)
	assert.NotEmpty(t, f1.Item.File.PasswordDigest, "digest survives unlock")
	assert.Equal(t, 2, f1.Item.ChangeCounter)
	assert.Equal(t, "f1", g.Authenticated())
}

func TestLock_Rejections(t *testing.T) {
	g, _, tr := setup(t)
	f1 := node(t, tr, "f1")

	tests := []struct {
		name    string
		req     LockRequest
		wantErr error
	}{
		{name: "empty password", req: LockRequest{}, wantErr: types.ErrPasswordRequired},
		{name: "mismatch", req: LockRequest{Password: "a", Confirm: "b"}, wantErr: types.ErrPasswordMismatch},
		{name: "keep without digest", req: LockRequest{Password: "a", KeepExisting: true}, wantErr: types.ErrNoDigest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, g.Lock(f1, tt.req), tt.wantErr)
			assert.False(t, f1.Item.File.Locked)
			assert.Equal(t, 0, f1.Item.ChangeCounter)
		})
	}

	assert.ErrorIs(t, g.Unlock(f1, "x"), types.ErrNotLocked)
	assert.ErrorIs(t, g.Lock(tr.Root(), LockRequest{Password: "a", Confirm: "a"}), types.ErrNotAFile)

	require.NoError(t, g.Lock(f1, LockRequest{Password: "a", Confirm: "a"}))
	assert.ErrorIs(t, g.Lock(f1, LockRequest{Password: "a", Confirm: "a"}), types.ErrAlreadyLocked)
}

func TestLock_KeepExisting(t *testing.T) {
	g, _, tr := setup(t)
	f1 := node(t, tr, "f1")

	require.NoError(t, g.Lock(f1, LockRequest{Password: "p1", Confirm: "p1"}))
	digest := f1.Item.File.PasswordDigest
	require.NoError(t, g.Unlock(f1, "p1"))

	assert.ErrorIs(t, g.Lock(f1, LockRequest{Password: "wrong", KeepExisting: true}), types.ErrAuthFailed)
	assert.False(t, f1.Item.File.Locked)

	require.NoError(t, g.Lock(f1, LockRequest{Password: "p1", KeepExisting: true}))
	assert.True(t, f1.Item.File.Locked)
	assert.Equal(t, digest, f1.Item.File.PasswordDigest)
	assert.Equal(t, "", g.Authenticated(), "locking drops the cached authentication")
}

func TestLock_RepositoryFailure(t *testing.T) {
	g, s, tr := setup(t)
	f1 := node(t, tr, "f1")
	boom := errors.New("boom")
	s.Files().FailOn(memrepo.OpUpdate, 0, boom)

	assert.ErrorIs(t, g.Lock(f1, LockRequest{Password: "p1", Confirm: "p1"}), boom)
	assert.False(t, f1.Item.File.Locked)
	assert.Empty(t, f1.Item.File.PasswordDigest)
}

func TestAuthenticationCache(t *testing.T) {
	g, _, tr := setup(t)
	f1 := node(t, tr, "f1")
	f2 := node(t, tr, "f2")
	require.NoError(t, g.Lock(f1, LockRequest{Password: "p1", Confirm: "p1"}))

	assert.True(t, g.RequiresPrompt(f1.Item))
	assert.ErrorIs(t, g.Access(f1.Item, ""), types.ErrAuthRequired)
	assert.ErrorIs(t, g.Access(f1.Item, "bad"), types.ErrAuthFailed)
	require.NoError(t, g.Access(f1.Item, "p1"))

	// Re-selecting the same file skips the prompt.
	assert.False(t, g.RequiresPrompt(f1.Item))
	require.NoError(t, g.Access(f1.Item, ""))

	// Selecting another file clears the cache.
	assert.False(t, g.RequiresPrompt(f2.Item))
	assert.True(t, g.RequiresPrompt(f1.Item))

	require.NoError(t, g.Authenticate(f1.Item, "p1"))
	g.Forget()
	assert.True(t, g.RequiresPrompt(f1.Item))
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(types.ErrAuthFailed))
	assert.True(t, IsAuthError(types.ErrAuthRequired))
	assert.False(t, IsAuthError(types.ErrNotFound))
}
