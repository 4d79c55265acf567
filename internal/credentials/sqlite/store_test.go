package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subscout-dev/subscout/internal/credentials"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "credentials.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, "user-1", credentials.Credential{AccessToken: "access-1", ItemID: "item-1", UpdatedAt: ts}))

	got, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "item-1", got.ItemID)
	assert.True(t, ts.Equal(got.UpdatedAt))
}

func TestPut_Upserts(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Put(ctx, "u", credentials.Credential{AccessToken: "old", ItemID: "i1"}))
	require.NoError(t, s.Put(ctx, "u", credentials.Credential{AccessToken: "new", ItemID: "i2"}))

	got, err := s.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
	assert.Equal(t, "i2", got.ItemID)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestGet_NotFound(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestEmptyID(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.Get(context.Background(), "")
	assert.ErrorIs(t, err, credentials.ErrEmptyID)
	assert.ErrorIs(t, s.Put(context.Background(), "", credentials.Credential{}), credentials.ErrEmptyID)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t)
	require.NoError(t, s.Put(ctx, "u", credentials.Credential{AccessToken: "a"}))
	require.NoError(t, s.Close())

	// Migrations are idempotent on an existing database.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
}
