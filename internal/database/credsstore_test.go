package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/internal/handler"
)

func TestCredsStore_UpsertResolve(t *testing.T) {
	pool := newTestPool(t)
	store := NewCredsStore(pool)

	creds := handler.Creds{"token": "xoxb-fake", "team": "T123"}
	require.NoError(t, store.Upsert("slack:workspace-1", creds))

	got, err := store.Resolve("slack:workspace-1")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-fake", got["token"])
	assert.Equal(t, "T123", got["team"])

	// Upsert again with a changed value to exercise the ON CONFLICT path.
	require.NoError(t, store.Upsert("slack:workspace-1", handler.Creds{"token": "xoxb-rotated"}))
	got, err = store.Resolve("slack:workspace-1")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-rotated", got["token"])
	_, hasTeam := got["team"]
	assert.False(t, hasTeam, "upsert replaces the whole blob rather than merging keys")
}

func TestCredsStore_ResolveNotFound(t *testing.T) {
	pool := newTestPool(t)
	store := NewCredsStore(pool)

	_, err := store.Resolve("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}
