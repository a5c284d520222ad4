package entities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_GeneratesIDWhenAbsent(t *testing.T) {
	store := NewMemoryStore()

	entity, err := store.Create(context.Background(), KindCustomer, map[string]any{"name": "Alice"})
	require.NoError(t, err)

	id, ok := entity["id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)

	found, err := store.Find(context.Background(), KindCustomer, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", found["name"])
}

func TestCreate_ReplacesNonStringID(t *testing.T) {
	store := NewMemoryStore()

	entity, err := store.Create(context.Background(), KindCustomer, map[string]any{"id": float64(123)})
	require.NoError(t, err)

	id, ok := entity["id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)

	_, err = store.Find(context.Background(), KindCustomer, id)
	assert.NoError(t, err)
}

func TestCreate_KeepsStringID(t *testing.T) {
	store := NewMemoryStore()

	entity, err := store.Create(context.Background(), KindProduct, map[string]any{"id": "p-1"})
	require.NoError(t, err)
	assert.Equal(t, "p-1", entity["id"])
}

func TestUpdate_ShallowMergeAndNotFound(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(KindProduct, "p-1", map[string]any{"name": "Coffee", "stock": 10})

	updated, err := store.Update(context.Background(), KindProduct, "p-1", map[string]any{"stock": 3})
	require.NoError(t, err)
	assert.Equal(t, 3, updated["stock"])
	assert.Equal(t, "Coffee", updated["name"])

	_, err = store.Update(context.Background(), KindProduct, "ghost", map[string]any{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("Product")
	require.NoError(t, err)
	assert.Equal(t, KindProduct, kind)

	_, err = ParseKind("spaceship")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
