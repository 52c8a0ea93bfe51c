package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRepository_GetOrCreate_Idempotent(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewCartRepository(pool, zerolog.Nop())
	ctx := context.Background()

	userID := uuid.New()

	first, err := repo.GetOrCreateByUser(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := repo.GetOrCreateByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	sessionCart, err := repo.GetOrCreateBySession(ctx, "sess-abc")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, sessionCart.ID)

	again, err := repo.GetOrCreateBySession(ctx, "sess-abc")
	require.NoError(t, err)
	assert.Equal(t, sessionCart.ID, again.ID)
}

func TestCartRepository_GetBySession_Missing(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewCartRepository(pool, zerolog.Nop())

	cart, err := repo.GetBySession(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Nil(t, cart)
}

func TestCartRepository_UpsertItem_MergesQuantity(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewCartRepository(pool, zerolog.Nop())
	ctx := context.Background()

	p := seedProduct(t, pool, "Widget", 20.0, 100, 0)
	cart, err := repo.GetOrCreateBySession(ctx, "sess-1")
	require.NoError(t, err)

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.UpsertItem(ctx, tx, cart.ID, p.ID, 2))
	require.NoError(t, repo.UpsertItem(ctx, tx, cart.ID, p.ID, 3))
	require.NoError(t, tx.Commit(ctx))

	items, err := repo.GetItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestCartRepository_ItemLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewCartRepository(pool, zerolog.Nop())
	ctx := context.Background()

	p := seedProduct(t, pool, "Widget", 20.0, 100, 0)
	cart, err := repo.GetOrCreateBySession(ctx, "sess-2")
	require.NoError(t, err)

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.UpsertItem(ctx, tx, cart.ID, p.ID, 2))
	require.NoError(t, tx.Commit(ctx))

	items, err := repo.GetItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	updated, err := repo.UpdateItemQuantity(ctx, items[0].ID, 7)
	require.NoError(t, err)
	assert.True(t, updated)

	item, err := repo.GetItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 7, item.Quantity)

	deleted, err := repo.DeleteItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteItem(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCartRepository_DeleteCart(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewCartRepository(pool, zerolog.Nop())
	ctx := context.Background()

	p := seedProduct(t, pool, "Widget", 20.0, 100, 0)
	cart, err := repo.GetOrCreateBySession(ctx, "sess-3")
	require.NoError(t, err)

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.UpsertItem(ctx, tx, cart.ID, p.ID, 1))
	require.NoError(t, repo.DeleteCart(ctx, tx, cart.ID))
	require.NoError(t, tx.Commit(ctx))

	gone, err := repo.GetBySession(ctx, "sess-3")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
