package images

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Put(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, zerolog.Nop())

	err := store.Put(context.Background(), "product-1.png", strings.NewReader("fake-png-bytes"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "product-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "fake-png-bytes", string(data))
}

func TestFileStore_Put_Overwrites(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "p.png", strings.NewReader("v1")))
	require.NoError(t, store.Put(ctx, "p.png", strings.NewReader("v2")))

	data, err := os.ReadFile(filepath.Join(dir, "p.png"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestFileStore_Put_EmptyKey(t *testing.T) {
	store := NewFileStore(t.TempDir(), zerolog.Nop())
	err := store.Put(context.Background(), "", strings.NewReader("x"))
	require.Error(t, err)
}

func TestFileStore_Put_FlattensPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, zerolog.Nop())

	err := store.Put(context.Background(), "../escape.png", strings.NewReader("x"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), string(filepath.Separator))

	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.png"))
	assert.True(t, os.IsNotExist(err))
}
