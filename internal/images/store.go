// Package images stores product images. The primary backend is S3; a local
// file-system store serves development setups and acts as the fallback when
// S3 is unavailable at startup.
package images

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Store persists product image bytes under a key.
type Store interface {
	// Put writes the image under the given key, replacing any previous content.
	Put(ctx context.Context, key string, data io.Reader) error
}

// fileStore implements Store on the local file system.
type fileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates a file-system image store rooted at dir.
func NewFileStore(dir string, logger zerolog.Logger) Store {
	return &fileStore{
		dir:    dir,
		logger: logger.With().Str("component", "file-image-store").Logger(),
	}
}

// Put writes the image to dir/key. Keys are flattened to a single path
// segment so a crafted key cannot escape the store directory.
func (s *fileStore) Put(ctx context.Context, key string, data io.Reader) error {
	if key == "" {
		return fmt.Errorf("image key is required")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	name := strings.ReplaceAll(filepath.Clean(key), string(filepath.Separator), "_")
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to create image file")
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to write image file")
		return fmt.Errorf("failed to write image file: %w", err)
	}

	s.logger.Debug().Str("key", key).Str("path", path).Msg("image stored")
	return nil
}
