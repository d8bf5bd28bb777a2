package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inkpath/plotline/pkg/story"
)

// FileStore keeps each story as a JSON file named <id>.json in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store in the given directory, creating it if
// necessary.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Load retrieves a story by ID.
func (fs *FileStore) Load(ctx context.Context, id string) (*story.Story, error) {
	s, err := story.ReadFile(fs.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// Save stores a story as a JSON file.
func (fs *FileStore) Save(ctx context.Context, s *story.Story) error {
	if s.ID == "" {
		return fmt.Errorf("story ID must not be empty")
	}
	return story.WriteFile(s, fs.path(s.ID))
}

// Delete removes a story file. Missing files are not an error.
func (fs *FileStore) Delete(ctx context.Context, id string) error {
	err := os.Remove(fs.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns the IDs of all stored stories, in directory order.
func (fs *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	return ids, nil
}

// Close does nothing for file stores.
func (fs *FileStore) Close(ctx context.Context) error { return nil }

func (fs *FileStore) path(id string) string {
	// Base prevents IDs from escaping the store directory.
	return filepath.Join(fs.dir, filepath.Base(id)+".json")
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
