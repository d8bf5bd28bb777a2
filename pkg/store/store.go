// Package store persists stories.
//
// Two backends are provided: a directory of JSON files for local CLI use,
// and MongoDB for the hosted API. Both speak the same Store interface, and
// both round-trip the story model losslessly (the model carries JSON and
// BSON tags for exactly this reason).
package store

import (
	"context"
	"errors"

	"github.com/inkpath/plotline/pkg/story"
)

// ErrNotFound is returned when a story does not exist in the store.
var ErrNotFound = errors.New("story not found")

// Store is the persistence interface for stories.
type Store interface {
	// Load retrieves a story by ID. Returns ErrNotFound if it doesn't exist.
	Load(ctx context.Context, id string) (*story.Story, error)

	// Save stores a story, overwriting any existing story with the same ID.
	// The story must have a non-empty ID.
	Save(ctx context.Context, s *story.Story) error

	// Delete removes a story. Deleting a missing story is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored stories.
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
