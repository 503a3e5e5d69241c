// Package collections persists collection records and their keys.
package collections

import (
	"context"

	"github.com/photosafe/photosafe/internal/client/models"
)

// Repository describes operations over locally known collections.
type Repository interface {
	// Upsert inserts or updates a collection by its server ID.
	Upsert(ctx context.Context, c *models.Collection) error

	// GetByName returns the collection with the given name, or
	// common.ErrNotFound.
	GetByName(ctx context.Context, name string) (*models.Collection, error)

	// GetByID returns one collection.
	GetByID(ctx context.Context, id int64) (*models.Collection, error)

	// List returns all known collections.
	List(ctx context.Context) ([]*models.Collection, error)

	// UpdateLastSyncTime advances the collection's pull high-water mark.
	UpdateLastSyncTime(ctx context.Context, id int64, t int64) error
}
