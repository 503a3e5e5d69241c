// Package files is the client-side persistence layer for remote file
// records: server identity, encrypted key material and the content hash
// used for dedup.
package files

import (
	"context"

	"github.com/photosafe/photosafe/internal/client/models"
)

// Repository describes operations over locally cached remote files.
// Implementations are backed by the local SQLite database.
type Repository interface {
	// Upsert inserts or updates a file record by its server ID.
	Upsert(ctx context.Context, f *models.RemoteFile) error

	// GetByID returns one file record.
	GetByID(ctx context.Context, id int64) (*models.RemoteFile, error)

	// ListByCollection returns all files in a collection.
	ListByCollection(ctx context.Context, collectionID int64) ([]*models.RemoteFile, error)

	// HasHash reports whether a content hash already exists in the
	// collection. Drives upload dedup.
	HasHash(ctx context.Context, collectionID int64, hash string) (bool, error)

	// DeleteByIDs removes file records, e.g. after they were detached
	// from their collection.
	DeleteByIDs(ctx context.Context, ids []int64) error
}
