// Package watchmappings persists watched-folder mappings and the
// per-path synced state that folder watch resumes from.
package watchmappings

import (
	"context"

	"github.com/photosafe/photosafe/internal/client/models"
)

// Repository stores watch mappings. Upsert replaces the mapping's
// synced-file list wholesale; the watch service owns the in-memory
// truth and flushes it here.
type Repository interface {
	List(ctx context.Context) ([]*models.WatchMapping, error)
	Upsert(ctx context.Context, m *models.WatchMapping) error
	Delete(ctx context.Context, folderPath string) error
}
