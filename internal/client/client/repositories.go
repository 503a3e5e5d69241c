package client

import (
	"database/sql"

	"github.com/photosafe/photosafe/internal/client/repositories/collections"
	"github.com/photosafe/photosafe/internal/client/repositories/files"
	"github.com/photosafe/photosafe/internal/client/repositories/watchmappings"
)

// Repositories bundles the repository set backed by one local database.
type Repositories struct {
	Files         files.Repository
	Collections   collections.Repository
	WatchMappings watchmappings.Repository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Files:         files.NewSQLiteRepository(db),
		Collections:   collections.NewSQLiteRepository(db),
		WatchMappings: watchmappings.NewSQLiteRepository(db),
	}
}
