package cli

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/photosafe/photosafe/internal/client/api"
	"github.com/photosafe/photosafe/internal/client/client"
	"github.com/photosafe/photosafe/internal/client/config"
	"github.com/photosafe/photosafe/internal/client/download"
	"github.com/photosafe/photosafe/internal/client/events"
	"github.com/photosafe/photosafe/internal/client/services"
	"github.com/photosafe/photosafe/internal/client/upload"
	"github.com/photosafe/photosafe/internal/logging"

	_ "modernc.org/sqlite"
)

// App wires the client components together behind the command surface.
type App struct {
	config      *config.Config
	log         logging.Logger
	db          *sql.DB
	repos       *client.Repositories
	api         *api.Client
	bus         *events.Bus
	manager     *upload.Manager
	collections services.CollectionService
	downloads   *download.Manager
}

// hashIndex adapts the files repository to the upload manager's
// duplicate lookup.
type hashIndex struct {
	repo interface {
		HasHash(ctx context.Context, collectionID int64, hash string) (bool, error)
	}
}

func (h hashIndex) Has(ctx context.Context, collectionID int64, hash string) (bool, error) {
	return h.repo.HasHash(ctx, collectionID, hash)
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		logger.Error(ctx, "initializing database", "error", err)
		return nil, err
	}

	repos := client.NewRepositories(db)

	token, err := loadToken(c)
	if err != nil {
		db.Close()
		return nil, err
	}

	masterKey, err := loadOrCreateMasterKey(masterKeyPath(c))
	if err != nil {
		db.Close()
		return nil, err
	}

	apiClient := api.New(c.APIEndpoint, token, logger)
	bus := events.NewBus()

	svc := upload.NewService(apiClient, upload.NoopThumbnailer{}, logger)
	manager := upload.NewManager(svc, nil, hashIndex{repos.Files}, bus, logger,
		upload.Options{Workers: c.Workers})

	app := &App{
		config:      c,
		log:         logger,
		db:          db,
		repos:       repos,
		api:         apiClient,
		bus:         bus,
		manager:     manager,
		collections: services.NewCollectionService(apiClient, repos.Collections, masterKey),
		downloads:   download.NewManager(apiClient, logger),
	}

	// Every uploaded file lands in the local index so later runs can
	// deduplicate and export it.
	bus.Subscribe(app.onEvent)

	return app, nil
}

func (a *App) onEvent(ev events.Event) {
	switch e := ev.(type) {
	case events.FileUploaded:
		if err := a.repos.Files.Upsert(context.Background(), e.File); err != nil {
			a.log.Warn(context.Background(), "indexing uploaded file", "title", e.File.Title, "error", err)
		}
	case events.ItemFinished:
		if e.Err != nil {
			a.log.Warn(context.Background(), "item finished", "name", e.Item.DisplayName(), "result", e.Result.String(), "error", e.Err)
		} else {
			a.log.Info(context.Background(), "item finished", "name", e.Item.DisplayName(), "result", e.Result.String())
		}
	}
}

func (a *App) Close() error {
	return a.db.Close()
}
