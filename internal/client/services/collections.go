// Package services contains application services for the PhotoSafe client.
// This file defines the collection service: name based lookup, lazy remote
// creation and local caching of collection keys.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/client/repositories/collections"
	"github.com/photosafe/photosafe/internal/common"
	"github.com/photosafe/photosafe/internal/cryptox"
)

// CollectionAPI is the subset of the backend API the collection service
// depends on.
type CollectionAPI interface {
	CreateCollection(ctx context.Context, name string, encryptedKey, keyNonce []byte) (int64, error)
}

// CollectionService resolves collection names to collections with usable
// keys. Collections are created remotely on first use and cached locally.
type CollectionService interface {
	GetOrCreateByName(ctx context.Context, name string) (*models.Collection, error)
	List(ctx context.Context) ([]*models.Collection, error)
}

type collectionService struct {
	api       CollectionAPI
	repo      collections.Repository
	masterKey []byte
	mu        sync.Mutex
}

// NewCollectionService constructs a CollectionService bound to the given API
// client, local repository and master key. The master key wraps collection
// keys before they leave the device.
func NewCollectionService(api CollectionAPI, repo collections.Repository, masterKey []byte) CollectionService {
	return &collectionService{api: api, repo: repo, masterKey: masterKey}
}

// GetOrCreateByName returns the locally known collection with the given name.
// If none exists, a fresh collection key is generated, wrapped with the
// master key, registered with the server and persisted locally.
func (s *collectionService) GetOrCreateByName(ctx context.Context, name string) (*models.Collection, error) {
	// Serialized so concurrent callers cannot create the same name twice.
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.repo.GetByName(ctx, name)
	if err == nil {
		return col, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("looking up collection %q: %w", name, err)
	}

	key := cryptox.NewStreamKey()
	encryptedKey, nonce, err := cryptox.WrapKey(key, s.masterKey)
	if err != nil {
		return nil, fmt.Errorf("wrapping collection key: %w", err)
	}

	id, err := s.api.CreateCollection(ctx, name, encryptedKey, nonce)
	if err != nil {
		return nil, fmt.Errorf("creating collection %q: %w", name, err)
	}

	col = &models.Collection{ID: id, Name: name, Key: key}
	if err := s.repo.Upsert(ctx, col); err != nil {
		return nil, fmt.Errorf("saving collection %q: %w", name, err)
	}
	return col, nil
}

func (s *collectionService) List(ctx context.Context) ([]*models.Collection, error) {
	return s.repo.List(ctx)
}
