package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/common"
	"github.com/photosafe/photosafe/internal/cryptox"
)

type fakeCollectionAPI struct {
	nextID  int64
	calls   int
	lastKey []byte
	nonce   []byte
}

func (f *fakeCollectionAPI) CreateCollection(_ context.Context, _ string, encryptedKey, keyNonce []byte) (int64, error) {
	f.calls++
	f.nextID++
	f.lastKey = encryptedKey
	f.nonce = keyNonce
	return f.nextID, nil
}

type fakeCollectionRepo struct {
	byName map[string]*models.Collection
}

func newFakeCollectionRepo() *fakeCollectionRepo {
	return &fakeCollectionRepo{byName: make(map[string]*models.Collection)}
}

func (r *fakeCollectionRepo) Upsert(_ context.Context, c *models.Collection) error {
	r.byName[c.Name] = c
	return nil
}

func (r *fakeCollectionRepo) GetByName(_ context.Context, name string) (*models.Collection, error) {
	if c, ok := r.byName[name]; ok {
		return c, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeCollectionRepo) GetByID(_ context.Context, id int64) (*models.Collection, error) {
	for _, c := range r.byName {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeCollectionRepo) List(_ context.Context) ([]*models.Collection, error) {
	out := make([]*models.Collection, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCollectionRepo) UpdateLastSyncTime(_ context.Context, id int64, t int64) error {
	return nil
}

func TestGetOrCreateByName_CreatesOnce(t *testing.T) {
	api := &fakeCollectionAPI{}
	repo := newFakeCollectionRepo()
	masterKey := cryptox.NewStreamKey()

	svc := NewCollectionService(api, repo, masterKey)

	col, err := svc.GetOrCreateByName(context.Background(), "Vacation")
	require.NoError(t, err)
	assert.Equal(t, int64(1), col.ID)
	assert.Equal(t, "Vacation", col.Name)
	assert.Len(t, col.Key, cryptox.StreamKeySize)

	// The wrapped key sent to the server must unwrap back to the local key.
	unwrapped, err := cryptox.UnwrapKey(api.lastKey, api.nonce, masterKey)
	require.NoError(t, err)
	assert.Equal(t, col.Key, unwrapped)

	again, err := svc.GetOrCreateByName(context.Background(), "Vacation")
	require.NoError(t, err)
	assert.Equal(t, col.ID, again.ID)
	assert.Equal(t, 1, api.calls, "existing collection must not hit the API")
}

func TestGetOrCreateByName_DistinctNames(t *testing.T) {
	api := &fakeCollectionAPI{}
	svc := NewCollectionService(api, newFakeCollectionRepo(), cryptox.NewStreamKey())

	a, err := svc.GetOrCreateByName(context.Background(), "A")
	require.NoError(t, err)
	b, err := svc.GetOrCreateByName(context.Background(), "B")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Key, b.Key)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
