package upload

import (
	"context"
	"sync"
	"testing"

	"github.com/photosafe/photosafe/internal/client/events"
	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/common"
	"github.com/photosafe/photosafe/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(f *fakeBackend, opts Options) (*Manager, *events.Bus) {
	bus := events.NewBus()
	svc := NewService(f, nil, testLogger())
	return NewManager(svc, nil, nil, bus, testLogger(), opts), bus
}

func testCollection() *models.Collection {
	return &models.Collection{ID: 1, Name: "album", Key: cryptox.NewStreamKey()}
}

func TestManager_UploadsBatch(t *testing.T) {
	f := newFakeBackend()
	m, bus := newTestManager(f, Options{Workers: 2})

	var mu sync.Mutex
	var finished []models.UploadResult
	bus.Subscribe(func(ev events.Event) {
		if fin, ok := ev.(events.ItemFinished); ok {
			mu.Lock()
			finished = append(finished, fin.Result)
			mu.Unlock()
		}
	})

	dir := t.TempDir()
	assets := []models.LocalAsset{
		writeAsset(t, dir, "a.jpg", []byte("aaa")),
		writeAsset(t, dir, "b.png", []byte("bbb")),
	}
	summary, err := m.QueueFilesForUpload(context.Background(), assets, testCollection())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Uploaded)
	assert.Len(t, f.created, 2)
	assert.Len(t, finished, 2)
}

func TestManager_DedupsWithinBatch(t *testing.T) {
	f := newFakeBackend()
	m, _ := newTestManager(f, Options{Workers: 1})

	dir := t.TempDir()
	assets := []models.LocalAsset{
		writeAsset(t, dir, "a.jpg", []byte("same-bytes")),
		writeAsset(t, dir, "copy-of-a.jpg", []byte("same-bytes")),
	}
	summary, err := m.QueueFilesForUpload(context.Background(), assets, testCollection())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, f.created, 1)
}

type staticIndex struct{ hashes map[string]bool }

func (s staticIndex) Has(ctx context.Context, collectionID int64, hash string) (bool, error) {
	return s.hashes[hash], nil
}

func TestManager_DedupsAgainstExisting(t *testing.T) {
	f := newFakeBackend()
	dir := t.TempDir()
	a := writeAsset(t, dir, "a.jpg", []byte("known"))

	hash, err := cryptox.HashFile(a.Path)
	require.NoError(t, err)

	bus := events.NewBus()
	svc := NewService(f, nil, testLogger())
	m := NewManager(svc, nil, staticIndex{hashes: map[string]bool{hash: true}}, bus, testLogger(), Options{Workers: 1})

	summary, err := m.QueueFilesForUpload(context.Background(), []models.LocalAsset{a}, testCollection())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, f.created)
}

func TestManager_TooLarge(t *testing.T) {
	f := newFakeBackend()
	m, _ := newTestManager(f, Options{Workers: 1, MaxFileSize: 10})

	dir := t.TempDir()
	assets := []models.LocalAsset{writeAsset(t, dir, "big.jpg", make([]byte, 11))}
	summary, err := m.QueueFilesForUpload(context.Background(), assets, testCollection())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TooLarge)
	assert.Empty(t, f.created)
}

func TestManager_UnsupportedFile(t *testing.T) {
	f := newFakeBackend()
	m, _ := newTestManager(f, Options{Workers: 1})

	dir := t.TempDir()
	assets := []models.LocalAsset{writeAsset(t, dir, "notes.txt", []byte("text"))}
	summary, err := m.QueueFilesForUpload(context.Background(), assets, testCollection())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unsupported)
	assert.Empty(t, f.created)
}

func TestManager_SidecarOverridesMetadata(t *testing.T) {
	f := newFakeBackend()
	m, _ := newTestManager(f, Options{Workers: 1})
	col := testCollection()

	dir := t.TempDir()
	assets := []models.LocalAsset{
		writeAsset(t, dir, "IMG_1.jpg", []byte("pixels")),
		writeAsset(t, dir, "IMG_1.jpg.json", []byte(`{
			"title": "IMG_1.jpg",
			"photoTakenTime": {"timestamp": "1600000000"}
		}`)),
	}
	summary, err := m.QueueFilesForUpload(context.Background(), assets, col)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Uploaded)
	require.Len(t, f.created, 1)

	req := f.created[0]
	fileKey, err := cryptox.UnwrapKey(req.EncryptedKey, req.KeyDecryptionNonce, col.Key)
	require.NoError(t, err)
	mdPlain, err := cryptox.DecryptBytes(req.EncryptedMetadata, req.MetadataDecryptionHeader, fileKey)
	require.NoError(t, err)
	assert.Contains(t, string(mdPlain), `"creationTime":1600000000000000`)
}

func TestManager_ClustersLivePhotosInQueue(t *testing.T) {
	f := newFakeBackend()
	m, bus := newTestManager(f, Options{Workers: 1})

	var uploaded []models.MediaItem
	bus.Subscribe(func(ev events.Event) {
		if fu, ok := ev.(events.FileUploaded); ok {
			uploaded = append(uploaded, fu.Item)
		}
	})

	dir := t.TempDir()
	assets := []models.LocalAsset{
		writeAsset(t, dir, "IMG_2.HEIC", []byte("img")),
		writeAsset(t, dir, "IMG_2.MOV", []byte("vid")),
	}
	summary, err := m.QueueFilesForUpload(context.Background(), assets, testCollection())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Uploaded)
	require.Len(t, uploaded, 1)
	assert.True(t, uploaded[0].IsLivePhoto)
}

func TestManager_RetryFailedFiles(t *testing.T) {
	f := newFakeBackend()
	f.putErrs = 1 // first PutObject fails, everything after succeeds
	m, _ := newTestManager(f, Options{Workers: 1})
	col := testCollection()

	dir := t.TempDir()
	assets := []models.LocalAsset{writeAsset(t, dir, "a.jpg", []byte("x"))}

	summary, err := m.QueueFilesForUpload(context.Background(), assets, col)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	summary, err = m.RetryFailedFiles(context.Background(), col)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Uploaded)

	// Nothing left to retry.
	summary, err = m.RetryFailedFiles(context.Background(), col)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Uploaded+summary.Failed)
}

func TestManager_BlockedOnMissingETag(t *testing.T) {
	f := newFakeBackend()
	f.noETag = true
	m, _ := newTestManager(f, Options{Workers: 1})

	dir := t.TempDir()
	assets := []models.LocalAsset{writeAsset(t, dir, "a.jpg", []byte("x"))}
	summary, err := m.QueueFilesForUpload(context.Background(), assets, testCollection())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Blocked)

	// Blocked items are terminal: retry queue stays empty.
	summary, err = m.RetryFailedFiles(context.Background(), testCollection())
	require.NoError(t, err)
	assert.Zero(t, summary.Blocked+summary.Failed+summary.Uploaded)
}

func TestManager_CancelStopsBatch(t *testing.T) {
	f := newFakeBackend()
	bus := events.NewBus()
	svc := NewService(f, nil, testLogger())
	m := NewManager(svc, nil, nil, bus, testLogger(), Options{Workers: 1})

	// Cancel as soon as the first item starts uploading.
	bus.Subscribe(func(ev events.Event) {
		if sc, ok := ev.(events.StageChanged); ok && sc.Stage == StageReadingMetadata {
			m.Cancel()
		}
	})

	dir := t.TempDir()
	assets := []models.LocalAsset{
		writeAsset(t, dir, "a.jpg", []byte("a")),
		writeAsset(t, dir, "b.jpg", []byte("b")),
	}
	summary, err := m.QueueFilesForUpload(context.Background(), assets, testCollection())
	require.ErrorIs(t, err, common.ErrUploadCancelled)
	assert.Less(t, summary.Uploaded, 2)
}

func TestManager_CancelledBatchDoesNotLeakIntoNext(t *testing.T) {
	f := newFakeBackend()
	bus := events.NewBus()
	svc := NewService(f, nil, testLogger())
	m := NewManager(svc, nil, nil, bus, testLogger(), Options{Workers: 1})

	first := &models.Collection{ID: 1, Name: "first", Key: cryptox.NewStreamKey()}
	second := &models.Collection{ID: 2, Name: "second", Key: cryptox.NewStreamKey()}

	// Cancel while the first item is mid-flight so the second stays
	// queued when the batch returns.
	var once sync.Once
	bus.Subscribe(func(ev events.Event) {
		if sc, ok := ev.(events.StageChanged); ok && sc.Stage == StageReadingMetadata {
			once.Do(m.Cancel)
		}
	})

	dir := t.TempDir()
	_, err := m.QueueFilesForUpload(context.Background(), []models.LocalAsset{
		writeAsset(t, dir, "a.jpg", []byte("a")),
		writeAsset(t, dir, "b.jpg", []byte("b")),
	}, first)
	require.ErrorIs(t, err, common.ErrUploadCancelled)

	summary, err := m.QueueFilesForUpload(context.Background(), []models.LocalAsset{
		writeAsset(t, dir, "c.jpg", []byte("c")),
	}, second)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Uploaded, "leftovers from the cancelled batch must not ride along")

	// Every created record's file key must unwrap with its own
	// collection's key; a stale item keyed with the wrong collection
	// would be permanently undecryptable.
	keys := map[int64][]byte{first.ID: first.Key, second.ID: second.Key}
	var forSecond int
	for _, req := range f.created {
		if req.CollectionID == second.ID {
			forSecond++
		}
		_, err := cryptox.UnwrapKey(req.EncryptedKey, req.KeyDecryptionNonce, keys[req.CollectionID])
		require.NoError(t, err, "collection %d record wrapped with a foreign key", req.CollectionID)
	}
	assert.Equal(t, 1, forSecond)
}
