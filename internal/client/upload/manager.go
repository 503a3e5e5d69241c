package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/photosafe/photosafe/internal/client/events"
	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/common"
	"github.com/photosafe/photosafe/internal/cryptox"
	"github.com/photosafe/photosafe/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Pipeline stages reported through the event bus.
const (
	StagePreparing       = "preparing"
	StageReadingMetadata = "reading metadata"
	StageUploading       = "uploading"
	StageCancelling      = "cancelling"
	StageDone            = "done"
)

const (
	defaultWorkers = 4
	// maxFileSize is the hard per-item plaintext ceiling.
	maxFileSize = 5 * 1024 * 1024 * 1024
)

// Options tunes the upload manager.
type Options struct {
	Workers     int
	MaxFileSize int64
}

func (o *Options) fill() {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = maxFileSize
	}
}

// HashIndex answers whether a content hash already exists in a
// collection. Backed by the local files repository.
type HashIndex interface {
	Has(ctx context.Context, collectionID int64, hash string) (bool, error)
}

// Summary is the outcome of one queued batch.
type Summary struct {
	Uploaded    int
	Skipped     int
	Blocked     int
	Unsupported int
	TooLarge    int
	Failed      int
}

// Manager drives a bounded worker pool over queued items. One batch at
// a time; queueing while a batch runs is a caller bug.
type Manager struct {
	svc       *Service
	extractor MetadataExtractor
	hashes    HashIndex
	bus       *events.Bus
	log       logging.Logger
	opts      Options

	mu       sync.Mutex
	queue    []models.MediaItem
	sidecars map[string]*ParsedSidecar
	seen     map[int64]map[string]struct{}
	failed   []models.MediaItem

	cancelled atomic.Bool
}

func NewManager(svc *Service, extractor MetadataExtractor, hashes HashIndex, bus *events.Bus, log logging.Logger, opts Options) *Manager {
	opts.fill()
	if extractor == nil {
		extractor = FileInfoExtractor{}
	}
	return &Manager{
		svc:       svc,
		extractor: extractor,
		hashes:    hashes,
		bus:       bus,
		log:       log.With("component", "upload-manager"),
		opts:      opts,
		sidecars:  make(map[string]*ParsedSidecar),
		seen:      make(map[int64]map[string]struct{}),
	}
}

// Cancel flags the current batch. Workers drain their in-flight item
// and stop before picking up the next one.
func (m *Manager) Cancel() {
	m.cancelled.Store(true)
}

// QueueFilesForUpload uploads assets into the collection and blocks
// until the batch drains. Sidecar JSONs are parsed first so their
// metadata is available to every worker regardless of scheduling.
func (m *Manager) QueueFilesForUpload(ctx context.Context, assets []models.LocalAsset, collection *models.Collection) (*Summary, error) {
	m.cancelled.Store(false)

	var media []models.MediaItem
	for _, a := range assets {
		if IsSidecar(a.Name) {
			sc, err := ParseSidecarJSON(a.Path)
			if err != nil {
				m.log.Warn(ctx, "skipping unreadable sidecar", "path", a.Path, "error", err)
				continue
			}
			m.mu.Lock()
			m.sidecars[SidecarKey(collection.ID, sc.Title)] = sc
			m.mu.Unlock()
			continue
		}
		media = append(media, models.MediaItem{
			LocalID:      uuid.NewString(),
			CollectionID: collection.ID,
			File:         a,
		})
	}

	m.mu.Lock()
	// A cancelled batch can leave items behind, and they belong to the
	// previous call's collection. The resume diff rediscovers anything
	// still on disk, so the new batch starts from a clean queue.
	m.queue = ClusterLivePhotos(ctx, media, m.log)
	m.mu.Unlock()

	return m.drain(ctx, collection)
}

// drain works the current queue with the configured worker count and
// blocks until it is empty or the batch is cancelled.
func (m *Manager) drain(ctx context.Context, collection *models.Collection) (*Summary, error) {
	summary := &Summary{}
	var smu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < m.opts.Workers; w++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				if m.cancelled.Load() {
					return nil
				}
				item, ok := m.pop()
				if !ok {
					return nil
				}
				result, file, err := m.processItem(gctx, item, collection)
				if err != nil && errors.Is(err, context.Canceled) {
					return err
				}
				smu.Lock()
				summary.count(result)
				smu.Unlock()

				if result == models.ResultFailed {
					m.mu.Lock()
					m.failed = append(m.failed, item)
					m.mu.Unlock()
				}
				if file != nil {
					m.bus.Publish(events.FileUploaded{Item: item, File: file})
				}
				m.bus.Publish(events.ItemFinished{Item: item, Result: result, Err: err})
			}
		})
	}
	err := g.Wait()

	m.bus.Publish(events.BatchDone{
		Uploaded: summary.Uploaded,
		Skipped:  summary.Skipped,
		Failed:   summary.Failed,
	})
	if err != nil {
		return summary, err
	}
	if m.cancelled.Load() {
		return summary, common.ErrUploadCancelled
	}
	return summary, nil
}

// RetryFailedFiles re-queues everything that failed in the previous
// batch. Terminal outcomes (blocked, unsupported, too large) are never
// retried.
func (m *Manager) RetryFailedFiles(ctx context.Context, collection *models.Collection) (*Summary, error) {
	m.cancelled.Store(false)
	m.mu.Lock()
	retry := m.failed
	m.failed = nil
	m.queue = retry
	m.mu.Unlock()
	if len(retry) == 0 {
		return &Summary{}, nil
	}
	return m.drain(ctx, collection)
}

func (m *Manager) pop() (models.MediaItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return models.MediaItem{}, false
	}
	item := m.queue[len(m.queue)-1]
	m.queue = m.queue[:len(m.queue)-1]
	return item, true
}

func (m *Manager) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.queue)
	if n < 1 {
		n = 1
	}
	return n
}

func (m *Manager) stage(item models.MediaItem, stage string) {
	m.bus.Publish(events.StageChanged{LocalID: item.LocalID, Name: item.DisplayName(), Stage: stage})
}

// processItem runs one item through the pipeline and classifies the
// outcome. Only retryable failures return ResultFailed.
func (m *Manager) processItem(ctx context.Context, item models.MediaItem, collection *models.Collection) (models.UploadResult, *models.RemoteFile, error) {
	m.stage(item, StagePreparing)

	if item.Size() > m.opts.MaxFileSize {
		return models.ResultTooLarge, nil, fmt.Errorf("%s: %w", item.DisplayName(), common.ErrFileTooLarge)
	}

	hash, err := m.itemHash(item)
	if err != nil {
		return models.ResultFailed, nil, err
	}
	dup, err := m.isDuplicate(ctx, item.CollectionID, hash)
	if err != nil {
		return models.ResultFailed, nil, err
	}
	if dup {
		m.stage(item, StageDone)
		return models.ResultSkipped, nil, nil
	}

	m.stage(item, StageReadingMetadata)
	md, err := m.extractMetadata(ctx, item)
	if err != nil {
		if errors.Is(err, common.ErrUnsupportedFile) {
			return models.ResultUnsupported, nil, err
		}
		return models.ResultFailed, nil, err
	}
	md.Hash = hash
	m.applySidecar(item, md)

	if m.cancelled.Load() {
		m.stage(item, StageCancelling)
		return models.ResultFailed, nil, common.ErrUploadCancelled
	}

	m.stage(item, StageUploading)
	file, staticThumb, err := m.svc.Process(ctx, item, collection.Key, md, m.pending())
	if err != nil {
		return m.classifyError(ctx, item, err)
	}

	m.markSeen(item.CollectionID, hash)
	m.stage(item, StageDone)
	if staticThumb {
		return models.ResultUploadedWithStaticThumbnail, file, nil
	}
	return models.ResultUploaded, file, nil
}

func (m *Manager) classifyError(ctx context.Context, item models.MediaItem, err error) (models.UploadResult, *models.RemoteFile, error) {
	switch {
	case errors.Is(err, common.ErrETagMissing):
		// Without ETags the multipart upload can never complete, so
		// retrying is pointless.
		return models.ResultBlocked, nil, err
	case errors.Is(err, common.ErrStorageQuotaExceeded):
		m.Cancel()
		return models.ResultFailed, nil, err
	case errors.Is(err, common.ErrSessionExpired):
		m.Cancel()
		return models.ResultFailed, nil, err
	default:
		m.log.Error(ctx, "upload failed", "name", item.DisplayName(), "error", err)
		return models.ResultFailed, nil, err
	}
}

// itemHash is the dedup identity. A live photo combines both halves so
// re-pairing after a rename still dedups.
func (m *Manager) itemHash(item models.MediaItem) (string, error) {
	if !item.IsLivePhoto {
		return cryptox.HashFile(item.File.Path)
	}
	img, err := cryptox.HashFile(item.LivePhoto.Image.Path)
	if err != nil {
		return "", err
	}
	vid, err := cryptox.HashFile(item.LivePhoto.Video.Path)
	if err != nil {
		return "", err
	}
	return cryptox.CombineHashes(img, vid), nil
}

func (m *Manager) isDuplicate(ctx context.Context, collectionID int64, hash string) (bool, error) {
	m.mu.Lock()
	if _, ok := m.seen[collectionID][hash]; ok {
		m.mu.Unlock()
		return true, nil
	}
	m.mu.Unlock()
	if m.hashes == nil {
		return false, nil
	}
	return m.hashes.Has(ctx, collectionID, hash)
}

func (m *Manager) markSeen(collectionID int64, hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[collectionID] == nil {
		m.seen[collectionID] = make(map[string]struct{})
	}
	m.seen[collectionID][hash] = struct{}{}
}

func (m *Manager) extractMetadata(ctx context.Context, item models.MediaItem) (*models.Metadata, error) {
	if !item.IsLivePhoto {
		return ExtractWithTimeout(ctx, m.extractor, item.File)
	}
	md, err := ExtractWithTimeout(ctx, m.extractor, item.LivePhoto.Image)
	if err != nil {
		return nil, err
	}
	md.FileType = models.FileTypeLivePhoto
	return md, nil
}

func (m *Manager) applySidecar(item models.MediaItem, md *models.Metadata) {
	name := item.File.Name
	if item.IsLivePhoto {
		name = item.LivePhoto.Image.Name
	}
	m.mu.Lock()
	sc := m.sidecars[SidecarKey(item.CollectionID, name)]
	m.mu.Unlock()
	if sc != nil {
		sc.ApplyTo(md)
	}
}

func (s *Summary) count(r models.UploadResult) {
	switch r {
	case models.ResultUploaded, models.ResultUploadedWithStaticThumbnail:
		s.Uploaded++
	case models.ResultSkipped:
		s.Skipped++
	case models.ResultBlocked:
		s.Blocked++
	case models.ResultUnsupported:
		s.Unsupported++
	case models.ResultTooLarge:
		s.TooLarge++
	default:
		s.Failed++
	}
}
