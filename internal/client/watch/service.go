package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/photosafe/photosafe/internal/client/events"
	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/client/upload"
	"github.com/photosafe/photosafe/internal/common"
	"github.com/photosafe/photosafe/internal/filex"
	"github.com/photosafe/photosafe/internal/logging"
)

// debounceInterval is how long the scheduler waits after the last
// filesystem event before it starts working the queue. Bulk copies land
// as one batch instead of many.
const defaultDebounce = 300 * time.Millisecond

// UploadRunner is the slice of the upload manager the service drives.
type UploadRunner interface {
	QueueFilesForUpload(ctx context.Context, assets []models.LocalAsset, collection *models.Collection) (*upload.Summary, error)
	Cancel()
}

// CollectionResolver maps collection names to collections, creating
// them on first use.
type CollectionResolver interface {
	GetOrCreateByName(ctx context.Context, name string) (*models.Collection, error)
}

// MappingStore persists watch mappings and their synced-file state.
type MappingStore interface {
	List(ctx context.Context) ([]*models.WatchMapping, error)
	Upsert(ctx context.Context, m *models.WatchMapping) error
	Delete(ctx context.Context, folderPath string) error
}

// Remover detaches remote files from collections.
type Remover interface {
	RemoveFromCollection(ctx context.Context, collectionID int64, fileIDs []int64) error
}

// syncEvent is one unit of queued work: paths to upload into or trash
// from one collection.
type syncEvent struct {
	trash          bool
	dirTrash       bool
	mapping        string // mapping folder path
	collectionName string
	paths          []string
}

// Service owns the watcher, the event queue and the single scheduler
// goroutine that works it.
type Service struct {
	watcher     *Watcher
	runner      UploadRunner
	collections CollectionResolver
	store       MappingStore
	remover     Remover
	bus         *events.Bus
	log         logging.Logger
	debounce    time.Duration

	mu       sync.Mutex
	mappings map[string]*models.WatchMapping // by folder path
	queue    []syncEvent
	paused   bool
	lastEv   time.Time

	wake    chan struct{}
	persist chan struct{}
}

func NewService(watcher *Watcher, runner UploadRunner, collections CollectionResolver, store MappingStore, remover Remover, bus *events.Bus, log logging.Logger) *Service {
	s := &Service{
		watcher:     watcher,
		runner:      runner,
		collections: collections,
		store:       store,
		remover:     remover,
		bus:         bus,
		log:         log.With("component", "watch"),
		debounce:    defaultDebounce,
		mappings:    make(map[string]*models.WatchMapping),
		wake:        make(chan struct{}, 1),
		persist:     make(chan struct{}, 1),
	}
	bus.Subscribe(s.onUploadEvent)
	return s
}

// Run loads persisted mappings, replays any offline changes and then
// follows filesystem events until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	stored, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("loading watch mappings: %w", err)
	}
	for _, m := range stored {
		if err := s.watcher.AddRoot(m.FolderPath); err != nil {
			s.log.Warn(ctx, "cannot watch folder, skipping", "path", m.FolderPath, "error", err)
			continue
		}
		s.mu.Lock()
		s.mappings[m.FolderPath] = m
		s.mu.Unlock()
		s.enqueueDiff(ctx, m)
	}

	go s.persistLoop(ctx)
	go s.pumpEvents(ctx)
	s.schedule(ctx)
	return ctx.Err()
}

// AddMapping starts watching a folder and syncs its current contents.
func (s *Service) AddMapping(ctx context.Context, rootName, folderPath string, strategy models.UploadStrategy) error {
	abs, err := filepath.Abs(folderPath)
	if err != nil {
		return err
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a watchable directory: %w", abs, common.ErrNotFound)
	}

	s.mu.Lock()
	if _, exists := s.mappings[abs]; exists {
		s.mu.Unlock()
		return fmt.Errorf("folder %s is already watched", abs)
	}
	m := &models.WatchMapping{RootName: rootName, FolderPath: abs, Strategy: strategy}
	s.mappings[abs] = m
	s.mu.Unlock()

	if err := s.store.Upsert(ctx, m); err != nil {
		return err
	}
	if err := s.watcher.AddRoot(abs); err != nil {
		return err
	}
	s.enqueueDiff(ctx, m)
	return nil
}

// RemoveMapping stops watching a folder. Already-uploaded files stay in
// their collections.
func (s *Service) RemoveMapping(ctx context.Context, folderPath string) error {
	abs, err := filepath.Abs(folderPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	_, exists := s.mappings[abs]
	delete(s.mappings, abs)
	// Drop queued work for the removed mapping.
	kept := s.queue[:0]
	for _, ev := range s.queue {
		if ev.mapping != abs {
			kept = append(kept, ev)
		}
	}
	s.queue = kept
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("folder %s is not watched: %w", abs, common.ErrNotFound)
	}
	s.watcher.RemoveRoot(abs)
	return s.store.Delete(ctx, abs)
}

// Mappings returns a snapshot of the watched folders.
func (s *Service) Mappings() []*models.WatchMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.WatchMapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		out = append(out, m)
	}
	return out
}

// Pause stops queue processing and cancels the in-flight batch.
func (s *Service) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	s.runner.Cancel()
}

// Resume re-diffs every mapping against disk, picking up changes that
// happened while paused, then works the queue again.
func (s *Service) Resume(ctx context.Context) {
	s.mu.Lock()
	s.paused = false
	mappings := make([]*models.WatchMapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		mappings = append(mappings, m)
	}
	s.mu.Unlock()
	for _, m := range mappings {
		s.enqueueDiff(ctx, m)
	}
}

// collectionNameFor decides which collection a path belongs to under
// the mapping's strategy.
func collectionNameFor(m *models.WatchMapping, path string) string {
	if m.Strategy != models.StrategyCollectionPerFolder {
		return m.RootName
	}
	rel, err := filepath.Rel(m.FolderPath, path)
	if err != nil {
		return m.RootName
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		// Directly under the root.
		return m.RootName
	}
	return parts[0]
}

// enqueueDiff diffs disk against the mapping's synced state and queues
// uploads for new files and trashes for vanished ones.
func (s *Service) enqueueDiff(ctx context.Context, m *models.WatchMapping) {
	onDisk, err := filex.ListFiles(m.FolderPath)
	if err != nil {
		s.log.Warn(ctx, "cannot list watched folder", "path", m.FolderPath, "error", err)
		return
	}
	diskSet := make(map[string]struct{}, len(onDisk))
	for _, p := range onDisk {
		diskSet[p] = struct{}{}
	}
	synced := m.SyncedPaths()

	var toUpload, toTrash []string
	for _, p := range onDisk {
		if _, ok := synced[p]; !ok {
			toUpload = append(toUpload, p)
		}
	}
	for p := range synced {
		if _, ok := diskSet[p]; !ok {
			toTrash = append(toTrash, p)
		}
	}

	for _, p := range toUpload {
		s.enqueue(syncEvent{mapping: m.FolderPath, collectionName: collectionNameFor(m, p), paths: []string{p}})
	}
	for _, p := range toTrash {
		s.enqueue(syncEvent{trash: true, mapping: m.FolderPath, collectionName: collectionNameFor(m, p), paths: []string{p}})
	}
}

func (s *Service) enqueue(ev syncEvent) {
	s.mu.Lock()
	if ev.dirTrash {
		// A trashed directory supersedes any queued work underneath it.
		prefix := ev.paths[0] + string(filepath.Separator)
		kept := s.queue[:0]
		for _, q := range s.queue {
			if len(q.paths) == 1 && strings.HasPrefix(q.paths[0], prefix) {
				continue
			}
			kept = append(kept, q)
		}
		s.queue = append([]syncEvent{ev}, kept...)
	} else {
		s.queue = append(s.queue, ev)
	}
	s.lastEv = time.Now()
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pumpEvents converts raw filesystem events into queued sync work.
func (s *Service) pumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-s.watcher.Errors():
			if !ok {
				return
			}
			s.log.Warn(ctx, "watcher error", "error", err)
		case ev, ok := <-s.watcher.Events():
			if !ok {
				return
			}
			s.mu.Lock()
			m := s.mappings[ev.Root]
			s.mu.Unlock()
			if m == nil {
				continue
			}
			switch {
			case ev.Op == OpCreate:
				s.enqueue(syncEvent{mapping: m.FolderPath, collectionName: collectionNameFor(m, ev.Path), paths: []string{ev.Path}})
			case ev.Dir:
				s.enqueue(syncEvent{trash: true, dirTrash: true, mapping: m.FolderPath, collectionName: collectionNameFor(m, ev.Path), paths: []string{ev.Path}})
			default:
				s.enqueue(syncEvent{trash: true, mapping: m.FolderPath, collectionName: collectionNameFor(m, ev.Path), paths: []string{ev.Path}})
			}
		}
	}
}

// schedule is the single worker loop: wait for a wakeup, let events
// settle, then drain the queue one clubbed batch at a time.
func (s *Service) schedule(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			wait := s.debounce - time.Since(s.lastEv)
			s.mu.Unlock()
			if wait <= 0 {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}

		for {
			s.mu.Lock()
			if s.paused || len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.popClubbed()
			s.mu.Unlock()

			if err := s.process(ctx, ev); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				s.log.Error(ctx, "sync event failed", "collection", ev.collectionName, "error", err)
			}
		}
	}
}

// popClubbed removes the head event merged with the adjacent run of
// events of the same kind and collection. Clubbing stops at the first
// differing event so create, trash, re-create of one path keeps its
// order. Caller holds the lock.
func (s *Service) popClubbed() syncEvent {
	head := s.queue[0]
	s.queue = s.queue[1:]
	if head.dirTrash {
		return head
	}
	i := 0
	for ; i < len(s.queue); i++ {
		q := s.queue[i]
		if q.trash != head.trash || q.dirTrash || q.mapping != head.mapping || q.collectionName != head.collectionName {
			break
		}
		head.paths = append(head.paths, q.paths...)
	}
	s.queue = s.queue[i:]
	return head
}

func (s *Service) process(ctx context.Context, ev syncEvent) error {
	if ev.trash {
		return s.processTrash(ctx, ev)
	}
	return s.processUpload(ctx, ev)
}

func (s *Service) processUpload(ctx context.Context, ev syncEvent) error {
	collection, err := s.collections.GetOrCreateByName(ctx, ev.collectionName)
	if err != nil {
		return err
	}
	assets := make([]models.LocalAsset, 0, len(ev.paths))
	for _, p := range ev.paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		assets = append(assets, models.LocalAsset{Path: p, Name: filepath.Base(p), Size: info.Size()})
	}
	if len(assets) == 0 {
		return nil
	}
	s.log.Info(ctx, "uploading watched files", "collection", collection.Name, "count", len(assets))
	_, err = s.runner.QueueFilesForUpload(ctx, assets, collection)
	if errors.Is(err, common.ErrUploadCancelled) {
		return nil
	}
	return err
}

func (s *Service) processTrash(ctx context.Context, ev syncEvent) error {
	s.mu.Lock()
	m := s.mappings[ev.mapping]
	s.mu.Unlock()
	if m == nil {
		return nil
	}

	// Resolve remote IDs for the vanished paths. Directory trashes
	// match by prefix.
	var ids []int64
	var keep []models.SyncedFile
	for _, f := range m.Files {
		matched := false
		for _, p := range ev.paths {
			if f.Path == p || (ev.dirTrash && strings.HasPrefix(f.Path, p+string(filepath.Separator))) {
				matched = true
				break
			}
		}
		if matched {
			ids = append(ids, f.RemoteID)
		} else {
			keep = append(keep, f)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	collection, err := s.collections.GetOrCreateByName(ctx, ev.collectionName)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "removing vanished files", "collection", collection.Name, "count", len(ids))
	if err := s.remover.RemoveFromCollection(ctx, collection.ID, ids); err != nil {
		return err
	}

	s.mu.Lock()
	m.Files = keep
	s.mu.Unlock()
	s.schedulePersist()
	return nil
}

// onUploadEvent records path-to-remote-ID mappings as uploads finish.
func (s *Service) onUploadEvent(ev events.Event) {
	fu, ok := ev.(events.FileUploaded)
	if !ok || fu.File == nil {
		return
	}
	paths := []string{fu.Item.File.Path}
	if fu.Item.IsLivePhoto {
		paths = []string{fu.Item.LivePhoto.Image.Path, fu.Item.LivePhoto.Video.Path}
	}

	s.mu.Lock()
	for _, m := range s.mappings {
		for _, p := range paths {
			if strings.HasPrefix(p, m.FolderPath+string(filepath.Separator)) {
				m.Files = append(m.Files, models.SyncedFile{Path: p, RemoteID: fu.File.ID})
			}
		}
	}
	s.mu.Unlock()
	s.schedulePersist()
}

// schedulePersist requests a mapping write. The channel holds one
// pending request; bursts collapse into a single write.
func (s *Service) schedulePersist() {
	select {
	case s.persist <- struct{}{}:
	default:
	}
}

func (s *Service) persistLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.persist:
		}
		s.mu.Lock()
		mappings := make([]*models.WatchMapping, 0, len(s.mappings))
		for _, m := range s.mappings {
			cp := *m
			cp.Files = append([]models.SyncedFile(nil), m.Files...)
			mappings = append(mappings, &cp)
		}
		s.mu.Unlock()
		for _, m := range mappings {
			if err := s.store.Upsert(ctx, m); err != nil {
				s.log.Error(ctx, "persisting watch mapping failed", "path", m.FolderPath, "error", err)
			}
		}
	}
}
