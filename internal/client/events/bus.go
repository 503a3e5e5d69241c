// Package events carries upload progress notifications between the
// upload manager and its observers (CLI output, folder watch).
package events

import (
	"sync"

	"github.com/photosafe/photosafe/internal/client/models"
)

// Event is a progress notification. Concrete types below.
type Event interface{ isEvent() }

// StageChanged reports that an item moved to a new pipeline stage.
type StageChanged struct {
	LocalID string
	Name    string
	Stage   string
}

// FileUploaded reports a finished upload together with the remote file
// it produced.
type FileUploaded struct {
	Item models.MediaItem
	File *models.RemoteFile
}

// ItemFinished reports a terminal outcome for one item, successful or
// not.
type ItemFinished struct {
	Item   models.MediaItem
	Result models.UploadResult
	Err    error
}

// BatchDone reports that a whole queued batch has drained.
type BatchDone struct {
	Uploaded int
	Skipped  int
	Failed   int
}

func (StageChanged) isEvent() {}
func (FileUploaded) isEvent() {}
func (ItemFinished) isEvent() {}
func (BatchDone) isEvent()    {}

// Bus dispatches events synchronously to all subscribers, in
// subscription order. Handlers must be fast or hand off to their own
// goroutines.
type Bus struct {
	mu   sync.RWMutex
	subs []func(Event)
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish delivers ev to every subscriber.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
