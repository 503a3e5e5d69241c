// Package upload implements the encrypted upload pipeline: metadata
// extraction, live-photo clustering, chunked encryption and the worker
// pool that drives it all.
package upload

import (
	"context"
	"fmt"
	"sync"

	"github.com/photosafe/photosafe/internal/client/api"
)

// urlFetcher is the slice of the API client the pool needs.
type urlFetcher interface {
	GetUploadURLs(ctx context.Context, count int) ([]api.UploadURL, error)
}

// urlPool hands out single-use presigned upload URLs. It refills in
// batches sized to the pending workload and collapses concurrent
// refills into one request.
type urlPool struct {
	fetcher urlFetcher

	mu    sync.Mutex
	urls  []api.UploadURL
	fetch chan struct{} // closed when the in-flight refill finishes
	err   error
}

func newURLPool(fetcher urlFetcher) *urlPool {
	return &urlPool{fetcher: fetcher}
}

// Next returns one upload URL, refilling the pool if it is empty.
// pending is the number of items still queued; each item needs a URL
// for its payload and one for its thumbnail.
func (p *urlPool) Next(ctx context.Context, pending int) (api.UploadURL, error) {
	for {
		p.mu.Lock()
		if len(p.urls) > 0 {
			u := p.urls[len(p.urls)-1]
			p.urls = p.urls[:len(p.urls)-1]
			p.mu.Unlock()
			return u, nil
		}
		if p.err != nil {
			err := p.err
			p.mu.Unlock()
			return api.UploadURL{}, err
		}

		if p.fetch != nil {
			// Someone else is already refilling, wait for them.
			done := p.fetch
			p.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return api.UploadURL{}, ctx.Err()
			}
			continue
		}

		done := make(chan struct{})
		p.fetch = done
		p.mu.Unlock()

		urls, err := p.fetcher.GetUploadURLs(ctx, 2*pending)

		p.mu.Lock()
		p.fetch = nil
		if err != nil {
			// A failed refill poisons the pool so the whole batch stops
			// instead of every worker retrying the same dead endpoint.
			p.err = fmt.Errorf("refilling upload url pool: %w", err)
		} else if len(urls) == 0 {
			p.err = fmt.Errorf("upload url pool: server returned no urls")
		} else {
			p.urls = append(p.urls, urls...)
		}
		p.mu.Unlock()
		close(done)
	}
}
