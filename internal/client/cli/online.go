package cli

import (
	"context"
	"time"
)

// pinger is the liveness probe the online watcher polls.
type pinger interface {
	Ping(ctx context.Context) error
}

// pauser is the slice of the watch service the online watcher drives.
type pauser interface {
	Pause()
	Resume(ctx context.Context)
}

// startOnlineStatusWatcher polls the server and pauses the watch
// service while it is unreachable. On reconnect the service is resumed,
// which re-diffs every mapping and picks up changes made offline.
func startOnlineStatusWatcher(ctx context.Context, p pinger, svc pauser, interval time.Duration, logf func(online bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	online := true

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := p.Ping(probeCtx)
			cancel()

			if err != nil {
				if online {
					online = false
					svc.Pause()
					logf(false)
				}
			} else {
				if !online {
					online = true
					svc.Resume(ctx)
					logf(true)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
