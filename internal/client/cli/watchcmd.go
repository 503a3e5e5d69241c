package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/client/watch"
	"github.com/photosafe/photosafe/internal/flagx"
)

func (a *App) cmdWatch(ctx context.Context, args, pos []string) error {
	if len(pos) == 0 {
		return fmt.Errorf("usage: watch add|remove|list|run")
	}

	switch pos[0] {
	case "add":
		return a.cmdWatchAdd(ctx, args, pos[1:])
	case "remove":
		return a.cmdWatchRemove(ctx, pos[1:])
	case "list":
		return a.cmdWatchList(ctx)
	case "run":
		return a.cmdWatchRun(ctx)
	default:
		return fmt.Errorf("unknown watch command %q", pos[0])
	}
}

// cmdWatchAdd registers a folder mapping. The watch daemon picks it up
// on its next start.
func (a *App) cmdWatchAdd(ctx context.Context, args, pos []string) error {
	if len(pos) != 1 {
		return fmt.Errorf("usage: watch add <dir> [-name NAME] [-strategy single|folder]")
	}

	fs := flag.NewFlagSet("watch add", flag.ContinueOnError)
	name := fs.String("name", "", "collection (or prefix) name, defaults to the folder name")
	strategy := fs.String("strategy", "single", "single or folder")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-name", "-strategy"})); err != nil {
		return err
	}

	dir, err := filepath.Abs(pos[0])
	if err != nil {
		return err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a watchable directory", dir)
	}
	if *name == "" {
		*name = filepath.Base(dir)
	}

	var st models.UploadStrategy
	switch *strategy {
	case "single":
		st = models.StrategySingleCollection
	case "folder":
		st = models.StrategyCollectionPerFolder
	default:
		return fmt.Errorf("unknown strategy %q (want single or folder)", *strategy)
	}

	existing, err := a.repos.WatchMappings.List(ctx)
	if err != nil {
		return err
	}
	for _, m := range existing {
		if m.FolderPath == dir {
			return fmt.Errorf("folder %s is already watched", dir)
		}
	}

	m := &models.WatchMapping{RootName: *name, FolderPath: dir, Strategy: st}
	if err := a.repos.WatchMappings.Upsert(ctx, m); err != nil {
		return err
	}
	fmt.Printf("Watching %s as %q (%s)\n", dir, *name, st)
	return nil
}

func (a *App) cmdWatchRemove(ctx context.Context, pos []string) error {
	if len(pos) != 1 {
		return fmt.Errorf("usage: watch remove <dir>")
	}
	dir, err := filepath.Abs(pos[0])
	if err != nil {
		return err
	}
	if err := a.repos.WatchMappings.Delete(ctx, dir); err != nil {
		return err
	}
	fmt.Printf("Stopped watching %s\n", dir)
	return nil
}

func (a *App) cmdWatchList(ctx context.Context) error {
	mappings, err := a.repos.WatchMappings.List(ctx)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		fmt.Println("No watched folders.")
		return nil
	}
	for _, m := range mappings {
		fmt.Printf("%s  %q (%s, %d synced)\n", m.FolderPath, m.RootName, m.Strategy, len(m.Files))
	}
	return nil
}

// cmdWatchRun follows all watched folders until the process is
// interrupted.
func (a *App) cmdWatchRun(ctx context.Context) error {
	watcher, err := watch.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting filesystem watcher: %w", err)
	}
	defer watcher.Close()

	svc := watch.NewService(watcher, a.manager, a.collections, a.repos.WatchMappings, a.api, a.bus, a.log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go startOnlineStatusWatcher(ctx, a.api, svc, a.config.OnlineCheckInterval, func(online bool) {
		if online {
			a.log.Info(ctx, "server reachable again, resuming")
		} else {
			a.log.Warn(ctx, "server unreachable, pausing sync")
		}
	})

	a.log.Info(ctx, "watch daemon started")
	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
