package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/photosafe/photosafe/internal/filex"
)

// cmdExport downloads every file of a collection into dir, decrypting
// on the fly.
func (a *App) cmdExport(ctx context.Context, pos []string) error {
	if len(pos) != 2 {
		return fmt.Errorf("usage: export <collection> <dir>")
	}
	name, dir := pos[0], pos[1]

	collection, err := a.repos.Collections.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("collection %q: %w", name, err)
	}

	if filepath.IsAbs(dir) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	} else {
		abs, err := filex.EnsureSubdDir(dir)
		if err != nil {
			return err
		}
		dir = abs
	}

	remote, err := a.repos.Files.ListByCollection(ctx, collection.ID)
	if err != nil {
		return err
	}
	if len(remote) == 0 {
		fmt.Println("Collection is empty.")
		return nil
	}

	var exported, failed int
	for _, f := range remote {
		path, err := a.downloads.Export(ctx, f, collection.Key, dir)
		if err != nil {
			failed++
			a.log.Warn(ctx, "export failed", "title", f.Title, "error", err)
			continue
		}
		exported++
		fmt.Println(path)
	}

	fmt.Printf("Exported %d of %d files", exported, len(remote))
	if failed > 0 {
		fmt.Printf(" (%d failed)", failed)
	}
	fmt.Println()
	return nil
}
