package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/client/upload"
	"github.com/photosafe/photosafe/internal/filex"
	"github.com/photosafe/photosafe/internal/flagx"
)

// collectAssets stats every file under root and turns it into a local
// asset ready for queueing.
func collectAssets(root string) ([]models.LocalAsset, error) {
	paths, err := filex.ListFiles(root)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	assets := make([]models.LocalAsset, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			// Vanished between listing and stat, skip.
			continue
		}
		assets = append(assets, models.LocalAsset{
			Path: p,
			Name: filepath.Base(p),
			Size: info.Size(),
		})
	}
	return assets, nil
}

func (a *App) cmdUpload(ctx context.Context, args, pos []string) error {
	if len(pos) != 1 {
		return fmt.Errorf("usage: upload <dir> [-collection NAME]")
	}

	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	name := fs.String("collection", "", "target collection name")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-collection"})); err != nil {
		return err
	}

	dir, err := filepath.Abs(pos[0])
	if err != nil {
		return err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	if *name == "" {
		*name = filepath.Base(dir)
	}

	collection, err := a.collections.GetOrCreateByName(ctx, *name)
	if err != nil {
		return err
	}

	assets, err := collectAssets(dir)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		fmt.Println("Nothing to upload.")
		return nil
	}

	summary, err := a.manager.QueueFilesForUpload(ctx, assets, collection)
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		a.log.Info(ctx, "retrying failed files", "count", summary.Failed)
		retry, err := a.manager.RetryFailedFiles(ctx, collection)
		if err != nil {
			return err
		}
		summary = merge(summary, retry)
	}

	if summary.Uploaded > 0 {
		if err := a.repos.Collections.UpdateLastSyncTime(ctx, collection.ID, time.Now().UnixMicro()); err != nil {
			a.log.Warn(ctx, "updating collection sync time", "collection", collection.Name, "error", err)
		}
	}

	printSummary(collection.Name, summary)
	return nil
}

// merge folds a retry pass into the original summary: items that
// succeeded on retry move out of the failed bucket.
func merge(first, retry *upload.Summary) *upload.Summary {
	out := *first
	out.Uploaded += retry.Uploaded
	out.Skipped += retry.Skipped
	out.Failed = retry.Failed
	return &out
}

func printSummary(collection string, s *upload.Summary) {
	fmt.Printf("Collection %q: uploaded %d, skipped %d", collection, s.Uploaded, s.Skipped)
	if s.Blocked > 0 {
		fmt.Printf(", blocked %d", s.Blocked)
	}
	if s.Unsupported > 0 {
		fmt.Printf(", unsupported %d", s.Unsupported)
	}
	if s.TooLarge > 0 {
		fmt.Printf(", too large %d", s.TooLarge)
	}
	if s.Failed > 0 {
		fmt.Printf(", failed %d", s.Failed)
	}
	fmt.Println()
}
