package upload

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/logging"
)

// maxLivePhotoAssetSize caps each half of a live photo. Real live-photo
// videos are a few seconds long; anything bigger is two unrelated files
// that happen to share a name.
const maxLivePhotoAssetSize = 20 * 1024 * 1024

// livePhotoNameSuffixes are appended to asset names by various
// exporters and must be ignored when pairing halves.
var livePhotoNameSuffixes = []string{"_3", "_HVEC", "_hvec"}

func prunedLivePhotoName(name, pairExt string) string {
	base := strings.TrimSuffix(name, pairExt)
	if base != name {
		return base
	}
	for _, s := range livePhotoNameSuffixes {
		if trimmed := strings.TrimSuffix(name, s); trimmed != name {
			return trimmed
		}
	}
	return name
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

// areLivePhotoAssets reports whether two items in the same collection
// are the image and video halves of one live photo.
func areLivePhotoAssets(a, b models.MediaItem) bool {
	if a.CollectionID != b.CollectionID {
		return false
	}
	ta, tb := FileTypeForName(a.File.Name), FileTypeForName(b.File.Name)

	var img, vid models.MediaItem
	switch {
	case ta == models.FileTypeImage && tb == models.FileTypeVideo:
		img, vid = a, b
	case ta == models.FileTypeVideo && tb == models.FileTypeImage:
		img, vid = b, a
	default:
		return false
	}

	// A Google live-photo image can carry the video extension as a name
	// suffix (IMG_0001.mp4.jpg), so strip that too when comparing.
	imgName := prunedLivePhotoName(img.File.NameSansExtension(), extOf(vid.File.Name))
	vidName := prunedLivePhotoName(vid.File.NameSansExtension(), "")
	return imgName == vidName
}

// ClusterLivePhotos pairs image and video halves of live photos into
// single items. Input items must be single-asset; output preserves all
// assets, clustered or not. Candidate pairs with an oversized half are
// logged and uploaded as two independent files.
func ClusterLivePhotos(ctx context.Context, items []models.MediaItem, log logging.Logger) []models.MediaItem {
	sorted := make([]models.MediaItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		ni := prunedLivePhotoName(sorted[i].File.NameSansExtension(), "")
		nj := prunedLivePhotoName(sorted[j].File.NameSansExtension(), "")
		if ni != nj {
			return ni < nj
		}
		return sorted[i].CollectionID < sorted[j].CollectionID
	})

	out := make([]models.MediaItem, 0, len(sorted))
	for i := 0; i < len(sorted); i++ {
		if i+1 < len(sorted) && areLivePhotoAssets(sorted[i], sorted[i+1]) {
			a, b := sorted[i], sorted[i+1]
			img, vid := a, b
			if FileTypeForName(a.File.Name) == models.FileTypeVideo {
				img, vid = b, a
			}
			if img.File.Size > maxLivePhotoAssetSize || vid.File.Size > maxLivePhotoAssetSize {
				log.Warn(ctx, "live photo half too large, uploading separately",
					"image", img.File.Name, "imageSize", img.File.Size,
					"video", vid.File.Name, "videoSize", vid.File.Size)
				out = append(out, sorted[i])
				continue
			}
			out = append(out, models.MediaItem{
				LocalID:      fmt.Sprintf("%s+%s", img.LocalID, vid.LocalID),
				CollectionID: img.CollectionID,
				IsLivePhoto:  true,
				LivePhoto: &models.LivePhotoAssets{
					Image: img.File,
					Video: vid.File,
				},
			})
			i++
			continue
		}
		out = append(out, sorted[i])
	}
	return out
}
