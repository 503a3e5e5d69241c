package upload

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/photosafe/photosafe/internal/client/models"
)

const editedFileSuffix = "-edited"

// ParsedSidecar holds the fields of a Google Takeout metadata JSON that
// override extracted values. Times are microseconds.
type ParsedSidecar struct {
	Title            string
	CreationTime     int64
	ModificationTime int64
	Latitude         *float64
	Longitude        *float64
}

type sidecarTimestamp struct {
	Timestamp json.Number `json:"timestamp"`
}

type sidecarLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type sidecarJSON struct {
	Title            string           `json:"title"`
	PhotoTakenTime   sidecarTimestamp `json:"photoTakenTime"`
	ModificationTime sidecarTimestamp `json:"modificationTime"`
	GeoData          sidecarLocation  `json:"geoData"`
	GeoDataExif      sidecarLocation  `json:"geoDataExif"`
}

// IsSidecar reports whether the file is a Takeout metadata JSON rather
// than a media asset.
func IsSidecar(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}

// SidecarKey pairs a sidecar with its asset. Sidecars name the original
// file in their title field, so the key is collection-scoped title with
// any editor suffix stripped.
func SidecarKey(collectionID int64, title string) string {
	base := strings.TrimSuffix(title, filepath.Ext(title))
	base = strings.TrimSuffix(base, editedFileSuffix)
	return fmt.Sprintf("%d:%s%s", collectionID, base, filepath.Ext(title))
}

// ParseSidecarJSON reads a Takeout sidecar. A sidecar without a title
// cannot be matched to an asset and is reported as an error.
func ParseSidecarJSON(path string) (*ParsedSidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sidecar %s: %w", path, err)
	}
	var raw sidecarJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing sidecar %s: %w", path, err)
	}
	if raw.Title == "" {
		return nil, fmt.Errorf("sidecar %s has no title", path)
	}

	out := &ParsedSidecar{Title: raw.Title}
	if ts, err := raw.PhotoTakenTime.Timestamp.Int64(); err == nil && ts > 0 {
		out.CreationTime = ts * 1_000_000
	}
	if ts, err := raw.ModificationTime.Timestamp.Int64(); err == nil && ts > 0 {
		out.ModificationTime = ts * 1_000_000
	}

	// geoData wins over geoDataExif; all-zero coordinates mean absent.
	loc := raw.GeoData
	if loc.Latitude == 0 && loc.Longitude == 0 {
		loc = raw.GeoDataExif
	}
	if loc.Latitude != 0 || loc.Longitude != 0 {
		lat, lng := loc.Latitude, loc.Longitude
		out.Latitude, out.Longitude = &lat, &lng
	}
	return out, nil
}

// ApplyTo overlays sidecar fields onto extracted metadata.
func (s *ParsedSidecar) ApplyTo(md *models.Metadata) {
	if s.CreationTime > 0 {
		md.CreationTime = s.CreationTime
	}
	if s.ModificationTime > 0 {
		md.ModificationTime = s.ModificationTime
	}
	if s.Latitude != nil {
		md.Latitude = s.Latitude
		md.Longitude = s.Longitude
	}
}
