// Package models defines client-side data models used by the PhotoSafe CLI.
package models

import (
	"path/filepath"
	"strings"
)

// FileType classifies a local asset by its media kind.
type FileType int

const (
	FileTypeImage FileType = iota
	FileTypeVideo
	FileTypeLivePhoto
	FileTypeOther
)

func (t FileType) String() string {
	switch t {
	case FileTypeImage:
		return "image"
	case FileTypeVideo:
		return "video"
	case FileTypeLivePhoto:
		return "livePhoto"
	default:
		return "other"
	}
}

// LocalAsset is a file on disk that is a candidate for upload.
type LocalAsset struct {
	Path string
	Name string
	Size int64
}

// NameSansExtension returns the asset name with its extension stripped,
// used to pair a live photo's image and video halves.
func (a LocalAsset) NameSansExtension() string {
	ext := filepath.Ext(a.Name)
	return strings.TrimSuffix(a.Name, ext)
}

// LivePhotoAssets holds the two halves of a clustered live photo.
type LivePhotoAssets struct {
	Image LocalAsset
	Video LocalAsset
}

// MediaItem is a unit of upload work: either a single asset or a
// clustered live-photo pair bound to a destination collection.
type MediaItem struct {
	// LocalID identifies the item within a session, used for
	// dedup bookkeeping and progress events.
	LocalID string

	CollectionID int64

	File        LocalAsset
	IsLivePhoto bool
	LivePhoto   *LivePhotoAssets
}

// DisplayName returns the name shown in progress output.
func (m MediaItem) DisplayName() string {
	if m.IsLivePhoto {
		return m.LivePhoto.Image.Name
	}
	return m.File.Name
}

// Size returns the total plaintext size of the item.
func (m MediaItem) Size() int64 {
	if m.IsLivePhoto {
		return m.LivePhoto.Image.Size + m.LivePhoto.Video.Size
	}
	return m.File.Size
}

// Metadata is the extracted, per-item description persisted alongside
// the encrypted payload. Times are microseconds since the epoch.
type Metadata struct {
	Title            string   `json:"title"`
	CreationTime     int64    `json:"creationTime"`
	ModificationTime int64    `json:"modificationTime"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	FileType         FileType `json:"fileType"`
	Hash             string   `json:"hash,omitempty"`

	// HasStaticThumbnail is set when thumbnail generation failed and a
	// placeholder was uploaded instead.
	HasStaticThumbnail bool `json:"hasStaticThumbnail,omitempty"`
}

// UploadResult is the terminal outcome of one queued item.
type UploadResult int

const (
	ResultUploaded UploadResult = iota
	ResultUploadedWithStaticThumbnail
	ResultSkipped
	ResultBlocked
	ResultUnsupported
	ResultTooLarge
	ResultFailed
)

func (r UploadResult) String() string {
	switch r {
	case ResultUploaded:
		return "uploaded"
	case ResultUploadedWithStaticThumbnail:
		return "uploaded (static thumbnail)"
	case ResultSkipped:
		return "skipped"
	case ResultBlocked:
		return "blocked"
	case ResultUnsupported:
		return "unsupported"
	case ResultTooLarge:
		return "too large"
	default:
		return "failed"
	}
}

// Terminal reports whether the result must not be retried automatically.
func (r UploadResult) Terminal() bool {
	switch r {
	case ResultBlocked, ResultUnsupported, ResultTooLarge:
		return true
	}
	return false
}
