package models

// UploadStrategy decides how a watched folder maps to collections.
type UploadStrategy int

const (
	// StrategySingleCollection uploads everything under the root into one
	// collection named after the root.
	StrategySingleCollection UploadStrategy = iota
	// StrategyCollectionPerFolder uploads each immediate subfolder into
	// its own collection; files directly under the root use the root name.
	StrategyCollectionPerFolder
)

func (s UploadStrategy) String() string {
	if s == StrategyCollectionPerFolder {
		return "collection-per-folder"
	}
	return "single-collection"
}

// SyncedFile records that a local path was uploaded and which remote
// file it became.
type SyncedFile struct {
	Path     string
	RemoteID int64
}

// WatchMapping is a watched root folder and its synced state.
type WatchMapping struct {
	RootName   string
	FolderPath string
	Strategy   UploadStrategy
	Files      []SyncedFile
}

// SyncedPaths returns the set of already-uploaded paths under the root.
func (m *WatchMapping) SyncedPaths() map[string]struct{} {
	out := make(map[string]struct{}, len(m.Files))
	for _, f := range m.Files {
		out[f.Path] = struct{}{}
	}
	return out
}
