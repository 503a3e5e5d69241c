package models

// Collection is an upload destination. Key holds the collection key used
// to wrap per-file keys.
type Collection struct {
	ID   int64
	Name string
	Key  []byte

	// LastSyncTime is the UpdationTime high-water mark of the last pull,
	// in microseconds.
	LastSyncTime int64
}
