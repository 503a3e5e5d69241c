package models

// RemoteFile is the server-side record of an uploaded item. Key material
// is encrypted under the owning collection's key; the plaintext file key
// never leaves the client.
type RemoteFile struct {
	ID           int64
	CollectionID int64

	// EncryptedKey is the per-file key sealed under the collection key,
	// with KeyDecryptionNonce as its nonce.
	EncryptedKey       []byte
	KeyDecryptionNonce []byte

	// ObjectKey addresses the encrypted payload in object storage.
	ObjectKey        string
	DecryptionHeader []byte

	ThumbnailObjectKey        string
	ThumbnailDecryptionHeader []byte

	// Hash is the content hash of the plaintext, used for dedup. For a
	// live photo it combines both halves.
	Hash string

	Title        string
	CreationTime int64
	UpdationTime int64
}
