package api

import (
	"context"
	"fmt"

	"github.com/photosafe/photosafe/internal/client/models"
)

// ObjectInfo describes one uploaded object within a create-file request.
type ObjectInfo struct {
	ObjectKey        string `json:"objectKey"`
	DecryptionHeader []byte `json:"decryptionHeader"`
	Size             int64  `json:"size"`
}

// CreateFileRequest registers an uploaded payload and thumbnail as a
// file in a collection. Metadata travels encrypted; the server never
// sees plaintext.
type CreateFileRequest struct {
	CollectionID       int64      `json:"collectionID"`
	EncryptedKey       []byte     `json:"encryptedKey"`
	KeyDecryptionNonce []byte     `json:"keyDecryptionNonce"`
	File               ObjectInfo `json:"file"`
	Thumbnail          ObjectInfo `json:"thumbnail"`

	EncryptedMetadata        []byte `json:"encryptedMetadata"`
	MetadataDecryptionHeader []byte `json:"metadataDecryptionHeader"`
}

type remoteFilePayload struct {
	ID           int64 `json:"id"`
	CollectionID int64 `json:"collectionID"`
	UpdationTime int64 `json:"updationTime"`
}

// CreateFile registers the uploaded objects as a new remote file and
// returns the server-assigned identity.
func (c *Client) CreateFile(ctx context.Context, req CreateFileRequest) (*models.RemoteFile, error) {
	var out struct {
		File remoteFilePayload `json:"file"`
	}
	if err := c.postJSON(ctx, "/files", req, &out); err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	return &models.RemoteFile{
		ID:                 out.File.ID,
		CollectionID:       req.CollectionID,
		EncryptedKey:       req.EncryptedKey,
		KeyDecryptionNonce: req.KeyDecryptionNonce,
		ObjectKey:          req.File.ObjectKey,
		DecryptionHeader:   req.File.DecryptionHeader,
		ThumbnailObjectKey: req.Thumbnail.ObjectKey,
		UpdationTime:       out.File.UpdationTime,
	}, nil
}

// CreateCollection creates a named collection with the given encrypted
// collection key and returns its server ID.
func (c *Client) CreateCollection(ctx context.Context, name string, encryptedKey, keyNonce []byte) (int64, error) {
	in := struct {
		Name               string `json:"name"`
		EncryptedKey       []byte `json:"encryptedKey"`
		KeyDecryptionNonce []byte `json:"keyDecryptionNonce"`
	}{Name: name, EncryptedKey: encryptedKey, KeyDecryptionNonce: keyNonce}

	var out struct {
		Collection struct {
			ID int64 `json:"id"`
		} `json:"collection"`
	}
	if err := c.postJSON(ctx, "/collections", in, &out); err != nil {
		return 0, fmt.Errorf("creating collection %q: %w", name, err)
	}
	return out.Collection.ID, nil
}

// RemoveFromCollection detaches files from a collection. Used by folder
// watch when a synced local file disappears.
func (c *Client) RemoveFromCollection(ctx context.Context, collectionID int64, fileIDs []int64) error {
	in := struct {
		CollectionID int64   `json:"collectionID"`
		FileIDs      []int64 `json:"fileIDs"`
	}{CollectionID: collectionID, FileIDs: fileIDs}

	if err := c.postJSON(ctx, "/collections/remove-files", in, nil); err != nil {
		return fmt.Errorf("removing %d files from collection %d: %w", len(fileIDs), collectionID, err)
	}
	return nil
}
