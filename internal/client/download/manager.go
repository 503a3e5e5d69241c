// Package download streams encrypted files back out of object storage
// and decrypts them on the fly.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/common"
	"github.com/photosafe/photosafe/internal/cryptox"
	"github.com/photosafe/photosafe/internal/logging"
)

// backend is the slice of the API client downloads need.
type backend interface {
	GetDownloadURL(ctx context.Context, fileID int64) (string, error)
	GetObject(ctx context.Context, url string) (io.ReadCloser, error)
}

type Manager struct {
	api backend
	log logging.Logger
}

func NewManager(api backend, log logging.Logger) *Manager {
	return &Manager{api: api, log: log.With("component", "download")}
}

// Open returns a reader of the file's decrypted contents. Network
// framing is independent of cipher chunking; the reader re-chunks
// internally. The caller owns the reader.
func (m *Manager) Open(ctx context.Context, file *models.RemoteFile, collectionKey []byte) (io.ReadCloser, error) {
	fileKey, err := cryptox.UnwrapKey(file.EncryptedKey, file.KeyDecryptionNonce, collectionKey)
	if err != nil {
		return nil, fmt.Errorf("unwrapping key for file %d: %w", file.ID, err)
	}

	url, err := m.api.GetDownloadURL(ctx, file.ID)
	if err != nil {
		return nil, err
	}
	body, err := m.api.GetObject(ctx, url)
	if err != nil {
		return nil, err
	}
	dec, err := cryptox.NewDecryptingReader(body, fileKey, file.DecryptionHeader)
	if err != nil {
		body.Close()
		return nil, err
	}
	return &decryptedFile{Reader: dec, src: body}, nil
}

// Export downloads the file into dir under its original title and
// returns the written path. A failed decryption removes the partial
// output.
func (m *Manager) Export(ctx context.Context, file *models.RemoteFile, collectionKey []byte, dir string) (string, error) {
	if file.Title == "" {
		return "", fmt.Errorf("file %d has no title: %w", file.ID, common.ErrInternal)
	}
	r, err := m.Open(ctx, file, collectionKey)
	if err != nil {
		return "", err
	}
	defer r.Close()

	path := filepath.Join(dir, filepath.Base(file.Title))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("exporting file %d: %w", file.ID, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	m.log.Info(ctx, "exported file", "id", file.ID, "path", path)
	return path, nil
}

type decryptedFile struct {
	io.Reader
	src io.Closer
}

func (d *decryptedFile) Close() error {
	return d.src.Close()
}
