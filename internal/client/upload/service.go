package upload

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/photosafe/photosafe/internal/client/api"
	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/common"
	"github.com/photosafe/photosafe/internal/cryptox"
	"github.com/photosafe/photosafe/internal/logging"
)

// multipartMinSize is the plaintext size above which payloads stream
// through multipart upload instead of a single PUT.
const multipartMinSize = 20 * 1024 * 1024

// chunksPerPart fixes the multipart part size at five encrypted stream
// chunks.
const chunksPerPart = 5

// backend is the slice of the API client the upload service needs.
type backend interface {
	urlFetcher
	GetMultipartUploadURLs(ctx context.Context, partCount int) (*api.MultipartUploadURLs, error)
	PutObject(ctx context.Context, url string, data []byte) (string, error)
	CompleteMultipartUpload(ctx context.Context, completeURL string, parts []api.MultipartPart) error
	CreateFile(ctx context.Context, req api.CreateFileRequest) (*models.RemoteFile, error)
}

// Thumbnailer produces a small preview of an asset.
type Thumbnailer interface {
	Generate(ctx context.Context, asset models.LocalAsset) ([]byte, error)
}

// NoopThumbnailer always fails, forcing the static placeholder. Real
// decoding needs native codecs that are wired in per platform.
type NoopThumbnailer struct{}

func (NoopThumbnailer) Generate(ctx context.Context, asset models.LocalAsset) ([]byte, error) {
	return nil, common.ErrThumbnailGenFailed
}

// Service uploads one prepared item: encrypts the payload, thumbnail
// and metadata under a fresh file key, pushes the objects to presigned
// URLs and registers the file.
type Service struct {
	api   backend
	pool  *urlPool
	thumb Thumbnailer
	log   logging.Logger
}

func NewService(b backend, thumb Thumbnailer, log logging.Logger) *Service {
	if thumb == nil {
		thumb = NoopThumbnailer{}
	}
	return &Service{
		api:   b,
		pool:  newURLPool(b),
		thumb: thumb,
		log:   log.With("component", "upload"),
	}
}

// Process uploads item into its collection. pending sizes URL pool
// refills. The bool result reports whether a static thumbnail was used.
func (s *Service) Process(ctx context.Context, item models.MediaItem, collectionKey []byte, md *models.Metadata, pending int) (*models.RemoteFile, bool, error) {
	fileKey := cryptox.NewStreamKey()
	defer common.WipeByteArray(fileKey)

	thumbData, staticThumb, err := s.makeThumbnail(ctx, item)
	if err != nil {
		return nil, false, err
	}
	md.HasStaticThumbnail = staticThumb

	thumbCipher, thumbHeader, err := cryptox.EncryptBytes(thumbData, fileKey)
	if err != nil {
		return nil, false, err
	}
	thumbURL, err := s.pool.Next(ctx, pending)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.api.PutObject(ctx, thumbURL.URL, thumbCipher); err != nil {
		return nil, false, fmt.Errorf("uploading thumbnail: %w", err)
	}

	fileObject, err := s.uploadPayload(ctx, item, fileKey, pending)
	if err != nil {
		return nil, false, err
	}

	mdPlain, err := json.Marshal(md)
	if err != nil {
		return nil, false, err
	}
	mdCipher, mdHeader, err := cryptox.EncryptBytes(mdPlain, fileKey)
	if err != nil {
		return nil, false, err
	}

	encryptedKey, keyNonce, err := cryptox.WrapKey(fileKey, collectionKey)
	if err != nil {
		return nil, false, err
	}

	file, err := s.api.CreateFile(ctx, api.CreateFileRequest{
		CollectionID:       item.CollectionID,
		EncryptedKey:       encryptedKey,
		KeyDecryptionNonce: keyNonce,
		File:               *fileObject,
		Thumbnail: api.ObjectInfo{
			ObjectKey:        thumbURL.ObjectKey,
			DecryptionHeader: thumbHeader,
			Size:             int64(len(thumbCipher)),
		},
		EncryptedMetadata:        mdCipher,
		MetadataDecryptionHeader: mdHeader,
	})
	if err != nil {
		return nil, false, err
	}
	file.Hash = md.Hash
	file.Title = md.Title
	return file, staticThumb, nil
}

func (s *Service) makeThumbnail(ctx context.Context, item models.MediaItem) ([]byte, bool, error) {
	asset := item.File
	if item.IsLivePhoto {
		asset = item.LivePhoto.Image
	}
	data, err := s.thumb.Generate(ctx, asset)
	if err == nil {
		return data, false, nil
	}
	if errors.Is(err, common.ErrThumbnailGenFailed) {
		s.log.Warn(ctx, "thumbnail generation failed, using placeholder", "name", asset.Name)
		return StaticThumbnail, true, nil
	}
	return nil, false, err
}

// payloadSource opens the plaintext to upload. A live photo becomes an
// in-memory zip of both halves; both are size-capped, so buffering is
// fine.
func (s *Service) payloadSource(item models.MediaItem) (io.ReadCloser, int64, error) {
	if !item.IsLivePhoto {
		f, err := os.Open(item.File.Path)
		if err != nil {
			return nil, 0, err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, err
		}
		return f, info.Size(), nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range []struct {
		name  string
		asset models.LocalAsset
	}{
		{"image" + extOf(item.LivePhoto.Image.Name), item.LivePhoto.Image},
		{"video" + extOf(item.LivePhoto.Video.Name), item.LivePhoto.Video},
	} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: part.name, Method: zip.Store})
		if err != nil {
			return nil, 0, err
		}
		src, err := os.Open(part.asset.Path)
		if err != nil {
			return nil, 0, err
		}
		_, err = io.Copy(w, src)
		src.Close()
		if err != nil {
			return nil, 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), int64(buf.Len()), nil
}

func (s *Service) uploadPayload(ctx context.Context, item models.MediaItem, fileKey []byte, pending int) (*api.ObjectInfo, error) {
	src, size, err := s.payloadSource(item)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if size < multipartMinSize {
		plain, err := io.ReadAll(src)
		if err != nil {
			return nil, err
		}
		cipher, header, err := cryptox.EncryptBytes(plain, fileKey)
		if err != nil {
			return nil, err
		}
		u, err := s.pool.Next(ctx, pending)
		if err != nil {
			return nil, err
		}
		if _, err := s.api.PutObject(ctx, u.URL, cipher); err != nil {
			return nil, fmt.Errorf("uploading payload: %w", err)
		}
		return &api.ObjectInfo{
			ObjectKey:        u.ObjectKey,
			DecryptionHeader: header,
			Size:             int64(len(cipher)),
		}, nil
	}
	return s.uploadMultipart(ctx, src, size, fileKey)
}

// uploadMultipart streams the encrypted payload in fixed-size parts.
// Parts are completed in ascending order; any part without an ETag
// aborts the whole upload.
func (s *Service) uploadMultipart(ctx context.Context, src io.Reader, size int64, fileKey []byte) (*api.ObjectInfo, error) {
	enc, err := cryptox.NewEncryptingReader(src, size, fileKey)
	if err != nil {
		return nil, err
	}
	chunkCount := enc.TotalChunks()
	partCount := int((chunkCount + chunksPerPart - 1) / chunksPerPart)

	urls, err := s.api.GetMultipartUploadURLs(ctx, partCount)
	if err != nil {
		return nil, fmt.Errorf("starting multipart upload: %w", err)
	}
	if len(urls.PartURLs) < partCount {
		return nil, fmt.Errorf("%w: got %d part urls, need %d", common.ErrInternal, len(urls.PartURLs), partCount)
	}

	partSize := chunksPerPart * cryptox.EncryptedChunkSize
	buf := make([]byte, partSize)
	parts := make([]api.MultipartPart, 0, partCount)
	var total int64

	for i := 0; i < partCount; i++ {
		n, err := io.ReadFull(enc, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, err
		}
		if n == 0 {
			break
		}
		etag, err := s.api.PutObject(ctx, urls.PartURLs[i], buf[:n])
		if err != nil {
			return nil, fmt.Errorf("uploading part %d: %w", i+1, err)
		}
		parts = append(parts, api.MultipartPart{PartNumber: i + 1, ETag: etag})
		total += int64(n)
	}

	if err := s.api.CompleteMultipartUpload(ctx, urls.CompleteURL, parts); err != nil {
		return nil, fmt.Errorf("completing multipart upload: %w", err)
	}
	return &api.ObjectInfo{
		ObjectKey:        urls.ObjectKey,
		DecryptionHeader: enc.Header(),
		Size:             total,
	}, nil
}
