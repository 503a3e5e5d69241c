package api

import (
	"context"
	"fmt"
)

// maxURLsPerRequest caps how many presigned upload URLs one call may
// request.
const maxURLsPerRequest = 50

// UploadURL is a single-use presigned PUT target.
type UploadURL struct {
	ObjectKey string `json:"objectKey"`
	URL       string `json:"url"`
}

// MultipartUploadURLs addresses one multipart upload: a presigned URL
// per part plus the completion endpoint.
type MultipartUploadURLs struct {
	ObjectKey   string   `json:"objectKey"`
	PartURLs    []string `json:"partURLs"`
	CompleteURL string   `json:"completeURL"`
}

// GetUploadURLs fetches count presigned upload URLs, capped at the
// server's per-request limit.
func (c *Client) GetUploadURLs(ctx context.Context, count int) ([]UploadURL, error) {
	if count > maxURLsPerRequest {
		count = maxURLsPerRequest
	}
	var out struct {
		URLs []UploadURL `json:"urls"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/files/upload-urls?count=%d", count), &out); err != nil {
		return nil, fmt.Errorf("fetching upload urls: %w", err)
	}
	return out.URLs, nil
}

// GetMultipartUploadURLs starts a multipart upload sized for partCount
// parts.
func (c *Client) GetMultipartUploadURLs(ctx context.Context, partCount int) (*MultipartUploadURLs, error) {
	var out struct {
		URLs MultipartUploadURLs `json:"urls"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/files/multipart-upload-urls?count=%d", partCount), &out); err != nil {
		return nil, fmt.Errorf("fetching multipart upload urls: %w", err)
	}
	return &out.URLs, nil
}
