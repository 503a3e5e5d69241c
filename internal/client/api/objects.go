package api

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/photosafe/photosafe/internal/common"
)

// MultipartPart is one completed part of a multipart upload.
type MultipartPart struct {
	PartNumber int    `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}

type completeMultipartUpload struct {
	XMLName xml.Name        `xml:"CompleteMultipartUpload"`
	Parts   []MultipartPart `xml:"Part"`
}

// PutObject uploads data to a presigned URL and returns the ETag the
// store assigned. A missing ETag is fatal for the item: the upload
// cannot be completed without it.
func (c *Client) PutObject(ctx context.Context, url string, data []byte) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, data)
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(len(data))

	resp, err := c.retry.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", common.ErrETagMissing
	}
	return etag, nil
}

// CompleteMultipartUpload posts the ordered part list to the completion
// URL. Parts must already be in ascending part-number order.
func (c *Client) CompleteMultipartUpload(ctx context.Context, completeURL string, parts []MultipartPart) error {
	body, err := xml.Marshal(completeMultipartUpload{Parts: parts})
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, completeURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.retry.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// GetDownloadURL resolves a presigned GET URL for an object.
func (c *Client) GetDownloadURL(ctx context.Context, fileID int64) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/files/download/%d", fileID), &out); err != nil {
		return "", fmt.Errorf("resolving download url: %w", err)
	}
	return out.URL, nil
}

// GetObject streams an object from a presigned URL. The caller owns the
// returned body.
func (c *Client) GetObject(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.retry.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp.Body, nil
}
