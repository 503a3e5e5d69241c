// Package api is the HTTP client for the PhotoSafe server and its
// presigned object-storage endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/photosafe/photosafe/internal/common"
	"github.com/photosafe/photosafe/internal/logging"
)

const defaultRequestTimeout = 5 * time.Minute

// Client talks to the PhotoSafe API. Idempotent calls go through a
// retrying client; mutating calls that must not be replayed use a plain
// one.
type Client struct {
	baseURL string
	token   string
	retry   *retryablehttp.Client
	plain   *http.Client
	log     logging.Logger
}

func New(baseURL, token string, log logging.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.HTTPClient.Timeout = defaultRequestTimeout
	rc.Logger = nil
	return &Client{
		baseURL: baseURL,
		token:   token,
		retry:   rc,
		plain:   &http.Client{Timeout: defaultRequestTimeout},
		log:     log.With("component", "api"),
	}
}

// statusError maps API status codes to the sentinel errors callers
// branch on.
func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return common.ErrSessionExpired
	case http.StatusUpgradeRequired:
		return common.ErrStorageQuotaExceeded
	case http.StatusNotFound:
		return common.ErrNotFound
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: api status %d: %s", common.ErrInternal, resp.StatusCode, bytes.TrimSpace(body))
}

// getJSON performs a retried GET against the API and decodes the
// response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set(common.AuthTokenHeaderName, c.token)

	resp, err := c.retry.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// postJSON performs a non-retried POST with a JSON body. Mutations are
// not safely repeatable, retrying is the caller's decision.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set(common.AuthTokenHeaderName, c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.plain.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Ping checks server reachability. The watch daemon uses it to pause
// syncing while offline, so it is a single plain request with no
// retries.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return err
	}
	req.Header.Set(common.AuthTokenHeaderName, c.token)

	resp, err := c.plain.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}
