package api

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/photosafe/photosafe/internal/common"
	"github.com/photosafe/photosafe/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGetUploadURLs_CapsCountAndSendsToken(t *testing.T) {
	var gotCount, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCount = r.URL.Query().Get("count")
		gotToken = r.Header.Get(common.AuthTokenHeaderName)
		w.Write([]byte(`{"urls":[{"objectKey":"k1","url":"http://s3/u1"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token", testLogger())
	urls, err := c.GetUploadURLs(context.Background(), 120)
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, "k1", urls[0].ObjectKey)
	assert.Equal(t, "50", gotCount)
	assert.Equal(t, "secret-token", gotToken)
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, common.ErrSessionExpired},
		{http.StatusUpgradeRequired, common.ErrStorageQuotaExceeded},
		{http.StatusNotFound, common.ErrNotFound},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c := New(srv.URL, "t", testLogger())
		_, err := c.CreateFile(context.Background(), CreateFileRequest{})
		require.ErrorIs(t, err, tt.want, "status %d", tt.status)
		srv.Close()
	}
}

func TestPutObject_ReturnsETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, []byte("payload"), body)
		w.Header().Set("ETag", `"abc123"`)
	}))
	defer srv.Close()

	c := New(srv.URL, "t", testLogger())
	etag, err := c.PutObject(context.Background(), srv.URL+"/obj", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, `"abc123"`, etag)
}

func TestPutObject_MissingETagIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := New(srv.URL, "t", testLogger())
	_, err := c.PutObject(context.Background(), srv.URL+"/obj", []byte("x"))
	require.ErrorIs(t, err, common.ErrETagMissing)
}

func TestCompleteMultipartUpload_PostsOrderedParts(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	c := New(srv.URL, "t", testLogger())
	parts := []MultipartPart{
		{PartNumber: 1, ETag: "e1"},
		{PartNumber: 2, ETag: "e2"},
	}
	require.NoError(t, c.CompleteMultipartUpload(context.Background(), srv.URL+"/complete", parts))

	var decoded struct {
		XMLName xml.Name        `xml:"CompleteMultipartUpload"`
		Parts   []MultipartPart `xml:"Part"`
	}
	require.NoError(t, xml.Unmarshal(gotBody, &decoded))
	require.Equal(t, parts, decoded.Parts)
}

func TestCreateFile_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"file":{"id":42,"updationTime":1700000000000000}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "t", testLogger())
	file, err := c.CreateFile(context.Background(), CreateFileRequest{
		CollectionID: 7,
		File:         ObjectInfo{ObjectKey: "obj", Size: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), file.ID)
	assert.Equal(t, int64(7), file.CollectionID)
	assert.Equal(t, "obj", file.ObjectKey)
}

func TestGetObject_StreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("encrypted-bytes"))
	}))
	defer srv.Close()

	c := New(srv.URL, "t", testLogger())
	body, err := c.GetObject(context.Background(), srv.URL+"/obj")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "encrypted-bytes", string(data))
}

func TestPing(t *testing.T) {
	var gotToken string
	up := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Auth-Token")
		if !up {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", testLogger())

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "tok", gotToken)

	up = false
	require.Error(t, c.Ping(context.Background()))
}
