package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photosafe/photosafe/internal/client/upload"
)

func TestCollectAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("aaa"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.mp4"), []byte("bbbbb"), 0o644))

	assets, err := collectAssets(dir)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	byName := map[string]int64{}
	for _, a := range assets {
		byName[a.Name] = a.Size
	}
	assert.Equal(t, int64(3), byName["a.jpg"])
	assert.Equal(t, int64(5), byName["b.mp4"])
}

func TestMergeSummaries(t *testing.T) {
	first := &upload.Summary{Uploaded: 3, Skipped: 1, Blocked: 1, Failed: 2}
	retry := &upload.Summary{Uploaded: 1, Failed: 1}

	out := merge(first, retry)
	assert.Equal(t, 4, out.Uploaded)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, 1, out.Blocked)
	assert.Equal(t, 1, out.Failed)
}
