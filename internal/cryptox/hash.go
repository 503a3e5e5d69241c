package cryptox

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// HashReader streams r through a chunked BLAKE2b-256 and returns the hex
// digest. Reads use the same granularity as the stream cipher for I/O
// efficiency, though the two are logically independent.
func HashReader(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	buf := make([]byte, StreamChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("hashing stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile computes the content hash of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return HashReader(f)
}

// CombineHashes forms the identity of a live-photo pair. The pair's
// identity is the pair, not either asset alone, so the two digests are
// concatenated rather than re-hashed.
func CombineHashes(imageHash, videoHash string) string {
	return imageHash + ":" + videoHash
}
