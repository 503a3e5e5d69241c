// Package cryptox implements the chunked streaming cipher used for media
// payloads, the per-file key wrapping, and the streaming content hash.
//
// A stream is encrypted chunk by chunk against a per-file key. Chunks must
// be pushed and pulled strictly in order; the cipher nonce advances with a
// chunk counter, so reordering or truncation surfaces as an authentication
// failure. The last chunk carries TagFinal so the receiving side can verify
// the stream is complete.
package cryptox

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"

	"github.com/photosafe/photosafe/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// StreamChunkSize is the plaintext chunk granularity for streaming
	// encryption, decryption and hashing.
	StreamChunkSize = 4 * 1024 * 1024

	// StreamKeySize is the size of a per-file stream key.
	StreamKeySize = chacha20poly1305.KeySize

	// StreamHeaderSize is the size of the decryption header generated per
	// stream (the nonce material the receiver needs to start pulling).
	StreamHeaderSize = chacha20poly1305.NonceSizeX

	// StreamChunkOverhead is the per-chunk ciphertext expansion: one tag
	// byte plus the AEAD authentication tag.
	StreamChunkOverhead = 1 + chacha20poly1305.Overhead

	// EncryptedChunkSize is the on-the-wire size of one full chunk.
	EncryptedChunkSize = StreamChunkSize + StreamChunkOverhead
)

// Chunk tags. TagMessage marks an intermediate chunk, TagFinal the last
// chunk of a stream.
const (
	TagMessage byte = 0x00
	TagFinal   byte = 0x03
)

var (
	ErrInvalidKey      = errors.New("invalid stream key")
	ErrInvalidHeader   = errors.New("invalid stream header")
	ErrStreamFinalized = errors.New("stream already finalized")
)

// NewStreamKey generates a fresh per-file key. The key lives only in memory
// for the duration of one file's encrypt/upload; wipe it when done.
func NewStreamKey() []byte {
	return common.GenerateRandByteArray(StreamKeySize)
}

// Encryptor encrypts a stream chunk by chunk. Chunks must be pushed in
// order; Push after TagFinal fails.
type Encryptor struct {
	aead      cipher.AEAD
	header    []byte
	counter   uint32
	finalized bool
}

// Decryptor is the inverse of Encryptor and must pull chunks in the same
// order they were pushed.
type Decryptor struct {
	aead      cipher.AEAD
	header    []byte
	counter   uint32
	finalized bool
}

// NewEncryptor initializes a fresh stream state bound to key and returns
// the decryption header the receiver needs for the inverse operation.
func NewEncryptor(key []byte) (*Encryptor, []byte, error) {
	if len(key) != StreamKeySize {
		return nil, nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, err
	}
	header := common.GenerateRandByteArray(StreamHeaderSize)
	return &Encryptor{aead: aead, header: header}, header, nil
}

// NewDecryptor initializes a pull state from the key and the header
// produced by NewEncryptor.
func NewDecryptor(key, header []byte) (*Decryptor, error) {
	if len(key) != StreamKeySize {
		return nil, ErrInvalidKey
	}
	if len(header) != StreamHeaderSize {
		return nil, ErrInvalidHeader
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	h := make([]byte, StreamHeaderSize)
	copy(h, header)
	return &Decryptor{aead: aead, header: h}, nil
}

// chunkNonce mixes the chunk counter into the header so every chunk gets a
// distinct nonce and out-of-order chunks fail authentication.
func chunkNonce(header []byte, counter uint32) []byte {
	nonce := make([]byte, StreamHeaderSize)
	copy(nonce, header)
	var c [4]byte
	binary.LittleEndian.PutUint32(c[:], counter)
	for i := range c {
		nonce[StreamHeaderSize-4+i] ^= c[i]
	}
	return nonce
}

// Push encrypts the next chunk. The tag byte is authenticated together
// with the payload, so a stripped or altered final marker is detected on
// the pull side.
func (e *Encryptor) Push(plain []byte, tag byte) ([]byte, error) {
	if e.finalized {
		return nil, ErrStreamFinalized
	}
	nonce := chunkNonce(e.header, e.counter)
	out := make([]byte, 1, 1+len(plain)+chacha20poly1305.Overhead)
	out[0] = tag
	out = e.aead.Seal(out, nonce, plain, out[:1])
	e.counter++
	if tag == TagFinal {
		e.finalized = true
	}
	return out, nil
}

// Pull decrypts the next chunk and reports its tag. A MAC mismatch (or a
// chunk shorter than the minimum framing) yields common.ErrCryptoFailure;
// this is fatal for the stream and must not be retried.
func (d *Decryptor) Pull(cipher []byte) ([]byte, byte, error) {
	if d.finalized {
		return nil, 0, ErrStreamFinalized
	}
	if len(cipher) < StreamChunkOverhead {
		return nil, 0, common.ErrCryptoFailure
	}
	tag := cipher[0]
	nonce := chunkNonce(d.header, d.counter)
	plain, err := d.aead.Open(nil, nonce, cipher[1:], cipher[:1])
	if err != nil {
		return nil, 0, common.ErrCryptoFailure
	}
	d.counter++
	if tag == TagFinal {
		d.finalized = true
	}
	return plain, tag, nil
}

// ChunkCount returns the number of chunks a stream of the given plaintext
// size occupies. A zero-length stream still carries one (empty) final
// chunk so the authentication tag covers stream completion.
func ChunkCount(size int64) int64 {
	if size <= 0 {
		return 1
	}
	return (size + StreamChunkSize - 1) / StreamChunkSize
}

// EncryptedSize returns the ciphertext size for a plaintext of given size.
func EncryptedSize(size int64) int64 {
	return size + ChunkCount(size)*StreamChunkOverhead
}

// EncryptBytes encrypts a whole in-memory buffer, chunking internally, and
// returns the ciphertext and the decryption header.
func EncryptBytes(plain, key []byte) (cipher []byte, header []byte, err error) {
	enc, header, err := NewEncryptor(key)
	if err != nil {
		return nil, nil, err
	}
	total := ChunkCount(int64(len(plain)))
	cipher = make([]byte, 0, EncryptedSize(int64(len(plain))))
	for i := int64(0); i < total; i++ {
		start := i * StreamChunkSize
		end := start + StreamChunkSize
		if end > int64(len(plain)) {
			end = int64(len(plain))
		}
		tag := TagMessage
		if i == total-1 {
			tag = TagFinal
		}
		out, err := enc.Push(plain[start:end], tag)
		if err != nil {
			return nil, nil, err
		}
		cipher = append(cipher, out...)
	}
	return cipher, header, nil
}

// DecryptBytes reverses EncryptBytes. It fails with common.ErrCryptoFailure
// if any chunk fails authentication or the final chunk is not tagged final.
func DecryptBytes(cipher, header, key []byte) ([]byte, error) {
	dec, err := NewDecryptor(key, header)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, 0, len(cipher))
	var lastTag byte
	for len(cipher) > 0 {
		n := len(cipher)
		if n > EncryptedChunkSize {
			n = EncryptedChunkSize
		}
		out, tag, err := dec.Pull(cipher[:n])
		if err != nil {
			return nil, err
		}
		plain = append(plain, out...)
		lastTag = tag
		cipher = cipher[n:]
	}
	if lastTag != TagFinal {
		return nil, common.ErrCryptoFailure
	}
	return plain, nil
}

// WrapKey encrypts a per-file key under the owning collection's key and
// returns the ciphertext and the key decryption nonce. The plaintext file
// key never leaves the client.
func WrapKey(fileKey, collectionKey []byte) (encryptedKey, nonce []byte, err error) {
	aead, err := chacha20poly1305.NewX(collectionKey)
	if err != nil {
		return nil, nil, ErrInvalidKey
	}
	nonce = common.GenerateRandByteArray(chacha20poly1305.NonceSizeX)
	encryptedKey = aead.Seal(nil, nonce, fileKey, nil)
	return encryptedKey, nonce, nil
}

// UnwrapKey reverses WrapKey.
func UnwrapKey(encryptedKey, nonce, collectionKey []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(collectionKey)
	if err != nil {
		return nil, ErrInvalidKey
	}
	fileKey, err := aead.Open(nil, nonce, encryptedKey, nil)
	if err != nil {
		return nil, common.ErrCryptoFailure
	}
	return fileKey, nil
}
