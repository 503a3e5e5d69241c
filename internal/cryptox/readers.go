package cryptox

import (
	"errors"
	"io"

	"github.com/photosafe/photosafe/internal/common"
)

// EncryptingReader turns a plaintext source into a lazy ciphertext stream.
// The total chunk count is computed up front from the source size so the
// final chunk can be tagged for authentication finalization, which is why
// the exact size must be known before streaming starts.
//
// Chunks are produced one at a time: no new plaintext is read until the
// previous ciphertext chunk has been fully consumed, so backpressure comes
// for free through Read.
type EncryptingReader struct {
	src    io.Reader
	enc    *Encryptor
	header []byte

	total int64
	idx   int64

	buf  []byte
	err  error
	done bool
}

// NewEncryptingReader initializes streaming encryption of a source of the
// given plaintext size with a fresh stream state bound to key.
func NewEncryptingReader(src io.Reader, size int64, key []byte) (*EncryptingReader, error) {
	enc, header, err := NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	return &EncryptingReader{
		src:    src,
		enc:    enc,
		header: header,
		total:  ChunkCount(size),
	}, nil
}

// Header returns the decryption header for the stream.
func (r *EncryptingReader) Header() []byte { return r.header }

// TotalChunks returns the number of ciphertext chunks the stream produces.
func (r *EncryptingReader) TotalChunks() int64 { return r.total }

func (r *EncryptingReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(r.buf) == 0 {
		if r.done {
			return 0, io.EOF
		}
		if err := r.fill(); err != nil {
			r.err = err
			return 0, err
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *EncryptingReader) fill() error {
	chunk := make([]byte, StreamChunkSize)
	n, err := io.ReadFull(r.src, chunk)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	last := r.idx == r.total-1
	if !last && n < StreamChunkSize {
		// Source ended before the promised size was delivered.
		return io.ErrUnexpectedEOF
	}
	tag := TagMessage
	if last {
		tag = TagFinal
	}
	out, err := r.enc.Push(chunk[:n], tag)
	if err != nil {
		return err
	}
	r.buf = out
	r.idx++
	if last {
		r.done = true
	}
	return nil
}

// DecryptingReader turns a ciphertext stream back into plaintext. The
// source may deliver bytes in arbitrarily sized transport frames; they are
// re-buffered into fixed-size ciphertext chunks before each Pull, with a
// final partial chunk flushed at stream end. This re-chunking is mandatory
// because network delivery boundaries are unrelated to the cryptographic
// chunk boundaries.
type DecryptingReader struct {
	src io.Reader
	dec *Decryptor

	acc   []byte
	out   []byte
	err   error
	srcEO bool
}

// NewDecryptingReader initializes streaming decryption with the key and the
// header produced during encryption.
func NewDecryptingReader(src io.Reader, key, header []byte) (*DecryptingReader, error) {
	dec, err := NewDecryptor(key, header)
	if err != nil {
		return nil, err
	}
	return &DecryptingReader{src: src, dec: dec}, nil
}

func (r *DecryptingReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	for len(r.out) == 0 {
		if err := r.advance(); err != nil {
			r.err = err
			return 0, err
		}
	}
	n := copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}

// advance refills the plaintext buffer: it accumulates source bytes until a
// full ciphertext chunk is buffered (keeping at least one byte back so the
// final, possibly short chunk is only decrypted once EOF is certain), then
// pulls it.
func (r *DecryptingReader) advance() error {
	for !r.srcEO && len(r.acc) <= EncryptedChunkSize {
		frame := make([]byte, 64*1024)
		n, err := r.src.Read(frame)
		if n > 0 {
			r.acc = append(r.acc, frame[:n]...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return err
			}
			r.srcEO = true
		}
	}
	if len(r.acc) > EncryptedChunkSize {
		plain, _, err := r.dec.Pull(r.acc[:EncryptedChunkSize])
		if err != nil {
			return err
		}
		r.acc = r.acc[EncryptedChunkSize:]
		r.out = plain
		return nil
	}
	// Source exhausted: flush the final (possibly partial) chunk.
	if len(r.acc) > 0 {
		plain, tag, err := r.dec.Pull(r.acc)
		if err != nil {
			return err
		}
		if tag != TagFinal {
			// The stream ended without its final marker: truncated.
			return common.ErrCryptoFailure
		}
		r.acc = nil
		r.out = plain
		return nil
	}
	return io.EOF
}
