// Package document stores uploaded plain-text documents and reads them back
// in bounded chunks.
package document

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEndOfDocument means no content is left at the requested offset.
	ErrEndOfDocument = errors.New("document: end of document")
	// ErrDocumentNotFound means the reference no longer resolves.
	ErrDocumentNotFound = errors.New("document: not found")
)

// Source opens documents by reference.
type Source interface {
	Open(ref string) (io.ReadSeekCloser, error)
}

// Chunker reads documents chunk by chunk. A chunk unit is one character
// (UTF-8 code point); offsets are byte positions so re-seeking is exact.
type Chunker struct {
	src Source
}

// NewChunker creates a Chunker over src.
func NewChunker(src Source) (*Chunker, error) {
	if src == nil {
		return nil, errors.New("document: source must not be nil")
	}
	return &Chunker{src: src}, nil
}

// ReadChunk returns up to chunkSize characters starting at byte offset and the
// byte offset right after the last character returned. It returns
// ErrEndOfDocument when nothing is left to read.
func (c *Chunker) ReadChunk(ctx context.Context, ref string, offset int64, chunkSize int) (string, int64, error) {
	if chunkSize <= 0 {
		return "", 0, fmt.Errorf("document: chunk size must be positive, got %d", chunkSize)
	}
	if offset < 0 {
		return "", 0, fmt.Errorf("document: offset must not be negative, got %d", offset)
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	f, err := c.src.Open(ref)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return "", 0, fmt.Errorf("document: seek %q to %d: %w", ref, offset, err)
	}

	r := bufio.NewReader(f)
	var (
		sb       strings.Builder
		consumed int64
	)
	for n := 0; n < chunkSize; n++ {
		ch, size, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, fmt.Errorf("document: read %q: %w", ref, err)
		}
		if ch == utf8.RuneError && size == 1 {
			// Pass invalid bytes through unchanged so chunks concatenate
			// back to the original content.
			if err := r.UnreadRune(); err != nil {
				return "", 0, fmt.Errorf("document: read %q: %w", ref, err)
			}
			b, err := r.ReadByte()
			if err != nil {
				return "", 0, fmt.Errorf("document: read %q: %w", ref, err)
			}
			sb.WriteByte(b)
		} else {
			sb.WriteRune(ch)
		}
		consumed += int64(size)
	}
	if consumed == 0 {
		return "", offset, ErrEndOfDocument
	}
	return sb.String(), offset + consumed, nil
}
