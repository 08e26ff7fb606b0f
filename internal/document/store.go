package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"book-reader-bot/internal/domain"
)

// FileStore keeps uploaded documents under a root directory, one file per
// reader and file name.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("document: root directory must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("document: create root %q: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

// Save writes data for reader and returns the document reference. The write
// goes through a temporary file so a reader never sees a partial document.
func (s *FileStore) Save(ctx context.Context, reader domain.ReaderID, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("document: invalid file name %q", filename)
	}
	ref := filepath.Join(s.root, strconv.FormatInt(int64(reader), 10)+"_"+name)

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("document: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("document: write %q: %w", ref, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("document: close %q: %w", ref, err)
	}
	if err := os.Rename(tmp.Name(), ref); err != nil {
		return "", fmt.Errorf("document: store %q: %w", ref, err)
	}
	return ref, nil
}

// Open opens a stored document for reading.
func (s *FileStore) Open(ref string) (io.ReadSeekCloser, error) {
	f, err := os.Open(ref)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document: open %q: %w", ref, err)
	}
	return f, nil
}

// Remove deletes a stored document. Missing documents are not an error.
func (s *FileStore) Remove(ref string) error {
	err := os.Remove(ref)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("document: remove %q: %w", ref, err)
	}
	return nil
}
