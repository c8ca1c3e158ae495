package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// IOError reports a tracked file that could not be read
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Hasher computes a stable digest of a file's content
type Hasher interface {
	Hash(path string) (string, error)
}

// FileHasher hashes file bytes with SHA256
// Nothing is cached, every call reads the file again
type FileHasher struct {
	fs afero.Fs
}

// NewFileHasher creates a hasher reading from fs
// If fs is nil, the OS filesystem is used
func NewFileHasher(fs afero.Fs) *FileHasher {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &FileHasher{fs: fs}
}

// Hash returns the hex encoded SHA256 of the file content
func (h *FileHasher) Hash(path string) (string, error) {
	f, err := h.fs.Open(path)
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	defer f.Close()

	d := sha256.New()
	if _, err := io.Copy(d, f); err != nil {
		return "", &IOError{Path: path, Err: err}
	}

	return hex.EncodeToString(d.Sum(nil)), nil
}
