// Package cas provides content-addressed storage for dataset snapshots.
// Blobs are stored by their BLAKE3 hash, so identical parses deduplicate and
// a manifest digest can be checked against the stored bytes.
package cas

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/DeepEL/internal/fileutil"
)

// ErrBlobNotFound is returned when a blob with the given hash does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidHash is returned when a hash string is not a 64-character hex string.
var ErrInvalidHash = errors.New("invalid hash format")

// ErrCorrupt is returned when stored bytes no longer match their hash.
var ErrCorrupt = errors.New("blob content does not match its hash")

var hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Sum returns the hex BLAKE3-256 hash of data.
func Sum(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Store is a directory of blobs addressed by BLAKE3 hash.
type Store struct {
	root string
}

// NewStore creates the store layout under root if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "blobs", "blake3"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Put stores data and returns its hash. Storing the same bytes twice is a no-op.
func (s *Store) Put(data []byte) (string, error) {
	hash := Sum(data)
	path := s.pathForHash(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// Get returns the blob for hash after verifying its content.
func (s *Store) Get(hash string) ([]byte, error) {
	if !hashPattern.MatchString(hash) {
		return nil, ErrInvalidHash
	}
	data, err := os.ReadFile(s.pathForHash(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	if Sum(data) != hash {
		return nil, ErrCorrupt
	}
	return data, nil
}

// Has reports whether a blob with hash is stored.
func (s *Store) Has(hash string) bool {
	if !hashPattern.MatchString(hash) {
		return false
	}
	_, err := os.Stat(s.pathForHash(hash))
	return err == nil
}

// Path returns where the blob for hash lives: <root>/blobs/blake3/<first2>/<hash>.
func (s *Store) Path(hash string) string {
	return s.pathForHash(hash)
}

func (s *Store) pathForHash(hash string) string {
	return filepath.Join(s.root, "blobs", "blake3", hash[:2], hash)
}
