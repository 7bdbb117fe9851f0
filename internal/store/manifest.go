package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/DeepEL/core/cas"
	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/internal/fileutil"
)

// Digest returns the BLAKE3 hash of the compact dataset JSON. Document order
// is part of the digest.
func Digest(ds *ir.Dataset) (string, error) {
	data, err := ir.Marshal(ds)
	if err != nil {
		return "", fmt.Errorf("failed to encode dataset %s: %w", ds.Name, err)
	}
	return cas.Sum(data), nil
}

// Manifest records how a dataset file was produced.
type Manifest struct {
	RunID     string    `json:"run_id"`
	Dataset   string    `json:"dataset"`
	Mode      string    `json:"mode"`
	Source    string    `json:"source"`
	Output    string    `json:"output,omitempty"`
	Digest    string    `json:"digest"`
	Snapshot  string    `json:"snapshot,omitempty"`
	Stats     ir.Stats  `json:"stats"`
	CreatedAt time.Time `json:"created_at"`
}

// NewManifest describes ds as parsed from source. The mode is ds.Format.
func NewManifest(ds *ir.Dataset, source string) (*Manifest, error) {
	digest, err := Digest(ds)
	if err != nil {
		return nil, err
	}
	return &Manifest{
		RunID:     uuid.NewString(),
		Dataset:   ds.Name,
		Mode:      ds.Format,
		Source:    source,
		Digest:    digest,
		Stats:     ir.ComputeStats(ds),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ManifestPath returns the manifest file that sits next to a dataset output.
func ManifestPath(output string) string {
	return output + ".manifest.json"
}

// WriteManifest writes m to path atomically.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", Indent)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n')); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// Snapshot stores the compact dataset JSON in a content-addressed store and
// records the blob hash in m. The hash equals m.Digest.
func Snapshot(s *cas.Store, ds *ir.Dataset, m *Manifest) error {
	data, err := ir.Marshal(ds)
	if err != nil {
		return err
	}
	hash, err := s.Put(data)
	if err != nil {
		return err
	}
	if m != nil {
		m.Snapshot = s.Path(hash)
	}
	return nil
}
