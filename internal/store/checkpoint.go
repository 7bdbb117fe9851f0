package store

import (
	"sync"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
)

// Checkpoint persists a dataset one document at a time so a long enrichment
// run can resume where it stopped. Every Save rewrites the file atomically.
type Checkpoint struct {
	path string

	mu sync.Mutex
	ds *ir.Dataset
}

// OpenCheckpoint loads the checkpoint at path, or starts an empty one when
// the file does not exist yet.
func OpenCheckpoint(path, format string) (*Checkpoint, error) {
	ds, err := ReadDataset(path, format)
	switch {
	case err == nil:
		logging.Info("resuming checkpoint", "path", path, "documents", ds.Len())
	case errors.Is(err, errors.ErrNotFound):
		ds = ir.NewDataset(DatasetName(path), format)
	default:
		return nil, err
	}
	return &Checkpoint{path: path, ds: ds}, nil
}

// Path returns the checkpoint file.
func (c *Checkpoint) Path() string {
	return c.path
}

// Done reports whether doc was already saved.
func (c *Checkpoint) Done(doc string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ds.Has(doc)
}

// Get returns the saved instance for doc.
func (c *Checkpoint) Get(doc string) (*ir.Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ds.Get(doc)
}

// Len returns the number of saved documents.
func (c *Checkpoint) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ds.Len()
}

// Save records inst and rewrites the checkpoint file.
func (c *Checkpoint) Save(inst *ir.Instance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ds.Put(inst)
	return WriteDataset(c.path, c.ds)
}

// Dataset returns the saved documents in save order.
func (c *Checkpoint) Dataset() *ir.Dataset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ds
}
