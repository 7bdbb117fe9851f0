package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Dataset is an insertion-ordered mapping from document name to Instance.
// A Dataset is built by one parse call and is not safe for concurrent mutation.
type Dataset struct {
	// Name is the dataset name (e.g., "aida-testb", "ace2004").
	Name string

	// Format is the reader mode that produced the dataset.
	Format string

	order []string
	docs  map[string]*Instance
}

// NewDataset creates an empty dataset.
func NewDataset(name, format string) *Dataset {
	return &Dataset{
		Name:   name,
		Format: format,
		docs:   make(map[string]*Instance),
	}
}

// Add stores inst under its DocName unless that name is already present.
// It reports whether inst was stored.
func (d *Dataset) Add(inst *Instance) bool {
	d.init()
	if _, ok := d.docs[inst.DocName]; ok {
		return false
	}
	d.order = append(d.order, inst.DocName)
	d.docs[inst.DocName] = inst
	return true
}

// Put stores inst under its DocName, replacing any earlier instance while
// keeping the original position.
func (d *Dataset) Put(inst *Instance) {
	d.init()
	if _, ok := d.docs[inst.DocName]; !ok {
		d.order = append(d.order, inst.DocName)
	}
	d.docs[inst.DocName] = inst
}

// Get returns the instance for name.
func (d *Dataset) Get(name string) (*Instance, bool) {
	inst, ok := d.docs[name]
	return inst, ok
}

// Has reports whether name is present.
func (d *Dataset) Has(name string) bool {
	_, ok := d.docs[name]
	return ok
}

// Len returns the number of documents.
func (d *Dataset) Len() int {
	return len(d.order)
}

// Names returns document names in insertion order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Instances returns instances in insertion order.
func (d *Dataset) Instances() []*Instance {
	out := make([]*Instance, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.docs[name])
	}
	return out
}

func (d *Dataset) init() {
	if d.docs == nil {
		d.docs = make(map[string]*Instance)
	}
}

// MarshalJSON encodes the dataset as an object keyed by document name, in
// insertion order.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := Marshal(d.docs[name])
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keyed by document name, keeping key order.
// Instances without a doc_name take the key as their name.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("dataset must be a JSON object, got %v", tok)
	}

	d.order = nil
	d.docs = make(map[string]*Instance)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected document name, got %v", tok)
		}
		inst := &Instance{}
		if err := dec.Decode(inst); err != nil {
			return fmt.Errorf("failed to decode %s: %w", name, err)
		}
		if inst.DocName == "" {
			inst.DocName = name
		}
		if inst.DocName != name {
			return fmt.Errorf("document %s carries doc_name %q", name, inst.DocName)
		}
		d.Put(inst)
	}
	_, err = dec.Token()
	return err
}
