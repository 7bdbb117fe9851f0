// Package store persists normalized datasets: pretty JSON files (optionally
// xz-compressed), resumable checkpoints, run manifests and SQLite exports.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/internal/fileutil"
)

// Indent is the indentation of written dataset files.
const Indent = "    "

// XZSuffix selects xz compression for reads and writes.
const XZSuffix = ".xz"

// Encode writes ds as indented JSON keyed by document name. Non-ASCII text
// and <, > and & are written unescaped.
func Encode(w io.Writer, ds *ir.Dataset) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", Indent)
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("failed to encode dataset %s: %w", ds.Name, err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Decode reads a dataset written by Encode.
func Decode(r io.Reader, name, format string) (*ir.Dataset, error) {
	ds := ir.NewDataset(name, format)
	if err := json.NewDecoder(r).Decode(ds); err != nil {
		return nil, errors.NewParsef("json", "", 0, "invalid dataset: %v", err)
	}
	return ds, nil
}

// WriteDataset writes ds to path atomically. A path ending in .xz is
// compressed.
func WriteDataset(path string, ds *ir.Dataset) error {
	err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		if !strings.HasSuffix(path, XZSuffix) {
			return Encode(w, ds)
		}
		xw, err := xz.NewWriter(w)
		if err != nil {
			return fmt.Errorf("xz writer: %w", err)
		}
		if err := Encode(xw, ds); err != nil {
			xw.Close()
			return err
		}
		return xw.Close()
	})
	if err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// ReadDataset reads a dataset file written by WriteDataset. The dataset is
// named after the file.
func ReadDataset(path, format string) (*ir.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("dataset", path)
		}
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, XZSuffix) {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, errors.NewParsef("json", path, 0, "xz reader: %v", err)
		}
		r = xr
	}
	ds, err := Decode(r, DatasetName(path), format)
	if err != nil {
		var perr *errors.ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return ds, nil
}

// DatasetName strips directories and the .json / .json.xz suffixes.
func DatasetName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), XZSuffix)
	return strings.TrimSuffix(name, ".json")
}
