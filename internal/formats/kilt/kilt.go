// Package kilt reads KILT/GENRE style JSON-lines records. Each record is one
// document whose input text marks a single mention with "[START_ENT] ".
package kilt

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/internal/formats/base"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
)

// FormatName is the reader mode implemented by this package.
const FormatName = "jsonl-records"

// StartMarker precedes the mention in a record's input.
const StartMarker = "[START_ENT] "

// Record is one line of the input.
type Record struct {
	ID    json.RawMessage `json:"id"`
	Input string          `json:"input"`
	Meta  struct {
		Mention string `json:"mention"`
	} `json:"meta"`
	Output []struct {
		Answer string `json:"answer"`
	} `json:"output"`
	Candidates []string `json:"candidates"`
}

// DocName returns the record id as a string. Numeric ids keep their JSON text.
func (r *Record) DocName() string {
	var s string
	if err := json.Unmarshal(r.ID, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(r.ID))
}

// Parse reads records from r. A repeated id replaces the earlier record.
func Parse(r io.Reader, path string) (*ir.Dataset, error) {
	ds := ir.NewDataset(datasetName(path), FormatName)
	lines := base.NewLineReader(r, path)
	for lines.Next() {
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, errors.NewParsef(FormatName, path, lines.Line(), "invalid JSON: %v", err)
		}
		inst, err := Convert(&rec)
		if err != nil {
			var perr *errors.ParseError
			if errors.As(err, &perr) {
				perr.Path, perr.Line = path, lines.Line()
			}
			return nil, err
		}
		if ds.Has(inst.DocName) {
			logging.ParseWarning(FormatName, inst.DocName, "repeated id replaces earlier record", "line", lines.Line())
		}
		ds.Put(inst)
	}
	if err := lines.Err(); err != nil {
		return nil, err
	}
	logging.ParseSummary(FormatName, "path", path, "documents", ds.Len())
	return ds, nil
}

// ParseFile reads the records file at path.
func ParseFile(path string) (*ir.Dataset, error) {
	f, err := base.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

// Convert maps one record onto an Instance with a single span.
func Convert(rec *Record) (*ir.Instance, error) {
	name := rec.DocName()
	if name == "" || name == "null" {
		return nil, errors.NewParse(FormatName, "", 0, "record has no id")
	}
	if len(rec.Output) == 0 {
		return nil, errors.NewParsef(FormatName, "", 0, "record %s has no output", name)
	}
	i := strings.Index(rec.Input, StartMarker)
	if i < 0 {
		return nil, errors.NewParsef(FormatName, "", 0, "record %s has no %q marker", name, StartMarker)
	}

	start := ir.RuneOffset(rec.Input, i) + ir.RuneLen(StartMarker)
	end := start + ir.RuneLen(rec.Meta.Mention)

	cands := rec.Candidates
	if cands == nil {
		cands = []string{}
	}
	inst := ir.NewInstance(name, rec.Input, ir.FieldCandidates)
	if err := inst.AddSpan(ir.Span{
		Start:      start,
		End:        end,
		Mention:    rec.Meta.Mention,
		Name:       rec.Output[0].Answer,
		Candidates: cands,
	}); err != nil {
		return nil, err
	}
	return inst, nil
}

func datasetName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
