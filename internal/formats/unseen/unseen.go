// Package unseen reads the unseen-mentions corpus: one JSON object per line,
// each a single tokenized mention between a left and a right context.
package unseen

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/internal/formats/base"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
)

// FormatName is the reader mode implemented by this package.
const FormatName = "unseen-mentions"

// Record is one line of the corpus.
type Record struct {
	MentionTokens []string `json:"mention_as_list"`
	Title         string   `json:"y_title"`
	Left          string   `json:"left_context_text"`
	Right         string   `json:"right_context_text"`
}

// Parse reads records from r. Documents are named by their zero-based line
// index, so blank lines leave gaps in the numbering.
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
		if rec.MentionTokens == nil {
			return nil, errors.NewParse(FormatName, path, lines.Line(), "record has no mention_as_list")
		}
		inst, err := Convert(strconv.Itoa(lines.Line()-1), &rec)
		if err != nil {
			return nil, err
		}
		ds.Put(inst)
	}
	if err := lines.Err(); err != nil {
		return nil, err
	}
	logging.ParseSummary(FormatName, "path", path, "documents", ds.Len())
	return ds, nil
}

// ParseFile reads the corpus file at path.
func ParseFile(path string) (*ir.Dataset, error) {
	f, err := base.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

// Convert builds the single-span instance for one record.
func Convert(docName string, rec *Record) (*ir.Instance, error) {
	mention := strings.Join(rec.MentionTokens, " ")
	start := ir.RuneLen(rec.Left) + 1
	inst := ir.NewInstance(docName, rec.Left+" "+mention+" "+rec.Right, 0)
	if err := inst.AddSpan(ir.Span{
		Start:   start,
		End:     start + ir.RuneLen(mention),
		Mention: mention,
		Name:    rec.Title,
	}); err != nil {
		return nil, err
	}
	return inst, nil
}

func datasetName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
