// Package xmlanno reads the line-oriented XML annotation datasets (ACE2004,
// AQUAINT, MSNBC, the WNED Wikipedia and ClueWeb sets) together with their raw
// document texts.
//
// A dataset lives in {root}/{dataset}/ as a RawText directory holding one file
// per document and a {dataset}.xml annotation file. The annotation file is
// read as a stream of lines rather than as XML because mentions may span lines
// and the markup is not always well formed.
package xmlanno

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/encoding"
	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
	"github.com/FocuswithJustin/DeepEL/internal/formats/base"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
)

// FormatName is the reader mode implemented by this package.
const FormatName = "xml"

// RawTextDir is the directory of per-document texts inside a dataset.
const RawTextDir = "RawText"

const nilEntity = "NIL"

// Options controls XML annotation parsing.
type Options struct {
	// AllowShift searches near the stated offset when the text there does not
	// match the mention.
	AllowShift bool

	// ShiftBefore and ShiftAfter bound the search, in code points. When
	// AllowShift is set and both are zero the default 10/100 window is used.
	ShiftBefore int
	ShiftAfter  int

	// AllowNIL keeps mentions without an entity.
	AllowNIL bool

	// AllowRepeat tolerates a second, different record at a span that already
	// has one. The first record is kept.
	AllowRepeat bool

	// HasProb requires a prob element in every annotation and stores it.
	HasProb bool
}

// OptionsFrom extracts the XML options from the shared reader options.
func OptionsFrom(o plugins.Options) Options {
	return Options{
		AllowShift:  o.AllowShift,
		ShiftBefore: o.ShiftBefore,
		ShiftAfter:  o.ShiftAfter,
		AllowNIL:    o.AllowNIL,
		AllowRepeat: o.AllowRepeat,
		HasProb:     o.HasProb,
	}
}

// Field order inside an annotation. prob and entity are optional.
var fieldOrder = []string{"mention", "wikiName", "offset", "length", "prob", "entity"}

func fieldIndex(name string) int {
	for i, f := range fieldOrder {
		if f == name {
			return i
		}
	}
	return -1
}

// record is one annotation after alignment.
type record struct {
	start   int
	end     int
	mention string
	entity  string
	prob    float64
}

// pending collects the fields of the annotation being read.
type pending struct {
	line   int
	next   int
	values map[string]string
}

// counts are reported in the parse summary.
type counts struct {
	linked  int
	nils    int
	shifted int
	length  int
	dupes   int
}

// assembler folds tokenizer events into per-document records.
type assembler struct {
	path  string
	opts  Options
	texts map[string]string

	order   []string
	records map[string][]record
	runes   map[string][]rune

	doc  string
	anno *pending
	n    counts
}

// ReadRawTexts reads every file of dir into doc_name -> text, with "&amp;"
// unescaped and line endings normalized to LF.
func ReadRawTexts(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("raw text directory", dir)
		}
		return nil, errors.NewIO("read", dir, err)
	}
	texts := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.NewIO("read", p, err)
		}
		texts[e.Name()] = encoding.UnescapeAmp(encoding.NormalizeNewlines(string(data)))
	}
	return texts, nil
}

// Parse reads annotations from r against the given document texts. name
// becomes the dataset name; path is used in errors.
func Parse(r io.Reader, path, name string, texts map[string]string, opts Options) (*ir.Dataset, error) {
	if opts.ShiftBefore < 0 || opts.ShiftAfter < 0 {
		return nil, errors.NewConfig("shift", fmt.Sprintf("%d/%d", opts.ShiftBefore, opts.ShiftAfter), "shift bounds must not be negative")
	}
	if opts.AllowShift && opts.ShiftBefore == 0 && opts.ShiftAfter == 0 {
		opts.ShiftBefore, opts.ShiftAfter = plugins.DefaultShiftBefore, plugins.DefaultShiftAfter
	}

	a := &assembler{
		path:    path,
		opts:    opts,
		texts:   texts,
		records: make(map[string][]record),
		runes:   make(map[string][]rune),
	}

	tok := NewTokenizer(r, path)
	for tok.Next() {
		if err := a.event(tok.Event()); err != nil {
			return nil, err
		}
	}
	if err := tok.Err(); err != nil {
		return nil, err
	}
	return a.dataset(name)
}

// ParseDir reads the dataset stored under {root}/{name}.
func ParseDir(root, name string, opts Options) (*ir.Dataset, error) {
	dir := filepath.Join(root, name)
	texts, err := ReadRawTexts(filepath.Join(dir, RawTextDir))
	if err != nil {
		return nil, err
	}
	xmlPath := filepath.Join(dir, name+".xml")
	f, err := base.OpenFile(xmlPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, xmlPath, name, texts, opts)
}

func (a *assembler) errorf(line int, msg string, args ...interface{}) error {
	return errors.NewParsef(FormatName, a.path, line, msg, args...)
}

func (a *assembler) event(ev Event) error {
	switch ev.Type {
	case EventDocument:
		return a.document(ev)
	case EventAnnotationStart:
		if a.doc == "" {
			return a.errorf(ev.Line, "annotation outside any document")
		}
		a.anno = &pending{line: ev.Line, values: make(map[string]string)}
	case EventField:
		return a.field(ev)
	case EventAnnotationEnd:
		return a.finish(ev)
	}
	return nil
}

func (a *assembler) document(ev Event) error {
	name := strings.ReplaceAll(encoding.UnescapeAmp(ev.Name), " ", "_")
	text, ok := a.texts[name]
	if !ok {
		return a.errorf(ev.Line, "document %q has no raw text", name)
	}
	a.doc = name
	if _, seen := a.records[name]; !seen {
		a.order = append(a.order, name)
		a.records[name] = nil
		a.runes[name] = []rune(text)
	}
	return nil
}

func (a *assembler) required(i int) bool {
	switch fieldOrder[i] {
	case "prob":
		return a.opts.HasProb
	case "entity":
		return false
	}
	return true
}

func (a *assembler) field(ev Event) error {
	if a.anno == nil {
		return a.errorf(ev.Line, "<%s> outside an annotation", ev.Name)
	}
	i := fieldIndex(ev.Name)
	if i < 0 {
		return a.errorf(ev.Line, "unknown annotation field <%s>", ev.Name)
	}
	if i < a.anno.next {
		return a.errorf(ev.Line, "<%s> out of order", ev.Name)
	}
	if err := a.missing(a.anno.next, i, ev.Line); err != nil {
		return err
	}
	a.anno.values[ev.Name] = ev.Value
	a.anno.next = i + 1
	return nil
}

// missing reports the first required field in fieldOrder[from:to].
func (a *assembler) missing(from, to, line int) error {
	for j := from; j < to; j++ {
		if a.required(j) {
			return a.errorf(line, "annotation is missing <%s>", fieldOrder[j])
		}
	}
	return nil
}

func (a *assembler) finish(ev Event) error {
	p := a.anno
	a.anno = nil
	if p == nil {
		return a.errorf(ev.Line, "</annotation> without <annotation>")
	}
	if err := a.missing(p.next, len(fieldOrder), p.line); err != nil {
		return err
	}

	mention := strings.ReplaceAll(encoding.UnescapeAmp(p.values["mention"]), "_", " ")
	entity := strings.ReplaceAll(encoding.UnescapeAmp(p.values["wikiName"]), "_", " ")
	if entity == nilEntity {
		entity = ""
	}

	offset, err := strconv.Atoi(strings.TrimSpace(p.values["offset"]))
	if err != nil {
		return a.errorf(p.line, "offset %q is not an integer", p.values["offset"])
	}
	stated, err := strconv.Atoi(strings.TrimSpace(p.values["length"]))
	if err != nil {
		return a.errorf(p.line, "length %q is not an integer", p.values["length"])
	}
	var prob float64
	if raw, ok := p.values["prob"]; ok {
		if prob, err = strconv.ParseFloat(strings.TrimSpace(raw), 64); err != nil {
			return a.errorf(p.line, "prob %q is not a number", raw)
		}
	}

	length := ir.RuneLen(mention)
	if length != stated {
		a.n.length++
		logging.ParseWarning(FormatName, a.doc, "stated length differs from mention",
			"mention", mention, "offset", offset, "length", length, "stated", stated)
	}

	start, err := a.align(mention, offset, length)
	if err != nil {
		return err
	}
	if start != offset {
		a.n.shifted++
	}
	rec := record{start: start, end: start + length, mention: mention, entity: entity}
	if a.opts.HasProb {
		rec.prob = prob
	}
	return a.add(rec, p.line)
}

// align returns the start of mention, searching around offset when shift
// recovery is enabled.
func (a *assembler) align(mention string, offset, length int) (int, error) {
	text := a.runes[a.doc]
	if found, ok := ir.SliceRunes(text, offset, offset+length); ok && found == mention {
		return offset, nil
	}
	found, _ := ir.SliceRunes(text, offset, offset+length)
	if !a.opts.AllowShift {
		return 0, errors.NewAlignment(a.doc, offset, offset+length, mention, found)
	}

	from := offset - a.opts.ShiftBefore
	if from < 0 {
		from = 0
	}
	for p := from; p <= offset+a.opts.ShiftAfter; p++ {
		if window, ok := ir.SliceRunes(text, p, p+length); ok && window == mention {
			logging.Debug("mention shifted", "format", FormatName, "doc", a.doc,
				"mention", mention, "offset", offset, "found", p)
			return p, nil
		}
	}
	return 0, errors.NewAlignment(a.doc, offset, offset+length, mention, found)
}

func (a *assembler) add(rec record, line int) error {
	if rec.entity == "" {
		a.n.nils++
		if !a.opts.AllowNIL {
			return nil
		}
	} else {
		a.n.linked++
	}

	for _, prev := range a.records[a.doc] {
		if prev == rec {
			a.n.dupes++
			return nil
		}
		if prev.start == rec.start && prev.end == rec.end {
			if !a.opts.AllowRepeat {
				key := fmt.Sprintf("%s[%d:%d]", a.doc, rec.start, rec.end)
				return errors.NewConsistency(key, prev.mention+" -> "+prev.entity, rec.mention+" -> "+rec.entity)
			}
			logging.ParseWarning(FormatName, a.doc, "repeated annotation ignored",
				"line", line, "start", rec.start, "end", rec.end, "entity", rec.entity)
			return nil
		}
	}
	a.records[a.doc] = append(a.records[a.doc], rec)
	return nil
}

// dataset builds the instances in document order. Documents without
// annotations are kept.
func (a *assembler) dataset(name string) (*ir.Dataset, error) {
	var fields ir.Fields
	if a.opts.HasProb {
		fields = ir.FieldProbs
	}

	ds := ir.NewDataset(name, FormatName)
	mentions := 0
	for _, doc := range a.order {
		recs := a.records[doc]
		sort.SliceStable(recs, func(i, j int) bool {
			if recs[i].start != recs[j].start {
				return recs[i].start < recs[j].start
			}
			return recs[i].end < recs[j].end
		})

		inst := ir.NewInstance(doc, a.texts[doc], fields)
		for _, r := range recs {
			if err := inst.AddSpan(ir.Span{
				Start:   r.start,
				End:     r.end,
				Mention: r.mention,
				Name:    r.entity,
				Prob:    r.prob,
			}); err != nil {
				return nil, err
			}
		}
		mentions += inst.Len()
		ds.Add(inst)
	}

	logging.ParseSummary(FormatName, "path", a.path, "documents", ds.Len(), "mentions", mentions,
		"linked", a.n.linked, "nil", a.n.nils, "shifted", a.n.shifted,
		"length_mismatch", a.n.length, "duplicates", a.n.dupes)
	return ds, nil
}
