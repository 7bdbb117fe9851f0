// Package conll reads token-tagged datasets (AIDA-CoNLL and its derivatives)
// into the canonical representation.
//
// A file is a sequence of "-DOCSTART- (name)" headers, each followed by one
// token per line with optional whitespace-separated columns. Blank lines are
// ignored. Entity spans are recovered from the BIO tags and projected onto the
// space-joined token text.
package conll

import (
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/encoding"
	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/internal/formats/base"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
)

// FormatName is the reader mode implemented by this package.
const FormatName = "token-tag"

const (
	docStart       = "-DOCSTART-"
	docStartPrefix = "-DOCSTART- ("
	nilName        = "--NME--"
)

// Options controls token-tag parsing.
type Options struct {
	// SplitKey keeps only documents whose name contains it. Empty keeps all.
	SplitKey string

	// Lenient skips lines with an unexpected column count instead of failing.
	Lenient bool
}

// TokenSpan is a span over token indices, End inclusive.
type TokenSpan struct {
	Start       int
	End         int
	Mention     string
	Name        string
	WikipediaID int
}

// TokenDocument is the token-level view of one document.
type TokenDocument struct {
	Name   string
	Tokens []string
	Tags   []string
	Spans  []TokenSpan
}

// row holds the columns of one token line.
type row struct {
	token   string
	tag     string
	mention string
	name    string
	wikiID  int
}

// parser holds the per-call accumulators.
type parser struct {
	path string
	opts Options

	docs []*TokenDocument
	seen map[string]bool

	name    string
	nameSet bool
	docLine int
	rows    []row
}

// ParseTokens reads the token-level documents of r in file order. path is
// used in errors.
func ParseTokens(r io.Reader, path string, opts Options) ([]*TokenDocument, error) {
	p := &parser{
		path: path,
		opts: opts,
		seen: make(map[string]bool),
	}

	lines := base.NewLineReader(r, path)
	for lines.Next() {
		if err := p.line(lines.Text(), lines.Line()); err != nil {
			return nil, err
		}
	}
	if err := lines.Err(); err != nil {
		return nil, err
	}
	if err := p.flush(); err != nil {
		return nil, err
	}
	return p.docs, nil
}

// Parse reads r into a character-level dataset.
func Parse(r io.Reader, path string, opts Options) (*ir.Dataset, error) {
	docs, err := ParseTokens(r, path, opts)
	if err != nil {
		return nil, err
	}

	ds := ir.NewDataset(datasetName(path), FormatName)
	mentions := 0
	for _, doc := range docs {
		inst, err := Project(doc)
		if err != nil {
			return nil, err
		}
		mentions += inst.Len()
		ds.Add(inst)
	}
	logging.ParseSummary(FormatName, "path", path, "documents", ds.Len(), "mentions", mentions)
	return ds, nil
}

// ParseFile reads the token-tag file at path.
func ParseFile(path string, opts Options) (*ir.Dataset, error) {
	f, err := base.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path, opts)
}

func datasetName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (p *parser) line(text string, lineNo int) error {
	if strings.HasPrefix(text, docStart) {
		if err := p.flush(); err != nil {
			return err
		}
		p.name = docName(text)
		p.nameSet = true
		p.docLine = lineNo
		return nil
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return nil
	}

	r, ok := parseRow(parts)
	if !ok {
		if p.opts.Lenient {
			logging.ParseWarning(FormatName, p.name, "unexpected column count, line skipped",
				"path", p.path, "line", lineNo, "columns", len(parts))
			return nil
		}
		return errors.NewParsef(FormatName, p.path, lineNo,
			"unexpected column count %d (want 1, 2, 4, 6 or 7)", len(parts))
	}
	if !p.nameSet {
		return errors.NewParse(FormatName, p.path, lineNo, "token line before any -DOCSTART- header")
	}
	p.rows = append(p.rows, r)
	return nil
}

// docName extracts the name from "-DOCSTART- (name)".
func docName(line string) string {
	if len(line) < len(docStartPrefix) {
		return ""
	}
	name := line[len(docStartPrefix):]
	name = strings.TrimSuffix(name, ")")
	return strings.TrimSpace(name)
}

func parseRow(parts []string) (row, bool) {
	r := row{token: parts[0], tag: "O", wikiID: ir.NoWikipediaID}
	switch len(parts) {
	case 1:
	case 2:
		r.tag = parts[1]
	case 4:
		// token, tag, name, url
		r.tag = parts[1]
		r.mention = parts[0]
		r.name = entityName(parts[2])
	case 6, 7:
		// token, tag, mention, name, url, wiki id[, freebase id]
		r.tag = parts[1]
		r.mention = encoding.UnescapeBackslash(parts[2])
		r.name = entityName(parts[3])
		r.wikiID = wikiID(parts[5])
	default:
		return row{}, false
	}
	return r, true
}

func entityName(raw string) string {
	name := encoding.UnescapeBackslash(raw)
	if name == nilName {
		return ""
	}
	return name
}

// wikiID returns the id when s is a positive decimal integer.
func wikiID(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return ir.NoWikipediaID
		}
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return ir.NoWikipediaID
	}
	return id
}

// flush closes the current document. Headers with no tokens produce nothing.
func (p *parser) flush() error {
	rows := p.rows
	p.rows = nil
	if len(rows) == 0 {
		return nil
	}
	if p.name == "" {
		return errors.NewParse(FormatName, p.path, p.docLine, "empty document name")
	}
	if p.seen[p.name] {
		logging.ParseWarning(FormatName, p.name, "repeated document ignored", "path", p.path, "line", p.docLine)
		return nil
	}
	if p.opts.SplitKey != "" && !strings.Contains(p.name, p.opts.SplitKey) {
		return nil
	}

	doc := &TokenDocument{
		Name:   p.name,
		Tokens: make([]string, len(rows)),
		Tags:   make([]string, len(rows)),
	}
	for i, r := range rows {
		doc.Tokens[i] = r.token
		doc.Tags[i] = r.tag
	}

	red := ReduceTags(doc.Tags)
	for _, i := range red.Skipped {
		logging.ParseWarning(FormatName, p.name, "unexpected tag skipped", "tag", doc.Tags[i], "index", i)
	}
	for _, i := range red.Orphans {
		logging.ParseWarning(FormatName, p.name, "I tag without an open span ignored", "index", i)
	}
	for _, i := range red.Unterminated {
		logging.ParseWarning(FormatName, p.name, "span without closing tag dropped", "index", i)
	}
	for _, s := range red.Spans {
		closing := rows[s.End]
		doc.Spans = append(doc.Spans, TokenSpan{
			Start:       s.Start,
			End:         s.End,
			Mention:     closing.mention,
			Name:        closing.name,
			WikipediaID: closing.wikiID,
		})
	}

	p.seen[p.name] = true
	p.docs = append(p.docs, doc)
	return nil
}

// Project converts a token-level document into an Instance over the
// space-joined tokens. Spans outside the token range are dropped with a
// warning.
func Project(doc *TokenDocument) (*ir.Instance, error) {
	sentence := strings.Join(doc.Tokens, " ")
	starts := make([]int, len(doc.Tokens))
	ends := make([]int, len(doc.Tokens))
	offset := 0
	for i, tok := range doc.Tokens {
		if i > 0 {
			offset++
		}
		starts[i] = offset
		offset += ir.RuneLen(tok)
		ends[i] = offset
	}

	inst := ir.NewInstance(doc.Name, sentence, ir.FieldWikipediaIDs)
	for _, s := range doc.Spans {
		if s.Start < 0 || s.End >= len(doc.Tokens) || s.Start > s.End {
			logging.ParseWarning(FormatName, doc.Name, "token span out of range dropped",
				"start", s.Start, "end", s.End, "tokens", len(doc.Tokens))
			continue
		}
		start, end := starts[s.Start], ends[s.End]
		mention, _ := inst.Slice(start, end)
		if err := inst.AddSpan(ir.Span{
			Start:       start,
			End:         end,
			Mention:     mention,
			Name:        s.Name,
			WikipediaID: s.WikipediaID,
		}); err != nil {
			return nil, err
		}
	}
	return inst, nil
}
