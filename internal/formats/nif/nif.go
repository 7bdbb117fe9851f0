// Package nif reads NIF entity-linking corpora written in Turtle.
//
// Three collections are supported. The OKE 2015 and 2016 challenge sets embed
// a temporary mention id in their URIs (after "sentence-" or "task-1/") and map
// it to a DBpedia resource through owl:sameAs. The N3 collections (Reuters-128,
// RSS-500) reference the resource directly from itsrdf:taIdentRef and mark
// out-of-KB mentions with "notInWiki".
//
// Each sentence becomes one document keyed by its decimal sentence index.
package nif

import (
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/turtle"
	"github.com/FocuswithJustin/DeepEL/internal/formats/base"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
)

const notInWiki = "notInWiki"

// state holds the accumulators of one parse call.
type state struct {
	d    *dialect
	path string

	sentences map[int]string
	idents    map[spanKey]string
	links     linkTable

	inKB  int
	outKB int
}

// Modes returns the reader modes this package implements.
func Modes() []string {
	return []string{Mode2015, Mode2016, ModeN3}
}

// Parse reads a NIF Turtle document in the given mode. path names the input
// in errors and the dataset.
func Parse(mode string, r io.Reader, path string) (*ir.Dataset, error) {
	d, ok := dialects[mode]
	if !ok {
		return nil, errors.NewConfig("mode", mode, "not a NIF mode")
	}

	triples, err := turtle.Parse(path, r)
	if err != nil {
		return nil, err
	}

	s := &state{
		d:         d,
		path:      path,
		sentences: make(map[int]string),
		idents:    make(map[spanKey]string),
		links:     make(linkTable),
	}
	for _, t := range triples {
		if err := s.triple(t); err != nil {
			return nil, err
		}
	}
	return s.assemble()
}

// ParseFile reads the NIF file at path.
func ParseFile(mode, path string) (*ir.Dataset, error) {
	f, err := base.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(mode, f, path)
}

func (s *state) errorf(t turtle.Triple, msg string, args ...interface{}) error {
	return errors.NewParsef(s.d.mode, s.path, t.Line, msg, args...)
}

// localName returns the part of a predicate IRI after its single "#".
func localName(iri string) (string, bool) {
	parts := strings.Split(iri, "#")
	if len(parts) != 2 {
		return "", false
	}
	return parts[1], true
}

func (s *state) triple(t turtle.Triple) error {
	name, ok := localName(t.Predicate.Value)
	if !ok {
		return s.errorf(t, "predicate %s has no single '#' local name", t.Predicate.Value)
	}
	pred := predicateNames[name]
	if pred == predUnknown || !s.d.vocabulary[pred] {
		return s.errorf(t, "predicate %q is not in the %s vocabulary", name, s.d.mode)
	}

	switch pred {
	case predAnchorOf:
		return s.anchorOf(t)
	case predTaIdentRef:
		return s.taIdentRef(t)
	case predIsString:
		return s.isString(t)
	case predSameAs:
		return s.sameAs(t)
	case predLabel:
		if s.d.checkLabel {
			return s.label(t)
		}
	}
	return nil
}

func (s *state) offsets(t turtle.Triple) (spanKey, error) {
	k, ok := s.d.offsets(t.Subject.Value)
	if !ok {
		return spanKey{}, s.errorf(t, "subject %s has no sentence offset pattern", t.Subject.Value)
	}
	return k, nil
}

func (s *state) anchorOf(t turtle.Triple) error {
	k, err := s.offsets(t)
	if err != nil {
		return err
	}
	anchor := t.Object.Value
	if s.d.trimAnchor {
		anchor = strings.TrimRight(anchor, " \t\r\n")
	}
	want := k.end - k.start
	if ir.RuneLen(anchor) != want {
		// "Basel, Switzerland" is annotated as "Basel" in OKE.
		head, _, _ := strings.Cut(anchor, ",")
		if ir.RuneLen(head) != want {
			return s.errorf(t, "anchorOf %q has length %d, span %d-%d", anchor, ir.RuneLen(anchor), k.start, k.end)
		}
		logging.ParseWarning(s.d.mode, strconv.Itoa(k.sentence), "anchor truncated at comma",
			"anchor", anchor, "start", k.start, "end", k.end)
	}
	return nil
}

func (s *state) taIdentRef(t turtle.Triple) error {
	k, err := s.offsets(t)
	if err != nil {
		return err
	}
	obj := t.Object.Value

	var tmp string
	if s.d.identMarker != "" {
		if strings.Count(obj, s.d.identMarker) != 1 {
			return s.errorf(t, "taIdentRef %s must contain %q exactly once", obj, s.d.identMarker)
		}
		tmp = obj[strings.Index(obj, s.d.identMarker)+len(s.d.identMarker):]
	} else {
		if !strings.Contains(obj, "/") {
			return s.errorf(t, "taIdentRef %s is not a path", obj)
		}
		if _, dup := s.idents[k]; dup {
			return s.errorf(t, "second taIdentRef for sentence %d at %d-%d", k.sentence, k.start, k.end)
		}
		if strings.Contains(obj, notInWiki) {
			s.outKB++
			return nil
		}
		s.inKB++
		tmp = lastSegment(obj)
		if unescaped, err := url.PathUnescape(tmp); err == nil {
			tmp = unescaped
		}
		s.idents[k] = tmp
		return nil
	}

	if prev, dup := s.idents[k]; dup && !s.d.rebindable[prev] {
		return s.errorf(t, "second taIdentRef for sentence %d at %d-%d (%s, %s)", k.sentence, k.start, k.end, prev, tmp)
	}
	s.idents[k] = tmp
	return nil
}

func (s *state) isString(t turtle.Triple) error {
	k, err := s.offsets(t)
	if err != nil {
		return err
	}
	if _, dup := s.sentences[k.sentence]; dup {
		return s.errorf(t, "second isString for sentence %d", k.sentence)
	}
	s.sentences[k.sentence] = t.Object.Value
	return nil
}

func (s *state) sameAs(t turtle.Triple) error {
	subj := t.Subject.Value
	marker := s.d.sameAsMarker
	if strings.Count(subj, marker) != 1 {
		return s.errorf(t, "sameAs subject %s must contain %q exactly once", subj, marker)
	}
	tmp := subj[strings.Index(subj, marker)+len(marker):]
	return s.links.Link(tmp, lastSegment(t.Object.Value))
}

func (s *state) label(t turtle.Triple) error {
	_, tail, ok := strings.Cut(t.Subject.Value, "sentence-")
	if !ok {
		return s.errorf(t, "label subject %s has no sentence id", t.Subject.Value)
	}
	if tail != strings.ReplaceAll(t.Object.Value, " ", "_") {
		return s.errorf(t, "label %q does not match subject %s", t.Object.Value, t.Subject.Value)
	}
	return nil
}

func lastSegment(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

// assemble builds one document per annotated sentence, in (sentence, start,
// end) order.
func (s *state) assemble() (*ir.Dataset, error) {
	keys := make([]spanKey, 0, len(s.idents))
	for k := range s.idents {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	ds := ir.NewDataset(datasetName(s.path), s.d.mode)
	mentions := 0
	for _, k := range keys {
		docName := strconv.Itoa(k.sentence)
		inst, ok := ds.Get(docName)
		if !ok {
			sentence, found := s.sentences[k.sentence]
			if !found {
				return nil, errors.NewParsef(s.d.mode, s.path, 0, "mention references undeclared sentence %d", k.sentence)
			}
			inst = ir.NewInstance(docName, sentence, 0)
			ds.Add(inst)
		}

		tmp := strings.ReplaceAll(s.idents[k], " ", "_")
		entity := tmp
		if s.d.resolve {
			var linked bool
			entity, linked = s.links[tmp]
			if !linked {
				s.outKB++
				continue
			}
			s.inKB++
		}

		mention, _ := inst.Slice(k.start, k.end)
		if err := inst.AddSpan(ir.Span{Start: k.start, End: k.end, Mention: mention, Name: entity}); err != nil {
			return nil, err
		}
		mentions++
	}

	logging.ParseSummary(s.d.mode, "path", s.path, "documents", ds.Len(), "mentions", mentions,
		"in_kb", s.inKB, "out_kb", s.outKB, "links", len(s.links))
	return ds, nil
}

func datasetName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
