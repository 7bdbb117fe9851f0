package nif

import (
	"strconv"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/errors"
)

// Reader modes implemented by this package.
const (
	Mode2015 = "nif-2015"
	Mode2016 = "nif-2016"
	ModeN3   = "nif-n3"
)

// predicate is the local name of a NIF predicate, after "#".
type predicate int

const (
	predUnknown predicate = iota
	predLabel
	predAnchorOf
	predBeginIndex
	predIsString
	predSameAs
	predEndIndex
	predTaIdentRef
	predReferenceContext
	predType
	predTaSource
	predHasContext
	predSourceURL
)

var predicateNames = map[string]predicate{
	"label":            predLabel,
	"anchorOf":         predAnchorOf,
	"beginIndex":       predBeginIndex,
	"isString":         predIsString,
	"sameAs":           predSameAs,
	"endIndex":         predEndIndex,
	"taIdentRef":       predTaIdentRef,
	"referenceContext": predReferenceContext,
	"type":             predType,
	"taSource":         predTaSource,
	"hasContext":       predHasContext,
	"sourceUrl":        predSourceURL,
}

var okeVocabulary = []predicate{
	predLabel, predAnchorOf, predBeginIndex, predIsString, predSameAs,
	predEndIndex, predTaIdentRef, predReferenceContext, predType,
}

var n3Vocabulary = append(append([]predicate{}, okeVocabulary...), predTaSource, predHasContext, predSourceURL)

// spanKey locates a mention: sentence index plus code-point offsets.
type spanKey struct {
	sentence int
	start    int
	end      int
}

func (k spanKey) less(o spanKey) bool {
	if k.sentence != o.sentence {
		return k.sentence < o.sentence
	}
	if k.start != o.start {
		return k.start < o.start
	}
	return k.end < o.end
}

// dialect captures how one NIF collection embeds identifiers in its URIs.
type dialect struct {
	mode       string
	vocabulary map[predicate]bool

	// identMarker precedes the temporary id in taIdentRef objects. Empty means
	// the id is the URL-unescaped last path segment.
	identMarker string

	// sameAsMarker precedes the temporary id in sameAs subjects.
	sameAsMarker string

	// offsets extracts the span key from a subject URI.
	offsets func(uri string) (spanKey, bool)

	// trimAnchor right-trims anchorOf literals before the length check.
	trimAnchor bool

	// checkLabel verifies label literals against their subject URI.
	checkLabel bool

	// rebindable lists temporary ids that a later taIdentRef may replace.
	rebindable map[string]bool

	// resolve maps temporary ids through sameAs. Otherwise the temporary id
	// is the entity.
	resolve bool
}

func vocabulary(preds []predicate) map[predicate]bool {
	m := make(map[predicate]bool, len(preds))
	for _, p := range preds {
		m[p] = true
	}
	return m
}

var dialects = map[string]*dialect{
	Mode2015: {
		mode:         Mode2015,
		vocabulary:   vocabulary(okeVocabulary),
		identMarker:  "sentence-",
		sameAsMarker: "sentence-",
		offsets:      okeOffsets,
		trimAnchor:   true,
		checkLabel:   true,
		rebindable:   map[string]bool{"Man_4": true, "His_4": true},
		resolve:      true,
	},
	Mode2016: {
		mode:         Mode2016,
		vocabulary:   vocabulary(okeVocabulary),
		identMarker:  "task-1/",
		sameAsMarker: "task-1/",
		offsets:      okeOffsets,
		trimAnchor:   true,
		resolve:      true,
	},
	ModeN3: {
		mode:         ModeN3,
		vocabulary:   vocabulary(n3Vocabulary),
		sameAsMarker: "sentence-",
		offsets:      n3Offsets,
		checkLabel:   true,
	},
}

// okeOffsets parses ".../sentence-<idx>#char=<start>,<end>".
func okeOffsets(uri string) (spanKey, bool) {
	parts := strings.Split(uri, "sentence-")
	if len(parts) != 2 {
		return spanKey{}, false
	}
	return charOffsets(parts[1])
}

// n3Offsets parses "http://host/a/b/<idx>#char=<start>,<end>", a URI with
// exactly five slashes.
func n3Offsets(uri string) (spanKey, bool) {
	if strings.Count(uri, "/") != 5 {
		return spanKey{}, false
	}
	return charOffsets(uri[strings.LastIndex(uri, "/")+1:])
}

// charOffsets parses "<idx>#char=<start>,<end>".
func charOffsets(s string) (spanKey, bool) {
	idx, rest, ok := strings.Cut(s, "#char=")
	if !ok || strings.Contains(rest, "#char=") {
		return spanKey{}, false
	}
	start, end, ok := strings.Cut(rest, ",")
	if !ok || strings.Contains(end, ",") {
		return spanKey{}, false
	}

	var k spanKey
	var err error
	if k.sentence, err = strconv.Atoi(idx); err != nil {
		return spanKey{}, false
	}
	if k.start, err = strconv.Atoi(start); err != nil {
		return spanKey{}, false
	}
	if k.end, err = strconv.Atoi(end); err != nil {
		return spanKey{}, false
	}
	return k, true
}

// linkTable maps temporary ids to canonical entities. The first binding wins.
type linkTable map[string]string

// Link binds tmp to entity. Rebinding to the same entity is a no-op; a
// different entity is a consistency error.
func (t linkTable) Link(tmp, entity string) error {
	if prev, ok := t[tmp]; ok {
		if prev != entity {
			return errors.NewConsistency("sameAs "+tmp, prev, entity)
		}
		return nil
	}
	t[tmp] = entity
	return nil
}
