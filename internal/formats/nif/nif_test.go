package nif

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
)

const prefixes = `@prefix nif: <http://persistence.uni-leipzig.org/nlp2rdf/ontologies/nif-core#> .
@prefix itsrdf: <http://www.w3.org/2005/11/its/rdf#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix dbpedia: <http://dbpedia.org/resource/> .
`

const oke2015 = prefixes + `@base <http://www.ontologydesignpatterns.org/data/oke-challenge/task-1/> .

<sentence-1#char=0,35>
    a nif:Context , nif:RFC5147String ;
    nif:beginIndex "0"^^xsd:nonNegativeInteger ;
    nif:endIndex "35"^^xsd:nonNegativeInteger ;
    nif:isString "Florence May Harding was a painter."@en .

<sentence-1#char=0,20>
    a nif:RFC5147String ;
    nif:anchorOf "Florence May Harding "@en ;
    nif:beginIndex "0"^^xsd:nonNegativeInteger ;
    nif:endIndex "20"^^xsd:nonNegativeInteger ;
    nif:referenceContext <sentence-1#char=0,35> ;
    itsrdf:taIdentRef <sentence-Florence_May_Harding> .

<sentence-1#char=27,34>
    nif:anchorOf "painter" ;
    itsrdf:taIdentRef <sentence-Painter> .

<sentence-Florence_May_Harding>
    rdfs:label "Florence May Harding" ;
    owl:sameAs dbpedia:Florence_May_Harding .
`

func parse(t *testing.T, mode, input string) (*ir.Dataset, error) {
	t.Helper()
	return Parse(mode, strings.NewReader(input), "test.ttl")
}

func TestParseOKE2015(t *testing.T) {
	ds, err := parse(t, Mode2015, oke2015)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ds.Len() != 1 {
		t.Fatalf("got %d documents, want 1", ds.Len())
	}
	inst, ok := ds.Get("1")
	if !ok {
		t.Fatalf("document 1 missing: %v", ds.Names())
	}
	if inst.Sentence != "Florence May Harding was a painter." {
		t.Errorf("Sentence = %q", inst.Sentence)
	}
	if inst.Len() != 1 {
		t.Fatalf("got %d spans, want 1 (painter has no sameAs)", inst.Len())
	}
	s := inst.Span(0)
	if s.Start != 0 || s.End != 20 || s.Mention != "Florence May Harding" || s.Name != "Florence_May_Harding" {
		t.Errorf("span = %+v", s)
	}
}

func TestParseOKE2015Errors(t *testing.T) {
	tests := []struct {
		name   string
		extra  string
		target error
	}{
		{
			name:   "sameAs to a different entity",
			extra:  "<sentence-Florence_May_Harding> owl:sameAs dbpedia:Someone_Else .\n",
			target: errors.ErrConsistency,
		},
		{
			name:   "unknown predicate",
			extra:  "<sentence-1#char=0,20> nif:oliaLink \"x\" .\n",
			target: errors.ErrMalformed,
		},
		{
			name:   "second sentence for one index",
			extra:  "<sentence-1#char=0,3> nif:isString \"Foo\" .\n",
			target: errors.ErrMalformed,
		},
		{
			name:   "second identifier for one span",
			extra:  "<sentence-1#char=0,20> itsrdf:taIdentRef <sentence-Other> .\n",
			target: errors.ErrMalformed,
		},
		{
			name:   "anchor length mismatch",
			extra:  "<sentence-1#char=21,24> nif:anchorOf \"wasn't\" .\n",
			target: errors.ErrMalformed,
		},
		{
			name:   "offset pattern missing",
			extra:  "<sentence-2> nif:anchorOf \"x\" .\n",
			target: errors.ErrMalformed,
		},
		{
			name:   "label disagrees with subject",
			extra:  "<sentence-Painter> rdfs:label \"Sculptor\" .\n",
			target: errors.ErrMalformed,
		},
		{
			name:   "mention in undeclared sentence",
			extra:  "<sentence-7#char=0,3> itsrdf:taIdentRef <sentence-Florence_May_Harding> .\n",
			target: errors.ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, Mode2015, oke2015+tt.extra)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("error %v is not %v", err, tt.target)
			}
		})
	}
}

func TestSameAsSameTargetIsSilent(t *testing.T) {
	// A second sameAs with a different IRI but the same resource name.
	extra := "<sentence-Florence_May_Harding> owl:sameAs <http://de.dbpedia.org/resource/Florence_May_Harding> .\n"
	ds, err := parse(t, Mode2015, oke2015+extra)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	inst, _ := ds.Get("1")
	if inst.Len() != 1 || inst.Span(0).Name != "Florence_May_Harding" {
		t.Errorf("spans = %+v", inst.Spans())
	}
}

func TestLinkTable(t *testing.T) {
	links := make(linkTable)
	if err := links.Link("a", "X"); err != nil {
		t.Fatal(err)
	}
	if err := links.Link("a", "X"); err != nil {
		t.Errorf("same target should be accepted: %v", err)
	}
	err := links.Link("a", "Y")
	if !errors.Is(err, errors.ErrConsistency) {
		t.Errorf("different target: got %v", err)
	}
	if links["a"] != "X" {
		t.Errorf("first binding should win, got %q", links["a"])
	}
}

func TestAnchorCommaAnomaly(t *testing.T) {
	input := prefixes + `@base <http://www.ontologydesignpatterns.org/data/oke-challenge/task-1/> .
<sentence-3#char=0,16> nif:isString "Basel is a city." .
<sentence-3#char=0,5> nif:anchorOf "Basel, Switzerland" ;
    itsrdf:taIdentRef <sentence-Basel> .
<sentence-Basel> owl:sameAs dbpedia:Basel .
`
	ds, err := parse(t, Mode2015, input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	inst, _ := ds.Get("3")
	if inst.Len() != 1 || inst.Span(0).Mention != "Basel" {
		t.Errorf("spans = %+v", inst.Spans())
	}
}

func TestRebindableIdentifiers(t *testing.T) {
	body := `<sentence-4#char=0,7> nif:isString "The man" .
<sentence-4#char=4,7> itsrdf:taIdentRef <sentence-Man_4> .
<sentence-4#char=4,7> itsrdf:taIdentRef <sentence-Man_5> .
<sentence-Man_5> owl:sameAs dbpedia:Man .
`
	header2015 := prefixes + "@base <http://www.ontologydesignpatterns.org/data/oke-challenge/task-1/> .\n"
	ds, err := parse(t, Mode2015, header2015+body)
	if err != nil {
		t.Fatalf("2015 should allow rebinding Man_4: %v", err)
	}
	inst, _ := ds.Get("4")
	if inst.Len() != 1 || inst.Span(0).Name != "Man" {
		t.Errorf("spans = %+v", inst.Spans())
	}

	header2016 := prefixes + "@base <http://www.ontologydesignpatterns.org/data/oke-challenge-2016/task-1/> .\n"
	body2016 := strings.ReplaceAll(body, "<sentence-Man", "<Man")
	if _, err := parse(t, Mode2016, header2016+body2016); !errors.Is(err, errors.ErrMalformed) {
		t.Errorf("2016 should reject a second identifier, got %v", err)
	}
}

const oke2016 = prefixes + `@base <http://www.ontologydesignpatterns.org/data/oke-challenge-2016/task-1/> .

<sentence-12#char=0,24> nif:isString "Ada Lovelace wrote notes" .
<sentence-12#char=0,12> nif:anchorOf "Ada Lovelace" ;
    itsrdf:taIdentRef <Ada_Lovelace> .
<sentence-12#char=19,24> nif:anchorOf "notes" ;
    itsrdf:taIdentRef <Notes> .
<Ada_Lovelace> owl:sameAs dbpedia:Ada_Lovelace .
<Notes> owl:sameAs dbpedia:Note_G .
<sentence-2#char=0,5> nif:isString "Empty" .
`

func TestParseOKE2016(t *testing.T) {
	ds, err := parse(t, Mode2016, oke2016)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := strings.Join(ds.Names(), ","); got != "12" {
		t.Errorf("Names() = %s (sentences without mentions produce no document)", got)
	}
	inst, _ := ds.Get("12")
	want := []ir.Span{
		{Start: 0, End: 12, Mention: "Ada Lovelace", Name: "Ada_Lovelace"},
		{Start: 19, End: 24, Mention: "notes", Name: "Note_G"},
	}
	got := inst.Spans()
	if len(got) != len(want) {
		t.Fatalf("spans = %+v", got)
	}
	for i := range want {
		if got[i].Start != want[i].Start || got[i].End != want[i].End ||
			got[i].Mention != want[i].Mention || got[i].Name != want[i].Name {
			t.Errorf("span %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

const n3Sample = prefixes + `
<http://aksw.org/N3/Reuters-128/5#char=0,25>
    a nif:Context ;
    nif:isString "Paris is in Île-de-France" ;
    nif:sourceUrl <http://www.research.att.com/~lewis/Reuters-21578/15009> .

<http://aksw.org/N3/Reuters-128/5#char=12,25>
    nif:anchorOf "Île-de-France" ;
    nif:referenceContext <http://aksw.org/N3/Reuters-128/5#char=0,25> ;
    itsrdf:taIdentRef <http://dbpedia.org/resource/%C3%8Ele-de-France> ;
    itsrdf:taSource "DBpedia_en_3.9" .

<http://aksw.org/N3/Reuters-128/5#char=0,5>
    nif:anchorOf "Paris" ;
    itsrdf:taIdentRef dbpedia:Paris .

<http://aksw.org/N3/Reuters-128/5#char=6,8>
    nif:anchorOf "is" ;
    itsrdf:taIdentRef <http://aksw.org/notInWiki/Is> .
`

func TestParseN3(t *testing.T) {
	ds, err := parse(t, ModeN3, n3Sample)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	inst, ok := ds.Get("5")
	if !ok {
		t.Fatalf("document 5 missing: %v", ds.Names())
	}
	got := inst.Spans()
	if len(got) != 2 {
		t.Fatalf("spans = %+v (notInWiki should be dropped)", got)
	}
	if got[0].Name != "Paris" || got[0].Start != 0 {
		t.Errorf("span 0 = %+v", got[0])
	}
	if got[1].Name != "Île-de-France" || got[1].Mention != "Île-de-France" || got[1].Start != 12 || got[1].End != 25 {
		t.Errorf("span 1 = %+v", got[1])
	}
	if errs := ir.ValidateInstance(inst); len(errs) > 0 {
		t.Errorf("invalid instance: %v", errs)
	}
}

func TestParseN3Label(t *testing.T) {
	input := n3Sample + "<http://aksw.org/N3/sentence-New_York> rdfs:label \"New York\" .\n"
	ds, err := parse(t, ModeN3, input)
	if err != nil {
		t.Fatalf("matching label rejected: %v", err)
	}
	if ds.Len() != 1 {
		t.Errorf("documents = %v", ds.Names())
	}
}

func TestParseN3Errors(t *testing.T) {
	tests := []struct {
		name  string
		extra string
	}{
		{"wrong URI depth", "<http://aksw.org/N3/x/Reuters-128/5#char=0,5> nif:anchorOf \"Paris\" .\n"},
		{"duplicate identifier", "<http://aksw.org/N3/Reuters-128/5#char=0,5> itsrdf:taIdentRef dbpedia:Paris_Hilton .\n"},
		{"unknown predicate", "<http://aksw.org/N3/Reuters-128/5#char=0,5> nif:lemma \"p\" .\n"},
		{"label disagrees with subject", "<http://aksw.org/N3/sentence-Paris> rdfs:label \"Lyon\" .\n"},
		{"label subject without sentence id", "<http://aksw.org/N3/Paris> rdfs:label \"Paris\" .\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse(t, ModeN3, n3Sample+tt.extra); !errors.Is(err, errors.ErrMalformed) {
				t.Errorf("got %v, want ErrMalformed", err)
			}
		})
	}

	// n3 vocabulary is rejected by the OKE dialects.
	input := strings.ReplaceAll(n3Sample, "<http://aksw.org/N3/Reuters-128/5#", "<http://www.ontologydesignpatterns.org/data/oke-challenge/task-1/sentence-5#")
	if _, err := parse(t, Mode2015, input); !errors.Is(err, errors.ErrMalformed) {
		t.Errorf("taSource under nif-2015: got %v", err)
	}
}

func TestUnknownMode(t *testing.T) {
	if _, err := parse(t, "nif-2099", oke2015); !errors.Is(err, errors.ErrConfig) {
		t.Errorf("got %v, want ErrConfig", err)
	}
}

func TestOffsets(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) (spanKey, bool)
		uri  string
		want spanKey
		ok   bool
	}{
		{"oke", okeOffsets, "http://x/task-1/sentence-3#char=4,9", spanKey{3, 4, 9}, true},
		{"oke no marker", okeOffsets, "http://x/task-1/3#char=4,9", spanKey{}, false},
		{"oke two markers", okeOffsets, "http://x/sentence-1/sentence-3#char=4,9", spanKey{}, false},
		{"oke no comma", okeOffsets, "http://x/sentence-3#char=4", spanKey{}, false},
		{"oke bad number", okeOffsets, "http://x/sentence-3#char=a,9", spanKey{}, false},
		{"n3", n3Offsets, "http://aksw.org/N3/RSS-500/12#char=0,7", spanKey{12, 0, 7}, true},
		{"n3 depth", n3Offsets, "http://aksw.org/N3/12#char=0,7", spanKey{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.fn(tt.uri)
			if ok != tt.ok || got != tt.want {
				t.Errorf("got %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestHandlerDetect(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"oke15.ttl": oke2015,
		"oke16.ttl": oke2016,
		"n3.ttl":    n3Sample,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		file string
		mode string
	}{
		{"oke15.ttl", Mode2015},
		{"oke16.ttl", Mode2016},
		{"n3.ttl", ModeN3},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			for _, mode := range Modes() {
				res, err := NewHandler(mode).Detect(filepath.Join(dir, tt.file))
				if err != nil {
					t.Fatal(err)
				}
				if res.Detected != (mode == tt.mode) {
					t.Errorf("%s Detect = %v, want %v", mode, res.Detected, mode == tt.mode)
				}
			}
		})
	}

	ds, err := NewHandler(Mode2016).Load(filepath.Join(dir, "oke16.ttl"), plugins.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if ds.Name != "oke16" || ds.Format != Mode2016 {
		t.Errorf("dataset = %s/%s", ds.Name, ds.Format)
	}
	for _, alias := range []string{"oke_2015", "oke_2016", "n3"} {
		if !plugins.HasEmbeddedPlugin(alias) {
			t.Errorf("alias %s not registered", alias)
		}
	}
}
