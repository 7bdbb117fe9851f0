package conll

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
)

func parseString(t *testing.T, input string, opts Options) *ir.Dataset {
	t.Helper()
	ds, err := Parse(strings.NewReader(input), "test.tsv", opts)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return ds
}

func TestParseJohnSmith(t *testing.T) {
	input := "-DOCSTART- (doc1)\nJohn\tB\nSmith\tI\nworks\tO\n"
	ds := parseString(t, input, Options{})

	inst, ok := ds.Get("doc1")
	if !ok {
		t.Fatalf("doc1 missing, have %v", ds.Names())
	}
	if inst.Sentence != "John Smith works" {
		t.Errorf("Sentence = %q", inst.Sentence)
	}
	e := inst.Entities
	if len(e.Starts) != 1 || e.Starts[0] != 0 || e.Ends[0] != 10 || e.EntityMentions[0] != "John Smith" {
		t.Errorf("entities = %+v", e)
	}
	if e.EntityNames[0] != "" || e.WikipediaIDs[0] != ir.NoWikipediaID {
		t.Errorf("two-column lines carry no name or id: %+v", e)
	}
}

func TestParseAIDAColumns(t *testing.T) {
	input := strings.Join([]string{
		"-DOCSTART- (1163testb SOCCER)",
		"SOCCER",
		"-",
		"JAPAN\tB\tJAPAN\tJapan_national_football_team\thttp://en.wikipedia.org/wiki/Japan_national_football_team\t1576\t/m/03_l8",
		"GET",
		"LUCKY",
		"WIN\tB\tWIN",
		"CHINA\tB\tCHINA\t--NME--\t-\t-",
		"Nadim\tB\tNadim Ladki\tNadim_Ladki\thttp://en.wikipedia.org/wiki/Nadim_Ladki\t0",
		"Ladki\tI\tNadim Ladki\tNadim_Ladki\thttp://en.wikipedia.org/wiki/Nadim_Ladki\t0",
		"AL-AIN",
		"",
		"-DOCSTART- (2 other)",
		"x",
	}, "\n")

	_, err := Parse(strings.NewReader(input), "aida.tsv", Options{})
	if err == nil {
		t.Fatal("three-column line should be rejected")
	}
	if !errors.Is(err, errors.ErrMalformed) {
		t.Errorf("error should be ErrMalformed, got %v", err)
	}
	var perr *errors.ParseError
	if !errors.As(err, &perr) || perr.Line != 7 {
		t.Errorf("error should point at line 7, got %v", err)
	}

	ds := parseString(t, input, Options{Lenient: true})
	inst, ok := ds.Get("1163testb SOCCER")
	if !ok {
		t.Fatalf("document missing: %v", ds.Names())
	}
	if inst.Sentence != "SOCCER - JAPAN GET LUCKY CHINA Nadim Ladki AL-AIN" {
		t.Errorf("Sentence = %q", inst.Sentence)
	}

	spans := inst.Spans()
	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3: %+v", len(spans), spans)
	}
	want := []ir.Span{
		{Start: 9, End: 14, Mention: "JAPAN", Name: "Japan_national_football_team", WikipediaID: 1576},
		{Start: 25, End: 30, Mention: "CHINA", Name: "", WikipediaID: ir.NoWikipediaID},
		{Start: 31, End: 42, Mention: "Nadim Ladki", Name: "Nadim_Ladki", WikipediaID: ir.NoWikipediaID},
	}
	for i := range want {
		if !reflect.DeepEqual(spans[i], want[i]) {
			t.Errorf("span %d = %+v, want %+v", i, spans[i], want[i])
		}
	}
}

func TestParseFourColumns(t *testing.T) {
	input := "-DOCSTART- (k1)\nBarack\tB\tBarack_Obama\thttp://x\nObama\tI\tBarack_Obama\thttp://x\nspoke\tO\t--NME--\t-\n"
	ds := parseString(t, input, Options{})
	inst, _ := ds.Get("k1")
	s := inst.Span(0)
	if s.Mention != "Barack Obama" || s.Name != "Barack_Obama" || s.Start != 0 || s.End != 12 {
		t.Errorf("span = %+v", s)
	}
}

func TestParseDuplicateDocstart(t *testing.T) {
	input := "-DOCSTART- (a)\nfirst\tB\n-DOCSTART- (b)\nmiddle\n-DOCSTART- (a)\nsecond\tB\n"
	ds := parseString(t, input, Options{})
	if got := strings.Join(ds.Names(), ","); got != "a,b" {
		t.Errorf("Names() = %s", got)
	}
	inst, _ := ds.Get("a")
	if inst.Sentence != "first" {
		t.Errorf("first occurrence should win, got %q", inst.Sentence)
	}
}

func TestParseSplitKey(t *testing.T) {
	input := "-DOCSTART- (947testa CRICKET)\na\n-DOCSTART- (1163testb SOCCER)\nb\n-DOCSTART- (1train X)\nc\n"
	tests := []struct {
		key  string
		want string
	}{
		{"", "947testa CRICKET,1163testb SOCCER,1train X"},
		{"testb", "1163testb SOCCER"},
		{"test", "947testa CRICKET,1163testb SOCCER"},
		{"dev", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			ds := parseString(t, input, Options{SplitKey: tt.key})
			if got := strings.Join(ds.Names(), ","); got != tt.want {
				t.Errorf("Names() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDocumentEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		names   string
	}{
		{"token before header", "oops\n-DOCSTART- (a)\nx\n", true, ""},
		{"empty name", "-DOCSTART-\nx\n", true, ""},
		{"header without tokens", "-DOCSTART- (a)\n\n-DOCSTART- (b)\ny\n", false, "b"},
		{"blank lines ignored", "-DOCSTART- (a)\nx\n\n\ny\n", false, "a"},
		{"missing paren", "-DOCSTART- (a\nx\n", false, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := Parse(strings.NewReader(tt.input), "t.tsv", Options{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && strings.Join(ds.Names(), ",") != tt.names {
				t.Errorf("Names() = %v", ds.Names())
			}
		})
	}
}

func TestParseUnicodeOffsets(t *testing.T) {
	input := "-DOCSTART- (u)\nJosé\tB\nMourinho\tI\nà\tO\nMünchen\tB\n"
	ds := parseString(t, input, Options{})
	inst, _ := ds.Get("u")
	if errs := ir.ValidateInstance(inst); len(errs) > 0 {
		t.Fatalf("invalid instance: %v", errs)
	}
	s := inst.Span(1)
	if s.Start != 16 || s.End != 23 || s.Mention != "München" {
		t.Errorf("span = %+v", s)
	}
}

func TestParseEscapes(t *testing.T) {
	input := "-DOCSTART- (e)\nJosé\tB\tJos\\u00e9\tJos\\u00e9_Mourinho\thttp://x\t123\n"
	ds := parseString(t, input, Options{})
	inst, _ := ds.Get("e")
	s := inst.Span(0)
	if s.Name != "José_Mourinho" || s.WikipediaID != 123 {
		t.Errorf("span = %+v", s)
	}
}

func TestParseInvariants(t *testing.T) {
	input := "-DOCSTART- (p)\nA\tB\nB\tI\nC\tB\nD\tX\nE\tI\nF\tO\nG\tI\n"
	ds := parseString(t, input, Options{})
	for _, inst := range ds.Instances() {
		if errs := ir.ValidateInstance(inst); len(errs) > 0 {
			t.Errorf("%s: %v", inst.DocName, errs)
		}
		if !ir.IsSorted(inst) {
			t.Errorf("%s: spans not sorted", inst.DocName)
		}
	}
}

func TestParseTokensView(t *testing.T) {
	input := "-DOCSTART- (doc1)\nJohn\tB\nSmith\tI\nworks\tO\n"
	docs, err := ParseTokens(strings.NewReader(input), "t.tsv", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || len(docs[0].Spans) != 1 {
		t.Fatalf("docs = %+v", docs)
	}
	if s := docs[0].Spans[0]; s.Start != 0 || s.End != 1 {
		t.Errorf("token span = %+v", s)
	}
}

func TestProjectDropsOutOfRange(t *testing.T) {
	doc := &TokenDocument{
		Name:   "d",
		Tokens: []string{"a", "b"},
		Spans: []TokenSpan{
			{Start: 0, End: 1},
			{Start: -1, End: 0},
			{Start: 1, End: 2},
			{Start: 1, End: 0},
		},
	}
	inst, err := Project(doc)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Len() != 1 || inst.Span(0).Mention != "a b" {
		t.Errorf("spans = %+v", inst.Spans())
	}
}

func TestHandler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kore50.txt")
	if err := os.WriteFile(path, []byte("-DOCSTART- (k)\nx\tB\n"), 0644); err != nil {
		t.Fatal(err)
	}

	h := &Handler{}
	res, err := h.Detect(path)
	if err != nil || !res.Detected {
		t.Fatalf("Detect = %+v, %v", res, err)
	}
	ds, err := h.Load(path, plugins.Options{SplitKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Name != "kore50" || ds.Len() != 1 {
		t.Errorf("dataset = %s with %d docs", ds.Name, ds.Len())
	}
	if !plugins.HasEmbeddedPlugin("tsv") {
		t.Error("tsv alias should be registered")
	}
}
