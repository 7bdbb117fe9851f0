package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/internal/collab"
	"github.com/FocuswithJustin/DeepEL/internal/config"
	"github.com/FocuswithJustin/DeepEL/internal/store"
)

const tokenTag = "-DOCSTART- (doc1)\nJohn\tB\tJohn_Smith\thttp://en.wikipedia.org/wiki/John_Smith\nSmith\tI\tJohn_Smith\thttp://en.wikipedia.org/wiki/John_Smith\nworks\tO\n-DOCSTART- (doc2)\nin\tO\nMünchen\tB\n"

// Test helper functions

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func newApp(cfg *config.Config) (*app, *bytes.Buffer) {
	if cfg == nil {
		cfg = config.Default()
	}
	var buf bytes.Buffer
	return &app{ctx: context.Background(), cfg: cfg, stdout: &buf}, &buf
}

func defaultFlags() ReaderFlags {
	return ReaderFlags{ShiftBefore: -1, ShiftAfter: -1}
}

func TestReaderFlagsOptions(t *testing.T) {
	cfg := config.Default()
	cfg.XML.AllowNIL = true

	f := defaultFlags()
	f.SplitKey = "testb"
	f.AllowShift = true
	opts := f.options(cfg)
	if opts.SplitKey != "testb" || !opts.AllowShift || !opts.AllowNIL || opts.ShiftBefore != 10 || opts.ShiftAfter != 100 {
		t.Errorf("options = %+v", opts)
	}

	f.ShiftAfter = 7
	if opts := f.options(cfg); opts.ShiftAfter != 7 || opts.ShiftBefore != 10 {
		t.Errorf("explicit shift not applied: %+v", opts)
	}
}

func TestParseCmdStdout(t *testing.T) {
	input := createTestFile(t, t.TempDir(), "kore50.tsv", tokenTag)
	a, out := newApp(nil)

	cmd := &ParseCmd{Mode: "tsv", Input: input, ReaderFlags: defaultFlags()}
	if err := cmd.Run(a); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ds, err := store.Decode(out, "kore50", "token-tag")
	if err != nil {
		t.Fatalf("stdout is not a dataset: %v\n%s", err, out.String())
	}
	inst, ok := ds.Get("doc2")
	if !ok || inst.Sentence != "in München" || inst.Entities.Starts[0] != 3 {
		t.Errorf("doc2 = %+v", inst)
	}
}

func TestParseCmdOutputAndStats(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "kore50.tsv", tokenTag)
	outPath := filepath.Join(dir, "out", "kore50.json.xz")
	a, _ := newApp(nil)

	cmd := &ParseCmd{Mode: "auto", Input: input, Out: outPath, Snapshots: filepath.Join(dir, "cas"), ReaderFlags: defaultFlags()}
	if err := cmd.Run(a); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	raw, err := os.ReadFile(store.ManifestPath(outPath))
	if err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	var m store.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if m.Mode != "token-tag" || m.Source != input || m.Snapshot == "" || m.Stats.Mentions != 2 {
		t.Errorf("manifest = %+v", m)
	}
	if _, err := os.Stat(m.Snapshot); err != nil {
		t.Errorf("snapshot missing: %v", err)
	}

	a, out := newApp(nil)
	stats := &StatsCmd{Inputs: []string{outPath}, JSON: true, ReaderFlags: defaultFlags()}
	if err := stats.Run(a); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("stats output: %v\n%s", err, out.String())
	}
	if len(rows) != 1 || rows[0]["dataset"] != "kore50" || rows[0]["documents"] != float64(2) || rows[0]["nil_mentions"] != float64(1) {
		t.Errorf("stats = %v", rows)
	}
}

func TestParseCmdUnknownMode(t *testing.T) {
	a, _ := newApp(nil)
	cmd := &ParseCmd{Mode: "conll", Input: "/does/not/exist", ReaderFlags: defaultFlags()}
	if err := cmd.Run(a); !errors.Is(err, errors.ErrConfig) {
		t.Errorf("got %v, want ErrConfig", err)
	}
}

func TestBatchCmd(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Datasets = []config.DatasetConfig{
		{Name: "kore", Mode: "tsv", Path: createTestFile(t, dir, "a.tsv", tokenTag)},
		{Mode: "jsonl", Path: createTestFile(t, dir, "wiki.jsonl",
			`{"id":"d1","input":"x [START_ENT] Obama y","meta":{"mention":"Obama"},"output":[{"answer":"Barack_Obama"}],"candidates":[]}`+"\n")},
	}
	a, out := newApp(cfg)
	if err := (&BatchCmd{Workers: 2}).Run(a); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	for _, name := range []string{"kore.json", "wiki.json"} {
		path := filepath.Join(cfg.Output.Dir, name)
		if _, err := store.ReadDataset(path, ""); err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if _, err := os.Stat(store.ManifestPath(path)); err != nil {
			t.Errorf("%s manifest: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "kore\t") {
		t.Errorf("output = %q", out.String())
	}

	a, _ = newApp(config.Default())
	if err := (&BatchCmd{}).Run(a); !errors.Is(err, errors.ErrConfig) {
		t.Errorf("empty batch: got %v", err)
	}
}

func TestDetectCmd(t *testing.T) {
	dir := t.TempDir()
	tsv := createTestFile(t, dir, "a.tsv", tokenTag)
	md := createTestFile(t, dir, "notes.md", "nothing")

	a, out := newApp(nil)
	if err := (&DetectCmd{Paths: []string{tsv}}).Run(a); err != nil {
		t.Fatal(err)
	}
	if out.String() != tsv+"\ttoken-tag\n" {
		t.Errorf("output = %q", out.String())
	}

	a, out = newApp(nil)
	err := (&DetectCmd{Paths: []string{tsv, md}}).Run(a)
	if !errors.Is(err, errors.ErrNotFound) || !strings.Contains(out.String(), md+"\tunknown") {
		t.Errorf("got %v, output %q", err, out.String())
	}
}

func TestModesAndVersion(t *testing.T) {
	a, out := newApp(nil)
	if err := (&ModesCmd{}).Run(a); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"token-tag", "tsv", "nif-2015", "oke_2016", "jsonl-records", "unseen_mentions", "xml"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("modes output missing %s", want)
		}
	}

	a, out = newApp(nil)
	if err := (&VersionCmd{}).Run(a); err != nil {
		t.Fatal(err)
	}
	if out.String() != "deepel version "+version+"\n" {
		t.Errorf("version = %q", out.String())
	}
}

func TestExportSQLiteCmd(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "a.tsv", tokenTag)
	db := filepath.Join(dir, "el.db")
	a, _ := newApp(nil)
	if err := (&ExportSQLiteCmd{DB: db, Inputs: []string{input}, ReaderFlags: defaultFlags()}).Run(a); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if info, err := os.Stat(db); err != nil || info.Size() == 0 {
		t.Errorf("database not written: %v", err)
	}
}

func TestCandidatesCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{"candidates": []string{req["mention"].(string) + "_A", req["mention"].(string) + "_B"}})
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := createTestFile(t, dir, "a.tsv", tokenTag)
	outPath := filepath.Join(dir, "cands.json")

	a, _ := newApp(nil)
	cmd := &CandidatesCmd{Input: input, Out: outPath, URL: srv.URL, TopK: 1, ReaderFlags: defaultFlags()}
	if err := cmd.Run(a); err != nil {
		t.Fatalf("candidates failed: %v", err)
	}
	ds, err := store.ReadDataset(outPath, "")
	if err != nil {
		t.Fatal(err)
	}
	inst, _ := ds.Get("doc1")
	var lists [][]string
	if ok, err := inst.Extra(collab.CandidatesField, &lists); !ok || err != nil || len(lists) != 1 || lists[0][0] != "John Smith_A" || len(lists[0]) != 1 {
		t.Errorf("candidates = %v (%v, %v)", lists, ok, err)
	}

	a, _ = newApp(nil)
	if err := (&CandidatesCmd{Input: input, Out: outPath, ReaderFlags: defaultFlags()}).Run(a); !errors.Is(err, errors.ErrConfig) {
		t.Errorf("missing url: got %v", err)
	}
}

func TestValidateCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "Yes."},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := filepath.Join(dir, "pred.json")
	createTestFile(t, dir, "pred.json", `{
    "doc1": {
        "sentence": "John Smith works",
        "entities": {
            "starts": [0],
            "ends": [10],
            "entity_mentions": ["John Smith"],
            "entity_names": ["John_Smith"],
            "predict_entity_names": ["John Smith (author)"]
        }
    },
    "doc2": {
        "sentence": "nothing",
        "entities": {"starts": [], "ends": [], "entity_mentions": [], "entity_names": []}
    }
}`)

	t.Setenv("DEEPEL_TEST_OPENAI", "test-key")
	cfg := config.Default()
	cfg.LLM.APIKeyEnv = "DEEPEL_TEST_OPENAI"
	cfg.LLM.Retries = 0

	outPath := filepath.Join(dir, "validated.json")
	a, out := newApp(cfg)
	cmd := &ValidateCmd{Input: input, Out: outPath, Field: "predict_entity_names", BaseURL: srv.URL}
	if err := cmd.Run(a); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out.String(), "accepted=1\trejected=0") {
		t.Errorf("output = %q", out.String())
	}

	ds, err := store.ReadDataset(outPath, "")
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 2 {
		t.Errorf("documents = %d", ds.Len())
	}
	inst, _ := ds.Get("doc1")
	var verdicts []map[string]string
	if ok, _ := inst.Extra(collab.ValidationField, &verdicts); !ok || verdicts[0]["validation_result"] != "Yes" {
		t.Errorf("verdicts = %v", verdicts)
	}

	cfg.LLM.APIKeyEnv = "DEEPEL_TEST_MISSING_KEY"
	a, _ = newApp(cfg)
	if err := cmd.Run(a); !errors.Is(err, errors.ErrConfig) {
		t.Errorf("missing key: got %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		want     string
		wantErr  bool
	}{
		{"ace2004", false, filepath.Join("out", "ace2004.json"), false},
		{"aida/testa", true, filepath.Join("out", "aida_testa.json.xz"), false},
		{"---", false, "", true},
	}
	for _, tt := range tests {
		got, err := outputPath("out", tt.name, tt.compress)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("outputPath(%q) = %q, %v", tt.name, got, err)
		}
		if tt.wantErr && !errors.Is(err, errors.ErrConfig) {
			t.Errorf("outputPath(%q) error %v is not a config error", tt.name, err)
		}
	}
}
