package ir

import (
	"encoding/json"
	"reflect"
	"testing"
)

func newTestDataset(t *testing.T) *Dataset {
	t.Helper()
	d := NewDataset("test", "token-tag")
	for _, name := range []string{"b", "a", "c"} {
		if !d.Add(NewInstance(name, "text "+name, 0)) {
			t.Fatalf("Add(%s) returned false", name)
		}
	}
	return d
}

func TestDatasetOrder(t *testing.T) {
	d := newTestDataset(t)
	if got := d.Names(); !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Errorf("Names() = %v", got)
	}
	if d.Len() != 3 {
		t.Errorf("Len() = %d", d.Len())
	}
}

func TestDatasetAddFirstWins(t *testing.T) {
	d := newTestDataset(t)
	if d.Add(NewInstance("a", "replacement", 0)) {
		t.Error("Add should refuse an existing name")
	}
	inst, _ := d.Get("a")
	if inst.Sentence != "text a" {
		t.Errorf("Sentence = %q, want original", inst.Sentence)
	}
}

func TestDatasetPutReplaces(t *testing.T) {
	d := newTestDataset(t)
	d.Put(NewInstance("a", "replacement", 0))
	inst, ok := d.Get("a")
	if !ok || inst.Sentence != "replacement" {
		t.Errorf("Get(a) = %v", inst)
	}
	if got := d.Names(); !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Errorf("Put changed order: %v", got)
	}
	d.Put(NewInstance("z", "new", 0))
	if !d.Has("z") || d.Names()[3] != "z" {
		t.Error("Put should append a new name")
	}
}

func TestDatasetZeroValue(t *testing.T) {
	var d Dataset
	d.Add(NewInstance("x", "y", 0))
	if !d.Has("x") {
		t.Error("zero Dataset should accept Add")
	}
}

func TestDatasetJSONOrder(t *testing.T) {
	d := newTestDataset(t)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	back := &Dataset{}
	if err := json.Unmarshal(data, back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got := back.Names(); !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Errorf("order lost: %v", got)
	}
	inst, _ := back.Get("c")
	if inst.Sentence != "text c" {
		t.Errorf("Sentence = %q", inst.Sentence)
	}
}

func TestDatasetUnmarshalFillsDocName(t *testing.T) {
	in := `{"7":{"sentence":"x","entities":{"starts":[],"ends":[],"entity_mentions":[],"entity_names":[]}}}`
	d := &Dataset{}
	if err := json.Unmarshal([]byte(in), d); err != nil {
		t.Fatal(err)
	}
	inst, ok := d.Get("7")
	if !ok || inst.DocName != "7" {
		t.Errorf("DocName not filled: %+v", inst)
	}
}

func TestDatasetUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"array", `[]`},
		{"mismatched name", `{"a":{"doc_name":"b","sentence":""}}`},
		{"bad instance", `{"a":{"sentence":5}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Dataset{}
			if err := json.Unmarshal([]byte(tt.in), d); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestComputeStats(t *testing.T) {
	d := NewDataset("s", "xml")
	inst := NewInstance("d1", "Paris and Foo", 0)
	_ = inst.AddSpan(Span{Start: 0, End: 5, Mention: "Paris", Name: "Paris"})
	_ = inst.AddSpan(Span{Start: 10, End: 13, Mention: "Foo"})
	d.Add(inst)
	d.Add(NewInstance("d2", "empty", 0))

	got := ComputeStats(d)
	want := Stats{Documents: 2, EmptyDocuments: 1, Mentions: 2, Entities: 1, NILMentions: 1}
	if got != want {
		t.Errorf("ComputeStats() = %+v, want %+v", got, want)
	}
}
