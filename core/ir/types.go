package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/FocuswithJustin/DeepEL/core/errors"
)

// Fields selects the optional aligned sequences an Instance carries.
type Fields uint8

// Optional field flags.
const (
	FieldWikipediaIDs Fields = 1 << iota
	FieldCandidates
	FieldProbs
)

// Has reports whether all flags in f2 are set.
func (f Fields) Has(f2 Fields) bool {
	return f&f2 == f2
}

// NoWikipediaID is the id recorded when a token line carries none.
const NoWikipediaID = -1

// Span is one row of an Instance's aligned sequences.
type Span struct {
	// Start is the code-point offset where the mention starts.
	Start int `json:"start"`

	// End is the code-point offset one past the mention.
	End int `json:"end"`

	// Mention is the text between Start and End.
	Mention string `json:"mention"`

	// Name is the canonical entity, or "" for a NIL mention.
	Name string `json:"name"`

	// WikipediaID is only stored when the instance carries FieldWikipediaIDs.
	WikipediaID int `json:"wikipedia_id,omitempty"`

	// Candidates is only stored when the instance carries FieldCandidates.
	Candidates []string `json:"candidates,omitempty"`

	// Prob is only stored when the instance carries FieldProbs.
	Prob float64 `json:"prob,omitempty"`
}

// IsNIL reports whether the span has no linked entity.
func (s Span) IsNIL() bool {
	return s.Name == ""
}

// Entities holds the index-aligned span sequences of a document.
type Entities struct {
	Starts         []int    `json:"starts"`
	Ends           []int    `json:"ends"`
	EntityMentions []string `json:"entity_mentions"`
	EntityNames    []string `json:"entity_names"`

	// WikipediaIDs is carried by token-tag datasets.
	WikipediaIDs []int `json:"entity_wikipedia_ids,omitempty"`

	// Candidates is carried by JSON-record datasets.
	Candidates [][]string `json:"entity_candidates,omitempty"`

	// Probs is carried by XML datasets that annotate a disambiguation probability.
	Probs []float64 `json:"entity_probs,omitempty"`

	// Extra holds fields attached by downstream tools, keyed by JSON name.
	Extra map[string]json.RawMessage `json:"-"`
}

// coreKeys are the JSON names owned by Entities itself.
var coreKeys = map[string]bool{
	"starts":               true,
	"ends":                 true,
	"entity_mentions":      true,
	"entity_names":         true,
	"entity_wikipedia_ids": true,
	"entity_candidates":    true,
	"entity_probs":         true,
}

// entitiesJSON is the plain encoding of Entities, without Extra.
type entitiesJSON Entities

// Len returns the number of spans.
func (e *Entities) Len() int {
	return len(e.Starts)
}

// MarshalJSON encodes the core sequences (always as arrays) followed by the
// extra fields in key order.
func (e Entities) MarshalJSON() ([]byte, error) {
	plain := entitiesJSON(e)
	if plain.Starts == nil {
		plain.Starts = []int{}
	}
	if plain.Ends == nil {
		plain.Ends = []int{}
	}
	if plain.EntityMentions == nil {
		plain.EntityMentions = []string{}
	}
	if plain.EntityNames == nil {
		plain.EntityNames = []string{}
	}

	data, err := Marshal(plain)
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 {
		return data, nil
	}

	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, k := range keys {
		name, err := Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(e.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the core sequences and keeps every other key in Extra.
func (e *Entities) UnmarshalJSON(data []byte) error {
	var plain entitiesJSON
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if coreKeys[k] {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		plain.Extra = all
	}
	*e = Entities(plain)
	return nil
}

// Instance is the canonical record of one document.
type Instance struct {
	// DocName identifies the document within its dataset.
	DocName string `json:"doc_name,omitempty"`

	// Sentence is the document text all offsets refer to.
	Sentence string `json:"sentence"`

	// Entities holds the aligned span sequences.
	Entities Entities `json:"entities"`

	fields Fields
	runes  []rune
}

// NewInstance creates an empty Instance carrying the given optional fields.
func NewInstance(docName, sentence string, fields Fields) *Instance {
	inst := &Instance{
		DocName:  docName,
		Sentence: sentence,
		fields:   fields,
		runes:    []rune(sentence),
	}
	if fields.Has(FieldWikipediaIDs) {
		inst.Entities.WikipediaIDs = []int{}
	}
	if fields.Has(FieldCandidates) {
		inst.Entities.Candidates = [][]string{}
	}
	if fields.Has(FieldProbs) {
		inst.Entities.Probs = []float64{}
	}
	return inst
}

// UnmarshalJSON decodes an Instance and infers which optional fields it carries.
func (inst *Instance) UnmarshalJSON(data []byte) error {
	type plain Instance
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*inst = Instance(p)
	inst.runes = []rune(inst.Sentence)
	if inst.Entities.WikipediaIDs != nil {
		inst.fields |= FieldWikipediaIDs
	}
	if inst.Entities.Candidates != nil {
		inst.fields |= FieldCandidates
	}
	if inst.Entities.Probs != nil {
		inst.fields |= FieldProbs
	}
	return nil
}

// Fields returns the optional fields this instance carries.
func (inst *Instance) Fields() Fields {
	return inst.fields
}

// TextLen returns the text length in code points.
func (inst *Instance) TextLen() int {
	return len(inst.text())
}

// Slice returns the text in [start, end) code points.
func (inst *Instance) Slice(start, end int) (string, bool) {
	return SliceRunes(inst.text(), start, end)
}

func (inst *Instance) text() []rune {
	if inst.runes == nil && inst.Sentence != "" {
		inst.runes = []rune(inst.Sentence)
	}
	return inst.runes
}

// Len returns the number of spans.
func (inst *Instance) Len() int {
	return inst.Entities.Len()
}

// AddSpan appends a span after checking its offsets select its mention.
func (inst *Instance) AddSpan(s Span) error {
	found, ok := inst.Slice(s.Start, s.End)
	if !ok || found != s.Mention {
		return errors.NewAlignment(inst.DocName, s.Start, s.End, s.Mention, found)
	}

	e := &inst.Entities
	e.Starts = append(e.Starts, s.Start)
	e.Ends = append(e.Ends, s.End)
	e.EntityMentions = append(e.EntityMentions, s.Mention)
	e.EntityNames = append(e.EntityNames, s.Name)
	if inst.fields.Has(FieldWikipediaIDs) {
		e.WikipediaIDs = append(e.WikipediaIDs, s.WikipediaID)
	}
	if inst.fields.Has(FieldCandidates) {
		cands := s.Candidates
		if cands == nil {
			cands = []string{}
		}
		e.Candidates = append(e.Candidates, cands)
	}
	if inst.fields.Has(FieldProbs) {
		e.Probs = append(e.Probs, s.Prob)
	}
	return nil
}

// Span returns the i-th span.
func (inst *Instance) Span(i int) Span {
	e := &inst.Entities
	s := Span{
		Start:   e.Starts[i],
		End:     e.Ends[i],
		Mention: e.EntityMentions[i],
		Name:    e.EntityNames[i],
	}
	if i < len(e.WikipediaIDs) {
		s.WikipediaID = e.WikipediaIDs[i]
	}
	if i < len(e.Candidates) {
		s.Candidates = e.Candidates[i]
	}
	if i < len(e.Probs) {
		s.Prob = e.Probs[i]
	}
	return s
}

// Spans returns all spans in order.
func (inst *Instance) Spans() []Span {
	out := make([]Span, inst.Len())
	for i := range out {
		out[i] = inst.Span(i)
	}
	return out
}

// SortSpans stably orders spans by (start, end), keeping every aligned field,
// extras included, aligned.
func (inst *Instance) SortSpans() error {
	n := inst.Len()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	e := &inst.Entities
	sort.SliceStable(perm, func(a, b int) bool {
		pa, pb := perm[a], perm[b]
		if e.Starts[pa] != e.Starts[pb] {
			return e.Starts[pa] < e.Starts[pb]
		}
		return e.Ends[pa] < e.Ends[pb]
	})

	sorted := true
	for i, p := range perm {
		if i != p {
			sorted = false
			break
		}
	}
	if sorted {
		return nil
	}

	e.Starts = permute(e.Starts, perm)
	e.Ends = permute(e.Ends, perm)
	e.EntityMentions = permute(e.EntityMentions, perm)
	e.EntityNames = permute(e.EntityNames, perm)
	if len(e.WikipediaIDs) == n {
		e.WikipediaIDs = permute(e.WikipediaIDs, perm)
	}
	if len(e.Candidates) == n {
		e.Candidates = permute(e.Candidates, perm)
	}
	if len(e.Probs) == n {
		e.Probs = permute(e.Probs, perm)
	}
	for k, raw := range e.Extra {
		var values []json.RawMessage
		if err := json.Unmarshal(raw, &values); err != nil || len(values) != n {
			return fmt.Errorf("extra field %q is not aligned with spans", k)
		}
		data, err := Marshal(permute(values, perm))
		if err != nil {
			return err
		}
		e.Extra[k] = data
	}
	return nil
}

func permute[T any](s []T, perm []int) []T {
	out := make([]T, len(perm))
	for i, p := range perm {
		out[i] = s[p]
	}
	return out
}

// SetExtra attaches an aligned downstream field. values must encode as a JSON
// array with one element per span. Core sequences cannot be replaced.
func (inst *Instance) SetExtra(key string, values interface{}) error {
	if coreKeys[key] {
		return errors.NewConfig("extra field", key, "name is reserved for a core sequence")
	}
	data, err := Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode extra field %q: %w", key, err)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return fmt.Errorf("extra field %q must be an array: %w", key, err)
	}
	if len(elems) != inst.Len() {
		return fmt.Errorf("extra field %q has %d values for %d spans", key, len(elems), inst.Len())
	}
	if inst.Entities.Extra == nil {
		inst.Entities.Extra = make(map[string]json.RawMessage)
	}
	inst.Entities.Extra[key] = data
	return nil
}

// Extra decodes a downstream field into out. It reports false when absent.
func (inst *Instance) Extra(key string, out interface{}) (bool, error) {
	raw, ok := inst.Entities.Extra[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}
