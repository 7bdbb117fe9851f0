// Package ir provides the canonical representation every dataset reader produces.
//
// Entity-linking datasets arrive as token-tagged text, RDF/NIF graphs, streamed
// XML annotation markup or JSON-lines records. Each reader normalizes its input
// into the same shape: a document's raw text plus index-aligned span sequences.
//
// # Core Types
//
//   - Dataset: ordered mapping from document name to Instance
//   - Instance: one document, its text and its Entities
//   - Entities: parallel sequences (starts, ends, entity_mentions, entity_names)
//   - Span: one row of Entities, used when building or iterating
//
// # Offsets
//
// Offsets are half-open [start, end) Unicode code-point offsets into the
// document text, the coordinate system the source datasets use. For every span
// the mention equals the text between its offsets; Instance.AddSpan refuses
// spans that break this.
//
// # Additive Fields
//
// Readers may carry format-specific aligned fields (Wikipedia ids, candidate
// lists, probabilities). Downstream tools may attach further aligned fields
// with Instance.SetExtra; unknown fields survive JSON round trips untouched.
//
// # Example
//
//	inst := ir.NewInstance("doc1", "John Smith works", 0)
//	if err := inst.AddSpan(ir.Span{Start: 0, End: 10, Mention: "John Smith"}); err != nil {
//	    return err
//	}
//	ds := ir.NewDataset("kore50", "token-tag")
//	ds.Add(inst)
package ir
