package conll

import "strings"

// TagSpan is a run of tokens [Start, End], both ends inclusive.
type TagSpan struct {
	Start int
	End   int
}

// Reduction is the result of reducing a tag sequence to spans.
type Reduction struct {
	// Spans are the recognized spans in sequence order.
	Spans []TagSpan

	// Skipped holds the positions of tags outside O/B/I.
	Skipped []int

	// Unterminated holds the opening positions of spans that an O or B tag
	// interrupted before any closing I tag.
	Unterminated []int

	// Orphans holds I tags with no open span that do not close one either.
	// They contribute no token to any span.
	Orphans []int
}

type tagClass int

const (
	tagOther tagClass = iota
	tagO
	tagB
	tagI
)

func classify(tag string) tagClass {
	switch {
	case tag == "O":
		return tagO
	case strings.HasPrefix(tag, "B"):
		return tagB
	case strings.HasPrefix(tag, "I"):
		return tagI
	}
	return tagOther
}

// closes reports whether the tag following a span token ends the span.
func closes(tags []string, i int) bool {
	if i == len(tags)-1 {
		return true
	}
	next := tags[i+1]
	return next == "O" || strings.HasPrefix(next, "B")
}

type reduceState int

const (
	stateIdle reduceState = iota
	stateInSpan
)

// ReduceTags groups a BIO tag sequence into spans.
//
// B opens a span that ends at the last consecutive I tag; the span closes at
// the first position whose next tag is O, B, or the end of the sequence. An I
// tag with no open span is a single-token span of its own where a span would
// close, and is otherwise ignored, so "O I I O" yields only [2, 2]. Tags
// outside O/B/I are skipped without closing the open span.
func ReduceTags(tags []string) Reduction {
	var red Reduction
	state := stateIdle
	open := 0

	interrupt := func() {
		if state == stateInSpan {
			red.Unterminated = append(red.Unterminated, open)
			state = stateIdle
		}
	}

	for i, tag := range tags {
		switch classify(tag) {
		case tagO:
			interrupt()

		case tagB:
			interrupt()
			if closes(tags, i) {
				red.Spans = append(red.Spans, TagSpan{Start: i, End: i})
				continue
			}
			state, open = stateInSpan, i

		case tagI:
			if state == stateIdle {
				if closes(tags, i) {
					red.Spans = append(red.Spans, TagSpan{Start: i, End: i})
				} else {
					red.Orphans = append(red.Orphans, i)
				}
				continue
			}
			if closes(tags, i) {
				red.Spans = append(red.Spans, TagSpan{Start: open, End: i})
				state = stateIdle
			}

		default:
			red.Skipped = append(red.Skipped, i)
		}
	}
	interrupt()
	return red
}

// EncodeTags is the inverse of ReduceTags: B on the first token of each span,
// I on the rest and O elsewhere. Spans outside [0, n) are ignored.
func EncodeTags(spans []TagSpan, n int) []string {
	tags := make([]string, n)
	for i := range tags {
		tags[i] = "O"
	}
	for _, s := range spans {
		if s.Start < 0 || s.End >= n || s.Start > s.End {
			continue
		}
		tags[s.Start] = "B"
		for i := s.Start + 1; i <= s.End; i++ {
			tags[i] = "I"
		}
	}
	return tags
}
