// Package collab is the boundary to the external collaborators of the
// pipeline: candidate retrieval services and LLM validators. It builds their
// inputs from normalized instances and folds their answers back in as
// additive aligned fields.
package collab

import (
	"github.com/FocuswithJustin/DeepEL/core/ir"
)

// DefaultContextChars is the context window on each side of a mention.
const DefaultContextChars = 150

// MentionContext is one mention with the text around it.
type MentionContext struct {
	Left    string `json:"context_left"`
	Mention string `json:"mention"`
	Right   string `json:"context_right"`
}

// Contexts returns, for each span of inst, up to n code points of text on
// either side of the mention. A non-positive n yields empty contexts.
func Contexts(inst *ir.Instance, n int) []MentionContext {
	if n < 0 {
		n = 0
	}
	text := []rune(inst.Sentence)
	out := make([]MentionContext, inst.Len())
	for i, s := range inst.Spans() {
		left := max(0, s.Start-n)
		right := min(len(text), s.End+n)
		out[i] = MentionContext{
			Left:    string(text[left:s.Start]),
			Mention: s.Mention,
			Right:   string(text[s.End:right]),
		}
	}
	return out
}
