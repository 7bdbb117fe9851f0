package collab

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/ir"
)

// ReplaceMentions rewrites the sentence of inst with each linked mention
// replaced by its predicted entity name. NIL spans and spans with no
// prediction keep their mention. predicted is aligned with the spans; spans
// that overlap an earlier one are left as they are.
func ReplaceMentions(inst *ir.Instance, predicted []string) (string, error) {
	if len(predicted) != inst.Len() {
		return "", fmt.Errorf("%s: %d predictions for %d spans", inst.DocName, len(predicted), inst.Len())
	}
	text := []rune(inst.Sentence)
	var b strings.Builder
	last := 0
	for i, s := range inst.Spans() {
		if s.Start < last {
			continue
		}
		b.WriteString(string(text[last:s.Start]))
		if !s.IsNIL() && predicted[i] != "" {
			b.WriteString(predicted[i])
		} else {
			b.WriteString(s.Mention)
		}
		last = s.End
	}
	b.WriteString(string(text[last:]))
	return b.String(), nil
}
