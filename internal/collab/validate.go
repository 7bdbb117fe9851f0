package collab

import (
	"context"
	"fmt"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/ir"
)

// ValidationField is the extra aligned field ValidateInstance writes.
const ValidationField = "validation_data"

// noDescription stands in for entities without a known description.
const noDescription = "No description available."

// Completer sends a prompt to a language model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Replacement is one predicted entity substituted into a sentence.
type Replacement struct {
	Sentence    string
	NewSentence string
	Original    string
	Predicted   string
	// Descriptions maps entity names to short descriptions for the prompt.
	Descriptions map[string]string
	// Context lists every predicted entity of the sentence.
	Context []string
}

// Validation is the model's verdict on one replacement.
type Validation struct {
	Entity   string `json:"entity"`
	Prompt   string `json:"validation_prompt"`
	Reply    string `json:"validation_reply"`
	Accepted bool   `json:"-"`
	Result   string `json:"validation_result"`
}

func (r *Replacement) describe(name string) string {
	if d, ok := r.Descriptions[name]; ok && d != "" {
		return d
	}
	return noDescription
}

// Prompt builds the yes/no question for r.
func (r *Replacement) Prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original sentence: %s\n", r.Sentence)
	fmt.Fprintf(&b, "Sentence after replacement: %s\n\n", r.NewSentence)
	fmt.Fprintf(&b, "Please judge whether the entity '%s' in the new sentence ('Sentence after replacement')\n", r.Predicted)
	fmt.Fprintf(&b, "correctly refers to the same entity as '%s' in the original sentence ('Original sentence').\n", r.Original)
	b.WriteString("Please base your judgment on the following entity descriptions in the sentence.\n")
	b.WriteString("Answer \"Yes\" or \"No\" and briefly explain your reasoning.\n")
	b.WriteString("If you are not sure about your answer, you should also state that.\n\n")
	b.WriteString("Entities in the sentence:\n")
	fmt.Fprintf(&b, "%s: %s\n", r.Predicted, r.describe(r.Predicted))
	for _, name := range r.Context {
		fmt.Fprintf(&b, "\n- %s: %s", name, r.describe(name))
	}
	return strings.TrimSpace(b.String())
}

// Accepts interprets a model reply: any "yes" counts as acceptance.
func Accepts(reply string) bool {
	return strings.Contains(strings.ToLower(reply), "yes")
}

func verdict(entity, prompt, reply string, ok bool) Validation {
	v := Validation{Entity: entity, Prompt: prompt, Reply: strings.TrimSpace(reply), Accepted: ok, Result: "No"}
	if ok {
		v.Result = "Yes"
	}
	return v
}

// ValidateReplacement asks c whether r keeps the meaning of the original
// mention.
func ValidateReplacement(ctx context.Context, c Completer, r *Replacement) (Validation, error) {
	prompt := r.Prompt()
	reply, err := c.Complete(ctx, prompt)
	if err != nil {
		return Validation{}, err
	}
	return verdict(r.Predicted, prompt, reply, Accepts(reply)), nil
}

// ValidateInstance validates every prediction of inst and stores the verdicts
// under ValidationField. NIL spans and spans without a prediction are
// accepted without a model call.
func ValidateInstance(ctx context.Context, c Completer, inst *ir.Instance, predicted []string, descriptions map[string]string) ([]Validation, error) {
	newSentence, err := ReplaceMentions(inst, predicted)
	if err != nil {
		return nil, err
	}
	out := make([]Validation, inst.Len())
	for i, s := range inst.Spans() {
		if s.IsNIL() || predicted[i] == "" {
			out[i] = verdict("", "", "", true)
			continue
		}
		v, err := ValidateReplacement(ctx, c, &Replacement{
			Sentence:     inst.Sentence,
			NewSentence:  newSentence,
			Original:     s.Mention,
			Predicted:    predicted[i],
			Descriptions: descriptions,
			Context:      predicted,
		})
		if err != nil {
			return nil, fmt.Errorf("validate %s span %d: %w", inst.DocName, i, err)
		}
		out[i] = v
	}
	if err := inst.SetExtra(ValidationField, out); err != nil {
		return nil, err
	}
	return out, nil
}
