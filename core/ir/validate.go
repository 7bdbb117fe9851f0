package ir

import (
	"errors"
	"fmt"
)

// validateInstanceFn is injectable for testing error type handling.
var validateInstanceFn = ValidateInstance

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// newValidationError creates a new ValidationError.
func newValidationError(path, message string) error {
	return &ValidationError{Path: path, Message: message}
}

// ValidateDataset validates every instance and returns all validation errors.
func ValidateDataset(d *Dataset) []error {
	var errs []error

	for _, name := range d.order {
		inst := d.docs[name]
		docPath := fmt.Sprintf("dataset[%q]", name)
		if inst == nil {
			errs = append(errs, newValidationError(docPath, "instance is nil"))
			continue
		}
		if inst.DocName != name {
			errs = append(errs, newValidationError(docPath,
				fmt.Sprintf("doc_name %q does not match key", inst.DocName)))
		}
		for _, err := range validateInstanceFn(inst) {
			var ve *ValidationError
			if errors.As(err, &ve) {
				errs = append(errs, newValidationError(
					fmt.Sprintf("%s.%s", docPath, ve.Path), ve.Message))
			} else {
				errs = append(errs, newValidationError(docPath, err.Error()))
			}
		}
	}

	return errs
}

// ValidateInstance checks the alignment and offset invariants of an instance.
func ValidateInstance(inst *Instance) []error {
	var errs []error
	e := &inst.Entities
	n := len(e.Starts)

	lengths := []struct {
		name string
		len  int
	}{
		{"ends", len(e.Ends)},
		{"entity_mentions", len(e.EntityMentions)},
		{"entity_names", len(e.EntityNames)},
	}
	for _, l := range lengths {
		if l.len != n {
			errs = append(errs, newValidationError("entities."+l.name,
				fmt.Sprintf("length %d does not match starts length %d", l.len, n)))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	optional := []struct {
		name    string
		len     int
		present bool
	}{
		{"entity_wikipedia_ids", len(e.WikipediaIDs), e.WikipediaIDs != nil},
		{"entity_candidates", len(e.Candidates), e.Candidates != nil},
		{"entity_probs", len(e.Probs), e.Probs != nil},
	}
	for _, o := range optional {
		if o.present && o.len != n {
			errs = append(errs, newValidationError("entities."+o.name,
				fmt.Sprintf("length %d does not match span count %d", o.len, n)))
		}
	}

	textLen := inst.TextLen()
	for i := 0; i < n; i++ {
		spanPath := fmt.Sprintf("entities[%d]", i)
		start, end := e.Starts[i], e.Ends[i]
		if start < 0 {
			errs = append(errs, newValidationError(spanPath, "start cannot be negative"))
			continue
		}
		if end < start {
			errs = append(errs, newValidationError(spanPath, "end cannot be before start"))
			continue
		}
		if end > textLen {
			errs = append(errs, newValidationError(spanPath,
				fmt.Sprintf("end %d beyond text length %d", end, textLen)))
			continue
		}
		if got, _ := inst.Slice(start, end); got != e.EntityMentions[i] {
			errs = append(errs, newValidationError(spanPath,
				fmt.Sprintf("mention %q does not match text %q", e.EntityMentions[i], got)))
		}
	}

	return errs
}

// IsSorted reports whether spans are ordered by (start, end).
func IsSorted(inst *Instance) bool {
	e := &inst.Entities
	for i := 1; i < len(e.Starts); i++ {
		if e.Starts[i] < e.Starts[i-1] ||
			(e.Starts[i] == e.Starts[i-1] && e.Ends[i] < e.Ends[i-1]) {
			return false
		}
	}
	return true
}
