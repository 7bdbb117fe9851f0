package xmlanno

import (
	"fmt"
	"io"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/internal/formats/base"
)

// EventType identifies a tokenizer event.
type EventType int

// Event types.
const (
	EventDocument EventType = iota
	EventAnnotationStart
	EventField
	EventAnnotationEnd
)

func (t EventType) String() string {
	switch t {
	case EventDocument:
		return "document"
	case EventAnnotationStart:
		return "annotation-start"
	case EventField:
		return "field"
	case EventAnnotationEnd:
		return "annotation-end"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is one unit of the annotation stream.
type Event struct {
	Type EventType

	// Name is the document name for EventDocument and the element name for
	// EventField.
	Name string

	// Value is the raw element text of a field. Empty elements have "".
	Value string

	// Line is where the event starts.
	Line int
}

const (
	docMarker    = `document docName="`
	docMarkerEnd = `">`
	annoOpen     = "<annotation>"
	annoClose    = "</annotation>"
)

type tokState int

const (
	stateTop tokState = iota
	stateAnnotation
	stateInField
)

// Tokenizer turns the annotation file into events, one line at a time.
//
// Outside annotations only document lines matter. Inside an annotation each
// line holds one element. An element whose closing tag is not on its opening
// line keeps the tokenizer in the in-field state, collecting lines (newlines
// included) until the closing tag appears.
type Tokenizer struct {
	path  string
	lines *base.LineReader

	state tokState
	event Event
	err   error

	field     string
	fieldLine int
	buf       strings.Builder
}

// NewTokenizer returns a tokenizer over r. path is used in errors.
func NewTokenizer(r io.Reader, path string) *Tokenizer {
	t := &Tokenizer{}
	t.Reset(r, path)
	return t
}

// Reset restarts the tokenizer over a new reader.
func (t *Tokenizer) Reset(r io.Reader, path string) {
	t.path = path
	t.lines = base.NewLineReader(r, path)
	t.state = stateTop
	t.event = Event{}
	t.err = nil
	t.field = ""
	t.fieldLine = 0
	t.buf.Reset()
}

// Event returns the current event.
func (t *Tokenizer) Event() Event {
	return t.event
}

// Err returns the first error met, or nil at a clean end of input.
func (t *Tokenizer) Err() error {
	return t.err
}

// Next advances to the next event.
func (t *Tokenizer) Next() bool {
	if t.err != nil {
		return false
	}
	for t.lines.Next() {
		ev, ok, err := t.step(t.lines.Text(), t.lines.Line())
		if err != nil {
			t.err = err
			return false
		}
		if ok {
			t.event = ev
			return true
		}
	}
	if err := t.lines.Err(); err != nil {
		t.err = err
		return false
	}
	switch t.state {
	case stateInField:
		t.err = t.errorf(t.fieldLine, "<%s> is never closed", t.field)
	case stateAnnotation:
		t.err = t.errorf(t.lines.Line(), "annotation is never closed")
	}
	return false
}

func (t *Tokenizer) errorf(line int, msg string, args ...interface{}) error {
	return errors.NewParsef(FormatName, t.path, line, msg, args...)
}

// step feeds one line to the state machine and reports whether it produced
// an event.
func (t *Tokenizer) step(line string, lineNo int) (Event, bool, error) {
	switch t.state {
	case stateTop:
		if i := strings.Index(line, docMarker); i >= 0 {
			rest := line[i+len(docMarker):]
			j := strings.Index(rest, docMarkerEnd)
			if j < 0 {
				return Event{}, false, t.errorf(lineNo, "document line without closing %q", docMarkerEnd)
			}
			return Event{Type: EventDocument, Name: rest[:j], Line: lineNo}, true, nil
		}
		if strings.Contains(line, annoOpen) {
			t.state = stateAnnotation
			return Event{Type: EventAnnotationStart, Line: lineNo}, true, nil
		}
		return Event{}, false, nil

	case stateAnnotation:
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return Event{}, false, nil
		}
		if strings.Contains(trimmed, annoClose) {
			t.state = stateTop
			return Event{Type: EventAnnotationEnd, Line: lineNo}, true, nil
		}
		return t.element(trimmed, line, lineNo)

	case stateInField:
		closing := "</" + t.field + ">"
		if i := strings.Index(line, closing); i >= 0 {
			t.buf.WriteString(line[:i])
			t.state = stateAnnotation
			return Event{Type: EventField, Name: t.field, Value: t.buf.String(), Line: t.fieldLine}, true, nil
		}
		t.buf.WriteString(line)
		t.buf.WriteByte('\n')
		return Event{}, false, nil
	}
	return Event{}, false, t.errorf(lineNo, "tokenizer in unknown state %d", t.state)
}

// element reads "<name/>", "<name>value</name>" or the opening line of a
// multi-line element.
func (t *Tokenizer) element(s, raw string, lineNo int) (Event, bool, error) {
	if !strings.HasPrefix(s, "<") {
		return Event{}, false, t.errorf(lineNo, "expected an element, got %q", s)
	}
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return Event{}, false, t.errorf(lineNo, "unterminated tag %q", s)
	}
	tag := s[1:end]
	if strings.HasSuffix(tag, "/") {
		name := strings.TrimSpace(strings.TrimSuffix(tag, "/"))
		return Event{Type: EventField, Name: name, Line: lineNo}, true, nil
	}
	if tag == "" || strings.HasPrefix(tag, "/") {
		return Event{}, false, t.errorf(lineNo, "unexpected tag %q", s)
	}

	rest := s[end+1:]
	closing := "</" + tag + ">"
	if i := strings.Index(rest, closing); i >= 0 {
		return Event{Type: EventField, Name: tag, Value: rest[:i], Line: lineNo}, true, nil
	}

	// The value continues on the following lines. Keep the untrimmed tail of
	// the opening line.
	t.state = stateInField
	t.field = tag
	t.fieldLine = lineNo
	t.buf.Reset()
	t.buf.WriteString(raw[strings.Index(raw, "<"+tag+">")+len(tag)+2:])
	t.buf.WriteByte('\n')
	return Event{}, false, nil
}
