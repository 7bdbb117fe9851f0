package ir

import (
	"bytes"
	"encoding/json"
)

// Marshal encodes v like json.Marshal but leaves <, > and & unescaped, so
// mentions such as "AT&T" are written as they appear in the text.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
