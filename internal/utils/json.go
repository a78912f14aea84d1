package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MarshalNoEscape marshals JSON without HTML escaping.
// Chat content routinely carries '<' and '&'; escaping them would alter
// what the backend stores.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder adds a trailing newline; remove it for parity with json.Marshal.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// DecodeNumberPreserving decodes one JSON document into an untyped value,
// keeping numbers as json.Number so large integer IDs survive re-encoding.
// Trailing data after the document is an error.
func DecodeNumberPreserving(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON document")
	}
	return v, nil
}
