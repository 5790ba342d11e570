// Package extract pulls structured JSON out of free-form model output.
// Models routinely wrap the requested object in prose or markdown fences,
// so callers locate the first balanced object instead of decoding the raw
// text.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoObject is returned when the text contains no balanced JSON object.
var ErrNoObject = errors.New("extract: no JSON object found")

// FirstObject returns the first balanced {...} span in text. Braces inside
// string literals are ignored and backslash escapes are honoured. An object
// that is opened but never closed yields ErrNoObject.
func FirstObject(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoObject
}

// Decode locates the first balanced object in text and unmarshals it into v.
func Decode(text string, v any) error {
	obj, err := FirstObject(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("extract: decode: %w", err)
	}
	return nil
}
