// Package fence pulls delimiter-fenced JSON payloads out of model output.
//
// A completion may end with a block such as
//
//	###ACTION_JSON###
//	{"id": "action-1", "type": "transfer", "data": {...}}
//	###ACTION_JSON###
//
// Extract removes the block from the text shown to the user and returns the
// JSON between the fences. Everything here is pure string work so it can be
// tested and fuzzed without a live model.
package fence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when the text between two fences is not JSON.
var ErrMalformed = errors.New("fence: malformed payload")

// Extract looks for the first two occurrences of token in text.
//
// Without a complete pair it returns (text, nil, nil). When the fenced body
// is valid JSON it returns the text before the first fence joined with the
// text after the second one, trimmed, plus the raw payload. When the body is
// not valid JSON the original text is returned untouched with ErrMalformed.
func Extract(text, token string) (string, json.RawMessage, error) {
	if token == "" {
		return text, nil, nil
	}
	start := strings.Index(text, token)
	if start < 0 {
		return text, nil, nil
	}
	rest := text[start+len(token):]
	end := strings.Index(rest, token)
	if end < 0 {
		return text, nil, nil
	}

	body := stripCodeFence(rest[:end])
	if !json.Valid([]byte(body)) {
		return text, nil, fmt.Errorf("%w: %s block is not valid JSON", ErrMalformed, token)
	}

	visible := strings.TrimSpace(text[:start] + rest[end+len(token):])
	return visible, json.RawMessage(body), nil
}

// Decode runs Extract and unmarshals the payload into T. A payload that is
// valid JSON but does not fit T is reported as ErrMalformed and the original
// text is kept.
func Decode[T any](text, token string) (string, *T, error) {
	visible, raw, err := Extract(text, token)
	if err != nil || raw == nil {
		return text, nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return text, nil, fmt.Errorf("%w: %s block: %v", ErrMalformed, token, err)
	}
	return visible, &v, nil
}

// stripCodeFence drops a markdown ``` wrapper some models put around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if lang := strings.TrimSpace(s[:nl]); lang == "" || lang == "json" {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
