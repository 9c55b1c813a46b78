package questionnaire

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FindJSONArray returns the first complete, well-formed JSON array in s.
// Candidates start at each '[' from left to right; the first one that
// decodes as a whole JSON value wins, and anything after it is ignored.
func FindJSONArray(s string) (json.RawMessage, error) {
	if strings.TrimSpace(s) == "" {
		return nil, &ModelContractError{Reason: ReasonEmptyResponse}
	}
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return nil, &ModelContractError{Reason: ReasonNoArray, Detail: "response contains no '['"}
	}

	var firstErr error
	for start >= 0 {
		dec := json.NewDecoder(strings.NewReader(s[start:]))
		dec.UseNumber()
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if err == nil {
			if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
				return trimmed, nil
			}
		} else if firstErr == nil {
			firstErr = err
		}
		next := strings.IndexByte(s[start+1:], '[')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, &ModelContractError{Reason: ReasonInvalidJSON, Detail: "no bracketed candidate parsed as a JSON array", Err: firstErr}
}
