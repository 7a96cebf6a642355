package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ClassificationPrompt instructs the model to label one term per input line.
const ClassificationPrompt = `You are an NER system that classifies terms into PERSON, PLACE, ORGANIZATION, or TERM.
Each input line is exactly one term: "Aberdeen, Scotland" is a single term because it occupies one line.
For example, the term "Thomas Jefferson" is a PERSON.

Respond with a JSON object in this format and nothing else:
{"classifications": [{"term": "<term exactly as given>", "classification": "PERSON|PLACE|ORGANIZATION|TERM"}]}`

type classification struct {
	Term           string `json:"term"`
	Classification string `json:"classification"`
}

// ParseClassifications decodes a model answer into a term -> label mapping.
// Accepted shapes:
//
//	{"classifications": [{"term": "...", "classification": "..."}]}
//	{"classifications": {"term": "LABEL"}}
//	{"term": "LABEL"}
//
// Markdown code fences around the JSON are ignored.
func ParseClassifications(raw string) (map[string]string, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if inner, ok := top["classifications"]; ok {
		var list []classification
		if err := json.Unmarshal(inner, &list); err == nil {
			out := make(map[string]string, len(list))
			for _, c := range list {
				if c.Term != "" && c.Classification != "" {
					out[c.Term] = c.Classification
				}
			}
			return out, nil
		}
		var flat map[string]string
		if err := json.Unmarshal(inner, &flat); err != nil {
			return nil, fmt.Errorf("%w: classifications is neither a list nor an object", ErrMalformedResponse)
		}
		return flat, nil
	}

	out := make(map[string]string, len(top))
	for term, v := range top {
		var label string
		if err := json.Unmarshal(v, &label); err != nil {
			return nil, fmt.Errorf("%w: value for %q is not a string", ErrMalformedResponse, term)
		}
		out[term] = label
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
