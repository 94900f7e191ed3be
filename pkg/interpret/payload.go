package interpret

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// ErrUnparsable is returned when the interpretation service's response is
// not a JSON document in the expected shape. Callers treat it as a
// recoverable "could not interpret" condition.
var ErrUnparsable = errors.New("interpretation response is not a parsable criteria document")

// payload is the expected five-field response shape. Every field is kept
// raw and coerced individually: the service is a black box and nothing in
// its output is trusted until validated.
type payload struct {
	Stage                json.RawMessage `json:"stage"`
	MutationRequired     json.RawMessage `json:"mutation_required"`
	PerformanceStatusMax json.RawMessage `json:"performance_status_max"`
	RawInclusion         json.RawMessage `json:"raw_inclusion"`
	RawExclusion         json.RawMessage `json:"raw_exclusion"`
}

// ParsePayload validates and coerces a raw service response into the rule
// model. Markdown code fences around the document are tolerated; a body
// that does not parse as a JSON object yields ErrUnparsable.
func ParsePayload(body string) (*domain.InterpretedCriteria, error) {
	doc := stripCodeFence(body)

	var p payload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, ErrUnparsable
	}

	// Reassemble the criteria keys and run them through the same permissive
	// load-time coercion used for authored trial documents.
	criteriaDoc, err := json.Marshal(map[string]json.RawMessage{
		"stage":                  orNull(p.Stage),
		"mutation_required":      orNull(p.MutationRequired),
		"performance_status_max": orNull(p.PerformanceStatusMax),
	})
	if err != nil {
		return nil, ErrUnparsable
	}

	var criteria domain.Criteria
	if err := json.Unmarshal(criteriaDoc, &criteria); err != nil {
		return nil, ErrUnparsable
	}

	return &domain.InterpretedCriteria{
		Criteria:     criteria,
		RawInclusion: coerceText(p.RawInclusion),
		RawExclusion: coerceText(p.RawExclusion),
	}, nil
}

// orNull substitutes an explicit JSON null for absent raw fields so the
// reassembled document always carries all three criteria keys.
func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// coerceText renders raw_inclusion/raw_exclusion as display text. The
// service sometimes returns a list of lines instead of one string.
func coerceText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "\n")
	}
	return ""
}

// stripCodeFence removes a surrounding markdown code fence, with or without
// a language tag, from a response body.
func stripCodeFence(body string) string {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the fence line itself ("json", "JSON", or empty).
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
