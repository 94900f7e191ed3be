package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Criteria is the structured representation of a trial's eligibility rules.
// Absent Stage means no stage restriction; an absent MutationRequired means
// no mutation restriction; an absent PerformanceStatusMax falls back to
// DefaultPerformanceStatusMax. Unknown keys in source documents are ignored.
type Criteria struct {
	Stage                []string            `json:"stage,omitempty"`
	MutationRequired     MutationRequirement `json:"mutation_required"`
	PerformanceStatusMax *int                `json:"performance_status_max,omitempty"`
}

// PerformanceCeiling returns the effective performance-status ceiling.
func (c Criteria) PerformanceCeiling() int {
	if c.PerformanceStatusMax == nil {
		return DefaultPerformanceStatusMax
	}
	return *c.PerformanceStatusMax
}

// HasStageRestriction reports whether the stage check applies.
func (c Criteria) HasStageRestriction() bool {
	return len(c.Stage) > 0
}

// AllowsStage reports whether the patient stage is in the eligible set.
func (c Criteria) AllowsStage(stage string) bool {
	for _, s := range c.Stage {
		if s == stage {
			return true
		}
	}
	return false
}

// criteriaJSON is the permissive wire shape. Authored documents are not
// trusted to use consistent types, so every field is coerced at load time
// rather than branching on shape during evaluation.
type criteriaJSON struct {
	Stage                json.RawMessage `json:"stage"`
	MutationRequired     json.RawMessage `json:"mutation_required"`
	PerformanceStatusMax json.RawMessage `json:"performance_status_max"`
}

// UnmarshalJSON decodes criteria permissively: scalar stage becomes a
// singleton set, mutation_required accepts scalar or list, and the
// performance ceiling accepts a number or a numeric string. Shapes that
// cannot be coerced resolve to "no restriction" for that key instead of
// failing the whole trial.
func (c *Criteria) UnmarshalJSON(data []byte) error {
	var raw criteriaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding criteria: %w", err)
	}

	c.Stage = coerceStringList(raw.Stage)

	if len(raw.MutationRequired) > 0 {
		if err := c.MutationRequired.UnmarshalJSON(raw.MutationRequired); err != nil {
			return fmt.Errorf("decoding mutation_required: %w", err)
		}
	} else {
		c.MutationRequired = MutationRequirement{}
	}

	c.PerformanceStatusMax = coerceCeiling(raw.PerformanceStatusMax)
	return nil
}

// MarshalJSON emits the canonical document shape: stage as a list,
// mutation_required as a scalar for Single and a list for Set, and the
// ceiling only when explicitly set.
func (c Criteria) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, 3)
	if len(c.Stage) > 0 {
		doc["stage"] = c.Stage
	}
	if !c.MutationRequired.Absent() {
		if v, ok := c.MutationRequired.Single(); ok {
			doc["mutation_required"] = v
		} else {
			doc["mutation_required"] = c.MutationRequired.Values()
		}
	}
	if c.PerformanceStatusMax != nil {
		doc["performance_status_max"] = *c.PerformanceStatusMax
	}
	return json.Marshal(doc)
}

// MutationRequirement is a tagged variant: Absent (no restriction),
// Single (one required mutation) or Set (any-of list). Source documents use
// both scalar and list forms; the shape is resolved once here.
type MutationRequirement struct {
	values []string
	single bool
}

// NewMutationSingle builds a Single requirement.
func NewMutationSingle(value string) MutationRequirement {
	return MutationRequirement{values: []string{value}, single: true}
}

// NewMutationSet builds a Set requirement. An empty list yields Absent.
func NewMutationSet(values []string) MutationRequirement {
	if len(values) == 0 {
		return MutationRequirement{}
	}
	return MutationRequirement{values: values}
}

// Absent reports whether no mutation restriction applies.
func (m MutationRequirement) Absent() bool {
	return len(m.values) == 0
}

// Single returns the required value when the requirement is the scalar form.
func (m MutationRequirement) Single() (string, bool) {
	if m.single && len(m.values) == 1 {
		return m.values[0], true
	}
	return "", false
}

// Values returns the allowed mutation values.
func (m MutationRequirement) Values() []string {
	return m.values
}

// Allows reports whether the patient's mutation status satisfies the
// requirement. An absent requirement allows everything.
func (m MutationRequirement) Allows(status string) bool {
	if m.Absent() {
		return true
	}
	for _, v := range m.values {
		if v == status {
			return true
		}
	}
	return false
}

// String renders the requirement for reason text.
func (m MutationRequirement) String() string {
	if m.Absent() {
		return "(none)"
	}
	if v, ok := m.Single(); ok {
		return "'" + v + "'"
	}
	return "[" + strings.Join(m.values, ", ") + "]"
}

// UnmarshalJSON accepts a scalar ("EGFR"), a list (["EGFR","PD-L1"]), null,
// or an empty string, coercing each to the variant form. Non-string scalars
// are stringified; unrecognized shapes coerce to Absent.
func (m *MutationRequirement) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*m = MutationRequirement{}
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*m = MutationRequirement{}
		} else {
			*m = NewMutationSingle(single)
		}
		return nil
	}

	if values := coerceStringList(data); values != nil {
		*m = NewMutationSet(values)
		return nil
	}

	if s := coerceScalar(data); s != "" {
		*m = NewMutationSingle(s)
		return nil
	}

	*m = MutationRequirement{}
	return nil
}

// MarshalJSON emits scalar, list or null depending on the variant.
func (m MutationRequirement) MarshalJSON() ([]byte, error) {
	if m.Absent() {
		return []byte("null"), nil
	}
	if v, ok := m.Single(); ok {
		return json.Marshal(v)
	}
	return json.Marshal(m.values)
}

// coerceStringList turns a JSON list of scalars, or a lone scalar, into a
// string slice. Returns nil when the value has no usable entries.
func coerceStringList(data json.RawMessage) []string {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s := coerceScalar(item); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	if s := coerceScalar(data); s != "" {
		return []string{s}
	}
	return nil
}

// coerceScalar renders a JSON scalar as a string. Objects and lists yield "".
func coerceScalar(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

// coerceCeiling accepts a number or a numeric string; fractional values are
// truncated. Anything else means "use the default".
func coerceCeiling(data json.RawMessage) *int {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		n := int(f)
		return &n
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return &n
		}
	}
	return nil
}
