package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriteria_UnmarshalJSON_FullDocument(t *testing.T) {
	data := []byte(`{
		"stage": ["IIIA", "IIIB", "IV"],
		"mutation_required": "EGFR",
		"performance_status_max": 1,
		"sponsor": "ignored-unknown-key"
	}`)

	var c Criteria
	require.NoError(t, json.Unmarshal(data, &c))

	assert.Equal(t, []string{"IIIA", "IIIB", "IV"}, c.Stage)
	single, ok := c.MutationRequired.Single()
	assert.True(t, ok)
	assert.Equal(t, "EGFR", single)
	assert.Equal(t, 1, c.PerformanceCeiling())
}

func TestCriteria_UnmarshalJSON_Defaults(t *testing.T) {
	var c Criteria
	require.NoError(t, json.Unmarshal([]byte(`{}`), &c))

	assert.False(t, c.HasStageRestriction())
	assert.True(t, c.MutationRequired.Absent())
	assert.Nil(t, c.PerformanceStatusMax)
	assert.Equal(t, DefaultPerformanceStatusMax, c.PerformanceCeiling())
}

func TestCriteria_UnmarshalJSON_MutationList(t *testing.T) {
	var c Criteria
	require.NoError(t, json.Unmarshal([]byte(`{"mutation_required": ["EGFR", "PD-L1"]}`), &c))

	_, ok := c.MutationRequired.Single()
	assert.False(t, ok)
	assert.Equal(t, []string{"EGFR", "PD-L1"}, c.MutationRequired.Values())
	assert.True(t, c.MutationRequired.Allows("PD-L1"))
	assert.False(t, c.MutationRequired.Allows("KRAS_G12C"))
}

func TestCriteria_UnmarshalJSON_PermissiveCoercion(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want func(t *testing.T, c Criteria)
	}{
		{
			name: "scalar stage becomes singleton set",
			doc:  `{"stage": "IV"}`,
			want: func(t *testing.T, c Criteria) {
				assert.Equal(t, []string{"IV"}, c.Stage)
			},
		},
		{
			name: "empty mutation list means no restriction",
			doc:  `{"mutation_required": []}`,
			want: func(t *testing.T, c Criteria) {
				assert.True(t, c.MutationRequired.Absent())
			},
		},
		{
			name: "empty mutation string means no restriction",
			doc:  `{"mutation_required": ""}`,
			want: func(t *testing.T, c Criteria) {
				assert.True(t, c.MutationRequired.Absent())
			},
		},
		{
			name: "null mutation means no restriction",
			doc:  `{"mutation_required": null}`,
			want: func(t *testing.T, c Criteria) {
				assert.True(t, c.MutationRequired.Absent())
			},
		},
		{
			name: "object mutation coerces to absent",
			doc:  `{"mutation_required": {"gene": "EGFR"}}`,
			want: func(t *testing.T, c Criteria) {
				assert.True(t, c.MutationRequired.Absent())
			},
		},
		{
			name: "ceiling as numeric string",
			doc:  `{"performance_status_max": "3"}`,
			want: func(t *testing.T, c Criteria) {
				assert.Equal(t, 3, c.PerformanceCeiling())
			},
		},
		{
			name: "fractional ceiling truncates",
			doc:  `{"performance_status_max": 2.7}`,
			want: func(t *testing.T, c Criteria) {
				assert.Equal(t, 2, c.PerformanceCeiling())
			},
		},
		{
			name: "non-numeric ceiling falls back to default",
			doc:  `{"performance_status_max": "high"}`,
			want: func(t *testing.T, c Criteria) {
				assert.Nil(t, c.PerformanceStatusMax)
				assert.Equal(t, DefaultPerformanceStatusMax, c.PerformanceCeiling())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Criteria
			require.NoError(t, json.Unmarshal([]byte(tt.doc), &c))
			tt.want(t, c)
		})
	}
}

func TestCriteria_MarshalJSON_CanonicalShape(t *testing.T) {
	max := 1
	c := Criteria{
		Stage:                []string{"I", "II"},
		MutationRequired:     NewMutationSingle("EGFR"),
		PerformanceStatusMax: &max,
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":["I","II"],"mutation_required":"EGFR","performance_status_max":1}`, string(data))
}

func TestCriteria_MarshalJSON_OmitsAbsentKeys(t *testing.T) {
	data, err := json.Marshal(Criteria{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestCriteria_RoundTrip(t *testing.T) {
	src := `{"stage":["IIIA"],"mutation_required":["EGFR","PD-L1"],"performance_status_max":2}`

	var c Criteria
	require.NoError(t, json.Unmarshal([]byte(src), &c))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(data))
}

func TestMutationRequirement_String(t *testing.T) {
	assert.Equal(t, "(none)", MutationRequirement{}.String())
	assert.Equal(t, "'EGFR'", NewMutationSingle("EGFR").String())
	assert.Equal(t, "[EGFR, PD-L1]", NewMutationSet([]string{"EGFR", "PD-L1"}).String())
}
