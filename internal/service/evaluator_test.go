package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

func criteriaFromJSON(t *testing.T, doc string) domain.Criteria {
	t.Helper()
	var c domain.Criteria
	require.NoError(t, json.Unmarshal([]byte(doc), &c))
	return c
}

func testPatient() *domain.Patient {
	return &domain.Patient{
		PatientID:         "P001",
		Stage:             "IIIA",
		MutationStatus:    "EGFR",
		PerformanceStatus: 1,
	}
}

func TestEvaluate_EmptyCriteriaMatchesByDefaultCeiling(t *testing.T) {
	match, reasons := Evaluate(testPatient(), criteriaFromJSON(t, `{}`))

	assert.True(t, match)
	// Only the always-applicable performance check contributes a reason.
	require.Len(t, reasons, 1)
	assert.Equal(t, "Performance status 1 is within allowed max 2.", reasons[0])
}

func TestEvaluate_StageMismatch(t *testing.T) {
	patient := testPatient()
	criteria := criteriaFromJSON(t, `{"stage": ["I", "II"]}`)

	match, reasons := Evaluate(patient, criteria)

	assert.False(t, match)
	require.Len(t, reasons, 2)
	assert.Equal(t, "Stage 'IIIA' not in trial eligible stages [I, II].", reasons[0])
	assert.Equal(t, "Performance status 1 is within allowed max 2.", reasons[1])
}

func TestEvaluate_MutationListMismatch(t *testing.T) {
	patient := testPatient()
	patient.MutationStatus = "KRAS_G12C"
	criteria := criteriaFromJSON(t, `{"mutation_required": ["EGFR", "PD-L1"]}`)

	match, reasons := Evaluate(patient, criteria)

	assert.False(t, match)
	require.Len(t, reasons, 2)
	assert.Equal(t, "Mutation status 'KRAS_G12C' not in required [EGFR, PD-L1].", reasons[0])
}

func TestEvaluate_MutationScalarMatch(t *testing.T) {
	match, reasons := Evaluate(testPatient(), criteriaFromJSON(t, `{"mutation_required": "EGFR"}`))

	assert.True(t, match)
	require.Len(t, reasons, 2)
	assert.Equal(t, "Mutation status 'EGFR' matches required 'EGFR'.", reasons[0])
}

func TestEvaluate_PerformanceStatusBoundary(t *testing.T) {
	criteria := criteriaFromJSON(t, `{"performance_status_max": 2}`)

	patient := testPatient()
	patient.PerformanceStatus = 2
	match, reasons := Evaluate(patient, criteria)
	assert.True(t, match, "equal to the ceiling must pass")
	assert.Equal(t, "Performance status 2 is within allowed max 2.", reasons[0])

	patient.PerformanceStatus = 3
	match, reasons = Evaluate(patient, criteria)
	assert.False(t, match)
	assert.Equal(t, "Performance status 3 exceeds max allowed 2.", reasons[0])
}

func TestEvaluate_CheckOrderAndExhaustiveReasons(t *testing.T) {
	// All three checks fail; every reason is still reported, in stage,
	// mutation, performance-status order.
	patient := &domain.Patient{
		PatientID:         "P002",
		Stage:             "IV",
		MutationStatus:    "none",
		PerformanceStatus: 4,
	}
	criteria := criteriaFromJSON(t, `{
		"stage": ["I", "II"],
		"mutation_required": "EGFR",
		"performance_status_max": 1
	}`)

	match, reasons := Evaluate(patient, criteria)

	assert.False(t, match)
	require.Len(t, reasons, 3)
	assert.Equal(t, "Stage 'IV' not in trial eligible stages [I, II].", reasons[0])
	assert.Equal(t, "Mutation status 'none' does not match required 'EGFR'.", reasons[1])
	assert.Equal(t, "Performance status 4 exceeds max allowed 1.", reasons[2])
}

func TestEvaluate_AllChecksPass(t *testing.T) {
	criteria := criteriaFromJSON(t, `{
		"stage": ["IIIA", "IIIB"],
		"mutation_required": ["EGFR", "PD-L1"],
		"performance_status_max": 2
	}`)

	match, reasons := Evaluate(testPatient(), criteria)

	assert.True(t, match)
	require.Len(t, reasons, 3)
	assert.Equal(t, "Stage 'IIIA' matches trial eligible stages.", reasons[0])
	assert.Equal(t, "Mutation status 'EGFR' matches required mutations.", reasons[1])
	assert.Equal(t, "Performance status 1 is within allowed max 2.", reasons[2])
}

func TestEvaluate_Deterministic(t *testing.T) {
	patient := testPatient()
	criteria := criteriaFromJSON(t, `{"stage": ["I"], "mutation_required": ["ALK"]}`)

	firstMatch, firstReasons := Evaluate(patient, criteria)
	for i := 0; i < 10; i++ {
		match, reasons := Evaluate(patient, criteria)
		assert.Equal(t, firstMatch, match)
		assert.Equal(t, firstReasons, reasons)
	}
}
