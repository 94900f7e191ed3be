package service

import (
	"fmt"
	"strings"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// Evaluate compares one patient against one trial's criteria and returns the
// verdict plus an ordered explanation trail. Checks run in fixed order
// (stage, mutation, performance status) and every applicable check
// contributes exactly one reason whether it passes or fails (all checks are
// always evaluated; there is no short-circuit). Pure function of its inputs.
func Evaluate(patient *domain.Patient, criteria domain.Criteria) (bool, []string) {
	match := true
	reasons := make([]string, 0, 3)

	// Stage check: applicable only when the trial restricts stages.
	if criteria.HasStageRestriction() {
		if !criteria.AllowsStage(patient.Stage) {
			match = false
			reasons = append(reasons, fmt.Sprintf(
				"Stage '%s' not in trial eligible stages [%s].",
				patient.Stage, strings.Join(criteria.Stage, ", ")))
		} else {
			reasons = append(reasons, fmt.Sprintf(
				"Stage '%s' matches trial eligible stages.", patient.Stage))
		}
	}

	// Mutation check: applicable only when the trial requires a mutation.
	if req := criteria.MutationRequired; !req.Absent() {
		if single, ok := req.Single(); ok {
			if patient.MutationStatus != single {
				match = false
				reasons = append(reasons, fmt.Sprintf(
					"Mutation status '%s' does not match required '%s'.",
					patient.MutationStatus, single))
			} else {
				reasons = append(reasons, fmt.Sprintf(
					"Mutation status '%s' matches required '%s'.",
					patient.MutationStatus, single))
			}
		} else {
			if !req.Allows(patient.MutationStatus) {
				match = false
				reasons = append(reasons, fmt.Sprintf(
					"Mutation status '%s' not in required %s.",
					patient.MutationStatus, req.String()))
			} else {
				reasons = append(reasons, fmt.Sprintf(
					"Mutation status '%s' matches required mutations.",
					patient.MutationStatus))
			}
		}
	}

	// Performance-status check: always applicable. Equal to the ceiling
	// passes; only strictly greater fails.
	ceiling := criteria.PerformanceCeiling()
	if patient.PerformanceStatus > ceiling {
		match = false
		reasons = append(reasons, fmt.Sprintf(
			"Performance status %d exceeds max allowed %d.",
			patient.PerformanceStatus, ceiling))
	} else {
		reasons = append(reasons, fmt.Sprintf(
			"Performance status %d is within allowed max %d.",
			patient.PerformanceStatus, ceiling))
	}

	return match, reasons
}
