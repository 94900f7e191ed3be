package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

type fakeInterpreter struct {
	result *domain.InterpretedCriteria
	err    error
}

func (f *fakeInterpreter) Interpret(ctx context.Context, rawText string) (*domain.InterpretedCriteria, error) {
	return f.result, f.err
}

func TestInterpreterService_Extract_Success(t *testing.T) {
	client := &fakeInterpreter{
		result: &domain.InterpretedCriteria{
			Criteria:     criteriaFromJSON(t, `{"stage": ["IV"], "mutation_required": "EGFR"}`),
			RawInclusion: "Stage IV disease. EGFR positive.",
			RawExclusion: "Prior EGFR TKI therapy.",
		},
	}
	svc := NewInterpreterService(quietLogger(), client)

	result := svc.Extract(context.Background(), "protocol text")

	require.NotNil(t, result)
	assert.False(t, result.Degraded)
	assert.Equal(t, []string{"IV"}, result.Criteria.Stage)
	assert.Equal(t, "Prior EGFR TKI therapy.", result.RawExclusion)
}

func TestInterpreterService_Extract_DegradesOnFailure(t *testing.T) {
	client := &fakeInterpreter{err: errors.New("connection refused")}
	svc := NewInterpreterService(quietLogger(), client)

	result := svc.Extract(context.Background(), "protocol text")

	require.NotNil(t, result)
	assert.True(t, result.Degraded)
	assert.Contains(t, result.FailureNote, domain.ErrInterpretation)
	assert.Contains(t, result.FailureNote, "could not interpret")
	assert.Contains(t, result.FailureNote, "connection refused")
	assert.False(t, result.Criteria.HasStageRestriction())
	assert.True(t, result.Criteria.MutationRequired.Absent())
	assert.Equal(t, domain.DefaultPerformanceStatusMax, result.Criteria.PerformanceCeiling())
}
