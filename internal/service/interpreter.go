package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// InterpreterService is the interpretation-service extraction strategy. It
// delegates to the external text-interpretation client and degrades to an
// empty rule model when the service is unreachable or returns an unusable
// payload. The calling flow never sees a crash, only a flagged result.
type InterpreterService struct {
	logger *logrus.Logger
	client domain.Interpreter
}

// NewInterpreterService creates a new interpreter-strategy service
func NewInterpreterService(logger *logrus.Logger, client domain.Interpreter) *InterpreterService {
	return &InterpreterService{logger: logger, client: client}
}

// Extract sends raw protocol text to the interpretation service and returns
// a validated rule model. On any failure the result carries Degraded=true,
// an explanatory note and an empty criteria document so the caller can fall
// back to showing raw text only.
func (s *InterpreterService) Extract(ctx context.Context, rawText string) *domain.InterpretedCriteria {
	result, err := s.client.Interpret(ctx, rawText)
	if err != nil {
		matchErr := domain.NewMatchError(domain.ErrInterpretation,
			"could not interpret protocol text", err.Error(), "")
		s.logger.WithError(matchErr).Warn("Text interpretation failed, degrading to empty rule model")
		return &domain.InterpretedCriteria{
			Criteria:    domain.Criteria{},
			Degraded:    true,
			FailureNote: fmt.Sprintf("%s: %s", matchErr.Error(), err.Error()),
		}
	}

	s.logger.WithFields(logrus.Fields{
		"stages":           len(result.Criteria.Stage),
		"mutation_present": !result.Criteria.MutationRequired.Absent(),
	}).Info("Interpreted protocol text into structured criteria")

	return result
}
