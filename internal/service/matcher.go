package service

import (
	"github.com/sirupsen/logrus"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// MatcherService applies the eligibility evaluator across collections. It
// holds no state between calls; trial and patient collections are read-only
// inputs for the duration of a run, so calls may overlap freely.
type MatcherService struct {
	logger *logrus.Logger
}

// NewMatcherService creates a new matcher service
func NewMatcherService(logger *logrus.Logger) *MatcherService {
	return &MatcherService{logger: logger}
}

// MatchPatientAcrossTrials evaluates one patient against every supplied
// trial, preserving the input trial order. The result always contains one
// entry per trial, matched or not; patient-centric views want verdicts for
// everything.
func (m *MatcherService) MatchPatientAcrossTrials(patient *domain.Patient, trials []*domain.Trial) []domain.MatchResult {
	results := make([]domain.MatchResult, 0, len(trials))
	matched := 0

	for _, trial := range trials {
		isMatch, reasons := Evaluate(patient, trial.Criteria)
		if isMatch {
			matched++
		}
		results = append(results, domain.MatchResult{
			PatientID:  patient.PatientID,
			TrialID:    trial.ID,
			TrialTitle: trial.Title,
			IsMatch:    isMatch,
			Reasons:    reasons,
		})
	}

	m.logger.WithFields(logrus.Fields{
		"patient_id":     patient.PatientID,
		"trials_checked": len(trials),
		"matches":        matched,
	}).Debug("Completed patient-centric matching")

	return results
}

// MatchTrialAcrossPatients evaluates every supplied patient against one
// trial, preserving the input patient order. With matchedOnly set, only
// matching patients are returned (the trial-centric view); otherwise every
// patient appears with its verdict.
func (m *MatcherService) MatchTrialAcrossPatients(trial *domain.Trial, patients []domain.Patient, matchedOnly bool) []domain.MatchResult {
	results := make([]domain.MatchResult, 0, len(patients))

	for i := range patients {
		patient := &patients[i]
		isMatch, reasons := Evaluate(patient, trial.Criteria)
		if matchedOnly && !isMatch {
			continue
		}
		results = append(results, domain.MatchResult{
			PatientID:  patient.PatientID,
			TrialID:    trial.ID,
			TrialTitle: trial.Title,
			IsMatch:    isMatch,
			Reasons:    reasons,
		})
	}

	m.logger.WithFields(logrus.Fields{
		"trial_id":         trial.ID,
		"patients_checked": len(patients),
		"results":          len(results),
		"matched_only":     matchedOnly,
	}).Debug("Completed trial-centric matching")

	return results
}
