package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// Required roster columns. Any other column is carried as a free-form
// patient attribute.
var requiredColumns = []string{"patient_id", "stage", "mutation_status", "performance_status"}

// FileStore loads the patient roster from a CSV file and trial rule
// documents from a directory of JSON files. Patients are loaded once at
// construction; trial documents are read per request through an LRU cache
// so edited files are picked up after eviction.
type FileStore struct {
	patientsFile string
	trialsDir    string

	patients []domain.Patient
	byID     map[string]int

	cache  *lru.Cache[string, *domain.Trial]
	logger *logrus.Logger
}

// NewFileStore loads the roster eagerly and fails fast on a malformed
// roster file. Trial documents are validated lazily.
func NewFileStore(config domain.StoreConfig, logger *logrus.Logger) (*FileStore, error) {
	patients, byID, err := loadPatients(config.PatientsFile)
	if err != nil {
		return nil, err
	}

	size := config.TrialCacheSize
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, *domain.Trial](size)
	if err != nil {
		return nil, fmt.Errorf("creating trial cache: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"patients":   len(patients),
		"trials_dir": config.TrialsDir,
	}).Info("Record store initialized")

	return &FileStore{
		patientsFile: config.PatientsFile,
		trialsDir:    config.TrialsDir,
		patients:     patients,
		byID:         byID,
		cache:        cache,
		logger:       logger,
	}, nil
}

// Patients returns the roster in file order.
func (s *FileStore) Patients() []domain.Patient {
	out := make([]domain.Patient, len(s.patients))
	copy(out, s.patients)
	return out
}

// Patient looks up one roster row by ID.
func (s *FileStore) Patient(id string) (*domain.Patient, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	p := s.patients[idx]
	return &p, true
}

// Trials returns every loadable trial document, sorted by ID. Documents
// that fail to load are logged and skipped so one bad file cannot hide
// the rest of the catalogue.
func (s *FileStore) Trials() []*domain.Trial {
	entries, err := os.ReadDir(s.trialsDir)
	if err != nil {
		s.logger.WithError(err).WithField("dir", s.trialsDir).Warn("Cannot read trials directory")
		return []*domain.Trial{}
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(ids)

	trials := make([]*domain.Trial, 0, len(ids))
	for _, id := range ids {
		trial, err := s.Trial(id)
		if err != nil {
			s.logger.WithError(err).WithField("trial_id", id).Warn("Skipping unreadable trial document")
			continue
		}
		trials = append(trials, trial)
	}
	return trials
}

// Trial loads one trial document by ID, reading through the cache.
func (s *FileStore) Trial(id string) (*domain.Trial, error) {
	if err := validateTrialID(id); err != nil {
		return nil, err
	}
	if trial, ok := s.cache.Get(id); ok {
		return trial, nil
	}

	path := filepath.Join(s.trialsDir, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewMatchError(domain.ErrTrialUnavailable,
			fmt.Sprintf("trial '%s' could not be read", id), err.Error(), "")
	}

	var trial domain.Trial
	if err := json.Unmarshal(data, &trial); err != nil {
		return nil, domain.NewMatchError(domain.ErrTrialUnavailable,
			fmt.Sprintf("trial '%s' is not a valid rule document", id), err.Error(), "")
	}
	trial.ID = id
	if strings.TrimSpace(trial.Title) == "" {
		trial.Title = id
	}

	s.cache.Add(id, &trial)
	return &trial, nil
}

// SaveTrial writes a trial document in the canonical on-disk shape and
// replaces any cached copy.
func (s *FileStore) SaveTrial(id string, trial *domain.Trial) error {
	if err := validateTrialID(id); err != nil {
		return err
	}
	if trial == nil {
		return domain.NewValidationError("trial", "trial document cannot be nil", nil)
	}

	saved := *trial
	saved.ID = id
	if strings.TrimSpace(saved.Title) == "" {
		saved.Title = id
	}

	data, err := json.MarshalIndent(&saved, "", "  ")
	if err != nil {
		return domain.NewMatchError(domain.ErrStoreError,
			fmt.Sprintf("trial '%s' could not be encoded", id), err.Error(), "")
	}

	path := filepath.Join(s.trialsDir, id+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return domain.NewMatchError(domain.ErrStoreError,
			fmt.Sprintf("trial '%s' could not be written", id), err.Error(), "")
	}

	s.cache.Add(id, &saved)
	s.logger.WithField("trial_id", id).Info("Trial document saved")
	return nil
}

// validateTrialID keeps trial IDs inside the trials directory.
func validateTrialID(id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.NewValidationError("trial_id", "trial ID cannot be empty", id)
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return domain.NewValidationError("trial_id", "trial ID cannot contain path separators", id)
	}
	return nil
}

func loadPatients(path string) ([]domain.Patient, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening patient roster: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading patient roster: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("patient roster %s has no header row", path)
	}

	header := rows[0]
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := colIdx[required]; !ok {
			return nil, nil, fmt.Errorf("patient roster %s is missing column %q", path, required)
		}
	}

	patients := make([]domain.Patient, 0, len(rows)-1)
	byID := make(map[string]int, len(rows)-1)

	for rowNum, row := range rows[1:] {
		patient, err := parsePatientRow(header, colIdx, row)
		if err != nil {
			return nil, nil, fmt.Errorf("patient roster %s row %d: %w", path, rowNum+2, err)
		}
		if _, exists := byID[patient.PatientID]; exists {
			return nil, nil, fmt.Errorf("patient roster %s row %d: duplicate patient_id %q", path, rowNum+2, patient.PatientID)
		}
		byID[patient.PatientID] = len(patients)
		patients = append(patients, patient)
	}

	return patients, byID, nil
}

func parsePatientRow(header []string, colIdx map[string]int, row []string) (domain.Patient, error) {
	cell := func(name string) string {
		idx := colIdx[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	id := cell("patient_id")
	if id == "" {
		return domain.Patient{}, fmt.Errorf("patient_id cannot be empty")
	}

	perfRaw := cell("performance_status")
	perf, err := strconv.Atoi(perfRaw)
	if err != nil {
		return domain.Patient{}, fmt.Errorf("performance_status %q is not an integer", perfRaw)
	}

	patient := domain.Patient{
		PatientID:         id,
		Stage:             cell("stage"),
		MutationStatus:    cell("mutation_status"),
		PerformanceStatus: perf,
	}

	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if isRequiredColumn(key) || i >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[i])
		if value == "" {
			continue
		}
		if patient.Attributes == nil {
			patient.Attributes = make(map[string]string)
		}
		patient.Attributes[key] = value
	}

	return patient, nil
}

func isRequiredColumn(name string) bool {
	for _, required := range requiredColumns {
		if name == required {
			return true
		}
	}
	return false
}
