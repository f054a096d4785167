package state

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/imamik/nodeprep/internal/config"
)

// StageStatus is the persisted lifecycle state of a top-level stage.
type StageStatus string

// PhaseStatus is the persisted lifecycle state of a sub-step within a stage.
// The zero value means no record exists.
type PhaseStatus string

const (
	StagePending  StageStatus = "pending"
	StageRunning  StageStatus = "running"
	StageComplete StageStatus = "complete"
	StageFailed   StageStatus = "failed"

	PhaseAbsent   PhaseStatus = ""
	PhaseRunning  PhaseStatus = "running"
	PhaseComplete PhaseStatus = "complete"
	PhaseFailed   PhaseStatus = "failed"
)

// ErrComplete is returned when a transition would move a unit out of
// complete. Only Reset clears completed records.
var ErrComplete = errors.New("record is complete; only reset may clear it")

// StageRecord is one persisted stage entry.
type StageRecord struct {
	Name      string      `yaml:"name"`
	Status    StageStatus `yaml:"status"`
	UpdatedAt time.Time   `yaml:"updated_at"`
}

// PhaseRecord is one persisted phase entry, scoped to its owning stage.
type PhaseRecord struct {
	Name      string      `yaml:"name"`
	Status    PhaseStatus `yaml:"status"`
	UpdatedAt time.Time   `yaml:"updated_at"`
}

type stageDoc struct {
	Stages []StageRecord `yaml:"stages"`
}

type phaseDoc struct {
	Phases []PhaseRecord `yaml:"phases"`
}

// Store reads and writes provisioning records under the configured state dir.
// Every write is a full atomic replace of the owning document.
type Store struct {
	cfg *config.Config
}

// NewStore returns a Store rooted at cfg.StateDir.
func NewStore(cfg *config.Config) *Store {
	return &Store{cfg: cfg}
}

// Stage returns the record for name; a missing record reads as pending.
func (s *Store) Stage(name string) (StageRecord, error) {
	var doc stageDoc
	if _, err := LoadYAML(s.cfg.StagesPath(), &doc); err != nil {
		return StageRecord{}, err
	}
	for _, r := range doc.Stages {
		if r.Name == name {
			return r, nil
		}
	}
	return StageRecord{Name: name, Status: StagePending}, nil
}

// Stages returns all persisted stage records in first-reference order.
func (s *Store) Stages() ([]StageRecord, error) {
	var doc stageDoc
	if _, err := LoadYAML(s.cfg.StagesPath(), &doc); err != nil {
		return nil, err
	}
	return doc.Stages, nil
}

// SetStage transitions name to status. A record already complete cannot be
// moved; callers reset instead.
func (s *Store) SetStage(name string, status StageStatus) error {
	var doc stageDoc
	if _, err := LoadYAML(s.cfg.StagesPath(), &doc); err != nil {
		return err
	}
	now := time.Now().UTC()
	for i, r := range doc.Stages {
		if r.Name != name {
			continue
		}
		if r.Status == StageComplete && status != StageComplete {
			return fmt.Errorf("stage %s: %w", name, ErrComplete)
		}
		doc.Stages[i].Status = status
		doc.Stages[i].UpdatedAt = now
		return SaveYAML(s.cfg.StagesPath(), &doc)
	}
	doc.Stages = append(doc.Stages, StageRecord{Name: name, Status: status, UpdatedAt: now})
	return SaveYAML(s.cfg.StagesPath(), &doc)
}

// Phase returns the record for name within stage; missing reads as absent.
func (s *Store) Phase(stage, name string) (PhaseRecord, error) {
	var doc phaseDoc
	if _, err := LoadYAML(s.cfg.PhasesPath(stage), &doc); err != nil {
		return PhaseRecord{}, err
	}
	for _, r := range doc.Phases {
		if r.Name == name {
			return r, nil
		}
	}
	return PhaseRecord{Name: name, Status: PhaseAbsent}, nil
}

// Phases returns all persisted phase records for stage.
func (s *Store) Phases(stage string) ([]PhaseRecord, error) {
	var doc phaseDoc
	if _, err := LoadYAML(s.cfg.PhasesPath(stage), &doc); err != nil {
		return nil, err
	}
	return doc.Phases, nil
}

// SetPhase transitions name within stage to status, under the same
// monotonicity rule as SetStage.
func (s *Store) SetPhase(stage, name string, status PhaseStatus) error {
	var doc phaseDoc
	if _, err := LoadYAML(s.cfg.PhasesPath(stage), &doc); err != nil {
		return err
	}
	now := time.Now().UTC()
	for i, r := range doc.Phases {
		if r.Name != name {
			continue
		}
		if r.Status == PhaseComplete && status != PhaseComplete {
			return fmt.Errorf("phase %s/%s: %w", stage, name, ErrComplete)
		}
		doc.Phases[i].Status = status
		doc.Phases[i].UpdatedAt = now
		return SaveYAML(s.cfg.PhasesPath(stage), &doc)
	}
	doc.Phases = append(doc.Phases, PhaseRecord{Name: name, Status: status, UpdatedAt: now})
	return SaveYAML(s.cfg.PhasesPath(stage), &doc)
}

// SentinelExists reports whether the global completion marker is present.
func (s *Store) SentinelExists() bool {
	_, err := os.Stat(s.cfg.SentinelPath())
	return err == nil
}

// CreateSentinel writes the completion marker. Idempotent.
func (s *Store) CreateSentinel() error {
	if s.SentinelExists() {
		return nil
	}
	return SaveYAML(s.cfg.SentinelPath(), map[string]time.Time{"completed_at": time.Now().UTC()})
}

// Reset removes all persisted records and the sentinel. The data volume and
// any installed software are untouched.
func (s *Store) Reset() error {
	if err := os.Remove(s.cfg.StagesPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.RemoveAll(s.cfg.PhasesDir()); err != nil {
		return err
	}
	if err := os.Remove(s.cfg.SentinelPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
