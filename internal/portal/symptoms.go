package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/compliance"
	"github.com/wolfman30/telemed-portal/internal/symptoms"
)

// SymptomSteps are the steps of the symptom checker wizard.
var SymptomSteps = []string{"Symptome beschreiben", "Details angeben", "Analyse"}

const (
	stepDescribe = iota
	stepDetails
	stepAnalysis
)

// SymptomCheckFailed is shown when the analysis request fails.
const SymptomCheckFailed = "Die Analyse ist fehlgeschlagen. Bitte versuchen Sie es erneut."

// SymptomsAPI is the backend surface of the symptom checker.
type SymptomsAPI interface {
	CheckSymptoms(ctx context.Context, req backend.SymptomCheckRequest) (*backend.SymptomCheckResult, error)
}

// SymptomObserver records completed checks.
type SymptomObserver interface {
	ObserveSymptomCheck(severity string, emergency bool)
}

// WizardState is the symptom checker of one session.
type WizardState struct {
	Step             int               `json:"step"`
	StepName         string            `json:"step_name"`
	Steps            []string          `json:"steps"`
	Description      string            `json:"description"`
	Category         string            `json:"symptoms_category"`
	Severity         symptoms.Severity `json:"severity"`
	Duration         string            `json:"duration"`
	CanProceed       bool              `json:"can_proceed"`
	Emergency        bool              `json:"emergency"`
	EmergencyMessage string            `json:"emergency_message,omitempty"`
	Result           *symptoms.Entry   `json:"result,omitempty"`
}

// SymptomChecker runs the three-step wizard and keeps the check history.
type SymptomChecker struct {
	opts     Options
	history  symptoms.HistoryStore
	observer SymptomObserver

	mu      sync.Mutex
	wizards map[string]*WizardState
}

func NewSymptomChecker(history symptoms.HistoryStore, observer SymptomObserver, opts Options) *SymptomChecker {
	if history == nil {
		history = symptoms.NewMemoryHistoryStore(symptoms.DefaultHistoryLimit)
	}
	return &SymptomChecker{
		opts:     opts.withDefaults(),
		history:  history,
		observer: observer,
		wizards:  make(map[string]*WizardState),
	}
}

func newWizard() *WizardState {
	return &WizardState{Severity: symptoms.Mild}
}

// State returns the wizard of the session.
func (s *SymptomChecker) State(sessionID string) WizardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.wizard(sessionID))
}

// Describe completes the first step.
func (s *SymptomChecker) Describe(sessionID, description, category string) (WizardState, error) {
	description = strings.TrimSpace(description)
	category = strings.TrimSpace(category)
	if description == "" && category == "" {
		return s.State(sessionID), &ValidationError{Field: "description", Message: "Bitte beschreiben Sie Ihre Symptome"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.wizard(sessionID)
	w.Description = description
	w.Category = category
	if w.Category == "" {
		w.Category = description
	}
	w.Result = nil
	w.Step = stepDetails
	return s.snapshot(w), nil
}

// Analyze completes the details step, posts the check and records it in the
// patient's history.
func (s *SymptomChecker) Analyze(ctx context.Context, sessionID string, userID int64, api SymptomsAPI, severity, duration string) (WizardState, error) {
	duration = strings.TrimSpace(duration)

	s.mu.Lock()
	w := s.wizard(sessionID)
	if w.Step < stepDetails {
		state := s.snapshot(w)
		s.mu.Unlock()
		return state, &ValidationError{Field: "step", Message: "Bitte beschreiben Sie zuerst Ihre Symptome"}
	}
	if duration == "" {
		w.Severity = symptoms.ParseSeverity(severity)
		state := s.snapshot(w)
		s.mu.Unlock()
		return state, &ValidationError{Field: "duration", Message: "Bitte geben Sie die Dauer an"}
	}
	w.Severity = symptoms.ParseSeverity(severity)
	w.Duration = duration
	req := backend.SymptomCheckRequest{
		SymptomsCategory: w.Category,
		Severity:         string(w.Severity),
		Duration:         w.Duration,
	}
	description := w.Description
	s.mu.Unlock()

	res, err := api.CheckSymptoms(ctx, req)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return s.State(sessionID), err
		}
		s.opts.Logger.Warn("symptom check failed", "session_id", sessionID, "error", err)
		return s.State(sessionID), &UserError{Message: SymptomCheckFailed, Err: err}
	}

	sev := symptoms.ParseSeverity(req.Severity)
	emergency := symptoms.IsEmergency(description+" "+req.SymptomsCategory, sev)
	entry := symptoms.Entry{
		ID:            uuid.NewString(),
		Description:   description,
		Category:      req.SymptomsCategory,
		Severity:      sev,
		Duration:      req.Duration,
		Emergency:     emergency,
		ResultMessage: res.ResultMessage,
		Disclaimer:    compliance.SymptomDisclaimer(res.Disclaimer),
		CheckedAt:     s.opts.now(),
	}
	if err := s.history.Append(ctx, userID, entry); err != nil {
		s.opts.Logger.Warn("failed to record symptom check", "user_id", userID, "error", err)
	}
	if s.observer != nil {
		s.observer.ObserveSymptomCheck(string(sev), entry.Emergency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w = s.wizard(sessionID)
	w.Step = stepAnalysis
	w.Result = &entry
	return s.snapshot(w), nil
}

// Back moves the wizard one step back.
func (s *SymptomChecker) Back(sessionID string) WizardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.wizard(sessionID)
	if w.Step > stepDescribe {
		w.Step--
	}
	if w.Step < stepAnalysis {
		w.Result = nil
	}
	return s.snapshot(w)
}

// Reset starts a new check.
func (s *SymptomChecker) Reset(sessionID string) WizardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := newWizard()
	s.wizards[sessionID] = w
	return s.snapshot(w)
}

// History returns the patient's recent checks, newest first.
func (s *SymptomChecker) History(ctx context.Context, userID int64) ([]symptoms.Entry, error) {
	entries, err := s.history.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("portal: symptom history: %w", err)
	}
	return entries, nil
}

// ClearHistory removes the patient's recent checks.
func (s *SymptomChecker) ClearHistory(ctx context.Context, userID int64) error {
	return s.history.Clear(ctx, userID)
}

func (s *SymptomChecker) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wizards, sessionID)
}

// wizard must be called with s.mu held.
func (s *SymptomChecker) wizard(sessionID string) *WizardState {
	w, ok := s.wizards[sessionID]
	if !ok {
		w = newWizard()
		s.wizards[sessionID] = w
	}
	return w
}

func (s *SymptomChecker) snapshot(w *WizardState) WizardState {
	state := *w
	state.Steps = SymptomSteps
	state.StepName = SymptomSteps[state.Step]
	switch state.Step {
	case stepDescribe:
		state.CanProceed = state.Description != "" || state.Category != ""
	case stepDetails:
		state.CanProceed = state.Duration != "" && state.Severity != ""
	}
	state.Emergency = symptoms.IsEmergency(state.Description+" "+state.Category, state.Severity)
	if state.Emergency {
		state.EmergencyMessage = symptoms.EmergencyNotice
	}
	return state
}
