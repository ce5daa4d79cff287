package portal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/symptoms"
)

type symptomObs struct {
	severities []string
	emergency  []bool
}

func (o *symptomObs) ObserveSymptomCheck(severity string, emergency bool) {
	o.severities = append(o.severities, severity)
	o.emergency = append(o.emergency, emergency)
}

func symptomAPI() *fakeAPI {
	return &fakeAPI{symptomResult: &backend.SymptomCheckResult{
		ResultMessage: "Ruhen Sie sich aus.",
		Disclaimer:    "Keine ärztliche Diagnose.",
	}}
}

func TestSymptomWizardHappyPath(t *testing.T) {
	obs := &symptomObs{}
	checker := NewSymptomChecker(nil, obs, testOptions())
	api := symptomAPI()

	state := checker.State("sid")
	assert.Equal(t, 0, state.Step)
	assert.False(t, state.CanProceed)
	assert.Equal(t, symptoms.Mild, state.Severity)

	state, err := checker.Describe("sid", "Kopfschmerzen seit gestern", "Kopfschmerzen")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Step)
	assert.Equal(t, "Details angeben", state.StepName)
	assert.False(t, state.CanProceed)

	state, err = checker.Analyze(context.Background(), "sid", 5, api, "Moderate", "2 Tage")
	require.NoError(t, err)
	assert.Equal(t, 2, state.Step)
	require.NotNil(t, state.Result)
	assert.Equal(t, "Ruhen Sie sich aus.", state.Result.ResultMessage)
	assert.Equal(t, fixedNow, state.Result.CheckedAt)
	assert.Equal(t, "Keine ärztliche Diagnose.", state.Result.Disclaimer)
	assert.False(t, state.Emergency)

	assert.Equal(t, backend.SymptomCheckRequest{SymptomsCategory: "Kopfschmerzen", Severity: "moderate", Duration: "2 Tage"}, api.lastSymptoms)
	assert.Equal(t, []string{"moderate"}, obs.severities)

	history, err := checker.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID)
}

func TestSymptomWizardValidation(t *testing.T) {
	checker := NewSymptomChecker(nil, nil, testOptions())
	api := symptomAPI()

	_, err := checker.Describe("sid", "  ", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "description", verr.Field)

	_, err = checker.Analyze(context.Background(), "sid", 5, api, "mild", "1 Tag")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "step", verr.Field)

	_, err = checker.Describe("sid", "Husten", "")
	require.NoError(t, err)
	state, err := checker.Analyze(context.Background(), "sid", 5, api, "unbekannt", "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "duration", verr.Field)
	assert.Equal(t, symptoms.Mild, state.Severity)
	assert.Equal(t, "Husten", state.Category)
	assert.Zero(t, api.count("check_symptoms"))
}

func TestSymptomWizardEmergency(t *testing.T) {
	checker := NewSymptomChecker(nil, nil, testOptions())

	state, err := checker.Describe("sid", "Plötzliche Atemnot beim Gehen", "Atmung")
	require.NoError(t, err)
	assert.True(t, state.Emergency)
	assert.Equal(t, symptoms.EmergencyNotice, state.EmergencyMessage)

	checker.Reset("sid")
	_, err = checker.Describe("sid", "Bauchweh", "")
	require.NoError(t, err)
	state, err = checker.Analyze(context.Background(), "sid", 5, symptomAPI(), "severe", "1 Stunde")
	require.NoError(t, err)
	assert.True(t, state.Emergency)
	assert.True(t, state.Result.Emergency)
	assert.Equal(t, "Keine ärztliche Diagnose.", state.Result.Disclaimer)
	assert.Contains(t, state.EmergencyMessage, "112")
}

func TestSymptomHistoryKeepsFiveNewestFirst(t *testing.T) {
	checker := NewSymptomChecker(nil, nil, testOptions())
	api := symptomAPI()

	for i := range 7 {
		checker.Reset("sid")
		_, err := checker.Describe("sid", fmt.Sprintf("Symptom %d", i), "")
		require.NoError(t, err)
		_, err = checker.Analyze(context.Background(), "sid", 5, api, "mild", "1 Tag")
		require.NoError(t, err)
	}

	history, err := checker.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, history, symptoms.DefaultHistoryLimit)
	assert.Equal(t, "Symptom 6", history[0].Description)
	assert.Equal(t, "Symptom 2", history[4].Description)

	require.NoError(t, checker.ClearHistory(context.Background(), 5))
	history, err = checker.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSymptomAnalyzeFailure(t *testing.T) {
	checker := NewSymptomChecker(nil, nil, testOptions())
	api := symptomAPI()
	api.err = errors.New("boom")

	_, err := checker.Describe("sid", "Husten", "")
	require.NoError(t, err)
	state, err := checker.Analyze(context.Background(), "sid", 5, api, "mild", "1 Tag")
	var uerr *UserError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, SymptomCheckFailed, uerr.Message)
	assert.Equal(t, 1, state.Step)
	assert.Nil(t, state.Result)

	api.err = &backend.APIError{Status: 401, Path: "/symptom-checker/check"}
	_, err = checker.Analyze(context.Background(), "sid", 5, api, "mild", "1 Tag")
	assert.ErrorIs(t, err, backend.ErrUnauthorized)

	history, err := checker.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSymptomWizardBack(t *testing.T) {
	checker := NewSymptomChecker(nil, nil, testOptions())
	_, err := checker.Describe("sid", "Husten", "")
	require.NoError(t, err)
	_, err = checker.Analyze(context.Background(), "sid", 5, symptomAPI(), "mild", "1 Tag")
	require.NoError(t, err)

	state := checker.Back("sid")
	assert.Equal(t, 1, state.Step)
	assert.Nil(t, state.Result)
	assert.True(t, state.CanProceed)

	checker.Back("sid")
	state = checker.Back("sid")
	assert.Equal(t, 0, state.Step)
	assert.True(t, state.CanProceed)

	checker.Forget("sid")
	assert.Empty(t, checker.State("sid").Description)
}
