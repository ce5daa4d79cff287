package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymptomDisclaimer(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		want    string
	}{
		{"backend text kept", "Keine Diagnose.", "Keine Diagnose."},
		{"backend text verbatim", " Keine Diagnose.\n", " Keine Diagnose.\n"},
		{"fallback", "  ", DisclaimerStandard},
		{"fallback when missing", "", DisclaimerStandard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SymptomDisclaimer(tt.backend))
		})
	}
}
