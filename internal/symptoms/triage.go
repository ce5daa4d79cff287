// Package symptoms holds the client-side parts of the symptom checker: severity
// coercion, the emergency banner rule and the per-patient history.
package symptoms

import (
	"strings"
)

// Severity as accepted by the symptom checker endpoint.
type Severity string

const (
	Mild     Severity = "mild"
	Moderate Severity = "moderate"
	Severe   Severity = "severe"
)

// ParseSeverity maps unknown values to Mild, like the backend does.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case Moderate:
		return Moderate
	case Severe:
		return Severe
	}
	return Mild
}

// EmergencyKeywords trigger the emergency banner when found in the description.
var EmergencyKeywords = []string{
	"atemnot",
	"brustschmerz",
	"bewusstlos",
	"lähmung",
	"starke blutung",
	"krampfanfall",
	"ohnmacht",
}

// IsEmergency reports whether the patient should be told to call 112 instead
// of waiting for the check result.
func IsEmergency(description string, severity Severity) bool {
	if severity == Severe {
		return true
	}
	text := strings.ToLower(description)
	for _, kw := range EmergencyKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// EmergencyNotice is shown above the wizard when IsEmergency holds.
const EmergencyNotice = "Bei akuten Beschwerden wie Atemnot, Brustschmerzen oder Bewusstlosigkeit rufen Sie sofort den Notruf 112."
