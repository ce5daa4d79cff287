package compliance

import "strings"

// DisclaimerStandard is shown when the symptom checker sent no disclaimer.
const DisclaimerStandard = "Diese Einschätzung ersetzt keine ärztliche Untersuchung. Bitte wenden Sie sich bei anhaltenden Beschwerden an Ihre Ärztin oder Ihren Arzt."

// SymptomDisclaimer returns the backend's disclaimer unchanged, or the
// standard notice when it is blank. The emergency notice travels separately.
func SymptomDisclaimer(fromBackend string) string {
	if strings.TrimSpace(fromBackend) == "" {
		return DisclaimerStandard
	}
	return fromBackend
}
