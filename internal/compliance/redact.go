package compliance

import "regexp"

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`(?:\+|\b0)\d[\d\s/\-]{5,}\d`)
)

// RedactPII replaces emails with [EMAIL] and phone numbers with [PHONE]
// so backend messages can be logged.
func RedactPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	text = phoneRe.ReplaceAllString(text, "[PHONE]")
	return text
}
