package session

// Fallback messages shown when the backend gives no detail.
const (
	LoginFailed        = "Login fehlgeschlagen"
	RegistrationFailed = "Registrierung fehlgeschlagen"
)
