package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wolfman30/telemed-portal/internal/backend"
)

// Account page messages.
const (
	ProfileUpdated        = "Profil erfolgreich aktualisiert"
	ProfileUpdateFailed   = "Fehler beim Aktualisieren des Profils"
	PasswordChanged       = "Passwort erfolgreich geändert"
	PasswordChangeFailed  = "Fehler beim Ändern des Passworts"
	SettingsUpdated       = "Einstellungen gespeichert"
	SettingsUpdateFailed  = "Fehler beim Speichern der Einstellungen"
	passwordTooShort      = "Das Passwort muss mindestens 6 Zeichen lang sein"
	passwordMismatch      = "Die Passwörter stimmen nicht überein"
	passwordUnchanged     = "Das neue Passwort muss sich vom alten unterscheiden"
	currentPasswordNeeded = "Bitte geben Sie Ihr aktuelles Passwort ein"
)

// MinPasswordLength applies to registration and password changes.
const MinPasswordLength = 6

// AccountAPI is the backend surface of the account page.
type AccountAPI interface {
	Me(ctx context.Context) (*backend.User, error)
	UpdateMe(ctx context.Context, update backend.ProfileUpdate) (*backend.User, error)
	ChangePassword(ctx context.Context, req backend.PasswordChange) error
	ChangeUserPassword(ctx context.Context, req backend.PasswordChange) error
	GetSettings(ctx context.Context) (*backend.Settings, error)
	UpdateSettings(ctx context.Context, s backend.Settings) (*backend.Settings, error)
}

// PasswordForm is the password change form.
type PasswordForm struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate checks presence, minimum length, confirmation and change.
func (f PasswordForm) Validate() error {
	switch {
	case f.OldPassword == "":
		return &ValidationError{Field: "old_password", Message: currentPasswordNeeded}
	case len([]rune(f.NewPassword)) < MinPasswordLength:
		return &ValidationError{Field: "new_password", Message: passwordTooShort}
	case f.NewPassword != f.ConfirmPassword:
		return &ValidationError{Field: "confirm_password", Message: passwordMismatch}
	case f.NewPassword == f.OldPassword:
		return &ValidationError{Field: "new_password", Message: passwordUnchanged}
	}
	return nil
}

// ProfileForm is the profile edit form. Nil fields stay untouched.
type ProfileForm struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"date_of_birth"`
}

// ChangedFields names the fields set in the form.
func (f ProfileForm) ChangedFields() []string {
	var fields []string
	if f.Name != nil {
		fields = append(fields, "name")
	}
	if f.Phone != nil {
		fields = append(fields, "phone")
	}
	if f.DateOfBirth != nil {
		fields = append(fields, "date_of_birth")
	}
	return fields
}

// AccountView is the account page.
type AccountView struct {
	User     *backend.User     `json:"user"`
	Settings *backend.Settings `json:"settings,omitempty"`
}

// Account serves the account page.
type Account struct {
	opts Options
}

func NewAccount(opts Options) *Account {
	return &Account{opts: opts.withDefaults()}
}

// Load fetches the profile and, best effort, the settings.
func (a *Account) Load(ctx context.Context, api AccountAPI) (*AccountView, error) {
	user, err := api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("portal: load profile: %w", err)
	}
	view := &AccountView{User: user}
	settings, err := api.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return nil, err
		}
		a.opts.Logger.Warn("failed to load account settings", "user_id", user.ID, "error", err)
		return view, nil
	}
	view.Settings = settings
	return view, nil
}

// UpdateProfile sends the changed profile fields.
func (a *Account) UpdateProfile(ctx context.Context, api AccountAPI, form ProfileForm) (*backend.User, error) {
	if form.Name != nil && strings.TrimSpace(*form.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "Bitte geben Sie Ihren Namen ein"}
	}
	if form.DateOfBirth != nil && strings.TrimSpace(*form.DateOfBirth) != "" {
		if _, ok := parseTimestamp(*form.DateOfBirth, a.opts.Location); !ok {
			return nil, &ValidationError{Field: "date_of_birth", Message: "Ungültiges Geburtsdatum"}
		}
	}
	user, err := api.UpdateMe(ctx, backend.ProfileUpdate{
		Name:        trimmed(form.Name),
		Phone:       trimmed(form.Phone),
		DateOfBirth: trimmed(form.DateOfBirth),
	})
	if err != nil {
		return nil, userError(err, ProfileUpdateFailed)
	}
	return user, nil
}

// ChangePassword validates the form and changes the password. Backends
// without /auth/change-password get PUT /users/me/password instead.
func (a *Account) ChangePassword(ctx context.Context, api AccountAPI, form PasswordForm) error {
	if err := form.Validate(); err != nil {
		return err
	}
	req := backend.PasswordChange{OldPassword: form.OldPassword, NewPassword: form.NewPassword}
	err := api.ChangePassword(ctx, req)
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusMethodNotAllowed) {
		err = api.ChangeUserPassword(ctx, req)
	}
	if err != nil {
		return userError(err, PasswordChangeFailed)
	}
	a.opts.Logger.Info("password changed")
	return nil
}

// UpdateSettings stores the account preferences.
func (a *Account) UpdateSettings(ctx context.Context, api AccountAPI, s backend.Settings) (*backend.Settings, error) {
	out, err := api.UpdateSettings(ctx, s)
	if err != nil {
		return nil, userError(err, SettingsUpdateFailed)
	}
	return out, nil
}

// userError keeps 401s intact and otherwise attaches the backend detail or
// the fallback message.
func userError(err error, fallback string) error {
	if errors.Is(err, backend.ErrUnauthorized) {
		return err
	}
	return &UserError{Message: backend.DetailOf(err, fallback), Err: err}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
