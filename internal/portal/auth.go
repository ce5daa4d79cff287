package portal

import (
	"net/mail"
	"strings"

	"github.com/wolfman30/telemed-portal/internal/backend"
)

// LoginForm is the login page form.
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f LoginForm) Validate() error {
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	if f.Password == "" {
		return &ValidationError{Field: "password", Message: "Bitte geben Sie Ihr Passwort ein"}
	}
	return nil
}

// RegisterForm is the registration page form.
type RegisterForm struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
}

func (f RegisterForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{Field: "name", Message: "Bitte geben Sie Ihren Namen ein"}
	}
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	if len([]rune(f.Password)) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: passwordTooShort}
	}
	return nil
}

// Request converts the form into the backend payload.
func (f RegisterForm) Request() backend.RegisterRequest {
	return backend.RegisterRequest{
		Email:       strings.TrimSpace(f.Email),
		Password:    f.Password,
		Name:        strings.TrimSpace(f.Name),
		Phone:       strings.TrimSpace(f.Phone),
		DateOfBirth: strings.TrimSpace(f.DateOfBirth),
	}
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Bitte geben Sie Ihre E-Mail-Adresse ein"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &ValidationError{Field: "email", Message: "Ungültige E-Mail-Adresse"}
	}
	return nil
}
