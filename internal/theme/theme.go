// Package theme holds the light/dark preference. The mode lives in a browser
// cookie, so the server keeps no state per visitor.
package theme

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Mode is the colour scheme of the portal.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// DefaultCookieName names the theme cookie when none is configured.
const DefaultCookieName = "portal_theme"

// ParseMode accepts "light" or "dark" in any case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	}
	return "", fmt.Errorf("theme: unknown mode %q", s)
}

// Cookie reads and writes the mode cookie. Browsers without one are light.
type Cookie struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func NewCookie(secure bool) Cookie {
	return Cookie{Name: DefaultCookieName, Secure: secure, MaxAge: 365 * 24 * time.Hour}
}

func (c Cookie) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// Mode returns the mode sent by the browser. Unknown values read as light.
func (c Cookie) Mode(r *http.Request) Mode {
	ck, err := r.Cookie(c.name())
	if err != nil {
		return Light
	}
	m, err := ParseMode(ck.Value)
	if err != nil {
		return Light
	}
	return m
}

// Set stores m. Light is the default, so it clears the cookie.
func (c Cookie) Set(w http.ResponseWriter, m Mode) {
	if m != Dark {
		c.Reset(w)
		return
	}
	ck := c.cookie(string(Dark))
	if c.MaxAge > 0 {
		ck.MaxAge = int(c.MaxAge / time.Second)
	}
	http.SetCookie(w, ck)
}

// Toggle flips the mode sent with r and returns the new one.
func (c Cookie) Toggle(w http.ResponseWriter, r *http.Request) Mode {
	next := Dark
	if c.Mode(r) == Dark {
		next = Light
	}
	c.Set(w, next)
	return next
}

// Reset drops the browser's preference.
func (c Cookie) Reset(w http.ResponseWriter) {
	ck := c.cookie("")
	ck.MaxAge = -1
	http.SetCookie(w, ck)
}

func (c Cookie) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     c.name(),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
