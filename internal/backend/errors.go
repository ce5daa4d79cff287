package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized is matched by errors.Is for any 401 response.
var ErrUnauthorized = errors.New("backend: unauthorized")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Path   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend %s returned %d", e.Path, e.Status)
	}
	return fmt.Sprintf("backend %s returned %d: %s", e.Path, e.Status, e.Detail)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// DecodeError reports a 2xx body that did not match the expected schema.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("backend %s: decode response: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DetailOf returns the backend detail message carried by err, or fallback.
func DetailOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Detail) != "" {
		return apiErr.Detail
	}
	return fallback
}

// parseDetail extracts the FastAPI style {"detail": ...} message from an error body.
// detail may be a plain string or a list of validation errors.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return msg
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(envelope.Detail)
}
