package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/export"
	"github.com/wolfman30/telemed-portal/internal/portal"
	"github.com/wolfman30/telemed-portal/internal/resource"
)

const maxBodyBytes = 1 << 20

// Generic user-facing errors.
const (
	msgInvalidBody    = "Ungültige Anfrage"
	msgInvalidID      = "Ungültige ID"
	msgSessionExpired = "Ihre Sitzung ist abgelaufen. Bitte melden Sie sich erneut an."
	msgBackendDown    = "Der Server ist derzeit nicht erreichbar. Bitte versuchen Sie es später erneut."
	msgInternal       = "Ein unerwarteter Fehler ist aufgetreten"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// writeFile streams a download or export as an attachment.
func writeFile(w http.ResponseWriter, filename, contentType string, body []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeDownload(w http.ResponseWriter, dl *backend.Download) {
	writeFile(w, dl.Filename, dl.ContentType, dl.Body)
}

func writeExport(w http.ResponseWriter, f *export.File) {
	writeFile(w, f.Filename, f.ContentType, f.Body)
}

// errorStatus maps service errors to a status and a user-facing message.
func errorStatus(err error) (int, map[string]string) {
	var (
		verr   *portal.ValidationError
		uerr   *portal.UserError
		apiErr *backend.APIError
		decErr *backend.DecodeError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, map[string]string{"error": verr.Message, "field": verr.Field}
	case errors.Is(err, portal.ErrNotFound):
		return http.StatusNotFound, map[string]string{"error": "Nicht gefunden"}
	case errors.Is(err, backend.ErrUnauthorized):
		return http.StatusUnauthorized, map[string]string{"error": msgSessionExpired, "redirect": "/login"}
	case errors.As(err, &uerr):
		status := http.StatusBadGateway
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		return status, map[string]string{"error": uerr.Message}
	case errors.Is(err, resource.ErrSuperseded):
		return http.StatusConflict, map[string]string{"error": "superseded"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, map[string]string{"error": msgBackendDown}
	case errors.As(err, &apiErr):
		if apiErr.Status == http.StatusNotFound {
			return http.StatusNotFound, map[string]string{"error": backend.DetailOf(err, "Nicht gefunden")}
		}
		return http.StatusBadGateway, map[string]string{"error": msgBackendDown}
	case errors.As(err, &decErr):
		return http.StatusBadGateway, map[string]string{"error": msgBackendDown}
	}
	return http.StatusInternalServerError, map[string]string{"error": msgInternal}
}
