package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS allows credentialed requests from the listed portal origins. A "*"
// entry echoes any Origin back, since the session cookie rules out a
// wildcard header.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           600,
	}
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			opts.AllowOriginFunc = func(string) bool { return true }
		default:
			opts.AllowedOrigins = append(opts.AllowedOrigins, origin)
		}
	}
	return cors.New(opts).Handler
}
