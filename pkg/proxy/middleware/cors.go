package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"mercator-hq/relay/pkg/config"
)

var (
	corsMethods        = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsExposedHeaders = []string{RequestIDHeader, "X-Trace-ID"}
)

// CORSMiddleware adds Cross-Origin Resource Sharing headers and answers
// preflight requests with 204.
//
// Configuration:
//
//	proxy:
//	  cors:
//	    enabled: true
//	    allowed_origins: ["https://example.com"]
//	    allowed_headers: ["Authorization", "Content-Type", "X-Api-Key"]
//	    max_age: 3600
//
// Example usage:
//
//	handler = CORSMiddleware(cfg.Proxy.CORS)(handler)
func CORSMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	wildcard := slices.Contains(cfg.AllowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case origin != "" && (wildcard || slices.Contains(cfg.AllowedOrigins, origin)):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Expose-Headers", strings.Join(corsExposedHeaders, ", "))
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(corsMethods, ", "))
				if len(cfg.AllowedHeaders) > 0 {
					w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
				}
				if cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
