// Package middleware holds the HTTP middleware the server mounts on
// top of chi's stock stack.
package middleware

import (
	"net/http"
	"net/url"
	"os"
	"strings"
)

// CORS grants cross-origin access to the configured frontend origins.
// The allow list comes from WEB_ALLOWED_ORIGINS (comma separated);
// localhost origins on any port are always let through so a dev
// frontend works without configuration.
func CORS() func(http.Handler) http.Handler {
	allowed := splitOrigins(os.Getenv("WEB_ALLOWED_ORIGINS"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); originAllowed(origin, allowed) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func splitOrigins(env string) map[string]bool {
	origins := make(map[string]bool)
	for _, o := range strings.Split(env, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}
	return origins
}

func originAllowed(origin string, allowed map[string]bool) bool {
	if origin == "" {
		return false
	}
	if allowed[origin] {
		return true
	}
	return isLocalhostOrigin(origin)
}

// isLocalhostOrigin matches http(s)://localhost with any port. The
// hostname must be exactly localhost; localhost.evil.com is not local.
func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() == "localhost"
}
