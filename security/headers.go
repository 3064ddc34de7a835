package security

import (
	"net/http"
	"net/url"
)

// SetSecurityHeaders sets security headers on HTTP responses.
// The bridge only serves JSON and redirects, so nothing may be framed, scripted or cached.
func SetSecurityHeaders(w http.ResponseWriter, serverURL string) {
	h := w.Header()

	// Prevent clickjacking and MIME sniffing
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-Content-Type-Options", "nosniff")

	// No inline scripts, no external resources
	h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

	// Callback query strings carry authorization codes; never leak them via Referer
	h.Set("Referrer-Policy", "no-referrer")

	if parsed, err := url.Parse(serverURL); err == nil && parsed.Scheme == "https" {
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	// Responses and redirect targets carry tokens
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	h.Set("Pragma", "no-cache")
}

// SecurityHeadersMiddleware applies SetSecurityHeaders to every response.
// The returned function matches gorilla/mux's MiddlewareFunc.
func SecurityHeadersMiddleware(serverURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			SetSecurityHeaders(w, serverURL)
			next.ServeHTTP(w, r)
		})
	}
}
