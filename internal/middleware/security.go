// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"strings"
)

// SecureHeaders adds security-related HTTP headers to every response.
// Template overrides ship inline style and script, so the content policy
// allows inline code but restricts everything else to this origin plus
// assetOrigin (the public bucket serving the global stylesheet, may be "").
func SecureHeaders(assetOrigin string) func(http.Handler) http.Handler {
	styleSrc := []string{"'self'", "'unsafe-inline'"}
	if assetOrigin != "" {
		styleSrc = append(styleSrc, assetOrigin)
	}
	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src " + strings.Join(styleSrc, " "),
		"script-src 'self' 'unsafe-inline'",
		"img-src 'self' data: https:",
		"connect-src 'self'",
		"frame-ancestors 'self'",
		"base-uri 'self'",
	}, "; ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}
