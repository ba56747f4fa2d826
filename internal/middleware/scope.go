// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"

	"classportal/internal/engine"
)

// TemplateScope attaches a template lookup memo to each request, so every
// render during the request fetches a given key at most once.
func TemplateScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(engine.WithLookupScope(r.Context())))
	})
}
