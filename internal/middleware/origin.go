// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// SameOrigin rejects state-changing requests whose Origin (or Referer)
// header names a foreign site. The request host is always accepted;
// allowed lists extra origins such as "https://admin.example.com".
// Requests without either header come from non-browser clients and pass.
func SameOrigin(allowed []string) func(http.Handler) http.Handler {
	extra := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		extra[strings.TrimRight(strings.ToLower(o), "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			u, err := url.Parse(origin)
			if err != nil || u.Host == "" {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			if strings.EqualFold(u.Host, r.Host) || extra[strings.ToLower(u.Scheme+"://"+u.Host)] {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}
