// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

const localeKey contextKey = "locale"

// Locale negotiates the response language from the "lang" query parameter
// or the Accept-Language header against supported. The first supported tag
// is the fallback.
func Locale(supported []language.Tag) func(http.Handler) http.Handler {
	if len(supported) == 0 {
		supported = []language.Tag{language.English}
	}
	matcher := language.NewMatcher(supported)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag, _ := language.MatchStrings(matcher, r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
			base, _ := tag.Base()
			w.Header().Add("Vary", "Accept-Language")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), localeKey, base.String())))
		})
	}
}

// LocaleFromCtx returns the negotiated language code, e.g. "en" or "ro".
func LocaleFromCtx(ctx context.Context) string {
	if l, ok := ctx.Value(localeKey).(string); ok {
		return l
	}
	return "en"
}
