// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const actorKey contextKey = "actor"

// Actor reads the acting user's id from a header set by the trusted
// upstream proxy and stores it in the request context. It does not
// enforce anything: a missing or malformed header leaves the actor unset.
func Actor(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(header))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				slog.Warn("ignoring malformed actor header", "header", header)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, id)))
		})
	}
}

// ActorFromCtx returns the actor id, or nil when none was forwarded.
func ActorFromCtx(ctx context.Context) *uuid.UUID {
	id, ok := ctx.Value(actorKey).(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}
