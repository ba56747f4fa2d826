// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"classportal/internal/engine"
)

// liveIdleTimeout closes live preview sockets that stay silent.
const liveIdleTimeout = 10 * time.Minute

// liveReply is one message sent back on the live preview socket. Exactly
// one of Preview or Error is set.
type liveReply struct {
	Preview *previewResponse  `json:"preview,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// TemplateLive upgrades to a websocket and renders every previewRequest
// the editor sends for the template in the URL, replying with the preview
// or an error. Each message gets its own lookup memo so edits saved
// meanwhile are picked up.
func (a *Admin) TemplateLive(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: a.originPatterns})
	if err != nil {
		slog.Warn("live preview upgrade failed", "error", err, "key", key)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxBodyBytes)

	ctx := r.Context()
	for {
		var req previewRequest
		readCtx, cancel := context.WithTimeout(ctx, liveIdleTimeout)
		err := wsjson.Read(readCtx, conn, &req)
		cancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				slog.Debug("live preview closed", "error", err, "key", key)
			}
			return
		}

		reply := a.liveRender(engine.WithLookupScope(ctx), key, req)
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			slog.Debug("live preview write failed", "error", err, "key", key)
			return
		}
	}
}

func (a *Admin) liveRender(ctx context.Context, key string, req previewRequest) liveReply {
	if err := validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return liveReply{Error: "validation failed", Fields: fieldErrors(verrs)}
		}
		return liveReply{Error: err.Error()}
	}

	resp, err := a.preview(ctx, key, req)
	if err != nil {
		slog.Warn("live preview render failed", "error", err, "key", key)
		return liveReply{Error: err.Error()}
	}
	return liveReply{Preview: resp}
}
