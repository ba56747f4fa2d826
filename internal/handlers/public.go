// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"html/template"
	"log/slog"
	"maps"
	"net/http"

	"github.com/go-chi/chi/v5"

	"classportal/internal/defaults"
	"classportal/internal/engine"
	"classportal/internal/middleware"
	"classportal/internal/render"
	"classportal/internal/stylesheet"
)

// PageDataSource supplies the data dictionary a page is rendered with.
// The classroom application behind this service implements it; the
// template engine only ever sees the allow-listed top-level keys.
type PageDataSource interface {
	PageData(ctx context.Context, r *http.Request, key string) (engine.Data, error)
}

// StaticData serves the same dictionary for every page. It backs demo
// deployments and tests.
type StaticData engine.Data

// PageData returns a shallow copy of the static dictionary.
func (s StaticData) PageData(_ context.Context, _ *http.Request, _ string) (engine.Data, error) {
	return maps.Clone(engine.Data(s)), nil
}

// Public groups the handlers for the pages served to students and
// teachers. Each page renders its published override when one is
// eligible and the built-in default otherwise.
type Public struct {
	engine *engine.Engine
	data   PageDataSource
	css    *stylesheet.Publisher // nil disables the global stylesheet link
}

// NewPublic creates the public handler group.
func NewPublic(eng *engine.Engine, data PageDataSource, css *stylesheet.Publisher) *Public {
	if data == nil {
		data = StaticData{}
	}
	return &Public{engine: eng, data: data, css: css}
}

// Classroom renders the primary classroom screen.
func (p *Public) Classroom(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, defaults.KeyClassroomPage, nil)
}

// Login renders the login screen.
func (p *Public) Login(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, defaults.KeyAuthLogin, nil)
}

// TokenLogin renders the one-time token login screen. The token is exposed
// to templates as page.token.
func (p *Public) TokenLogin(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, defaults.KeyAuthTokenLogin, map[string]any{"token": chi.URLParam(r, "token")})
}

func (p *Public) render(w http.ResponseWriter, r *http.Request, key string, page map[string]any) {
	ctx := r.Context()
	locale := middleware.LocaleFromCtx(ctx)

	data, err := p.data.PageData(ctx, r, key)
	if err != nil {
		slog.Error("load page data failed", "error", err, "key", key)
		data = engine.Data{}
	}
	if data == nil {
		data = engine.Data{}
	}
	data["locale"] = locale
	data["page"] = pageData(data["page"], key, page)

	body, ok, err := p.engine.RenderPublishedByKey(ctx, key, data)
	if err != nil {
		slog.Error("render override failed, serving default", "error", err, "key", key)
		ok = false
	}
	if !ok {
		body, err = p.engine.RenderDefault(ctx, key, data)
		if err != nil {
			slog.Error("render default failed", "error", err, "key", key)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	err = render.Document(w, http.StatusOK, &render.Page{
		Lang:          locale,
		Title:         defaults.Label(key),
		StylesheetURL: p.stylesheetURL(ctx),
		Body:          template.HTML(body),
	})
	if err != nil {
		slog.Error("write page failed", "error", err, "key", key)
	}
}

// pageData merges the request-specific page values into whatever the data
// source put under "page".
func pageData(existing any, key string, extra map[string]any) map[string]any {
	out := map[string]any{}
	if m, ok := existing.(map[string]any); ok {
		maps.Copy(out, m)
	}
	maps.Copy(out, extra)
	out["key"] = key
	return out
}

// stylesheetURL returns the published global stylesheet URL, or "" when
// none is active.
func (p *Public) stylesheetURL(ctx context.Context) string {
	if p.css == nil {
		return ""
	}
	href, ok, err := p.css.PublishedURL(ctx)
	if err != nil {
		slog.Warn("global stylesheet unavailable", "error", err)
	}
	if !ok {
		return ""
	}
	return href
}
