// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains. Routes are
// split into the public pages rendered by the template engine and the
// admin JSON API used by the authoring UI.
package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"classportal/internal/handlers"
	"classportal/internal/middleware"
)

// Options configure the middleware chains.
type Options struct {
	// ActorHeader names the trusted header carrying the editor's UUID.
	ActorHeader string
	// AllowedOrigins are extra origins accepted for admin writes.
	AllowedOrigins []string
	// AssetOrigin is added to the style-src policy when the stylesheet is
	// served from another origin.
	AssetOrigin string
	// Locales are the supported page languages, fallback first.
	Locales []language.Tag
	// StaticDir is served under StaticURL when both are set and StaticURL
	// is a path.
	StaticDir string
	StaticURL string
	// PreviewLimiter throttles preview rendering. May be nil.
	PreviewLimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(opts Options, admin *handlers.Admin, public *handlers.Public) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Actor(opts.ActorHeader))
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders(opts.AssetOrigin))
	r.Use(middleware.Locale(opts.Locales))

	r.Get("/health", healthHandler)

	if opts.StaticDir != "" && strings.HasPrefix(opts.StaticURL, "/") {
		prefix := strings.TrimRight(opts.StaticURL, "/")
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(opts.StaticDir)))
		r.Handle(prefix+"/*", fs)
	}

	// Public pages share one template lookup memo per request.
	r.Group(func(r chi.Router) {
		r.Use(middleware.TemplateScope)
		r.Get("/", public.Classroom)
		r.Get("/login", public.Login)
		r.Get("/login/{token}", public.TokenLogin)
	})

	r.Route("/admin/api", func(r chi.Router) {
		r.Use(middleware.SameOrigin(opts.AllowedOrigins))

		preview := func(h http.HandlerFunc) http.Handler {
			if opts.PreviewLimiter == nil {
				return h
			}
			return opts.PreviewLimiter.Middleware(h)
		}

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", admin.TemplatesList)
			r.Get("/{key}", admin.TemplateGet)
			r.Put("/{key}/draft", admin.TemplateSaveDraft)
			r.Post("/{key}/publish", admin.TemplatePublish)
			r.Post("/{key}/revert", admin.TemplateRevert)
			r.Put("/{key}/override", admin.TemplateSetOverride)
			r.Get("/{key}/versions", admin.TemplateVersions)
			r.Method(http.MethodPost, "/{key}/preview", preview(admin.TemplatePreview))
			r.Method(http.MethodGet, "/{key}/live", preview(admin.TemplateLive))
		})

		r.Route("/css", func(r chi.Router) {
			r.Get("/", admin.CSSGet)
			r.Put("/draft", admin.CSSSaveDraft)
			r.Post("/publish", admin.CSSPublish)
			r.Post("/reset", admin.CSSReset)
			r.Put("/enabled", admin.CSSSetEnabled)
			r.Get("/url", admin.CSSURL)
			r.Get("/versions", admin.CSSVersions)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
