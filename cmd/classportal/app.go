// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"classportal/internal/cache"
	"classportal/internal/config"
	"classportal/internal/database"
	"classportal/internal/defaults"
	"classportal/internal/engine"
	"classportal/internal/models"
	"classportal/internal/publish"
	"classportal/internal/storage"
	"classportal/internal/store"
	"classportal/internal/store/memstore"
	"classportal/internal/stylesheet"
)

// templateRepo is what the commands need from a template store.
type templateRepo interface {
	publish.Repository
	defaults.Repository
}

// app holds the wired services shared by the commands.
type app struct {
	cfg *config.Config

	db     *sql.DB       // nil with in-memory stores
	valkey *redis.Client // nil when Valkey is not reachable

	templates   templateRepo
	defaults    *defaults.Provider
	engine      *engine.Engine
	publish     *publish.Service
	stylesheet  *stylesheet.Publisher
	renderCache *cache.RenderCache // nil without Valkey
}

// newApp connects to the configured services and wires the template
// engine. With inMemory set, templates and the stylesheet live in process
// memory and neither PostgreSQL nor Valkey is contacted.
func newApp(cfg *config.Config, inMemory bool) (*app, error) {
	a := &app{cfg: cfg}

	var cssRepo stylesheet.Repository
	if inMemory {
		slog.Warn("using in-memory stores, edits are lost on exit")
		a.templates = memstore.New()
		cssRepo = memstore.NewGlobalCSS()
	} else {
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.db = db
		if err := database.Migrate(context.Background(), db); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		if err := database.Seed(db); err != nil {
			a.Close()
			return nil, err
		}
		a.templates = store.NewTemplateStore(db)
		cssRepo = store.NewGlobalCSSStore(db)
	}

	defs, err := defaults.New(cfg.Templates.PopupPrefix, popupCatalog(cfg.Templates.DefaultPopups))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.defaults = defs

	assets, err := newAssetStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.engine = engine.New(a.templates, defs, engineOptions(cfg))

	if !inMemory {
		client, err := cache.ConnectValkey(context.Background(), cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Warn("valkey unavailable, shared render cache disabled", "error", err)
		} else {
			a.valkey = client
			a.renderCache = cache.NewRenderCache(client, cfg.Templates.RenderCacheTTL)
			a.engine.SetRenderCache(a.renderCache)
		}
	}

	scope := models.TemplateScope(cfg.Templates.Scope)
	a.publish = publish.New(a.templates, scope, screenKeys(cfg.Templates))
	a.stylesheet = stylesheet.New(cssRepo, assets, cfg.Templates.CSSAssetKey)
	return a, nil
}

// Close releases the database and cache connections.
func (a *app) Close() {
	if a.valkey != nil {
		a.valkey.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// knownKeys lists every key the admin listing shows: the allowed
// top-level keys followed by the catalog popups.
func (a *app) knownKeys() []string {
	return append(append([]string(nil), a.cfg.Templates.AllowedKeys...), a.defaults.PopupKeys()...)
}

// engineOptions maps the templates section of the configuration onto the
// render options.
func engineOptions(cfg *config.Config) engine.Options {
	t := cfg.Templates
	return engine.Options{
		Scope:            models.TemplateScope(t.Scope),
		PopupPrefix:      t.PopupPrefix,
		MaxIncludeDepth:  t.MaxIncludeDepth,
		AllowedVariables: t.AllowedTemplateVariables,
		CacheTTL:         t.RenderCacheTTL,
	}
}

func popupCatalog(in []config.Popup) []defaults.Popup {
	out := make([]defaults.Popup, len(in))
	for i, p := range in {
		out[i] = defaults.Popup{Key: p.Key, Title: p.Title, Body: p.Body}
	}
	return out
}

// screenKeys returns the allowed keys that are full screens rather than
// popups.
func screenKeys(t config.Templates) []string {
	var out []string
	for _, k := range t.AllowedKeys {
		if !strings.HasPrefix(k, t.PopupPrefix) {
			out = append(out, k)
		}
	}
	return out
}

// newAssetStore returns the public S3 bucket when it is configured and the
// local public directory otherwise.
func newAssetStore(cfg *config.Config) (storage.AssetStore, error) {
	s3, err := storage.NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3BucketPublic, cfg.S3PublicURL)
	if err != nil {
		return nil, fmt.Errorf("init s3 storage: %w", err)
	}
	if s3 != nil {
		slog.Info("stylesheet assets stored in s3", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3BucketPublic)
		return s3, nil
	}
	local, err := storage.NewLocalDir(cfg.PublicDir, cfg.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("init public dir: %w", err)
	}
	return local, nil
}

// parseLocales parses the configured language tags, keeping their order.
func parseLocales(in []string) ([]language.Tag, error) {
	tags := make([]language.Tag, 0, len(in))
	for _, s := range in {
		tag, err := language.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", s, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// originOf returns the scheme://host part of rawURL, or "" when it has
// none.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// hostPatterns turns allowed origins into the host patterns the websocket
// origin check expects.
func hostPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		}
	}
	return out
}
