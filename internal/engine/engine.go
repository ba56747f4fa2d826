// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine renders template overrides. It looks up published
// templates, expands nested [[section:..]] and [[popup:..]] tokens, gates
// everything through the safety validator, binds the allow-listed page
// data with html/template and assembles the inline output served to the
// browser. Token-resolved markup is cached in-process (L1) and, when
// configured, in Valkey (L2).
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"classportal/internal/models"
	"classportal/internal/parts"
	"classportal/internal/safety"
	"classportal/internal/store"
)

// PrimaryKey is the full-page screen that gets day-tab normalization.
const PrimaryKey = "classroom.page"

const dayTabsMarker = "day-tabs"

// ErrNoDefault is returned by RenderDefault for keys without built-in content.
var ErrNoDefault = errors.New("no default content for key")

// RenderCache is a shared (L2) store for token-resolved markup.
type RenderCache interface {
	Get(ctx context.Context, key, fingerprint string) (string, bool)
	Set(ctx context.Context, key, fingerprint, markup string)
}

// Engine renders template overrides and default content.
type Engine struct {
	source   TemplateSource
	defaults Defaults
	opts     atomic.Pointer[Options]

	rendered *renderCache
	compiled *templateCache
	shared   RenderCache // nil when Valkey is not configured
}

// New creates a renderer with empty L1 caches.
func New(source TemplateSource, defaults Defaults, opts Options) *Engine {
	e := &Engine{
		source:   source,
		defaults: defaults,
		rendered: newRenderCache(),
		compiled: newTemplateCache(),
	}
	e.SetOptions(opts)
	return e
}

// SetRenderCache configures the shared L2 cache. Call after New.
func (e *Engine) SetRenderCache(c RenderCache) {
	e.shared = c
}

// SetOptions swaps the rendering options. Safe to call while rendering.
func (e *Engine) SetOptions(opts Options) {
	opts.AllowedVariables = append([]string(nil), opts.AllowedVariables...)
	e.opts.Store(&opts)
	e.rendered.clear()
	slog.Info("render options applied",
		"scope", opts.Scope,
		"max_include_depth", opts.MaxIncludeDepth,
		"cache_ttl", opts.CacheTTL,
	)
}

// Options returns the options currently in effect.
func (e *Engine) Options() Options {
	return *e.opts.Load()
}

func (e *Engine) newResolver(ctx context.Context, opts *Options) *resolver {
	return &resolver{
		lk:       newLookup(ctx, e.source, opts.Scope),
		defaults: e.defaults,
		prefix:   opts.PopupPrefix,
		maxDepth: opts.MaxIncludeDepth,
	}
}

// RenderPublishedByKey renders the published override of key. ok is false
// when there is no eligible override: the template is missing, its
// override is disabled, it has no published content, or it fails
// validation. Store errors are returned; callers fall back to the default
// content.
func (e *Engine) RenderPublishedByKey(ctx context.Context, key string, data Data) (string, bool, error) {
	opts := e.opts.Load()
	r := e.newResolver(ctx, opts)

	t, err := r.lk.find(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("render %s: %w", key, err)
	}
	if t == nil || !t.IsOverrideEnabled || !store.HasPublishedContent(t) {
		return "", false, nil
	}

	p := store.PartsByVersion(t, models.VersionPublished)
	if !safety.IsSafe(p.Markup, p.Style, p.Script) {
		slog.Warn("published override failed validation, serving default", "key", key)
		return "", false, nil
	}
	src := e.resolvedBundle(ctx, r, opts, key, key == PrimaryKey, p)
	out, err := e.bind(src, data, opts.AllowedVariables)
	if err != nil {
		return "", false, fmt.Errorf("render %s: %w", key, err)
	}
	return out, true, nil
}

// RenderPreview renders a template's draft or published parts without the
// eligibility gate. When data is nil the template's mock data is used.
// Content that fails validation renders as "".
func (e *Engine) RenderPreview(ctx context.Context, t *models.Template, version string, data Data) (string, error) {
	opts := e.opts.Load()

	p := store.PartsByVersion(t, version)
	if !safety.IsSafe(p.Markup, p.Style, p.Script) {
		return "", nil
	}
	if data == nil {
		mock, err := MockData(t)
		if err != nil {
			return "", err
		}
		data = mock
	}

	r := e.newResolver(ctx, opts)
	src := e.assemble(ctx, r, t.Key == PrimaryKey, p)
	out, err := e.bind(src, data, opts.AllowedVariables)
	if err != nil {
		return "", fmt.Errorf("preview %s: %w", t.Key, err)
	}
	return out, nil
}

// RenderDefault renders the built-in content for key through the same
// resolve and bind pipeline, so overridden popups and sections still apply
// inside default pages.
func (e *Engine) RenderDefault(ctx context.Context, key string, data Data) (string, error) {
	opts := e.opts.Load()

	p, ok := e.defaults.DefaultParts(key)
	if !ok {
		return "", fmt.Errorf("render default %s: %w", key, ErrNoDefault)
	}

	r := e.newResolver(ctx, opts)
	src := e.resolvedBundle(ctx, r, opts, "default:"+key, false, p)
	out, err := e.bind(src, data, opts.AllowedVariables)
	if err != nil {
		return "", fmt.Errorf("render default %s: %w", key, err)
	}
	return out, nil
}

// resolvedBundle returns the assembled inline bundle for p, going through
// the L1 and L2 caches keyed by (cacheKey, fingerprint of p).
func (e *Engine) resolvedBundle(ctx context.Context, r *resolver, opts *Options, cacheKey string, primary bool, p parts.Parts) string {
	if opts.CacheTTL <= 0 {
		return e.assemble(ctx, r, primary, p)
	}

	fp := parts.FingerprintParts(p)
	if src, ok := e.rendered.get(cacheKey, fp); ok {
		slog.Debug("render cache hit", "key", cacheKey, "layer", "l1")
		return src
	}
	if e.shared != nil {
		if src, ok := e.shared.Get(ctx, cacheKey, fp); ok {
			e.rendered.put(cacheKey, fp, src, opts.CacheTTL)
			return src
		}
	}

	src := e.assemble(ctx, r, primary, p)
	e.rendered.put(cacheKey, fp, src, opts.CacheTTL)
	if e.shared != nil {
		e.shared.Set(ctx, cacheKey, fp, src)
	}
	return src
}

// assemble resolves the tokens in p and bundles the result. The primary
// screen is normalized after resolution, so tabs supplied by an included
// section count as present.
func (e *Engine) assemble(ctx context.Context, r *resolver, primary bool, p parts.Parts) string {
	p.Markup = r.resolve(ctx, p.Markup, 0)
	if primary {
		p = e.normalizePrimary(p)
	}
	return parts.Bundle(p.Markup, p.Style, p.Script)
}

// normalizePrimary injects the default day-tab navigation and its styling
// when neither the resolved markup nor the style carries a day-tabs block. The nav
// goes right after the first </header>, or first when there is none.
func (e *Engine) normalizePrimary(p parts.Parts) parts.Parts {
	if strings.Contains(p.Markup, dayTabsMarker) || strings.Contains(p.Style, dayTabsMarker) {
		return p
	}
	tabs := e.defaults.DayTabs()

	if i := strings.Index(strings.ToLower(p.Markup), "</header>"); i >= 0 {
		end := i + len("</header>")
		p.Markup = p.Markup[:end] + "\n" + tabs.Markup + p.Markup[end:]
	} else {
		p.Markup = tabs.Markup + "\n" + p.Markup
	}

	if p.Style == "" {
		p.Style = tabs.Style
	} else {
		p.Style = tabs.Style + "\n" + p.Style
	}
	return p
}

// MockData decodes a template's mock data. A template without mock data
// yields an empty dictionary.
func MockData(t *models.Template) (Data, error) {
	if len(t.MockDataJSON) == 0 {
		return Data{}, nil
	}
	var d Data
	if err := json.Unmarshal(t.MockDataJSON, &d); err != nil {
		return nil, fmt.Errorf("decode mock data for %s: %w", t.Key, err)
	}
	if d == nil {
		d = Data{}
	}
	return d, nil
}
