// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"classportal/internal/models"
	"classportal/internal/parts"
	"classportal/internal/safety"
	"classportal/internal/store"
)

// tokenRe matches [[section:<key>]] and [[popup:<key>]].
var tokenRe = regexp.MustCompile(`\[\[\s*((?i:section|popup))\s*:\s*([^\]]+?)\s*\]\]`)

// Defaults supplies built-in content to the resolver and renderer.
type Defaults interface {
	// PopupMarkup returns the default dialog for a popup key; never empty.
	PopupMarkup(key string) string
	// DefaultParts returns built-in content for a top-level key.
	DefaultParts(key string) (parts.Parts, bool)
	// DayTabs returns the default day-tab navigation and its styling.
	DayTabs() parts.Parts
}

// resolver expands inclusion tokens. It is a pure function of the token
// text and the store state visible through lk.
type resolver struct {
	lk       *lookup
	defaults Defaults
	prefix   string
	maxDepth int
}

// resolve replaces every token in markup with the inline bundle of the
// referenced template, recursing into included markup at depth+1. Tokens
// found at depth >= maxDepth are replaced with "".
func (r *resolver) resolve(ctx context.Context, markup string, depth int) string {
	if !strings.Contains(markup, "[[") {
		return markup
	}
	return tokenRe.ReplaceAllStringFunc(markup, func(token string) string {
		if depth >= r.maxDepth {
			return ""
		}
		m := tokenRe.FindStringSubmatch(token)
		kind, key := strings.ToLower(m[1]), strings.TrimSpace(m[2])
		isPopup := kind == "popup"
		if isPopup && !strings.HasPrefix(key, r.prefix) {
			key = r.prefix + key
		}
		return r.expand(ctx, key, isPopup, depth)
	})
}

func (r *resolver) expand(ctx context.Context, key string, isPopup bool, depth int) string {
	fallback := func() string {
		if isPopup {
			return r.defaults.PopupMarkup(key)
		}
		return ""
	}

	t, err := r.lk.find(ctx, key)
	if err != nil {
		slog.Warn("template token lookup failed", "key", key, "error", err)
		return fallback()
	}
	if t == nil || !t.IsOverrideEnabled || !store.HasPublishedContent(t) {
		return fallback()
	}

	p := store.PartsByVersion(t, models.VersionPublished)
	if !safety.IsSafe(p.Markup, p.Style, p.Script) {
		slog.Warn("published template failed validation, dropped", "key", key)
		return ""
	}

	bundle := parts.Bundle(r.resolve(ctx, p.Markup, depth+1), p.Style, p.Script)
	if err := CheckSyntax(bundle); err != nil {
		slog.Warn("published template failed to parse, dropped", "key", key, "error", err)
		return fallback()
	}
	return bundle
}
