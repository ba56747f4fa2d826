// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"time"

	"classportal/internal/models"
)

// Options tune rendering. They can be swapped at runtime with SetOptions.
type Options struct {
	// Scope selects which template rows are looked up.
	Scope models.TemplateScope
	// PopupPrefix is prepended to popup token keys that lack it.
	PopupPrefix string
	// MaxIncludeDepth bounds nested token expansion. Tokens found at this
	// depth or deeper resolve to "".
	MaxIncludeDepth int
	// AllowedVariables lists the top-level data keys templates may read.
	AllowedVariables []string
	// CacheTTL is how long token-resolved markup stays cached. Zero
	// disables render caching.
	CacheTTL time.Duration
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Scope:            models.TemplateScopeGlobal,
		PopupPrefix:      "popup.",
		MaxIncludeDepth:  5,
		AllowedVariables: []string{"user", "classroom", "locale", "page"},
		CacheTTL:         60 * time.Second,
	}
}
