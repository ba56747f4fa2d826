// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// GlobalCSSID is the fixed primary key of the singleton stylesheet row.
const GlobalCSSID = 1

// GlobalCSS is the site-wide stylesheet override. Exactly one row exists
// (id = 1), created lazily on first access.
type GlobalCSS struct {
	ID           int        `json:"id"`
	DraftCSS     string     `json:"draft_css"`
	PublishedCSS string     `json:"published_css"`
	IsEnabled    bool       `json:"is_enabled"`
	UpdatedBy    *uuid.UUID `json:"updated_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// GlobalCSSVersion is an append-only record of a published stylesheet.
type GlobalCSSVersion struct {
	ID        uuid.UUID  `json:"id"`
	CSS       string     `json:"css"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
