// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TemplateScope selects which tenant set a template belongs to. Current
// deployments only use the global scope; classroom-scoped rows are an
// extension point.
type TemplateScope string

const (
	TemplateScopeGlobal    TemplateScope = "global"
	TemplateScopeClassroom TemplateScope = "classroom"
)

// TemplateType categorizes templates by their role in page composition.
// Popups are sections whose key carries the popup prefix.
type TemplateType string

const (
	TemplateTypeScreen  TemplateType = "screen"
	TemplateTypeSection TemplateType = "section"
)

// Version names accepted by the preview renderer and the parts helpers.
const (
	VersionDraft     = "draft"
	VersionPublished = "published"
)

// Template is an overridable unit of page content stored in three parts
// (markup, stylesheet, script). Draft parts are edited freely; published
// parts are what the public site serves once IsOverrideEnabled is set.
type Template struct {
	ID                uuid.UUID       `json:"id"`
	Scope             TemplateScope   `json:"scope"`
	Type              TemplateType    `json:"type"`
	Name              string          `json:"name"`
	Key               string          `json:"key"`
	DraftMarkup       string          `json:"draft_markup"`
	DraftStyle        string          `json:"draft_style"`
	DraftScript       string          `json:"draft_script"`
	PublishedMarkup   *string         `json:"published_markup,omitempty"`
	PublishedStyle    *string         `json:"published_style,omitempty"`
	PublishedScript   *string         `json:"published_script,omitempty"`
	IsOverrideEnabled bool            `json:"is_override_enabled"`
	MockDataJSON      json.RawMessage `json:"mock_data_json,omitempty"`
	CreatedBy         *uuid.UUID      `json:"created_by,omitempty"`
	UpdatedBy         *uuid.UUID      `json:"updated_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// HasDraft reports whether any of the three draft parts holds content.
func (t *Template) HasDraft() bool {
	return t.DraftMarkup != "" || t.DraftStyle != "" || t.DraftScript != ""
}

// VersionType records why a template version row was written.
type VersionType string

const (
	VersionTypePublished     VersionType = "published"
	VersionTypeDraftSnapshot VersionType = "draft_snapshot"
)

// TemplateVersion is an immutable snapshot of a template's three parts,
// appended on every publish and revert. Rows are never updated.
type TemplateVersion struct {
	ID          uuid.UUID   `json:"id"`
	TemplateID  uuid.UUID   `json:"template_id"`
	VersionType VersionType `json:"version_type"`
	Markup      string      `json:"markup"`
	Style       string      `json:"style"`
	Script      string      `json:"script"`
	CreatedBy   *uuid.UUID  `json:"created_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
