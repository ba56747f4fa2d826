// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package memstore is an in-memory implementation of the template and
// global stylesheet repositories. It backs tests and the --in-memory
// development server. Every value handed out is a copy.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"classportal/internal/models"
	"classportal/internal/parts"
	"classportal/internal/store"
)

type scopedKey struct {
	scope models.TemplateScope
	key   string
}

// Store holds templates and their versions.
type Store struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]*models.Template
	byKey     map[scopedKey]uuid.UUID
	versions  []*models.TemplateVersion

	now func() time.Time

	// Lookups counts FindByKey calls; tests use it to observe memoization.
	lookups int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		templates: make(map[uuid.UUID]*models.Template),
		byKey:     make(map[scopedKey]uuid.UUID),
		now:       time.Now,
	}
}

// Lookups returns the number of FindByKey calls made so far.
func (s *Store) Lookups() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookups
}

func cloneTemplate(t *models.Template) *models.Template {
	c := *t
	c.PublishedMarkup = cloneStr(t.PublishedMarkup)
	c.PublishedStyle = cloneStr(t.PublishedStyle)
	c.PublishedScript = cloneStr(t.PublishedScript)
	c.MockDataJSON = slices.Clone(t.MockDataJSON)
	return &c
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneVersion(v *models.TemplateVersion) *models.TemplateVersion {
	c := *v
	return &c
}

// FindByKey returns the template with scope and key, or nil.
func (s *Store) FindByKey(_ context.Context, scope models.TemplateScope, key string) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++

	id, ok := s.byKey[scopedKey{scope, key}]
	if !ok {
		return nil, nil
	}
	return cloneTemplate(s.templates[id]), nil
}

// FindByID returns the template with id, or nil.
func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, nil
	}
	return cloneTemplate(t), nil
}

// List returns all templates in scope ordered by type and key.
func (s *Store) List(_ context.Context, scope models.TemplateScope) ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Template
	for _, t := range s.templates {
		if t.Scope == scope {
			out = append(out, cloneTemplate(t))
		}
	}
	slices.SortFunc(out, func(a, b *models.Template) int {
		if a.Type != b.Type {
			if a.Type < b.Type {
				return -1
			}
			return 1
		}
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return out, nil
}

// Create inserts t. It fails when the scope and key are already taken.
func (s *Store) Create(_ context.Context, t *models.Template) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKey[scopedKey{t.Scope, t.Key}]; ok {
		return nil, fmt.Errorf("create template: duplicate key %s/%s", t.Scope, t.Key)
	}
	return cloneTemplate(s.insertLocked(t)), nil
}

func (s *Store) insertLocked(t *models.Template) *models.Template {
	now := s.now()
	row := cloneTemplate(t)
	row.ID = uuid.New()
	if row.Scope == "" {
		row.Scope = models.TemplateScopeGlobal
	}
	row.PublishedMarkup, row.PublishedStyle, row.PublishedScript = nil, nil, nil
	row.IsOverrideEnabled = false
	row.UpdatedBy = row.CreatedBy
	row.CreatedAt, row.UpdatedAt = now, now

	s.templates[row.ID] = row
	s.byKey[scopedKey{row.Scope, row.Key}] = row.ID
	return row
}

// FirstOrCreate returns the existing template for t's scope and key, or
// inserts t. The boolean reports whether a row was inserted.
func (s *Store) FirstOrCreate(_ context.Context, t *models.Template) (*models.Template, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope := t.Scope
	if scope == "" {
		scope = models.TemplateScopeGlobal
	}
	if id, ok := s.byKey[scopedKey{scope, t.Key}]; ok {
		return cloneTemplate(s.templates[id]), false, nil
	}
	return cloneTemplate(s.insertLocked(t)), true, nil
}

// UpdateDraft overwrites the draft parts and mock data of id.
func (s *Store) UpdateDraft(_ context.Context, id uuid.UUID, p parts.Parts, mockData json.RawMessage, actor *uuid.UUID) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, nil
	}
	t.DraftMarkup, t.DraftStyle, t.DraftScript = p.Markup, p.Style, p.Script
	t.MockDataJSON = slices.Clone(mockData)
	s.touchLocked(t, actor)
	return cloneTemplate(t), nil
}

// SetOverrideEnabled toggles the override flag of id.
func (s *Store) SetOverrideEnabled(_ context.Context, id uuid.UUID, enabled bool, actor *uuid.UUID) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, nil
	}
	t.IsOverrideEnabled = enabled
	s.touchLocked(t, actor)
	return cloneTemplate(t), nil
}

func (s *Store) touchLocked(t *models.Template, actor *uuid.UUID) {
	t.UpdatedBy = actor
	t.UpdatedAt = s.now()
}

// Publish copies draft to published and appends a published version.
func (s *Store) Publish(_ context.Context, id uuid.UUID, actor *uuid.UUID) (*models.TemplateVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, nil
	}
	markup, style, script := t.DraftMarkup, t.DraftStyle, t.DraftScript
	t.PublishedMarkup, t.PublishedStyle, t.PublishedScript = &markup, &style, &script
	s.touchLocked(t, actor)

	v := s.appendVersionLocked(id, models.VersionTypePublished,
		parts.Parts{Markup: markup, Style: style, Script: script}, actor)
	return cloneVersion(v), nil
}

// Revert snapshots the current draft, then loads versionID into the draft.
func (s *Store) Revert(_ context.Context, id, versionID uuid.UUID, actor *uuid.UUID) (*models.TemplateVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.findVersionLocked(versionID)
	if target == nil {
		return nil, nil
	}
	if target.TemplateID != id {
		return nil, store.ErrVersionMismatch
	}
	t, ok := s.templates[id]
	if !ok {
		return nil, nil
	}

	snapshot := s.appendVersionLocked(id, models.VersionTypeDraftSnapshot,
		parts.Parts{Markup: t.DraftMarkup, Style: t.DraftStyle, Script: t.DraftScript}, actor)

	t.DraftMarkup, t.DraftStyle, t.DraftScript = target.Markup, target.Style, target.Script
	s.touchLocked(t, actor)
	return cloneVersion(snapshot), nil
}

func (s *Store) appendVersionLocked(id uuid.UUID, vt models.VersionType, p parts.Parts, actor *uuid.UUID) *models.TemplateVersion {
	v := &models.TemplateVersion{
		ID:          uuid.New(),
		TemplateID:  id,
		VersionType: vt,
		Markup:      p.Markup,
		Style:       p.Style,
		Script:      p.Script,
		CreatedBy:   actor,
		CreatedAt:   s.now(),
	}
	s.versions = append(s.versions, v)
	return v
}

func (s *Store) findVersionLocked(id uuid.UUID) *models.TemplateVersion {
	for _, v := range s.versions {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// ListVersions returns the versions of templateID, newest first.
func (s *Store) ListVersions(_ context.Context, templateID uuid.UUID) ([]*models.TemplateVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.TemplateVersion
	for i := len(s.versions) - 1; i >= 0; i-- {
		if s.versions[i].TemplateID == templateID {
			out = append(out, cloneVersion(s.versions[i]))
		}
	}
	return out, nil
}

// FindVersion returns the version with id, or nil.
func (s *Store) FindVersion(_ context.Context, id uuid.UUID) (*models.TemplateVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v := s.findVersionLocked(id); v != nil {
		return cloneVersion(v), nil
	}
	return nil, nil
}
