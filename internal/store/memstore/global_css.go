// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"classportal/internal/models"
)

// GlobalCSSStore is the in-memory singleton stylesheet.
type GlobalCSSStore struct {
	mu          sync.RWMutex
	css         *models.GlobalCSS
	cssVersions []*models.GlobalCSSVersion
	now         func() time.Time
}

// NewGlobalCSS returns a store whose row is created on first access.
func NewGlobalCSS() *GlobalCSSStore {
	return &GlobalCSSStore{now: time.Now}
}

func (s *GlobalCSSStore) cssLocked() *models.GlobalCSS {
	if s.css == nil {
		now := s.now()
		s.css = &models.GlobalCSS{ID: models.GlobalCSSID, CreatedAt: now, UpdatedAt: now}
	}
	return s.css
}

func (s *GlobalCSSStore) cssCopyLocked() *models.GlobalCSS {
	c := *s.cssLocked()
	return &c
}

// Get returns the stylesheet row, creating it on first access.
func (s *GlobalCSSStore) Get(_ context.Context) (*models.GlobalCSS, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cssCopyLocked(), nil
}

// SaveDraft overwrites the draft stylesheet.
func (s *GlobalCSSStore) SaveDraft(_ context.Context, css string, actor *uuid.UUID) (*models.GlobalCSS, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.cssLocked()
	g.DraftCSS = css
	g.UpdatedBy, g.UpdatedAt = actor, s.now()
	return s.cssCopyLocked(), nil
}

// SetEnabled toggles whether the published stylesheet is served.
func (s *GlobalCSSStore) SetEnabled(_ context.Context, enabled bool, actor *uuid.UUID) (*models.GlobalCSS, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.cssLocked()
	g.IsEnabled = enabled
	g.UpdatedBy, g.UpdatedAt = actor, s.now()
	return s.cssCopyLocked(), nil
}

// Publish copies the draft stylesheet to published and appends a version.
func (s *GlobalCSSStore) Publish(_ context.Context, actor *uuid.UUID) (*models.GlobalCSS, *models.GlobalCSSVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.cssLocked()
	g.PublishedCSS = g.DraftCSS
	g.UpdatedBy, g.UpdatedAt = actor, s.now()

	v := &models.GlobalCSSVersion{ID: uuid.New(), CSS: g.PublishedCSS, CreatedBy: actor, CreatedAt: s.now()}
	s.cssVersions = append(s.cssVersions, v)

	vc := *v
	return s.cssCopyLocked(), &vc, nil
}

// ListVersions returns up to limit published stylesheets, newest first.
func (s *GlobalCSSStore) ListVersions(_ context.Context, limit int) ([]*models.GlobalCSSVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	var out []*models.GlobalCSSVersion
	for i := len(s.cssVersions) - 1; i >= 0 && len(out) < limit; i-- {
		v := *s.cssVersions[i]
		out = append(out, &v)
	}
	return out, nil
}
