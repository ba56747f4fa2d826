// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package publish implements the authoring workflow for template
// overrides: saving drafts, publishing, reverting to earlier versions and
// toggling the override flag. Every write that can later be served is
// gated by the safety validator.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"classportal/internal/defaults"
	"classportal/internal/engine"
	"classportal/internal/models"
	"classportal/internal/parts"
	"classportal/internal/safety"
	"classportal/internal/store"
)

var (
	// ErrNotFound is returned when a template or version does not exist.
	ErrNotFound = errors.New("template not found")
	// ErrNothingToPublish is returned when the draft is empty.
	ErrNothingToPublish = errors.New("nothing to publish")
	// ErrInvalidMockData is returned when mock data is not a JSON object.
	ErrInvalidMockData = errors.New("mock data must be a JSON object")
	// ErrInvalidKey is returned for keys that cannot name a template.
	ErrInvalidKey = errors.New("invalid template key")
)

// Repository is the template persistence the workflow needs. It is
// implemented by store.TemplateStore and memstore.Store.
type Repository interface {
	FindByKey(ctx context.Context, scope models.TemplateScope, key string) (*models.Template, error)
	List(ctx context.Context, scope models.TemplateScope) ([]*models.Template, error)
	FirstOrCreate(ctx context.Context, t *models.Template) (*models.Template, bool, error)
	UpdateDraft(ctx context.Context, id uuid.UUID, p parts.Parts, mockData json.RawMessage, actor *uuid.UUID) (*models.Template, error)
	Publish(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*models.TemplateVersion, error)
	Revert(ctx context.Context, id, versionID uuid.UUID, actor *uuid.UUID) (*models.TemplateVersion, error)
	SetOverrideEnabled(ctx context.Context, id uuid.UUID, enabled bool, actor *uuid.UUID) (*models.Template, error)
	ListVersions(ctx context.Context, templateID uuid.UUID) ([]*models.TemplateVersion, error)
}

// Draft is the editable content of a template.
type Draft struct {
	Markup   string
	Style    string
	Script   string
	MockData json.RawMessage
}

var keyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,127}$`)

// Service runs the authoring workflow for one template scope.
type Service struct {
	repo    Repository
	scope   models.TemplateScope
	screens map[string]bool
}

// New creates a workflow service. screenKeys are the top-level keys that
// are created as screens; popups and any other keys become sections.
func New(repo Repository, scope models.TemplateScope, screenKeys []string) *Service {
	screens := make(map[string]bool, len(screenKeys))
	for _, k := range screenKeys {
		screens[k] = true
	}
	return &Service{repo: repo, scope: scope, screens: screens}
}

// List returns every template of the service scope ordered by type and key.
func (s *Service) List(ctx context.Context) ([]*models.Template, error) {
	list, err := s.repo.List(ctx, s.scope)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return list, nil
}

// Get returns the template stored under key.
func (s *Service) Get(ctx context.Context, key string) (*models.Template, error) {
	t, err := s.repo.FindByKey(ctx, s.scope, key)
	if err != nil {
		return nil, fmt.Errorf("get template %s: %w", key, err)
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// open returns the template for key, creating an empty row on first edit.
func (s *Service) open(ctx context.Context, key string) (*models.Template, error) {
	if !keyRe.MatchString(key) {
		return nil, ErrInvalidKey
	}
	typ := models.TemplateTypeSection
	if s.screens[key] {
		typ = models.TemplateTypeScreen
	}
	t, created, err := s.repo.FirstOrCreate(ctx, &models.Template{
		Scope: s.scope,
		Type:  typ,
		Name:  defaults.Label(key),
		Key:   key,
	})
	if err != nil {
		return nil, fmt.Errorf("open template %s: %w", key, err)
	}
	if created {
		slog.Info("template created", "key", key, "type", typ)
	}
	return t, nil
}

// SaveDraft validates and stores the draft for key. Markup that still
// carries inline style or script blocks is split when no separate style
// or script was given.
func (s *Service) SaveDraft(ctx context.Context, key string, d Draft, actor *uuid.UUID) (*models.Template, error) {
	p := parts.Parts{Markup: d.Markup, Style: d.Style, Script: d.Script}
	if p.Style == "" && p.Script == "" && parts.HasInlineBlocks(p.Markup) {
		p = parts.Split(p.Markup).Parts()
	}
	if err := check(p); err != nil {
		return nil, fmt.Errorf("save draft %s: %w", key, err)
	}

	mock, err := normalizeMockData(d.MockData)
	if err != nil {
		return nil, fmt.Errorf("save draft %s: %w", key, err)
	}

	t, err := s.open(ctx, key)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateDraft(ctx, t.ID, p, mock, actor)
	if err != nil {
		return nil, fmt.Errorf("save draft %s: %w", key, err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// check runs the safety validator and then parses the bundled parts.
func check(p parts.Parts) error {
	if err := safety.Check(p.Markup, p.Style, p.Script); err != nil {
		return err
	}
	return engine.CheckSyntax(parts.Bundle(p.Markup, p.Style, p.Script))
}

// normalizeMockData accepts an empty value, JSON null or a JSON object.
func normalizeMockData(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, ErrInvalidMockData
	}
	return json.RawMessage(trimmed), nil
}

// Publish copies the draft of key to its published parts and records a
// version.
func (s *Service) Publish(ctx context.Context, key string, actor *uuid.UUID) (*models.TemplateVersion, error) {
	t, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !t.HasDraft() {
		return nil, ErrNothingToPublish
	}
	p := store.PartsByVersion(t, models.VersionDraft)
	if err := check(p); err != nil {
		return nil, fmt.Errorf("publish %s: %w", key, err)
	}

	v, err := s.repo.Publish(ctx, t.ID, actor)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", key, err)
	}
	if v == nil {
		return nil, ErrNotFound
	}
	slog.Info("template published", "key", key, "version", v.ID)
	return v, nil
}

// Revert loads versionID into the draft of key. The replaced draft is kept
// as a draft_snapshot version, which is returned with the updated template.
func (s *Service) Revert(ctx context.Context, key string, versionID uuid.UUID, actor *uuid.UUID) (*models.Template, *models.TemplateVersion, error) {
	t, err := s.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := s.repo.Revert(ctx, t.ID, versionID, actor)
	if err != nil {
		return nil, nil, fmt.Errorf("revert %s: %w", key, err)
	}
	if snapshot == nil {
		return nil, nil, ErrNotFound
	}

	t, err = s.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("template reverted", "key", key, "version", versionID)
	return t, snapshot, nil
}

// SetOverrideEnabled toggles whether the published override of key is
// served.
func (s *Service) SetOverrideEnabled(ctx context.Context, key string, enabled bool, actor *uuid.UUID) (*models.Template, error) {
	t, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.SetOverrideEnabled(ctx, t.ID, enabled, actor)
	if err != nil {
		return nil, fmt.Errorf("set override %s: %w", key, err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	if enabled && !store.HasPublishedContent(updated) {
		slog.Warn("override enabled without published content", "key", key)
	}
	return updated, nil
}

// Versions returns the version log of key, newest first.
func (s *Service) Versions(ctx context.Context, key string) ([]*models.TemplateVersion, error) {
	t, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	versions, err := s.repo.ListVersions(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("list versions %s: %w", key, err)
	}
	return versions, nil
}
