// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"classportal/internal/models"
	"classportal/internal/parts"
)

// ErrVersionMismatch is returned by Revert when the requested version row
// belongs to a different template.
var ErrVersionMismatch = errors.New("version belongs to another template")

// templateColumns lists all columns for templates SELECTs.
const templateColumns = `id, scope, type, name, key,
	draft_markup, draft_style, draft_script,
	published_markup, published_style, published_script,
	is_override_enabled, mock_data_json, created_by, updated_by,
	created_at, updated_at`

// TemplateStore handles all template-related database operations.
type TemplateStore struct {
	db *sql.DB
}

// NewTemplateStore creates a new TemplateStore with the given database connection.
func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// scanTemplate scans a single templates row into a Template.
func scanTemplate(scanner interface{ Scan(...any) error }) (*models.Template, error) {
	var (
		t    models.Template
		mock []byte
	)
	err := scanner.Scan(
		&t.ID, &t.Scope, &t.Type, &t.Name, &t.Key,
		&t.DraftMarkup, &t.DraftStyle, &t.DraftScript,
		&t.PublishedMarkup, &t.PublishedStyle, &t.PublishedScript,
		&t.IsOverrideEnabled, &mock, &t.CreatedBy, &t.UpdatedBy,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(mock) > 0 {
		t.MockDataJSON = json.RawMessage(mock)
	}
	return &t, nil
}

// nullJSON maps an empty raw message to SQL NULL.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// FindByKey retrieves a template by scope and key. Returns nil if not found.
func (s *TemplateStore) FindByKey(ctx context.Context, scope models.TemplateScope, key string) (*models.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates WHERE scope = $1 AND key = $2
	`, scope, key)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template by key: %w", err)
	}
	return t, nil
}

// FindByID retrieves a template by its UUID. Returns nil if not found.
func (s *TemplateStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates WHERE id = $1
	`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template by id: %w", err)
	}
	return t, nil
}

// List returns all templates of a scope ordered by type and key.
func (s *TemplateStore) List(ctx context.Context, scope models.TemplateScope) ([]*models.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE scope = $1
		ORDER BY type, key
	`, scope)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// Create inserts a new template with its draft parts. Published columns
// start NULL and the override starts disabled.
func (s *TemplateStore) Create(ctx context.Context, t *models.Template) (*models.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO templates (
			scope, type, name, key,
			draft_markup, draft_style, draft_script,
			mock_data_json, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING `+templateColumns,
		t.Scope, t.Type, t.Name, t.Key,
		t.DraftMarkup, t.DraftStyle, t.DraftScript,
		nullJSON(t.MockDataJSON), t.CreatedBy,
	)
	created, err := scanTemplate(row)
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return created, nil
}

// FirstOrCreate returns the template with t's scope and key, inserting t
// when none exists. The boolean reports whether a row was inserted.
func (s *TemplateStore) FirstOrCreate(ctx context.Context, t *models.Template) (*models.Template, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO templates (
			scope, type, name, key,
			draft_markup, draft_style, draft_script,
			mock_data_json, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (scope, key) DO NOTHING
		RETURNING `+templateColumns,
		t.Scope, t.Type, t.Name, t.Key,
		t.DraftMarkup, t.DraftStyle, t.DraftScript,
		nullJSON(t.MockDataJSON), t.CreatedBy,
	)
	created, err := scanTemplate(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("first or create template: %w", err)
	}

	existing, err := s.FindByKey(ctx, t.Scope, t.Key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("first or create template: %s vanished after conflict", t.Key)
	}
	return existing, false, nil
}

// UpdateDraft overwrites the three draft parts and the mock data. Returns
// nil if the template does not exist.
func (s *TemplateStore) UpdateDraft(ctx context.Context, id uuid.UUID, p parts.Parts, mockData json.RawMessage, actor *uuid.UUID) (*models.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE templates SET
			draft_markup = $1, draft_style = $2, draft_script = $3,
			mock_data_json = $4, updated_by = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING `+templateColumns,
		p.Markup, p.Style, p.Script, nullJSON(mockData), actor, id,
	)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update template draft: %w", err)
	}
	return t, nil
}

// SetOverrideEnabled toggles whether the published override is served.
// Returns nil if the template does not exist.
func (s *TemplateStore) SetOverrideEnabled(ctx context.Context, id uuid.UUID, enabled bool, actor *uuid.UUID) (*models.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE templates SET
			is_override_enabled = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+templateColumns,
		enabled, actor, id,
	)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("set template override: %w", err)
	}
	return t, nil
}

// Publish copies the draft parts into the published columns and appends a
// published version row, in one transaction. Returns nil if the template
// does not exist.
func (s *TemplateStore) Publish(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*models.TemplateVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var p parts.Parts
	err = tx.QueryRowContext(ctx, `
		UPDATE templates SET
			published_markup = draft_markup,
			published_style = draft_style,
			published_script = draft_script,
			updated_by = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING draft_markup, draft_style, draft_script
	`, actor, id).Scan(&p.Markup, &p.Style, &p.Script)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("publish template: %w", err)
	}

	v, err := appendVersion(ctx, tx, id, models.VersionTypePublished, p, actor)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit publish: %w", err)
	}
	return v, nil
}

// Revert snapshots the current draft as a draft_snapshot version and then
// copies the parts of versionID into the draft, in one transaction. The
// returned version is the snapshot. Returns nil if either row is missing.
func (s *TemplateStore) Revert(ctx context.Context, id, versionID uuid.UUID, actor *uuid.UUID) (*models.TemplateVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	target, err := scanTemplateVersion(tx.QueryRowContext(ctx, `
		SELECT `+templateVersionColumns+`
		FROM template_versions WHERE id = $1
	`, versionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("revert find version: %w", err)
	}
	if target.TemplateID != id {
		return nil, ErrVersionMismatch
	}

	var current parts.Parts
	err = tx.QueryRowContext(ctx, `
		SELECT draft_markup, draft_style, draft_script
		FROM templates WHERE id = $1
		FOR UPDATE
	`, id).Scan(&current.Markup, &current.Style, &current.Script)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("revert lock template: %w", err)
	}

	snapshot, err := appendVersion(ctx, tx, id, models.VersionTypeDraftSnapshot, current, actor)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE templates SET
			draft_markup = $1, draft_style = $2, draft_script = $3,
			updated_by = $4, updated_at = NOW()
		WHERE id = $5
	`, target.Markup, target.Style, target.Script, actor, id)
	if err != nil {
		return nil, fmt.Errorf("revert update draft: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit revert: %w", err)
	}
	return snapshot, nil
}
