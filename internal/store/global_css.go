// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"classportal/internal/models"
)

const globalCSSColumns = `id, draft_css, published_css, is_enabled,
	updated_by, created_at, updated_at`

const globalCSSVersionColumns = `id, css, created_by, created_at`

// GlobalCSSStore persists the singleton global stylesheet row and its
// publish history.
type GlobalCSSStore struct {
	db *sql.DB
}

// NewGlobalCSSStore creates a new GlobalCSSStore with the given database connection.
func NewGlobalCSSStore(db *sql.DB) *GlobalCSSStore {
	return &GlobalCSSStore{db: db}
}

func scanGlobalCSS(scanner interface{ Scan(...any) error }) (*models.GlobalCSS, error) {
	var g models.GlobalCSS
	err := scanner.Scan(
		&g.ID, &g.DraftCSS, &g.PublishedCSS, &g.IsEnabled,
		&g.UpdatedBy, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func scanGlobalCSSVersion(scanner interface{ Scan(...any) error }) (*models.GlobalCSSVersion, error) {
	var v models.GlobalCSSVersion
	if err := scanner.Scan(&v.ID, &v.CSS, &v.CreatedBy, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// ensureRow creates the singleton row if it does not exist yet.
func ensureRow(ctx context.Context, q interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO global_css (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, models.GlobalCSSID)
	if err != nil {
		return fmt.Errorf("ensure global css row: %w", err)
	}
	return nil
}

// Get returns the stylesheet row, creating it on first access.
func (s *GlobalCSSStore) Get(ctx context.Context) (*models.GlobalCSS, error) {
	if err := ensureRow(ctx, s.db); err != nil {
		return nil, err
	}
	g, err := scanGlobalCSS(s.db.QueryRowContext(ctx, `
		SELECT `+globalCSSColumns+` FROM global_css WHERE id = $1
	`, models.GlobalCSSID))
	if err != nil {
		return nil, fmt.Errorf("get global css: %w", err)
	}
	return g, nil
}

// SaveDraft overwrites the draft stylesheet.
func (s *GlobalCSSStore) SaveDraft(ctx context.Context, css string, actor *uuid.UUID) (*models.GlobalCSS, error) {
	return s.update(ctx, "save global css draft", `draft_css = $2, updated_by = $3`, css, actor)
}

// SetEnabled toggles whether the published stylesheet is served.
func (s *GlobalCSSStore) SetEnabled(ctx context.Context, enabled bool, actor *uuid.UUID) (*models.GlobalCSS, error) {
	return s.update(ctx, "set global css enabled", `is_enabled = $2, updated_by = $3`, enabled, actor)
}

// update applies a SET clause whose placeholders start at $2 ($1 is the id).
func (s *GlobalCSSStore) update(ctx context.Context, op, set string, args ...any) (*models.GlobalCSS, error) {
	if err := ensureRow(ctx, s.db); err != nil {
		return nil, err
	}
	g, err := scanGlobalCSS(s.db.QueryRowContext(ctx, `
		UPDATE global_css SET `+set+`, updated_at = NOW()
		WHERE id = $1
		RETURNING `+globalCSSColumns,
		append([]any{models.GlobalCSSID}, args...)...,
	))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

// Publish copies the draft into the published column and appends a version
// row, in one transaction.
func (s *GlobalCSSStore) Publish(ctx context.Context, actor *uuid.UUID) (*models.GlobalCSS, *models.GlobalCSSVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ensureRow(ctx, tx); err != nil {
		return nil, nil, err
	}

	g, err := scanGlobalCSS(tx.QueryRowContext(ctx, `
		UPDATE global_css SET
			published_css = draft_css, updated_by = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+globalCSSColumns,
		models.GlobalCSSID, actor,
	))
	if err != nil {
		return nil, nil, fmt.Errorf("publish global css: %w", err)
	}

	v, err := scanGlobalCSSVersion(tx.QueryRowContext(ctx, `
		INSERT INTO global_css_versions (css, created_by)
		VALUES ($1, $2)
		RETURNING `+globalCSSVersionColumns,
		g.PublishedCSS, actor,
	))
	if err != nil {
		return nil, nil, fmt.Errorf("append global css version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit global css publish: %w", err)
	}
	return g, v, nil
}

// ListVersions returns the most recent published stylesheets, newest first.
func (s *GlobalCSSStore) ListVersions(ctx context.Context, limit int) ([]*models.GlobalCSSVersion, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+globalCSSVersionColumns+`
		FROM global_css_versions
		ORDER BY created_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list global css versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.GlobalCSSVersion
	for rows.Next() {
		v, err := scanGlobalCSSVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan global css version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
