// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"classportal/internal/models"
	"classportal/internal/parts"
)

// templateVersionColumns lists all columns for template_versions SELECTs.
const templateVersionColumns = `id, template_id, version_type,
	markup, style, script, created_by, created_at`

// scanTemplateVersion scans a single template_versions row into a TemplateVersion.
func scanTemplateVersion(scanner interface{ Scan(...any) error }) (*models.TemplateVersion, error) {
	var v models.TemplateVersion
	err := scanner.Scan(
		&v.ID, &v.TemplateID, &v.VersionType,
		&v.Markup, &v.Style, &v.Script, &v.CreatedBy, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// appendVersion inserts an immutable version row inside tx.
func appendVersion(ctx context.Context, tx *sql.Tx, templateID uuid.UUID, vt models.VersionType, p parts.Parts, actor *uuid.UUID) (*models.TemplateVersion, error) {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO template_versions (
			template_id, version_type, markup, style, script, created_by
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+templateVersionColumns,
		templateID, vt, p.Markup, p.Style, p.Script, actor,
	)
	v, err := scanTemplateVersion(row)
	if err != nil {
		return nil, fmt.Errorf("append template version: %w", err)
	}
	return v, nil
}

// ListVersions returns all versions of a template, newest first.
func (s *TemplateStore) ListVersions(ctx context.Context, templateID uuid.UUID) ([]*models.TemplateVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateVersionColumns+`
		FROM template_versions
		WHERE template_id = $1
		ORDER BY created_at DESC, id
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list template versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.TemplateVersion
	for rows.Next() {
		v, err := scanTemplateVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// FindVersion returns a single version by its ID. Returns nil if not found.
func (s *TemplateStore) FindVersion(ctx context.Context, id uuid.UUID) (*models.TemplateVersion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+templateVersionColumns+`
		FROM template_versions
		WHERE id = $1
	`, id)
	v, err := scanTemplateVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template version: %w", err)
	}
	return v, nil
}
