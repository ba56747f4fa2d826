// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package defaults

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"classportal/internal/models"
	"classportal/internal/parts"
)

// Repository is the part of the template store Bootstrap writes through.
type Repository interface {
	FirstOrCreate(ctx context.Context, t *models.Template) (*models.Template, bool, error)
	UpdateDraft(ctx context.Context, id uuid.UUID, p parts.Parts, mockData json.RawMessage, actor *uuid.UUID) (*models.Template, error)
}

// Report lists the keys Bootstrap touched.
type Report struct {
	Created  []string
	Reseeded []string
	Skipped  []string
}

// Bootstrap makes sure a template row exists for every allowed key and
// every catalog popup. New rows get the default content as their draft.
// Existing drafts are overwritten only when they are empty or match a
// stale signature; published content and the override flag are never
// touched.
func (p *Provider) Bootstrap(ctx context.Context, repo Repository, scope models.TemplateScope, allowedKeys []string) (*Report, error) {
	report := &Report{}
	keys := append(append([]string(nil), allowedKeys...), p.PopupKeys()...)
	seen := make(map[string]bool, len(keys))

	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true

		def, ok := p.DefaultParts(key)
		if !ok {
			slog.Warn("no default content for template key, skipping", "key", key)
			report.Skipped = append(report.Skipped, key)
			continue
		}

		typ := models.TemplateTypeScreen
		if p.IsPopupKey(key) {
			typ = models.TemplateTypeSection
		}

		t, created, err := repo.FirstOrCreate(ctx, &models.Template{
			Scope:       scope,
			Type:        typ,
			Name:        Label(key),
			Key:         key,
			DraftMarkup: def.Markup,
			DraftStyle:  def.Style,
			DraftScript: def.Script,
		})
		if err != nil {
			return report, fmt.Errorf("bootstrap %s: %w", key, err)
		}
		if created {
			report.Created = append(report.Created, key)
			continue
		}

		if !shouldSeed(t) && !isStale(key, t.DraftMarkup) {
			continue
		}
		if _, err := repo.UpdateDraft(ctx, t.ID, def, t.MockDataJSON, nil); err != nil {
			return report, fmt.Errorf("bootstrap reseed %s: %w", key, err)
		}
		report.Reseeded = append(report.Reseeded, key)
	}

	slog.Info("templates bootstrapped",
		"created", len(report.Created),
		"reseeded", len(report.Reseeded),
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// shouldSeed reports whether a row has no draft content at all.
func shouldSeed(t *models.Template) bool {
	return !t.HasDraft()
}
