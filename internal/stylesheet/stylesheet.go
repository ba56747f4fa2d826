// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package stylesheet manages the site-wide stylesheet override: a single
// draft, its published copy served as a static asset, and the version log.
package stylesheet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"classportal/internal/models"
	"classportal/internal/parts"
	"classportal/internal/safety"
	"classportal/internal/storage"
)

// DefaultAssetKey is the asset name of the published stylesheet.
const DefaultAssetKey = "global.css"

const contentType = "text/css; charset=utf-8"

// assetCheckInterval is how often PublishedURL confirms that the asset it
// last wrote is still in storage.
const assetCheckInterval = 30 * time.Second

// Repository persists the singleton stylesheet row. It is implemented by
// store.GlobalCSSStore and memstore.GlobalCSSStore.
type Repository interface {
	Get(ctx context.Context) (*models.GlobalCSS, error)
	SaveDraft(ctx context.Context, css string, actor *uuid.UUID) (*models.GlobalCSS, error)
	SetEnabled(ctx context.Context, enabled bool, actor *uuid.UUID) (*models.GlobalCSS, error)
	Publish(ctx context.Context, actor *uuid.UUID) (*models.GlobalCSS, *models.GlobalCSSVersion, error)
	ListVersions(ctx context.Context, limit int) ([]*models.GlobalCSSVersion, error)
}

// Publisher runs the stylesheet workflow and keeps the asset in sync.
type Publisher struct {
	repo   Repository
	assets storage.AssetStore
	key    string

	mu      sync.Mutex
	written string    // fingerprint of the asset this process last wrote
	checked time.Time // last time the written asset was found in storage
	now     func() time.Time
}

// New creates a publisher writing the asset under key.
func New(repo Repository, assets storage.AssetStore, key string) *Publisher {
	if key == "" {
		key = DefaultAssetKey
	}
	return &Publisher{repo: repo, assets: assets, key: key, now: time.Now}
}

// Get returns the stylesheet row, creating it on first access.
func (p *Publisher) Get(ctx context.Context) (*models.GlobalCSS, error) {
	g, err := p.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stylesheet: %w", err)
	}
	return g, nil
}

// SaveDraft validates and stores the draft stylesheet.
func (p *Publisher) SaveDraft(ctx context.Context, css string, actor *uuid.UUID) (*models.GlobalCSS, error) {
	if err := safety.Check("", css, ""); err != nil {
		return nil, fmt.Errorf("save stylesheet draft: %w", err)
	}
	g, err := p.repo.SaveDraft(ctx, css, actor)
	if err != nil {
		return nil, fmt.Errorf("save stylesheet draft: %w", err)
	}
	return g, nil
}

// ResetDraft clears the draft. The published stylesheet is untouched.
func (p *Publisher) ResetDraft(ctx context.Context, actor *uuid.UUID) (*models.GlobalCSS, error) {
	g, err := p.repo.SaveDraft(ctx, "", actor)
	if err != nil {
		return nil, fmt.Errorf("reset stylesheet draft: %w", err)
	}
	return g, nil
}

// SetEnabled toggles whether the published stylesheet is linked into pages.
func (p *Publisher) SetEnabled(ctx context.Context, enabled bool, actor *uuid.UUID) (*models.GlobalCSS, error) {
	g, err := p.repo.SetEnabled(ctx, enabled, actor)
	if err != nil {
		return nil, fmt.Errorf("set stylesheet enabled: %w", err)
	}
	return g, nil
}

// Publish copies the draft to the published stylesheet, records a version
// and writes the asset. Publishing an empty draft removes the asset.
func (p *Publisher) Publish(ctx context.Context, actor *uuid.UUID) (*models.GlobalCSS, *models.GlobalCSSVersion, error) {
	current, err := p.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := safety.Check("", current.DraftCSS, ""); err != nil {
		return nil, nil, fmt.Errorf("publish stylesheet: %w", err)
	}

	g, v, err := p.repo.Publish(ctx, actor)
	if err != nil {
		return nil, nil, fmt.Errorf("publish stylesheet: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if g.PublishedCSS == "" {
		if err := p.assets.Delete(ctx, p.key); err != nil {
			return nil, nil, fmt.Errorf("publish stylesheet: %w", err)
		}
		p.written = ""
	} else if err := p.writeLocked(ctx, g.PublishedCSS); err != nil {
		return nil, nil, fmt.Errorf("publish stylesheet: %w", err)
	}

	slog.Info("stylesheet published", "version", v.ID, "bytes", len(g.PublishedCSS))
	return g, v, nil
}

// Versions returns up to limit published stylesheets, newest first.
func (p *Publisher) Versions(ctx context.Context, limit int) ([]*models.GlobalCSSVersion, error) {
	vs, err := p.repo.ListVersions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list stylesheet versions: %w", err)
	}
	return vs, nil
}

// PublishedURL returns the cache-busted asset URL of the published
// stylesheet. ok is false unless the override is enabled and the published
// stylesheet is non-empty. The asset is written the first time a
// fingerprint is served by this process, and rewritten when a periodic
// existence check finds it missing from storage.
func (p *Publisher) PublishedURL(ctx context.Context) (string, bool, error) {
	g, err := p.Get(ctx)
	if err != nil {
		return "", false, err
	}
	if !g.IsEnabled || g.PublishedCSS == "" {
		return "", false, nil
	}

	fp := parts.Fingerprint(g.PublishedCSS)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.written != fp || !p.assetPresentLocked(ctx) {
		if err := p.writeLocked(ctx, g.PublishedCSS); err != nil {
			return "", false, err
		}
		slog.Info("stylesheet asset regenerated", "key", p.key)
	}
	return p.assets.URL(p.key) + "?v=" + fp, true, nil
}

// assetPresentLocked checks storage at most once per assetCheckInterval.
// A failed check counts as present.
func (p *Publisher) assetPresentLocked(ctx context.Context) bool {
	now := p.now()
	if now.Sub(p.checked) < assetCheckInterval {
		return true
	}
	ok, err := p.assets.Exists(ctx, p.key)
	if err != nil {
		slog.Warn("stylesheet asset check failed", "key", p.key, "error", err)
		return true
	}
	if ok {
		p.checked = now
	}
	return ok
}

func (p *Publisher) writeLocked(ctx context.Context, css string) error {
	if err := p.assets.Put(ctx, p.key, contentType, []byte(css)); err != nil {
		return fmt.Errorf("write stylesheet asset: %w", err)
	}
	p.written = parts.Fingerprint(css)
	p.checked = p.now()
	return nil
}
