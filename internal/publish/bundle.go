// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"classportal/internal/models"
	"classportal/internal/parts"
	"classportal/internal/store"
)

// BundleVersion is the format version written by Export.
const BundleVersion = 1

// Bundle is a portable set of template overrides, used to move content
// between deployments.
type Bundle struct {
	Version   int                  `yaml:"version"`
	Scope     models.TemplateScope `yaml:"scope"`
	Templates []BundleTemplate     `yaml:"templates"`
}

// BundleTemplate is one template inside a Bundle.
type BundleTemplate struct {
	Key       string       `yaml:"key"`
	Name      string       `yaml:"name,omitempty"`
	Enabled   bool         `yaml:"enabled"`
	Draft     parts.Parts  `yaml:"draft"`
	Published *parts.Parts `yaml:"published,omitempty"`
	MockData  string       `yaml:"mock_data,omitempty"`
}

// ImportReport summarizes an Import call.
type ImportReport struct {
	Imported  int
	Published int
	Failed    map[string]error
}

// Export collects every template of the service scope into a bundle.
func (s *Service) Export(ctx context.Context) (*Bundle, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	b := &Bundle{Version: BundleVersion, Scope: s.scope}
	for _, t := range list {
		entry := BundleTemplate{
			Key:     t.Key,
			Name:    t.Name,
			Enabled: t.IsOverrideEnabled,
			Draft:   store.PartsByVersion(t, models.VersionDraft),
		}
		if store.HasPublishedContent(t) {
			p := store.PartsByVersion(t, models.VersionPublished)
			entry.Published = &p
		}
		if len(t.MockDataJSON) > 0 {
			entry.MockData = string(t.MockDataJSON)
		}
		b.Templates = append(b.Templates, entry)
	}
	return b, nil
}

// Import applies a bundle through the regular workflow, so every entry is
// validated like an edit from the admin API. Published content is saved
// and published first, then the draft is restored on top of it. One bad
// entry does not stop the others.
func (s *Service) Import(ctx context.Context, b *Bundle, actor *uuid.UUID) (*ImportReport, error) {
	if b.Version != BundleVersion {
		return nil, fmt.Errorf("import bundle: unsupported version %d", b.Version)
	}
	report := &ImportReport{Failed: make(map[string]error)}
	for _, entry := range b.Templates {
		published, err := s.importOne(ctx, entry, actor)
		if err != nil {
			report.Failed[entry.Key] = err
			continue
		}
		report.Imported++
		if published {
			report.Published++
		}
	}
	return report, nil
}

func (s *Service) importOne(ctx context.Context, entry BundleTemplate, actor *uuid.UUID) (bool, error) {
	mock := json.RawMessage(entry.MockData)

	published := false
	if entry.Published != nil && !entry.Published.IsEmpty() {
		if _, err := s.SaveDraft(ctx, entry.Key, draftOf(*entry.Published, mock), actor); err != nil {
			return false, err
		}
		if _, err := s.Publish(ctx, entry.Key, actor); err != nil {
			return false, err
		}
		published = true
	}

	if _, err := s.SaveDraft(ctx, entry.Key, draftOf(entry.Draft, mock), actor); err != nil {
		return published, err
	}
	if _, err := s.SetOverrideEnabled(ctx, entry.Key, entry.Enabled, actor); err != nil {
		return published, err
	}
	return published, nil
}

func draftOf(p parts.Parts, mock json.RawMessage) Draft {
	return Draft{Markup: p.Markup, Style: p.Style, Script: p.Script, MockData: mock}
}

// WriteBundle encodes b as YAML.
func WriteBundle(w io.Writer, b *Bundle) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return enc.Close()
}

// ReadBundle decodes a YAML bundle.
func ReadBundle(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := yaml.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}
