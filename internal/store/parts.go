// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"classportal/internal/models"
	"classportal/internal/parts"
)

// HasPublishedContent reports whether any published part is non-empty.
func HasPublishedContent(t *models.Template) bool {
	if t == nil {
		return false
	}
	return nonEmpty(t.PublishedMarkup) || nonEmpty(t.PublishedStyle) || nonEmpty(t.PublishedScript)
}

// PartsByVersion returns the published parts when version is "published"
// and the draft parts otherwise.
//
// Rows written before the three-column layout carry their style and script
// inline in the markup. When both side columns are empty and the markup
// still holds inline blocks, the markup is split on the fly.
func PartsByVersion(t *models.Template, version string) parts.Parts {
	var p parts.Parts
	if version == models.VersionPublished {
		p = parts.Parts{
			Markup: deref(t.PublishedMarkup),
			Style:  deref(t.PublishedStyle),
			Script: deref(t.PublishedScript),
		}
	} else {
		p = parts.Parts{Markup: t.DraftMarkup, Style: t.DraftStyle, Script: t.DraftScript}
	}

	if p.Style == "" && p.Script == "" && parts.HasInlineBlocks(p.Markup) {
		return parts.Split(p.Markup).Parts()
	}
	return p
}

func nonEmpty(s *string) bool { return s != nil && *s != "" }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
