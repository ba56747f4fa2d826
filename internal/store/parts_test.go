// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"testing"

	"classportal/internal/models"
	"classportal/internal/parts"
)

func strPtr(s string) *string { return &s }

func TestHasPublishedContent(t *testing.T) {
	tests := []struct {
		name string
		tmpl *models.Template
		want bool
	}{
		{"nil template", nil, false},
		{"never published", &models.Template{DraftMarkup: "<p>x</p>"}, false},
		{"published empty strings", &models.Template{
			PublishedMarkup: strPtr(""), PublishedStyle: strPtr(""), PublishedScript: strPtr(""),
		}, false},
		{"published markup", &models.Template{PublishedMarkup: strPtr("<p>x</p>")}, true},
		{"published style only", &models.Template{PublishedStyle: strPtr("p{}")}, true},
		{"published script only", &models.Template{PublishedScript: strPtr("go()")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPublishedContent(tt.tmpl); got != tt.want {
				t.Errorf("HasPublishedContent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPartsByVersion(t *testing.T) {
	tmpl := &models.Template{
		DraftMarkup:     "<p>draft</p>",
		DraftStyle:      "p{color:red}",
		PublishedMarkup: strPtr("<p>live</p>"),
		PublishedScript: strPtr("live()"),
	}

	tests := []struct {
		version string
		want    parts.Parts
	}{
		{models.VersionPublished, parts.Parts{Markup: "<p>live</p>", Script: "live()"}},
		{models.VersionDraft, parts.Parts{Markup: "<p>draft</p>", Style: "p{color:red}"}},
		{"anything-else", parts.Parts{Markup: "<p>draft</p>", Style: "p{color:red}"}},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			if got := PartsByVersion(tmpl, tt.version); got != tt.want {
				t.Errorf("PartsByVersion = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPartsByVersionLegacyInlineBlocks(t *testing.T) {
	legacy := "<style>.a{}</style><div class=\"a\">x</div><script>run()</script>"
	tmpl := &models.Template{
		DraftMarkup:     legacy,
		PublishedMarkup: strPtr(legacy),
	}

	want := parts.Parts{Markup: `<div class="a">x</div>`, Style: ".a{}", Script: "run()"}
	for _, version := range []string{models.VersionDraft, models.VersionPublished} {
		if got := PartsByVersion(tmpl, version); got != want {
			t.Errorf("%s: got %+v, want %+v", version, got, want)
		}
	}

	// Once a side column is populated the markup is taken as-is.
	tmpl.DraftStyle = "b{}"
	got := PartsByVersion(tmpl, models.VersionDraft)
	if got.Markup != legacy || got.Style != "b{}" {
		t.Errorf("populated columns must not be split: %+v", got)
	}
}
