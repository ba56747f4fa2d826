// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package defaults provides the built-in content served when no template
// override applies: the classroom page skeleton, the popup catalog and the
// sign-in pages. It also seeds template rows with that content.
package defaults

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"classportal/internal/markdown"
	"classportal/internal/parts"
)

// Provider serves default content for one popup catalog.
type Provider struct {
	prefix string
	popups []Popup
}

// New builds a provider. configured is the catalog from configuration, in
// display order; when empty the built-in catalog is used. Configured bodies
// are Markdown and are sanitized; an empty body takes the built-in body for
// the key, or the fallback body for unknown keys.
func New(prefix string, configured []Popup) (*Provider, error) {
	if prefix == "" {
		return nil, fmt.Errorf("defaults: popup prefix must not be empty")
	}
	p := &Provider{prefix: prefix}
	if len(configured) == 0 {
		p.popups = BuiltinPopups()
		return p, nil
	}

	policy := bluemonday.UGCPolicy()
	for _, c := range configured {
		key := strings.TrimPrefix(strings.TrimSpace(c.Key), prefix)
		entry := Popup{Key: key, Title: c.Title}
		builtin, known := builtinPopup(key)

		switch {
		case c.Body != "":
			body, err := markdown.ToHTML(c.Body)
			if err != nil {
				return nil, fmt.Errorf("defaults: popup %s body: %w", key, err)
			}
			entry.Body = policy.Sanitize(body)
		case known:
			entry.Body = builtin.Body
		default:
			entry.Body = FallbackPopupBody
		}
		if entry.Title == "" {
			if known {
				entry.Title = builtin.Title
			} else {
				entry.Title = FallbackPopupTitle
			}
		}
		p.popups = append(p.popups, entry)
	}
	return p, nil
}

// Prefix returns the popup key prefix.
func (p *Provider) Prefix() string { return p.prefix }

// Popups returns the catalog in display order.
func (p *Provider) Popups() []Popup {
	return append([]Popup(nil), p.popups...)
}

// PopupKeys returns the full template keys of every catalog popup.
func (p *Provider) PopupKeys() []string {
	keys := make([]string, len(p.popups))
	for i, pop := range p.popups {
		keys[i] = p.prefix + pop.Key
	}
	return keys
}

// IsPopupKey reports whether key carries the popup prefix.
func (p *Provider) IsPopupKey(key string) bool {
	return strings.HasPrefix(key, p.prefix)
}

func (p *Provider) popup(short string) (Popup, bool) {
	for _, pop := range p.popups {
		if pop.Key == short {
			return pop, true
		}
	}
	return Popup{}, false
}

var popupIDRe = regexp.MustCompile(`[^a-z0-9-]+`)

// popupID turns a short key into a value usable in an id attribute.
func popupID(short string) string {
	return strings.Trim(popupIDRe.ReplaceAllString(strings.ToLower(short), "-"), "-")
}

// PopupMarkup returns the default dialog for a popup key, with or without
// the prefix. It is never empty: keys outside the catalog get the fallback
// title and body.
func (p *Provider) PopupMarkup(key string) string {
	short := strings.TrimPrefix(key, p.prefix)
	pop, ok := p.popup(short)
	if !ok {
		pop = Popup{Key: short, Title: FallbackPopupTitle, Body: FallbackPopupBody}
	}
	return renderPopup(pop)
}

func renderPopup(pop Popup) string {
	id := popupID(pop.Key)
	if id == "" {
		id = "popup"
	}
	return `<div class="popup" id="popup-` + id + `" data-popup="` + id +
		`" role="dialog" aria-modal="true" aria-labelledby="popup-` + id + `-title" hidden>` +
		`<div class="popup-card">` +
		`<header class="popup-header"><h2 id="popup-` + id + `-title">` + html.EscapeString(pop.Title) + `</h2>` +
		`<button type="button" class="popup-close" data-popup-close aria-label="Close">&times;</button></header>` +
		`<div class="popup-body">` + pop.Body + `</div>` +
		`</div></div>`
}

// DefaultParts returns the built-in content for key: the page skeleton,
// an auth page, or a popup dialog for any prefixed key.
func (p *Provider) DefaultParts(key string) (parts.Parts, bool) {
	switch key {
	case KeyClassroomPage:
		return classroomPage(p.popups, p.prefix), true
	case KeyAuthLogin:
		return loginPage(), true
	case KeyAuthTokenLogin:
		return tokenLoginPage(), true
	}
	if p.IsPopupKey(key) {
		return parts.Parts{Markup: p.PopupMarkup(key)}, true
	}
	return parts.Parts{}, false
}

// DayTabs returns the default day-tab navigation and its styling.
func (p *Provider) DayTabs() parts.Parts { return DayTabs() }

var labelReplacer = strings.NewReplacer(".", " ", "-", " ", "_", " ")

// Label derives a human-readable name from a template key, e.g.
// "popup.important-links" becomes "Popup Important Links".
func Label(key string) string {
	return cases.Title(language.English).String(labelReplacer.Replace(key))
}
