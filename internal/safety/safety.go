// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package safety decides whether operator-authored template content may be
// served. Templates are trusted to carry markup, styling, client-side
// scripting and trivial variable assignment; anything that would run
// server-side code is rejected.
//
// Three rules apply over the concatenation of markup, style and script:
//
//  1. No raw code-open tag ("<?php") or short-echo tag ("<?=").
//  2. Every "@php ... @endphp" limited-code block is well formed and holds
//     only simple assignments of the form "$name = <expression>;".
//  3. No Go template action that reaches other named templates or invokes
//     function values ({{define}}, {{template}}, {{block}}, call).
package safety

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnsafeContent is returned by Check. Its message deliberately omits
// which rule matched.
var ErrUnsafeContent = errors.New("unsafe construct not allowed")

var (
	codeOpenRe  = regexp.MustCompile(`(?i)<\?php|<\?=`)
	nestedTagRe = regexp.MustCompile(`(?i)<\?php|<\?=|\?>|\{\{|\}\}`)

	limitedOpenRe  = regexp.MustCompile(`@php\b`)
	limitedCloseRe = regexp.MustCompile(`@endphp\b`)

	// LimitedCodeRe matches one limited-code block and captures its body.
	LimitedCodeRe = regexp.MustCompile(`(?s)@php\b(.*?)@endphp\b`)

	callLikeRe   = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*\s*\(`)
	assignmentRe = regexp.MustCompile(`(?s)^\$([A-Za-z_][A-Za-z0-9_]*)\s*=\s*([^=\s].*)$`)
	deniedWordRe = buildDeniedWordRe(deniedWords)

	actionRe        = regexp.MustCompile(`(?s)\{\{(.*?)\}\}`)
	actionKeywordRe = regexp.MustCompile(`^-?\s*(define|template|block)\b`)
	actionCallRe    = regexp.MustCompile(`(?:^|[^.\w$])call\b`)
)

func buildDeniedWordRe(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Assignment is one statement of a limited-code block.
type Assignment struct {
	Name string
	Expr string
}

// IsSafe reports whether the three parts of a template may be rendered.
// Empty style or script stand for "no content".
func IsSafe(markup, style, script string) bool {
	content := markup + "\n" + style + "\n" + script

	if codeOpenRe.MatchString(content) {
		return false
	}
	if !limitedCodeSafe(content) {
		return false
	}
	return !hasEngineEscape(content)
}

// Check is IsSafe in error form for authoring paths.
func Check(markup, style, script string) error {
	if !IsSafe(markup, style, script) {
		return ErrUnsafeContent
	}
	return nil
}

// limitedCodeSafe validates every @php ... @endphp block. Opening tags,
// closing tags and matched regions must pair up exactly.
func limitedCodeSafe(content string) bool {
	opens := len(limitedOpenRe.FindAllStringIndex(content, -1))
	closes := len(limitedCloseRe.FindAllStringIndex(content, -1))
	if opens == 0 && closes == 0 {
		return true
	}

	blocks := LimitedCodeRe.FindAllStringSubmatch(content, -1)
	if opens != closes || len(blocks) != opens {
		return false
	}

	for _, m := range blocks {
		if _, ok := ParseAssignments(m[1]); !ok {
			return false
		}
	}
	return true
}

// ParseAssignments checks a limited-code body and splits it into its
// assignments. ok is false when the body is not a sequence of simple
// variable assignments.
func ParseAssignments(body string) ([]Assignment, bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, false
	}
	if nestedTagRe.MatchString(body) {
		return nil, false
	}
	if callLikeRe.MatchString(body) {
		return nil, false
	}
	if deniedWordRe.MatchString(body) {
		return nil, false
	}

	var out []Assignment
	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		m := assignmentRe.FindStringSubmatch(stmt)
		if m == nil {
			return nil, false
		}
		out = append(out, Assignment{Name: m[1], Expr: strings.TrimSpace(m[2])})
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// hasEngineEscape reports Go template actions that define or execute
// named templates, or that invoke function values with call.
func hasEngineEscape(content string) bool {
	for _, m := range actionRe.FindAllStringSubmatch(content, -1) {
		action := strings.TrimSpace(m[1])
		if strings.HasPrefix(action, "/*") || strings.HasPrefix(action, "- /*") {
			continue
		}
		if actionKeywordRe.MatchString(action) {
			return true
		}
		if actionCallRe.MatchString(action) {
			return true
		}
	}
	return false
}
