// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strconv"
	"strings"

	"classportal/internal/parts"
	"classportal/internal/safety"
)

// Data is the dictionary a page controller hands to the renderer.
type Data map[string]any

// filterData keeps only the allowed top-level keys.
func filterData(data Data, allowed []string) map[string]any {
	out := make(map[string]any, len(allowed))
	for _, k := range allowed {
		if v, ok := data[k]; ok {
			out[k] = v
		}
	}
	return out
}

var singleQuotedRe = regexp.MustCompile(`^'((?:[^'\\]|\\.)*)'$`)

// translateExpr maps the literal forms limited-code blocks use to Go
// template syntax. Anything else (fields, variables, numbers, booleans,
// double-quoted strings) is already valid and passes through.
func translateExpr(expr string) string {
	if m := singleQuotedRe.FindStringSubmatch(expr); m != nil {
		return strconv.Quote(strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(m[1]))
	}
	if strings.EqualFold(expr, "null") {
		return `""`
	}
	return expr
}

// compileLimitedCode turns validated @php ... @endphp blocks into template
// variable declarations. Blocks that do not parse are dropped; validation
// rejects them before this point.
func compileLimitedCode(src string) string {
	if !strings.Contains(src, "@php") {
		return src
	}
	return safety.LimitedCodeRe.ReplaceAllStringFunc(src, func(block string) string {
		m := safety.LimitedCodeRe.FindStringSubmatch(block)
		assigns, ok := safety.ParseAssignments(m[1])
		if !ok {
			return ""
		}
		var b strings.Builder
		for _, a := range assigns {
			fmt.Fprintf(&b, "{{$%s := %s}}", a.Name, translateExpr(a.Expr))
		}
		return b.String()
	})
}

// ErrTemplateSyntax is returned by CheckSyntax for content the template
// parser rejects.
var ErrTemplateSyntax = errors.New("invalid template syntax")

// CheckSyntax parses src on its own, after limited-code compilation.
// Fragments are checked alone, so they cannot use variables declared by
// the page that includes them.
func CheckSyntax(src string) error {
	if _, err := template.New("fragment").Parse(compileLimitedCode(src)); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateSyntax, err)
	}
	return nil
}

// bind compiles src (memoised by fingerprint) and executes it over the
// filtered data.
func (e *Engine) bind(src string, data Data, allowed []string) (string, error) {
	fp := parts.Fingerprint(src)
	compiled := e.compiled.get(fp)
	if compiled == nil {
		var err error
		compiled, err = template.New("page").Parse(compileLimitedCode(src))
		if err != nil {
			return "", fmt.Errorf("parse template: %w", err)
		}
		e.compiled.put(fp, compiled)
	}

	var buf bytes.Buffer
	if err := compiled.Execute(&buf, filterData(data, allowed)); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
