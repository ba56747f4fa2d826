// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render wraps rendered page bodies in the HTML document shell
// served by the public routes.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

var document = template.Must(template.ParseFS(templatesFS, "templates/document.html"))

// Page holds what the document shell needs around a page body.
type Page struct {
	Lang          string
	Title         string
	StylesheetURL string // empty omits the stylesheet link
	// Body is the already rendered and validated page markup. It is
	// written verbatim.
	Body template.HTML
}

// Document writes the full HTML document for p. The page is rendered into
// a buffer first so a template error never leaves a half-written response.
func Document(w http.ResponseWriter, status int, p *Page) error {
	var buf bytes.Buffer
	if err := document.ExecuteTemplate(&buf, "document.html", p); err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
