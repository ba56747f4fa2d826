// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package parts normalizes template content into the three-part storage
// model (markup, stylesheet, script). It splits inline <style>/<script>
// blocks out of markup, assembles the inline bundle served to browsers,
// and computes content fingerprints used for cache keys.
package parts

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/net/html"
)

// Parts is the three-part content of a template.
type Parts struct {
	Markup string `json:"markup" yaml:"markup"`
	Style  string `json:"style" yaml:"style,omitempty"`
	Script string `json:"script" yaml:"script,omitempty"`
}

// IsEmpty reports whether all three parts are empty.
func (p Parts) IsEmpty() bool {
	return p.Markup == "" && p.Style == "" && p.Script == ""
}

// Result is the output of Split. Style and Script are nil when the markup
// held no block of that kind (or only empty ones).
type Result struct {
	Markup string
	Style  *string
	Script *string
}

// Parts flattens a split result, mapping missing side channels to "".
func (r Result) Parts() Parts {
	p := Parts{Markup: r.Markup}
	if r.Style != nil {
		p.Style = *r.Style
	}
	if r.Script != nil {
		p.Script = *r.Script
	}
	return p
}

// inlineBlockRe detects markup that still carries inline style or script
// elements (rows written before the three-column layout existed).
var inlineBlockRe = regexp.MustCompile(`(?i)<(style|script)\b`)

// HasInlineBlocks reports whether markup contains a <style> or <script> tag.
func HasInlineBlocks(markup string) bool {
	return inlineBlockRe.MatchString(markup)
}

// Split separates inline <style> and <script> blocks from markup. Block
// contents are trimmed and joined with a blank line in document order;
// the blocks are removed from the markup, which is then trimmed. Scripts
// that load an external src stay in the markup. When no block is found
// the markup is returned unchanged.
func Split(markup string) Result {
	z := html.NewTokenizer(strings.NewReader(markup))

	var (
		out     strings.Builder
		styles  []string
		scripts []string
		found   bool
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				// The tokenizer only fails on read errors, which a
				// strings.Reader never produces.
				return Result{Markup: markup}
			}
			break
		}

		raw := z.Raw()
		if tt != html.StartTagToken {
			out.Write(raw)
			continue
		}

		name, hasAttr := z.TagName()
		tag := string(name)
		if tag != "style" && tag != "script" {
			out.Write(raw)
			continue
		}
		if tag == "script" && hasAttr && hasSrc(z) {
			out.Write(raw)
			continue
		}

		found = true
		body := readRawText(z, tag)
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		if tag == "style" {
			styles = append(styles, body)
		} else {
			scripts = append(scripts, body)
		}
	}

	if !found {
		return Result{Markup: markup}
	}

	res := Result{Markup: strings.TrimSpace(out.String())}
	if len(styles) > 0 {
		s := strings.Join(styles, "\n\n")
		res.Style = &s
	}
	if len(scripts) > 0 {
		s := strings.Join(scripts, "\n\n")
		res.Script = &s
	}
	return res
}

// hasSrc scans the current start tag's attributes for a src attribute.
func hasSrc(z *html.Tokenizer) bool {
	for {
		key, _, more := z.TagAttr()
		if string(key) == "src" {
			return true
		}
		if !more {
			return false
		}
	}
}

// readRawText consumes tokens up to the closing tag and returns the text
// between. The tokenizer switches to raw-text mode after <style>/<script>.
func readRawText(z *html.Tokenizer, tag string) string {
	var body strings.Builder
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return body.String()
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == tag {
				return body.String()
			}
		}
		body.Write(z.Raw())
	}
}

// Join is the inverse of Split: it re-inlines the side channels around
// the markup using the same layout as Bundle.
func Join(r Result) string {
	p := r.Parts()
	return Bundle(p.Markup, p.Style, p.Script)
}

// Bundle assembles the inline output served to browsers: a <style> block
// (when css is non-empty), the markup, then a <script> block (when js is
// non-empty), in that fixed order.
func Bundle(markup, css, js string) string {
	if css == "" && js == "" {
		return markup
	}
	var b strings.Builder
	b.Grow(len(markup) + len(css) + len(js) + 34)
	if css != "" {
		b.WriteString("<style>")
		b.WriteString(css)
		b.WriteString("</style>")
	}
	b.WriteString(markup)
	if js != "" {
		b.WriteString("<script>")
		b.WriteString(js)
		b.WriteString("</script>")
	}
	return b.String()
}

// Fingerprint returns a hex BLAKE2b-128 digest over the given values.
// Each value is length-prefixed so ("ab", "c") and ("a", "bc") differ.
func Fingerprint(values ...string) string {
	h, _ := blake2b.New(16, nil) // only fails for invalid sizes or keys
	var lenBuf [8]byte
	for _, v := range values {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(v)))
		h.Write(lenBuf[:])
		io.WriteString(h, v)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FingerprintParts hashes the three parts of a template.
func FingerprintParts(p Parts) string {
	return Fingerprint(p.Markup, p.Style, p.Script)
}
