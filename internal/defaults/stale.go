// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package defaults

import "strings"

// staleSignature identifies draft markup written by an older release of
// the built-in content. Bootstrap overwrites drafts that match one.
type staleSignature struct {
	// key limits the signature to one template; empty matches any key.
	key string
	// marker is a substring of the outdated markup.
	marker string
	// blank matches markup that is empty after trimming.
	blank bool
}

// PlaceholderMarker was emitted by early seeds in place of real content.
const PlaceholderMarker = "<!-- default-placeholder -->"

var staleSignatures = []staleSignature{
	{marker: PlaceholderMarker},
	{key: KeyClassroomPage, marker: "cp-old-layout"},
	{key: KeyAuthLogin, blank: true},
}

// isStale reports whether a stored draft matches a known outdated seed.
func isStale(key, draftMarkup string) bool {
	for _, sig := range staleSignatures {
		if sig.key != "" && sig.key != key {
			continue
		}
		if sig.blank && strings.TrimSpace(draftMarkup) == "" {
			return true
		}
		if sig.marker != "" && strings.Contains(draftMarkup, sig.marker) {
			return true
		}
	}
	return false
}
