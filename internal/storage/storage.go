// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage writes public static assets, such as the published
// global stylesheet, either to an S3-compatible bucket or to a local
// directory served by the application.
package storage

import "context"

// assetCacheControl lets browsers keep assets; URLs carry a content
// fingerprint, so a new publish always changes the URL.
const assetCacheControl = "public, max-age=31536000, immutable"

// AssetStore is a flat namespace of publicly served files.
type AssetStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
}

var (
	_ AssetStore = (*Client)(nil)
	_ AssetStore = (*LocalDir)(nil)
)
