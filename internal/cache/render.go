// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// renderKeyPrefix is the Valkey key prefix for token-resolved markup.
	renderKeyPrefix = "render:"

	// DefaultRenderTTL is how long resolved markup stays cached.
	DefaultRenderTTL = 60 * time.Second
)

// renderEntry is the msgpack value stored per key. Hash repeats the
// fingerprint from the key so a truncated or foreign value is detected.
type renderEntry struct {
	Markup   string    `msgpack:"m"`
	Hash     string    `msgpack:"h"`
	StoredAt time.Time `msgpack:"t"`
}

// RenderCache shares token-resolved markup between application
// instances. Every error is logged and reported as a miss.
type RenderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRenderCache creates a render cache backed by the given Valkey client.
func NewRenderCache(client *redis.Client, ttl time.Duration) *RenderCache {
	if ttl <= 0 {
		ttl = DefaultRenderTTL
	}
	return &RenderCache{client: client, ttl: ttl}
}

// RenderKey returns the Valkey key for a template key and content fingerprint.
func RenderKey(key, fingerprint string) string {
	return renderKeyPrefix + key + ":" + fingerprint
}

// Get returns the resolved markup stored for (key, fingerprint).
func (rc *RenderCache) Get(ctx context.Context, key, fingerprint string) (string, bool) {
	raw, err := rc.client.Get(ctx, RenderKey(key, fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		slog.Warn("render cache get error", "key", key, "error", err)
		return "", false
	}

	var entry renderEntry
	if err := msgpack.Unmarshal(raw, &entry); err != nil {
		slog.Warn("render cache decode error", "key", key, "error", err)
		return "", false
	}
	if entry.Hash != fingerprint {
		slog.Warn("render cache fingerprint mismatch", "key", key)
		return "", false
	}

	slog.Debug("render cache hit", "key", key, "layer", "l2", "age", time.Since(entry.StoredAt))
	return entry.Markup, true
}

// Set stores resolved markup for (key, fingerprint) with the configured TTL.
func (rc *RenderCache) Set(ctx context.Context, key, fingerprint, markup string) {
	raw, err := msgpack.Marshal(renderEntry{
		Markup:   markup,
		Hash:     fingerprint,
		StoredAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("render cache encode error", "key", key, "error", err)
		return
	}
	if err := rc.client.Set(ctx, RenderKey(key, fingerprint), raw, rc.ttl).Err(); err != nil {
		slog.Warn("render cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes every cached render by scanning for the prefix.
// Entries expire on their own; this is for operators after bulk imports.
func (rc *RenderCache) InvalidateAll(ctx context.Context) (int, error) {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := rc.client.Scan(ctx, cursor, renderKeyPrefix+"*", 100).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, err
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("render cache cleared", "deleted", deleted)
	}
	return deleted, nil
}
