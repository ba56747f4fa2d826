// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"context"
	"sync"

	"classportal/internal/models"
)

// TemplateSource is the read side of the template store.
type TemplateSource interface {
	FindByKey(ctx context.Context, scope models.TemplateScope, key string) (*models.Template, error)
}

type lookupKey struct {
	scope models.TemplateScope
	key   string
}

type lookupEntry struct {
	tmpl *models.Template
	err  error
}

// memoTable remembers template lookups. It lives for one render call, or
// for a whole request when attached with WithLookupScope.
type memoTable struct {
	mu      sync.Mutex
	entries map[lookupKey]lookupEntry
}

func newMemoTable() *memoTable {
	return &memoTable{entries: make(map[lookupKey]lookupEntry)}
}

type memoCtxKey struct{}

// WithLookupScope attaches a lookup memo to ctx. Every render made with the
// returned context shares it, so a key is fetched from the store at most
// once. Attach it per request, never to a long-lived context.
func WithLookupScope(ctx context.Context) context.Context {
	if _, ok := ctx.Value(memoCtxKey{}).(*memoTable); ok {
		return ctx
	}
	return context.WithValue(ctx, memoCtxKey{}, newMemoTable())
}

// lookup is a memoized view of a TemplateSource. Returned templates are
// shared between callers and must be treated as read-only.
type lookup struct {
	src   TemplateSource
	scope models.TemplateScope
	table *memoTable
}

func newLookup(ctx context.Context, src TemplateSource, scope models.TemplateScope) *lookup {
	table, ok := ctx.Value(memoCtxKey{}).(*memoTable)
	if !ok {
		table = newMemoTable()
	}
	return &lookup{src: src, scope: scope, table: table}
}

func (l *lookup) find(ctx context.Context, key string) (*models.Template, error) {
	k := lookupKey{scope: l.scope, key: key}

	l.table.mu.Lock()
	if e, ok := l.table.entries[k]; ok {
		l.table.mu.Unlock()
		return e.tmpl, e.err
	}
	l.table.mu.Unlock()

	t, err := l.src.FindByKey(ctx, l.scope, key)

	l.table.mu.Lock()
	l.table.entries[k] = lookupEntry{tmpl: t, err: err}
	l.table.mu.Unlock()
	return t, err
}
