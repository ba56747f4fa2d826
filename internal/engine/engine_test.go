// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classportal/internal/defaults"
	"classportal/internal/models"
	"classportal/internal/parts"
	"classportal/internal/store/memstore"
)

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func newTestEngine(t *testing.T, opts Options) (*Engine, *memstore.Store, *defaults.Provider) {
	t.Helper()
	src := memstore.New()
	defs, err := defaults.New(opts.PopupPrefix, nil)
	require.NoError(t, err)
	return New(src, defs, opts), src, defs
}

// draft creates (or updates) a template with draft parts only.
func draft(t *testing.T, s *memstore.Store, key string, p parts.Parts) *models.Template {
	t.Helper()
	ctx := context.Background()
	tmpl, _, err := s.FirstOrCreate(ctx, &models.Template{
		Scope: models.TemplateScopeGlobal,
		Type:  models.TemplateTypeSection,
		Name:  key,
		Key:   key,
	})
	require.NoError(t, err)
	tmpl, err = s.UpdateDraft(ctx, tmpl.ID, p, nil, nil)
	require.NoError(t, err)
	return tmpl
}

// publish stores p as both draft and published content and sets the
// override flag.
func publish(t *testing.T, s *memstore.Store, key string, p parts.Parts, enabled bool) *models.Template {
	t.Helper()
	ctx := context.Background()
	tmpl := draft(t, s, key, p)
	_, err := s.Publish(ctx, tmpl.ID, nil)
	require.NoError(t, err)
	tmpl, err = s.SetOverrideEnabled(ctx, tmpl.ID, enabled, nil)
	require.NoError(t, err)
	return tmpl
}

func markup(m string) parts.Parts { return parts.Parts{Markup: m} }

func render(t *testing.T, e *Engine, key string, data Data) (string, bool) {
	t.Helper()
	out, ok, err := e.RenderPublishedByKey(context.Background(), key, data)
	require.NoError(t, err)
	return out, ok
}

// --------------------------------------------------------------------------
// Eligibility
// --------------------------------------------------------------------------

func TestRenderPublishedByKeyEligibility(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())

	_, ok := render(t, e, "screen.missing", nil)
	assert.False(t, ok, "missing template")

	publish(t, s, "screen.disabled", markup("<p>x</p>"), false)
	_, ok = render(t, e, "screen.disabled", nil)
	assert.False(t, ok, "override disabled")

	tmpl := draft(t, s, "screen.unpublished", markup("<p>draft</p>"))
	_, err := s.SetOverrideEnabled(context.Background(), tmpl.ID, true, nil)
	require.NoError(t, err)
	_, ok = render(t, e, "screen.unpublished", nil)
	assert.False(t, ok, "no published content")

	publish(t, s, "screen.empty", parts.Parts{}, true)
	_, ok = render(t, e, "screen.empty", nil)
	assert.False(t, ok, "published but empty")

	publish(t, s, "screen.live", parts.Parts{Markup: "<p>live</p>", Style: "p{}", Script: "go()"}, true)
	out, ok := render(t, e, "screen.live", nil)
	assert.True(t, ok)
	assert.Equal(t, "<style>p{}</style><p>live</p><script>go()</script>", out)
}

func TestRenderPublishedByKeyUnsafe(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "screen.evil", markup("<p><?php system('id'); ?></p>"), true)

	out, ok := render(t, e, "screen.evil", nil)
	assert.False(t, ok)
	assert.Empty(t, out)
}

type failingSource struct{ err error }

func (f failingSource) FindByKey(context.Context, models.TemplateScope, string) (*models.Template, error) {
	return nil, f.err
}

func TestRenderPublishedByKeyStoreError(t *testing.T) {
	defs, err := defaults.New("popup.", nil)
	require.NoError(t, err)
	boom := errors.New("connection refused")
	e := New(failingSource{boom}, defs, DefaultOptions())

	_, ok, err := e.RenderPublishedByKey(context.Background(), "classroom.page", nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)

	// Token lookups degrade per token: popups fall back to the default dialog.
	out, err := e.RenderDefault(context.Background(), defaults.KeyClassroomPage, nil)
	require.NoError(t, err)
	assert.Contains(t, out, `id="popup-contacts"`)
}

// --------------------------------------------------------------------------
// Token resolution
// --------------------------------------------------------------------------

func TestPopupOverrideRendersExactly(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "popup.contacts", markup("<p>Call us</p>"), true)
	publish(t, s, "screen.host", markup("[[popup:contacts]]"), true)

	out, ok := render(t, e, "screen.host", nil)
	require.True(t, ok)
	assert.Equal(t, "<p>Call us</p>", out)
}

func TestUnknownPopupRendersFallback(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "screen.host", markup("<main>[[popup:unknown-key]]</main>"), true)

	out, ok := render(t, e, "screen.host", nil)
	require.True(t, ok)
	assert.Contains(t, out, `<h2 id="popup-unknown-key-title">Popup</h2>`)
	assert.Contains(t, out, "<p>Add your content here.</p>")
}

func TestPopupFallsBackWhenNotEligible(t *testing.T) {
	e, s, defs := newTestEngine(t, DefaultOptions())
	publish(t, s, "popup.food", markup("<p>Pizza</p>"), false)
	draft(t, s, "popup.links", markup("<p>draft only</p>"))
	publish(t, s, "screen.host", markup("[[popup:food]][[ POPUP : popup.links ]]"), true)

	out, ok := render(t, e, "screen.host", nil)
	require.True(t, ok)
	assert.NotContains(t, out, "Pizza")
	assert.NotContains(t, out, "draft only")
	assert.Contains(t, out, `id="popup-food"`)
	assert.Contains(t, out, `id="popup-links"`)
	assert.NotEmpty(t, defs.PopupMarkup("popup.links"))
}

func TestSectionDefaultsToEmpty(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "hero", markup("<h1>Hero</h1>"), false)
	publish(t, s, "screen.host", markup("<main>[[section:missing]][[Section: hero ]]</main>"), true)

	out, ok := render(t, e, "screen.host", nil)
	require.True(t, ok)
	assert.Equal(t, "<main></main>", out)
}

func TestSectionBundlesNestedParts(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "banner", parts.Parts{Markup: "<div>[[section:inner]]</div>", Style: ".b{}", Script: "b()"}, true)
	publish(t, s, "inner", markup("<span>in</span>"), true)
	publish(t, s, "screen.host", markup("<main>[[section:banner]]</main>"), true)

	out, ok := render(t, e, "screen.host", nil)
	require.True(t, ok)
	assert.Equal(t, "<main><style>.b{}</style><div><span>in</span></div><script>b()</script></main>", out)
}

func TestUnsafeSectionIsDropped(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "bad", markup(`{{template "x" .}}`), true)
	publish(t, s, "screen.host", markup("<main>[[section:bad]]</main>"), true)

	out, ok := render(t, e, "screen.host", nil)
	require.True(t, ok)
	assert.Equal(t, "<main></main>", out)
}

func TestMalformedSectionIsDropped(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "banner", markup("<p>{{if .user}}hello</p>"), true)
	publish(t, s, "screen.home", markup("<h1>Home</h1>[[section:banner]]"), true)

	out, ok, err := e.RenderPublishedByKey(context.Background(), "screen.home", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "<h1>Home</h1>", out)
}

func TestMalformedNestedSectionOnlyDropsItself(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "outer", markup("<div>[[section:inner]]</div>"), true)
	publish(t, s, "inner", markup("{{range .items}}"), true)
	publish(t, s, "screen.host", markup("[[section:outer]]"), true)

	out, ok := render(t, e, "screen.host", nil)
	require.True(t, ok)
	assert.Equal(t, "<div></div>", out)
}

func TestMalformedPopupFallsBackInDefaultPage(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "popup.contacts", markup("<p>{{if .user}}hello</p>"), true)

	out, err := e.RenderDefault(context.Background(), defaults.KeyClassroomPage, Data{
		"classroom": map[string]any{"name": "3B"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, `id="popup-contacts"`)
	assert.NotContains(t, out, "hello")
}

func TestCheckSyntax(t *testing.T) {
	assert.NoError(t, CheckSyntax("<p>{{if .user}}hi{{end}}</p>"))
	assert.NoError(t, CheckSyntax("@php $n = 1; @endphp<p>{{$n}}</p>[[section:x]]"))
	assert.ErrorIs(t, CheckSyntax("<p>{{if .user}}hello</p>"), ErrTemplateSyntax)
	assert.ErrorIs(t, CheckSyntax("{{end}}"), ErrTemplateSyntax)
}

func TestLegacyInlineBlocksAreSplit(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "screen.legacy", markup("<script>go()</script><p>x</p><style>p{}</style>"), true)

	out, ok := render(t, e, "screen.legacy", nil)
	require.True(t, ok)
	assert.Equal(t, "<style>p{}</style><p>x</p><script>go()</script>", out)
}

func TestDepthLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxIncludeDepth = 2
	e, s, _ := newTestEngine(t, opts)

	publish(t, s, "l1", markup("<i>1</i>[[section:l2]]"), true)
	publish(t, s, "l2", markup("<i>2</i>[[section:l3]]"), true)
	publish(t, s, "l3", markup("<i>3</i>"), true)
	publish(t, s, "screen.host", markup("<b>0</b>[[section:l1]]"), true)

	out, ok := render(t, e, "screen.host", nil)
	require.True(t, ok)
	assert.Equal(t, "<b>0</b><i>1</i><i>2</i>", out)

	opts.MaxIncludeDepth = 0
	e.SetOptions(opts)
	out, _ = render(t, e, "screen.host", nil)
	assert.Equal(t, "<b>0</b>", out)
}

// --------------------------------------------------------------------------
// Binding
// --------------------------------------------------------------------------

func TestDataAllowList(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "screen.data", markup(`<p>{{with .classroom}}{{.name}}{{end}}|{{.secret}}|{{.locale}}</p>`), true)

	out, ok := render(t, e, "screen.data", Data{
		"classroom": map[string]any{"name": "3B <A>"},
		"locale":    "ro",
		"secret":    "token",
	})
	require.True(t, ok)
	assert.Equal(t, "<p>3B &lt;A&gt;||ro</p>", out)
}

func TestLimitedCodeAssignments(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "screen.vars", markup(`@php $title = 'Hello'; $n = 3; @endphp<h1>{{$title}} {{$n}}</h1>`), true)

	out, ok := render(t, e, "screen.vars", nil)
	require.True(t, ok)
	assert.Equal(t, "<h1>Hello 3</h1>", out)
}

func TestTranslateExpr(t *testing.T) {
	tests := map[string]string{
		`'it\'s'`:         `"it's"`,
		`"double"`:        `"double"`,
		`.classroom.name`: `.classroom.name`,
		`42`:              `42`,
		`NULL`:            `""`,
	}
	for in, want := range tests {
		assert.Equal(t, want, translateExpr(in), in)
	}
}

func TestPrimaryScreenGetsDayTabs(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, PrimaryKey, parts.Parts{Markup: "<header>H</header><main>M</main>", Style: "main{}"}, true)

	out, ok := render(t, e, PrimaryKey, nil)
	require.True(t, ok)
	assert.Contains(t, out, `<header>H</header>`+"\n"+`<nav class="day-tabs"`)
	assert.True(t, strings.HasPrefix(out, "<style>.day-tabs"))
	assert.Contains(t, out, "main{}")
}

func TestPrimaryScreenDayTabsFromSection(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "tabs", markup(`<nav class="day-tabs">custom</nav>`), true)
	tmpl := publish(t, s, PrimaryKey, markup("<header>h</header>[[section:tabs]]<main></main>"), true)

	out, ok := render(t, e, PrimaryKey, nil)
	require.True(t, ok)
	assert.Equal(t, 1, strings.Count(out, `class="day-tabs`))
	assert.Equal(t, `<header>h</header><nav class="day-tabs">custom</nav><main></main>`, out)

	preview, err := e.RenderPreview(context.Background(), tmpl, models.VersionPublished, Data{})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(preview, `class="day-tabs`))
}

func TestPrimaryScreenKeepsCustomDayTabs(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, PrimaryKey, markup(`<ul class="day-tabs"><li>Mon</li></ul>`), true)

	out, ok := render(t, e, PrimaryKey, nil)
	require.True(t, ok)
	assert.Equal(t, `<ul class="day-tabs"><li>Mon</li></ul>`, out)
}

// --------------------------------------------------------------------------
// Preview and defaults
// --------------------------------------------------------------------------

func TestRenderPreview(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	tmpl := publish(t, s, "screen.preview", markup("<p>live</p>"), false)
	tmpl, err := s.UpdateDraft(ctx, tmpl.ID, markup("<p>{{.page.title}}</p>"),
		json.RawMessage(`{"page":{"title":"Mock"}}`), nil)
	require.NoError(t, err)

	out, err := e.RenderPreview(ctx, tmpl, models.VersionDraft, nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>Mock</p>", out, "mock data used when data is nil")

	out, err = e.RenderPreview(ctx, tmpl, models.VersionDraft, Data{"page": map[string]any{"title": "Given"}})
	require.NoError(t, err)
	assert.Equal(t, "<p>Given</p>", out)

	out, err = e.RenderPreview(ctx, tmpl, models.VersionPublished, nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>live</p>", out, "no eligibility gate")

	tmpl.DraftMarkup = "<?= $x ?>"
	out, err = e.RenderPreview(ctx, tmpl, models.VersionDraft, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRenderPreviewBadTemplate(t *testing.T) {
	e, _, _ := newTestEngine(t, DefaultOptions())
	_, err := e.RenderPreview(context.Background(), &models.Template{
		Key: "screen.broken", DraftMarkup: "<p>{{if .x}}</p>",
	}, models.VersionDraft, Data{})
	assert.Error(t, err)
}

func TestRenderDefault(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "popup.contacts", markup("<p>Call us</p>"), true)

	out, err := e.RenderDefault(context.Background(), defaults.KeyClassroomPage, Data{
		"classroom": map[string]any{"name": "3B"},
		"locale":    "en",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>3B</h1>")
	assert.Contains(t, out, "<p>Call us</p>", "overridden popups apply inside default pages")
	assert.Contains(t, out, `id="popup-food"`)
	assert.NotContains(t, out, "[[popup:")

	for _, key := range []string{defaults.KeyAuthLogin, defaults.KeyAuthTokenLogin} {
		out, err := e.RenderDefault(context.Background(), key, Data{"page": map[string]any{"token": "abc"}})
		require.NoError(t, err, key)
		assert.Contains(t, out, `class="auth"`)
	}

	_, err = e.RenderDefault(context.Background(), "unknown.screen", nil)
	assert.ErrorIs(t, err, ErrNoDefault)
}

// --------------------------------------------------------------------------
// Caching and memoization
// --------------------------------------------------------------------------

func TestRenderCacheReusesResolvedMarkup(t *testing.T) {
	e, s, _ := newTestEngine(t, DefaultOptions())
	publish(t, s, "part", markup("<i>part</i>"), true)
	publish(t, s, "screen.cached", markup("<p>[[section:part]]</p>"), true)

	first, _ := render(t, e, "screen.cached", nil)
	afterFirst := s.Lookups()
	assert.Equal(t, 2, afterFirst)

	second, _ := render(t, e, "screen.cached", nil)
	assert.Equal(t, first, second)
	assert.Equal(t, afterFirst+1, s.Lookups(), "only the top-level lookup on a cache hit")

	// Any change to the top-level parts produces a new fingerprint.
	publish(t, s, "screen.cached", markup("<div>[[section:part]]</div>"), true)
	third, _ := render(t, e, "screen.cached", nil)
	assert.Equal(t, "<div><i>part</i></div>", third)

	publish(t, s, "screen.cached", parts.Parts{Markup: "<div>[[section:part]]</div>", Style: "div{}"}, true)
	fourth, _ := render(t, e, "screen.cached", nil)
	assert.Equal(t, "<style>div{}</style><div><i>part</i></div>", fourth, "style-only change")

	publish(t, s, "screen.cached", parts.Parts{Markup: "<div>[[section:part]]</div>", Style: "div{}", Script: "go()"}, true)
	fifth, _ := render(t, e, "screen.cached", nil)
	assert.Equal(t, "<style>div{}</style><div><i>part</i></div><script>go()</script>", fifth, "script-only change")
}

func TestRenderCacheStaysBounded(t *testing.T) {
	c := newRenderCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < maxCacheEntries+10; i++ {
		c.put(fmt.Sprintf("screen.%d", i), "fp", "<p></p>", time.Hour)
		require.LessOrEqual(t, len(c.entries), maxCacheEntries)
	}
	_, ok := c.get(fmt.Sprintf("screen.%d", maxCacheEntries+9), "fp")
	assert.True(t, ok, "latest entry survives the reset")
}

func TestRenderCacheDropsExpiredFirst(t *testing.T) {
	c := newRenderCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.put("screen.keep", "fp", "<p>keep</p>", time.Hour)
	for i := 1; i < maxCacheEntries; i++ {
		c.put(fmt.Sprintf("screen.%d", i), "fp", "<p></p>", time.Minute)
	}
	now = now.Add(2 * time.Minute)
	c.put("screen.new", "fp", "<p>new</p>", time.Hour)

	assert.Len(t, c.entries, 2)
	got, ok := c.get("screen.keep", "fp")
	require.True(t, ok)
	assert.Equal(t, "<p>keep</p>", got)
}

func TestRenderCacheDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.CacheTTL = 0
	e, s, _ := newTestEngine(t, opts)
	publish(t, s, "part", markup("<i>old</i>"), true)
	publish(t, s, "screen.nocache", markup("[[section:part]]"), true)

	render(t, e, "screen.nocache", nil)
	publish(t, s, "part", markup("<i>new</i>"), true)
	out, _ := render(t, e, "screen.nocache", nil)
	assert.Equal(t, "<i>new</i>", out)
}

type memShared struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func (m *memShared) Get(_ context.Context, key, fp string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key+"|"+fp]
	return v, ok
}

func (m *memShared) Set(_ context.Context, key, fp, markup string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key+"|"+fp] = markup
	m.sets++
}

func TestSharedRenderCache(t *testing.T) {
	shared := &memShared{data: map[string]string{}}
	e1, s, defs := newTestEngine(t, DefaultOptions())
	e1.SetRenderCache(shared)
	publish(t, s, "part", markup("<i>part</i>"), true)
	publish(t, s, "screen.shared", markup("[[section:part]]"), true)

	out1, _ := render(t, e1, "screen.shared", nil)
	assert.Equal(t, 1, shared.sets)

	// A second instance with a cold L1 reads the resolved markup from L2.
	e2 := New(s, defs, DefaultOptions())
	e2.SetRenderCache(shared)
	before := s.Lookups()
	out2, _ := render(t, e2, "screen.shared", nil)
	assert.Equal(t, out1, out2)
	assert.Equal(t, before+1, s.Lookups())
}

func TestLookupScopeSharesMemo(t *testing.T) {
	opts := DefaultOptions()
	opts.CacheTTL = 0
	e, s, _ := newTestEngine(t, opts)
	publish(t, s, "screen.memo", markup("[[section:x]][[section:x]][[section:x]]"), true)

	ctx := WithLookupScope(context.Background())
	_, _, err := e.RenderPublishedByKey(ctx, "screen.memo", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Lookups(), "repeated tokens hit the memo")

	_, _, err = e.RenderPublishedByKey(ctx, "screen.memo", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Lookups(), "same request scope reuses every lookup")

	_, _, err = e.RenderPublishedByKey(context.Background(), "screen.memo", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Lookups(), "without a scope each render starts fresh")

	assert.Equal(t, ctx, WithLookupScope(ctx), "scope is attached once")
}

func TestSetOptions(t *testing.T) {
	e, _, _ := newTestEngine(t, DefaultOptions())
	opts := DefaultOptions()
	opts.MaxIncludeDepth = 1
	opts.AllowedVariables = []string{"page"}
	e.SetOptions(opts)

	opts.AllowedVariables[0] = "mutated"
	got := e.Options()
	assert.Equal(t, 1, got.MaxIncludeDepth)
	assert.Equal(t, []string{"page"}, got.AllowedVariables)
}
