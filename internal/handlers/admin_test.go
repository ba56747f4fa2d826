// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"classportal/internal/middleware"
	"classportal/internal/models"
)

func TestTemplateSaveDraftAndGet(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := call(t, env.Admin.TemplateSaveDraft, http.MethodPut, "popup.contacts",
		`{"markup":"<p>Call us</p>","style":"p{color:red}","mock_data":"{\"classroom\":{\"name\":\"3B\"}}"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: status %d, body %s", rec.Code, rec.Body.String())
	}
	var saved models.Template
	decode(t, rec, &saved)
	if saved.DraftMarkup != "<p>Call us</p>" || saved.DraftStyle != "p{color:red}" {
		t.Errorf("draft parts: %+v", saved)
	}
	if saved.Type != models.TemplateTypeSection {
		t.Errorf("popup type: got %q, want section", saved.Type)
	}
	if saved.Name != "Popup Contacts" {
		t.Errorf("name: got %q", saved.Name)
	}

	rec = call(t, env.Admin.TemplateGet, http.MethodGet, "popup.contacts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	var got models.Template
	decode(t, rec, &got)
	if got.ID != saved.ID {
		t.Errorf("get id: got %s, want %s", got.ID, saved.ID)
	}
	if !strings.Contains(string(got.MockDataJSON), `"3B"`) {
		t.Errorf("mock data not stored: %s", got.MockDataJSON)
	}

	rec = call(t, env.Admin.TemplateGet, http.MethodGet, "popup.missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing: status %d, want 404", rec.Code)
	}
}

func TestTemplateSaveDraftScreenType(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := call(t, env.Admin.TemplateSaveDraft, http.MethodPut, "auth.login", `{"markup":"<main>hi</main>"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var saved models.Template
	decode(t, rec, &saved)
	if saved.Type != models.TemplateTypeScreen {
		t.Errorf("type: got %q, want screen", saved.Type)
	}
}

func TestTemplateSaveDraftRejections(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name      string
		key       string
		body      string
		wantCode  int
		wantField string
	}{
		{"unsafe markup", "popup.x", `{"markup":"<?php echo 1; ?>"}`, http.StatusUnprocessableEntity, ""},
		{"unsafe limited code", "popup.x", `{"markup":"@php system('ls'); @endphp"}`, http.StatusUnprocessableEntity, ""},
		{"malformed template", "popup.x", `{"markup":"<p>{{if .user}}hello</p>"}`, http.StatusUnprocessableEntity, ""},
		{"malformed mock data", "popup.x", `{"markup":"<p>x</p>","mock_data":"{nope"}`, http.StatusUnprocessableEntity, "mock_data"},
		{"mock data not an object", "popup.x", `{"markup":"<p>x</p>","mock_data":"[1,2]"}`, http.StatusUnprocessableEntity, "mock_data"},
		{"invalid key", "Bad Key", `{"markup":"<p>x</p>"}`, http.StatusBadRequest, ""},
		{"malformed body", "popup.x", `{"markup":`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, env.Admin.TemplateSaveDraft, http.MethodPut, tt.key, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			var body errorBody
			decode(t, rec, &body)
			if body.Error == "" {
				t.Error("expected an error message")
			}
			if tt.wantField != "" {
				if _, ok := body.Fields[tt.wantField]; !ok {
					t.Errorf("expected field error for %s, got %v", tt.wantField, body.Fields)
				}
			}
		})
	}

	if _, err := env.Service.Get(context.Background(), "popup.x"); err == nil {
		t.Error("rejected drafts must not create the template")
	}
}

func TestTemplateUnsafeErrorHidesRule(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := call(t, env.Admin.TemplateSaveDraft, http.MethodPut, "popup.x", `{"markup":"<?= $secret ?>"}`)
	var body errorBody
	decode(t, rec, &body)
	if body.Error != "unsafe construct not allowed" {
		t.Errorf("error: got %q", body.Error)
	}
}

func TestTemplatePublishFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := call(t, env.Admin.TemplatePublish, http.MethodPost, "popup.contacts", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("publish missing: status %d, want 404", rec.Code)
	}

	call(t, env.Admin.TemplateSaveDraft, http.MethodPut, "popup.contacts", `{"markup":"<p>Call us</p>"}`)

	rec = call(t, env.Admin.TemplatePublish, http.MethodPost, "popup.contacts", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("publish: status %d, body %s", rec.Code, rec.Body.String())
	}
	var v models.TemplateVersion
	decode(t, rec, &v)
	if v.VersionType != models.VersionTypePublished || v.Markup != "<p>Call us</p>" {
		t.Errorf("version: %+v", v)
	}

	rec = call(t, env.Admin.TemplateSetOverride, http.MethodPut, "popup.contacts", `{"enabled":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("override: status %d", rec.Code)
	}
	var tmpl models.Template
	decode(t, rec, &tmpl)
	if !tmpl.IsOverrideEnabled {
		t.Error("override should be enabled")
	}

	out, ok, err := env.Engine.RenderPublishedByKey(context.Background(), "popup.contacts", nil)
	if err != nil || !ok || out != "<p>Call us</p>" {
		t.Errorf("render after publish: %q, %v, %v", out, ok, err)
	}

	rec = call(t, env.Admin.TemplateVersions, http.MethodGet, "popup.contacts", "")
	var versions []models.TemplateVersion
	decode(t, rec, &versions)
	if len(versions) != 1 {
		t.Errorf("versions: got %d, want 1", len(versions))
	}
}

func TestTemplatePublishEmptyDraftConflicts(t *testing.T) {
	env := newTestEnv(t, nil)

	call(t, env.Admin.TemplateSaveDraft, http.MethodPut, "popup.empty", `{}`)
	rec := call(t, env.Admin.TemplatePublish, http.MethodPost, "popup.empty", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rec.Code)
	}
}

func TestTemplateSetOverrideRequiresEnabled(t *testing.T) {
	env := newTestEnv(t, nil)
	call(t, env.Admin.TemplateSaveDraft, http.MethodPut, "popup.contacts", `{"markup":"<p>x</p>"}`)

	rec := call(t, env.Admin.TemplateSetOverride, http.MethodPut, "popup.contacts", `{}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if _, ok := body.Fields["enabled"]; !ok {
		t.Errorf("expected enabled field error, got %v", body.Fields)
	}
}

func TestTemplateRevert(t *testing.T) {
	env := newTestEnv(t, nil)

	call(t, env.Admin.TemplateSaveDraft, http.MethodPut, "popup.contacts", `{"markup":"<p>first</p>"}`)
	rec := call(t, env.Admin.TemplatePublish, http.MethodPost, "popup.contacts", "")
	var first models.TemplateVersion
	decode(t, rec, &first)

	call(t, env.Admin.TemplateSaveDraft, http.MethodPut, "popup.contacts", `{"markup":"<p>second</p>"}`)

	rec = call(t, env.Admin.TemplateRevert, http.MethodPost, "popup.contacts", `{"version_id":"`+first.ID.String()+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("revert: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Template models.Template        `json:"template"`
		Snapshot models.TemplateVersion `json:"snapshot"`
	}
	decode(t, rec, &resp)
	if resp.Template.DraftMarkup != "<p>first</p>" {
		t.Errorf("draft after revert: %q", resp.Template.DraftMarkup)
	}
	if resp.Snapshot.Markup != "<p>second</p>" || resp.Snapshot.VersionType != models.VersionTypeDraftSnapshot {
		t.Errorf("snapshot: %+v", resp.Snapshot)
	}

	rec = call(t, env.Admin.TemplateRevert, http.MethodPost, "popup.contacts", `{"version_id":"nope"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad uuid: status %d, want 422", rec.Code)
	}

	call(t, env.Admin.TemplateSaveDraft, http.MethodPut, "popup.other", `{"markup":"<p>o</p>"}`)
	rec = call(t, env.Admin.TemplateRevert, http.MethodPost, "popup.other", `{"version_id":"`+first.ID.String()+`"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("foreign version: status %d, want 409", rec.Code)
	}

	rec = call(t, env.Admin.TemplateRevert, http.MethodPost, "popup.contacts", `{"version_id":"`+uuid.NewString()+`"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown version: status %d, want 404", rec.Code)
	}
}

func TestTemplatesListIncludesKnownKeys(t *testing.T) {
	env := newTestEnv(t, nil)
	call(t, env.Admin.TemplateSaveDraft, http.MethodPut, "popup.contacts", `{"markup":"<p>x</p>"}`)

	rec := call(t, env.Admin.TemplatesList, http.MethodGet, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var list []templateSummary
	decode(t, rec, &list)

	byKey := map[string]templateSummary{}
	for _, s := range list {
		if _, dup := byKey[s.Key]; dup {
			t.Errorf("duplicate key %s", s.Key)
		}
		byKey[s.Key] = s
	}

	contacts, ok := byKey["popup.contacts"]
	if !ok || !contacts.Exists || !contacts.HasDraft {
		t.Errorf("stored template: %+v", contacts)
	}
	login, ok := byKey["auth.login"]
	if !ok || login.Exists {
		t.Errorf("known key: %+v", login)
	}
	if login.Name != "Auth Login" {
		t.Errorf("label: got %q", login.Name)
	}
	if list[0].Key != "popup.contacts" {
		t.Errorf("stored templates come first, got %s", list[0].Key)
	}
}

func TestTemplatePreview(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		body     string
		wantHTML string
		wantSafe bool
	}{
		{
			"unsaved parts with data",
			`{"markup":"<p>{{.classroom.name}}</p>","data":{"classroom":{"name":"3B"}}}`,
			"<p>3B</p>", true,
		},
		{
			"unsaved parts with mock data",
			`{"markup":"<p>{{.classroom.name}}</p>","mock_data":"{\"classroom\":{\"name\":\"4A\"}}"}`,
			"<p>4A</p>", true,
		},
		{
			"unsafe parts render empty",
			`{"markup":"<?php echo 1; ?>"}`,
			"", false,
		},
		{
			"popup token resolves to default",
			`{"markup":"[[popup:nowhere]]"}`,
			`<h2 id="popup-nowhere-title">Popup</h2>`, true,
		},
		{
			"empty body on a new key",
			``,
			"", true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, env.Admin.TemplatePreview, http.MethodPost, "popup.preview", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
			}
			var resp previewResponse
			decode(t, rec, &resp)
			if !strings.Contains(resp.HTML, tt.wantHTML) || (tt.wantHTML == "" && resp.HTML != "") {
				t.Errorf("html: got %q, want %q", resp.HTML, tt.wantHTML)
			}
			if resp.Safe != tt.wantSafe {
				t.Errorf("safe: got %v, want %v", resp.Safe, tt.wantSafe)
			}
		})
	}
}

func TestTemplatePreviewStoredDraftUsesMockData(t *testing.T) {
	env := newTestEnv(t, nil)
	call(t, env.Admin.TemplateSaveDraft, http.MethodPut, "popup.contacts",
		`{"markup":"<p>{{.user.name}}</p>","mock_data":"{\"user\":{\"name\":\"Ana\"}}"}`)

	rec := call(t, env.Admin.TemplatePreview, http.MethodPost, "popup.contacts", "")
	var resp previewResponse
	decode(t, rec, &resp)
	if resp.HTML != "<p>Ana</p>" || resp.Version != models.VersionDraft {
		t.Errorf("preview: %+v", resp)
	}

	rec = call(t, env.Admin.TemplatePreview, http.MethodPost, "popup.contacts", `{"version":"published"}`)
	decode(t, rec, &resp)
	if resp.HTML != "" {
		t.Errorf("unpublished template previews empty, got %q", resp.HTML)
	}

	rec = call(t, env.Admin.TemplatePreview, http.MethodPost, "popup.contacts", `{"version":"live"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad version: status %d, want 422", rec.Code)
	}
}

func TestTemplateSaveDraftRecordsActor(t *testing.T) {
	env := newTestEnv(t, nil)
	actor := uuid.New()

	h := middleware.Actor("X-Actor-ID")(http.HandlerFunc(env.Admin.TemplateSaveDraft))
	req := httptest.NewRequest(http.MethodPut, "/admin/api/templates/popup.contacts", strings.NewReader(`{"markup":"<p>x</p>"}`))
	req.Header.Set("X-Actor-ID", actor.String())
	req = withChiURLParam(req, "key", "popup.contacts")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var saved models.Template
	decode(t, rec, &saved)
	if saved.UpdatedBy == nil || *saved.UpdatedBy != actor {
		t.Errorf("updated_by: got %v, want %s", saved.UpdatedBy, actor)
	}
}

// --- Global stylesheet ---

func TestCSSFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := call(t, env.Admin.CSSSaveDraft, http.MethodPut, "", `{"css":"body{color:red}"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: status %d", rec.Code)
	}
	var g models.GlobalCSS
	decode(t, rec, &g)
	if g.DraftCSS != "body{color:red}" || g.ID != models.GlobalCSSID {
		t.Errorf("draft: %+v", g)
	}

	rec = call(t, env.Admin.CSSURL, http.MethodGet, "", "")
	var url struct {
		URL    string `json:"url"`
		Active bool   `json:"active"`
	}
	decode(t, rec, &url)
	if url.Active {
		t.Error("unpublished stylesheet must not be active")
	}

	rec = call(t, env.Admin.CSSPublish, http.MethodPost, "", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("publish: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = call(t, env.Admin.CSSSetEnabled, http.MethodPut, "", `{"enabled":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("enable: status %d", rec.Code)
	}

	rec = call(t, env.Admin.CSSURL, http.MethodGet, "", "")
	decode(t, rec, &url)
	if !url.Active || !strings.HasPrefix(url.URL, "/static/global.css?v=") {
		t.Errorf("url: %+v", url)
	}

	rec = call(t, env.Admin.CSSVersions, http.MethodGet, "", "")
	var versions []models.GlobalCSSVersion
	decode(t, rec, &versions)
	if len(versions) != 1 || versions[0].CSS != "body{color:red}" {
		t.Errorf("versions: %+v", versions)
	}

	rec = call(t, env.Admin.CSSReset, http.MethodPost, "", "")
	decode(t, rec, &g)
	if g.DraftCSS != "" || g.PublishedCSS != "body{color:red}" {
		t.Errorf("reset: %+v", g)
	}

	rec = call(t, env.Admin.CSSGet, http.MethodGet, "", "")
	decode(t, rec, &g)
	if !g.IsEnabled {
		t.Error("stylesheet should stay enabled after reset")
	}
}

func TestCSSSaveDraftRejectsUnsafe(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := call(t, env.Admin.CSSSaveDraft, http.MethodPut, "", `{"css":"<?php echo 1; ?>"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", rec.Code)
	}
}
