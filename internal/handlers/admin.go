// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"classportal/internal/defaults"
	"classportal/internal/engine"
	"classportal/internal/middleware"
	"classportal/internal/models"
	"classportal/internal/publish"
	"classportal/internal/safety"
	"classportal/internal/store"
	"classportal/internal/stylesheet"
)

// Admin groups the JSON handlers of the authoring API. Authentication is
// done upstream; the editor's identity arrives through the actor
// middleware.
type Admin struct {
	svc    *publish.Service
	engine *engine.Engine
	css    *stylesheet.Publisher

	known          []string
	originPatterns []string
}

// NewAdmin creates the admin handler group. knownKeys are listed even
// before a template row exists for them. originPatterns are the extra
// host patterns the live preview websocket accepts.
func NewAdmin(svc *publish.Service, eng *engine.Engine, css *stylesheet.Publisher, knownKeys, originPatterns []string) *Admin {
	return &Admin{
		svc:            svc,
		engine:         eng,
		css:            css,
		known:          knownKeys,
		originPatterns: originPatterns,
	}
}

// --- Templates ---

// templateSummary is one row of the template listing.
type templateSummary struct {
	Key          string              `json:"key"`
	Name         string              `json:"name"`
	Type         models.TemplateType `json:"type,omitempty"`
	Exists       bool                `json:"exists"`
	HasDraft     bool                `json:"has_draft"`
	HasPublished bool                `json:"has_published"`
	Enabled      bool                `json:"is_override_enabled"`
	UpdatedAt    *time.Time          `json:"updated_at,omitempty"`
}

// TemplatesList lists stored templates followed by the known keys that
// have not been edited yet.
func (a *Admin) TemplatesList(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]templateSummary, 0, len(list)+len(a.known))
	seen := make(map[string]bool, len(list))
	for _, t := range list {
		seen[t.Key] = true
		updated := t.UpdatedAt
		out = append(out, templateSummary{
			Key:          t.Key,
			Name:         t.Name,
			Type:         t.Type,
			Exists:       true,
			HasDraft:     t.HasDraft(),
			HasPublished: store.HasPublishedContent(t),
			Enabled:      t.IsOverrideEnabled,
			UpdatedAt:    &updated,
		})
	}

	missing := make([]string, 0, len(a.known))
	for _, k := range a.known {
		if !seen[k] {
			seen[k] = true
			missing = append(missing, k)
		}
	}
	slices.Sort(missing)
	for _, k := range missing {
		out = append(out, templateSummary{Key: k, Name: defaults.Label(k)})
	}

	writeJSON(w, http.StatusOK, out)
}

// TemplateGet returns one template with its draft and published parts.
func (a *Admin) TemplateGet(w http.ResponseWriter, r *http.Request) {
	t, err := a.svc.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// TemplateSaveDraft stores the draft parts and mock data of a template,
// creating the template on first save.
func (a *Admin) TemplateSaveDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	d := publish.Draft{Markup: req.Markup, Style: req.Style, Script: req.Script}
	if req.MockData != "" {
		d.MockData = json.RawMessage(req.MockData)
	}

	t, err := a.svc.SaveDraft(r.Context(), chi.URLParam(r, "key"), d, middleware.ActorFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// TemplatePublish publishes the current draft.
func (a *Admin) TemplatePublish(w http.ResponseWriter, r *http.Request) {
	v, err := a.svc.Publish(r.Context(), chi.URLParam(r, "key"), middleware.ActorFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// TemplateRevert loads a previous version into the draft.
func (a *Admin) TemplateRevert(w http.ResponseWriter, r *http.Request) {
	var req revertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	versionID, err := uuid.Parse(req.VersionID)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	t, snapshot, err := a.svc.Revert(r.Context(), chi.URLParam(r, "key"), versionID, middleware.ActorFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"template": t, "snapshot": snapshot})
}

// TemplateSetOverride turns serving of the published override on or off.
func (a *Admin) TemplateSetOverride(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := a.svc.SetOverrideEnabled(r.Context(), chi.URLParam(r, "key"), *req.Enabled, middleware.ActorFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// TemplateVersions lists the version log, newest first.
func (a *Admin) TemplateVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := a.svc.Versions(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if versions == nil {
		versions = []*models.TemplateVersion{}
	}
	writeJSON(w, http.StatusOK, versions)
}

// previewResponse is returned by the preview endpoint and the live
// preview socket.
type previewResponse struct {
	Key     string `json:"key"`
	Version string `json:"version"`
	HTML    string `json:"html"`
	Safe    bool   `json:"safe"`
}

// TemplatePreview renders a template without the eligibility gate. The
// body may carry unsaved parts and data; an empty body previews the stored
// draft with its mock data.
func (a *Admin) TemplatePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := a.preview(r.Context(), chi.URLParam(r, "key"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// preview renders req against the stored template of key. A key without a
// stored template previews an empty template, so new keys can be authored
// before the first save.
func (a *Admin) preview(ctx context.Context, key string, req previewRequest) (*previewResponse, error) {
	stored, err := a.svc.Get(ctx, key)
	switch {
	case errors.Is(err, publish.ErrNotFound):
		stored = &models.Template{Key: key}
	case err != nil:
		return nil, err
	}
	t := *stored

	version := req.Version
	if version == "" {
		version = models.VersionDraft
	}
	if req.Markup != nil || req.Style != nil || req.Script != nil {
		version = models.VersionDraft
		t.DraftMarkup, t.DraftStyle, t.DraftScript = deref(req.Markup), deref(req.Style), deref(req.Script)
	}

	var data engine.Data
	switch {
	case req.Data != nil:
		data = engine.Data(req.Data)
	case req.MockData != "":
		if err := json.Unmarshal([]byte(req.MockData), &data); err != nil {
			return nil, publish.ErrInvalidMockData
		}
	default:
		data, err = engine.MockData(&t)
		if err != nil {
			return nil, err
		}
	}
	if data == nil {
		data = engine.Data{}
	}
	if _, ok := data["locale"]; !ok {
		data["locale"] = middleware.LocaleFromCtx(ctx)
	}

	p := store.PartsByVersion(&t, version)
	out, err := a.engine.RenderPreview(ctx, &t, version, data)
	if err != nil {
		return nil, err
	}
	return &previewResponse{
		Key:     key,
		Version: version,
		HTML:    out,
		Safe:    safety.IsSafe(p.Markup, p.Style, p.Script),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// --- Global stylesheet ---

// CSSGet returns the stylesheet row.
func (a *Admin) CSSGet(w http.ResponseWriter, r *http.Request) {
	g, err := a.css.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// CSSSaveDraft overwrites the draft stylesheet.
func (a *Admin) CSSSaveDraft(w http.ResponseWriter, r *http.Request) {
	var req cssDraftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := a.css.SaveDraft(r.Context(), req.CSS, middleware.ActorFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// CSSPublish publishes the draft stylesheet and writes the asset.
func (a *Admin) CSSPublish(w http.ResponseWriter, r *http.Request) {
	g, v, err := a.css.Publish(r.Context(), middleware.ActorFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"stylesheet": g, "version": v})
}

// CSSReset clears the draft stylesheet.
func (a *Admin) CSSReset(w http.ResponseWriter, r *http.Request) {
	g, err := a.css.ResetDraft(r.Context(), middleware.ActorFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// CSSSetEnabled toggles whether the published stylesheet is linked.
func (a *Admin) CSSSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := a.css.SetEnabled(r.Context(), *req.Enabled, middleware.ActorFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// CSSURL reports the URL pages currently link, if any.
func (a *Admin) CSSURL(w http.ResponseWriter, r *http.Request) {
	href, ok, err := a.css.PublishedURL(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": href, "active": ok})
}

// CSSVersions lists published stylesheets, newest first. The optional
// limit query parameter defaults to 50.
func (a *Admin) CSSVersions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	vs, err := a.css.Versions(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if vs == nil {
		vs = []*models.GlobalCSSVersion{}
	}
	writeJSON(w, http.StatusOK, vs)
}
