// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Most tests run on the in-memory stores; integration tests are skipped
// when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"classportal/internal/database"
	"classportal/internal/defaults"
	"classportal/internal/engine"
	"classportal/internal/models"
	"classportal/internal/publish"
	"classportal/internal/storage"
	"classportal/internal/store/memstore"
	"classportal/internal/stylesheet"
)

var screenKeys = []string{defaults.KeyClassroomPage, defaults.KeyAuthLogin, defaults.KeyAuthTokenLogin}

// testEnv holds the dependencies of the handler groups under test.
type testEnv struct {
	Templates  *memstore.Store
	CSS        *memstore.GlobalCSSStore
	Assets     *storage.LocalDir
	Defaults   *defaults.Provider
	Engine     *engine.Engine
	Service    *publish.Service
	Stylesheet *stylesheet.Publisher
	Admin      *Admin
	Public     *Public
}

// newTestEnv wires the handlers on in-memory stores and a temporary
// asset directory served under /static.
func newTestEnv(t *testing.T, data PageDataSource) *testEnv {
	t.Helper()

	templates := memstore.New()
	css := memstore.NewGlobalCSS()
	assets, err := storage.NewLocalDir(t.TempDir(), "/static")
	if err != nil {
		t.Fatalf("NewLocalDir: %v", err)
	}
	defs, err := defaults.New("popup.", nil)
	if err != nil {
		t.Fatalf("defaults.New: %v", err)
	}

	eng := engine.New(templates, defs, engine.DefaultOptions())
	svc := publish.New(templates, models.TemplateScopeGlobal, screenKeys)
	sheet := stylesheet.New(css, assets, stylesheet.DefaultAssetKey)
	known := append(append([]string{}, screenKeys...), defs.PopupKeys()...)

	return &testEnv{
		Templates:  templates,
		CSS:        css,
		Assets:     assets,
		Defaults:   defs,
		Engine:     eng,
		Service:    svc,
		Stylesheet: sheet,
		Admin:      NewAdmin(svc, eng, sheet, known, nil),
		Public:     NewPublic(eng, data, sheet),
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// call runs h on a request for the template key with an optional JSON body.
func call(t *testing.T, h http.HandlerFunc, method, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/admin/api/templates/"+url.PathEscape(key), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req = withChiURLParam(req, "key", key)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// decode unmarshals a JSON response body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// errorBody is the shape of admin error responses.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "classportal")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "classportal")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "render:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

// cleanTemplates removes test templates by key.
func cleanTemplates(t *testing.T, db *sql.DB, keys ...string) {
	t.Helper()
	for _, k := range keys {
		db.Exec("DELETE FROM templates WHERE key = $1", k)
	}
}
