//go:build integration && postgres

package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/joho/godotenv"

	app "github.com/bloom-app/progression/internal/app"
	"github.com/bloom-app/progression/internal/platform/database"
	"github.com/bloom-app/progression/internal/platform/migrations"
	"github.com/bloom-app/progression/internal/app/storage/postgres"
)

// Integration test against Postgres to ensure migrations plus the award flow
// work with persistence.
func TestIntegrationPostgres(t *testing.T) {
	_ = godotenv.Load() // allow .env for local runs
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := postgres.New(db)
	application, err := app.New(app.Stores{Users: store, Ledger: store, Activities: store}, app.Options{}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}

	tokens := []string{"dev-token"}
	handler := WrapWithAuth(NewHandler(application), tokens)

	server := httptest.NewServer(handler)
	defer server.Close()
	client := server.Client()

	do := func(method, path string, body io.Reader) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, server.URL+path, body)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer dev-token")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		return resp
	}

	resp := do(http.MethodPost, "/users", marshal(t, map[string]any{"username": "pg-integration"}))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	if hresp, err := client.Get(server.URL + "/healthz"); err != nil || hresp.StatusCode != http.StatusOK {
		t.Fatalf("healthz failed: %v status %d", err, hresp.StatusCode)
	}
}
