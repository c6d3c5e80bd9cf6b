package routes

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/packhub/packhub/internal/cache"
)

func TestStatusEndpoint(t *testing.T) {
	app, store := newDiagnosticsApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/status", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var payload statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.CacheRoot != store.Root() {
		t.Fatalf("unexpected cache root %q", payload.CacheRoot)
	}
	if payload.Version == "" {
		t.Fatalf("version missing")
	}
}

func TestBlobDiagnostics(t *testing.T) {
	app, store := newDiagnosticsApp(t)

	key := cache.Key{0xab, 0xcd, 0xef, 0x01, 0x23, 0x45}
	src := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if _, err := store.Put(context.Background(), key, src); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/-/blobs/abcdef012345", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var payload blobPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.SizeBytes != 5 || payload.Key != "abcdef012345" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if want := filepath.Join(store.Root(), "ab", "cd", "ef012345"); payload.Path != want {
		t.Fatalf("expected path %s, got %s", want, payload.Path)
	}

	missing, err := app.Test(httptest.NewRequest("GET", "/-/blobs/ffffffffff", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if missing.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for missing blob, got %d", missing.StatusCode)
	}
}

func newDiagnosticsApp(t *testing.T) (*fiber.App, cache.Store) {
	t.Helper()
	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store init failed: %v", err)
	}
	app := fiber.New()
	RegisterDiagnosticsRoutes(app, store, time.Now())
	return app, store
}
