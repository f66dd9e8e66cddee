package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	router "github.com/oarkflow/noteforge"
	"github.com/oarkflow/noteforge/internal/engine"
	"github.com/oarkflow/noteforge/internal/lock"
	"github.com/oarkflow/noteforge/internal/store"
)

func newTestAPI(t *testing.T) (*fiber.App, *API) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	e := engine.New(s, lock.New(time.Minute))
	api := New(e, e.Locks)

	app := fiber.New()
	r := router.New(app)
	api.Mount(r)
	return app, api
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "alice")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var parsed map[string]any
	if len(data) > 0 {
		_ = json.Unmarshal(data, &parsed)
	}
	return resp.StatusCode, parsed
}

func TestSaveFirstWriteReturnsSaved(t *testing.T) {
	app, _ := newTestAPI(t)

	code, body := doJSON(t, app, "POST", "/files/file-1/save", map[string]any{
		"content":      "hello world",
		"base_version": "initial",
	})
	if code != fiber.StatusOK {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	if body["status"] != "saved" {
		t.Fatalf("status field = %v", body["status"])
	}
}

func TestSaveConflictReturns409(t *testing.T) {
	app, _ := newTestAPI(t)

	_, base := doJSON(t, app, "POST", "/files/file-1/save", map[string]any{
		"content":      "one\ntwo\nthree",
		"base_version": "initial",
	})
	baseVersion := base["new_version"].(string)

	doJSON(t, app, "POST", "/files/file-1/save", map[string]any{
		"content":      "one\nALICE\nthree",
		"base_version": baseVersion,
	})

	code, body := doJSON(t, app, "POST", "/files/file-1/save", map[string]any{
		"content":      "one\nBOB\nthree",
		"base_version": baseVersion,
	})
	if code != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d: %v", code, body)
	}
	if body["status"] != "conflict" {
		t.Fatalf("status field = %v", body["status"])
	}
}

func TestEditLockBlocksOtherUser(t *testing.T) {
	app, _ := newTestAPI(t)

	req := httptest.NewRequest("POST", "/files/file-1/edit", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "alice")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected alice's edit to succeed, got %d", resp.StatusCode)
	}

	req2 := httptest.NewRequest("POST", "/files/file-1/save", bytes.NewBufferString(`{"content":"x","base_version":"initial"}`))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("X-User-Id", "bob")
	resp2, err := app.Test(req2, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp2.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected bob's save to be blocked by alice's lock, got %d", resp2.StatusCode)
	}
}
