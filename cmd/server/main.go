// Command server is the noteforge process entrypoint: it wires the bbolt
// Version Store, the Save Pipeline/Branch Manager engine, the Lock
// Registry, and the HTTP API onto a fiber app behind the dynamic Router,
// the same storage-then-manager-then-routes-then-listen order the
// teacher's own examples/version.go main() follows.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/oarkflow/json"

	router "github.com/oarkflow/noteforge"
	"github.com/oarkflow/noteforge/internal/config"
	"github.com/oarkflow/noteforge/internal/engine"
	"github.com/oarkflow/noteforge/internal/httpapi"
	"github.com/oarkflow/noteforge/internal/lock"
	"github.com/oarkflow/noteforge/internal/store"
	"github.com/oarkflow/noteforge/middleware/healthcheck"
	"github.com/oarkflow/noteforge/middleware/requestid"
)

const lockCleanupInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.json", "path to the operational config file")
	flag.Parse()

	var locks *lock.Registry
	watcher, err := config.NewWatcher(*configPath, func(cfg config.Config) {
		if locks != nil {
			locks.SetDuration(cfg.LockDuration())
		}
	})
	if err != nil {
		log.Fatalf("error msg=\"load config\" err=%v", err)
	}
	cfg := watcher.Current()

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("error msg=\"open store\" path=%q err=%v", cfg.DBPath, err)
	}
	defer s.Close()
	s.MirrorDir = cfg.MirrorDir

	locks = lock.New(cfg.LockDuration())

	e := engine.New(s, locks)
	api := httpapi.New(e, locks)

	views := html.New("./views", ".html")
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Views:                 views,
	})
	dr := router.New(app)
	dr.SetNotFoundHandler(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "route not found"})
	})
	dr.Use(requestid.New())
	dr.Use(healthcheck.New(healthcheck.Config{
		LivenessProbe: func(c *fiber.Ctx) bool { return true },
	}))
	dr.Use(dr.ValidateRequestBySchema)

	registerSchemas()
	api.Mount(dr)
	dr.AddRoute("GET", "/status", func(c *fiber.Ctx) error {
		return c.Render("status", fiber.Map{
			"Title": "noteforge status",
			"Locks": locks.All(),
		})
	})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		if err := watcher.Run(stop); err != nil {
			log.Printf("warn msg=\"config watcher stopped\" err=%v", err)
		}
	}()
	go runLockJanitor(locks, stop)

	log.Printf("info msg=\"noteforge listening\" addr=%q db=%q", cfg.ListenAddr, cfg.DBPath)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatalf("error msg=\"server exited\" err=%v", err)
	}
}

// registerSchemas compiles the JSON Schemas guarding the request bodies that
// matter most to the version graph's invariants, the same
// CompileSchema(uri, method, schema)-per-route wiring the teacher's own
// schema.go exposes. Fields these schemas don't mention are left to each
// handler's own validation.
func registerSchemas() {
	router.CompileSchema("/files/:file_id/save", "POST", json.RawMessage(`{
		"type": "object",
		"required": ["content", "base_version"],
		"properties": {
			"content": {"type": "string"},
			"base_version": {"type": "string"}
		}
	}`))
	router.CompileSchema("/files/:file_id/resolve-conflicts", "POST", json.RawMessage(`{
		"type": "object",
		"required": ["content"],
		"properties": {
			"content": {"type": "string"}
		}
	}`))
	router.CompileSchema("/files/:file_id/branches", "POST", json.RawMessage(`{
		"type": "object",
		"required": ["name", "base_version"],
		"properties": {
			"name": {"type": "string"},
			"base_version": {"type": "string"}
		}
	}`))
	router.CompileSchema("/files/:file_id/merge", "POST", json.RawMessage(`{
		"type": "object",
		"required": ["source_branch", "target_branch"],
		"properties": {
			"source_branch": {"type": "string"},
			"target_branch": {"type": "string"}
		}
	}`))
}

// runLockJanitor periodically reaps expired locks, the active-process
// equivalent of the Lock Registry's own TTL check performed lazily on every
// IsLocked/CanUserEdit call; this just bounds how long a stale entry can
// linger in the map when nobody happens to query that file.
func runLockJanitor(locks *lock.Registry, stop <-chan struct{}) {
	ticker := time.NewTicker(lockCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if n := locks.CleanupExpired(now); n > 0 {
				log.Printf("info msg=\"cleaned expired locks\" count=%d", n)
			}
		}
	}
}
