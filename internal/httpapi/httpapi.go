// Package httpapi wires the Save Pipeline, Branch Manager, Lock Registry,
// and Editor Roster onto HTTP via the teacher's own dynamic Router, the
// same way the teacher's examples/v1.go mounts handlers onto groups.
package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oarkflow/json"

	"github.com/oarkflow/noteforge"
	"github.com/oarkflow/noteforge/internal/engine"
	"github.com/oarkflow/noteforge/internal/lock"
	"github.com/oarkflow/noteforge/internal/model"
)

// API bundles the collaborators the handlers close over.
type API struct {
	Engine *engine.Engine
	Locks  *lock.Registry
}

// New builds an API over an already-wired Engine and Lock Registry.
func New(e *engine.Engine, locks *lock.Registry) *API {
	return &API{Engine: e, Locks: locks}
}

// Mount registers every wire endpoint spec §6 describes onto r under
// /files/{file_id}/..., plus an admin /admin/locks listing. The /status
// HTML page is registered by cmd/server, not here.
func (a *API) Mount(r *router.Router) {
	files := r.Group("/files/:file_id")
	files.Post("/save", a.handleSave)
	files.Post("/resolve-conflicts", a.handleResolveConflicts)
	files.Post("/edit", a.handleStartEditing)
	files.Post("/release", a.handleStopEditing)
	files.Get("/active-editors", a.handleActiveEditors)
	files.Get("/history", a.handleHistory)
	files.Get("/versions/:version_id", a.handleGetVersion)
	files.Get("/diff", a.handleDiff)
	files.Post("/branches", a.handleCreateBranch)
	files.Post("/merge", a.handleMerge)
	files.Post("/lock", a.handleLockAcquire)
	files.Delete("/lock", a.handleLockRelease)
	files.Get("/lock", a.handleLockStatus)

	r.AddRoute("GET", "/admin/locks", a.handleAdminLocks)
}

func principalFrom(c *fiber.Ctx) model.Principal {
	userID := c.Get("X-User-Id")
	if userID == "" {
		userID = model.PublicUser
	}
	return model.Principal{
		UserID:       userID,
		ActiveTeamID: c.Get("X-Team-Id"),
	}
}

func mapError(c *fiber.Ctx, err error) error {
	switch model.KindOf(err) {
	case model.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case model.KindBadRequest:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case model.KindForbidden:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case model.KindUnauthorized:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case model.KindConflict:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

type saveRequest struct {
	Content     string `json:"content"`
	BaseVersion string `json:"base_version"`
	Message     string `json:"message,omitempty"`
	Branch      string `json:"branch,omitempty"`
}

func (a *API) handleSave(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	principal := principalFrom(c)

	if !a.Locks.CanUserEdit(fileID, principal.UserID, time.Now()) {
		lockInfo, _ := a.Locks.IsLocked(fileID, time.Now())
		editors, err := a.Engine.ActiveEditors(fileID)
		if err != nil {
			return mapError(c, err)
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status":         "locked",
			"message":        "file is locked by another user",
			"locked_by":      lockInfo.UserID,
			"active_editors": editors,
		})
	}

	var req saveRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return mapError(c, model.BadRequest("invalid request body"))
	}

	result, err := a.Engine.Save(principal, fileID, fileID, req.BaseVersion, req.Content, req.Message)
	if err != nil {
		return mapError(c, err)
	}

	body := fiber.Map{
		"status":      result.Status,
		"new_version": result.VersionID,
		"message":     result.Message,
	}
	if result.Status == model.StatusConflict {
		body["conflicts"] = result.Conflicts
		return c.Status(fiber.StatusConflict).JSON(body)
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

type resolveConflictRequest struct {
	Content        string `json:"content"`
	BaseVersion    string `json:"base_version"`
	CurrentVersion string `json:"current_version"`
	Message        string `json:"message"`
}

func (a *API) handleResolveConflicts(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	principal := principalFrom(c)

	var req resolveConflictRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return mapError(c, model.BadRequest("invalid request body"))
	}

	result, err := a.Engine.ResolveConflicts(principal, fileID, req.Message, req.Content)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":      result.Status,
		"new_version": result.VersionID,
		"message":     result.Message,
	})
}

type editRequest struct {
	Branch string `json:"branch,omitempty"`
}

func (a *API) handleStartEditing(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	principal := principalFrom(c)

	var req editRequest
	_ = json.Unmarshal(c.Body(), &req)

	now := time.Now()
	if lockInfo, locked := a.Locks.IsLocked(fileID, now); locked && lockInfo.UserID != principal.UserID {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":     "file is locked by another user",
			"locked_by": lockInfo.UserID,
		})
	}
	a.Locks.TryAcquire(fileID, principal.UserID, now)

	editors, err := a.Engine.StartEditing(fileID, principal.UserID, req.Branch)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"active_editors": editors})
}

func (a *API) handleStopEditing(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	principal := principalFrom(c)

	a.Locks.Release(fileID, principal.UserID)

	editors, err := a.Engine.StopEditing(fileID, principal.UserID)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"active_editors": editors})
}

func (a *API) handleActiveEditors(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	editors, err := a.Engine.ActiveEditors(fileID)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"active_editors": editors})
}

func (a *API) handleHistory(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	branch := c.Query("branch")
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 0)

	versions, current, total, err := a.Engine.History(fileID, branch, skip, limit)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"versions":        versions,
		"total_count":     total,
		"current_version": current,
	})
}

func (a *API) handleGetVersion(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	versionID := router.RouteParam(c, "version_id")

	content, err := a.Engine.Store.GetVersionContent(fileID, versionID)
	if err != nil {
		return mapError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(content)
}

func (a *API) handleDiff(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	from := c.Query("from")
	to := c.Query("to")

	diff, err := a.Engine.Diff(fileID, from, to)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"base_version":    from,
		"compare_version": to,
		"changes":         diff.Changes,
		"conflicts":       diff.Conflicts,
		"can_auto_merge":  diff.CanAutoMerge,
	})
}

type createBranchRequest struct {
	Name        string `json:"name"`
	BaseVersion string `json:"base_version"`
	Content     string `json:"content,omitempty"`
}

func (a *API) handleCreateBranch(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	principal := principalFrom(c)

	var req createBranchRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return mapError(c, model.BadRequest("invalid request body"))
	}

	branch, err := a.Engine.CreateBranch(fileID, req.Name, principal.UserID, req.BaseVersion, req.Content)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(branch)
}

type mergeRequest struct {
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	Message      string `json:"message,omitempty"`
}

func (a *API) handleMerge(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	principal := principalFrom(c)

	var req mergeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return mapError(c, model.BadRequest("invalid request body"))
	}

	result, err := a.Engine.Merge(fileID, req.SourceBranch, req.TargetBranch, principal.UserID, req.Message)
	if err != nil {
		return mapError(c, err)
	}
	if !result.Merged {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status":         "conflict",
			"conflicts":      result.Conflicts,
			"marked_content": result.MarkedContent,
			"message":        "merge conflicts detected, resolve manually",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":      "merged",
		"new_version": result.VersionID,
		"message":     "branches merged successfully",
	})
}

func (a *API) handleLockAcquire(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	principal := principalFrom(c)

	l, ok := a.Locks.TryAcquire(fileID, principal.UserID, time.Now())
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"locked":    true,
			"locked_by": l.UserID,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"locked":     true,
		"locked_by":  l.UserID,
		"expires_at": l.ExpiresAt,
	})
}

func (a *API) handleLockRelease(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	principal := principalFrom(c)

	if !a.Locks.Release(fileID, principal.UserID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not the current lock holder"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"locked": false})
}

func (a *API) handleLockStatus(c *fiber.Ctx) error {
	fileID := router.RouteParam(c, "file_id")
	l, locked := a.Locks.IsLocked(fileID, time.Now())
	if !locked {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"locked": false})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"locked":      true,
		"locked_by":   l.UserID,
		"acquired_at": l.AcquiredAt,
		"expires_at":  l.ExpiresAt,
	})
}

func (a *API) handleAdminLocks(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"locks": a.Locks.All()})
}
