package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
	"boardsync/mutate"
	"boardsync/storage"
)

// Per-entity endpoints for callers that do not hold a full workspace
// snapshot. Each one runs a read-modify-write cycle over the stored
// document: fetch, apply the reducer, save against the fetched version,
// retry on a lost race.

const (
	entityRequestMaxSize = 1024 * 1024
	entitySaveAttempts   = 3
)

var errEntityNotFound = errors.New("entity not found")

type entityMutation func(domain.Workspace) (domain.Workspace, bool)

func registerEntityRoutes(e *echo.Echo, store Storage, auth Authenticator, notifier Notifier, logger *log.Logger) {
	h := &entityHandlers{store: store, auth: auth, notifier: notifier, logger: logger}

	e.POST("/api/projects", h.createProject)
	e.PUT("/api/projects/:id", h.updateProject)
	e.DELETE("/api/projects/:id", h.deleteProject)
	e.POST("/api/projects/:id/subprojects", h.createSubProject)
	e.POST("/api/projects/:id/subprojects/reorder", h.reorderSubProjects)
	e.PUT("/api/subprojects/:id", h.updateSubProject)
	e.DELETE("/api/subprojects/:id", h.deleteSubProject)
	e.POST("/api/lists", h.createList)
	e.PUT("/api/lists/:id", h.updateList)
	e.DELETE("/api/lists/:id", h.deleteList)
	e.POST("/api/lists/reorder", h.reorderLists)
	e.POST("/api/tasks", h.createTask)
	e.PUT("/api/tasks/:id", h.updateTask)
	e.DELETE("/api/tasks/:id", h.deleteTask)
	e.POST("/api/tasks/:id/move", h.moveTask)
}

type entityHandlers struct {
	store    Storage
	auth     Authenticator
	notifier Notifier
	logger   *log.Logger
}

// apply runs the read-modify-write cycle and returns the workspace the
// mutation produced. A mutation that changes nothing means the target
// entity does not exist.
func (h *entityHandlers) apply(ctx context.Context, workspaceID, userID string, m entityMutation) (domain.Workspace, error) {
	var lastErr error
	for attempt := 0; attempt < entitySaveAttempts; attempt++ {
		ws, err := h.store.FetchWorkspace(ctx, workspaceID)
		if err != nil {
			return domain.Workspace{}, err
		}
		next, changed := m(ws)
		if !changed {
			return ws, errEntityNotFound
		}
		version, err := h.store.SaveWorkspace(ctx, workspaceID, next, ws.Version, uuid.NewString(), userID)
		if errors.Is(err, storage.ErrVersionConflict) {
			lastErr = err
			continue
		}
		if errors.Is(err, storage.ErrChangeFeed) {
			h.logger.WithError(err).WithField("workspace", workspaceID).Warn("change feed behind")
			err = nil
		}
		if err != nil {
			return domain.Workspace{}, err
		}
		next.Version = version
		if h.notifier != nil {
			if notifyErr := h.notifier.WorkspaceChanged(ctx, workspaceID, version); notifyErr != nil {
				h.logger.WithError(notifyErr).WithField("workspace", workspaceID).Error("workspace change notification failed")
			}
		}
		return next, nil
	}
	return domain.Workspace{}, lastErr
}

// handle wraps the shared auth/decode/apply/respond flow. The respond
// callback extracts the entity to return from the updated workspace.
func (h *entityHandlers) handle(c echo.Context, req any, m func() entityMutation, respond func(domain.Workspace) (any, bool)) error {
	userID, err := h.auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return c.String(http.StatusUnauthorized, err.Error())
	}
	if req != nil {
		dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, entityRequestMaxSize))
		if err := dec.Decode(req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
	}
	ws, err := h.apply(c.Request().Context(), workspaceID(c), userID, m())
	switch {
	case errors.Is(err, errEntityNotFound):
		// a mutation that changed nothing: either the target is gone or the
		// request was a positional no-op on an existing entity
		if body, ok := respond(ws); ok {
			return c.JSON(http.StatusOK, body)
		}
		return c.String(http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrVersionConflict):
		return c.JSON(http.StatusConflict, saveWorkspaceResponse{Error: "version mismatch"})
	case err != nil:
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, err.Error())
	}
	body, ok := respond(ws)
	if !ok {
		// the mutation committed but the entity cannot be located again;
		// should not happen with append-style creates
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, body)
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	IsProtected bool   `json:"isProtected"`
	Password    string `json:"password"`
}

type projectPatchRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	IsProtected *bool   `json:"isProtected"`
	Password    *string `json:"password"`
	Archived    *bool   `json:"archived"`
	IsArchived  *bool   `json:"isArchived"`
}

func (h *entityHandlers) createProject(c echo.Context) error {
	var req projectRequest
	return h.handle(c, &req, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.CreateProject(ws, mutate.ProjectDraft{
				Name:        req.Name,
				Description: req.Description,
				Color:       req.Color,
				IsProtected: req.IsProtected,
				Password:    req.Password,
			})
		}
	}, func(ws domain.Workspace) (any, bool) {
		if len(ws.Projects) == 0 {
			return nil, false
		}
		return ws.Projects[len(ws.Projects)-1], true
	})
}

func (h *entityHandlers) updateProject(c echo.Context) error {
	id := c.Param("id")
	var req projectPatchRequest
	return h.handle(c, &req, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.UpdateProject(ws, id, mutate.ProjectPatch{
				Name:        req.Name,
				Description: req.Description,
				Color:       req.Color,
				IsProtected: req.IsProtected,
				Password:    req.Password,
				Archived:    req.Archived,
				IsArchived:  req.IsArchived,
			})
		}
	}, func(ws domain.Workspace) (any, bool) {
		return findProject(ws, id)
	})
}

func (h *entityHandlers) deleteProject(c echo.Context) error {
	id := c.Param("id")
	return h.handle(c, nil, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.DeleteProject(ws, id)
		}
	}, func(ws domain.Workspace) (any, bool) {
		return map[string]bool{"deleted": true}, true
	})
}

type subProjectRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	EnabledTabs []domain.BoardType `json:"enabledTabs"`
}

type subProjectPatchRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	EnabledTabs *[]domain.BoardType `json:"enabledTabs"`
}

type reorderRequest struct {
	SubProjectID string           `json:"subProjectId"`
	BoardType    domain.BoardType `json:"boardType"`
	FromIndex    int              `json:"fromIndex"`
	ToIndex      int              `json:"toIndex"`
}

func (h *entityHandlers) createSubProject(c echo.Context) error {
	projectID := c.Param("id")
	var req subProjectRequest
	return h.handle(c, &req, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.AddSubProject(ws, projectID, mutate.SubProjectDraft{
				Name:        req.Name,
				Description: req.Description,
				EnabledTabs: req.EnabledTabs,
			})
		}
	}, func(ws domain.Workspace) (any, bool) {
		p, ok := findProject(ws, projectID)
		if !ok || len(p.SubProjects) == 0 {
			return nil, false
		}
		return p.SubProjects[len(p.SubProjects)-1], true
	})
}

func (h *entityHandlers) reorderSubProjects(c echo.Context) error {
	projectID := c.Param("id")
	var req reorderRequest
	return h.handle(c, &req, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.ReorderSubProjects(ws, projectID, req.FromIndex, req.ToIndex)
		}
	}, func(ws domain.Workspace) (any, bool) {
		return findProject(ws, projectID)
	})
}

func (h *entityHandlers) updateSubProject(c echo.Context) error {
	id := c.Param("id")
	var req subProjectPatchRequest
	return h.handle(c, &req, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.UpdateSubProject(ws, id, mutate.SubProjectPatch{
				Name:        req.Name,
				Description: req.Description,
				EnabledTabs: req.EnabledTabs,
			})
		}
	}, func(ws domain.Workspace) (any, bool) {
		return findSubProject(ws, id)
	})
}

func (h *entityHandlers) deleteSubProject(c echo.Context) error {
	id := c.Param("id")
	return h.handle(c, nil, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.DeleteSubProject(ws, id)
		}
	}, func(ws domain.Workspace) (any, bool) {
		return map[string]bool{"deleted": true}, true
	})
}

type listRequest struct {
	SubProjectID string           `json:"subProjectId"`
	BoardType    domain.BoardType `json:"boardType"`
	Title        string           `json:"title"`
}

type listPatchRequest struct {
	SubProjectID string           `json:"subProjectId"`
	BoardType    domain.BoardType `json:"boardType"`
	Title        *string          `json:"title"`
}

func (h *entityHandlers) createList(c echo.Context) error {
	var req listRequest
	return h.handle(c, &req, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.AddList(ws, req.SubProjectID, req.BoardType, req.Title)
		}
	}, func(ws domain.Workspace) (any, bool) {
		b, ok := findBoard(ws, req.SubProjectID, req.BoardType)
		if !ok || len(b.Lists) == 0 {
			return nil, false
		}
		return b.Lists[len(b.Lists)-1], true
	})
}

func (h *entityHandlers) updateList(c echo.Context) error {
	id := c.Param("id")
	var req listPatchRequest
	return h.handle(c, &req, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.UpdateList(ws, req.SubProjectID, req.BoardType, id, mutate.ListPatch{Title: req.Title})
		}
	}, func(ws domain.Workspace) (any, bool) {
		return findList(ws, req.SubProjectID, req.BoardType, id)
	})
}

func (h *entityHandlers) deleteList(c echo.Context) error {
	id := c.Param("id")
	subProjectID := c.QueryParam("subProjectId")
	bt := domain.BoardType(c.QueryParam("boardType"))
	return h.handle(c, nil, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.DeleteList(ws, subProjectID, bt, id)
		}
	}, func(ws domain.Workspace) (any, bool) {
		return map[string]bool{"deleted": true}, true
	})
}

func (h *entityHandlers) reorderLists(c echo.Context) error {
	var req reorderRequest
	return h.handle(c, &req, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.ReorderLists(ws, req.SubProjectID, req.BoardType, req.FromIndex, req.ToIndex)
		}
	}, func(ws domain.Workspace) (any, bool) {
		return findBoard(ws, req.SubProjectID, req.BoardType)
	})
}

type taskRequest struct {
	SubProjectID     string           `json:"subProjectId"`
	BoardType        domain.BoardType `json:"boardType"`
	ListID           string           `json:"listId"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Priority         string           `json:"priority"`
	EndDate          string           `json:"endDate"`
	ResponsibleUsers []string         `json:"responsibleUsers"`
	Labels           []domain.Label   `json:"labels"`
}

type taskPatchRequest struct {
	SubProjectID     string           `json:"subProjectId"`
	BoardType        domain.BoardType `json:"boardType"`
	Title            *string          `json:"title"`
	Description      *string          `json:"description"`
	Priority         *string          `json:"priority"`
	EndDate          *string          `json:"endDate"`
	ResponsibleUsers *[]string        `json:"responsibleUsers"`
	IsArchived       *bool            `json:"isArchived"`
}

type moveTaskRequest struct {
	SubProjectID string           `json:"subProjectId"`
	BoardType    domain.BoardType `json:"boardType"`
	FromListID   string           `json:"fromListId"`
	ToListID     string           `json:"toListId"`
	TargetIndex  int              `json:"targetIndex"`
}

func (h *entityHandlers) createTask(c echo.Context) error {
	var req taskRequest
	return h.handle(c, &req, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.CreateTask(ws, req.SubProjectID, req.BoardType, req.ListID, mutate.TaskDraft{
				Title:            req.Title,
				Description:      req.Description,
				Priority:         req.Priority,
				EndDate:          req.EndDate,
				ResponsibleUsers: req.ResponsibleUsers,
				Labels:           req.Labels,
			})
		}
	}, func(ws domain.Workspace) (any, bool) {
		l, ok := findList(ws, req.SubProjectID, req.BoardType, req.ListID)
		if !ok || len(l.Tasks) == 0 {
			return nil, false
		}
		return l.Tasks[len(l.Tasks)-1], true
	})
}

func (h *entityHandlers) updateTask(c echo.Context) error {
	id := c.Param("id")
	var req taskPatchRequest
	return h.handle(c, &req, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.UpdateTask(ws, req.SubProjectID, req.BoardType, id, mutate.TaskPatch{
				Title:            req.Title,
				Description:      req.Description,
				Priority:         req.Priority,
				EndDate:          req.EndDate,
				ResponsibleUsers: req.ResponsibleUsers,
				IsArchived:       req.IsArchived,
			})
		}
	}, func(ws domain.Workspace) (any, bool) {
		return findTask(ws, req.SubProjectID, req.BoardType, id)
	})
}

func (h *entityHandlers) deleteTask(c echo.Context) error {
	id := c.Param("id")
	subProjectID := c.QueryParam("subProjectId")
	bt := domain.BoardType(c.QueryParam("boardType"))
	return h.handle(c, nil, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.DeleteTask(ws, subProjectID, bt, id)
		}
	}, func(ws domain.Workspace) (any, bool) {
		return map[string]bool{"deleted": true}, true
	})
}

func (h *entityHandlers) moveTask(c echo.Context) error {
	id := c.Param("id")
	var req moveTaskRequest
	return h.handle(c, &req, func() entityMutation {
		return func(ws domain.Workspace) (domain.Workspace, bool) {
			return mutate.MoveTask(ws, req.SubProjectID, req.BoardType, id, req.FromListID, req.ToListID, req.TargetIndex)
		}
	}, func(ws domain.Workspace) (any, bool) {
		return findTask(ws, req.SubProjectID, req.BoardType, id)
	})
}

func findProject(ws domain.Workspace, id string) (domain.Project, bool) {
	for _, p := range ws.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Project{}, false
}

func findSubProject(ws domain.Workspace, id string) (domain.SubProject, bool) {
	for _, p := range ws.Projects {
		for _, sp := range p.SubProjects {
			if sp.ID == id {
				return sp, true
			}
		}
	}
	return domain.SubProject{}, false
}

func findBoard(ws domain.Workspace, subProjectID string, bt domain.BoardType) (domain.Board, bool) {
	sp, ok := findSubProject(ws, subProjectID)
	if !ok {
		return domain.Board{}, false
	}
	b, ok := sp.BoardData[bt]
	return b, ok
}

func findList(ws domain.Workspace, subProjectID string, bt domain.BoardType, listID string) (domain.List, bool) {
	b, ok := findBoard(ws, subProjectID, bt)
	if !ok {
		return domain.List{}, false
	}
	for _, l := range b.Lists {
		if l.ID == listID {
			return l, true
		}
	}
	return domain.List{}, false
}

func findTask(ws domain.Workspace, subProjectID string, bt domain.BoardType, taskID string) (domain.Task, bool) {
	b, ok := findBoard(ws, subProjectID, bt)
	if !ok {
		return domain.Task{}, false
	}
	for _, l := range b.Lists {
		for _, t := range l.Tasks {
			if t.ID == taskID {
				return t, true
			}
		}
	}
	return domain.Task{}, false
}
