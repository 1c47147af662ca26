package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"boardsync/domain"
	"boardsync/storage"
)

func entityFixtureWorkspace() domain.Workspace {
	ws := domain.Workspace{Version: 3}.Normalize()
	ws.Projects = []domain.Project{{
		ID:   "p1",
		Name: "Roadmap",
		SubProjects: []domain.SubProject{{
			ID:          "sp1",
			Name:        "Q1",
			EnabledTabs: []domain.BoardType{domain.BoardKanban},
			BoardData: map[domain.BoardType]domain.Board{
				domain.BoardKanban: {Lists: []domain.List{
					{ID: "l1", Title: "Backlog", Tasks: []domain.Task{
						{ID: "t1", Title: "first"},
						{ID: "t2", Title: "second"},
					}},
					{ID: "l2", Title: "Done", Tasks: []domain.Task{}},
				}},
			},
		}},
	}}
	return ws
}

func entityRequest(t *testing.T, e *echo.Echo, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderAuthorization, "Bearer x.y.z")
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateTaskEndpoint(t *testing.T) {
	store := &mockStore{ws: entityFixtureWorkspace()}
	notifier := &mockNotifier{}
	e := apiFixture(store, &mockAuth{userID: "user-1"}, notifier)

	rec := entityRequest(t, e, http.MethodPost, "/api/tasks", map[string]any{
		"subProjectId": "sp1",
		"boardType":    "kanban",
		"listId":       "l1",
		"title":        "третий", // unicode titles pass through untouched
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var task domain.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.ID == "" {
		t.Fatal("created task must carry a generated ID")
	}
	if task.Title != "третий" {
		t.Fatalf("unexpected title %q", task.Title)
	}
	if len(store.saves) != 1 {
		t.Fatalf("expected 1 save, got %d", len(store.saves))
	}
	if store.saves[0].expectedVersion != 3 {
		t.Fatalf("save must carry the fetched version, got %d", store.saves[0].expectedVersion)
	}
	if len(notifier.workspaceIDs) != 1 {
		t.Fatalf("expected change notification, got %+v", notifier.workspaceIDs)
	}
}

func TestCreateTaskEndpointUnknownList(t *testing.T) {
	store := &mockStore{ws: entityFixtureWorkspace()}
	e := apiFixture(store, &mockAuth{userID: "user-1"}, &mockNotifier{})

	rec := entityRequest(t, e, http.MethodPost, "/api/tasks", map[string]any{
		"subProjectId": "sp1",
		"boardType":    "kanban",
		"listId":       "gone",
		"title":        "orphan",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if len(store.saves) != 0 {
		t.Fatalf("no-op must not save, got %d saves", len(store.saves))
	}
}

func TestMoveTaskEndpointNoop(t *testing.T) {
	store := &mockStore{ws: entityFixtureWorkspace()}
	e := apiFixture(store, &mockAuth{userID: "user-1"}, &mockNotifier{})

	// t2 already sits at index 1 of l1
	rec := entityRequest(t, e, http.MethodPost, "/api/tasks/t2/move", map[string]any{
		"subProjectId": "sp1",
		"boardType":    "kanban",
		"fromListId":   "l1",
		"toListId":     "l1",
		"targetIndex":  1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for positional no-op, got %d: %s", rec.Code, rec.Body.String())
	}
	var task domain.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.ID != "t2" {
		t.Fatalf("expected t2 back, got %q", task.ID)
	}
	if len(store.saves) != 0 {
		t.Fatalf("positional no-op must not save, got %d saves", len(store.saves))
	}
}

func TestMoveTaskEndpoint(t *testing.T) {
	store := &mockStore{ws: entityFixtureWorkspace()}
	e := apiFixture(store, &mockAuth{userID: "user-1"}, &mockNotifier{})

	rec := entityRequest(t, e, http.MethodPost, "/api/tasks/t1/move", map[string]any{
		"subProjectId": "sp1",
		"boardType":    "kanban",
		"fromListId":   "l1",
		"toListId":     "l2",
		"targetIndex":  0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.saves) != 1 {
		t.Fatalf("expected 1 save, got %d", len(store.saves))
	}
}

func TestCreateProjectEndpoint(t *testing.T) {
	store := &mockStore{ws: entityFixtureWorkspace()}
	e := apiFixture(store, &mockAuth{userID: "user-1"}, &mockNotifier{})

	rec := entityRequest(t, e, http.MethodPost, "/api/projects", map[string]any{
		"name":  "Marketing",
		"color": "#ff8800",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var p domain.Project
	if err := sonic.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	if p.ID == "" || p.Name != "Marketing" {
		t.Fatalf("unexpected project %+v", p)
	}
}

func TestDeleteProjectEndpoint(t *testing.T) {
	store := &mockStore{ws: entityFixtureWorkspace()}
	e := apiFixture(store, &mockAuth{userID: "user-1"}, &mockNotifier{})

	rec := entityRequest(t, e, http.MethodDelete, "/api/projects/p1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.saves) != 1 {
		t.Fatalf("expected 1 save, got %d", len(store.saves))
	}
}

func TestReorderListsEndpoint(t *testing.T) {
	store := &mockStore{ws: entityFixtureWorkspace()}
	e := apiFixture(store, &mockAuth{userID: "user-1"}, &mockNotifier{})

	rec := entityRequest(t, e, http.MethodPost, "/api/lists/reorder", map[string]any{
		"subProjectId": "sp1",
		"boardType":    "kanban",
		"fromIndex":    1,
		"toIndex":      0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var b domain.Board
	if err := sonic.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if len(b.Lists) != 2 || b.Lists[0].ID != "l2" {
		t.Fatalf("unexpected list order %+v", b.Lists)
	}
}

func TestEntityEndpointConflictRetries(t *testing.T) {
	store := &mockStore{ws: entityFixtureWorkspace(), saveErr: storage.ErrVersionConflict}
	e := apiFixture(store, &mockAuth{userID: "user-1"}, &mockNotifier{})

	rec := entityRequest(t, e, http.MethodPost, "/api/projects", map[string]any{"name": "doomed"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 after exhausted retries, got %d", rec.Code)
	}
	if len(store.saves) != entitySaveAttempts {
		t.Fatalf("expected %d attempts, got %d", entitySaveAttempts, len(store.saves))
	}
}
