package persist

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"

	"boardsync/domain"
)

func TestClientLoadNormalizesSparsePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/workspace" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":12}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "user-1")
	ws, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ws.Version != 12 {
		t.Fatalf("expected version 12, got %d", ws.Version)
	}
	if ws.Projects == nil || ws.Users == nil {
		t.Fatal("expected normalized empty collections")
	}
}

func TestClientSaveSendsVersionAndRequestID(t *testing.T) {
	var got saveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/workspace" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":8}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "user-1", WithBearerToken("tok"))
	ws := domain.Workspace{Version: 7, Projects: []domain.Project{{ID: "p1", Name: "P"}}}
	version, err := c.Save(context.Background(), ws, "req-1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if version != 8 {
		t.Fatalf("expected version 8, got %d", version)
	}
	if got.Version != 7 || got.RequestID != "req-1" || got.UserID != "user-1" {
		t.Fatalf("unexpected envelope: %+v", got)
	}
	if len(got.Data.Projects) != 1 || got.Data.Projects[0].ID != "p1" {
		t.Fatalf("unexpected data: %+v", got.Data)
	}
}

func TestClientSaveMapsConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "user-1")
	_, err := c.Save(context.Background(), domain.Workspace{Version: 4}, "req-1")
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestClientSaveOtherStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "user-1")
	_, err := c.Save(context.Background(), domain.Workspace{}, "req-1")
	if err == nil || errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
