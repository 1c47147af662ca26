package domain

import (
	"reflect"
	"testing"

	"github.com/bytedance/sonic"
)

func TestNormalizeEmptyDocument(t *testing.T) {
	var ws Workspace
	if err := sonic.Unmarshal([]byte(`{}`), &ws); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ws = ws.Normalize()
	if ws.Projects == nil || len(ws.Projects) != 0 {
		t.Fatalf("expected empty projects, got %#v", ws.Projects)
	}
	if ws.Users == nil || len(ws.Users) != 0 {
		t.Fatalf("expected empty users, got %#v", ws.Users)
	}
	if ws.Version != 0 {
		t.Fatalf("expected version 0, got %d", ws.Version)
	}
}

func TestNormalizeFillsNestedCollections(t *testing.T) {
	raw := `{"projects":[{"id":"p1","name":"P","subProjects":[{"id":"sp1","name":"SP","boardData":{"kanban":{}}}]}],"version":3}`
	var ws Workspace
	if err := sonic.Unmarshal([]byte(raw), &ws); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ws = ws.Normalize()
	sp := ws.Projects[0].SubProjects[0]
	if sp.EnabledTabs == nil {
		t.Fatal("expected enabled tabs slice")
	}
	board, ok := sp.BoardData[BoardKanban]
	if !ok {
		t.Fatal("expected kanban board")
	}
	if board.Lists == nil {
		t.Fatal("expected lists slice")
	}
	if ws.Version != 3 {
		t.Fatalf("expected version 3, got %d", ws.Version)
	}
}

func TestNormalizeLeavesInputUntouched(t *testing.T) {
	in := Workspace{
		Projects: []Project{{
			ID: "p1",
			SubProjects: []SubProject{{
				ID: "sp1",
				BoardData: map[BoardType]Board{
					BoardKanban: {Lists: []List{{ID: "l1"}}},
				},
			}},
		}},
	}
	out := in.Normalize()

	if in.Projects[0].SubProjects[0].EnabledTabs != nil {
		t.Fatal("normalize wrote enabled tabs into the input")
	}
	if in.Projects[0].SubProjects[0].BoardData[BoardKanban].Lists[0].Tasks != nil {
		t.Fatal("normalize wrote a tasks slice into the input's list")
	}

	// the output's containers must not alias the input's
	out.Projects[0].SubProjects[0].BoardData[BoardTodo] = Board{}
	if _, ok := in.Projects[0].SubProjects[0].BoardData[BoardTodo]; ok {
		t.Fatal("normalized workspace shares the board map with the input")
	}
	out.Projects[0].ID = "changed"
	if in.Projects[0].ID != "p1" {
		t.Fatal("normalized workspace shares project storage with the input")
	}
}

func TestCloneSharesNothing(t *testing.T) {
	ws := Workspace{
		Version: 7,
		Users:   []User{{ID: "u1", Name: "Ada"}},
		Projects: []Project{{
			ID: "p1", Name: "P",
			SubProjects: []SubProject{{
				ID:          "sp1",
				EnabledTabs: []BoardType{BoardKanban},
				BoardData: map[BoardType]Board{
					BoardKanban: {Lists: []List{{
						ID: "l1", Title: "Backlog",
						Tasks: []Task{{ID: "t1", Title: "T", ResponsibleUsers: []string{"u1"}}},
					}}},
				},
			}},
		}},
	}
	got := ws.Clone()
	if !reflect.DeepEqual(got, ws) {
		t.Fatal("clone not deep-equal to original")
	}
	got.Projects[0].SubProjects[0].BoardData[BoardKanban].Lists[0].Tasks[0].Title = "changed"
	if ws.Projects[0].SubProjects[0].BoardData[BoardKanban].Lists[0].Tasks[0].Title != "T" {
		t.Fatal("clone shares task storage with original")
	}
}
