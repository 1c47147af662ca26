package mutate

import (
	"github.com/google/uuid"

	"boardsync/domain"
)

// ProjectDraft carries the caller-supplied fields of a new project.
type ProjectDraft struct {
	Name        string
	Description string
	Color       string
	IsProtected bool
	Password    string
}

// ProjectPatch updates only the fields whose pointers are set.
type ProjectPatch struct {
	Name        *string
	Description *string
	Color       *string
	IsProtected *bool
	Password    *string
	Archived    *bool
	IsArchived  *bool
}

// SubProjectDraft carries the caller-supplied fields of a new sub-project.
// Every enabled tab starts with an empty board.
type SubProjectDraft struct {
	Name        string
	Description string
	EnabledTabs []domain.BoardType
}

// SubProjectPatch updates only the fields whose pointers are set.
type SubProjectPatch struct {
	Name        *string
	Description *string
	EnabledTabs *[]domain.BoardType
}

// CreateProject appends a new project to the workspace.
func CreateProject(ws domain.Workspace, draft ProjectDraft) (domain.Workspace, bool) {
	p := domain.Project{
		ID:          uuid.NewString(),
		Name:        draft.Name,
		Description: draft.Description,
		Color:       draft.Color,
		IsProtected: draft.IsProtected,
		Password:    draft.Password,
		SubProjects: []domain.SubProject{},
	}
	out := ws
	out.Projects = make([]domain.Project, len(ws.Projects)+1)
	copy(out.Projects, ws.Projects)
	out.Projects[len(ws.Projects)] = p
	return out, true
}

// UpdateProject merges the patch into the named project.
func UpdateProject(ws domain.Workspace, projectID string, patch ProjectPatch) (domain.Workspace, bool) {
	return updateProject(ws, projectID, func(p domain.Project) (domain.Project, bool) {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Color != nil {
			p.Color = *patch.Color
		}
		if patch.IsProtected != nil {
			p.IsProtected = *patch.IsProtected
		}
		if patch.Password != nil {
			p.Password = *patch.Password
		}
		if patch.Archived != nil {
			p.Archived = *patch.Archived
		}
		if patch.IsArchived != nil {
			p.IsArchived = *patch.IsArchived
		}
		return p, true
	})
}

// DeleteProject removes the project and, with it, every sub-project, board,
// list and task underneath. Ownership is exclusive so dropping the node is
// the whole cascade.
func DeleteProject(ws domain.Workspace, projectID string) (domain.Workspace, bool) {
	for i, p := range ws.Projects {
		if p.ID != projectID {
			continue
		}
		out := ws
		out.Projects = append(append([]domain.Project(nil), ws.Projects[:i]...), ws.Projects[i+1:]...)
		return out, true
	}
	return ws, false
}

// AddSubProject appends a new sub-project to the named project with an empty
// board per enabled tab.
func AddSubProject(ws domain.Workspace, projectID string, draft SubProjectDraft) (domain.Workspace, bool) {
	tabs := draft.EnabledTabs
	if len(tabs) == 0 {
		tabs = []domain.BoardType{domain.BoardKanban}
	}
	boards := make(map[domain.BoardType]domain.Board, len(tabs))
	for _, bt := range tabs {
		boards[bt] = domain.Board{Lists: []domain.List{}}
	}
	sp := domain.SubProject{
		ID:          uuid.NewString(),
		Name:        draft.Name,
		Description: draft.Description,
		EnabledTabs: append([]domain.BoardType(nil), tabs...),
		BoardData:   boards,
	}
	return updateProject(ws, projectID, func(p domain.Project) (domain.Project, bool) {
		np := p
		np.SubProjects = make([]domain.SubProject, len(p.SubProjects)+1)
		copy(np.SubProjects, p.SubProjects)
		np.SubProjects[len(p.SubProjects)] = sp
		return np, true
	})
}

// UpdateSubProject merges the patch into the named sub-project.
func UpdateSubProject(ws domain.Workspace, subProjectID string, patch SubProjectPatch) (domain.Workspace, bool) {
	return updateSubProject(ws, subProjectID, func(sp domain.SubProject) (domain.SubProject, bool) {
		if patch.Name != nil {
			sp.Name = *patch.Name
		}
		if patch.Description != nil {
			sp.Description = *patch.Description
		}
		if patch.EnabledTabs != nil {
			sp.EnabledTabs = append([]domain.BoardType(nil), *patch.EnabledTabs...)
		}
		return sp, true
	})
}

// DeleteSubProject removes the sub-project and all of its boards.
func DeleteSubProject(ws domain.Workspace, subProjectID string) (domain.Workspace, bool) {
	for pi, p := range ws.Projects {
		for si, sp := range p.SubProjects {
			if sp.ID != subProjectID {
				continue
			}
			np := p
			np.SubProjects = append(append([]domain.SubProject(nil), p.SubProjects[:si]...), p.SubProjects[si+1:]...)
			out := ws
			out.Projects = append([]domain.Project(nil), ws.Projects...)
			out.Projects[pi] = np
			return out, true
		}
	}
	return ws, false
}

// ReorderSubProjects moves the sub-project at fromIndex to toIndex within the
// named project. Indices are clamped; equal indices are a no-op.
func ReorderSubProjects(ws domain.Workspace, projectID string, fromIndex, toIndex int) (domain.Workspace, bool) {
	return updateProject(ws, projectID, func(p domain.Project) (domain.Project, bool) {
		if len(p.SubProjects) == 0 {
			return p, false
		}
		from := clampIndex(fromIndex, len(p.SubProjects)-1)
		to := clampIndex(toIndex, len(p.SubProjects)-1)
		if from == to {
			return p, false
		}
		moved := p.SubProjects[from]
		rest := append(append([]domain.SubProject(nil), p.SubProjects[:from]...), p.SubProjects[from+1:]...)
		np := p
		np.SubProjects = append(rest[:to:to], append([]domain.SubProject{moved}, rest[to:]...)...)
		return np, true
	})
}

// NewID exposes the reducer's ID scheme for callers that need to pre-allocate
// identifiers, e.g. when echoing an optimistic create back to the UI.
func NewID() string { return uuid.NewString() }
