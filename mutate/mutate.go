// Package mutate holds the tree-rewrite operations every edit funnels
// through. Each operation is a pure function of (Workspace, args) and returns
// the new root plus whether anything changed; a missing target is a no-op that
// hands back the input unchanged. Shared structure is never written in place,
// only the path from root to the mutated node is copied.
package mutate

// Helpers below rebuild the root-to-node path. Anything the callback leaves
// untouched keeps sharing storage with the input tree.

import "boardsync/domain"

func updateProject(ws domain.Workspace, projectID string, fn func(domain.Project) (domain.Project, bool)) (domain.Workspace, bool) {
	for i, p := range ws.Projects {
		if p.ID != projectID {
			continue
		}
		np, changed := fn(p)
		if !changed {
			return ws, false
		}
		out := ws
		out.Projects = append([]domain.Project(nil), ws.Projects...)
		out.Projects[i] = np
		return out, true
	}
	return ws, false
}

func updateSubProject(ws domain.Workspace, subProjectID string, fn func(domain.SubProject) (domain.SubProject, bool)) (domain.Workspace, bool) {
	for pi, p := range ws.Projects {
		for si, sp := range p.SubProjects {
			if sp.ID != subProjectID {
				continue
			}
			nsp, changed := fn(sp)
			if !changed {
				return ws, false
			}
			np := p
			np.SubProjects = append([]domain.SubProject(nil), p.SubProjects...)
			np.SubProjects[si] = nsp
			out := ws
			out.Projects = append([]domain.Project(nil), ws.Projects...)
			out.Projects[pi] = np
			return out, true
		}
	}
	return ws, false
}

func updateBoard(ws domain.Workspace, subProjectID string, bt domain.BoardType, fn func(domain.Board) (domain.Board, bool)) (domain.Workspace, bool) {
	return updateSubProject(ws, subProjectID, func(sp domain.SubProject) (domain.SubProject, bool) {
		board, ok := sp.BoardData[bt]
		if !ok {
			return sp, false
		}
		nb, changed := fn(board)
		if !changed {
			return sp, false
		}
		nm := make(map[domain.BoardType]domain.Board, len(sp.BoardData))
		for k, v := range sp.BoardData {
			nm[k] = v
		}
		nm[bt] = nb
		sp.BoardData = nm
		return sp, true
	})
}

func clampIndex(idx, max int) int {
	if idx < 0 {
		return 0
	}
	if idx > max {
		return max
	}
	return idx
}
