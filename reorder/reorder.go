// Package reorder turns raw drag gestures into reducer dispatches. It
// decides whether a drop is a reorder within a container or a move across
// containers, resolves the "insert before sibling" hint into a concrete
// index, and refuses to dispatch when the drop would leave the item exactly
// where it already is.
package reorder

import (
	"boardsync/domain"
	"boardsync/mutate"
	"boardsync/tree"
)

// ItemType names what is being dragged.
type ItemType string

const (
	ItemTask       ItemType = "task"
	ItemList       ItemType = "list"
	ItemSubProject ItemType = "subProject"
)

// Gesture is the raw drop description produced by the UI layer. BeforeID
// names the sibling the item was dropped in front of; empty means the
// pointer was over the container background, which resolves to append.
type Gesture struct {
	ItemType     ItemType
	ItemID       string
	ProjectID    string           // sub-project drags
	SubProjectID string           // task and list drags
	BoardType    domain.BoardType // task and list drags
	SourceListID string           // task drags
	TargetListID string           // task drags; empty means same as source
	BeforeID     string
}

// Resolve computes the reducer dispatch for the gesture against the given
// snapshot. The second return is false when the gesture is a no-op (item
// dropped on its current position, or its containers no longer exist); a
// no-op dispatches nothing and must trigger no save.
func Resolve(ws domain.Workspace, g Gesture) (tree.Mutation, bool) {
	switch g.ItemType {
	case ItemTask:
		return resolveTask(ws, g)
	case ItemList:
		return resolveList(ws, g)
	case ItemSubProject:
		return resolveSubProject(ws, g)
	}
	return nil, false
}

// Apply resolves the gesture against the store's current snapshot and
// commits the resulting mutation. It reports whether the tree changed.
func Apply(s *tree.Store, g Gesture) bool {
	m, ok := Resolve(s.Snapshot(), g)
	if !ok {
		return false
	}
	return s.Apply(m)
}

func resolveTask(ws domain.Workspace, g Gesture) (tree.Mutation, bool) {
	board, ok := findBoard(ws, g.SubProjectID, g.BoardType)
	if !ok {
		return nil, false
	}
	targetListID := g.TargetListID
	if targetListID == "" {
		targetListID = g.SourceListID
	}

	var source, target *domain.List
	for i := range board.Lists {
		if board.Lists[i].ID == g.SourceListID {
			source = &board.Lists[i]
		}
		if board.Lists[i].ID == targetListID {
			target = &board.Lists[i]
		}
	}
	if source == nil || target == nil {
		return nil, false
	}
	curIdx := -1
	for i := range source.Tasks {
		if source.Tasks[i].ID == g.ItemID {
			curIdx = i
			break
		}
	}
	if curIdx < 0 {
		return nil, false
	}

	sameList := source.ID == target.ID
	idx := resolveIndex(taskIDs(target.Tasks), g.BeforeID, sameList, curIdx)
	if sameList && idx == curIdx {
		return nil, false
	}

	subID, bt, taskID := g.SubProjectID, g.BoardType, g.ItemID
	fromID, toID := source.ID, target.ID
	return func(w domain.Workspace) (domain.Workspace, bool) {
		return mutate.MoveTask(w, subID, bt, taskID, fromID, toID, idx)
	}, true
}

func resolveList(ws domain.Workspace, g Gesture) (tree.Mutation, bool) {
	board, ok := findBoard(ws, g.SubProjectID, g.BoardType)
	if !ok {
		return nil, false
	}
	from := -1
	for i := range board.Lists {
		if board.Lists[i].ID == g.ItemID {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, false
	}
	to := resolveIndex(listIDs(board.Lists), g.BeforeID, true, from)
	if to == from {
		return nil, false
	}

	subID, bt := g.SubProjectID, g.BoardType
	return func(w domain.Workspace) (domain.Workspace, bool) {
		return mutate.ReorderLists(w, subID, bt, from, to)
	}, true
}

func resolveSubProject(ws domain.Workspace, g Gesture) (tree.Mutation, bool) {
	var project *domain.Project
	for i := range ws.Projects {
		if ws.Projects[i].ID == g.ProjectID {
			project = &ws.Projects[i]
			break
		}
	}
	if project == nil {
		return nil, false
	}
	from := -1
	for i := range project.SubProjects {
		if project.SubProjects[i].ID == g.ItemID {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, false
	}
	to := resolveIndex(subProjectIDs(project.SubProjects), g.BeforeID, true, from)
	if to == from {
		return nil, false
	}

	projectID := g.ProjectID
	return func(w domain.Workspace) (domain.Workspace, bool) {
		return mutate.ReorderSubProjects(w, projectID, from, to)
	}, true
}

// resolveIndex turns the before-sibling hint into the insertion index the
// reducers expect, i.e. the index in the container with the dragged item
// already removed when the drag stays inside one container. An empty or
// unknown sibling appends.
func resolveIndex(siblings []string, beforeID string, sameContainer bool, curIdx int) int {
	n := len(siblings)
	appendIdx := n
	if sameContainer {
		appendIdx = n - 1
	}
	if beforeID == "" {
		return appendIdx
	}
	sibIdx := -1
	for i, id := range siblings {
		if id == beforeID {
			sibIdx = i
			break
		}
	}
	if sibIdx < 0 {
		return appendIdx
	}
	if sameContainer && curIdx < sibIdx {
		return sibIdx - 1
	}
	return sibIdx
}

func findBoard(ws domain.Workspace, subProjectID string, bt domain.BoardType) (domain.Board, bool) {
	for _, p := range ws.Projects {
		for _, sp := range p.SubProjects {
			if sp.ID != subProjectID {
				continue
			}
			b, ok := sp.BoardData[bt]
			return b, ok
		}
	}
	return domain.Board{}, false
}

func taskIDs(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func listIDs(lists []domain.List) []string {
	out := make([]string, len(lists))
	for i, l := range lists {
		out[i] = l.ID
	}
	return out
}

func subProjectIDs(subs []domain.SubProject) []string {
	out := make([]string, len(subs))
	for i, sp := range subs {
		out[i] = sp.ID
	}
	return out
}
