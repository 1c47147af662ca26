package mutate

import (
	"github.com/google/uuid"

	"boardsync/domain"
)

// TaskDraft carries the caller-supplied fields of a new task. The ID is
// generated here.
type TaskDraft struct {
	Title            string
	Description      string
	Priority         string
	EndDate          string
	ResponsibleUsers []string
	Labels           []domain.Label
}

// TaskPatch updates only the fields whose pointers are set.
type TaskPatch struct {
	Title            *string
	Description      *string
	Priority         *string
	EndDate          *string
	ResponsibleUsers *[]string
	IsArchived       *bool
}

// CreateTask appends a new task to the named list. No-op when the list does
// not exist.
func CreateTask(ws domain.Workspace, subProjectID string, bt domain.BoardType, listID string, draft TaskDraft) (domain.Workspace, bool) {
	task := domain.Task{
		ID:               uuid.NewString(),
		Title:            draft.Title,
		Description:      draft.Description,
		Priority:         draft.Priority,
		EndDate:          draft.EndDate,
		ResponsibleUsers: draft.ResponsibleUsers,
		Labels:           draft.Labels,
	}
	return updateBoard(ws, subProjectID, bt, func(b domain.Board) (domain.Board, bool) {
		for li, l := range b.Lists {
			if l.ID != listID {
				continue
			}
			nl := l
			nl.Tasks = make([]domain.Task, len(l.Tasks)+1)
			copy(nl.Tasks, l.Tasks)
			nl.Tasks[len(l.Tasks)] = task
			nb := b
			nb.Lists = append([]domain.List(nil), b.Lists...)
			nb.Lists[li] = nl
			return nb, true
		}
		return b, false
	})
}

// UpdateTask merges the patch into the task wherever it sits within the named
// board. No-op when the task is not found.
func UpdateTask(ws domain.Workspace, subProjectID string, bt domain.BoardType, taskID string, patch TaskPatch) (domain.Workspace, bool) {
	return updateBoard(ws, subProjectID, bt, func(b domain.Board) (domain.Board, bool) {
		for li, l := range b.Lists {
			for ti, t := range l.Tasks {
				if t.ID != taskID {
					continue
				}
				nt := applyTaskPatch(t, patch)
				nl := l
				nl.Tasks = append([]domain.Task(nil), l.Tasks...)
				nl.Tasks[ti] = nt
				nb := b
				nb.Lists = append([]domain.List(nil), b.Lists...)
				nb.Lists[li] = nl
				return nb, true
			}
		}
		return b, false
	})
}

func applyTaskPatch(t domain.Task, patch TaskPatch) domain.Task {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.EndDate != nil {
		t.EndDate = *patch.EndDate
	}
	if patch.ResponsibleUsers != nil {
		t.ResponsibleUsers = append([]string(nil), *patch.ResponsibleUsers...)
	}
	if patch.IsArchived != nil {
		t.IsArchived = *patch.IsArchived
	}
	return t
}

// DeleteTask removes the task from whichever list contains it.
func DeleteTask(ws domain.Workspace, subProjectID string, bt domain.BoardType, taskID string) (domain.Workspace, bool) {
	return updateBoard(ws, subProjectID, bt, func(b domain.Board) (domain.Board, bool) {
		for li, l := range b.Lists {
			for ti, t := range l.Tasks {
				if t.ID != taskID {
					continue
				}
				nl := l
				nl.Tasks = append(append([]domain.Task(nil), l.Tasks[:ti]...), l.Tasks[ti+1:]...)
				nb := b
				nb.Lists = append([]domain.List(nil), b.Lists...)
				nb.Lists[li] = nl
				return nb, true
			}
		}
		return b, false
	})
}

// MoveTask removes the task from the source list and inserts it into the
// destination at targetIndex, as one atomic rewrite. When source and
// destination are the same list this is a pure reorder; targetIndex is then
// interpreted against the list with the task already removed, so moving a
// task to its own current index leaves the tree unchanged. The index is
// clamped to the destination's bounds.
func MoveTask(ws domain.Workspace, subProjectID string, bt domain.BoardType, taskID, fromListID, toListID string, targetIndex int) (domain.Workspace, bool) {
	return updateBoard(ws, subProjectID, bt, func(b domain.Board) (domain.Board, bool) {
		fromIdx, toIdx := -1, -1
		taskIdx := -1
		for li, l := range b.Lists {
			if l.ID == fromListID {
				fromIdx = li
				for ti, t := range l.Tasks {
					if t.ID == taskID {
						taskIdx = ti
						break
					}
				}
			}
			if l.ID == toListID {
				toIdx = li
			}
		}
		if fromIdx < 0 || toIdx < 0 || taskIdx < 0 {
			return b, false
		}

		task := b.Lists[fromIdx].Tasks[taskIdx]

		if fromIdx == toIdx {
			l := b.Lists[fromIdx]
			rest := append(append([]domain.Task(nil), l.Tasks[:taskIdx]...), l.Tasks[taskIdx+1:]...)
			idx := clampIndex(targetIndex, len(rest))
			if idx == taskIdx {
				return b, false
			}
			nl := l
			nl.Tasks = append(rest[:idx:idx], append([]domain.Task{task}, rest[idx:]...)...)
			nb := b
			nb.Lists = append([]domain.List(nil), b.Lists...)
			nb.Lists[fromIdx] = nl
			return nb, true
		}

		from := b.Lists[fromIdx]
		nfrom := from
		nfrom.Tasks = append(append([]domain.Task(nil), from.Tasks[:taskIdx]...), from.Tasks[taskIdx+1:]...)

		to := b.Lists[toIdx]
		idx := clampIndex(targetIndex, len(to.Tasks))
		nto := to
		nto.Tasks = append(append([]domain.Task(nil), to.Tasks[:idx]...), append([]domain.Task{task}, to.Tasks[idx:]...)...)

		nb := b
		nb.Lists = append([]domain.List(nil), b.Lists...)
		nb.Lists[fromIdx] = nfrom
		nb.Lists[toIdx] = nto
		return nb, true
	})
}
