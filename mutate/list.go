package mutate

import (
	"github.com/google/uuid"

	"boardsync/domain"
)

// ListPatch updates only the fields whose pointers are set.
type ListPatch struct {
	Title *string
}

// AddList appends a new empty list to the named board.
func AddList(ws domain.Workspace, subProjectID string, bt domain.BoardType, title string) (domain.Workspace, bool) {
	list := domain.List{ID: uuid.NewString(), Title: title, Tasks: []domain.Task{}}
	return updateBoard(ws, subProjectID, bt, func(b domain.Board) (domain.Board, bool) {
		nb := b
		nb.Lists = make([]domain.List, len(b.Lists)+1)
		copy(nb.Lists, b.Lists)
		nb.Lists[len(b.Lists)] = list
		return nb, true
	})
}

// UpdateList merges the patch into the named list.
func UpdateList(ws domain.Workspace, subProjectID string, bt domain.BoardType, listID string, patch ListPatch) (domain.Workspace, bool) {
	return updateBoard(ws, subProjectID, bt, func(b domain.Board) (domain.Board, bool) {
		for li, l := range b.Lists {
			if l.ID != listID {
				continue
			}
			nl := l
			if patch.Title != nil {
				nl.Title = *patch.Title
			}
			nb := b
			nb.Lists = append([]domain.List(nil), b.Lists...)
			nb.Lists[li] = nl
			return nb, true
		}
		return b, false
	})
}

// DeleteList removes the list and every task it contains.
func DeleteList(ws domain.Workspace, subProjectID string, bt domain.BoardType, listID string) (domain.Workspace, bool) {
	return updateBoard(ws, subProjectID, bt, func(b domain.Board) (domain.Board, bool) {
		for li, l := range b.Lists {
			if l.ID != listID {
				continue
			}
			nb := b
			nb.Lists = append(append([]domain.List(nil), b.Lists[:li]...), b.Lists[li+1:]...)
			return nb, true
		}
		return b, false
	})
}

// ReorderLists moves the list at fromIndex to toIndex within the board.
// Indices are clamped; equal indices are a no-op.
func ReorderLists(ws domain.Workspace, subProjectID string, bt domain.BoardType, fromIndex, toIndex int) (domain.Workspace, bool) {
	return updateBoard(ws, subProjectID, bt, func(b domain.Board) (domain.Board, bool) {
		if len(b.Lists) == 0 {
			return b, false
		}
		from := clampIndex(fromIndex, len(b.Lists)-1)
		to := clampIndex(toIndex, len(b.Lists)-1)
		if from == to {
			return b, false
		}
		moved := b.Lists[from]
		rest := append(append([]domain.List(nil), b.Lists[:from]...), b.Lists[from+1:]...)
		nb := b
		nb.Lists = append(rest[:to:to], append([]domain.List{moved}, rest[to:]...)...)
		return nb, true
	})
}
