package service

import (
	"strings"

	"github.com/Strob0t/ReviewForge/internal/domain/lifecycle"
	"github.com/Strob0t/ReviewForge/internal/domain/session"
)

// allTodosCompleted reports whether every task on the host's list is done.
// An empty list is not a completion: there was nothing to finish.
func allTodosCompleted(todos []lifecycle.Todo) bool {
	if len(todos) == 0 {
		return false
	}
	for _, t := range todos {
		if t.Status != lifecycle.TodoStatusCompleted {
			return false
		}
	}
	return true
}

// todoSnapshot serializes the todo list into a comparable string. Only the
// content and status matter; ordering is preserved as the host sent it.
func todoSnapshot(todos []lifecycle.Todo) string {
	var sb strings.Builder
	for _, t := range todos {
		sb.WriteString(t.Status)
		sb.WriteString("|")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// justCompleted detects the transition into all-done: the current list is
// fully completed and differs from the snapshot stored on the session. This
// keeps repeated end-of-session events from re-triggering completion review.
func justCompleted(st *session.State, todos []lifecycle.Todo) bool {
	if !allTodosCompleted(todos) {
		return false
	}
	return todoSnapshot(todos) != st.TodoSnapshot
}
