package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/edumentor/mentor-history/pkg/models"
)

// Loader fetches the session list, from the backend or a local export.
type Loader func(ctx context.Context) ([]models.Session, error)

// ConversationActions is the subset of the backend client the TUI needs for
// per-conversation actions. Nil when browsing an offline export or a
// reconstructed feed with no backend ids.
type ConversationActions interface {
	ArchiveConversation(ctx context.Context, id string) error
	DeleteConversation(ctx context.Context, id string) error
}

// Message types for async operations
type (
	// SessionsLoadedMsg carries a refreshed session list.
	SessionsLoadedMsg struct {
		Sessions []models.Session
		Error    error
	}

	// ActionDoneMsg reports the outcome of archive/delete.
	ActionDoneMsg struct {
		Action         string
		ConversationID string
		Error          error
	}

	// TickMsg drives the loading spinner animation.
	TickMsg time.Time
)

// loadSessionsCmd fetches sessions asynchronously.
func loadSessionsCmd(ctx context.Context, load Loader) tea.Cmd {
	return func() tea.Msg {
		list, err := load(ctx)
		return SessionsLoadedMsg{
			Sessions: list,
			Error:    err,
		}
	}
}

// archiveCmd archives a conversation asynchronously.
func archiveCmd(ctx context.Context, actions ConversationActions, id string) tea.Cmd {
	return func() tea.Msg {
		err := actions.ArchiveConversation(ctx, id)
		return ActionDoneMsg{
			Action:         "archive",
			ConversationID: id,
			Error:          err,
		}
	}
}

// deleteCmd deletes a conversation asynchronously.
func deleteCmd(ctx context.Context, actions ConversationActions, id string) tea.Cmd {
	return func() tea.Msg {
		err := actions.DeleteConversation(ctx, id)
		return ActionDoneMsg{
			Action:         "delete",
			ConversationID: id,
			Error:          err,
		}
	}
}

// tickCmd creates a ticker for spinner animation.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
