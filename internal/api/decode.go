package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/edumentor/mentor-history/internal/sessions"
	"github.com/edumentor/mentor-history/pkg/models"
)

// HistoryResult is the normalized form of a /chat_history response. The
// backend has shipped two shapes: the legacy flat feed and the newer
// server-grouped one. Exactly one of Entries or Conversations is populated;
// Grouped says which.
//
// The flat HistoryEntry is the canonical shape in this codebase. When the
// server has already grouped, that grouping is authoritative (it carries
// real document ids for archive/delete) and the reconstruction engine is
// bypassed; Flatten exists for callers that want to re-run it anyway.
type HistoryResult struct {
	Username      string
	Grouped       bool
	Entries       []models.HistoryEntry
	Conversations []models.Conversation
}

// historyPayload is the tagged union of both observed response shapes.
type historyPayload struct {
	Username      string                `json:"username"`
	History       []models.HistoryEntry `json:"history"`
	Conversations []models.Conversation `json:"conversations"`
}

func decodeHistoryPayload(raw json.RawMessage) (*HistoryResult, error) {
	var payload historyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("unrecognized history payload: %w", err)
	}

	result := &HistoryResult{Username: payload.Username}
	if payload.Conversations != nil {
		result.Grouped = true
		result.Conversations = payload.Conversations
		return result, nil
	}
	result.Entries = payload.History
	return result, nil
}

// Sessions converts the result into the display list. Grouped responses map
// directly (one session per conversation); the flat feed goes through the
// time-gap reconstruction engine with the given options.
func (r *HistoryResult) Sessions(opts sessions.Options) []models.Session {
	if r == nil {
		return nil
	}
	if r.Grouped {
		return SessionsFromConversations(r.Conversations, opts)
	}
	return sessions.Reconstruct(r.Entries, opts)
}

// Flatten returns the result as flat history entries regardless of shape,
// for callers that treat reconstruction as the single source of grouping.
func (r *HistoryResult) Flatten() []models.HistoryEntry {
	if r == nil {
		return nil
	}
	if !r.Grouped {
		return r.Entries
	}
	var out []models.HistoryEntry
	for _, conv := range r.Conversations {
		out = append(out, FlattenConversation(conv)...)
	}
	return out
}

// SessionsFromConversations adapts server-grouped conversations directly to
// sessions, trusting the server's grouping. Archived conversations are
// skipped; ordering and the retained-count cap follow the same rules as
// reconstruction (newest first, opts.MaxSessions).
func SessionsFromConversations(convs []models.Conversation, opts sessions.Options) []models.Session {
	warn := opts.Warn
	if warn == nil {
		warn = func(string, ...any) {}
	}
	maxSessions := opts.MaxSessions
	if maxSessions <= 0 {
		maxSessions = sessions.DefaultMaxSessions
	}

	list := make([]models.Session, 0, len(convs))
	for _, conv := range convs {
		if conv.IsArchived {
			continue
		}
		entries := FlattenConversation(conv)
		if len(entries) == 0 {
			continue
		}

		s := models.Session{
			ID:             conv.ID,
			ConversationID: conv.ID,
			Title:          conv.Title,
			Messages:       entries,
		}
		if strings.TrimSpace(s.Title) == "" {
			s.Title = sessions.TitleFor(entries[0].User)
		}

		createdAt, err := sessions.ParseTimestamp(conv.CreatedAt)
		if err != nil {
			warn("conversation has unparsable created_at", "id", conv.ID, "created_at", conv.CreatedAt)
			s.Anomalous = true
		}
		s.Timestamp = createdAt

		updatedAt, err := sessions.ParseTimestamp(conv.UpdatedAt)
		if err != nil {
			updatedAt = createdAt
		}
		s.LastMessageTimestamp = updatedAt

		list = append(list, s)
	}

	// The /conversations API already orders newest first, but the legacy
	// /chat_history variant does not guarantee it.
	sortSessionsNewestFirst(list)
	if len(list) > maxSessions {
		list = list[:maxSessions]
	}
	return list
}

// FlattenConversation pairs role/content turns into Q/A history entries. A
// user turn opens a pair and the next assistant turn completes it; an
// assistant turn with no pending user text yields an entry with an empty
// user field, which titling treats as assistant-initiated.
func FlattenConversation(conv models.Conversation) []models.HistoryEntry {
	var out []models.HistoryEntry
	var pending *models.HistoryEntry

	flush := func() {
		if pending != nil {
			out = append(out, *pending)
			pending = nil
		}
	}

	for _, turn := range conv.Messages {
		switch turn.Role {
		case "user":
			flush()
			pending = &models.HistoryEntry{User: turn.Content, Timestamp: turn.Timestamp}
		case "assistant":
			if pending != nil {
				pending.Assistant = turn.Content
				flush()
				continue
			}
			out = append(out, models.HistoryEntry{Assistant: turn.Content, Timestamp: turn.Timestamp})
		default:
			// System/tool turns are backend bookkeeping, not display content.
		}
	}
	flush()
	return out
}

func sortSessionsNewestFirst(list []models.Session) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.After(list[j].Timestamp)
	})
}
