package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumentor/mentor-history/internal/sessions"
	"github.com/edumentor/mentor-history/pkg/models"
)

func TestDecodeHistoryPayload_FlatShape(t *testing.T) {
	raw := json.RawMessage(`{
		"username": "linh",
		"history": [
			{"user": "Hi", "assistant": "Hello", "timestamp": "2024-01-01T10:00:00Z"}
		]
	}`)

	got, err := decodeHistoryPayload(raw)

	require.NoError(t, err)
	assert.False(t, got.Grouped)
	assert.Equal(t, "linh", got.Username)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "Hi", got.Entries[0].User)
	assert.Empty(t, got.Conversations)
}

func TestDecodeHistoryPayload_GroupedShape(t *testing.T) {
	raw := json.RawMessage(`{
		"username": "linh",
		"conversations": [
			{
				"_id": "665f1a",
				"title": "Quang hợp",
				"created_at": "2024-01-01T10:00:00Z",
				"updated_at": "2024-01-01T10:30:00Z",
				"message_count": 2,
				"is_active": true,
				"messages": [
					{"role": "user", "content": "Quang hợp là gì?", "timestamp": "2024-01-01T10:00:00Z"},
					{"role": "assistant", "content": "Là quá trình...", "timestamp": "2024-01-01T10:00:05Z"}
				]
			}
		],
		"total_conversations": 1,
		"total_messages": 2
	}`)

	got, err := decodeHistoryPayload(raw)

	require.NoError(t, err)
	assert.True(t, got.Grouped)
	require.Len(t, got.Conversations, 1)
	assert.Equal(t, "665f1a", got.Conversations[0].ID)
	assert.Empty(t, got.Entries)
}

func TestDecodeHistoryPayload_Malformed(t *testing.T) {
	_, err := decodeHistoryPayload(json.RawMessage(`["not", "an", "object"]`))
	assert.Error(t, err)
}

func TestHistoryResultSessions_FlatUsesReconstruction(t *testing.T) {
	r := &HistoryResult{
		Entries: []models.HistoryEntry{
			{User: "a", Assistant: "b", Timestamp: "2024-01-01T10:00:00Z"},
			{User: "c", Assistant: "d", Timestamp: "2024-01-01T13:00:00Z"},
		},
	}

	got := r.Sessions(sessions.Options{Threshold: time.Hour})

	require.Len(t, got, 2)
	// Reconstructed sessions have no backend id to act on.
	assert.Empty(t, got[0].ConversationID)
}

func TestHistoryResultSessions_GroupedIsAuthoritative(t *testing.T) {
	r := &HistoryResult{
		Grouped: true,
		Conversations: []models.Conversation{
			{
				ID:        "conv-1",
				Title:     "Ôn thi",
				CreatedAt: "2024-01-02T09:00:00Z",
				UpdatedAt: "2024-01-02T09:40:00Z",
				Messages: []models.ConversationTurn{
					{Role: "user", Content: "q1", Timestamp: "2024-01-02T09:00:00Z"},
					{Role: "assistant", Content: "a1", Timestamp: "2024-01-02T09:00:04Z"},
					// A 3h gap inside one conversation must NOT split it:
					// the server's grouping wins over the time-gap heuristic.
					{Role: "user", Content: "q2", Timestamp: "2024-01-02T12:00:00Z"},
					{Role: "assistant", Content: "a2", Timestamp: "2024-01-02T12:00:06Z"},
				},
			},
		},
	}

	got := r.Sessions(sessions.Options{Threshold: time.Hour})

	require.Len(t, got, 1)
	assert.Equal(t, "conv-1", got[0].ConversationID)
	assert.Equal(t, "Ôn thi", got[0].Title)
	assert.Len(t, got[0].Messages, 2)
}

func TestSessionsFromConversations(t *testing.T) {
	convs := []models.Conversation{
		{
			ID:        "old",
			CreatedAt: "2024-01-01T08:00:00Z",
			UpdatedAt: "2024-01-01T08:30:00Z",
			Messages: []models.ConversationTurn{
				{Role: "user", Content: "first question", Timestamp: "2024-01-01T08:00:00Z"},
			},
		},
		{
			ID:         "archived",
			IsArchived: true,
			CreatedAt:  "2024-01-03T08:00:00Z",
			Messages: []models.ConversationTurn{
				{Role: "user", Content: "hidden", Timestamp: "2024-01-03T08:00:00Z"},
			},
		},
		{
			ID:        "new",
			Title:     "Đạo hàm",
			CreatedAt: "2024-01-02T08:00:00Z",
			UpdatedAt: "2024-01-02T08:30:00Z",
			Messages: []models.ConversationTurn{
				{Role: "user", Content: "q", Timestamp: "2024-01-02T08:00:00Z"},
			},
		},
	}

	got := SessionsFromConversations(convs, sessions.Options{})

	require.Len(t, got, 2, "archived conversation must be skipped")
	assert.Equal(t, "new", got[0].ConversationID, "newest first")
	assert.Equal(t, "old", got[1].ConversationID)
	// Untitled conversation falls back to first-user-message titling.
	assert.Equal(t, "first question", got[1].Title)
	assert.Equal(t,
		time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC),
		got[1].LastMessageTimestamp)
}

func TestSessionsFromConversations_BadCreatedAtFlagged(t *testing.T) {
	warned := 0
	convs := []models.Conversation{
		{
			ID:        "broken",
			CreatedAt: "???",
			Messages: []models.ConversationTurn{
				{Role: "user", Content: "q", Timestamp: "2024-01-02T08:00:00Z"},
			},
		},
	}

	got := SessionsFromConversations(convs, sessions.Options{
		Warn: func(string, ...any) { warned++ },
	})

	require.Len(t, got, 1)
	assert.True(t, got[0].Anomalous)
	assert.Equal(t, 1, warned)
}

func TestFlattenConversation(t *testing.T) {
	conv := models.Conversation{
		Messages: []models.ConversationTurn{
			{Role: "user", Content: "q1", Timestamp: "2024-01-01T10:00:00Z"},
			{Role: "assistant", Content: "a1", Timestamp: "2024-01-01T10:00:05Z"},
			{Role: "user", Content: "q2", Timestamp: "2024-01-01T10:01:00Z"},
			// No assistant reply for q2 (request in flight when saved).
		},
	}

	got := FlattenConversation(conv)

	require.Len(t, got, 2)
	assert.Equal(t, models.HistoryEntry{User: "q1", Assistant: "a1", Timestamp: "2024-01-01T10:00:00Z"}, got[0])
	assert.Equal(t, models.HistoryEntry{User: "q2", Timestamp: "2024-01-01T10:01:00Z"}, got[1])
}

func TestFlattenConversation_AssistantInitiated(t *testing.T) {
	conv := models.Conversation{
		Messages: []models.ConversationTurn{
			{Role: "assistant", Content: "Welcome back!", Timestamp: "2024-01-01T10:00:00Z"},
			{Role: "user", Content: "thanks", Timestamp: "2024-01-01T10:00:30Z"},
			{Role: "assistant", Content: "np", Timestamp: "2024-01-01T10:00:35Z"},
		},
	}

	got := FlattenConversation(conv)

	require.Len(t, got, 2)
	assert.Empty(t, got[0].User)
	assert.Equal(t, "Welcome back!", got[0].Assistant)
	assert.Equal(t, "thanks", got[1].User)
}

func TestFlattenConversation_SkipsSystemTurns(t *testing.T) {
	conv := models.Conversation{
		Messages: []models.ConversationTurn{
			{Role: "system", Content: "prompt", Timestamp: "2024-01-01T09:59:00Z"},
			{Role: "user", Content: "q", Timestamp: "2024-01-01T10:00:00Z"},
			{Role: "assistant", Content: "a", Timestamp: "2024-01-01T10:00:05Z"},
		},
	}

	got := FlattenConversation(conv)

	require.Len(t, got, 1)
	assert.Equal(t, "q", got[0].User)
}
