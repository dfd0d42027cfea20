package models

import "time"

// HistoryEntry is one question/answer exchange as returned by the EduMentor
// backend. Timestamp stays a raw ISO-8601 string: the legacy feed mixes
// offset-aware and naive timestamps, so parsing (and malformed-value
// handling) happens in the grouping engine, not at decode time.
type HistoryEntry struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
	Timestamp string `json:"timestamp"`
}

// Session is a reconstructed conversation: a contiguous run of history
// entries inferred (or known, for server-grouped conversations) to belong to
// one chat.
type Session struct {
	ID string
	// ConversationID is the backend document id when the session came from
	// the grouped /conversations API. Empty for sessions reconstructed from
	// the flat feed; archive and delete need it.
	ConversationID       string
	Title                string
	Timestamp            time.Time // first message
	LastMessageTimestamp time.Time
	Messages             []HistoryEntry
	// Anomalous marks a session opened by an unparsable timestamp.
	Anomalous bool
}

// MessageCount returns the number of Q/A exchanges in the session.
func (s Session) MessageCount() int { return len(s.Messages) }

// Conversation is the newer server-grouped history shape, one Mongo document
// per chat with alternating role/content turns.
type Conversation struct {
	ID           string             `json:"_id"`
	SessionID    string             `json:"session_id"`
	Title        string             `json:"title"`
	CreatedAt    string             `json:"created_at"`
	UpdatedAt    string             `json:"updated_at"`
	MessageCount int                `json:"message_count"`
	IsActive     bool               `json:"is_active"`
	IsArchived   bool               `json:"is_archived"`
	Messages     []ConversationTurn `json:"messages"`
}

// ConversationTurn is a single turn inside a grouped conversation.
type ConversationTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// DateBucket is the coarse display-time category used to group sessions in
// the history list.
type DateBucket int

const (
	BucketToday DateBucket = iota
	BucketYesterday
	BucketLastSevenDays
	BucketThisMonth
	BucketOlder
)

// String returns the display header for the bucket.
func (b DateBucket) String() string {
	switch b {
	case BucketToday:
		return "Today"
	case BucketYesterday:
		return "Yesterday"
	case BucketLastSevenDays:
		return "Last 7 days"
	case BucketThisMonth:
		return "This month"
	case BucketOlder:
		return "Older"
	default:
		return "Unknown"
	}
}
