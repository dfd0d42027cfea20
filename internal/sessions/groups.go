package sessions

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edumentor/mentor-history/pkg/models"
)

const (
	// DefaultThreshold is the inactivity gap that closes a session.
	DefaultThreshold = time.Hour
	// DefaultMaxSessions matches the web sidebar, which keeps the 50 most
	// recent conversations.
	DefaultMaxSessions = 50

	// PlaceholderTitle labels sessions whose first entry carries no user
	// text, until a later entry in the same session provides one.
	PlaceholderTitle = "Conversation"

	maxTitleRunes = 60
)

// sessionNamespace seeds UUIDv5 session ids so the same input always yields
// the same id.
var sessionNamespace = uuid.MustParse("7d2c3a92-4f0b-5e1d-9c76-2b8a41f0d6e3")

// Options tunes the reconstruction engine. The zero value is usable: defaults
// are filled in by Reconstruct.
type Options struct {
	// Threshold is the inactivity gap at which a new session starts. Two
	// entries exactly Threshold apart belong to different sessions.
	Threshold time.Duration
	// MaxSessions caps the returned list to the most recent sessions.
	MaxSessions int
	// Warn receives diagnostics for malformed input (slog-style message and
	// key/value pairs). Never required; nil means discard.
	Warn func(msg string, args ...any)
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = DefaultMaxSessions
	}
	if o.Warn == nil {
		o.Warn = func(string, ...any) {}
	}
	return o
}

// timestampLayouts covers the shapes the backend has been seen emitting:
// RFC 3339 with and without fractional seconds, and the naive isoformat
// Mongo documents carry.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a backend timestamp string. Naive timestamps are
// interpreted as UTC, which is what the backend stores.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

type parsedEntry struct {
	entry     models.HistoryEntry
	at        time.Time
	malformed bool
}

// Reconstruct groups a flat, possibly out-of-order list of history entries
// into sessions, splitting wherever the gap between consecutive entries
// reaches the inactivity threshold. The result is ordered newest session
// first and capped to MaxSessions.
//
// The function is pure: same input (and options) gives identical output, and
// it never returns an error. Entries with blank user and assistant text are
// dropped. Entries whose timestamp cannot be parsed always open a fresh
// session, flagged Anomalous and reported through opts.Warn.
func Reconstruct(entries []models.HistoryEntry, opts Options) []models.Session {
	opts = opts.withDefaults()

	parsed := make([]parsedEntry, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.User) == "" && strings.TrimSpace(e.Assistant) == "" {
			continue
		}
		at, err := ParseTimestamp(e.Timestamp)
		if err != nil {
			opts.Warn("unparsable history timestamp", "timestamp", e.Timestamp, "error", err)
			parsed = append(parsed, parsedEntry{entry: e, malformed: true})
			continue
		}
		parsed = append(parsed, parsedEntry{entry: e, at: at})
	}

	// Stable so entries sharing a timestamp keep their feed order.
	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].at.Before(parsed[j].at)
	})

	var out []models.Session
	var cur *models.Session
	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}

	for _, p := range parsed {
		boundary := cur == nil || p.malformed ||
			p.at.Sub(cur.LastMessageTimestamp) >= opts.Threshold
		if boundary {
			flush()
			s := models.Session{
				ID:                   sessionID(p.entry),
				Title:                TitleFor(p.entry.User),
				Timestamp:            p.at,
				LastMessageTimestamp: p.at,
				Messages:             []models.HistoryEntry{p.entry},
				Anomalous:            p.malformed,
			}
			cur = &s
			continue
		}
		cur.Messages = append(cur.Messages, p.entry)
		cur.LastMessageTimestamp = p.at
		if cur.Title == PlaceholderTitle && strings.TrimSpace(p.entry.User) != "" {
			cur.Title = TitleFor(p.entry.User)
		}
	}
	flush()

	// Newest conversation first.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > opts.MaxSessions {
		out = out[:opts.MaxSessions]
	}
	return out
}

// TitleFor derives a session label from user text: whitespace-collapsed and
// truncated to 60 runes, or the placeholder when the text is blank.
func TitleFor(user string) string {
	user = strings.Join(strings.Fields(user), " ")
	if user == "" {
		return PlaceholderTitle
	}
	return truncateRunes(user, maxTitleRunes)
}

// truncateRunes truncates by rune count, not bytes; titles are frequently
// Vietnamese.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// sessionID derives a stable id from the session's opening entry, so
// re-running reconstruction over the same feed yields the same ids.
func sessionID(first models.HistoryEntry) string {
	return uuid.NewSHA1(sessionNamespace, []byte(first.Timestamp+"\x00"+first.User)).String()
}
