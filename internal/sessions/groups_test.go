package sessions

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumentor/mentor-history/pkg/models"
)

func entry(user, assistant, ts string) models.HistoryEntry {
	return models.HistoryEntry{User: user, Assistant: assistant, Timestamp: ts}
}

func TestReconstruct_SingleConversation(t *testing.T) {
	entries := []models.HistoryEntry{
		entry("Hi", "Hello", "2024-01-01T10:00:00Z"),
		entry("More?", "Sure", "2024-01-01T10:30:00Z"),
	}

	got := Reconstruct(entries, Options{})

	require.Len(t, got, 1)
	assert.Equal(t, "Hi", got[0].Title)
	assert.Len(t, got[0].Messages, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), got[0].Timestamp)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC), got[0].LastMessageTimestamp)
}

func TestReconstruct_GapSplitsSessions(t *testing.T) {
	entries := []models.HistoryEntry{
		entry("Hi", "Hello", "2024-01-01T10:00:00Z"),
		entry("More?", "Sure", "2024-01-01T12:00:00Z"), // 2h gap
	}

	got := Reconstruct(entries, Options{})

	require.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, "More?", got[0].Title)
	assert.Equal(t, "Hi", got[1].Title)
	assert.Len(t, got[0].Messages, 1)
	assert.Len(t, got[1].Messages, 1)
}

func TestReconstruct_ThresholdBoundary(t *testing.T) {
	base := "2024-03-10T08:00:00Z"

	t.Run("exactly threshold apart splits", func(t *testing.T) {
		entries := []models.HistoryEntry{
			entry("a", "b", base),
			entry("c", "d", "2024-03-10T09:00:00Z"),
		}
		got := Reconstruct(entries, Options{Threshold: time.Hour})
		assert.Len(t, got, 2)
	})

	t.Run("just under threshold stays together", func(t *testing.T) {
		entries := []models.HistoryEntry{
			entry("a", "b", base),
			entry("c", "d", "2024-03-10T08:59:59Z"),
		}
		got := Reconstruct(entries, Options{Threshold: time.Hour})
		require.Len(t, got, 1)
		assert.Len(t, got[0].Messages, 2)
	})

	t.Run("identical timestamps stay together", func(t *testing.T) {
		entries := []models.HistoryEntry{
			entry("a", "b", base),
			entry("c", "d", base),
		}
		got := Reconstruct(entries, Options{Threshold: time.Hour})
		require.Len(t, got, 1)
		assert.Len(t, got[0].Messages, 2)
	})
}

func TestReconstruct_SortsOutOfOrderInput(t *testing.T) {
	entries := []models.HistoryEntry{
		entry("second", "y", "2024-01-01T11:00:00Z"),
		entry("first", "x", "2024-01-01T10:30:00Z"),
	}

	got := Reconstruct(entries, Options{})

	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Messages[0].User)
	assert.Equal(t, "second", got[0].Messages[1].User)
	assert.Equal(t, "first", got[0].Title)
}

func TestReconstruct_DropsBlankEntries(t *testing.T) {
	got := Reconstruct([]models.HistoryEntry{
		entry("", "", "2024-01-01T10:00:00Z"),
		entry("  ", "\t", "2024-01-01T10:05:00Z"),
	}, Options{})
	assert.Empty(t, got)
}

func TestReconstruct_EmptyAndNilInput(t *testing.T) {
	assert.Empty(t, Reconstruct(nil, Options{}))
	assert.Empty(t, Reconstruct([]models.HistoryEntry{}, Options{}))
}

// Every non-blank entry must end up in exactly one session, in ascending
// order within its session.
func TestReconstruct_CoverageAndOrdering(t *testing.T) {
	entries := []models.HistoryEntry{
		entry("q1", "a1", "2024-05-01T09:00:00Z"),
		entry("q2", "a2", "2024-05-01T09:10:00Z"),
		entry("q3", "a3", "2024-05-01T12:00:00Z"),
		entry("q4", "a4", "2024-05-02T07:30:00Z"),
		entry("q5", "a5", "2024-05-02T07:45:00Z"),
		entry("", "", "2024-05-02T07:46:00Z"), // dropped
	}

	got := Reconstruct(entries, Options{})

	require.Len(t, got, 3)

	seen := map[string]int{}
	total := 0
	for _, s := range got {
		last := time.Time{}
		for _, m := range s.Messages {
			seen[m.User]++
			total++
			at, err := ParseTimestamp(m.Timestamp)
			require.NoError(t, err)
			assert.False(t, at.Before(last), "messages within a session must ascend")
			last = at
		}
	}
	assert.Equal(t, 5, total)
	for _, q := range []string{"q1", "q2", "q3", "q4", "q5"} {
		assert.Equal(t, 1, seen[q], "entry %s must appear exactly once", q)
	}

	// Sessions descend by first-message time.
	for i := 1; i < len(got); i++ {
		assert.True(t, !got[i-1].Timestamp.Before(got[i].Timestamp))
	}
}

func TestReconstruct_TruncatesToMaxSessions(t *testing.T) {
	var entries []models.HistoryEntry
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		// 3h apart, each entry its own session.
		ts := base.Add(time.Duration(i) * 3 * time.Hour)
		entries = append(entries, entry("q", "a", ts.Format(time.RFC3339)))
	}

	got := Reconstruct(entries, Options{MaxSessions: 3})

	require.Len(t, got, 3)
	// The retained sessions are the most recent ones.
	assert.Equal(t, base.Add(21*time.Hour), got[0].Timestamp)
	assert.Equal(t, base.Add(15*time.Hour), got[2].Timestamp)
}

func TestReconstruct_Idempotent(t *testing.T) {
	entries := []models.HistoryEntry{
		entry("xin chào", "chào bạn", "2024-02-01T10:00:00Z"),
		entry("tiếp", "ok", "2024-02-01T10:20:00Z"),
		entry("mới", "ok", "2024-02-01T14:00:00Z"),
	}

	first := Reconstruct(entries, Options{})
	second := Reconstruct(entries, Options{})

	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.NotEmpty(t, first[0].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestReconstruct_MalformedTimestampOpensFlaggedSession(t *testing.T) {
	var warnings int
	entries := []models.HistoryEntry{
		entry("good", "a", "2024-01-01T10:00:00Z"),
		entry("broken", "a", "not-a-timestamp"),
	}

	got := Reconstruct(entries, Options{
		Warn: func(msg string, args ...any) { warnings++ },
	})

	require.Len(t, got, 2)
	assert.Equal(t, 1, warnings)

	// The flagged session sorts last (zero timestamp) and keeps its entry.
	anomalous := got[len(got)-1]
	assert.True(t, anomalous.Anomalous)
	assert.Equal(t, "broken", anomalous.Messages[0].User)
	assert.True(t, anomalous.Timestamp.IsZero())

	// The valid entry is untouched by the anomaly.
	assert.False(t, got[0].Anomalous)
	assert.Equal(t, "good", got[0].Title)
}

func TestReconstruct_PlaceholderUpgradedByLaterUserText(t *testing.T) {
	entries := []models.HistoryEntry{
		entry("", "Welcome back! Ready to continue?", "2024-01-01T10:00:00Z"),
		entry("Explain photosynthesis", "Sure...", "2024-01-01T10:05:00Z"),
	}

	got := Reconstruct(entries, Options{})

	require.Len(t, got, 1)
	assert.Equal(t, "Explain photosynthesis", got[0].Title)
}

func TestTitleFor(t *testing.T) {
	tests := []struct {
		name string
		user string
		want string
	}{
		{"plain", "What is osmosis?", "What is osmosis?"},
		{"blank gives placeholder", "   ", PlaceholderTitle},
		{"empty gives placeholder", "", PlaceholderTitle},
		{"whitespace collapsed", "a\n\tb   c", "a b c"},
		{
			"long text truncated with ellipsis",
			strings.Repeat("x", 80),
			strings.Repeat("x", 60) + "...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFor(tt.user))
		})
	}
}

func TestTitleFor_RuneAwareTruncation(t *testing.T) {
	// 70 multi-byte runes must cut at 60 runes, not 60 bytes.
	long := strings.Repeat("ề", 70)
	got := TitleFor(long)
	assert.Equal(t, strings.Repeat("ề", 60)+"...", got)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-01T10:00:00Z", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-01-01T10:00:00.500Z", time.Date(2024, 1, 1, 10, 0, 0, 500e6, time.UTC)},
		{"2024-01-01T10:00:00", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-01-01 10:00:00", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, got.Equal(tt.want), "parse %s", tt.in)
	}

	_, err := ParseTimestamp("yesterday-ish")
	assert.Error(t, err)
}
