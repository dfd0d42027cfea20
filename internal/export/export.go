// Package export reads EduMentor data-takeout dumps: newline-delimited JSON
// files of {user, assistant, timestamp} records, the same shape the
// /chat_history endpoint serves. DuckDB's read_json does the heavy lifting,
// so partially damaged dumps (missing fields, mixed schemas) still load.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/edumentor/mentor-history/internal/db"
	"github.com/edumentor/mentor-history/pkg/models"
)

const loadTimeout = 30 * time.Second

// LoadHistoryFile reads every history entry from a JSONL export. Missing
// fields come back empty; the grouping engine decides what to drop or flag.
func LoadHistoryFile(ctx context.Context, path string) ([]models.HistoryEntry, error) {
	database, err := db.Get()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			COALESCE(CAST("user" AS VARCHAR), '') as user_text,
			COALESCE(CAST(assistant AS VARCHAR), '') as assistant_text,
			COALESCE(CAST(timestamp AS VARCHAR), '') as ts
		FROM read_json('%s',
			format = 'newline_delimited',
			union_by_name = true
		)
	`, escapePath(path))

	resultChan := executeHistoryQueryAsync(ctx, database, query)

	select {
	case result := <-resultChan:
		if result.err != nil {
			return nil, result.err
		}
		return result.entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type historyResult struct {
	entries []models.HistoryEntry
	err     error
}

// executeHistoryQueryAsync runs the export query on its own goroutine with a
// timeout, streaming rows into entry values and honoring cancellation
// between rows.
func executeHistoryQueryAsync(ctx context.Context, database *sql.DB, query string) <-chan historyResult {
	resultChan := make(chan historyResult, 1)

	go func() {
		defer close(resultChan)

		queryCtx, cancel := context.WithTimeout(ctx, loadTimeout)
		defer cancel()

		rows, err := database.QueryContext(queryCtx, query)
		if err != nil {
			select {
			case resultChan <- historyResult{err: fmt.Errorf("failed to read history export: %w", err)}:
			case <-ctx.Done():
			}
			return
		}
		defer rows.Close()

		fail := func(err error) {
			select {
			case resultChan <- historyResult{err: err}:
			case <-ctx.Done():
			}
		}

		var entries []models.HistoryEntry
		for rows.Next() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			var user, assistant, ts sql.NullString
			if err := rows.Scan(&user, &assistant, &ts); err != nil {
				fail(fmt.Errorf("failed to scan history row: %w", err))
				return
			}
			entries = append(entries, models.HistoryEntry{
				User:      user.String,
				Assistant: assistant.String,
				Timestamp: ts.String,
			})
		}
		// A mid-stream failure must not pass for a short but valid export.
		if err := rows.Err(); err != nil {
			fail(fmt.Errorf("failed to read history export: %w", err))
			return
		}

		select {
		case resultChan <- historyResult{entries: entries}:
		case <-ctx.Done():
		}
	}()

	return resultChan
}

// escapePath guards the single-quoted path literal inside read_json.
func escapePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
