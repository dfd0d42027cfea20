package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edumentor/mentor-history/internal/api"
	"github.com/edumentor/mentor-history/internal/export"
	"github.com/edumentor/mentor-history/internal/sessions"
	"github.com/edumentor/mentor-history/pkg/models"
)

// NewDebugCommand creates the debug-history command
func NewDebugCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "debug-history",
		Short: "Inspect the raw history feed and reconstruction diagnostics",
		RunE:  runDebugHistory,
	}
}

func runDebugHistory(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.cleanup()

	var (
		entries []models.HistoryEntry
		shape   string
	)

	if fromFile != "" {
		shape = "jsonl export: " + fromFile
		entries, err = export.LoadHistoryFile(cmd.Context(), fromFile)
		if err != nil {
			return fmt.Errorf("failed to load export: %w", err)
		}
	} else {
		if e.cfg.Server.Username == "" || e.cfg.Server.Token == "" {
			return fmt.Errorf("backend debug needs server.username and server.token configured")
		}
		client := api.NewClient(e.cfg.Server.BaseURL, e.cfg.Server.Token, e.logger)
		result, err := client.ChatHistory(cmd.Context(), e.cfg.Server.Username)
		if err != nil {
			return fmt.Errorf("failed to fetch chat history: %w", err)
		}
		if result.Grouped {
			shape = fmt.Sprintf("server-grouped (%d conversations)", len(result.Conversations))
		} else {
			shape = "legacy flat feed"
		}
		entries = result.Flatten()
	}

	fmt.Println("Feed diagnostics")
	fmt.Println("==========================================")
	fmt.Printf("Shape: %s\n", shape)
	fmt.Printf("Entries: %d\n", len(entries))

	blanks := 0
	malformed := 0
	for _, entry := range entries {
		if strings.TrimSpace(entry.User) == "" && strings.TrimSpace(entry.Assistant) == "" {
			blanks++
			continue
		}
		if _, err := sessions.ParseTimestamp(entry.Timestamp); err != nil {
			malformed++
			fmt.Printf("  unparsable timestamp: %q\n", entry.Timestamp)
		}
	}
	fmt.Printf("Blank entries (dropped): %d\n", blanks)
	fmt.Printf("Malformed timestamps: %d\n", malformed)

	list := sessions.Reconstruct(entries, e.options())
	fmt.Printf("Reconstructed sessions: %d (threshold %s, cap %d)\n",
		len(list), e.cfg.History.Threshold(), e.cfg.History.MaxSessions)

	return nil
}
