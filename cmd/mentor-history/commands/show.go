package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/edumentor/mentor-history/internal/sessions"
	"github.com/edumentor/mentor-history/pkg/models"
)

// NewShowCommand creates the show command
func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [index]",
		Short: "Show sessions or a transcript without TUI",
		Long: `Show the session list in a non-interactive format.
Without arguments: lists all sessions grouped by date
With an index (from the listing): prints that session's full transcript`,
		RunE: runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.cleanup()

	loader, _, err := e.sessionSource()
	if err != nil {
		return err
	}

	list, err := loader(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch sessions: %w", err)
	}

	switch len(args) {
	case 0:
		return showSessions(list, e.cfg.History.ThisMonthBucket)
	case 1:
		index, err := strconv.Atoi(args[0])
		if err != nil || index < 1 || index > len(list) {
			return fmt.Errorf("index must be between 1 and %d", len(list))
		}
		printTranscript(&list[index-1])
		return nil
	default:
		return fmt.Errorf("too many arguments. Usage: mentor-history show [index]")
	}
}

func showSessions(list []models.Session, withThisMonth bool) error {
	if len(list) == 0 {
		fmt.Println("No conversations found")
		return nil
	}

	index := 1
	for _, group := range groupedForDisplay(list, withThisMonth) {
		fmt.Println(group.Bucket)
		fmt.Println("=========")
		for _, s := range group.Sessions {
			fmt.Printf("%d. %s\n", index, s.Title)
			fmt.Printf("   Messages: %d\n", s.MessageCount())
			fmt.Printf("   Started: %s\n", s.Timestamp.Local().Format("2006-01-02 15:04"))
			if s.ConversationID != "" {
				fmt.Printf("   Conversation: %s\n", s.ConversationID)
			}
			fmt.Println()
			index++
		}
	}
	return nil
}

// groupedForDisplay buckets sessions against the current wall clock while
// keeping the flat index order used by `show [index]`.
func groupedForDisplay(list []models.Session, withThisMonth bool) []sessions.BucketGroup {
	return sessions.GroupByBucket(list, time.Now(), withThisMonth)
}
