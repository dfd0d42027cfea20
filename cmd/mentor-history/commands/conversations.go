package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edumentor/mentor-history/internal/api"
	"github.com/edumentor/mentor-history/internal/sessions"
	"github.com/edumentor/mentor-history/pkg/models"
)

var (
	convLimit int
	convSkip  int
)

// NewConversationsCommand creates the conversations command
func NewConversationsCommand() *cobra.Command {
	convCmd := &cobra.Command{
		Use:   "conversations [conversation-id]",
		Short: "List server-grouped conversations, or dump one by id",
		Long: `Query the /conversations API directly, bypassing session reconstruction.
Unlike the default history view this includes archived conversations and
supports paging through older ones.`,
		RunE: runConversations,
	}
	convCmd.Flags().IntVar(&convLimit, "limit", 20, "How many conversations to fetch")
	convCmd.Flags().IntVar(&convSkip, "skip", 0, "How many conversations to skip (paging)")
	return convCmd
}

func runConversations(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.cleanup()

	if e.cfg.Server.Token == "" {
		return fmt.Errorf("no token configured (set server.token or MENTOR_SERVER_TOKEN)")
	}
	client := api.NewClient(e.cfg.Server.BaseURL, e.cfg.Server.Token, e.logger)

	if len(args) == 1 {
		conv, err := client.Conversation(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		entries := api.FlattenConversation(*conv)
		s := models.Session{Title: conv.Title, Messages: entries}
		if s.Title == "" && len(entries) > 0 {
			s.Title = sessions.TitleFor(entries[0].User)
		}
		printTranscript(&s)
		return nil
	}

	convs, err := client.Conversations(cmd.Context(), convLimit, convSkip)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Println("No conversations found")
		return nil
	}

	for i, conv := range convs {
		title := conv.Title
		if title == "" {
			title = sessions.PlaceholderTitle
		}
		status := ""
		if conv.IsArchived {
			status = " [archived]"
		} else if conv.IsActive {
			status = " [active]"
		}
		fmt.Printf("%d. %s%s\n", convSkip+i+1, title, status)
		fmt.Printf("   Id: %s\n", conv.ID)
		fmt.Printf("   Messages: %d\n", conv.MessageCount)
		fmt.Printf("   Created: %s\n", conv.CreatedAt)
		fmt.Println()
	}
	return nil
}
