package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edumentor/mentor-history/internal/api"
	"github.com/edumentor/mentor-history/internal/config"
	"github.com/edumentor/mentor-history/internal/export"
	"github.com/edumentor/mentor-history/internal/sessions"
	"github.com/edumentor/mentor-history/internal/tui"
	"github.com/edumentor/mentor-history/pkg/models"
)

var (
	debugMode bool
	fromFile  string
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mentor-history",
		Short: "Browse your EduMentor AI conversation history",
		Long: `mentor-history is a TUI application for browsing EduMentor AI conversations:
it fetches your chat history from the backend (or a local JSONL export),
reconstructs sessions from the flat feed, and groups them by date.`,
		RunE: runTUI,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Run in debug mode (list sessions without TUI)")
	rootCmd.PersistentFlags().StringVar(&fromFile, "file", "", "Read history from a JSONL export instead of the backend")
	rootCmd.AddCommand(NewShowCommand())
	rootCmd.AddCommand(NewDebugCommand())
	rootCmd.AddCommand(NewLoginCommand())
	rootCmd.AddCommand(NewConversationsCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env bundles the pieces every command needs.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	cleanup func() error
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, cleanup := config.SetupLogger(cfg.Log.File, config.ParseLevel(cfg.Log.Level))
	return &env{cfg: cfg, logger: logger, cleanup: cleanup}, nil
}

func (e *env) options() sessions.Options {
	return sessions.Options{
		Threshold:   e.cfg.History.Threshold(),
		MaxSessions: e.cfg.History.MaxSessions,
		Warn: func(msg string, args ...any) {
			e.logger.Warn(msg, args...)
		},
	}
}

// sessionSource builds the loader for the configured source. actions is nil
// when the source cannot serve archive/delete (local export files).
func (e *env) sessionSource() (tui.Loader, tui.ConversationActions, error) {
	if fromFile != "" {
		loader := func(ctx context.Context) ([]models.Session, error) {
			entries, err := export.LoadHistoryFile(ctx, fromFile)
			if err != nil {
				return nil, err
			}
			return sessions.Reconstruct(entries, e.options()), nil
		}
		return loader, nil, nil
	}

	if e.cfg.Server.Username == "" {
		return nil, nil, fmt.Errorf("no username configured (set server.username or MENTOR_SERVER_USERNAME)")
	}
	if e.cfg.Server.Token == "" {
		return nil, nil, fmt.Errorf("no token configured (set server.token or MENTOR_SERVER_TOKEN)")
	}

	client := api.NewClient(e.cfg.Server.BaseURL, e.cfg.Server.Token, e.logger)
	loader := func(ctx context.Context) ([]models.Session, error) {
		result, err := client.ChatHistory(ctx, e.cfg.Server.Username)
		if err != nil {
			return nil, err
		}
		return result.Sessions(e.options()), nil
	}
	return loader, client, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.cleanup()

	loader, actions, err := e.sessionSource()
	if err != nil {
		return err
	}

	// Debug mode: just list sessions without TUI
	if debugMode {
		list, err := loader(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch sessions: %w", err)
		}
		return runDebugMode(list, e.cfg.History.ThisMonthBucket)
	}

	selected, err := tui.Show(loader, actions, e.cfg.History.ThisMonthBucket)
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if selected == nil {
		return nil
	}
	printTranscript(selected)
	return nil
}

func runDebugMode(list []models.Session, withThisMonth bool) error {
	fmt.Println("=== Debug Mode: Sessions by Date ===")
	for _, group := range groupedForDisplay(list, withThisMonth) {
		fmt.Printf("\n%s\n", group.Bucket)
		for _, s := range group.Sessions {
			marker := ""
			if s.Anomalous {
				marker = " [bad timestamp]"
			}
			fmt.Printf("  - %s (%d messages, %s)%s\n",
				s.Title,
				s.MessageCount(),
				s.Timestamp.Local().Format("2006-01-02 15:04"),
				marker)
		}
	}
	return nil
}

// printTranscript writes the full Q/A transcript of a session to stdout.
func printTranscript(s *models.Session) {
	fmt.Println(s.Title)
	fmt.Println(strings.Repeat("=", len([]rune(s.Title))))
	for _, entry := range s.Messages {
		if strings.TrimSpace(entry.User) != "" {
			fmt.Printf("\nYou: %s\n", entry.User)
		}
		if strings.TrimSpace(entry.Assistant) != "" {
			fmt.Printf("\nMentor: %s\n", entry.Assistant)
		}
	}
}
