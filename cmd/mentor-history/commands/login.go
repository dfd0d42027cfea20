package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edumentor/mentor-history/internal/api"
)

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Obtain a backend token for the given user",
		Long: `Log in against the backend's /token endpoint and print the bearer token.
Store it as server.token in mentor-history.yaml or MENTOR_SERVER_TOKEN.
The password is read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runLogin,
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.cleanup()

	fmt.Fprint(os.Stderr, "Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	client := api.NewClient(e.cfg.Server.BaseURL, "", e.logger)
	token, err := client.Login(cmd.Context(), args[0], password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Println(token)
	return nil
}
