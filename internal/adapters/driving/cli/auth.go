package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/betterinformatics/shtocker/internal/core/domain"
)

var flagToken string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the destination API token",
	Long: `Store, inspect, and remove the bearer token used against the file
collection service. The token is kept in the local metadata store;
setting ` + EnvToken + ` overrides it for a single run.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a destination API token",
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a token is stored",
	RunE:  runAuthStatus,
}

func init() {
	authLoginCmd.Flags().StringVar(&flagToken, "token", "",
		"token value (prompted for when omitted)")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	if _, err := ensureStores(); err != nil {
		return err
	}

	token := flagToken
	if token == "" {
		var err error
		token, err = promptToken(cmd)
		if err != nil {
			return err
		}
	}
	if token == "" {
		return errors.New("empty token")
	}

	err := credentials.Save(context.Background(), domain.Credentials{
		Token:     token,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	cmd.Println("Token stored.")
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	if _, err := ensureStores(); err != nil {
		return err
	}

	if err := credentials.Delete(context.Background()); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}

	cmd.Println("Token removed.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	if _, err := ensureStores(); err != nil {
		return err
	}

	if os.Getenv(EnvToken) != "" {
		cmd.Printf("Using token from %s.\n", EnvToken)
		return nil
	}

	creds, err := credentials.Get(context.Background())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			cmd.Println("No token stored. Run 'shtocker auth login'.")
			return nil
		}
		return err
	}

	cmd.Printf("Token stored (updated %s).\n", creds.UpdatedAt.Format("2006-01-02 15:04"))
	return nil
}

// promptToken reads the token without echoing when stdin is a
// terminal, falling back to a plain read otherwise.
func promptToken(cmd *cobra.Command) (string, error) {
	cmd.Print("Destination API token: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	var token string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &token); err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(token), nil
}
