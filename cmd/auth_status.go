package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authStatusCmd represents the auth status command.
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential state",
	Long: `Show the state of the credentials stored in the config file: whether an
access token is present, whether it is known-expired, and whether a refresh
token exists for non-interactive renewal.

No network calls are made; expiry shown here is the stored hint only.`,
	RunE: runAuthStatus,
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, file, err := loadConfig()
	if err != nil {
		return err
	}

	creds := file.Credentials

	fmt.Println("Salesforce connected app")
	fmt.Printf("  Config:     %s\n", store.Path())
	fmt.Printf("  Login host: %s\n", file.LoginHost())
	fmt.Printf("  Client ID:  %s\n", truncateSecret(creds.ClientID))

	switch {
	case creds.HasUsableAccessToken():
		fmt.Printf("  Status:     %s\n", text.FgGreen.Sprint("authenticated"))
		fmt.Printf("  Instance:   %s\n", creds.InstanceURL)
		if exp := creds.Token().Expiry; !exp.IsZero() {
			fmt.Printf("  Expires:    %s\n", exp.Format(time.RFC3339))
		} else {
			fmt.Printf("  Expires:    %s\n", "unknown (validated lazily on first API call)")
		}
	case creds.RefreshToken != "":
		fmt.Printf("  Status:     %s\n", text.FgYellow.Sprint("refresh required"))
		fmt.Println("  A refresh token is stored; the next run renews the access token automatically.")
	default:
		fmt.Printf("  Status:     %s\n", text.FgRed.Sprint("not authenticated"))
		fmt.Println("  Run 'saft-reporting auth login' to authorize access.")
	}

	return nil
}

// truncateSecret shortens identifiers for display.
func truncateSecret(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12] + "..."
}
