package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/junkie765/saft-reporting/internal/config"
)

// authLogoutCmd represents the auth logout command.
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored tokens",
	Long: `Remove the stored access and refresh tokens from the config file.

The connected app client_id/client_secret and all other configuration are
left untouched. Note this does not revoke the tokens server-side; revoke
the connected app session in Salesforce Setup if the tokens may have leaked.`,
	RunE: runAuthLogout,
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	store := config.NewStore(configPath)

	if err := store.ClearTokens(); err != nil {
		return err
	}

	fmt.Printf("Stored tokens removed from %s\n", store.Path())
	return nil
}
