package cmd

import (
	"github.com/spf13/cobra"
)

// authCmd groups the credential lifecycle subcommands.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Salesforce authentication",
	Long: `Manage the delegated Salesforce credentials stored in the config file.

Subcommands:
  login    Run the browser-based OAuth authorization flow
  status   Show the stored credential state
  logout   Remove the stored tokens`,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}
