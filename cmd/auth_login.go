package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Login-specific flags
var loginForce bool

// authLoginCmd represents the auth login command.
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate to Salesforce via the browser",
	Long: `Authenticate to Salesforce using the OAuth authorization-code flow.

A browser window opens at the Salesforce (or SSO) login page. After you
approve access, the obtained tokens are stored in the config file and later
runs authenticate without any interaction.

Examples:
  saft-reporting auth login            # Reuse stored tokens when possible
  saft-reporting auth login --force    # Discard tokens and re-authorize`,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&loginForce, "force", false, "Discard stored tokens and run the full browser flow")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, file, err := loadConfig()
	if err != nil {
		return err
	}

	if loginForce {
		if err := store.ClearTokens(); err != nil {
			return fmt.Errorf("failed to clear stored tokens: %w", err)
		}
		// Reload so the manager starts from a token-less record.
		if file.Credentials, err = store.LoadCredentials(); err != nil {
			return err
		}
	}

	hadToken := file.Credentials.HasUsableAccessToken()

	session, err := newAuthManager(store, file).Token(ctx)
	if err != nil {
		return err
	}

	if hadToken && !loginForce {
		fmt.Println(text.FgGreen.Sprint("✓ Already authenticated"))
	} else {
		fmt.Println(text.FgGreen.Sprint("✓ Authentication successful"))
	}
	fmt.Printf("  Instance:  %s\n", session.InstanceURL)
	fmt.Printf("  Config:    %s\n", store.Path())

	return nil
}
