package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/junkie765/saft-reporting/internal/config"
	"github.com/junkie765/saft-reporting/internal/logging"
	"github.com/junkie765/saft-reporting/internal/salesforce/oauth"
)

// Exit codes for CLI commands. Scripted callers (the monthly reporting
// cron) branch on these.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates the tool is not configured; the user
	// must edit the config before anything can run.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

// Global flags shared by all subcommands.
var (
	configPath string
	logLevel   string
)

// rootCmd is the base command for the saft-reporting application.
var rootCmd = &cobra.Command{
	Use:   "saft-reporting",
	Short: "Extract Certinia Finance data and generate SAF-T XML reports",
	Long: `saft-reporting pulls accounting data from Certinia Finance Cloud
(Salesforce) and assembles the SAF-T audit file for submission.

Salesforce access is delegated: the tool authenticates as a connected app
through a browser-based OAuth flow and keeps the refresh token in the
config file, so later runs need no interactive login.`,
	// SilenceUsage prevents Cobra from printing the usage message on
	// errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(logLevel, os.Stderr)
	},
}

// SetVersion sets the version for the root command, injected from main at
// build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "saft-reporting version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps error types to semantic exit codes.
func getExitCode(err error) int {
	if errors.Is(err, config.ErrNotConfigured) {
		return ExitCodeAuthRequired
	}

	var denied *oauth.AuthorizationDeniedError
	var port *oauth.PortUnavailableError
	var exchange *oauth.TokenExchangeError
	switch {
	case errors.As(err, &denied),
		errors.As(err, &port),
		errors.As(err, &exchange),
		errors.Is(err, oauth.ErrStateMismatch),
		errors.Is(err, oauth.ErrCallbackTimeout):
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
