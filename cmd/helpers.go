package cmd

import (
	"fmt"

	"github.com/junkie765/saft-reporting/internal/config"
	"github.com/junkie765/saft-reporting/internal/salesforce/oauth"
)

// loadConfig opens the configuration document and validates the auth
// method discriminator. Password and session-id based auth existed in older
// setups; this tool only implements the OAuth flow.
func loadConfig() (*config.Store, *config.File, error) {
	store := config.NewStore(configPath)

	file, err := store.Load()
	if err != nil {
		return nil, nil, err
	}

	if file.AuthMethod != "" && file.AuthMethod != config.AuthMethodOAuth {
		return nil, nil, fmt.Errorf("auth_method %q is not supported: set auth_method to %q in %s",
			file.AuthMethod, config.AuthMethodOAuth, configPath)
	}

	return store, file, nil
}

// newAuthManager wires the token lifecycle manager from the loaded config.
func newAuthManager(store *config.Store, file *config.File) *oauth.Manager {
	host := file.LoginHost()

	exchanger := oauth.NewClient(
		host+"/services/oauth2/token",
		file.Credentials.ClientID,
		file.Credentials.ClientSecret,
		nil,
	)

	return oauth.NewManager(store, exchanger, oauth.ManagerConfig{
		AuthorizeURL:    host + "/services/oauth2/authorize",
		Scopes:          file.Settings.Scopes,
		CallbackPort:    file.Settings.CallbackPort,
		CallbackPath:    file.Settings.CallbackPath,
		CallbackTimeout: file.CallbackTimeout(),
	})
}
