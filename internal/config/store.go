package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes the configuration document. It is the sole owner
// of the file: credential updates go through SaveCredentials, everything
// else in the document is passed through untouched.
//
// The store assumes a single process per credential file; there is no
// cross-process locking.
type Store struct {
	path string
}

// NewStore creates a store for the given config file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the config file path.
func (s *Store) Path() string {
	return s.path
}

// Load parses the configuration document. It returns ErrNotConfigured when
// the oauth section or the client credentials are missing; absent token
// fields are tolerated.
func (s *Store) Load() (*File, error) {
	doc, err := s.readDocument()
	if err != nil {
		return nil, err
	}

	file := &File{Credentials: &Credentials{}}

	if raw, ok := doc["auth_method"]; ok {
		if err := json.Unmarshal(raw, &file.AuthMethod); err != nil {
			return nil, fmt.Errorf("invalid auth_method in %s: %w", s.path, err)
		}
	}

	rawOAuth, ok := doc["oauth"]
	if !ok {
		return nil, ErrNotConfigured
	}
	if err := json.Unmarshal(rawOAuth, file.Credentials); err != nil {
		return nil, fmt.Errorf("invalid oauth section in %s: %w", s.path, err)
	}
	if file.Credentials.ClientID == "" || file.Credentials.ClientSecret == "" {
		return nil, ErrNotConfigured
	}

	if raw, ok := doc["salesforce"]; ok {
		if err := json.Unmarshal(raw, &file.Settings); err != nil {
			return nil, fmt.Errorf("invalid salesforce section in %s: %w", s.path, err)
		}
	}
	if raw, ok := doc["bulk_api"]; ok {
		if err := json.Unmarshal(raw, &file.Bulk); err != nil {
			return nil, fmt.Errorf("invalid bulk_api section in %s: %w", s.path, err)
		}
	}
	if raw, ok := doc["certinia"]; ok {
		if err := json.Unmarshal(raw, &file.Certinia); err != nil {
			return nil, fmt.Errorf("invalid certinia section in %s: %w", s.path, err)
		}
	}

	return file, nil
}

// LoadCredentials is a convenience wrapper returning only the credential
// record.
func (s *Store) LoadCredentials() (*Credentials, error) {
	file, err := s.Load()
	if err != nil {
		return nil, err
	}
	return file.Credentials, nil
}

// SaveCredentials rewrites the credential fields inside the document and
// leaves every other key, known or unknown, exactly as it was. The document
// is re-read from disk at save time and replaced atomically via a temp file
// and rename, so an interrupted write never corrupts the config.
func (s *Store) SaveCredentials(creds *Credentials) error {
	doc, err := s.readDocument()
	if err != nil {
		return err
	}

	section := map[string]json.RawMessage{}
	if raw, ok := doc["oauth"]; ok {
		if err := json.Unmarshal(raw, &section); err != nil {
			return fmt.Errorf("invalid oauth section in %s: %w", s.path, err)
		}
	}

	setString := func(key, value string) {
		section[key], _ = json.Marshal(value)
	}

	setString("client_id", creds.ClientID)
	setString("client_secret", creds.ClientSecret)

	// access_token and instance_url are written together or cleared
	// together: they are only consistent when issued by the same exchange.
	if creds.AccessToken != "" && creds.InstanceURL != "" {
		setString("access_token", creds.AccessToken)
		setString("instance_url", creds.InstanceURL)
		if creds.IssuedAt > 0 {
			section["issued_at"], _ = json.Marshal(creds.IssuedAt)
		}
		if creds.ExpiresIn > 0 {
			section["expires_in"], _ = json.Marshal(creds.ExpiresIn)
		} else {
			delete(section, "expires_in")
		}
	} else {
		delete(section, "access_token")
		delete(section, "instance_url")
		delete(section, "issued_at")
		delete(section, "expires_in")
	}

	// A refresh token is only ever replaced, never dropped: a refresh
	// grant that omits one leaves the stored value authoritative.
	if creds.RefreshToken != "" {
		setString("refresh_token", creds.RefreshToken)
	}

	rawSection, err := json.Marshal(section)
	if err != nil {
		return fmt.Errorf("failed to encode oauth section: %w", err)
	}
	doc["oauth"] = rawSection

	if _, ok := doc["auth_method"]; !ok {
		doc["auth_method"], _ = json.Marshal(AuthMethodOAuth)
	}

	return s.writeDocument(doc)
}

// ClearTokens removes every stored token field, including the refresh
// token, while leaving the client credentials and the rest of the document
// intact. Used by `auth logout`.
func (s *Store) ClearTokens() error {
	doc, err := s.readDocument()
	if err != nil {
		return err
	}

	rawSection, ok := doc["oauth"]
	if !ok {
		return nil
	}
	section := map[string]json.RawMessage{}
	if err := json.Unmarshal(rawSection, &section); err != nil {
		return fmt.Errorf("invalid oauth section in %s: %w", s.path, err)
	}

	for _, key := range []string{"access_token", "instance_url", "refresh_token", "issued_at", "expires_in"} {
		delete(section, key)
	}

	doc["oauth"], err = json.Marshal(section)
	if err != nil {
		return fmt.Errorf("failed to encode oauth section: %w", err)
	}
	return s.writeDocument(doc)
}

// readDocument loads the raw top-level document. A missing file is reported
// as ErrNotConfigured, not as an I/O error: from the user's point of view
// the tool simply has not been set up yet.
func (s *Store) readDocument() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", s.path, err)
	}

	doc := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON in config file %s: %w", s.path, err)
		}
	}
	return doc, nil
}

// writeDocument writes the document to a temp file in the same directory
// and renames it over the config file.
func (s *Store) writeDocument(doc map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpName := tmp.Name()

	// The file carries tokens; keep it owner-only like an SSH key.
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set config file mode: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close config: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace config file %s: %w", s.path, err)
	}
	return nil
}
