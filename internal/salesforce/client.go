// Package salesforce provides the REST and Bulk API 2.0 clients used to
// extract Certinia Finance data. Both clients are thin: they take the
// bearer session produced by the oauth package and surface API failures as
// typed errors without retrying.
package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/junkie765/saft-reporting/internal/salesforce/oauth"
)

// DefaultAPIVersion is used when the config does not pin one.
const DefaultAPIVersion = "59.0"

// Record is one row returned by a query. REST responses carry nested JSON
// values; Bulk CSV results carry flat strings.
type Record map[string]interface{}

// StringField returns the named field as a string, empty when absent or of
// another type.
func (r Record) StringField(name string) string {
	if v, ok := r[name].(string); ok {
		return v
	}
	return ""
}

// ErrTokenExpired indicates the API rejected the bearer token. The stored
// access token had no usable expiry hint; a 401 is how its death is
// discovered.
var ErrTokenExpired = errors.New("salesforce rejected the access token (expired or revoked)")

// APIError is a non-2xx REST API response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("salesforce API error: status %d: %s", e.Status, e.Body)
}

// Client calls the Salesforce REST API on behalf of one session.
type Client struct {
	session    *oauth.Session
	apiVersion string
	httpClient *http.Client
}

// NewClient creates a REST client for the given session. A nil httpClient
// gets a bounded-timeout default.
func NewClient(session *oauth.Session, apiVersion string, httpClient *http.Client) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		session:    session,
		apiVersion: apiVersion,
		httpClient: httpClient,
	}
}

// BaseURL returns the versioned data API root for the session's instance.
func (c *Client) BaseURL() string {
	return fmt.Sprintf("%s/services/data/v%s", c.session.InstanceURL, c.apiVersion)
}

// Query runs a SOQL query through the REST endpoint, following
// nextRecordsUrl pagination until all records are collected.
func (c *Client) Query(ctx context.Context, soql string) ([]Record, error) {
	next := c.BaseURL() + "/query?q=" + url.QueryEscape(soql)

	var all []Record
	for next != "" {
		var page struct {
			TotalSize      int    `json:"totalSize"`
			Done           bool   `json:"done"`
			NextRecordsURL string `json:"nextRecordsUrl"`
			Records        []Record
		}
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Records...)

		next = ""
		if page.NextRecordsURL != "" {
			next = c.session.InstanceURL + page.NextRecordsURL
		}
	}

	return all, nil
}

// getJSON performs one authenticated GET and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	body, err := c.get(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("malformed salesforce response: %w", err)
	}
	return nil
}

// get performs one authenticated GET and returns the raw body.
func (c *Client) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrTokenExpired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// postJSON performs one authenticated JSON POST and decodes the response.
func (c *Client) postJSON(ctx context.Context, rawURL string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrTokenExpired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	return json.Unmarshal(body, out)
}
