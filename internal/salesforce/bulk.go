package salesforce

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// Bulk job states as reported by the Bulk API 2.0.
const (
	jobStateComplete = "JobComplete"
	jobStateFailed   = "Failed"
	jobStateAborted  = "Aborted"
)

// DefaultBulkPollInterval is how often job status is polled when the config
// does not set bulk_api.polling_interval.
const DefaultBulkPollInterval = 5 * time.Second

// DefaultBulkTimeout bounds one bulk job when bulk_api.timeout is unset.
const DefaultBulkTimeout = time.Hour

// JobInfo is the Bulk API 2.0 job status record.
type JobInfo struct {
	ID                     string `json:"id"`
	State                  string `json:"state"`
	Operation              string `json:"operation"`
	NumberRecordsProcessed int    `json:"numberRecordsProcessed"`
	ErrorMessage           string `json:"errorMessage,omitempty"`
}

// BulkJobError is a query job that ended in Failed or Aborted.
type BulkJobError struct {
	JobID   string
	State   string
	Message string
}

func (e *BulkJobError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("bulk job %s %s: %s", e.JobID, strings.ToLower(e.State), e.Message)
	}
	return fmt.Sprintf("bulk job %s %s", e.JobID, strings.ToLower(e.State))
}

// BulkClient runs SOQL extractions through the Bulk API 2.0. It shares the
// REST client's session and error handling.
type BulkClient struct {
	rest         *Client
	PollInterval time.Duration
	Timeout      time.Duration
}

// NewBulkClient wraps a REST client for bulk queries. Zero durations fall
// back to the defaults.
func NewBulkClient(rest *Client, pollInterval, timeout time.Duration) *BulkClient {
	if pollInterval <= 0 {
		pollInterval = DefaultBulkPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultBulkTimeout
	}
	return &BulkClient{rest: rest, PollInterval: pollInterval, Timeout: timeout}
}

// CreateQueryJob submits a new bulk query job and returns its ID.
func (b *BulkClient) CreateQueryJob(ctx context.Context, soql string) (string, error) {
	payload := map[string]string{
		"operation": "query",
		"query":     soql,
	}

	var info JobInfo
	if err := b.rest.postJSON(ctx, b.rest.BaseURL()+"/jobs/query", payload, &info); err != nil {
		return "", fmt.Errorf("failed to create bulk query job: %w", err)
	}
	return info.ID, nil
}

// JobStatus fetches the current status of a bulk job.
func (b *BulkClient) JobStatus(ctx context.Context, jobID string) (*JobInfo, error) {
	var info JobInfo
	if err := b.rest.getJSON(ctx, b.rest.BaseURL()+"/jobs/query/"+jobID, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// WaitForJob polls the job until it completes, fails, or the bulk timeout
// elapses.
func (b *BulkClient) WaitForJob(ctx context.Context, jobID string) (*JobInfo, error) {
	deadline := time.Now().Add(b.Timeout)
	ticker := time.NewTicker(b.PollInterval)
	defer ticker.Stop()

	for {
		info, err := b.JobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch info.State {
		case jobStateComplete:
			return info, nil
		case jobStateFailed, jobStateAborted:
			return nil, &BulkJobError{JobID: jobID, State: info.State, Message: info.ErrorMessage}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("bulk job %s did not complete within %s", jobID, b.Timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// JobResults downloads the CSV result set of a completed job and decodes it
// into records keyed by column name.
func (b *BulkClient) JobResults(ctx context.Context, jobID string) ([]Record, error) {
	body, err := b.rest.get(ctx, b.rest.BaseURL()+"/jobs/query/"+jobID+"/results", "text/csv")
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(string(body)))
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("malformed bulk result CSV: %w", err)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed bulk result CSV: %w", err)
		}

		rec := Record{}
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// Query runs one SOQL query end to end: create job, wait, download results.
func (b *BulkClient) Query(ctx context.Context, soql string) ([]Record, error) {
	jobID, err := b.CreateQueryJob(ctx, soql)
	if err != nil {
		return nil, err
	}

	if _, err := b.WaitForJob(ctx, jobID); err != nil {
		return nil, err
	}

	return b.JobResults(ctx, jobID)
}
