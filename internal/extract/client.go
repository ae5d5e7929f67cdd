package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/extractproof/internal/element"
)

// ErrUpstreamTimeout means the extraction job did not finish in its budget.
var ErrUpstreamTimeout = errors.New("extraction job timed out")

// Extractor turns a source document into extraction elements.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]element.RawElement, error)
}

// Client submits documents to a remote extraction service and polls for the
// job result.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	pollEvery  time.Duration
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		timeout:   timeout,
		pollEvery: 500 * time.Millisecond,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type jobPayload struct {
	Content      []string `json:"content"`
	SourceName   []string `json:"source_name"`
	SourceID     []string `json:"source_id"`
	DocumentType []string `json:"document_type"`
}

type extractParams struct {
	ExtractText   bool `json:"extract_text"`
	ExtractImages bool `json:"extract_images"`
	ExtractTables bool `json:"extract_tables"`
}

type jobTask struct {
	Type           string `json:"type"`
	TaskProperties struct {
		DocumentType string        `json:"document_type"`
		Params       extractParams `json:"params"`
	} `json:"task_properties"`
}

type jobSpec struct {
	JobPayload     jobPayload     `json:"job_payload"`
	Tasks          []jobTask      `json:"tasks"`
	TracingOptions map[string]any `json:"tracing_options"`
}

// Extract submits path as an extraction job and waits for its result.
// Waiting longer than the client timeout yields ErrUpstreamTimeout.
func (c *Client) Extract(ctx context.Context, path string) ([]element.RawElement, error) {
	docType, err := DocumentType(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	jobID, err := c.submit(jobCtx, path, docType, data)
	if err != nil {
		return nil, c.timeoutOr(ctx, jobCtx, err)
	}

	for attempt := 0; ; attempt++ {
		raws, done, err := c.fetch(jobCtx, jobID)
		if err != nil && !IsRetryable(err) {
			return nil, c.timeoutOr(ctx, jobCtx, err)
		}
		if done {
			return raws, nil
		}
		select {
		case <-time.After(PollInterval(c.pollEvery, attempt)):
		case <-jobCtx.Done():
			return nil, c.timeoutOr(ctx, jobCtx, jobCtx.Err())
		}
	}
}

// timeoutOr maps expiry of the job budget to ErrUpstreamTimeout while
// leaving cancellation by the caller as it is.
func (c *Client) timeoutOr(parent, jobCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrUpstreamTimeout, c.timeout)
	}
	return err
}

func (c *Client) submit(ctx context.Context, path, docType string, data []byte) (string, error) {
	name := filepath.Base(path)
	spec := jobSpec{
		JobPayload: jobPayload{
			Content:      []string{base64.StdEncoding.EncodeToString(data)},
			SourceName:   []string{name},
			SourceID:     []string{name},
			DocumentType: []string{docType},
		},
		TracingOptions: map[string]any{
			"trace":   true,
			"ts_send": time.Now().UnixNano(),
		},
	}
	task := jobTask{Type: "extract"}
	task.TaskProperties.DocumentType = docType
	task.TaskProperties.Params = extractParams{ExtractText: true, ExtractImages: true, ExtractTables: true}
	spec.Tasks = []jobTask{task}

	body, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("marshal job spec: %w", err)
	}

	respBody, status, err := c.do(ctx, http.MethodPost, "/v1/submit_job", body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusAccepted && status != http.StatusCreated {
		return "", fmt.Errorf("submit job status %d: %s", status, truncate(string(respBody), 200))
	}

	var withID struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(respBody, &withID); err == nil && withID.JobID != "" {
		return withID.JobID, nil
	}
	var bare string
	if err := json.Unmarshal(respBody, &bare); err == nil && bare != "" {
		return bare, nil
	}
	return "", fmt.Errorf("submit job: no job id in response: %s", truncate(string(respBody), 200))
}

// fetch returns done=false while the job is still running.
func (c *Client) fetch(ctx context.Context, jobID string) ([]element.RawElement, bool, error) {
	respBody, status, err := c.do(ctx, http.MethodGet, "/v1/fetch_job/"+jobID, nil)
	if err != nil {
		return nil, false, err
	}

	switch {
	case status == http.StatusAccepted:
		return nil, false, nil
	case status == http.StatusTooManyRequests || status >= 500:
		return nil, false, &RetryableError{StatusCode: status, Message: string(respBody)}
	case status != http.StatusOK:
		return nil, false, fmt.Errorf("fetch job %s status %d: %s", jobID, status, truncate(string(respBody), 200))
	}

	raws, err := element.ParseResult(respBody)
	if err != nil {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if jerr := json.Unmarshal(respBody, &envelope); jerr != nil || len(envelope.Data) == 0 {
			return nil, false, fmt.Errorf("fetch job %s: %w", jobID, err)
		}
		if raws, err = element.ParseResult(envelope.Data); err != nil {
			return nil, false, fmt.Errorf("fetch job %s: %w", jobID, err)
		}
	}
	return raws, true, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("extraction service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 256<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient service failure; polling continues.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth polling through.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
