package finetune

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/papercomputeco/recipetune/pkg/llm"
)

// APIError is a non-2xx response from the fine-tuning API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fine-tuning api error (status %d): %s", e.Status, e.Message)
}

// JobAPI is the subset of the fine-tuning API the Trainer drives.
type JobAPI interface {
	UploadFile(ctx context.Context, path string) (*llm.File, error)
	CreateJob(ctx context.Context, req llm.JobRequest) (*llm.Job, error)
	GetJob(ctx context.Context, id string) (*llm.Job, error)
	ListEvents(ctx context.Context, id string) ([]llm.JobEvent, error)
	CancelJob(ctx context.Context, id string) (*llm.Job, error)
}

// Client talks to an OpenAI-compatible fine-tuning API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a Client for baseURL (e.g. "https://api.openai.com/v1").
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			// uploads of large training files can be slow
			Timeout: 5 * time.Minute,
		},
	}
}

// UploadFile uploads a training file with purpose "fine-tune".
func (c *Client) UploadFile(ctx context.Context, path string) (*llm.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", llm.FilePurposeFineTune); err != nil {
		return nil, fmt.Errorf("failed to write purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload body: %w", err)
	}

	var file llm.File
	if err := c.do(ctx, http.MethodPost, "/files", mw.FormDataContentType(), &body, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// CreateJob starts a fine-tuning job.
func (c *Client) CreateJob(ctx context.Context, req llm.JobRequest) (*llm.Job, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var job llm.Job
	if err := c.do(ctx, http.MethodPost, "/fine_tuning/jobs", "application/json", bytes.NewReader(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob fetches the current state of a job.
func (c *Client) GetJob(ctx context.Context, id string) (*llm.Job, error) {
	var job llm.Job
	if err := c.do(ctx, http.MethodGet, "/fine_tuning/jobs/"+url.PathEscape(id), "", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListEvents returns the most recent events of a job, newest first.
func (c *Client) ListEvents(ctx context.Context, id string) ([]llm.JobEvent, error) {
	var list llm.EventList
	if err := c.do(ctx, http.MethodGet, "/fine_tuning/jobs/"+url.PathEscape(id)+"/events?limit=50", "", nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// CancelJob asks the provider to stop a job.
func (c *Client) CancelJob(ctx context.Context, id string) (*llm.Job, error) {
	var job llm.Job
	if err := c.do(ctx, http.MethodPost, "/fine_tuning/jobs/"+url.PathEscape(id)+"/cancel", "", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var envelope llm.APIErrorBody
		if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
