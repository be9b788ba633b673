// Package cloudconvert coordinates asynchronous document conversion
// against the CloudConvert v2 REST API: one job carrying an
// import/upload, a convert and an export/url task, a bounded status
// poll, and a single result fetch.
package cloudconvert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	httputil "github.com/campusreports/report-server/pkg/infrastructure/http"
	"github.com/campusreports/report-server/pkg/types"
)

const (
	taskImport  = "import-file"
	taskConvert = "convert-file"
	taskExport  = "export-file"
)

// Job statuses reported by the API.
const (
	StatusWaiting    = "waiting"
	StatusProcessing = "processing"
	StatusFinished   = "finished"
	StatusError      = "error"
)

// Client talks to the conversion service. Safe for concurrent use.
type Client struct {
	baseURL      string
	client       *http.Client // bearer-authenticated
	download     *http.Client // export URLs are pre-signed, no auth
	pollInterval time.Duration
	maxWait      time.Duration
	logger       *slog.Logger
}

// Config for the client. APIKey is the bearer credential from process
// configuration; it is never logged.
type Config struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	MaxWait      time.Duration
	Logger       *slog.Logger

	// HTTPClient overrides the authenticated client (tests).
	HTTPClient *http.Client
}

func NewClient(cfg Config) *Client {
	authed := cfg.HTTPClient
	if authed == nil {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey})
		authed = oauth2.NewClient(context.Background(), src)
		authed.Timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 3 * time.Minute
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		client:       authed,
		download:     &http.Client{Timeout: 60 * time.Second},
		pollInterval: pollInterval,
		maxWait:      maxWait,
		logger:       logger.With("component", "cloudconvert"),
	}
}

type job struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Tasks  []task `json:"tasks"`
}

type task struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Operation string      `json:"operation"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Result    *taskResult `json:"result,omitempty"`
}

type taskResult struct {
	Form *struct {
		URL        string            `json:"url"`
		Parameters map[string]string `json:"parameters"`
	} `json:"form,omitempty"`
	Files []struct {
		Filename string `json:"filename"`
		URL      string `json:"url"`
	} `json:"files,omitempty"`
}

type jobEnvelope struct {
	Data job `json:"data"`
}

// Convert submits data for conversion and blocks until the converted
// bytes are available, the job fails, or the wait budget runs out.
// Upload success and conversion completion are independent milestones:
// a job can accept the upload and still fail the conversion.
func (c *Client) Convert(ctx context.Context, data []byte, filename, inputFormat, outputFormat string) ([]byte, error) {
	created, err := c.createJob(ctx, inputFormat, outputFormat)
	if err != nil {
		return nil, err
	}
	logger := c.logger.With("job_id", created.ID)
	logger.Info("Conversion job created", "input", inputFormat, "output", outputFormat)

	if err := c.upload(ctx, created, data, filename); err != nil {
		return nil, err
	}
	logger.Info("Upload accepted")

	finished, err := c.waitForJob(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	exportURL, err := exportFileURL(finished)
	if err != nil {
		return nil, err
	}

	// One fetch per job; the result location is never re-read.
	out, err := c.fetchResult(ctx, exportURL)
	if err != nil {
		return nil, err
	}
	logger.Info("Conversion finished", "bytes", len(out))
	return out, nil
}

func (c *Client) createJob(ctx context.Context, inputFormat, outputFormat string) (*job, error) {
	payload := map[string]interface{}{
		"tasks": map[string]interface{}{
			taskImport: map[string]interface{}{
				"operation": "import/upload",
			},
			taskConvert: map[string]interface{}{
				"operation":     "convert",
				"input":         taskImport,
				"input_format":  inputFormat,
				"output_format": outputFormat,
			},
			taskExport: map[string]interface{}{
				"operation": "export/url",
				"input":     taskConvert,
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create job request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &types.ConversionError{Message: fmt.Sprintf("job submission: %v", err)}
	}
	defer resp.Body.Close()
	if err := httputil.ParseErrorResponse(resp); err != nil {
		return nil, &types.ConversionError{Message: "job submission rejected: " + err.Error()}
	}

	var envelope jobEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &types.ConversionError{Message: fmt.Sprintf("decode job response: %v", err)}
	}
	if envelope.Data.ID == "" {
		return nil, &types.ConversionError{Message: "job response carried no id"}
	}
	return &envelope.Data, nil
}

// upload posts the document to the import task's pre-signed form.
func (c *Client) upload(ctx context.Context, j *job, data []byte, filename string) error {
	var form *taskResult
	for _, t := range j.Tasks {
		if t.Operation == "import/upload" && t.Result != nil && t.Result.Form != nil {
			form = t.Result
			break
		}
	}
	if form == nil {
		return &types.ConversionError{JobID: j.ID, Message: "job carried no upload form"}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range form.Form.Parameters {
		if err := writer.WriteField(key, value); err != nil {
			return &types.ConversionError{JobID: j.ID, Message: fmt.Sprintf("build upload form: %v", err)}
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return &types.ConversionError{JobID: j.ID, Message: fmt.Sprintf("build upload form: %v", err)}
	}
	if _, err := part.Write(data); err != nil {
		return &types.ConversionError{JobID: j.ID, Message: fmt.Sprintf("build upload form: %v", err)}
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, form.Form.URL, body)
	if err != nil {
		return &types.ConversionError{JobID: j.ID, Message: fmt.Sprintf("upload request: %v", err)}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	// The form URL is pre-signed; the bearer credential must not leak to it.
	resp, err := c.download.Do(req)
	if err != nil {
		return &types.ConversionError{JobID: j.ID, Message: fmt.Sprintf("upload: %v", err)}
	}
	defer resp.Body.Close()
	if err := httputil.ParseErrorResponse(resp); err != nil {
		return &types.ConversionError{JobID: j.ID, Message: "upload rejected: " + err.Error()}
	}
	return nil
}

// waitForJob polls until the job reaches a terminal state or the wait
// budget is exhausted. On timeout the job is abandoned for the service
// to garbage-collect; the id is never polled again.
func (c *Client) waitForJob(ctx context.Context, jobID string) (*job, error) {
	start := time.Now()
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for {
		j, err := c.getJob(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch j.Status {
		case StatusFinished:
			return j, nil
		case StatusError:
			return nil, &types.ConversionError{JobID: jobID, Message: jobErrorMessage(j)}
		}

		waited := time.Since(start)
		if waited+c.pollInterval > c.maxWait {
			c.logger.Warn("Abandoning conversion job", "job_id", jobID, "waited", waited.String())
			return nil, &types.ConversionTimeout{JobID: jobID, Waited: waited}
		}

		timer.Reset(c.pollInterval)
		select {
		case <-ctx.Done():
			return nil, &types.ConversionTimeout{JobID: jobID, Waited: time.Since(start)}
		case <-timer.C:
		}
	}
}

func (c *Client) getJob(ctx context.Context, jobID string) (*job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("poll request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &types.ConversionError{JobID: jobID, Message: fmt.Sprintf("poll: %v", err)}
	}
	defer resp.Body.Close()
	if err := httputil.ParseErrorResponse(resp); err != nil {
		return nil, &types.ConversionError{JobID: jobID, Message: "poll rejected: " + err.Error()}
	}

	var envelope jobEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &types.ConversionError{JobID: jobID, Message: fmt.Sprintf("decode poll response: %v", err)}
	}
	return &envelope.Data, nil
}

func (c *Client) fetchResult(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("result request: %w", err)
	}
	resp, err := c.download.Do(req)
	if err != nil {
		return nil, &types.ConversionError{Message: fmt.Sprintf("fetch result: %v", err)}
	}
	defer resp.Body.Close()
	if err := httputil.ParseErrorResponse(resp); err != nil {
		return nil, &types.ConversionError{Message: "fetch result rejected: " + err.Error()}
	}
	return io.ReadAll(resp.Body)
}

func exportFileURL(j *job) (string, error) {
	for _, t := range j.Tasks {
		if t.Operation == "export/url" && t.Status == StatusFinished && t.Result != nil && len(t.Result.Files) > 0 {
			return t.Result.Files[0].URL, nil
		}
	}
	return "", &types.ConversionError{JobID: j.ID, Message: "finished job carried no export file"}
}

func jobErrorMessage(j *job) string {
	for _, t := range j.Tasks {
		if t.Status == StatusError && t.Message != "" {
			return t.Message
		}
	}
	return "conversion service reported an error"
}
