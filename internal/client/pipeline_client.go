package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pantrypal/api/internal/config"
	"github.com/pantrypal/api/internal/model"
)

const (
	opUpload = "upload_file"
	opStart  = "start_pipeline"
	opPoll   = "get_pl_run"

	defaultFileInput = "file_name"
	defaultTextInput = "input"
	unknownError     = "Unknown error"
)

// ErrNotConfigured is returned when a run is attempted without an API key
var ErrNotConfigured = errors.New("pipeline client is not configured")

// PipelineRunner runs one remote pipeline job to completion
type PipelineRunner interface {
	Execute(ctx context.Context, req *model.JobRequest, opts ...RunOption) (*model.JobResult, error)
	Run(ctx context.Context, req *model.JobRequest, outputName string, opts ...RunOption) (string, error)
	IsConfigured() bool
}

// StatusEvent is reported after every status poll of a run
type StatusEvent struct {
	RunID   string
	State   string
	Attempt int
}

// RunOption customizes a single Execute / Run / Poll call
type RunOption func(*runOptions)

type runOptions struct {
	statusHook func(StatusEvent)
}

// WithStatusHook registers a callback invoked after each poll. The hook runs on
// the polling goroutine and must not block.
func WithStatusHook(fn func(StatusEvent)) RunOption {
	return func(o *runOptions) {
		o.statusHook = fn
	}
}

func applyRunOptions(opts []RunOption) runOptions {
	var o runOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// PipelineClient talks to the remote automation service
type PipelineClient struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	userID         string
	requestTimeout time.Duration
	pollInterval   time.Duration
	maxWait        time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

type uploadRequest struct {
	FileName    string `json:"file_name"`
	FileContent string `json:"file_content"`
	UserID      string `json:"user_id"`
}

type uploadResponse struct {
	FileName string `json:"file_name"`
}

type pipelineInput struct {
	InputName string `json:"input_name"`
	Value     string `json:"value"`
}

type startRequest struct {
	UserID         string          `json:"user_id"`
	SavedItemID    string          `json:"saved_item_id"`
	PipelineInputs []pipelineInput `json:"pipeline_inputs"`
}

type startResponse struct {
	RunID string `json:"run_id"`
}

type runStatusResponse struct {
	State   string                     `json:"state"`
	Outputs map[string]json.RawMessage `json:"outputs"`
	Error   json.RawMessage            `json:"error"`
}

// NewPipelineClient creates a client from configuration
func NewPipelineClient(cfg *config.PipelineConfig) *PipelineClient {
	c := &PipelineClient{
		httpClient:     &http.Client{},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		userID:         cfg.UserID,
		requestTimeout: cfg.RequestTimeout,
		pollInterval:   cfg.PollInterval,
		maxWait:        cfg.MaxWait,
		logger:         slog.Default().With("component", "pipeline_client"),
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = 30 * time.Second
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 2 * time.Second
	}
	if c.maxWait <= 0 {
		c.maxWait = 300 * time.Second
	}
	if cfg.MaxRequestsPerSec > 0 {
		burst := int(cfg.MaxRequestsPerSec)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRequestsPerSec), burst)
	}
	return c
}

// IsConfigured returns true if the client has valid configuration
func (c *PipelineClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Upload sends a file as base64 and returns the remote file reference
func (c *PipelineClient) Upload(ctx context.Context, fileName string, payload []byte, userID string) (string, error) {
	body := uploadRequest{
		FileName:    fileName,
		FileContent: base64.StdEncoding.EncodeToString(payload),
		UserID:      userID,
	}
	var result uploadResponse
	if err := c.post(ctx, opUpload, body, &result); err != nil {
		return "", err
	}
	if result.FileName == "" {
		return "", &ProtocolError{Op: opUpload, Message: "response missing file_name"}
	}
	return result.FileName, nil
}

// Start submits a pipeline run with a single named input
func (c *PipelineClient) Start(ctx context.Context, inputName, value, userID, pipelineID string) (*model.JobHandle, error) {
	body := startRequest{
		UserID:      userID,
		SavedItemID: pipelineID,
		PipelineInputs: []pipelineInput{
			{InputName: inputName, Value: value},
		},
	}
	var result startResponse
	if err := c.post(ctx, opStart, body, &result); err != nil {
		return nil, err
	}
	if result.RunID == "" {
		return nil, &ProtocolError{Op: opStart, Message: "response missing run_id"}
	}
	c.logger.Info("pipeline run started", "run_id", result.RunID, "pipeline_id", pipelineID, "input", inputName)
	return &model.JobHandle{RunID: result.RunID}, nil
}

// Poll queries the run on a fixed interval until it reaches a terminal state.
// The deadline is measured from the first poll; maxWait <= 0 uses the configured default.
// A FAILED or ERROR run returns its terminal JobResult together with a *PipelineError.
func (c *PipelineClient) Poll(ctx context.Context, handle *model.JobHandle, userID string, maxWait time.Duration, opts ...RunOption) (*model.JobResult, error) {
	if handle == nil || handle.RunID == "" {
		return nil, fmt.Errorf("poll: empty run handle")
	}
	if maxWait <= 0 {
		maxWait = c.maxWait
	}
	o := applyRunOptions(opts)
	runID := handle.RunID

	start := time.Now()
	pollCtx, cancel := context.WithDeadline(ctx, start.Add(maxWait))
	defer cancel()

	// pollCtx expiring while the caller is still waiting is our deadline, not theirs
	deadlineHit := func() bool {
		return pollCtx.Err() != nil && ctx.Err() == nil
	}
	timeout := &TimeoutError{RunID: runID, MaxWait: maxWait}

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		if time.Since(start) >= maxWait {
			c.logger.Warn("pipeline run timed out", "run_id", runID, "attempts", attempt-1, "max_wait", maxWait)
			return nil, timeout
		}

		status, err := c.getRunStatus(pollCtx, runID, userID)
		if err != nil {
			if deadlineHit() {
				c.logger.Warn("pipeline run timed out during status request", "run_id", runID, "attempt", attempt)
				return nil, timeout
			}
			c.logger.Error("pipeline poll failed", "run_id", runID, "attempt", attempt, "error", err)
			return nil, err
		}

		c.logger.Debug("pipeline poll", "run_id", runID, "attempt", attempt, "state", status.State)
		if o.statusHook != nil {
			o.statusHook(StatusEvent{RunID: runID, State: status.State, Attempt: attempt})
		}

		switch model.JobState(status.State) {
		case model.JobStateDone:
			return &model.JobResult{
				RunID:   runID,
				State:   model.JobStateDone,
				Outputs: decodeOutputs(status.Outputs),
			}, nil
		case model.JobStateFailed, model.JobStateError:
			msg := rawText(status.Error)
			if msg == "" {
				msg = unknownError
			}
			result := &model.JobResult{
				RunID:        runID,
				State:        model.JobState(status.State),
				Outputs:      decodeOutputs(status.Outputs),
				ErrorMessage: msg,
			}
			return result, &PipelineError{RunID: runID, State: status.State, Message: msg}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(c.pollInterval)

		select {
		case <-pollCtx.Done():
			if deadlineHit() {
				c.logger.Warn("pipeline run timed out", "run_id", runID, "attempts", attempt, "max_wait", maxWait)
				return nil, timeout
			}
			return nil, fmt.Errorf("polling run %s: %w", runID, ctx.Err())
		case <-timer.C:
		}
	}
}

// Execute uploads the payload when it is a file, starts the pipeline and waits
// for its terminal state.
func (c *PipelineClient) Execute(ctx context.Context, req *model.JobRequest, opts ...RunOption) (*model.JobResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if req == nil || req.PipelineID == "" {
		return nil, fmt.Errorf("execute: pipeline id is required")
	}

	userID := req.UserID
	if userID == "" {
		userID = c.userID
	}

	inputName := req.InputName
	value := req.Text()
	switch req.Kind {
	case model.InputKindFile:
		if inputName == "" {
			inputName = defaultFileInput
		}
		ref, err := c.Upload(ctx, req.FileName, req.Payload, userID)
		if err != nil {
			return nil, err
		}
		value = ref
	default:
		if inputName == "" {
			inputName = defaultTextInput
		}
	}

	handle, err := c.Start(ctx, inputName, value, userID, req.PipelineID)
	if err != nil {
		return nil, err
	}
	return c.Poll(ctx, handle, userID, c.maxWait, opts...)
}

// Run executes the request and extracts one named output. A missing output is
// returned as an empty string.
func (c *PipelineClient) Run(ctx context.Context, req *model.JobRequest, outputName string, opts ...RunOption) (string, error) {
	result, err := c.Execute(ctx, req, opts...)
	if err != nil {
		return "", err
	}
	return result.Output(outputName), nil
}

func (c *PipelineClient) getRunStatus(ctx context.Context, runID, userID string) (*runStatusResponse, error) {
	q := url.Values{}
	q.Set("run_id", runID)
	q.Set("user_id", userID)
	var result runStatusResponse
	if err := c.get(ctx, opPoll, q, &result); err != nil {
		return nil, err
	}
	if result.State == "" {
		return nil, &ProtocolError{Op: opPoll, Message: "response missing state"}
	}
	return &result, nil
}

// post sends a POST request with JSON body
func (c *PipelineClient) post(ctx context.Context, op string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.doRequest(ctx, op, http.MethodPost, c.baseURL+"/"+op, bodyBytes, result)
}

// get sends a GET request and parses JSON response
func (c *PipelineClient) get(ctx context.Context, op string, query url.Values, result interface{}) error {
	return c.doRequest(ctx, op, http.MethodGet, c.baseURL+"/"+op+"?"+query.Encode(), nil, result)
}

// doRequest executes one remote call under its own timeout and classifies the outcome
func (c *PipelineClient) doRequest(ctx context.Context, op, method, endpoint string, body []byte, result interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Op: op, Err: err}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, endpoint, reader)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("pipeline api call", "op", op, "method", method, "status", resp.StatusCode, "duration", time.Since(started))

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return &TransportError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, redactAndTruncate(respBody))}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &ProtocolError{Op: op, StatusCode: resp.StatusCode, Message: redactAndTruncate(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return &ProtocolError{Op: op, StatusCode: resp.StatusCode, Message: "undecodable response: " + err.Error()}
	}
	return nil
}

// decodeOutputs keeps string outputs verbatim and non-string outputs as JSON text
func decodeOutputs(raw map[string]json.RawMessage) map[string]string {
	outputs := make(map[string]string, len(raw))
	for name, value := range raw {
		text := rawText(value)
		if text == "" {
			continue
		}
		outputs[name] = text
	}
	return outputs
}

func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}
