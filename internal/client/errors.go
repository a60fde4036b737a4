package client

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TransportError is a failure talking to the pipeline service: network errors,
// per-request timeouts and retryable HTTP statuses (5xx, 429).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pipeline transport error: op=%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the pipeline service answered with something we cannot use.
type ProtocolError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("pipeline protocol error: op=%s status=%d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pipeline protocol error: op=%s: %s", e.Op, e.Message)
}

// PipelineError is a run that reached FAILED or ERROR on the remote side.
type PipelineError struct {
	RunID   string
	State   string
	Message string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline run %s ended in %s: %s", e.RunID, e.State, e.Message)
}

// TimeoutError is returned when polling exceeds its maximum wait.
// The remote run is abandoned, not cancelled.
type TimeoutError struct {
	RunID   string
	MaxWait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("pipeline run %s did not finish within %v", e.RunID, e.MaxWait)
}

var (
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)
	apiKeyKVRe    = regexp.MustCompile(`(?i)\b(api[_-]?key|token)\b"?\s*[:=]\s*"?[^\s"',}]+`)
)

const maxSnippet = 256

// redactAndTruncate shortens a response body to a single-line hint with
// obvious secrets removed.
func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	b := body
	if len(b) > maxSnippet {
		b = b[:maxSnippet]
	}
	s := bearerTokenRe.ReplaceAllString(string(b), "Bearer <redacted>")
	s = apiKeyKVRe.ReplaceAllString(s, "<redacted_kv>")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > maxSnippet {
		return s + "..."
	}
	return s
}
