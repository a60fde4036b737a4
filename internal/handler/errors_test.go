package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/pantrypal/api/internal/client"
	"github.com/pantrypal/api/internal/store"
	"github.com/pantrypal/api/internal/transform"
	"github.com/pantrypal/api/pkg/response"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("get recipe: %w", store.ErrNotFound), fiber.StatusNotFound, response.CodeNotFound},
		{"timeout", &client.TimeoutError{RunID: "r", MaxWait: time.Second}, fiber.StatusGatewayTimeout, response.CodePipelineTimeout},
		{"pipeline failed", &client.PipelineError{RunID: "r", State: "FAILED", Message: "boom"}, fiber.StatusBadGateway, response.CodePipelineFailed},
		{"protocol", &client.ProtocolError{Op: "start", StatusCode: 400}, fiber.StatusBadGateway, response.CodeBadGateway},
		{"format", &transform.FormatError{Source: "recipe json", Err: errors.New("bad")}, fiber.StatusBadGateway, response.CodeFormatError},
		{"transport", &client.TransportError{Op: "poll", Err: errors.New("refused")}, fiber.StatusServiceUnavailable, response.CodeUpstreamUnavailable},
		{"wrapped transport", fmt.Errorf("scan: %w", &client.TransportError{Op: "upload", Err: errors.New("eof")}), fiber.StatusServiceUnavailable, response.CodeUpstreamUnavailable},
		{"not configured", client.ErrNotConfigured, fiber.StatusInternalServerError, response.CodeServiceError},
		{"other", errors.New("disk full"), fiber.StatusInternalServerError, response.CodeServiceError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _ := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestClassify_PipelineMessagePassesThrough(t *testing.T) {
	_, _, msg := classify(&client.PipelineError{RunID: "r", State: "ERROR", Message: "Unknown error"})
	assert.Equal(t, "Unknown error", msg)
}

type recordingNotifier struct {
	statuses []string
	complete []string
	errs     []string
}

func (r *recordingNotifier) BroadcastStatus(requestID, runID, state string, attempt int) {
	r.statuses = append(r.statuses, fmt.Sprintf("%s/%s/%s/%d", requestID, runID, state, attempt))
}

func (r *recordingNotifier) BroadcastComplete(requestID string, result interface{}) {
	r.complete = append(r.complete, requestID)
}

func (r *recordingNotifier) BroadcastError(requestID string, code, message string) {
	r.errs = append(r.errs, requestID+"/"+code)
}

func TestRunOptionsAndNotifyDone(t *testing.T) {
	n := &recordingNotifier{}
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		c.Locals("requestid", "req-1")
		opts := runOptions(c, n)
		assert.Len(t, opts, 1)
		notifyDone(c, n, nil, &client.TimeoutError{RunID: "r"})
		notifyDone(c, n, "ok", nil)
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/anon", func(c *fiber.Ctx) error {
		assert.Nil(t, runOptions(c, n))
		notifyDone(c, n, "ok", nil)
		return c.SendStatus(fiber.StatusNoContent)
	})

	for _, path := range []string{"/", "/anon"} {
		resp, err := app.Test(httptestRequest(path), -1)
		assert.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, []string{"req-1/" + response.CodePipelineTimeout}, n.errs)
	assert.Equal(t, []string{"req-1"}, n.complete)
}

func httptestRequest(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}
