package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pantrypal/api/internal/client"
)

// RunNotifier streams pipeline progress to websocket subscribers of a request id
type RunNotifier interface {
	BroadcastStatus(requestID, runID, state string, attempt int)
	BroadcastComplete(requestID string, result interface{})
	BroadcastError(requestID string, code, message string)
}

// requestID returns the id assigned by the requestid middleware
func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// runOptions forwards every poll of the request's pipeline run to the notifier
func runOptions(c *fiber.Ctx, n RunNotifier) []client.RunOption {
	reqID := requestID(c)
	if n == nil || reqID == "" {
		return nil
	}
	return []client.RunOption{
		client.WithStatusHook(func(e client.StatusEvent) {
			n.BroadcastStatus(reqID, e.RunID, e.State, e.Attempt)
		}),
	}
}

// notifyDone publishes the final outcome of a pipeline-backed request
func notifyDone(c *fiber.Ctx, n RunNotifier, result interface{}, err error) {
	reqID := requestID(c)
	if n == nil || reqID == "" {
		return
	}
	if err != nil {
		_, code, message := classify(err)
		n.BroadcastError(reqID, code, message)
		return
	}
	n.BroadcastComplete(reqID, result)
}
