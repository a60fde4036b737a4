package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/pantrypal/api/internal/client"
	"github.com/pantrypal/api/internal/store"
	"github.com/pantrypal/api/internal/transform"
	"github.com/pantrypal/api/pkg/response"
)

// classify maps a service error to its HTTP status and error code
func classify(err error) (int, string, string) {
	var (
		timeoutErr   *client.TimeoutError
		pipelineErr  *client.PipelineError
		protocolErr  *client.ProtocolError
		transportErr *client.TransportError
		formatErr    *transform.FormatError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound, response.CodeNotFound, "Resource not found"
	case errors.As(err, &timeoutErr):
		return fiber.StatusGatewayTimeout, response.CodePipelineTimeout, "Pipeline did not finish in time"
	case errors.As(err, &pipelineErr):
		return fiber.StatusBadGateway, response.CodePipelineFailed, pipelineErr.Message
	case errors.As(err, &protocolErr):
		return fiber.StatusBadGateway, response.CodeBadGateway, "Unexpected response from pipeline service"
	case errors.As(err, &formatErr):
		return fiber.StatusBadGateway, response.CodeFormatError, "Pipeline output could not be parsed"
	case errors.As(err, &transportErr):
		return fiber.StatusServiceUnavailable, response.CodeUpstreamUnavailable, "Pipeline service unavailable"
	default:
		return fiber.StatusInternalServerError, response.CodeServiceError, "Internal server error"
	}
}

// serviceError writes the error envelope for err
func serviceError(c *fiber.Ctx, err error) error {
	status, code, message := classify(err)
	if status >= fiber.StatusInternalServerError || status == fiber.StatusBadGateway {
		slog.Error("request failed",
			"request_id", requestID(c),
			"path", c.Path(),
			"code", code,
			"error", err,
		)
	}
	var details interface{}
	var timeoutErr *client.TimeoutError
	if errors.As(err, &timeoutErr) {
		details = fiber.Map{"runId": timeoutErr.RunID, "maxWait": timeoutErr.MaxWait.String()}
	}
	var pipelineErr *client.PipelineError
	if errors.As(err, &pipelineErr) {
		details = fiber.Map{"runId": pipelineErr.RunID, "state": pipelineErr.State}
	}
	return response.Error(c, status, code, message, details)
}

// pathID parses a positive integer path parameter
func pathID(c *fiber.Ctx, name string) (int, bool) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string, len(validationErrors))
		for _, e := range validationErrors {
			fields[e.Field()] = e.Tag()
		}
		return fields
	}
	return err.Error()
}
