package handler

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/pantrypal/api/internal/middleware"
	"github.com/pantrypal/api/internal/model"
	"github.com/pantrypal/api/internal/service"
	"github.com/pantrypal/api/pkg/response"
)

const defaultExpiringDays = 3

type PantryHandler struct {
	pantry         *service.PantryService
	receipts       *service.ReceiptService
	notifier       RunNotifier
	validator      *validator.Validate
	maxUploadBytes int64
}

func NewPantryHandler(pantry *service.PantryService, receipts *service.ReceiptService, notifier RunNotifier, v *validator.Validate, maxUploadBytes int64) *PantryHandler {
	return &PantryHandler{
		pantry:         pantry,
		receipts:       receipts,
		notifier:       notifier,
		validator:      v,
		maxUploadBytes: maxUploadBytes,
	}
}

// List handles GET /api/pantry
// @Summary      List pantry items
// @Tags         Pantry
// @Produce      json
// @Success      200 {object} model.PantryListResponse
// @Failure      401 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/pantry [get]
func (h *PantryHandler) List(c *fiber.Ctx) error {
	items, err := h.pantry.List(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, model.PantryListResponse{Items: items})
}

// Add handles POST /api/pantry
// The body is either one item or {"items": [...]}, as confirmed after a receipt scan.
// @Summary      Add pantry items
// @Tags         Pantry
// @Accept       json
// @Produce      json
// @Param        request body model.PantryItemsRequest true "Items to add"
// @Success      201 {object} model.PantryListResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/pantry [post]
func (h *PantryHandler) Add(c *fiber.Ctx) error {
	var batch model.PantryItemsRequest
	if err := c.BodyParser(&batch); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if batch.Items == nil {
		var req model.PantryItemRequest
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
		items, err := h.pantry.Add(c.UserContext(), middleware.GetUserID(c), []model.PantryItemRequest{req})
		if err != nil {
			return serviceError(c, err)
		}
		return response.Created(c, model.PantryItemResponse{Item: items[0]})
	}

	if err := h.validator.Struct(&batch); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	items, err := h.pantry.Add(c.UserContext(), middleware.GetUserID(c), batch.Items)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Created(c, model.PantryListResponse{Items: items})
}

// Update handles PUT /api/pantry/:id
// @Summary      Update a pantry item
// @Tags         Pantry
// @Accept       json
// @Produce      json
// @Param        id      path int                     true "Item ID"
// @Param        request body model.PantryItemRequest true "Item"
// @Success      200 {object} model.PantryItemResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/pantry/{id} [put]
func (h *PantryHandler) Update(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.ValidationError(c, "Invalid item id", nil)
	}

	var req model.PantryItemRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	item, err := h.pantry.Update(c.UserContext(), middleware.GetUserID(c), id, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, model.PantryItemResponse{Item: *item})
}

// Delete handles DELETE /api/pantry/:id
// @Summary      Delete a pantry item
// @Tags         Pantry
// @Param        id path int true "Item ID"
// @Success      204 "No Content"
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/pantry/{id} [delete]
func (h *PantryHandler) Delete(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.ValidationError(c, "Invalid item id", nil)
	}
	if err := h.pantry.Delete(c.UserContext(), middleware.GetUserID(c), id); err != nil {
		return serviceError(c, err)
	}
	return response.NoContent(c)
}

// Expiring handles GET /api/pantry/expiring
// @Summary      Items expiring soon
// @Tags         Pantry
// @Produce      json
// @Param        days query int false "Look-ahead window in days (default 3)"
// @Success      200 {object} model.PantryListResponse
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/pantry/expiring [get]
func (h *PantryHandler) Expiring(c *fiber.Ctx) error {
	days := defaultExpiringDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return response.ValidationError(c, "days must be a non-negative integer", nil)
		}
		days = n
	}

	items, err := h.pantry.ExpiringSoon(c.UserContext(), middleware.GetUserID(c), days)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, model.PantryListResponse{Items: items})
}

// Stats handles GET /api/stats
// @Summary      Pantry statistics
// @Tags         Pantry
// @Produce      json
// @Success      200 {object} model.PantryStatsResponse
// @Security     BearerAuth
// @Router       /api/stats [get]
func (h *PantryHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.pantry.Stats(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, model.PantryStatsResponse{Stats: *stats})
}

// Receipt handles POST /api/pantry/receipt
// Progress of the scan is streamed on /ws/runs/{X-Request-ID}.
// @Summary      Scan a grocery receipt
// @Description  Extract grocery items from a receipt image. Items are returned, not saved.
// @Tags         Pantry
// @Accept       multipart/form-data
// @Produce      json
// @Param        receipt formData file true "Receipt image"
// @Success      200 {object} model.ReceiptUploadResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      413 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Failure      504 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/pantry/receipt [post]
func (h *PantryHandler) Receipt(c *fiber.Ctx) error {
	file, err := c.FormFile("receipt")
	if err != nil {
		return response.ValidationError(c, "No file uploaded", nil)
	}

	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		return response.PayloadTooLarge(c, "Receipt exceeds upload limit")
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && contentType != "application/octet-stream" {
		return response.ValidationError(c, "Receipt must be an image", map[string]interface{}{
			"contentType": contentType,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	result, err := h.receipts.Scan(c.UserContext(), middleware.GetUserID(c), file.Filename, contentType, f, runOptions(c, h.notifier)...)
	notifyDone(c, h.notifier, result, err)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}
