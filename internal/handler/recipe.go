package handler

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/pantrypal/api/internal/middleware"
	"github.com/pantrypal/api/internal/model"
	"github.com/pantrypal/api/internal/service"
	"github.com/pantrypal/api/pkg/response"
)

type RecipeHandler struct {
	service   *service.RecipeService
	notifier  RunNotifier
	validator *validator.Validate
}

func NewRecipeHandler(svc *service.RecipeService, notifier RunNotifier, v *validator.Validate) *RecipeHandler {
	return &RecipeHandler{
		service:   svc,
		notifier:  notifier,
		validator: v,
	}
}

// List handles GET /api/recipes
// @Summary      List saved recipes
// @Tags         Recipes
// @Produce      json
// @Success      200 {object} model.RecipeListResponse
// @Security     BearerAuth
// @Router       /api/recipes [get]
func (h *RecipeHandler) List(c *fiber.Ctx) error {
	recipes, err := h.service.List(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, model.RecipeListResponse{Recipes: recipes})
}

// Create handles POST /api/recipes
// @Summary      Save a recipe
// @Tags         Recipes
// @Accept       json
// @Produce      json
// @Param        request body model.RecipeCreateRequest true "Recipe"
// @Success      201 {object} model.RecipeResponse
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/recipes [post]
func (h *RecipeHandler) Create(c *fiber.Ctx) error {
	var req model.RecipeCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	recipe, err := h.service.Create(c.UserContext(), middleware.GetUserID(c), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Created(c, model.RecipeResponse{Recipe: *recipe})
}

// Delete handles DELETE /api/recipes/:id
// @Summary      Delete a recipe
// @Tags         Recipes
// @Param        id path int true "Recipe ID"
// @Success      204 "No Content"
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/recipes/{id} [delete]
func (h *RecipeHandler) Delete(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.ValidationError(c, "Invalid recipe id", nil)
	}
	if err := h.service.Delete(c.UserContext(), middleware.GetUserID(c), id); err != nil {
		return serviceError(c, err)
	}
	return response.NoContent(c)
}

// Cook handles POST /api/recipes/:id/cook
// @Summary      Cook a recipe
// @Description  Remove one matching pantry item for every ingredient of the recipe
// @Tags         Recipes
// @Produce      json
// @Param        id path int true "Recipe ID"
// @Success      200 {object} model.CookRecipeResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/recipes/{id}/cook [post]
func (h *RecipeHandler) Cook(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.ValidationError(c, "Invalid recipe id", nil)
	}
	result, err := h.service.Cook(c.UserContext(), middleware.GetUserID(c), id)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// ShoppingList handles GET /api/recipes/:id/shopping-list
// @Summary      Missing ingredients
// @Tags         Recipes
// @Produce      json
// @Param        id path int true "Recipe ID"
// @Success      200 {object} model.ShoppingListResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/recipes/{id}/shopping-list [get]
func (h *RecipeHandler) ShoppingList(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.ValidationError(c, "Invalid recipe id", nil)
	}
	missing, err := h.service.ShoppingList(c.UserContext(), middleware.GetUserID(c), id)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, model.ShoppingListResponse{MissingIngredients: missing})
}

// FromURL handles POST /api/recipes/from-url
// The extracted recipe is returned unsaved.
// @Summary      Import a recipe from a URL
// @Tags         Recipes
// @Accept       json
// @Produce      json
// @Param        request body model.RecipeFromURLRequest true "Source URL"
// @Success      200 {object} model.RecipeResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Failure      504 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/recipes/from-url [post]
func (h *RecipeHandler) FromURL(c *fiber.Ctx) error {
	var req model.RecipeFromURLRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	recipe, err := h.service.FromURL(c.UserContext(), req.URL, runOptions(c, h.notifier)...)
	notifyDone(c, h.notifier, recipe, err)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, model.RecipeResponse{Recipe: *recipe})
}

// Suggestions handles GET /api/recipes/suggestions
// @Summary      Suggest recipes from the pantry
// @Tags         Recipes
// @Produce      json
// @Success      200 {object} model.RecipeListResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Failure      504 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/recipes/suggestions [get]
func (h *RecipeHandler) Suggestions(c *fiber.Ctx) error {
	recipes, err := h.service.Suggestions(c.UserContext(), middleware.GetUserID(c), runOptions(c, h.notifier)...)
	notifyDone(c, h.notifier, recipes, err)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, model.RecipeListResponse{Recipes: recipes})
}

// Search handles GET /api/recipes/search
// @Summary      Search saved recipes
// @Tags         Recipes
// @Produce      json
// @Param        q query string true "Name or ingredient"
// @Success      200 {object} model.RecipeListResponse
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/recipes/search [get]
func (h *RecipeHandler) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return response.ValidationError(c, "Query parameter q is required", nil)
	}
	recipes, err := h.service.Search(c.UserContext(), middleware.GetUserID(c), query)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, model.RecipeListResponse{Recipes: recipes})
}

// Substitutes handles GET /api/ingredients/:ingredient/substitutes
// @Summary      Ingredient substitutes
// @Tags         Recipes
// @Produce      json
// @Param        ingredient path string true "Ingredient name"
// @Success      200 {object} model.SubstitutesResponse
// @Security     BearerAuth
// @Router       /api/ingredients/{ingredient}/substitutes [get]
func (h *RecipeHandler) Substitutes(c *fiber.Ctx) error {
	ingredient := c.Params("ingredient")
	if unescaped, err := url.PathUnescape(ingredient); err == nil {
		ingredient = unescaped
	}
	return response.OK(c, model.SubstitutesResponse{
		Ingredient:  ingredient,
		Substitutes: h.service.Substitutes(ingredient),
	})
}
