package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pantrypal/api/internal/client"
	"github.com/pantrypal/api/internal/config"
	"github.com/pantrypal/api/internal/matcher"
	"github.com/pantrypal/api/internal/model"
	"github.com/pantrypal/api/internal/store"
	"github.com/pantrypal/api/internal/transform"
)

const (
	recipeURLInput     = "url"
	suggestPantryInput = "pantry"
)

// errNoRecipe is wrapped in a FormatError when a pipeline finishes without a recipe
var errNoRecipe = errors.New("pipeline returned no recipe")

var substitutes = map[string][]string{
	"milk":    {"Almond Milk", "Oat Milk", "Soy Milk", "Coconut Milk"},
	"butter":  {"Olive Oil", "Coconut Oil", "Margarine", "Greek Yogurt"},
	"eggs":    {"Flax Eggs", "Chia Eggs", "Applesauce", "Mashed Banana"},
	"chicken": {"Turkey", "Tofu", "Tempeh", "Seitan"},
}

// RecipeService manages saved recipes and the recipe pipelines
type RecipeService struct {
	store    store.Store
	runner   client.PipelineRunner
	pipeline *config.PipelineConfig
	logger   *slog.Logger
}

// NewRecipeService creates a new recipe service
func NewRecipeService(st store.Store, runner client.PipelineRunner, pipeline *config.PipelineConfig) *RecipeService {
	return &RecipeService{
		store:    st,
		runner:   runner,
		pipeline: pipeline,
		logger:   slog.Default().With("component", "recipe_service"),
	}
}

func (s *RecipeService) List(ctx context.Context, userID string) ([]model.Recipe, error) {
	return s.store.ListRecipes(ctx, userID)
}

func (s *RecipeService) Create(ctx context.Context, userID string, req *model.RecipeCreateRequest) (*model.Recipe, error) {
	recipe := model.Recipe{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Source:       req.Source,
		SourceURL:    req.SourceURL,
		PrepTime:     req.PrepTime,
		CookTime:     req.CookTime,
		Servings:     req.Servings,
		Ingredients:  make([]model.Ingredient, 0, len(req.Ingredients)),
		Instructions: req.Instructions,
	}
	for _, ing := range req.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name == "" {
			continue
		}
		if strings.TrimSpace(ing.Unit) == "" {
			ing.Unit = model.DefaultUnit
		}
		recipe.Ingredients = append(recipe.Ingredients, ing)
	}
	return s.store.AddRecipe(ctx, userID, recipe)
}

func (s *RecipeService) Delete(ctx context.Context, userID string, id int) error {
	return s.store.DeleteRecipe(ctx, userID, id)
}

// Search matches saved recipes by name or ingredient
func (s *RecipeService) Search(ctx context.Context, userID, query string) ([]model.Recipe, error) {
	recipes, err := s.store.ListRecipes(ctx, userID)
	if err != nil {
		return nil, err
	}
	return matcher.SearchRecipes(recipes, query), nil
}

// ShoppingList returns the recipe's ingredients not found in the pantry
func (s *RecipeService) ShoppingList(ctx context.Context, userID string, id int) ([]model.Ingredient, error) {
	recipe, err := s.store.GetRecipe(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	pantry, err := s.store.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	return matcher.MissingIngredients(recipe, pantry), nil
}

// Cook removes one matching pantry item per ingredient. The read and write of
// the pantry happen in a single store mutation.
func (s *RecipeService) Cook(ctx context.Context, userID string, id int) (*model.CookRecipeResponse, error) {
	recipe, err := s.store.GetRecipe(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var removed []model.GroceryItem
	err = s.store.MutateItems(ctx, userID, func(items []model.GroceryItem) ([]model.GroceryItem, error) {
		var remaining []model.GroceryItem
		removed, remaining = matcher.DeductIngredients(recipe, items)
		return remaining, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update pantry: %w", err)
	}

	s.logger.Info("recipe cooked", "user_id", userID, "recipe_id", id, "removed", len(removed))
	return &model.CookRecipeResponse{
		Success: true,
		Message: fmt.Sprintf("Cooked %s", recipe.Name),
		Removed: removed,
	}, nil
}

// Substitutes looks up common replacements; unknown ingredients yield an empty list
func (s *RecipeService) Substitutes(ingredient string) []string {
	subs, ok := substitutes[strings.ToLower(strings.TrimSpace(ingredient))]
	if !ok {
		return []string{}
	}
	return append([]string(nil), subs...)
}

// FromURL runs the recipe extraction pipeline on a web page or video URL.
// The recipe is returned unsaved with its source set to the URL host.
func (s *RecipeService) FromURL(ctx context.Context, rawURL string, opts ...client.RunOption) (*model.Recipe, error) {
	var recipe *model.Recipe
	if s.runner == nil || !s.runner.IsConfigured() {
		recipe = s.fromURLMock()
	} else {
		req := &model.JobRequest{
			Payload:    []byte(rawURL),
			Kind:       model.InputKindText,
			PipelineID: s.pipeline.RecipePipelineID,
			InputName:  recipeURLInput,
		}
		text, err := s.runner.Run(ctx, req, s.pipeline.RecipeOutput, opts...)
		if err != nil {
			return nil, err
		}
		recipe, err = transform.ParseRecipeJSON(text)
		if err != nil {
			return nil, err
		}
		if recipe == nil {
			return nil, &transform.FormatError{Source: "recipe json", Err: errNoRecipe}
		}
	}

	src := rawURL
	recipe.SourceURL = &src
	recipe.Source = sourceName(rawURL)
	return recipe, nil
}

// Suggestions sends a CSV snapshot of the pantry to the suggestion pipeline
// and returns up to the configured number of recipes.
func (s *RecipeService) Suggestions(ctx context.Context, userID string, opts ...client.RunOption) ([]model.Recipe, error) {
	if s.runner == nil || !s.runner.IsConfigured() {
		return []model.Recipe{}, nil
	}

	pantry, err := s.store.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	req := &model.JobRequest{
		Payload:    []byte(transform.EncodePantryCSV(pantry)),
		Kind:       model.InputKindText,
		PipelineID: s.pipeline.SuggestPipelineID,
		InputName:  suggestPantryInput,
	}
	result, err := s.runner.Execute(ctx, req, opts...)
	if err != nil {
		return nil, err
	}

	recipes := transform.ParseSuggestionBatch(result.Outputs, s.pipeline.MaxSuggestions)
	s.logger.Info("suggestions generated", "user_id", userID, "pantry_items", len(pantry), "recipes", len(recipes))
	return recipes, nil
}

// sourceName turns https://www.allrecipes.com/x into allrecipes.com
func sourceName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// Mock implementation for development/testing
func (s *RecipeService) fromURLMock() *model.Recipe {
	prep, servings := 30, 4
	return &model.Recipe{
		Name:     "Imported Recipe",
		PrepTime: &prep,
		Servings: &servings,
		Ingredients: []model.Ingredient{
			{Name: "Ingredient 1", Quantity: 1, Unit: "cup"},
			{Name: "Ingredient 2", Quantity: 2, Unit: "tbsp"},
		},
	}
}
