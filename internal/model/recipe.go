package model

// SourceAISuggested tags recipes produced by the suggestion pipeline
const SourceAISuggested = "AI Suggested"

// Ingredient is one line of a recipe
type Ingredient struct {
	Name             string  `json:"name" validate:"required,min=1"`
	Quantity         float64 `json:"quantity" validate:"min=0"`
	Unit             string  `json:"unit"`
	PreparationNotes string  `json:"preparation_notes,omitempty"`
	Group            string  `json:"group,omitempty"`
}

// Instruction is one numbered step
type Instruction struct {
	StepNumber int    `json:"step_number"`
	Text       string `json:"instruction_text"`
}

// Recipe is a normalized recipe record
type Recipe struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Source       string        `json:"source"`
	SourceURL    *string       `json:"sourceUrl,omitempty"`
	PrepTime     *int          `json:"prepTime,omitempty"`
	CookTime     *int          `json:"cookTime,omitempty"`
	Servings     *int          `json:"servings,omitempty"`
	Ingredients  []Ingredient  `json:"ingredients"`
	Instructions []Instruction `json:"instructions,omitempty"`
}

// RecipeCreateRequest is the body for saving a recipe
type RecipeCreateRequest struct {
	Name         string        `json:"name" validate:"required,min=1,max=300"`
	Description  string        `json:"description" validate:"omitempty,max=2000"`
	Source       string        `json:"source" validate:"omitempty,max=200"`
	SourceURL    *string       `json:"sourceUrl" validate:"omitempty,url"`
	PrepTime     *int          `json:"prepTime" validate:"omitempty,min=0"`
	CookTime     *int          `json:"cookTime" validate:"omitempty,min=0"`
	Servings     *int          `json:"servings" validate:"omitempty,min=0"`
	Ingredients  []Ingredient  `json:"ingredients" validate:"omitempty,dive"`
	Instructions []Instruction `json:"instructions"`
}

// RecipeFromURLRequest asks the pipeline to extract a recipe from a web page or video
type RecipeFromURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// RecipeResponse wraps a single recipe
type RecipeResponse struct {
	Recipe Recipe `json:"recipe"`
}

// RecipeListResponse wraps a recipe listing
type RecipeListResponse struct {
	Recipes []Recipe `json:"recipes"`
}

// CookRecipeResponse reports which pantry items were consumed
type CookRecipeResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Removed []GroceryItem `json:"removed"`
}

// ShoppingListResponse lists ingredients missing from the pantry
type ShoppingListResponse struct {
	MissingIngredients []Ingredient `json:"missing_ingredients"`
}

// SubstitutesResponse lists known substitutes for an ingredient
type SubstitutesResponse struct {
	Ingredient  string   `json:"ingredient"`
	Substitutes []string `json:"substitutes"`
}
