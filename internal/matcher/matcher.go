// Package matcher reconciles recipe ingredients against pantry contents.
//
// Matching is a loose case-insensitive substring test in either direction, so
// "Chicken Breast" in the pantry satisfies a recipe's "chicken". Every function
// is pure; callers own the slices and the store that holds them.
package matcher

import (
	"strings"

	"github.com/pantrypal/api/internal/model"
)

// Matches reports whether either name contains the other, ignoring case.
// Blank names never match.
func Matches(pantryItemName, ingredientName string) bool {
	a := strings.ToLower(strings.TrimSpace(pantryItemName))
	b := strings.ToLower(strings.TrimSpace(ingredientName))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// FindMatchIndex returns the index of the first pantry item matching the ingredient
func FindMatchIndex(ingredientName string, pantry []model.GroceryItem) (int, bool) {
	for i, item := range pantry {
		if Matches(item.Name, ingredientName) {
			return i, true
		}
	}
	return -1, false
}

// MissingIngredients lists, in recipe order, the ingredients with no pantry match
func MissingIngredients(recipe *model.Recipe, pantry []model.GroceryItem) []model.Ingredient {
	missing := []model.Ingredient{}
	if recipe == nil {
		return missing
	}
	for _, ing := range recipe.Ingredients {
		if _, ok := FindMatchIndex(ing.Name, pantry); !ok {
			missing = append(missing, ing)
		}
	}
	return missing
}

// DeductIngredients removes the first matching pantry item for each ingredient,
// in recipe order. A removed item is gone before the next ingredient is
// matched, so one item is consumed at most once. The input slice is not modified.
func DeductIngredients(recipe *model.Recipe, pantry []model.GroceryItem) (removed, remaining []model.GroceryItem) {
	removed = []model.GroceryItem{}
	remaining = make([]model.GroceryItem, len(pantry))
	copy(remaining, pantry)
	if recipe == nil {
		return removed, remaining
	}

	for _, ing := range recipe.Ingredients {
		idx, ok := FindMatchIndex(ing.Name, remaining)
		if !ok {
			continue
		}
		removed = append(removed, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return removed, remaining
}

// SearchRecipes returns recipes whose name or any ingredient matches the query.
// An empty query returns every recipe.
func SearchRecipes(recipes []model.Recipe, query string) []model.Recipe {
	found := []model.Recipe{}
	if strings.TrimSpace(query) == "" {
		return append(found, recipes...)
	}
	for _, r := range recipes {
		if recipeMatches(r, query) {
			found = append(found, r)
		}
	}
	return found
}

func recipeMatches(r model.Recipe, query string) bool {
	if Matches(r.Name, query) {
		return true
	}
	for _, ing := range r.Ingredients {
		if Matches(ing.Name, query) {
			return true
		}
	}
	return false
}
