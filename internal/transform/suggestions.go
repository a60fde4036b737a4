package transform

import (
	"fmt"

	"github.com/pantrypal/api/internal/model"
)

// ParseSuggestionBatch reads output1..outputN in key order. Absent or
// unparseable outputs are skipped; ids are 1-based over the kept recipes.
func ParseSuggestionBatch(outputs map[string]string, maxCount int) []model.Recipe {
	recipes := []model.Recipe{}
	for i := 1; i <= maxCount; i++ {
		raw, ok := outputs[fmt.Sprintf("output%d", i)]
		if !ok {
			continue
		}
		recipe, err := ParseRecipeJSON(raw)
		if err != nil || recipe == nil {
			continue
		}
		recipe.ID = len(recipes) + 1
		recipe.Source = model.SourceAISuggested
		recipes = append(recipes, *recipe)
	}
	return recipes
}
