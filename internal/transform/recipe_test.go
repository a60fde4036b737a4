package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrypal/api/internal/model"
)

func TestParseRecipeJSON_CamelCase(t *testing.T) {
	raw := `{
		"name": "Chicken Stir Fry",
		"description": "Quick weeknight dinner",
		"prepTime": 30,
		"cookTime": "20 minutes",
		"servings": "4",
		"ingredients": [
			{"name": "Chicken Breast", "quantity": "1", "unit": "lb", "preparation_notes": "cubed", "group": "Main"},
			{"name": "Broccoli", "quantity": 0.5, "unit": "head"},
			{"name": "Soy Sauce", "quantity": "1/2", "unit": "cup"},
			{"name": "", "quantity": 3},
			{"name": "Salt", "unit": null}
		],
		"instructions": [
			{"step_number": 1, "instruction_text": "Cook the rice."},
			"Stir fry everything."
		]
	}`

	r, err := ParseRecipeJSON(raw)
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, "Chicken Stir Fry", r.Name)
	assert.Equal(t, "Quick weeknight dinner", r.Description)
	require.NotNil(t, r.PrepTime)
	assert.Equal(t, 30, *r.PrepTime)
	require.NotNil(t, r.CookTime)
	assert.Equal(t, 20, *r.CookTime)
	require.NotNil(t, r.Servings)
	assert.Equal(t, 4, *r.Servings)
	assert.Nil(t, r.SourceURL)

	assert.Equal(t, []model.Ingredient{
		{Name: "Chicken Breast", Quantity: 1, Unit: "lb", PreparationNotes: "cubed", Group: "Main"},
		{Name: "Broccoli", Quantity: 0.5, Unit: "head"},
		{Name: "Soy Sauce", Quantity: 0.5, Unit: "cup"},
		{Name: "Salt", Quantity: 1, Unit: "count"},
	}, r.Ingredients)

	assert.Equal(t, []model.Instruction{
		{StepNumber: 1, Text: "Cook the rice."},
		{StepNumber: 2, Text: "Stir fry everything."},
	}, r.Instructions)
}

func TestParseRecipeJSON_SnakeCaseInFenceWithProse(t *testing.T) {
	raw := "Sure! Here is the recipe:\n```json\n{\"title\": \"Pancakes\", \"prep_time\": 10, \"source_url\": \"https://example.com/p\", \"ingredients\": [\"flour\", {\"ingredient\": \"milk\", \"amount\": \"1 1/2\", \"units\": \"cups\"}]}\n```"

	r, err := ParseRecipeJSON(raw)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "Pancakes", r.Name)
	require.NotNil(t, r.PrepTime)
	assert.Equal(t, 10, *r.PrepTime)
	require.NotNil(t, r.SourceURL)
	assert.Equal(t, "https://example.com/p", *r.SourceURL)
	assert.Equal(t, []model.Ingredient{
		{Name: "flour", Quantity: 1, Unit: "count"},
		{Name: "milk", Quantity: 1.5, Unit: "cups"},
	}, r.Ingredients)
}

func TestParseRecipeJSON_AcceptedShapes(t *testing.T) {
	cases := map[string]string{
		"array":          `[{"name": "Soup"}]`,
		"wrapped":        `{"recipe": {"name": "Soup"}}`,
		"double encoded": `"{\"name\": \"Soup\"}"`,
		"prose":          `The recipe is {"name": "Soup"} enjoy`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := ParseRecipeJSON(raw)
			require.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, "Soup", r.Name)
			assert.NotNil(t, r.Ingredients)
		})
	}
}

func TestParseRecipeJSON_Defaults(t *testing.T) {
	r, err := ParseRecipeJSON(`{"ingredients": []}`)
	require.NoError(t, err)
	assert.Equal(t, "Untitled Recipe", r.Name)
	assert.Empty(t, r.Ingredients)
	assert.Nil(t, r.PrepTime)
	assert.Nil(t, r.Servings)
}

func TestParseRecipeJSON_Empty(t *testing.T) {
	r, err := ParseRecipeJSON("  ")
	assert.NoError(t, err)
	assert.Nil(t, r)
}

func TestParseRecipeJSON_Invalid(t *testing.T) {
	for _, raw := range []string{"not json at all", "42", "[1, 2]", "{broken"} {
		_, err := ParseRecipeJSON(raw)
		var fe *FormatError
		require.ErrorAs(t, err, &fe, raw)
		assert.Equal(t, "recipe json", fe.Source)
	}
}

func TestParseSuggestionBatch(t *testing.T) {
	outputs := map[string]string{
		"output1": `{"name": "Fried Rice", "ingredients": [{"name": "rice", "quantity": 2, "unit": "cups"}]}`,
		"output2": `this is not a recipe`,
		"output3": `{"name": "Omelette"}`,
		"output4": `{"name": "Beyond max"}`,
	}

	recipes := ParseSuggestionBatch(outputs, 3)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Fried Rice", recipes[0].Name)
	assert.Equal(t, 1, recipes[0].ID)
	assert.Equal(t, "Omelette", recipes[1].Name)
	assert.Equal(t, 2, recipes[1].ID)
	for _, r := range recipes {
		assert.Equal(t, model.SourceAISuggested, r.Source)
	}
}

func TestParseSuggestionBatch_NoOutputs(t *testing.T) {
	assert.Empty(t, ParseSuggestionBatch(nil, 3))
	assert.Empty(t, ParseSuggestionBatch(map[string]string{"output1": ""}, 3))
}
