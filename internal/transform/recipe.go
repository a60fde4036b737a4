package transform

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pantrypal/api/internal/model"
)

const untitledRecipe = "Untitled Recipe"

var leadingNumber = regexp.MustCompile(`^\s*(\d+)`)

// ParseRecipeJSON converts a pipeline recipe into a Recipe.
//
// The JSON may be wrapped in prose or a code fence, be the first element of an
// array, sit under a "recipe" key or arrive double encoded as a JSON string.
// Keys are accepted in camelCase and snake_case. Empty text returns (nil, nil).
// The caller sets Source and SourceURL.
func ParseRecipeJSON(text string) (*model.Recipe, error) {
	body := stripFences(text)
	if body == "" {
		return nil, nil
	}

	fields, err := decodeObject(body, 2)
	if err != nil {
		return nil, &FormatError{Source: "recipe json", Err: err}
	}
	if inner, ok := fields["recipe"]; ok && len(fields) == 1 {
		if nested, err := decodeObject(string(inner), 0); err == nil {
			fields = nested
		}
	}

	recipe := &model.Recipe{
		Name:         firstString(fields, "name", "title", "recipe_name", "recipeName"),
		Description:  firstString(fields, "description", "summary"),
		Source:       firstString(fields, "source"),
		PrepTime:     firstInt(fields, "prepTime", "prep_time", "prep_time_minutes"),
		CookTime:     firstInt(fields, "cookTime", "cook_time", "cook_time_minutes"),
		Servings:     firstInt(fields, "servings", "serves", "yield"),
		Ingredients:  parseIngredients(lookup(fields, "ingredients")),
		Instructions: parseInstructions(lookup(fields, "instructions", "steps", "directions")),
	}
	if recipe.Name == "" {
		recipe.Name = untitledRecipe
	}
	if u := firstString(fields, "sourceUrl", "source_url", "url"); u != "" {
		recipe.SourceURL = &u
	}
	return recipe, nil
}

// decodeObject finds a JSON object in s. depth bounds how many times a
// JSON-encoded string is unwrapped.
func decodeObject(s string, depth int) (map[string]json.RawMessage, error) {
	s = strings.TrimSpace(s)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err == nil && obj != nil {
		return obj, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal([]byte(s), &list); err == nil {
		for _, elem := range list {
			if obj, err := decodeObject(string(elem), 0); err == nil {
				return obj, nil
			}
		}
		return nil, errors.New("array holds no recipe object")
	}

	var encoded string
	if depth > 0 && json.Unmarshal([]byte(s), &encoded) == nil {
		return decodeObject(encoded, depth-1)
	}

	if span := extractJSON(s); span != s {
		if err := json.Unmarshal([]byte(span), &obj); err == nil && obj != nil {
			return obj, nil
		}
	}

	// Report the decoder's own complaint about the raw text
	err := json.Unmarshal([]byte(s), &obj)
	if err == nil {
		err = errors.New("not a JSON object")
	}
	return nil, err
}

func lookup(fields map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := fields[k]; ok && !isNull(v) {
			return v
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// asString renders a scalar as text; objects and arrays yield "".
func asString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		if s := asString(fields[k]); s != "" {
			return s
		}
	}
	return ""
}

// firstInt accepts 30, 30.0, "30" and "30 minutes"
func firstInt(fields map[string]json.RawMessage, keys ...string) *int {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok || isNull(raw) {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			n := int(math.Round(f))
			return &n
		}
		if m := leadingNumber.FindStringSubmatch(asString(raw)); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return &n
			}
		}
	}
	return nil
}

func parseIngredients(raw json.RawMessage) []model.Ingredient {
	ingredients := []model.Ingredient{}
	if raw == nil {
		return ingredients
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return ingredients
	}
	for _, entry := range entries {
		if ing, ok := parseIngredient(entry); ok {
			ingredients = append(ingredients, ing)
		}
	}
	return ingredients
}

func parseIngredient(raw json.RawMessage) (model.Ingredient, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		// a bare string such as "salt"
		name := asString(raw)
		if name == "" {
			return model.Ingredient{}, false
		}
		return model.Ingredient{Name: name, Quantity: 1, Unit: model.DefaultUnit}, true
	}

	name := firstString(fields, "name", "ingredient", "item", "food_name")
	if name == "" {
		return model.Ingredient{}, false
	}
	return model.Ingredient{
		Name:             name,
		Quantity:         parseAmount(firstString(fields, "quantity", "amount", "qty")),
		Unit:             normalizeUnit(firstString(fields, "unit", "units")),
		PreparationNotes: firstString(fields, "preparation_notes", "preparationNotes", "notes"),
		Group:            firstString(fields, "group", "section"),
	}, true
}

func parseInstructions(raw json.RawMessage) []model.Instruction {
	if raw == nil {
		return nil
	}

	var steps []model.Instruction
	add := func(text string) {
		text = strings.TrimSpace(text)
		if text != "" {
			steps = append(steps, model.Instruction{StepNumber: len(steps) + 1, Text: text})
		}
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		for _, line := range strings.Split(single, "\n") {
			add(line)
		}
		return steps
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	for _, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil {
			add(asString(entry))
			continue
		}
		add(firstString(fields, "instruction_text", "instructionText", "text", "instruction", "step"))
	}
	return steps
}
