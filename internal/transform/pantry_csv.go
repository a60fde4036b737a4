package transform

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/pantrypal/api/internal/model"
)

var categoryLabels = map[model.Category]string{
	model.CategoryProtein:   "Proteins",
	model.CategoryDairy:     "Dairy",
	model.CategoryGrain:     "Grains",
	model.CategoryFruit:     "Fruits",
	model.CategoryVegetable: "Vegetables",
	model.CategoryOther:     "Other",
}

// EncodePantryCSV renders a pantry snapshot in the format the receipt
// pipeline produces, so the suggestion pipeline reads the same columns.
func EncodePantryCSV(items []model.GroceryItem) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{colName, colQuantity, colUnit, colCategory})
	for _, item := range items {
		label, ok := categoryLabels[item.Category]
		if !ok {
			label = categoryLabels[model.CategoryOther]
		}
		_ = w.Write([]string{
			item.Name,
			strconv.FormatFloat(item.Quantity, 'f', -1, 64),
			normalizeUnit(item.Unit),
			label,
		})
	}
	w.Flush()
	return buf.String()
}
