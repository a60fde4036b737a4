package transform

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/pantrypal/api/internal/model"
)

const (
	colName     = "food_name"
	colQuantity = "quantity"
	colUnit     = "unit"
	colCategory = "food_category"
)

// categoryTable maps the receipt pipeline's labels. Lookup is exact: "dairy"
// or "DAIRY" are not in the table and end up as other.
var categoryTable = map[string]model.Category{
	"Proteins":   model.CategoryProtein,
	"Dairy":      model.CategoryDairy,
	"Grains":     model.CategoryGrain,
	"Fruits":     model.CategoryFruit,
	"Vegetables": model.CategoryVegetable,
	"Other":      model.CategoryOther,
}

func mapCategory(raw string) model.Category {
	if c, ok := categoryTable[strings.TrimSpace(raw)]; ok {
		return c
	}
	return model.CategoryOther
}

// ParseGroceryCSV converts the receipt pipeline's CSV into grocery items.
//
// The first non-blank line is the header and must name food_name; quantity,
// unit and food_category are optional. Every later line is read on its own, so
// a malformed line (an unterminated quote, say) is skipped without swallowing
// the lines after it. Rows without a name are skipped too. Ids are 1-based in
// emitted order and only meaningful to the caller.
func ParseGroceryCSV(text string) ([]model.GroceryItem, error) {
	items := []model.GroceryItem{}
	body := stripFences(text)
	if body == "" {
		return items, nil
	}

	lines := strings.Split(body, "\n")
	var header []string
	for len(lines) > 0 && header == nil {
		line := strings.TrimSpace(lines[0])
		lines = lines[1:]
		if line == "" {
			continue
		}
		rec, err := readLine(line)
		if err != nil {
			return nil, &FormatError{Source: "grocery csv", Err: fmt.Errorf("read header: %w", err)}
		}
		header = rec
	}
	if header == nil {
		return items, nil
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	nameIdx, ok := cols[colName]
	if !ok {
		return nil, &FormatError{Source: "grocery csv", Err: fmt.Errorf("header %q has no %s column", strings.Join(header, ","), colName)}
	}
	field := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rec, err := readLine(line)
		if err != nil || nameIdx >= len(rec) {
			continue
		}
		name := strings.TrimSpace(rec[nameIdx])
		if name == "" {
			continue
		}
		items = append(items, model.GroceryItem{
			ID:       len(items) + 1,
			Name:     name,
			Quantity: parseQuantity(field(rec, colQuantity)),
			Unit:     normalizeUnit(field(rec, colUnit)),
			Category: mapCategory(field(rec, colCategory)),
		})
	}
	return items, nil
}

// readLine parses a single CSV line. Quoted fields must be closed on the same
// line; a bare quote inside an unquoted field (12" Pizza) is kept as text.
func readLine(line string) ([]string, error) {
	if unclosedQuote(line) {
		return nil, csv.ErrQuote
	}
	rec, err := newLineReader(line, false).Read()
	if err == nil {
		return rec, nil
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) && errors.Is(pe.Err, csv.ErrBareQuote) {
		return newLineReader(line, true).Read()
	}
	return nil, err
}

func newLineReader(line string, lazy bool) *csv.Reader {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = lazy
	return r
}

// unclosedQuote reports a line that opens a quoted field but has an odd
// number of quote characters.
func unclosedQuote(line string) bool {
	if strings.Count(line, `"`)%2 == 0 {
		return false
	}
	for _, part := range strings.Split(line, ",") {
		if strings.HasPrefix(strings.TrimSpace(part), `"`) {
			return true
		}
	}
	return false
}
