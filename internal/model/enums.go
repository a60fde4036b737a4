package model

import "strings"

// Category is the normalized food group of a pantry item
type Category string

const (
	CategoryProtein   Category = "protein"
	CategoryDairy     Category = "dairy"
	CategoryGrain     Category = "grain"
	CategoryFruit     Category = "fruit"
	CategoryVegetable Category = "vegetable"
	CategoryOther     Category = "other"
)

var ValidCategories = []Category{
	CategoryProtein, CategoryDairy, CategoryGrain,
	CategoryFruit, CategoryVegetable, CategoryOther,
}

// NormalizeCategory maps a client-supplied category onto one of the six
// known values. Anything unrecognized becomes CategoryOther.
func NormalizeCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, valid := range ValidCategories {
		if c == valid {
			return c
		}
	}
	return CategoryOther
}

// DefaultUnit is used whenever a quantity comes without a usable unit
const DefaultUnit = "count"

// InputKind tells the pipeline client whether the payload must be uploaded first
type InputKind string

const (
	InputKindFile InputKind = "file"
	InputKindText InputKind = "text"
)

// JobState is the terminal outcome of a remote pipeline run
type JobState string

const (
	JobStateDone   JobState = "DONE"
	JobStateFailed JobState = "FAILED"
	JobStateError  JobState = "ERROR"
)

// IsTerminal reports whether a remote state ends polling
func IsTerminal(state string) bool {
	switch JobState(state) {
	case JobStateDone, JobStateFailed, JobStateError:
		return true
	}
	return false
}
