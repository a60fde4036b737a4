package store

import (
	"context"
	"errors"

	"github.com/pantrypal/api/internal/model"
)

var (
	// ErrNotFound is returned when an item or recipe id does not exist for the user
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a mutation keeps losing to concurrent writers
	ErrConflict = errors.New("concurrent modification, retry later")
)

// ItemsMutation receives a copy of the user's pantry and returns the pantry to persist
type ItemsMutation func(items []model.GroceryItem) ([]model.GroceryItem, error)

// Store holds pantry items and saved recipes per user. Implementations
// serialize mutations so concurrent requests never lose updates.
type Store interface {
	ListItems(ctx context.Context, userID string) ([]model.GroceryItem, error)
	// AddItems assigns fresh ids, ignoring any id on the input
	AddItems(ctx context.Context, userID string, items []model.GroceryItem) ([]model.GroceryItem, error)
	UpdateItem(ctx context.Context, userID string, id int, item model.GroceryItem) (*model.GroceryItem, error)
	DeleteItem(ctx context.Context, userID string, id int) error
	// MutateItems applies fn atomically; an error from fn aborts without writing
	MutateItems(ctx context.Context, userID string, fn ItemsMutation) error

	ListRecipes(ctx context.Context, userID string) ([]model.Recipe, error)
	GetRecipe(ctx context.Context, userID string, id int) (*model.Recipe, error)
	AddRecipe(ctx context.Context, userID string, recipe model.Recipe) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, userID string, id int) error

	Ping(ctx context.Context) error
}

func cloneItems(items []model.GroceryItem) []model.GroceryItem {
	out := make([]model.GroceryItem, len(items))
	copy(out, items)
	return out
}

func cloneRecipes(recipes []model.Recipe) []model.Recipe {
	out := make([]model.Recipe, len(recipes))
	copy(out, recipes)
	return out
}

func indexOfItem(items []model.GroceryItem, id int) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfRecipe(recipes []model.Recipe, id int) int {
	for i := range recipes {
		if recipes[i].ID == id {
			return i
		}
	}
	return -1
}
