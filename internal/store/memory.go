package store

import (
	"context"
	"sync"

	"github.com/pantrypal/api/internal/model"
)

type userData struct {
	items        []model.GroceryItem
	recipes      []model.Recipe
	nextItemID   int
	nextRecipeID int
}

// MemoryStore keeps everything in process memory behind a single mutex.
// Data is lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*userData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*userData)}
}

// user must be called with mu held
func (s *MemoryStore) user(userID string) *userData {
	u, ok := s.users[userID]
	if !ok {
		u = &userData{
			items:        []model.GroceryItem{},
			recipes:      []model.Recipe{},
			nextItemID:   1,
			nextRecipeID: 1,
		}
		s.users[userID] = u
	}
	return u
}

func (s *MemoryStore) ListItems(_ context.Context, userID string) ([]model.GroceryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.user(userID).items), nil
}

func (s *MemoryStore) AddItems(_ context.Context, userID string, items []model.GroceryItem) ([]model.GroceryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	added := make([]model.GroceryItem, 0, len(items))
	for _, item := range items {
		item.ID = u.nextItemID
		u.nextItemID++
		u.items = append(u.items, item)
		added = append(added, item)
	}
	return added, nil
}

func (s *MemoryStore) UpdateItem(_ context.Context, userID string, id int, item model.GroceryItem) (*model.GroceryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	idx := indexOfItem(u.items, id)
	if idx == -1 {
		return nil, ErrNotFound
	}
	item.ID = id
	u.items[idx] = item
	return &item, nil
}

func (s *MemoryStore) DeleteItem(_ context.Context, userID string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	idx := indexOfItem(u.items, id)
	if idx == -1 {
		return ErrNotFound
	}
	u.items = append(u.items[:idx], u.items[idx+1:]...)
	return nil
}

func (s *MemoryStore) MutateItems(_ context.Context, userID string, fn ItemsMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	next, err := fn(cloneItems(u.items))
	if err != nil {
		return err
	}
	u.items = cloneItems(next)
	return nil
}

func (s *MemoryStore) ListRecipes(_ context.Context, userID string) ([]model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecipes(s.user(userID).recipes), nil
}

func (s *MemoryStore) GetRecipe(_ context.Context, userID string, id int) (*model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	idx := indexOfRecipe(u.recipes, id)
	if idx == -1 {
		return nil, ErrNotFound
	}
	r := u.recipes[idx]
	return &r, nil
}

func (s *MemoryStore) AddRecipe(_ context.Context, userID string, recipe model.Recipe) (*model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	recipe.ID = u.nextRecipeID
	u.nextRecipeID++
	u.recipes = append(u.recipes, recipe)
	return &recipe, nil
}

func (s *MemoryStore) DeleteRecipe(_ context.Context, userID string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	idx := indexOfRecipe(u.recipes, id)
	if idx == -1 {
		return ErrNotFound
	}
	u.recipes = append(u.recipes[:idx], u.recipes[idx+1:]...)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
