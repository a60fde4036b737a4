package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pantrypal/api/internal/model"
	"github.com/pantrypal/api/internal/store"
)

const dateLayout = "2006-01-02"

// PantryService manages a user's pantry items
type PantryService struct {
	store store.Store
	now   func() time.Time
}

// NewPantryService creates a new pantry service backed by st
func NewPantryService(st store.Store) *PantryService {
	return &PantryService{store: st, now: time.Now}
}

// List returns the user's pantry in stored order
func (s *PantryService) List(ctx context.Context, userID string) ([]model.GroceryItem, error) {
	return s.store.ListItems(ctx, userID)
}

// Add normalizes and saves items, returning them with their new ids
func (s *PantryService) Add(ctx context.Context, userID string, reqs []model.PantryItemRequest) ([]model.GroceryItem, error) {
	items := make([]model.GroceryItem, 0, len(reqs))
	for i := range reqs {
		items = append(items, itemFromRequest(&reqs[i]))
	}
	return s.store.AddItems(ctx, userID, items)
}

// Update replaces an item; store.ErrNotFound if the id is unknown
func (s *PantryService) Update(ctx context.Context, userID string, id int, req *model.PantryItemRequest) (*model.GroceryItem, error) {
	return s.store.UpdateItem(ctx, userID, id, itemFromRequest(req))
}

// Delete removes an item; store.ErrNotFound if the id is unknown
func (s *PantryService) Delete(ctx context.Context, userID string, id int) error {
	return s.store.DeleteItem(ctx, userID, id)
}

// Stats counts items in total and per category present in the pantry
func (s *PantryService) Stats(ctx context.Context, userID string) (*model.PantryStats, error) {
	items, err := s.store.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &model.PantryStats{
		TotalItems: len(items),
		Categories: make(map[model.Category]int),
	}
	for _, item := range items {
		stats.Categories[model.NormalizeCategory(string(item.Category))]++
	}
	return stats, nil
}

// ExpiringSoon returns items whose expiry date falls between today and
// today+days inclusive, soonest first. Items without a date are ignored.
func (s *PantryService) ExpiringSoon(ctx context.Context, userID string, days int) ([]model.GroceryItem, error) {
	items, err := s.store.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	limit := today.AddDate(0, 0, days)

	type dated struct {
		item model.GroceryItem
		at   time.Time
	}
	var matches []dated
	for _, item := range items {
		if item.ExpiryDate == nil {
			continue
		}
		at, err := time.Parse(dateLayout, *item.ExpiryDate)
		if err != nil {
			continue
		}
		if at.Before(today) || at.After(limit) {
			continue
		}
		matches = append(matches, dated{item: item, at: at})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].at.Before(matches[j].at) })

	out := make([]model.GroceryItem, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.item)
	}
	return out, nil
}

func itemFromRequest(req *model.PantryItemRequest) model.GroceryItem {
	quantity := 1.0
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = model.DefaultUnit
	}
	return model.GroceryItem{
		Name:       strings.TrimSpace(req.Name),
		Quantity:   quantity,
		Unit:       unit,
		Category:   model.NormalizeCategory(req.Category),
		ExpiryDate: req.ExpiryDate,
	}
}
