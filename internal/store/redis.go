package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pantrypal/api/internal/model"
)

const maxTxRetries = 25

// RedisStore keeps one JSON document per user collection. Writes run inside
// WATCH/MULTI so a concurrent writer forces a retry instead of a lost update.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient, prefix: "pantrypal"}
}

func (s *RedisStore) itemsKey(userID string) string {
	return fmt.Sprintf("%s:%s:items", s.prefix, userID)
}

func (s *RedisStore) recipesKey(userID string) string {
	return fmt.Sprintf("%s:%s:recipes", s.prefix, userID)
}

func (s *RedisStore) seqKey(userID, kind string) string {
	return fmt.Sprintf("%s:%s:seq:%s", s.prefix, userID, kind)
}

func readList[T any](ctx context.Context, g interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}, key string) ([]T, error) {
	data, err := g.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// update runs fn against the current list under an optimistic transaction
func update[T any](ctx context.Context, s *RedisStore, key string, fn func([]T) ([]T, error)) error {
	txf := func(tx *redis.Tx) error {
		current, err := readList[T](ctx, tx, key)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

// reserveIDs returns the first of n fresh ids
func (s *RedisStore) reserveIDs(ctx context.Context, userID, kind string, n int) (int, error) {
	last, err := s.redis.IncrBy(ctx, s.seqKey(userID, kind), int64(n)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", kind, err)
	}
	return int(last) - n + 1, nil
}

func (s *RedisStore) ListItems(ctx context.Context, userID string) ([]model.GroceryItem, error) {
	return readList[model.GroceryItem](ctx, s.redis, s.itemsKey(userID))
}

func (s *RedisStore) AddItems(ctx context.Context, userID string, items []model.GroceryItem) ([]model.GroceryItem, error) {
	if len(items) == 0 {
		return []model.GroceryItem{}, nil
	}
	first, err := s.reserveIDs(ctx, userID, "item", len(items))
	if err != nil {
		return nil, err
	}
	added := make([]model.GroceryItem, len(items))
	for i, item := range items {
		item.ID = first + i
		added[i] = item
	}
	err = update(ctx, s, s.itemsKey(userID), func(current []model.GroceryItem) ([]model.GroceryItem, error) {
		return append(current, added...), nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *RedisStore) UpdateItem(ctx context.Context, userID string, id int, item model.GroceryItem) (*model.GroceryItem, error) {
	item.ID = id
	err := update(ctx, s, s.itemsKey(userID), func(current []model.GroceryItem) ([]model.GroceryItem, error) {
		idx := indexOfItem(current, id)
		if idx == -1 {
			return nil, ErrNotFound
		}
		current[idx] = item
		return current, nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *RedisStore) DeleteItem(ctx context.Context, userID string, id int) error {
	return update(ctx, s, s.itemsKey(userID), func(current []model.GroceryItem) ([]model.GroceryItem, error) {
		idx := indexOfItem(current, id)
		if idx == -1 {
			return nil, ErrNotFound
		}
		return append(current[:idx], current[idx+1:]...), nil
	})
}

func (s *RedisStore) MutateItems(ctx context.Context, userID string, fn ItemsMutation) error {
	return update(ctx, s, s.itemsKey(userID), func(current []model.GroceryItem) ([]model.GroceryItem, error) {
		return fn(current)
	})
}

func (s *RedisStore) ListRecipes(ctx context.Context, userID string) ([]model.Recipe, error) {
	return readList[model.Recipe](ctx, s.redis, s.recipesKey(userID))
}

func (s *RedisStore) GetRecipe(ctx context.Context, userID string, id int) (*model.Recipe, error) {
	recipes, err := s.ListRecipes(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := indexOfRecipe(recipes, id)
	if idx == -1 {
		return nil, ErrNotFound
	}
	return &recipes[idx], nil
}

func (s *RedisStore) AddRecipe(ctx context.Context, userID string, recipe model.Recipe) (*model.Recipe, error) {
	id, err := s.reserveIDs(ctx, userID, "recipe", 1)
	if err != nil {
		return nil, err
	}
	recipe.ID = id
	err = update(ctx, s, s.recipesKey(userID), func(current []model.Recipe) ([]model.Recipe, error) {
		return append(current, recipe), nil
	})
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (s *RedisStore) DeleteRecipe(ctx context.Context, userID string, id int) error {
	return update(ctx, s, s.recipesKey(userID), func(current []model.Recipe) ([]model.Recipe, error) {
		idx := indexOfRecipe(current, id)
		if idx == -1 {
			return nil, ErrNotFound
		}
		return append(current[:idx], current[idx+1:]...), nil
	})
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
