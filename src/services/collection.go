package services

import (
	"context"

	"github.com/username/scenariobudget/src/models"
)

// collection exposes one cached record list per scope. Reads never write
// to the cached slice; the mutation coordinator replaces it wholesale.
type collection[T models.Record] struct {
	entity string
	cache  *QueryCache
	list   func(ctx context.Context, scope models.Scope) ([]T, error)
}

func (c *collection[T]) key(scope models.Scope) string {
	return ListKey(c.entity, scope)
}

func (c *collection[T]) fetchFunc(scope models.Scope) FetchFunc {
	return func(ctx context.Context) (any, error) {
		items, err := c.list(ctx, scope)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}
}

// Load blocks until the collection is fetched. A failed read reports the
// error and no items.
func (c *collection[T]) Load(ctx context.Context, scope models.Scope) models.CollectionState[T] {
	v, err := c.cache.Fetch(ctx, c.key(scope), c.fetchFunc(scope))
	if err != nil {
		return models.CollectionState[T]{Status: models.CollectionFailed, Err: err}
	}
	return models.CollectionState[T]{Status: models.CollectionLoaded, Items: v.([]T)}
}

// Peek returns the cached state without waiting and starts a background
// fetch when the cached state is missing or out of date.
func (c *collection[T]) Peek(ctx context.Context, scope models.Scope) models.CollectionState[T] {
	key := c.key(scope)
	if s := c.cache.Peek(key); !c.cache.IsFresh(s) {
		c.cache.Prefetch(ctx, key, c.fetchFunc(scope))
	}
	return c.State(scope)
}

// State reports the cached state without fetching anything.
func (c *collection[T]) State(scope models.Scope) models.CollectionState[T] {
	s := c.cache.Peek(c.key(scope))
	switch {
	case s.Found && s.Err == nil:
		return models.CollectionState[T]{Status: models.CollectionLoaded, Items: s.Value.([]T)}
	case s.Fetching:
		return models.CollectionState[T]{Status: models.CollectionLoading}
	case s.Found:
		return models.CollectionState[T]{Status: models.CollectionFailed, Err: s.Err}
	default:
		return models.CollectionState[T]{Status: models.CollectionIdle}
	}
}
