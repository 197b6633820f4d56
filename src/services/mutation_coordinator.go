package services

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
)

// TempIDPrefix marks ids of placeholder records not yet confirmed by the store.
const TempIDPrefix = "temp-"

// MutationCoordinator applies creates and updates to the cached collection
// before the store confirms them, then reconciles with the stored record or
// rolls back. Every record type uses the same policy: a create inserts a
// placeholder with a temporary id at the head of the cached list and the
// stored record replaces it by that id.
type MutationCoordinator[T models.Record, In models.RecordInput[T]] struct {
	entity     string
	cache      *QueryCache
	store      RecordStore[T, In]
	now        func() time.Time
	newID      func() string
	dependents []string

	// mu serializes reads and writes of cached collections.
	mu       sync.Mutex
	inFlight map[string]bool
}

func NewMutationCoordinator[T models.Record, In models.RecordInput[T]](
	entity string, cache *QueryCache, store RecordStore[T, In], now func() time.Time, dependents ...string,
) *MutationCoordinator[T, In] {
	if now == nil {
		now = time.Now
	}
	return &MutationCoordinator[T, In]{
		entity:     entity,
		cache:      cache,
		store:      store,
		now:        now,
		newID:      func() string { return TempIDPrefix + uuid.New().String() },
		dependents: dependents,
		inFlight:   make(map[string]bool),
	}
}

// applied remembers what a speculative apply replaced.
type applied[T any] struct {
	ok       bool
	before   []T
	revision uint64
}

// cached returns the collection only while it is current. An invalidated
// list is never written back, or the pending refetch would be skipped.
func (m *MutationCoordinator[T, In]) cached(key string) ([]T, bool) {
	s := m.cache.Peek(key)
	if !s.Found || s.Err != nil || s.Invalidated {
		return nil, false
	}
	items, ok := s.Value.([]T)
	return items, ok
}

// Create inserts a placeholder, submits the record and reconciles.
func (m *MutationCoordinator[T, In]) Create(ctx context.Context, scope models.Scope, in In) (T, error) {
	log := logger.FromContext(ctx)
	key := ListKey(m.entity, scope)
	tempID := m.newID()
	placeholder := in.Placeholder(tempID, scope, m.now().UTC())

	m.mu.Lock()
	var app applied[T]
	if before, ok := m.cached(key); ok {
		next := make([]T, 0, len(before)+1)
		next = append(append(next, placeholder), before...)
		app = applied[T]{ok: true, before: before, revision: m.cache.Set(key, next)}
	}
	m.mu.Unlock()

	rec, err := m.store.Create(ctx, scope, in)
	if err != nil {
		var zero T
		m.rollback(ctx, key, app, func(items []T) []T { return withoutID(items, tempID) })
		log.Warn("Optimistic create rolled back", "entity", m.entity, "scenarioID", scope.ScenarioID, "error", err)
		return zero, fmt.Errorf("%w: create %s: %w", ErrMutationFailed, m.entity, err)
	}

	m.mu.Lock()
	if items, ok := m.cached(key); ok {
		m.cache.SetInvalidating(key, reconcileCreate(items, tempID, rec), m.dependentPrefixes(scope)...)
	} else {
		m.invalidateWithDependents(key, scope)
	}
	m.mu.Unlock()

	log.Info("Record created", "entity", m.entity, "recordID", rec.RecordID(), "scenarioID", scope.ScenarioID)
	return rec, nil
}

// Update replaces the cached record with the merged input, submits it and
// reconciles. Only one update per record may be in flight.
func (m *MutationCoordinator[T, In]) Update(ctx context.Context, scope models.Scope, id string, in In) (T, error) {
	var zero T
	log := logger.FromContext(ctx)
	key := ListKey(m.entity, scope)
	flightKey := key + ":" + id

	m.mu.Lock()
	if m.inFlight[flightKey] {
		m.mu.Unlock()
		return zero, ErrMutationInFlight
	}
	m.inFlight[flightKey] = true

	var app applied[T]
	var speculative T
	if before, ok := m.cached(key); ok {
		if i := indexOfID(before, id); i >= 0 {
			next := append([]T(nil), before...)
			speculative = in.MergeInto(before[i])
			next[i] = speculative
			app = applied[T]{ok: true, before: before, revision: m.cache.Set(key, next)}
		}
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inFlight, flightKey)
		m.mu.Unlock()
	}()

	rec, err := m.store.Update(ctx, scope, id, in)
	if err != nil {
		m.rollback(ctx, key, app, func(items []T) []T {
			i := indexOfID(items, id)
			if i < 0 || !reflect.DeepEqual(items[i], speculative) {
				return items
			}
			orig := indexOfID(app.before, id)
			next := append([]T(nil), items...)
			next[i] = app.before[orig]
			return next
		})
		log.Warn("Optimistic update rolled back", "entity", m.entity, "recordID", id, "error", err)
		return zero, fmt.Errorf("%w: update %s %s: %w", ErrMutationFailed, m.entity, id, err)
	}

	m.mu.Lock()
	if items, ok := m.cached(key); ok && indexOfID(items, id) >= 0 {
		next := append([]T(nil), items...)
		next[indexOfID(items, id)] = rec
		m.cache.SetInvalidating(key, next, m.dependentPrefixes(scope)...)
	} else {
		m.invalidateWithDependents(key, scope)
	}
	m.mu.Unlock()

	log.Info("Record updated", "entity", m.entity, "recordID", id, "scenarioID", scope.ScenarioID)
	return rec, nil
}

// rollback restores the snapshot when nothing touched the collection since
// the speculative apply. Otherwise undo removes only this mutation's change
// so a newer apply is kept.
func (m *MutationCoordinator[T, In]) rollback(ctx context.Context, key string, app applied[T], undo func([]T) []T) {
	if !app.ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.cache.Peek(key)
	if s.Revision == app.revision {
		m.cache.Set(key, app.before)
		return
	}
	if items, ok := m.cached(key); ok {
		logger.FromContext(ctx).Debug("Collection changed during mutation, undoing only its own change", "key", key)
		m.cache.Set(key, undo(items))
	}
}

// dependentPrefixes covers every cached value derived from the collection.
func (m *MutationCoordinator[T, In]) dependentPrefixes(scope models.Scope) []string {
	prefixes := make([]string, 0, len(m.dependents)+1)
	for _, entity := range m.dependents {
		prefixes = append(prefixes, ConvertedPrefix(entity, scope))
	}
	return append(prefixes, SummaryPrefix(scope))
}

func (m *MutationCoordinator[T, In]) invalidateWithDependents(key string, scope models.Scope) {
	m.cache.Invalidate(key)
	for _, prefix := range m.dependentPrefixes(scope) {
		m.cache.InvalidatePrefix(prefix)
	}
}

func indexOfID[T models.Record](items []T, id string) int {
	for i, it := range items {
		if it.RecordID() == id {
			return i
		}
	}
	return -1
}

func withoutID[T models.Record](items []T, id string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.RecordID() != id {
			out = append(out, it)
		}
	}
	return out
}

// reconcileCreate swaps the placeholder for the stored record, or prepends
// it when no placeholder is cached. The stored record is never duplicated.
func reconcileCreate[T models.Record](items []T, tempID string, rec T) []T {
	if indexOfID(items, tempID) < 0 {
		if indexOfID(items, rec.RecordID()) >= 0 {
			return items
		}
		return append([]T{rec}, items...)
	}

	out := make([]T, 0, len(items))
	for _, it := range items {
		switch it.RecordID() {
		case tempID:
			out = append(out, rec)
		case rec.RecordID():
			// already listed by a refetch
		default:
			out = append(out, it)
		}
	}
	return out
}
