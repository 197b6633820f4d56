package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
	"github.com/username/scenariobudget/src/processors"
)

// AllocationService lists and creates goal savings allocations.
type AllocationService struct {
	cache   *QueryCache
	store   AllocationStore
	records *collection[models.GoalSavingsAllocation]
	savings *SavingsService

	// locks serializes allocations drawn from the same savings record.
	locks sync.Map
}

func NewAllocationService(cache *QueryCache, store AllocationStore, savings *SavingsService) *AllocationService {
	return &AllocationService{
		cache:   cache,
		store:   store,
		records: &collection[models.GoalSavingsAllocation]{entity: EntityAllocations, cache: cache, list: store.ListAllocations},
		savings: savings,
	}
}

// Allocations returns the allocations of the scenario's goals.
func (s *AllocationService) Allocations(ctx context.Context, scope models.Scope, wait bool) models.CollectionState[models.GoalSavingsAllocation] {
	if wait {
		return s.records.Load(ctx, scope)
	}
	return s.records.Peek(ctx, scope)
}

func (s *AllocationService) findSavings(ctx context.Context, scope models.Scope, savingsID string) (models.Savings, error) {
	state := s.savings.Collection(ctx, scope)
	if state.Status == models.CollectionFailed {
		return models.Savings{}, fmt.Errorf("load savings: %w", state.Err)
	}
	for _, sv := range state.Items {
		if sv.ID == savingsID {
			return sv, nil
		}
	}
	return models.Savings{}, fmt.Errorf("%w: savings %s", ErrRecordNotFound, savingsID)
}

// AvailableAmount is what remains of a savings principal after the
// allocations drawn from it, ignoring those toward excludeGoalID.
func (s *AllocationService) AvailableAmount(ctx context.Context, scope models.Scope, savingsID, excludeGoalID string) (float64, error) {
	sv, err := s.findSavings(ctx, scope, savingsID)
	if err != nil {
		return 0, err
	}
	allocs := s.records.Load(ctx, scope)
	if allocs.Status == models.CollectionFailed {
		return 0, fmt.Errorf("load allocations: %w", allocs.Err)
	}
	return processors.AvailableAmount(allocs.Items, sv.ID, sv.Amount, sv.Currency, excludeGoalID), nil
}

// Allocate earmarks part of a savings record toward a goal. The allocation
// takes the savings currency and may not exceed what is still available.
func (s *AllocationService) Allocate(ctx context.Context, scope models.Scope, in models.AllocationInput) (models.GoalSavingsAllocation, error) {
	unlock := s.lockSavings(scope, in.SavingsID)
	defer unlock()

	sv, err := s.findSavings(ctx, scope, in.SavingsID)
	if err != nil {
		return models.GoalSavingsAllocation{}, err
	}
	available, err := s.AvailableAmount(ctx, scope, in.SavingsID, "")
	if err != nil {
		return models.GoalSavingsAllocation{}, err
	}
	if in.AmountUsed > available {
		return models.GoalSavingsAllocation{}, fmt.Errorf("%w: requested %.2f, available %.2f %s",
			ErrAllocationExceedsAvailable, in.AmountUsed, available, sv.Currency)
	}

	alloc, err := s.store.CreateAllocation(ctx, scope, in, sv.Currency)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.GoalSavingsAllocation{}, fmt.Errorf("%w: %w", ErrRecordNotFound, err)
		}
		if errors.Is(err, models.ErrExceedsAvailable) {
			return models.GoalSavingsAllocation{}, fmt.Errorf("%w: %w", ErrAllocationExceedsAvailable, err)
		}
		return models.GoalSavingsAllocation{}, fmt.Errorf("%w: create allocation: %w", ErrMutationFailed, err)
	}

	s.cache.Invalidate(ListKey(EntityAllocations, scope))
	s.cache.InvalidatePrefix(ConvertedPrefix(EntityGoalPayments, scope))
	s.cache.InvalidatePrefix(SummaryPrefix(scope))
	logger.FromContext(ctx).Info("Savings allocated to goal", "goalID", in.GoalID, "savingsID", in.SavingsID, "amount", in.AmountUsed)
	return alloc, nil
}

func (s *AllocationService) lockSavings(scope models.Scope, savingsID string) func() {
	v, _ := s.locks.LoadOrStore(ListKey(EntitySavings, scope)+":"+savingsID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
