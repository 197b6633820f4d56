package services

import (
	"context"
	"fmt"
	"time"

	"github.com/username/scenariobudget/src/models"
	"github.com/username/scenariobudget/src/processors"
)

// AllocationReader exposes a scenario's goal savings allocations.
type AllocationReader interface {
	Allocations(ctx context.Context, scope models.Scope, wait bool) models.CollectionState[models.GoalSavingsAllocation]
}

// GoalService aggregates goal targets and the monthly payments needed to
// reach them.
type GoalService struct {
	*aggregator[models.Goal, models.GoalInput]
	allocations AllocationReader
}

func NewGoalService(cache *QueryCache, store RecordStore[models.Goal, models.GoalInput],
	resolver *ConvertedAmountResolver, scenarios BaseCurrencyReader, allocations AllocationReader, now func() time.Time) *GoalService {
	return &GoalService{
		aggregator: newAggregator(EntityGoals, cache, store, resolver, scenarios, now,
			func(items []models.Goal, _ time.Time) []ConvertibleAmount {
				out := make([]ConvertibleAmount, len(items))
				for i, it := range items {
					out[i] = ConvertibleAmount{ID: it.ID, Amount: it.TargetAmount, Currency: it.Currency}
				}
				return out
			},
			nil,
			EntityGoalPayments,
		),
		allocations: allocations,
	}
}

// TargetTotal sums goal targets in the base currency.
func (s *GoalService) TargetTotal(ctx context.Context, scope models.Scope, wait bool) (models.Total, error) {
	return s.Total(ctx, scope, wait)
}

type goalPaymentsInput struct {
	goals       []models.Goal
	allocations []models.GoalSavingsAllocation
	ready       bool
}

func (s *GoalService) paymentsInput(ctx context.Context, scope models.Scope, wait bool) (goalPaymentsInput, error) {
	goals := s.load(ctx, scope, wait)
	allocs := s.allocations.Allocations(ctx, scope, wait)
	if goals.Status == models.CollectionFailed {
		return goalPaymentsInput{}, fmt.Errorf("load goals: %w", goals.Err)
	}
	if allocs.Status == models.CollectionFailed {
		return goalPaymentsInput{}, fmt.Errorf("load allocations: %w", allocs.Err)
	}
	ready := goals.Status == models.CollectionLoaded && allocs.Status == models.CollectionLoaded
	return goalPaymentsInput{goals: goals.Items, allocations: allocs.Items, ready: ready}, nil
}

// MonthlyPayments returns each goal's monthly payment in its own currency.
// It is recomputed from the current goals and allocations on every call.
// ready is false while either collection is still loading.
func (s *GoalService) MonthlyPayments(ctx context.Context, scope models.Scope, wait bool) (payments map[string]float64, ready bool, err error) {
	in, err := s.paymentsInput(ctx, scope, wait)
	if err != nil || !in.ready {
		return map[string]float64{}, false, err
	}
	return processors.MonthlyPayments(in.goals, in.allocations), true, nil
}

// MonthlyPaymentsTotal sums the monthly payments in the base currency,
// converted at cent precision.
func (s *GoalService) MonthlyPaymentsTotal(ctx context.Context, scope models.Scope, wait bool) (models.Total, error) {
	in, err := s.paymentsInput(ctx, scope, wait)
	if err != nil || !in.ready {
		return models.Total{}, err
	}

	base, err := s.scenarios.BaseCurrency(ctx, scope)
	if err != nil {
		return models.Total{}, err
	}

	payments := processors.MonthlyPayments(in.goals, in.allocations)
	items := make([]ConvertibleAmount, len(in.goals))
	for i, g := range in.goals {
		items[i] = ConvertibleAmount{ID: g.ID, Amount: payments[g.ID], Currency: g.Currency}
	}
	return s.sum(ctx, scope, in.goals, items, base, PrecisionCents, EntityGoalPayments, len(in.allocations), wait), nil
}
