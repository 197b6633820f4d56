package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
)

// aggregator wires a record collection to conversion, totals and optimistic
// writes. Income, Expense, Goal and Savings services embed one each.
type aggregator[T models.Record, In models.RecordInput[T]] struct {
	entity    string
	records   *collection[T]
	resolver  *ConvertedAmountResolver
	scenarios BaseCurrencyReader
	mutations *MutationCoordinator[T, In]
	now       func() time.Time

	// amounts maps records, one item each in the same order, to the native
	// amounts sent for conversion.
	amounts func(items []T, now time.Time) []ConvertibleAmount
	// normalize turns a record's amount, native or converted, into its
	// contribution to the total.
	normalize func(item T, amount float64) float64
}

func newAggregator[T models.Record, In models.RecordInput[T]](
	entity string,
	cache *QueryCache,
	store RecordStore[T, In],
	resolver *ConvertedAmountResolver,
	scenarios BaseCurrencyReader,
	now func() time.Time,
	amounts func(items []T, now time.Time) []ConvertibleAmount,
	normalize func(item T, amount float64) float64,
	dependents ...string,
) *aggregator[T, In] {
	if now == nil {
		now = time.Now
	}
	if normalize == nil {
		normalize = func(_ T, amount float64) float64 { return amount }
	}
	records := &collection[T]{entity: entity, cache: cache, list: store.List}
	return &aggregator[T, In]{
		entity:    entity,
		records:   records,
		resolver:  resolver,
		scenarios: scenarios,
		mutations: NewMutationCoordinator(entity, cache, store, now, append([]string{entity}, dependents...)...),
		now:       now,
		amounts:   amounts,
		normalize: normalize,
	}
}

// Collection blocks until the scenario's records are loaded.
func (a *aggregator[T, In]) Collection(ctx context.Context, scope models.Scope) models.CollectionState[T] {
	return a.records.Load(ctx, scope)
}

// PeekCollection returns the cached records without waiting.
func (a *aggregator[T, In]) PeekCollection(ctx context.Context, scope models.Scope) models.CollectionState[T] {
	return a.records.Peek(ctx, scope)
}

// Create adds a record through the optimistic mutation coordinator.
func (a *aggregator[T, In]) Create(ctx context.Context, scope models.Scope, in In) (T, error) {
	return a.mutations.Create(ctx, scope, in)
}

// Update changes a record through the optimistic mutation coordinator.
func (a *aggregator[T, In]) Update(ctx context.Context, scope models.Scope, id string, in In) (T, error) {
	return a.mutations.Update(ctx, scope, id, in)
}

// Total is the sum of the scenario's records in its base currency. With
// wait false it never blocks and reports Complete false while anything
// it depends on is still loading.
func (a *aggregator[T, In]) Total(ctx context.Context, scope models.Scope, wait bool) (models.Total, error) {
	state := a.load(ctx, scope, wait)
	switch state.Status {
	case models.CollectionFailed:
		return models.Total{}, fmt.Errorf("load %s: %w", a.entity, state.Err)
	case models.CollectionIdle, models.CollectionLoading:
		return models.Total{}, nil
	}

	base, err := a.scenarios.BaseCurrency(ctx, scope)
	if err != nil {
		return models.Total{}, err
	}
	items := a.amounts(state.Items, a.now())
	return a.sum(ctx, scope, state.Items, items, base, PrecisionWhole, a.entity, 0, wait), nil
}

// Converted returns the scenario's amounts converted to any currency, kept
// apart from the base currency maps.
func (a *aggregator[T, In]) Converted(ctx context.Context, scope models.Scope, currency string, wait bool) models.Result[models.ConvertedAmountMap] {
	state := a.load(ctx, scope, wait)
	switch state.Status {
	case models.CollectionFailed:
		return models.Unavailable[models.ConvertedAmountMap]()
	case models.CollectionIdle, models.CollectionLoading:
		return models.Pending[models.ConvertedAmountMap]()
	}
	req := ConversionRequest{
		Entity:    a.entity,
		Scope:     scope,
		Currency:  currency,
		Precision: PrecisionWhole,
		Items:     a.amounts(state.Items, a.now()),
		Display:   true,
	}
	return a.resolve(ctx, req, wait)
}

func (a *aggregator[T, In]) load(ctx context.Context, scope models.Scope, wait bool) models.CollectionState[T] {
	if wait {
		return a.records.Load(ctx, scope)
	}
	return a.records.Peek(ctx, scope)
}

func (a *aggregator[T, In]) resolve(ctx context.Context, req ConversionRequest, wait bool) models.Result[models.ConvertedAmountMap] {
	if wait {
		return a.resolver.Resolve(ctx, req)
	}
	return a.resolver.Peek(ctx, req)
}

// sum applies the shared normalization policy: no base currency sums native
// amounts; same-currency records contribute natively; others use their
// converted amount, or zero while the conversion is pending, or zero with a
// warning once it has settled without them.
func (a *aggregator[T, In]) sum(ctx context.Context, scope models.Scope, records []T, items []ConvertibleAmount,
	base *string, precision Precision, entity string, resolved int, wait bool) models.Total {

	total := decimal.Zero
	if base == nil || *base == "" {
		for i, it := range items {
			total = total.Add(decimal.NewFromFloat(a.normalize(records[i], it.Amount)))
		}
		f, _ := total.Round(2).Float64()
		return models.Total{Amount: f, Complete: true}
	}

	converted := a.resolve(ctx, ConversionRequest{
		Entity:    entity,
		Scope:     scope,
		Currency:  *base,
		Precision: precision,
		Items:     items,
		Resolved:  resolved,
	}, wait)

	complete := true
	for i, it := range items {
		amount := it.Amount
		if it.Currency != *base {
			v, ok := converted.Value[it.ID]
			switch {
			case ok:
				amount = v
			case converted.IsPending():
				complete = false
				continue
			default:
				logger.FromContext(ctx).Warn("Missing converted amount",
					"entity", entity, "recordID", it.ID, "currency", it.Currency, "baseCurrency", *base, "status", converted.Status)
				continue
			}
		}
		total = total.Add(decimal.NewFromFloat(a.normalize(records[i], amount)))
	}

	f, _ := total.Round(2).Float64()
	return models.Total{Amount: f, Currency: *base, Complete: complete}
}
