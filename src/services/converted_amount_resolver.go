package services

import (
	"context"
	"math"

	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
	"github.com/username/scenariobudget/src/utils"
)

// Precision is the number of decimals converted amounts are rounded to.
type Precision int32

const (
	// PrecisionWhole is used for display totals.
	PrecisionWhole Precision = 0
	// PrecisionCents is used for monthly payment figures.
	PrecisionCents Precision = 2
)

// ConvertibleAmount is one record's amount in its native currency.
type ConvertibleAmount struct {
	ID       string
	Amount   float64
	Currency string
}

// ConversionRequest asks for the converted amounts of a collection.
type ConversionRequest struct {
	Entity    string
	Scope     models.Scope
	Currency  string
	Precision Precision
	Items     []ConvertibleAmount
	// Resolved counts upstream values already settled; it is part of the key.
	Resolved int
	// Display keeps display-currency maps apart from base-currency ones.
	Display bool
}

func (r ConversionRequest) key() string {
	return ConvertedKey(r.Entity, r.Scope, r.Currency, r.Display, len(r.Items), r.Resolved)
}

// pending returns the items that actually need conversion.
func (r ConversionRequest) pending() []ConvertibleAmount {
	var out []ConvertibleAmount
	for _, it := range r.Items {
		if it.Currency == "" || it.Currency == r.Currency {
			continue
		}
		if math.IsNaN(it.Amount) || math.IsInf(it.Amount, 0) {
			continue
		}
		out = append(out, it)
	}
	return out
}

type conversionOutcome struct {
	amounts models.ConvertedAmountMap
	failed  bool
}

// ConvertedAmountResolver produces converted amount maps for collections and
// caches them per collection version and target currency.
type ConvertedAmountResolver struct {
	cache   *QueryCache
	gateway ConversionGateway
}

func NewConvertedAmountResolver(cache *QueryCache, gateway ConversionGateway) *ConvertedAmountResolver {
	return &ConvertedAmountResolver{cache: cache, gateway: gateway}
}

// Resolve blocks until the map for req is known.
func (r *ConvertedAmountResolver) Resolve(ctx context.Context, req ConversionRequest) models.Result[models.ConvertedAmountMap] {
	todo := req.pending()
	if len(todo) == 0 || req.Currency == "" {
		return models.Resolved(models.ConvertedAmountMap{})
	}

	v, err := r.cache.Fetch(ctx, req.key(), r.fetchFunc(req, todo))
	if err != nil {
		// only a cancelled caller ends up here
		return models.Pending[models.ConvertedAmountMap]()
	}
	return outcomeResult(v.(conversionOutcome))
}

// Peek returns what is known about req without waiting, starting a
// background conversion when none is cached.
func (r *ConvertedAmountResolver) Peek(ctx context.Context, req ConversionRequest) models.Result[models.ConvertedAmountMap] {
	todo := req.pending()
	if len(todo) == 0 || req.Currency == "" {
		return models.Resolved(models.ConvertedAmountMap{})
	}

	key := req.key()
	s := r.cache.Peek(key)
	if !r.cache.IsFresh(s) {
		r.cache.Prefetch(ctx, key, r.fetchFunc(req, todo))
	}
	if !s.Found || s.Invalidated {
		return models.Pending[models.ConvertedAmountMap]()
	}
	return outcomeResult(s.Value.(conversionOutcome))
}

func outcomeResult(o conversionOutcome) models.Result[models.ConvertedAmountMap] {
	if o.failed {
		return models.Result[models.ConvertedAmountMap]{Status: models.ResultUnavailable, Value: models.ConvertedAmountMap{}}
	}
	return models.Resolved(o.amounts)
}

func (r *ConvertedAmountResolver) fetchFunc(req ConversionRequest, todo []ConvertibleAmount) FetchFunc {
	return func(ctx context.Context) (any, error) {
		return r.convert(ctx, req, todo), nil
	}
}

func (r *ConvertedAmountResolver) convert(ctx context.Context, req ConversionRequest, todo []ConvertibleAmount) conversionOutcome {
	log := logger.FromContext(ctx)

	items := make([]models.ConversionItem, len(todo))
	for i, it := range todo {
		items[i] = models.ConversionItem{Amount: it.Amount, Currency: it.Currency}
	}

	converted := r.gateway.ConvertBulk(ctx, items, req.Currency)
	if converted == nil {
		log.Warn("No converted data returned", "entity", req.Entity, "scenarioID", req.Scope.ScenarioID, "currency", req.Currency)
		return conversionOutcome{amounts: models.ConvertedAmountMap{}, failed: true}
	}

	// The response is index-aligned with the request, not keyed by id.
	amounts := make(models.ConvertedAmountMap, len(todo))
	for i, it := range todo {
		if i >= len(converted) || converted[i].ConvertedAmount == nil {
			log.Warn("Malformed converted amount", "entity", req.Entity, "recordID", it.ID, "index", i)
			continue
		}
		v := *converted[i].ConvertedAmount
		if math.IsNaN(v) || math.IsInf(v, 0) {
			log.Warn("Non-finite converted amount", "entity", req.Entity, "recordID", it.ID, "index", i)
			continue
		}
		amounts[it.ID] = utils.RoundFloat(v, int32(req.Precision))
	}
	return conversionOutcome{amounts: amounts}
}
