package services

import (
	"time"

	"github.com/username/scenariobudget/src/models"
	"github.com/username/scenariobudget/src/processors"
)

// SavingsService aggregates a scenario's savings. Each record counts with
// the interest it accrued up to the moment of the read, and that amount is
// what gets converted.
type SavingsService struct {
	*aggregator[models.Savings, models.SavingsInput]
}

func NewSavingsService(cache *QueryCache, store RecordStore[models.Savings, models.SavingsInput],
	resolver *ConvertedAmountResolver, scenarios BaseCurrencyReader, now func() time.Time) *SavingsService {
	return &SavingsService{newAggregator(EntitySavings, cache, store, resolver, scenarios, now,
		func(items []models.Savings, now time.Time) []ConvertibleAmount {
			out := make([]ConvertibleAmount, len(items))
			for i, it := range items {
				out[i] = ConvertibleAmount{ID: it.ID, Amount: processors.AmountWithInterest(it, now), Currency: it.Currency}
			}
			return out
		},
		nil,
	)}
}
