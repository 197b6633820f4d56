package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/scenariobudget/src/models"
)

var monthsPerYear = decimal.NewFromInt(12)

// IncomeService aggregates a scenario's incomes into a monthly total.
type IncomeService struct {
	*aggregator[models.Income, models.IncomeInput]
}

func NewIncomeService(cache *QueryCache, store RecordStore[models.Income, models.IncomeInput],
	resolver *ConvertedAmountResolver, scenarios BaseCurrencyReader, now func() time.Time) *IncomeService {
	return &IncomeService{newAggregator(EntityIncomes, cache, store, resolver, scenarios, now,
		func(items []models.Income, _ time.Time) []ConvertibleAmount {
			out := make([]ConvertibleAmount, len(items))
			for i, it := range items {
				out[i] = ConvertibleAmount{ID: it.ID, Amount: it.Amount, Currency: it.Currency}
			}
			return out
		},
		func(it models.Income, amount float64) float64 { return perMonth(it.Frequency, amount) },
	)}
}

// perMonth spreads annual amounts over twelve months.
func perMonth(f models.Frequency, amount float64) float64 {
	if f != models.FrequencyAnnual {
		return amount
	}
	v, _ := decimal.NewFromFloat(amount).Div(monthsPerYear).Float64()
	return v
}
