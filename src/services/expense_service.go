package services

import (
	"time"

	"github.com/username/scenariobudget/src/models"
)

// ExpenseService aggregates a scenario's expenses into a monthly total.
type ExpenseService struct {
	*aggregator[models.Expense, models.ExpenseInput]
}

func NewExpenseService(cache *QueryCache, store RecordStore[models.Expense, models.ExpenseInput],
	resolver *ConvertedAmountResolver, scenarios BaseCurrencyReader, now func() time.Time) *ExpenseService {
	return &ExpenseService{newAggregator(EntityExpenses, cache, store, resolver, scenarios, now,
		func(items []models.Expense, _ time.Time) []ConvertibleAmount {
			out := make([]ConvertibleAmount, len(items))
			for i, it := range items {
				out[i] = ConvertibleAmount{ID: it.ID, Amount: it.Amount, Currency: it.Currency}
			}
			return out
		},
		func(it models.Expense, amount float64) float64 { return perMonth(it.Frequency, amount) },
	)}
}
