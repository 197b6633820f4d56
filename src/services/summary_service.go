package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/username/scenariobudget/src/models"
	"golang.org/x/sync/errgroup"
)

// SummaryService combines the four aggregators into a scenario summary.
// Cached summaries are dropped as soon as any entry of the same scope that
// they were computed from changes.
type SummaryService struct {
	cache     *QueryCache
	scenarios BaseCurrencyReader
	incomes   *IncomeService
	expenses  *ExpenseService
	goals     *GoalService
	savings   *SavingsService

	unsubscribe func()
}

func NewSummaryService(cache *QueryCache, scenarios BaseCurrencyReader, incomes *IncomeService,
	expenses *ExpenseService, goals *GoalService, savings *SavingsService) *SummaryService {
	s := &SummaryService{
		cache:     cache,
		scenarios: scenarios,
		incomes:   incomes,
		expenses:  expenses,
		goals:     goals,
		savings:   savings,
	}
	s.unsubscribe = cache.Subscribe(s.onChange)
	return s
}

func (s *SummaryService) onChange(key string) {
	entity, scope, ok := keyScope(key)
	if !ok || entity == EntitySummary {
		return
	}
	s.cache.RemovePrefix(SummaryPrefix(scope))
}

// Close stops following cache changes.
func (s *SummaryService) Close() {
	s.unsubscribe()
}

func summaryKey(scope models.Scope, base *string) string {
	if base == nil {
		return SummaryKey(scope, "")
	}
	return SummaryKey(scope, *base)
}

// Summary waits for every upstream total. A summary computed while its
// inputs were still being written is returned but not cached.
func (s *SummaryService) Summary(ctx context.Context, scope models.Scope) (models.Summary, error) {
	base, err := s.scenarios.BaseCurrency(ctx, scope)
	if err != nil {
		return models.Summary{}, err
	}
	key := summaryKey(scope, base)
	if snap := s.cache.Peek(key); s.cache.IsFresh(snap) {
		return snap.Value.(models.Summary), nil
	}

	v, err := s.cache.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return s.compute(ctx, scope, base, true)
	})
	if err != nil {
		return models.Summary{}, err
	}
	sum := v.(models.Summary)
	if !sum.Complete {
		s.cache.Remove(key)
	}
	return sum, nil
}

// PeekSummary never waits on a conversion or a record fetch. Missing
// inputs are started in the background and the summary reports Complete
// false until they settle.
func (s *SummaryService) PeekSummary(ctx context.Context, scope models.Scope) (models.Summary, error) {
	base, err := s.scenarios.BaseCurrency(ctx, scope)
	if err != nil {
		return models.Summary{}, err
	}
	key := summaryKey(scope, base)
	if snap := s.cache.Peek(key); snap.Found && snap.Err == nil && !snap.Invalidated {
		return snap.Value.(models.Summary), nil
	}

	sum, err := s.compute(ctx, scope, base, false)
	if err != nil {
		return models.Summary{}, err
	}
	if sum.Complete {
		s.cache.Set(key, sum)
	}
	return sum, nil
}

func (s *SummaryService) compute(ctx context.Context, scope models.Scope, base *string, wait bool) (models.Summary, error) {
	var income, expense, goal, savings models.Total

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		income, err = s.incomes.Total(gctx, scope, wait)
		return err
	})
	g.Go(func() (err error) {
		expense, err = s.expenses.Total(gctx, scope, wait)
		return err
	})
	g.Go(func() (err error) {
		goal, err = s.goals.MonthlyPaymentsTotal(gctx, scope, wait)
		return err
	})
	g.Go(func() (err error) {
		savings, err = s.savings.Total(gctx, scope, wait)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Summary{}, err
	}

	balance, _ := decimal.NewFromFloat(income.Amount).
		Sub(decimal.NewFromFloat(expense.Amount)).
		Sub(decimal.NewFromFloat(goal.Amount)).
		Round(2).Float64()

	sum := models.Summary{
		Income:   income.Amount,
		Expense:  expense.Amount,
		Goal:     goal.Amount,
		Savings:  savings.Amount,
		Balance:  balance,
		Complete: income.Complete && expense.Complete && goal.Complete && savings.Complete,
	}
	if base != nil {
		sum.Currency = *base
	}
	return sum, nil
}
