package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/scenariobudget/src/models"
)

type incomeFixture struct {
	svc   *IncomeService
	store *fakeStore[models.Income, models.IncomeInput]
	gw    *fakeGateway
	cache *QueryCache
}

func newIncomeFixture(base *string, rates map[string]float64, items ...models.Income) incomeFixture {
	cache := newTestCache()
	gw := &fakeGateway{rates: rates}
	store := &fakeStore[models.Income, models.IncomeInput]{items: items}
	svc := NewIncomeService(cache, store, NewConvertedAmountResolver(cache, gw), fakeBase{base}, fixedNow)
	return incomeFixture{svc: svc, store: store, gw: gw, cache: cache}
}

func income(id string, amount float64, currency string, f models.Frequency) models.Income {
	return models.Income{ID: id, Amount: amount, Currency: currency, Frequency: f, CreatedAt: testNow}
}

func TestTotalInBaseCurrencyIsPlainSum(t *testing.T) {
	f := newIncomeFixture(ptr("USD"), map[string]float64{},
		income("a", 100, "USD", models.FrequencyMonthly),
		income("b", 250.5, "USD", models.FrequencyMonthly),
	)

	total, err := f.svc.Total(context.Background(), testScope, true)

	require.NoError(t, err)
	assert.Equal(t, models.Total{Amount: 350.5, Currency: "USD", Complete: true}, total)
	assert.Zero(t, f.gw.callCount())
}

func TestTotalWithoutBaseCurrencySumsNatively(t *testing.T) {
	f := newIncomeFixture(nil, nil,
		income("a", 100, "USD", models.FrequencyMonthly),
		income("b", 1200, "EUR", models.FrequencyAnnual),
	)

	total, err := f.svc.Total(context.Background(), testScope, true)

	require.NoError(t, err)
	assert.Equal(t, 200.0, total.Amount)
	assert.True(t, total.Complete)
	assert.Zero(t, f.gw.callCount())
}

func TestTotalUsesConvertedAmounts(t *testing.T) {
	f := newIncomeFixture(ptr("USD"), map[string]float64{"EUR": 1.084},
		income("a", 100, "EUR", models.FrequencyMonthly),
		income("b", 10, "USD", models.FrequencyMonthly),
	)

	total, err := f.svc.Total(context.Background(), testScope, true)

	require.NoError(t, err)
	assert.Equal(t, 118.0, total.Amount)
	assert.True(t, total.Complete)
}

func TestTotalSpreadsAnnualAfterConversion(t *testing.T) {
	f := newIncomeFixture(ptr("USD"), map[string]float64{"EUR": 2},
		income("a", 600, "EUR", models.FrequencyAnnual),
	)

	total, err := f.svc.Total(context.Background(), testScope, true)

	require.NoError(t, err)
	assert.Equal(t, 100.0, total.Amount)
}

func TestTotalExcludesUnconvertedRecordAndWarns(t *testing.T) {
	f := newIncomeFixture(ptr("USD"), nil,
		income("a", 100, "EUR", models.FrequencyMonthly),
		income("b", 40, "USD", models.FrequencyMonthly),
	)
	ctx, logs := logCapture()

	total, err := f.svc.Total(ctx, testScope, true)

	require.NoError(t, err)
	assert.Equal(t, 40.0, total.Amount)
	assert.True(t, total.Complete)
	assert.Contains(t, logs.String(), "Missing converted amount")
	assert.Contains(t, logs.String(), `"recordID":"a"`)
}

func TestTotalWithoutWaitingReportsIncomplete(t *testing.T) {
	f := newIncomeFixture(ptr("USD"), map[string]float64{"EUR": 2},
		income("a", 100, "EUR", models.FrequencyMonthly),
	)

	first, err := f.svc.Total(context.Background(), testScope, false)
	require.NoError(t, err)
	assert.False(t, first.Complete)
	assert.Zero(t, first.Amount)

	require.Eventually(t, func() bool {
		total, err := f.svc.Total(context.Background(), testScope, false)
		return err == nil && total.Complete && total.Amount == 200
	}, time.Second, 5*time.Millisecond)
}

func TestTotalReportsStoreFailure(t *testing.T) {
	f := newIncomeFixture(ptr("USD"), nil)
	f.store.listErr = errStore

	_, err := f.svc.Total(context.Background(), testScope, true)

	assert.ErrorIs(t, err, errStore)
	state := f.svc.PeekCollection(context.Background(), testScope)
	assert.Contains(t, []models.CollectionStatus{models.CollectionFailed, models.CollectionLoading}, state.Status)
	assert.Empty(t, state.Items)
}

func TestCollectionStates(t *testing.T) {
	f := newIncomeFixture(ptr("USD"), nil, income("a", 1, "USD", models.FrequencyMonthly))

	assert.Equal(t, models.CollectionIdle, f.svc.records.State(testScope).Status)

	state := f.svc.Collection(context.Background(), testScope)
	assert.Equal(t, models.CollectionLoaded, state.Status)
	assert.Len(t, state.Items, 1)
}

func TestConvertedDisplayMapIsKeptApart(t *testing.T) {
	f := newIncomeFixture(ptr("USD"), map[string]float64{"EUR": 2, "USD": 0.5},
		income("a", 100, "EUR", models.FrequencyMonthly),
		income("b", 10, "USD", models.FrequencyMonthly),
	)
	_, err := f.svc.Total(context.Background(), testScope, true)
	require.NoError(t, err)

	res := f.svc.Converted(context.Background(), testScope, "GBP", true)

	require.True(t, res.IsResolved())
	assert.Equal(t, models.ConvertedAmountMap{"a": 200, "b": 5}, res.Value)
	assert.True(t, f.cache.Peek(ConvertedKey(EntityIncomes, testScope, "GBP", true, 2, 0)).Found)
	assert.False(t, f.cache.Peek(ConvertedKey(EntityIncomes, testScope, "GBP", false, 2, 0)).Found)
}

func TestExpenseTotal(t *testing.T) {
	cache := newTestCache()
	store := &fakeStore[models.Expense, models.ExpenseInput]{items: []models.Expense{
		{ID: "e1", Amount: 50, Currency: "EUR", Frequency: models.FrequencyMonthly},
		{ID: "e2", Amount: 120, Currency: "EUR", Frequency: models.FrequencyAnnual},
	}}
	svc := NewExpenseService(cache, store, NewConvertedAmountResolver(cache, &fakeGateway{}), fakeBase{ptr("EUR")}, fixedNow)

	total, err := svc.Total(context.Background(), testScope, true)

	require.NoError(t, err)
	assert.Equal(t, models.Total{Amount: 60, Currency: "EUR", Complete: true}, total)
}

func TestSavingsTotalIncludesInterest(t *testing.T) {
	cache := newTestCache()
	monthly := models.CapitalizationMonthly
	deposit := testNow.Add(-365*24*time.Hour - 6*time.Hour)
	store := &fakeStore[models.Savings, models.SavingsInput]{items: []models.Savings{
		{ID: "s1", Amount: 1000, Currency: "EUR", InterestRate: ptr(12.0), CapitalizationPeriod: &monthly, DepositDate: &deposit},
		{ID: "s2", Amount: 500, Currency: "EUR"},
	}}
	svc := NewSavingsService(cache, store, NewConvertedAmountResolver(cache, &fakeGateway{}), fakeBase{ptr("EUR")}, fixedNow)

	total, err := svc.Total(context.Background(), testScope, true)

	require.NoError(t, err)
	assert.Equal(t, 1626.83, total.Amount)
}
