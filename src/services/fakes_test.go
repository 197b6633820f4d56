package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
)

var (
	testScope = models.Scope{UserID: "user-1", ScenarioID: "scenario-1"}
	testNow   = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	errStore  = errors.New("store unavailable")
)

func fixedNow() time.Time { return testNow }

func ptr[T any](v T) *T { return &v }

// fakeStore is an in-memory RecordStore. Writes can be made to fail or to
// wait on a channel so tests can interleave them.
type fakeStore[T models.Record, In models.RecordInput[T]] struct {
	mu        sync.Mutex
	items     []T
	seq       int
	listCalls int32

	listErr   error
	createErr error
	updateErr error
	// gate, when set, is received from before a write returns.
	gate chan struct{}
}

func (s *fakeStore[T, In]) List(ctx context.Context, scope models.Scope) ([]T, error) {
	atomic.AddInt32(&s.listCalls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]T(nil), s.items...), nil
}

func (s *fakeStore[T, In]) wait() {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (s *fakeStore[T, In]) Create(ctx context.Context, scope models.Scope, in In) (T, error) {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if s.createErr != nil {
		return zero, s.createErr
	}
	s.seq++
	rec := in.Placeholder(fmt.Sprintf("rec-%d", s.seq), scope, testNow)
	s.items = append([]T{rec}, s.items...)
	return rec, nil
}

func (s *fakeStore[T, In]) Update(ctx context.Context, scope models.Scope, id string, in In) (T, error) {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if s.updateErr != nil {
		return zero, s.updateErr
	}
	for i, it := range s.items {
		if it.RecordID() == id {
			s.items[i] = in.MergeInto(it)
			return s.items[i], nil
		}
	}
	return zero, models.ErrNotFound
}

func (s *fakeStore[T, In]) setGate(gate chan struct{}) {
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
}

// fakeGateway converts with a fixed rate per source currency. A nil rates
// map makes every call fail.
type fakeGateway struct {
	mu    sync.Mutex
	rates map[string]float64
	calls [][]models.ConversionItem
}

func (g *fakeGateway) ConvertBulk(ctx context.Context, items []models.ConversionItem, target string) []models.ConvertedItem {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, items)
	if g.rates == nil {
		return nil
	}
	out := make([]models.ConvertedItem, len(items))
	for i, it := range items {
		if rate, ok := g.rates[it.Currency]; ok {
			out[i].ConvertedAmount = ptr(it.Amount * rate)
		}
	}
	return out
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeBase struct{ currency *string }

func (f fakeBase) BaseCurrency(ctx context.Context, scope models.Scope) (*string, error) {
	return f.currency, nil
}

// logCapture returns a context whose logger writes JSON lines to the buffer.
func logCapture() (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger.ToContext(context.Background(), l), &buf
}

func newTestCache() *QueryCache {
	return NewQueryCache(time.Minute, 10*time.Minute, WithBackgroundFetchTimeout(5*time.Second))
}

type fakeScenarioStore struct {
	mu        sync.Mutex
	scenarios []models.Scenario
	gets      int
}

func (s *fakeScenarioStore) ListScenarios(ctx context.Context, userID string) ([]models.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Scenario
	for _, sc := range s.scenarios {
		if sc.UserID == userID {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *fakeScenarioStore) GetScenario(ctx context.Context, scope models.Scope) (models.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	for _, sc := range s.scenarios {
		if sc.ID == scope.ScenarioID && sc.UserID == scope.UserID {
			return sc, nil
		}
	}
	return models.Scenario{}, models.ErrNotFound
}

func (s *fakeScenarioStore) CreateScenario(ctx context.Context, userID, name, slug string) (models.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := models.Scenario{ID: fmt.Sprintf("scenario-%d", len(s.scenarios)+1), UserID: userID, Name: name, Slug: slug, CreatedAt: testNow}
	s.scenarios = append(s.scenarios, sc)
	return sc, nil
}

func (s *fakeScenarioStore) SetBaseCurrency(ctx context.Context, scope models.Scope, currency string) (models.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sc := range s.scenarios {
		if sc.ID == scope.ScenarioID && sc.UserID == scope.UserID {
			if sc.BaseCurrency != nil {
				return models.Scenario{}, models.ErrConflict
			}
			s.scenarios[i].BaseCurrency = &currency
			return s.scenarios[i], nil
		}
	}
	return models.Scenario{}, models.ErrNotFound
}

type fakeAllocationStore struct {
	mu        sync.Mutex
	items     []models.GoalSavingsAllocation
	createErr error
	// gate, when set, is received from before a create is stored.
	gate chan struct{}
}

func (s *fakeAllocationStore) ListAllocations(ctx context.Context, scope models.Scope) ([]models.GoalSavingsAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GoalSavingsAllocation(nil), s.items...), nil
}

func (s *fakeAllocationStore) CreateAllocation(ctx context.Context, scope models.Scope, in models.AllocationInput, currency string) (models.GoalSavingsAllocation, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return models.GoalSavingsAllocation{}, s.createErr
	}
	a := models.GoalSavingsAllocation{ID: fmt.Sprintf("alloc-%d", len(s.items)+1), GoalID: in.GoalID,
		SavingsID: in.SavingsID, AmountUsed: in.AmountUsed, Currency: currency, CreatedAt: testNow}
	s.items = append(s.items, a)
	return a, nil
}

// app wires every service over in-memory stores.
type app struct {
	cache       *QueryCache
	gw          *fakeGateway
	scenarios   *ScenarioService
	incomes     *IncomeService
	expenses    *ExpenseService
	goals       *GoalService
	savings     *SavingsService
	allocations *AllocationService
	summary     *SummaryService

	scenarioStore   *fakeScenarioStore
	incomeStore     *fakeStore[models.Income, models.IncomeInput]
	expenseStore    *fakeStore[models.Expense, models.ExpenseInput]
	goalStore       *fakeStore[models.Goal, models.GoalInput]
	savingsStore    *fakeStore[models.Savings, models.SavingsInput]
	allocationStore *fakeAllocationStore
}

func newApp(base *string, rates map[string]float64) *app {
	a := &app{
		cache:           newTestCache(),
		gw:              &fakeGateway{rates: rates},
		scenarioStore:   &fakeScenarioStore{scenarios: []models.Scenario{{ID: testScope.ScenarioID, UserID: testScope.UserID, Name: "Main", Slug: "main", BaseCurrency: base}}},
		incomeStore:     &fakeStore[models.Income, models.IncomeInput]{},
		expenseStore:    &fakeStore[models.Expense, models.ExpenseInput]{},
		goalStore:       &fakeStore[models.Goal, models.GoalInput]{},
		savingsStore:    &fakeStore[models.Savings, models.SavingsInput]{},
		allocationStore: &fakeAllocationStore{},
	}
	resolver := NewConvertedAmountResolver(a.cache, a.gw)
	a.scenarios = NewScenarioService(a.cache, a.scenarioStore)
	a.incomes = NewIncomeService(a.cache, a.incomeStore, resolver, a.scenarios, fixedNow)
	a.expenses = NewExpenseService(a.cache, a.expenseStore, resolver, a.scenarios, fixedNow)
	a.savings = NewSavingsService(a.cache, a.savingsStore, resolver, a.scenarios, fixedNow)
	a.allocations = NewAllocationService(a.cache, a.allocationStore, a.savings)
	a.goals = NewGoalService(a.cache, a.goalStore, resolver, a.scenarios, a.allocations, fixedNow)
	a.summary = NewSummaryService(a.cache, a.scenarios, a.incomes, a.expenses, a.goals, a.savings)
	return a
}
