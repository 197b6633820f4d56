package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/username/scenariobudget/src/models"
	"github.com/username/scenariobudget/src/security/validation"
	"github.com/username/scenariobudget/src/services"
)

// Services bundles what the API handlers are built from.
type Services struct {
	Scenarios   *services.ScenarioService
	Incomes     *services.IncomeService
	Expenses    *services.ExpenseService
	Goals       *services.GoalService
	Savings     *services.SavingsService
	Allocations *services.AllocationService
	Summaries   *services.SummaryService
	Now         func() time.Time
}

// RegisterAPIRoutes mounts the budgeting API on r. auth guards everything
// except the currency list.
func RegisterAPIRoutes(r chi.Router, svc Services, auth func(http.Handler) http.Handler) {
	now := svc.Now
	if now == nil {
		now = time.Now
	}

	scenarioHandler := NewScenarioHandler(svc.Scenarios)
	incomeHandler := NewRecordHandler[models.Income, models.IncomeInput]("incomes", svc.Incomes, validation.ValidateIncomeInput)
	expenseHandler := NewRecordHandler[models.Expense, models.ExpenseInput]("expenses", svc.Expenses, validation.ValidateExpenseInput)
	goalHandler := NewRecordHandler[models.Goal, models.GoalInput]("goals", svc.Goals, validation.ValidateGoalInput)
	savingsHandler := NewRecordHandler[models.Savings, models.SavingsInput]("savings", svc.Savings,
		func(in *models.SavingsInput) error { return validation.ValidateSavingsInput(in, now()) })
	allocationHandler := NewAllocationHandler(svc.Allocations)
	summaryHandler := NewSummaryHandler(svc.Summaries, svc.Goals)

	r.Get("/currencies", HandleCurrencies)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Get("/scenarios", scenarioHandler.HandleList)
		r.Post("/scenarios", scenarioHandler.HandleCreate)

		r.Route("/scenarios/{scenarioID}", func(r chi.Router) {
			r.Use(ScenarioScopeMiddleware(svc.Scenarios))

			r.Get("/", scenarioHandler.HandleGet)
			r.Put("/base-currency", scenarioHandler.HandleSetBaseCurrency)
			r.Delete("/cache", scenarioHandler.HandleTeardown)
			r.Get("/summary", summaryHandler.HandleSummary)

			r.Route("/incomes", func(r chi.Router) {
				r.Get("/", incomeHandler.HandleList)
				r.Post("/", incomeHandler.HandleCreate)
				r.Get("/converted", incomeHandler.HandleConverted)
				r.Put("/{id}", incomeHandler.HandleUpdate)
			})
			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", expenseHandler.HandleList)
				r.Post("/", expenseHandler.HandleCreate)
				r.Get("/converted", expenseHandler.HandleConverted)
				r.Put("/{id}", expenseHandler.HandleUpdate)
			})
			r.Route("/goals", func(r chi.Router) {
				r.Get("/", goalHandler.HandleList)
				r.Post("/", goalHandler.HandleCreate)
				r.Get("/converted", goalHandler.HandleConverted)
				r.Get("/payments", summaryHandler.HandleGoalPayments)
				r.Put("/{id}", goalHandler.HandleUpdate)
			})
			r.Route("/savings", func(r chi.Router) {
				r.Get("/", savingsHandler.HandleList)
				r.Post("/", savingsHandler.HandleCreate)
				r.Get("/converted", savingsHandler.HandleConverted)
				r.Put("/{id}", savingsHandler.HandleUpdate)
				r.Get("/{id}/available", allocationHandler.HandleAvailable)
			})
			r.Route("/allocations", func(r chi.Router) {
				r.Get("/", allocationHandler.HandleList)
				r.Post("/", allocationHandler.HandleCreate)
			})
		})
	})
}
