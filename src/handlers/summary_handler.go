package handlers

import (
	"net/http"

	"github.com/username/scenariobudget/src/models"
	"github.com/username/scenariobudget/src/services"
	"github.com/username/scenariobudget/src/utils"
)

type SummaryHandler struct {
	summaries *services.SummaryService
	goals     *services.GoalService
}

func NewSummaryHandler(summaries *services.SummaryService, goals *services.GoalService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, goals: goals}
}

// HandleSummary returns the scenario's monthly summary. With wait=false it
// answers from the cache and reports complete false while anything is still
// loading.
func (h *SummaryHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromContext(r.Context())

	var (
		summary models.Summary
		err     error
	)
	if waitParam(r) {
		summary, err = h.summaries.Summary(r.Context(), scope)
	} else {
		summary, err = h.summaries.PeekSummary(r.Context(), scope)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, summary, http.StatusOK)
}

type goalPaymentsResponse struct {
	Ready    bool               `json:"ready"`
	Payments map[string]float64 `json:"payments"`
	Total    models.Total       `json:"total"`
}

// HandleGoalPayments returns each goal's monthly payment in its own
// currency and their total in the base currency.
func (h *SummaryHandler) HandleGoalPayments(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromContext(r.Context())
	wait := waitParam(r)

	payments, ready, err := h.goals.MonthlyPayments(r.Context(), scope, wait)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	total, err := h.goals.MonthlyPaymentsTotal(r.Context(), scope, wait)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, goalPaymentsResponse{Ready: ready, Payments: payments, Total: total}, http.StatusOK)
}
