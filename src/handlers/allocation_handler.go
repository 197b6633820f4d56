package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
	"github.com/username/scenariobudget/src/security/validation"
	"github.com/username/scenariobudget/src/services"
	"github.com/username/scenariobudget/src/utils"
)

type AllocationHandler struct {
	allocations *services.AllocationService
}

func NewAllocationHandler(allocations *services.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations}
}

func (h *AllocationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	state := h.allocations.Allocations(r.Context(), scopeFromContext(r.Context()), waitParam(r))
	if state.Status == models.CollectionFailed {
		logger.FromContext(r.Context()).Error("Failed to load allocations", "error", state.Err)
		utils.SendJSONError(w, "Failed to load allocations", http.StatusBadGateway)
		return
	}
	if state.Items == nil {
		state.Items = []models.GoalSavingsAllocation{}
	}
	utils.SendJSON(w, state, http.StatusOK)
}

func (h *AllocationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in models.AllocationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := validation.ValidateAllocationInput(&in); err != nil {
		writeServiceError(w, r, err)
		return
	}

	alloc, err := h.allocations.Allocate(r.Context(), scopeFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, alloc, http.StatusCreated)
}

type availableResponse struct {
	SavingsID string  `json:"savings_id"`
	Available float64 `json:"available"`
}

// HandleAvailable reports how much of a savings record is still free,
// optionally ignoring the allocations toward exclude_goal_id.
func (h *AllocationHandler) HandleAvailable(w http.ResponseWriter, r *http.Request) {
	savingsID := chi.URLParam(r, "id")
	excludeGoalID := r.URL.Query().Get("exclude_goal_id")

	available, err := h.allocations.AvailableAmount(r.Context(), scopeFromContext(r.Context()), savingsID, excludeGoalID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, availableResponse{SavingsID: savingsID, Available: available}, http.StatusOK)
}
