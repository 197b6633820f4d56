package handlers

import (
	"net/http"

	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
	"github.com/username/scenariobudget/src/security/validation"
	"github.com/username/scenariobudget/src/services"
	"github.com/username/scenariobudget/src/utils"
)

type ScenarioHandler struct {
	scenarios *services.ScenarioService
}

func NewScenarioHandler(scenarios *services.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{scenarios: scenarios}
}

func (h *ScenarioHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	scenarios, err := h.scenarios.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, scenarios, http.StatusOK)
}

func (h *ScenarioHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var in models.ScenarioInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := validation.ValidateScenarioInput(&in); err != nil {
		writeServiceError(w, r, err)
		return
	}

	scenario, err := h.scenarios.Create(r.Context(), userID, in.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, scenario, http.StatusCreated)
}

func (h *ScenarioHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	scenario, err := h.scenarios.Get(r.Context(), scopeFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, scenario, http.StatusOK)
}

type baseCurrencyRequest struct {
	BaseCurrency string `json:"base_currency"`
}

// HandleSetBaseCurrency fixes the scenario's base currency. It can be set once.
func (h *ScenarioHandler) HandleSetBaseCurrency(w http.ResponseWriter, r *http.Request) {
	var req baseCurrencyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	currency := validation.NormalizeCurrencyCode(req.BaseCurrency)
	if err := validation.ValidateCurrencyCode(currency); err != nil {
		writeServiceError(w, r, err)
		return
	}

	scenario, err := h.scenarios.SetBaseCurrency(r.Context(), scopeFromContext(r.Context()), currency)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, scenario, http.StatusOK)
}

// HandleTeardown drops every cached entry of the scenario, as when a client
// leaves it.
func (h *ScenarioHandler) HandleTeardown(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromContext(r.Context())
	h.scenarios.Teardown(scope)
	logger.FromContext(r.Context()).Debug("Scenario cache torn down", "scenarioID", scope.ScenarioID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleCurrencies lists the selectable currencies.
func HandleCurrencies(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, models.SupportedCurrencies, http.StatusOK)
}
