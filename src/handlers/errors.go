package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
	"github.com/username/scenariobudget/src/security/validation"
	"github.com/username/scenariobudget/src/services"
	"github.com/username/scenariobudget/src/utils"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// writeServiceError maps service errors to status codes. Failed writes are
// reported as 502 since the client may retry them.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validation.ErrValidationFailed),
		errors.Is(err, services.ErrUnsupportedCurrency),
		errors.Is(err, services.ErrAllocationExceedsAvailable):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrScenarioNotFound),
		errors.Is(err, services.ErrRecordNotFound),
		errors.Is(err, models.ErrNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrMutationInFlight),
		errors.Is(err, services.ErrBaseCurrencyAlreadySet):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrMutationFailed):
		logger.FromContext(r.Context()).Error("Write to record store failed", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadGateway)
	default:
		logger.FromContext(r.Context()).Error("Request failed", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		logger.FromContext(r.Context()).Debug("Invalid request body", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// waitParam reports whether the caller wants to block until every value is
// settled. Only wait=false opts out.
func waitParam(r *http.Request) bool {
	return !strings.EqualFold(r.URL.Query().Get("wait"), "false")
}
