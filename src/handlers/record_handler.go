package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
	"github.com/username/scenariobudget/src/security/validation"
	"github.com/username/scenariobudget/src/utils"
)

// RecordService is what the record endpoints need from an entity aggregator.
type RecordService[T models.Record, In any] interface {
	Collection(ctx context.Context, scope models.Scope) models.CollectionState[T]
	PeekCollection(ctx context.Context, scope models.Scope) models.CollectionState[T]
	Create(ctx context.Context, scope models.Scope, in In) (T, error)
	Update(ctx context.Context, scope models.Scope, id string, in In) (T, error)
	Total(ctx context.Context, scope models.Scope, wait bool) (models.Total, error)
	Converted(ctx context.Context, scope models.Scope, currency string, wait bool) models.Result[models.ConvertedAmountMap]
}

// RecordHandler serves the list, create, update and converted endpoints of
// one record type.
type RecordHandler[T models.Record, In any] struct {
	entity   string
	service  RecordService[T, In]
	validate func(*In) error
}

func NewRecordHandler[T models.Record, In any](entity string, service RecordService[T, In], validate func(*In) error) *RecordHandler[T, In] {
	return &RecordHandler[T, In]{entity: entity, service: service, validate: validate}
}

type collectionResponse[T any] struct {
	State models.CollectionStatus `json:"state"`
	Items []T                     `json:"items"`
	Total models.Total            `json:"total"`
}

func (h *RecordHandler[T, In]) HandleList(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromContext(r.Context())
	wait := waitParam(r)

	var state models.CollectionState[T]
	if wait {
		state = h.service.Collection(r.Context(), scope)
	} else {
		state = h.service.PeekCollection(r.Context(), scope)
	}
	if state.Status == models.CollectionFailed {
		logger.FromContext(r.Context()).Error("Failed to load records", "entity", h.entity, "error", state.Err)
		utils.SendJSONError(w, "Failed to load "+h.entity, http.StatusBadGateway)
		return
	}

	total, err := h.service.Total(r.Context(), scope, wait)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := state.Items
	if items == nil {
		items = []T{}
	}
	utils.SendJSON(w, collectionResponse[T]{State: state.Status, Items: items, Total: total}, http.StatusOK)
}

func (h *RecordHandler[T, In]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in In
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.validate(&in); err != nil {
		writeServiceError(w, r, err)
		return
	}

	rec, err := h.service.Create(r.Context(), scopeFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, rec, http.StatusCreated)
}

func (h *RecordHandler[T, In]) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in In
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.validate(&in); err != nil {
		writeServiceError(w, r, err)
		return
	}

	rec, err := h.service.Update(r.Context(), scopeFromContext(r.Context()), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, rec, http.StatusOK)
}

type convertedResponse struct {
	Currency string                    `json:"currency"`
	Status   models.ResultStatus       `json:"status"`
	Amounts  models.ConvertedAmountMap `json:"amounts"`
}

// HandleConverted returns the records' amounts in the currency named by the
// currency query parameter.
func (h *RecordHandler[T, In]) HandleConverted(w http.ResponseWriter, r *http.Request) {
	currency := validation.NormalizeCurrencyCode(r.URL.Query().Get("currency"))
	if err := validation.ValidateCurrencyCode(currency); err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := h.service.Converted(r.Context(), scopeFromContext(r.Context()), currency, waitParam(r))
	amounts := res.Value
	if amounts == nil {
		amounts = models.ConvertedAmountMap{}
	}
	utils.SendJSON(w, convertedResponse{Currency: currency, Status: res.Status, Amounts: amounts}, http.StatusOK)
}
