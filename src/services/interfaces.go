package services

import (
	"context"
	"errors"

	"github.com/username/scenariobudget/src/models"
)

// Define common service errors
var (
	ErrScenarioNotFound           = errors.New("scenario not found")
	ErrRecordNotFound             = errors.New("record not found")
	ErrMutationFailed             = errors.New("mutation failed")
	ErrMutationInFlight           = errors.New("another mutation of this record is in progress")
	ErrBaseCurrencyAlreadySet     = errors.New("base currency is already set")
	ErrUnsupportedCurrency        = errors.New("unsupported currency")
	ErrAllocationExceedsAvailable = errors.New("allocation exceeds available savings")
)

// RecordStore reads and writes one record type of a scenario. List returns
// records newest first.
type RecordStore[T models.Record, In any] interface {
	List(ctx context.Context, scope models.Scope) ([]T, error)
	Create(ctx context.Context, scope models.Scope, in In) (T, error)
	Update(ctx context.Context, scope models.Scope, id string, in In) (T, error)
}

// ScenarioStore persists scenarios. ListScenarios returns them oldest first.
// SetBaseCurrency fails with models.ErrConflict when a base currency exists.
type ScenarioStore interface {
	ListScenarios(ctx context.Context, userID string) ([]models.Scenario, error)
	GetScenario(ctx context.Context, scope models.Scope) (models.Scenario, error)
	CreateScenario(ctx context.Context, userID, name, slug string) (models.Scenario, error)
	SetBaseCurrency(ctx context.Context, scope models.Scope, currency string) (models.Scenario, error)
}

// AllocationStore persists goal savings allocations of a scenario.
type AllocationStore interface {
	ListAllocations(ctx context.Context, scope models.Scope) ([]models.GoalSavingsAllocation, error)
	CreateAllocation(ctx context.Context, scope models.Scope, in models.AllocationInput, currency string) (models.GoalSavingsAllocation, error)
}

// ConversionGateway converts a batch of amounts into one target currency.
// The response is index-aligned with items. Any failure yields nil; it
// never returns an error.
type ConversionGateway interface {
	ConvertBulk(ctx context.Context, items []models.ConversionItem, targetCurrency string) []models.ConvertedItem
}

// BaseCurrencyReader resolves the base currency of a scenario, nil when unset.
type BaseCurrencyReader interface {
	BaseCurrency(ctx context.Context, scope models.Scope) (*string, error)
}
