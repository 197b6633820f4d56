package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
)

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a scenario name into its URL slug.
func Slugify(name string) string {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "scenario"
	}
	return slug
}

// ScenarioService manages scenarios and owns the teardown of their cache
// entries.
type ScenarioService struct {
	cache *QueryCache
	store ScenarioStore
}

func NewScenarioService(cache *QueryCache, store ScenarioStore) *ScenarioService {
	return &ScenarioService{cache: cache, store: store}
}

// List returns the user's scenarios, oldest first.
func (s *ScenarioService) List(ctx context.Context, userID string) ([]models.Scenario, error) {
	v, err := s.cache.Fetch(ctx, ScenarioListKey(userID), func(ctx context.Context) (any, error) {
		list, err := s.store.ListScenarios(ctx, userID)
		if list == nil {
			list = []models.Scenario{}
		}
		return list, err
	})
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	return v.([]models.Scenario), nil
}

// Get returns a scenario of the user.
func (s *ScenarioService) Get(ctx context.Context, scope models.Scope) (models.Scenario, error) {
	v, err := s.cache.Fetch(ctx, ScenarioDetailKey(scope), func(ctx context.Context) (any, error) {
		return s.store.GetScenario(ctx, scope)
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Scenario{}, ErrScenarioNotFound
		}
		return models.Scenario{}, fmt.Errorf("get scenario: %w", err)
	}
	return v.(models.Scenario), nil
}

// BaseCurrency returns the scenario's base currency, nil until it is set.
func (s *ScenarioService) BaseCurrency(ctx context.Context, scope models.Scope) (*string, error) {
	sc, err := s.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	return sc.BaseCurrency, nil
}

// Create adds a scenario named name for the user.
func (s *ScenarioService) Create(ctx context.Context, userID, name string) (models.Scenario, error) {
	sc, err := s.store.CreateScenario(ctx, userID, name, Slugify(name))
	if err != nil {
		return models.Scenario{}, fmt.Errorf("create scenario: %w", err)
	}
	s.cache.Invalidate(ScenarioListKey(userID))
	logger.FromContext(ctx).Info("Scenario created", "scenarioID", sc.ID, "slug", sc.Slug)
	return sc, nil
}

// SetBaseCurrency sets the base currency once, during onboarding. Every
// converted amount and summary of the scenario is invalidated.
func (s *ScenarioService) SetBaseCurrency(ctx context.Context, scope models.Scope, currency string) (models.Scenario, error) {
	if !models.IsSupportedCurrency(currency) {
		return models.Scenario{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, currency)
	}

	sc, err := s.store.SetBaseCurrency(ctx, scope, currency)
	switch {
	case errors.Is(err, models.ErrConflict):
		return models.Scenario{}, ErrBaseCurrencyAlreadySet
	case errors.Is(err, models.ErrNotFound):
		return models.Scenario{}, ErrScenarioNotFound
	case err != nil:
		return models.Scenario{}, fmt.Errorf("set base currency: %w", err)
	}

	s.cache.Set(ScenarioDetailKey(scope), sc)
	s.cache.Invalidate(ScenarioListKey(scope.UserID))
	for _, entity := range convertedEntities {
		s.cache.InvalidatePrefix(ConvertedPrefix(entity, scope))
	}
	s.cache.InvalidatePrefix(SummaryPrefix(scope))

	logger.FromContext(ctx).Info("Scenario base currency set", "scenarioID", scope.ScenarioID, "currency", currency)
	return sc, nil
}

// Teardown drops every cache entry of the scenario, as when the user
// switches away from it.
func (s *ScenarioService) Teardown(scope models.Scope) {
	keys, prefixes := scopeKeys(scope)
	for _, key := range keys {
		s.cache.Remove(key)
	}
	for _, prefix := range prefixes {
		s.cache.RemovePrefix(prefix)
	}
}
