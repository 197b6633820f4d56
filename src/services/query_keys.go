package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/username/scenariobudget/src/models"
)

// Entity names used as the first segment of every cache key.
const (
	EntityIncomes      = "incomes"
	EntityExpenses     = "expenses"
	EntityGoals        = "goals"
	EntityGoalPayments = "goal-payments"
	EntitySavings      = "savings"
	EntityAllocations  = "allocations"
	EntityScenarios    = "scenarios"
	EntitySummary      = "summary"
)

// Entities whose converted maps depend on a scenario's base currency.
var convertedEntities = []string{EntityIncomes, EntityExpenses, EntityGoals, EntityGoalPayments, EntitySavings}

// Key segments are query-escaped so ':' never appears inside one.
func keyPart(s string) string { return url.QueryEscape(s) }

func scopePrefix(entity, kind string, scope models.Scope) string {
	return fmt.Sprintf("%s:%s:%s:%s:", entity, kind, keyPart(scope.UserID), keyPart(scope.ScenarioID))
}

// ListKey is the key of a scenario's record collection.
func ListKey(entity string, scope models.Scope) string {
	return strings.TrimSuffix(scopePrefix(entity, "list", scope), ":")
}

// ConvertedPrefix matches every converted map of entity in scope.
func ConvertedPrefix(entity string, scope models.Scope) string {
	return scopePrefix(entity, "converted", scope)
}

// ConvertedKey identifies one converted map. The version pairs the source
// collection size with the count of upstream values already resolved, so a
// grown collection or a settled upstream conversion lands on a new key.
func ConvertedKey(entity string, scope models.Scope, currency string, display bool, size, resolved int) string {
	key := ConvertedPrefix(entity, scope) + keyPart(currency)
	if display {
		key += ":display"
	}
	return fmt.Sprintf("%s:v%d.%d", key, size, resolved)
}

func SummaryPrefix(scope models.Scope) string {
	return scopePrefix(EntitySummary, "totals", scope)
}

func SummaryKey(scope models.Scope, currency string) string {
	return SummaryPrefix(scope) + keyPart(currency)
}

func ScenarioListKey(userID string) string {
	return fmt.Sprintf("%s:list:%s", EntityScenarios, keyPart(userID))
}

func ScenarioDetailKey(scope models.Scope) string {
	return strings.TrimSuffix(scopePrefix(EntityScenarios, "detail", scope), ":")
}

// keyScope recovers the entity and scope encoded in a scoped key.
func keyScope(key string) (entity string, scope models.Scope, ok bool) {
	parts := strings.SplitN(key, ":", 5)
	if len(parts) < 4 {
		return "", models.Scope{}, false
	}
	user, err := url.QueryUnescape(parts[2])
	if err != nil {
		return "", models.Scope{}, false
	}
	scenario, err := url.QueryUnescape(parts[3])
	if err != nil {
		return "", models.Scope{}, false
	}
	return parts[0], models.Scope{UserID: user, ScenarioID: scenario}, true
}

// scopeKeys lists the exact keys and the key prefixes of every cache entry
// owned by scope.
func scopeKeys(scope models.Scope) (keys, prefixes []string) {
	for _, entity := range []string{EntityIncomes, EntityExpenses, EntityGoals, EntitySavings, EntityAllocations} {
		keys = append(keys, ListKey(entity, scope))
	}
	keys = append(keys, ScenarioDetailKey(scope))
	for _, entity := range convertedEntities {
		prefixes = append(prefixes, ConvertedPrefix(entity, scope))
	}
	return keys, append(prefixes, SummaryPrefix(scope))
}
