package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/scenariobudget/src/models"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Main":              "main",
		"My Plan 2025!":     "my-plan-2025",
		"  --Retire Early ": "retire-early",
		"€€€":               "scenario",
	}
	for name, want := range tests {
		assert.Equal(t, want, Slugify(name), name)
	}
}

func TestScenarioCreateAndList(t *testing.T) {
	a := newApp(nil, nil)
	ctx := context.Background()

	list, err := a.scenarios.List(ctx, testScope.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	sc, err := a.scenarios.Create(ctx, testScope.UserID, "Second Plan")
	require.NoError(t, err)
	assert.Equal(t, "second-plan", sc.Slug)

	list, err = a.scenarios.List(ctx, testScope.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = a.scenarios.List(ctx, "someone-else")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestScenarioGetUnknown(t *testing.T) {
	a := newApp(nil, nil)

	_, err := a.scenarios.Get(context.Background(), models.Scope{UserID: testScope.UserID, ScenarioID: "nope"})

	assert.ErrorIs(t, err, ErrScenarioNotFound)
}

func TestSetBaseCurrencyOnce(t *testing.T) {
	a := newApp(nil, nil)
	ctx := context.Background()
	converted := ConvertedKey(EntityIncomes, testScope, "USD", false, 1, 0)
	a.cache.Set(converted, conversionOutcome{})

	_, err := a.scenarios.SetBaseCurrency(ctx, testScope, "XYZ")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)

	sc, err := a.scenarios.SetBaseCurrency(ctx, testScope, "EUR")
	require.NoError(t, err)
	require.NotNil(t, sc.BaseCurrency)
	assert.Equal(t, "EUR", *sc.BaseCurrency)
	assert.True(t, a.cache.Peek(converted).Invalidated)

	base, err := a.scenarios.BaseCurrency(ctx, testScope)
	require.NoError(t, err)
	assert.Equal(t, "EUR", *base)
	assert.Zero(t, a.scenarioStore.gets, "the detail entry is written by the update")

	_, err = a.scenarios.SetBaseCurrency(ctx, testScope, "USD")
	assert.ErrorIs(t, err, ErrBaseCurrencyAlreadySet)
}

func TestTeardownDropsOnlyThatScenario(t *testing.T) {
	a := newApp(ptr("EUR"), nil)
	other := models.Scope{UserID: testScope.UserID, ScenarioID: "scenario-2"}
	for _, scope := range []models.Scope{testScope, other} {
		a.cache.Set(ListKey(EntityIncomes, scope), []models.Income{})
		a.cache.Set(ConvertedKey(EntitySavings, scope, "USD", true, 1, 0), conversionOutcome{})
		a.cache.Set(SummaryKey(scope, "EUR"), models.Summary{})
	}

	a.scenarios.Teardown(testScope)

	assert.False(t, a.cache.Peek(ListKey(EntityIncomes, testScope)).Found)
	assert.False(t, a.cache.Peek(ConvertedKey(EntitySavings, testScope, "USD", true, 1, 0)).Found)
	assert.False(t, a.cache.Peek(SummaryKey(testScope, "EUR")).Found)
	assert.True(t, a.cache.Peek(ListKey(EntityIncomes, other)).Found)
	assert.True(t, a.cache.Peek(ConvertedKey(EntitySavings, other, "USD", true, 1, 0)).Found)
}
