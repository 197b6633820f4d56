package validation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/scenariobudget/src/models"
)

func ptr[T any](v T) *T { return &v }

func TestValidatePositiveAmount(t *testing.T) {
	assert.NoError(t, ValidatePositiveAmount(0.01, "amount"))
	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1), MaxAmount * 2} {
		assert.ErrorIs(t, ValidatePositiveAmount(v, "amount"), ErrValidationFailed, "%v", v)
	}
}

func TestValidateCurrencyCode(t *testing.T) {
	assert.NoError(t, ValidateCurrencyCode("EUR"))
	assert.Equal(t, "USD", NormalizeCurrencyCode(" usd "))
	for _, c := range []string{"", "EURO", "eu1", "XYZ"} {
		assert.ErrorIs(t, ValidateCurrencyCode(c), ErrValidationFailed, c)
	}
}

func TestValidateIncomeInput(t *testing.T) {
	in := models.IncomeInput{Amount: 100, Currency: "eur", Frequency: models.FrequencyMonthly, PaymentDay: "5", Type: "<b>Salary</b>"}
	require.NoError(t, ValidateIncomeInput(&in))
	assert.Equal(t, "EUR", in.Currency)
	assert.Equal(t, "Salary", in.Type)

	tests := map[string]models.IncomeInput{
		"zero amount":      {Amount: 0, Currency: "EUR", Frequency: models.FrequencyMonthly, PaymentDay: "5"},
		"bad frequency":    {Amount: 1, Currency: "EUR", Frequency: "weekly", PaymentDay: "5"},
		"no payment day":   {Amount: 1, Currency: "EUR", Frequency: models.FrequencyMonthly},
		"day out of range": {Amount: 1, Currency: "EUR", Frequency: models.FrequencyAnnual, PaymentDay: "32"},
		"bad currency":     {Amount: 1, Currency: "ABC", Frequency: models.FrequencyMonthly, PaymentDay: "1"},
	}
	for name, in := range tests {
		assert.ErrorIs(t, ValidateIncomeInput(&in), ErrValidationFailed, name)
	}
}

func TestValidateExpenseInput(t *testing.T) {
	in := models.ExpenseInput{Amount: 10, Currency: "GBP", Frequency: models.FrequencyAnnual}
	assert.NoError(t, ValidateExpenseInput(&in))

	in.Frequency = ""
	assert.ErrorIs(t, ValidateExpenseInput(&in), ErrValidationFailed)
}

func TestValidateGoalInput(t *testing.T) {
	in := models.GoalInput{Name: " Car ", TargetAmount: 1200, Currency: "usd"}
	require.NoError(t, ValidateGoalInput(&in))
	assert.Equal(t, "Car", in.Name)

	assert.ErrorIs(t, ValidateGoalInput(&models.GoalInput{Name: "<script></script>", TargetAmount: 1, Currency: "USD"}), ErrValidationFailed)
	assert.ErrorIs(t, ValidateGoalInput(&models.GoalInput{Name: "x", TargetAmount: -5, Currency: "USD"}), ErrValidationFailed)
	assert.ErrorIs(t, ValidateGoalInput(&models.GoalInput{Name: "x", TargetAmount: 5, Currency: "USD", CurrentAmount: ptr(-1.0)}), ErrValidationFailed)
}

func TestValidateSavingsInput(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	monthly := models.CapitalizationMonthly
	past := now.AddDate(-1, 0, 0)
	future := now.AddDate(0, 0, 1)

	plain := models.SavingsInput{Amount: 100, Currency: "EUR", InterestRate: ptr(0.0), CapitalizationPeriod: &monthly}
	require.NoError(t, ValidateSavingsInput(&plain, now))
	assert.Nil(t, plain.InterestRate)
	assert.Nil(t, plain.CapitalizationPeriod)

	earning := models.SavingsInput{Amount: 100, Currency: "EUR", InterestRate: ptr(4.5), CapitalizationPeriod: &monthly, DepositDate: &past}
	assert.NoError(t, ValidateSavingsInput(&earning, now))

	tests := map[string]models.SavingsInput{
		"rate above 100":  {Amount: 100, Currency: "EUR", InterestRate: ptr(101.0), CapitalizationPeriod: &monthly, DepositDate: &past},
		"negative rate":   {Amount: 100, Currency: "EUR", InterestRate: ptr(-1.0), CapitalizationPeriod: &monthly, DepositDate: &past},
		"missing period":  {Amount: 100, Currency: "EUR", InterestRate: ptr(2.0), DepositDate: &past},
		"missing deposit": {Amount: 100, Currency: "EUR", InterestRate: ptr(2.0), CapitalizationPeriod: &monthly},
		"future deposit":  {Amount: 100, Currency: "EUR", InterestRate: ptr(2.0), CapitalizationPeriod: &monthly, DepositDate: &future},
		"negative amount": {Amount: -100, Currency: "EUR"},
	}
	for name, in := range tests {
		assert.ErrorIs(t, ValidateSavingsInput(&in, now), ErrValidationFailed, name)
	}
}

func TestValidateAllocationAndScenarioInput(t *testing.T) {
	assert.NoError(t, ValidateAllocationInput(&models.AllocationInput{GoalID: "g", SavingsID: "s", AmountUsed: 1}))
	assert.ErrorIs(t, ValidateAllocationInput(&models.AllocationInput{GoalID: "g", AmountUsed: 1}), ErrValidationFailed)
	assert.ErrorIs(t, ValidateAllocationInput(&models.AllocationInput{GoalID: "g", SavingsID: "s"}), ErrValidationFailed)

	in := models.ScenarioInput{Name: "  Retire <i>early</i> "}
	require.NoError(t, ValidateScenarioInput(&in))
	assert.Equal(t, "Retire early", in.Name)
	assert.ErrorIs(t, ValidateScenarioInput(&models.ScenarioInput{Name: "   "}), ErrValidationFailed)
}
