package validation

import (
	"fmt"
	"math"
	"time"

	"github.com/username/scenariobudget/src/models"
)

func validateFrequency(f models.Frequency) error {
	if !f.Valid() {
		return fmt.Errorf("%w: frequency must be monthly or annual, got %q", ErrValidationFailed, f)
	}
	return nil
}

func validateLabel(s *string, fieldName string, maxLength int) error {
	*s = CleanText(*s)
	return ValidateStringMaxLength(*s, maxLength, fieldName)
}

// ValidateIncomeInput normalizes in and checks it. The payment day is the
// day of month the income arrives.
func ValidateIncomeInput(in *models.IncomeInput) error {
	in.Currency = NormalizeCurrencyCode(in.Currency)
	if err := ValidatePositiveAmount(in.Amount, "amount"); err != nil {
		return err
	}
	if err := ValidateCurrencyCode(in.Currency); err != nil {
		return err
	}
	if err := validateFrequency(in.Frequency); err != nil {
		return err
	}
	if _, err := ValidateIntString(in.PaymentDay, "payment_day", 1, 31); err != nil {
		return err
	}
	return validateLabel(&in.Type, "type", DefaultMaxStringLength)
}

func ValidateExpenseInput(in *models.ExpenseInput) error {
	in.Currency = NormalizeCurrencyCode(in.Currency)
	if err := ValidatePositiveAmount(in.Amount, "amount"); err != nil {
		return err
	}
	if err := ValidateCurrencyCode(in.Currency); err != nil {
		return err
	}
	if err := validateFrequency(in.Frequency); err != nil {
		return err
	}
	return validateLabel(&in.Type, "type", DefaultMaxStringLength)
}

func ValidateGoalInput(in *models.GoalInput) error {
	in.Currency = NormalizeCurrencyCode(in.Currency)
	if err := validateLabel(&in.Name, "name", MaxNameLength); err != nil {
		return err
	}
	if err := ValidateStringNotEmpty(in.Name, "name"); err != nil {
		return err
	}
	if err := ValidatePositiveAmount(in.TargetAmount, "target_amount"); err != nil {
		return err
	}
	if in.CurrentAmount != nil {
		v := *in.CurrentAmount
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: current_amount must be a non-negative number", ErrValidationFailed)
		}
	}
	return ValidateCurrencyCode(in.Currency)
}

// ValidateSavingsInput checks a savings payload. A savings record earning
// interest needs a rate in (0, 100], a capitalization period and a deposit
// date that is not in the future.
func ValidateSavingsInput(in *models.SavingsInput, now time.Time) error {
	in.Currency = NormalizeCurrencyCode(in.Currency)
	if err := ValidatePositiveAmount(in.Amount, "amount"); err != nil {
		return err
	}
	if err := ValidateCurrencyCode(in.Currency); err != nil {
		return err
	}
	if err := validateLabel(&in.Comment, "comment", MaxCommentLength); err != nil {
		return err
	}

	if in.InterestRate == nil || *in.InterestRate == 0 {
		in.InterestRate = nil
		in.CapitalizationPeriod = nil
		return nil
	}
	rate := *in.InterestRate
	if math.IsNaN(rate) || rate <= 0 || rate > 100 {
		return fmt.Errorf("%w: interest_rate must be greater than 0 and at most 100", ErrValidationFailed)
	}
	if in.CapitalizationPeriod == nil || !in.CapitalizationPeriod.Valid() {
		return fmt.Errorf("%w: capitalization_period must be monthly, quarterly or annual", ErrValidationFailed)
	}
	if in.DepositDate == nil {
		return fmt.Errorf("%w: deposit_date is required when earning interest", ErrValidationFailed)
	}
	if in.DepositDate.After(now) {
		return fmt.Errorf("%w: deposit_date cannot be in the future", ErrValidationFailed)
	}
	return nil
}

func ValidateAllocationInput(in *models.AllocationInput) error {
	if err := ValidateStringNotEmpty(in.GoalID, "goal_id"); err != nil {
		return err
	}
	if err := ValidateStringNotEmpty(in.SavingsID, "savings_id"); err != nil {
		return err
	}
	return ValidatePositiveAmount(in.AmountUsed, "amount_used")
}

func ValidateScenarioInput(in *models.ScenarioInput) error {
	if err := validateLabel(&in.Name, "name", MaxNameLength); err != nil {
		return err
	}
	return ValidateStringNotEmpty(in.Name, "name")
}
