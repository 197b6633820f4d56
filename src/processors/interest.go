package processors

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/scenariobudget/src/models"
)

// Elapsed time is measured in years of 365.25 days.
const yearDuration = time.Duration(365.25 * 24 * float64(time.Hour))

// CompoundingsPerYear returns how many times interest compounds per year.
// Unknown periods compound once.
func CompoundingsPerYear(period models.CapitalizationPeriod) int {
	switch period {
	case models.CapitalizationMonthly:
		return 12
	case models.CapitalizationQuarterly:
		return 4
	case models.CapitalizationAnnual:
		return 1
	default:
		return 1
	}
}

// ElapsedYears is the fractional number of years from start to now.
func ElapsedYears(start, now time.Time) float64 {
	return float64(now.Sub(start)) / float64(yearDuration)
}

// CompoundAmount returns P(1 + r/n)^(n*t) rounded to cents, with r given in
// percent. A non-positive duration returns the principal unchanged.
func CompoundAmount(principal, annualRatePercent float64, period models.CapitalizationPeriod, years float64) float64 {
	if years <= 0 {
		return principal
	}
	n := float64(CompoundingsPerYear(period))
	r := annualRatePercent / 100
	factor := math.Pow(1+r/n, n*years)

	amount, _ := decimal.NewFromFloat(principal).Mul(decimal.NewFromFloat(factor)).Round(2).Float64()
	return amount
}

// InterestEarned is CompoundAmount minus the principal, rounded to cents.
func InterestEarned(principal, annualRatePercent float64, period models.CapitalizationPeriod, years float64) float64 {
	total := CompoundAmount(principal, annualRatePercent, period, years)
	interest, _ := decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(principal)).Round(2).Float64()
	return interest
}

// InterestSince returns the interest accrued from start until now. It is zero
// whenever now is not after start.
func InterestSince(principal, annualRatePercent float64, period models.CapitalizationPeriod, start, now time.Time) float64 {
	years := ElapsedYears(start, now)
	if years <= 0 {
		return 0
	}
	return InterestEarned(principal, annualRatePercent, period, years)
}

// AmountWithInterest is the principal of s plus the interest it accrued by
// now. Savings without both a rate and a capitalization period earn nothing.
func AmountWithInterest(s models.Savings, now time.Time) float64 {
	if s.InterestRate == nil || *s.InterestRate == 0 || s.CapitalizationPeriod == nil || *s.CapitalizationPeriod == "" {
		return s.Amount
	}
	interest := InterestSince(s.Amount, *s.InterestRate, *s.CapitalizationPeriod, s.InterestStart(), now)
	total, _ := decimal.NewFromFloat(s.Amount).Add(decimal.NewFromFloat(interest)).Float64()
	return total
}
