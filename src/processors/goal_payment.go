package processors

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/scenariobudget/src/models"
)

var hundred = decimal.NewFromInt(100)

// MonthsBetween counts whole calendar months from createdAt to targetDate,
// ignoring the day of month. The result is never less than one.
func MonthsBetween(createdAt, targetDate time.Time) int {
	from := createdAt.UTC()
	to := targetDate.UTC()
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if months < 1 {
		return 1
	}
	return months
}

// AllocatedToGoal sums the allocations earmarked for goal in the goal's own
// currency. Allocations in any other currency are ignored rather than converted.
func AllocatedToGoal(goal models.Goal, allocations []models.GoalSavingsAllocation) decimal.Decimal {
	allocated := decimal.Zero
	for _, a := range allocations {
		if a.GoalID == goal.ID && a.Currency == goal.Currency {
			allocated = allocated.Add(decimal.NewFromFloat(a.AmountUsed))
		}
	}
	return allocated
}

// MonthlyPayment is the amount to set aside each month, rounded up to the
// cent, so that the goal's target net of allocations is reached by its
// target date. Goals without a target date need no payment.
func MonthlyPayment(goal models.Goal, allocations []models.GoalSavingsAllocation) float64 {
	if goal.TargetDate == nil {
		return 0
	}

	remaining := decimal.NewFromFloat(goal.TargetAmount).Sub(AllocatedToGoal(goal, allocations))
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	months := decimal.NewFromInt(int64(MonthsBetween(goal.CreatedAt, *goal.TargetDate)))
	payment, _ := remaining.Div(months).Mul(hundred).Ceil().Div(hundred).Float64()
	return payment
}

// MonthlyPayments computes MonthlyPayment for every goal, keyed by goal id.
func MonthlyPayments(goals []models.Goal, allocations []models.GoalSavingsAllocation) map[string]float64 {
	payments := make(map[string]float64, len(goals))
	for _, g := range goals {
		payments[g.ID] = MonthlyPayment(g, allocations)
	}
	return payments
}

// AvailableAmount is what is left of a savings total once the allocations
// drawn from it in the same currency are subtracted. Allocations toward
// excludeGoalID are not counted, so a goal being edited sees its own share.
func AvailableAmount(allocations []models.GoalSavingsAllocation, savingsID string, total float64, currency, excludeGoalID string) float64 {
	if savingsID == "" {
		return total
	}
	used := decimal.Zero
	for _, a := range allocations {
		if a.SavingsID != savingsID || a.Currency != currency {
			continue
		}
		if excludeGoalID != "" && a.GoalID == excludeGoalID {
			continue
		}
		used = used.Add(decimal.NewFromFloat(a.AmountUsed))
	}
	available := decimal.NewFromFloat(total).Sub(used)
	if available.IsNegative() {
		return 0
	}
	f, _ := available.Float64()
	return f
}
