package models

import "time"

// RecordInput is the editable field set of a record type. Create builds a
// local placeholder from it; Update merges it into an existing record.
type RecordInput[T Record] interface {
	Placeholder(id string, scope Scope, createdAt time.Time) T
	MergeInto(rec T) T
}

type IncomeInput struct {
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Type       string    `json:"type"`
	Frequency  Frequency `json:"frequency"`
	PaymentDay string    `json:"payment_day"`
}

func (in IncomeInput) Placeholder(id string, scope Scope, createdAt time.Time) Income {
	return in.MergeInto(Income{ID: id, UserID: scope.UserID, ScenarioID: scope.ScenarioID, CreatedAt: createdAt})
}

func (in IncomeInput) MergeInto(rec Income) Income {
	rec.Amount = in.Amount
	rec.Currency = in.Currency
	rec.Type = in.Type
	rec.Frequency = in.Frequency
	rec.PaymentDay = in.PaymentDay
	return rec
}

type ExpenseInput struct {
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Type      string    `json:"type"`
	Frequency Frequency `json:"frequency"`
}

func (in ExpenseInput) Placeholder(id string, scope Scope, createdAt time.Time) Expense {
	return in.MergeInto(Expense{ID: id, UserID: scope.UserID, ScenarioID: scope.ScenarioID, CreatedAt: createdAt})
}

func (in ExpenseInput) MergeInto(rec Expense) Expense {
	rec.Amount = in.Amount
	rec.Currency = in.Currency
	rec.Type = in.Type
	rec.Frequency = in.Frequency
	return rec
}

type GoalInput struct {
	Name          string     `json:"name"`
	TargetAmount  float64    `json:"target_amount"`
	CurrentAmount *float64   `json:"current_amount"`
	TargetDate    *time.Time `json:"target_date"`
	Currency      string     `json:"currency"`
}

func (in GoalInput) Placeholder(id string, scope Scope, createdAt time.Time) Goal {
	return in.MergeInto(Goal{ID: id, UserID: scope.UserID, ScenarioID: scope.ScenarioID, CreatedAt: createdAt})
}

func (in GoalInput) MergeInto(rec Goal) Goal {
	rec.Name = in.Name
	rec.TargetAmount = in.TargetAmount
	rec.CurrentAmount = in.CurrentAmount
	rec.TargetDate = in.TargetDate
	rec.Currency = in.Currency
	return rec
}

type SavingsInput struct {
	Amount               float64               `json:"amount"`
	Comment              string                `json:"comment"`
	Currency             string                `json:"currency"`
	InterestRate         *float64              `json:"interest_rate"`
	CapitalizationPeriod *CapitalizationPeriod `json:"capitalization_period"`
	DepositDate          *time.Time            `json:"deposit_date"`
}

func (in SavingsInput) Placeholder(id string, scope Scope, createdAt time.Time) Savings {
	return in.MergeInto(Savings{ID: id, UserID: scope.UserID, ScenarioID: scope.ScenarioID, CreatedAt: createdAt})
}

func (in SavingsInput) MergeInto(rec Savings) Savings {
	rec.Amount = in.Amount
	rec.Comment = in.Comment
	rec.Currency = in.Currency
	rec.InterestRate = in.InterestRate
	rec.CapitalizationPeriod = in.CapitalizationPeriod
	rec.DepositDate = in.DepositDate
	return rec
}

// AllocationInput earmarks AmountUsed of a savings record toward a goal.
// The currency is taken from the savings record, not from the caller.
type AllocationInput struct {
	GoalID     string  `json:"goal_id"`
	SavingsID  string  `json:"savings_id"`
	AmountUsed float64 `json:"amount_used"`
}

type ScenarioInput struct {
	Name string `json:"name"`
}
