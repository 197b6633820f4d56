package models

import (
	"time"
)

// Frequency is how often an income or expense recurs.
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyAnnual  Frequency = "annual"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	return f == FrequencyMonthly || f == FrequencyAnnual
}

// CapitalizationPeriod is how often savings interest compounds.
type CapitalizationPeriod string

const (
	CapitalizationMonthly   CapitalizationPeriod = "monthly"
	CapitalizationQuarterly CapitalizationPeriod = "quarterly"
	CapitalizationAnnual    CapitalizationPeriod = "annual"
)

func (p CapitalizationPeriod) Valid() bool {
	switch p {
	case CapitalizationMonthly, CapitalizationQuarterly, CapitalizationAnnual:
		return true
	}
	return false
}

// Scope identifies the (user, scenario) pair every read and write is bound to.
type Scope struct {
	UserID     string
	ScenarioID string
}

// Record is the shape shared by every financial record kept in a scenario.
type Record interface {
	RecordID() string
	RecordCurrency() string
}

// Scenario is a named budget plan. BaseCurrency is nil until onboarding sets it.
type Scenario struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	BaseCurrency *string   `json:"base_currency"`
	CreatedAt    time.Time `json:"created_at"`
}

type Income struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ScenarioID string    `json:"scenario_id"`
	CreatedAt  time.Time `json:"created_at"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Type       string    `json:"type"`
	Frequency  Frequency `json:"frequency"`
	PaymentDay string    `json:"payment_day"`
}

func (i Income) RecordID() string       { return i.ID }
func (i Income) RecordCurrency() string { return i.Currency }

type Expense struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ScenarioID string    `json:"scenario_id"`
	CreatedAt  time.Time `json:"created_at"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Type       string    `json:"type"`
	Frequency  Frequency `json:"frequency"`
}

func (e Expense) RecordID() string       { return e.ID }
func (e Expense) RecordCurrency() string { return e.Currency }

type Goal struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	ScenarioID    string     `json:"scenario_id"`
	CreatedAt     time.Time  `json:"created_at"`
	Name          string     `json:"name"`
	TargetAmount  float64    `json:"target_amount"`
	CurrentAmount *float64   `json:"current_amount"`
	TargetDate    *time.Time `json:"target_date"`
	Currency      string     `json:"currency"`
}

func (g Goal) RecordID() string       { return g.ID }
func (g Goal) RecordCurrency() string { return g.Currency }

// Savings is an interest-bearing deposit. Amount is the principal; accrued
// interest is derived on every read and never stored.
type Savings struct {
	ID                   string                `json:"id"`
	UserID               string                `json:"user_id"`
	ScenarioID           string                `json:"scenario_id"`
	CreatedAt            time.Time             `json:"created_at"`
	Amount               float64               `json:"amount"`
	Comment              string                `json:"comment"`
	Currency             string                `json:"currency"`
	InterestRate         *float64              `json:"interest_rate"`
	CapitalizationPeriod *CapitalizationPeriod `json:"capitalization_period"`
	DepositDate          *time.Time            `json:"deposit_date"`
}

func (s Savings) RecordID() string       { return s.ID }
func (s Savings) RecordCurrency() string { return s.Currency }

// InterestStart is the date interest starts accruing from.
func (s Savings) InterestStart() time.Time {
	if s.DepositDate != nil {
		return *s.DepositDate
	}
	return s.CreatedAt
}

// GoalSavingsAllocation earmarks part of a savings record toward a goal.
type GoalSavingsAllocation struct {
	ID         string    `json:"id"`
	GoalID     string    `json:"goal_id"`
	SavingsID  string    `json:"savings_id"`
	AmountUsed float64   `json:"amount_used"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

func (a GoalSavingsAllocation) RecordID() string       { return a.ID }
func (a GoalSavingsAllocation) RecordCurrency() string { return a.Currency }
