package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/username/scenariobudget/src/models"
)

type SavingsStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSavingsStore(db *sql.DB) *SavingsStore {
	return &SavingsStore{db: db, now: time.Now}
}

const savingsColumns = `id, user_id, scenario_id, created_at, amount, comment, currency, interest_rate, capitalization_period, deposit_date`

func scanSavings(row rowScanner) (models.Savings, error) {
	var sv models.Savings
	var rate sql.NullFloat64
	var period sql.NullString
	var deposit sql.NullTime
	if err := row.Scan(&sv.ID, &sv.UserID, &sv.ScenarioID, &sv.CreatedAt, &sv.Amount, &sv.Comment, &sv.Currency,
		&rate, &period, &deposit); err != nil {
		return models.Savings{}, err
	}
	sv.CreatedAt = sv.CreatedAt.UTC()
	sv.InterestRate = floatPtr(rate)
	if period.Valid {
		p := models.CapitalizationPeriod(period.String)
		sv.CapitalizationPeriod = &p
	}
	sv.DepositDate = timePtr(deposit)
	return sv, nil
}

func periodArg(p *models.CapitalizationPeriod) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	s := string(*p)
	return nullString(&s)
}

// List returns the scenario's savings, newest first.
func (s *SavingsStore) List(ctx context.Context, scope models.Scope) ([]models.Savings, error) {
	items, err := listRows(ctx, s.db,
		`SELECT `+savingsColumns+` FROM savings WHERE user_id = ? AND scenario_id = ? ORDER BY created_at DESC, rowid DESC`,
		scanSavings, scope.UserID, scope.ScenarioID)
	if err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	return items, nil
}

func (s *SavingsStore) get(ctx context.Context, scope models.Scope, id string) (models.Savings, error) {
	sv, err := scanSavings(s.db.QueryRowContext(ctx,
		`SELECT `+savingsColumns+` FROM savings WHERE id = ? AND user_id = ? AND scenario_id = ?`, id, scope.UserID, scope.ScenarioID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Savings{}, models.ErrNotFound
	}
	return sv, err
}

func (s *SavingsStore) Create(ctx context.Context, scope models.Scope, in models.SavingsInput) (models.Savings, error) {
	rec := in.Placeholder(uuid.New().String(), scope, s.now().UTC())
	err := execOne(ctx, s.db,
		`INSERT INTO savings (`+savingsColumns+`) SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ? `+ownedScenario,
		rec.ID, rec.UserID, rec.ScenarioID, rec.CreatedAt, rec.Amount, rec.Comment, rec.Currency,
		nullFloat(rec.InterestRate), periodArg(rec.CapitalizationPeriod), nullTime(rec.DepositDate),
		scope.ScenarioID, scope.UserID)
	if err != nil {
		return models.Savings{}, wrapWrite("insert", "savings", err)
	}
	return s.get(ctx, scope, rec.ID)
}

func (s *SavingsStore) Update(ctx context.Context, scope models.Scope, id string, in models.SavingsInput) (models.Savings, error) {
	err := execOne(ctx, s.db,
		`UPDATE savings SET amount = ?, comment = ?, currency = ?, interest_rate = ?, capitalization_period = ?, deposit_date = ?
		 WHERE id = ? AND user_id = ? AND scenario_id = ?`,
		in.Amount, in.Comment, in.Currency, nullFloat(in.InterestRate), periodArg(in.CapitalizationPeriod), nullTime(in.DepositDate),
		id, scope.UserID, scope.ScenarioID)
	if err != nil {
		return models.Savings{}, wrapWrite("update", "savings", err)
	}
	return s.get(ctx, scope, id)
}
