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

type IncomeStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewIncomeStore(db *sql.DB) *IncomeStore {
	return &IncomeStore{db: db, now: time.Now}
}

const incomeColumns = `id, user_id, scenario_id, created_at, amount, currency, type, frequency, payment_day`

func scanIncome(row rowScanner) (models.Income, error) {
	var in models.Income
	err := row.Scan(&in.ID, &in.UserID, &in.ScenarioID, &in.CreatedAt, &in.Amount, &in.Currency, &in.Type, &in.Frequency, &in.PaymentDay)
	in.CreatedAt = in.CreatedAt.UTC()
	return in, err
}

// List returns the scenario's incomes, newest first.
func (s *IncomeStore) List(ctx context.Context, scope models.Scope) ([]models.Income, error) {
	items, err := listRows(ctx, s.db,
		`SELECT `+incomeColumns+` FROM incomes WHERE user_id = ? AND scenario_id = ? ORDER BY created_at DESC, rowid DESC`,
		scanIncome, scope.UserID, scope.ScenarioID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return items, nil
}

func (s *IncomeStore) get(ctx context.Context, scope models.Scope, id string) (models.Income, error) {
	in, err := scanIncome(s.db.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE id = ? AND user_id = ? AND scenario_id = ?`, id, scope.UserID, scope.ScenarioID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Income{}, models.ErrNotFound
	}
	return in, err
}

func (s *IncomeStore) Create(ctx context.Context, scope models.Scope, in models.IncomeInput) (models.Income, error) {
	rec := in.Placeholder(uuid.New().String(), scope, s.now().UTC())
	err := execOne(ctx, s.db,
		`INSERT INTO incomes (`+incomeColumns+`) SELECT ?, ?, ?, ?, ?, ?, ?, ?, ? `+ownedScenario,
		rec.ID, rec.UserID, rec.ScenarioID, rec.CreatedAt, rec.Amount, rec.Currency, rec.Type, rec.Frequency, rec.PaymentDay,
		scope.ScenarioID, scope.UserID)
	if err != nil {
		return models.Income{}, wrapWrite("insert", "income", err)
	}
	return s.get(ctx, scope, rec.ID)
}

func (s *IncomeStore) Update(ctx context.Context, scope models.Scope, id string, in models.IncomeInput) (models.Income, error) {
	err := execOne(ctx, s.db,
		`UPDATE incomes SET amount = ?, currency = ?, type = ?, frequency = ?, payment_day = ?
		 WHERE id = ? AND user_id = ? AND scenario_id = ?`,
		in.Amount, in.Currency, in.Type, in.Frequency, in.PaymentDay, id, scope.UserID, scope.ScenarioID)
	if err != nil {
		return models.Income{}, wrapWrite("update", "income", err)
	}
	return s.get(ctx, scope, id)
}
