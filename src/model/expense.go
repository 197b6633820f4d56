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

type ExpenseStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewExpenseStore(db *sql.DB) *ExpenseStore {
	return &ExpenseStore{db: db, now: time.Now}
}

const expenseColumns = `id, user_id, scenario_id, created_at, amount, currency, type, frequency`

func scanExpense(row rowScanner) (models.Expense, error) {
	var e models.Expense
	err := row.Scan(&e.ID, &e.UserID, &e.ScenarioID, &e.CreatedAt, &e.Amount, &e.Currency, &e.Type, &e.Frequency)
	e.CreatedAt = e.CreatedAt.UTC()
	return e, err
}

// List returns the scenario's expenses, newest first.
func (s *ExpenseStore) List(ctx context.Context, scope models.Scope) ([]models.Expense, error) {
	items, err := listRows(ctx, s.db,
		`SELECT `+expenseColumns+` FROM expenses WHERE user_id = ? AND scenario_id = ? ORDER BY created_at DESC, rowid DESC`,
		scanExpense, scope.UserID, scope.ScenarioID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return items, nil
}

func (s *ExpenseStore) get(ctx context.Context, scope models.Scope, id string) (models.Expense, error) {
	e, err := scanExpense(s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ? AND scenario_id = ?`, id, scope.UserID, scope.ScenarioID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Expense{}, models.ErrNotFound
	}
	return e, err
}

func (s *ExpenseStore) Create(ctx context.Context, scope models.Scope, in models.ExpenseInput) (models.Expense, error) {
	rec := in.Placeholder(uuid.New().String(), scope, s.now().UTC())
	err := execOne(ctx, s.db,
		`INSERT INTO expenses (`+expenseColumns+`) SELECT ?, ?, ?, ?, ?, ?, ?, ? `+ownedScenario,
		rec.ID, rec.UserID, rec.ScenarioID, rec.CreatedAt, rec.Amount, rec.Currency, rec.Type, rec.Frequency,
		scope.ScenarioID, scope.UserID)
	if err != nil {
		return models.Expense{}, wrapWrite("insert", "expense", err)
	}
	return s.get(ctx, scope, rec.ID)
}

func (s *ExpenseStore) Update(ctx context.Context, scope models.Scope, id string, in models.ExpenseInput) (models.Expense, error) {
	err := execOne(ctx, s.db,
		`UPDATE expenses SET amount = ?, currency = ?, type = ?, frequency = ?
		 WHERE id = ? AND user_id = ? AND scenario_id = ?`,
		in.Amount, in.Currency, in.Type, in.Frequency, id, scope.UserID, scope.ScenarioID)
	if err != nil {
		return models.Expense{}, wrapWrite("update", "expense", err)
	}
	return s.get(ctx, scope, id)
}
