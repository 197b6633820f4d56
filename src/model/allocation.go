package model

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/scenariobudget/src/database"
	"github.com/username/scenariobudget/src/models"
)

// AllocationStore keeps goal savings allocations. Allocations have no scope
// columns of their own; they belong to the scenario of their goal.
type AllocationStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewAllocationStore(db *sql.DB) *AllocationStore {
	return &AllocationStore{db: db, now: time.Now}
}

func scanAllocation(row rowScanner) (models.GoalSavingsAllocation, error) {
	var a models.GoalSavingsAllocation
	err := row.Scan(&a.ID, &a.GoalID, &a.SavingsID, &a.AmountUsed, &a.Currency, &a.CreatedAt)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, err
}

func (s *AllocationStore) ListAllocations(ctx context.Context, scope models.Scope) ([]models.GoalSavingsAllocation, error) {
	items, err := listRows(ctx, s.db, `
		SELECT a.id, a.goal_id, a.savings_id, a.amount_used, a.currency, a.created_at
		FROM goal_savings_allocations a
		JOIN goals g ON g.id = a.goal_id
		WHERE g.user_id = ? AND g.scenario_id = ?
		ORDER BY a.created_at DESC, a.rowid DESC`,
		scanAllocation, scope.UserID, scope.ScenarioID)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return items, nil
}

// allocatedFrom sums the allocations drawn from a savings record in its
// currency.
func allocatedFrom(ctx context.Context, tx *sql.Tx, savingsID, currency string) (decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT amount_used FROM goal_savings_allocations WHERE savings_id = ? AND currency = ?`, savingsID, currency)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	used := decimal.Zero
	for rows.Next() {
		var amount float64
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, err
		}
		used = used.Add(decimal.NewFromFloat(amount))
	}
	return used, rows.Err()
}

// CreateAllocation records an allocation after checking that both the goal
// and the savings record belong to the scenario and that the savings record
// still covers the amount. Both checks run in the inserting transaction.
func (s *AllocationStore) CreateAllocation(ctx context.Context, scope models.Scope, in models.AllocationInput, currency string) (models.GoalSavingsAllocation, error) {
	a := models.GoalSavingsAllocation{
		ID:         uuid.New().String(),
		GoalID:     in.GoalID,
		SavingsID:  in.SavingsID,
		AmountUsed: in.AmountUsed,
		Currency:   currency,
		CreatedAt:  s.now().UTC(),
	}

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var owned int
		err := tx.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM goals WHERE id = ? AND user_id = ? AND scenario_id = ?)
			     + (SELECT COUNT(*) FROM savings WHERE id = ? AND user_id = ? AND scenario_id = ?)`,
			in.GoalID, scope.UserID, scope.ScenarioID, in.SavingsID, scope.UserID, scope.ScenarioID).Scan(&owned)
		if err != nil {
			return err
		}
		if owned != 2 {
			return models.ErrNotFound
		}

		var principal float64
		var savingsCurrency string
		err = tx.QueryRowContext(ctx, `SELECT amount, currency FROM savings WHERE id = ?`, in.SavingsID).
			Scan(&principal, &savingsCurrency)
		if err != nil {
			return err
		}
		used, err := allocatedFrom(ctx, tx, in.SavingsID, savingsCurrency)
		if err != nil {
			return err
		}
		if decimal.NewFromFloat(principal).Sub(used).LessThan(decimal.NewFromFloat(in.AmountUsed)) {
			return models.ErrExceedsAvailable
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO goal_savings_allocations (id, goal_id, savings_id, amount_used, currency, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, a.GoalID, a.SavingsID, a.AmountUsed, a.Currency, a.CreatedAt)
		return err
	})
	if err != nil {
		return models.GoalSavingsAllocation{}, wrapWrite("insert", "allocation", err)
	}
	return a, nil
}
