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

type GoalStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewGoalStore(db *sql.DB) *GoalStore {
	return &GoalStore{db: db, now: time.Now}
}

const goalColumns = `id, user_id, scenario_id, created_at, name, target_amount, current_amount, target_date, currency`

func scanGoal(row rowScanner) (models.Goal, error) {
	var g models.Goal
	var current sql.NullFloat64
	var target sql.NullTime
	if err := row.Scan(&g.ID, &g.UserID, &g.ScenarioID, &g.CreatedAt, &g.Name, &g.TargetAmount, &current, &target, &g.Currency); err != nil {
		return models.Goal{}, err
	}
	g.CreatedAt = g.CreatedAt.UTC()
	g.CurrentAmount = floatPtr(current)
	g.TargetDate = timePtr(target)
	return g, nil
}

// List returns the scenario's goals, newest first.
func (s *GoalStore) List(ctx context.Context, scope models.Scope) ([]models.Goal, error) {
	items, err := listRows(ctx, s.db,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND scenario_id = ? ORDER BY created_at DESC, rowid DESC`,
		scanGoal, scope.UserID, scope.ScenarioID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return items, nil
}

func (s *GoalStore) get(ctx context.Context, scope models.Scope, id string) (models.Goal, error) {
	g, err := scanGoal(s.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ? AND scenario_id = ?`, id, scope.UserID, scope.ScenarioID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Goal{}, models.ErrNotFound
	}
	return g, err
}

func (s *GoalStore) Create(ctx context.Context, scope models.Scope, in models.GoalInput) (models.Goal, error) {
	rec := in.Placeholder(uuid.New().String(), scope, s.now().UTC())
	err := execOne(ctx, s.db,
		`INSERT INTO goals (`+goalColumns+`) SELECT ?, ?, ?, ?, ?, ?, ?, ?, ? `+ownedScenario,
		rec.ID, rec.UserID, rec.ScenarioID, rec.CreatedAt, rec.Name, rec.TargetAmount,
		nullFloat(rec.CurrentAmount), nullTime(rec.TargetDate), rec.Currency,
		scope.ScenarioID, scope.UserID)
	if err != nil {
		return models.Goal{}, wrapWrite("insert", "goal", err)
	}
	return s.get(ctx, scope, rec.ID)
}

func (s *GoalStore) Update(ctx context.Context, scope models.Scope, id string, in models.GoalInput) (models.Goal, error) {
	err := execOne(ctx, s.db,
		`UPDATE goals SET name = ?, target_amount = ?, current_amount = ?, target_date = ?, currency = ?
		 WHERE id = ? AND user_id = ? AND scenario_id = ?`,
		in.Name, in.TargetAmount, nullFloat(in.CurrentAmount), nullTime(in.TargetDate), in.Currency,
		id, scope.UserID, scope.ScenarioID)
	if err != nil {
		return models.Goal{}, wrapWrite("update", "goal", err)
	}
	return s.get(ctx, scope, id)
}
