package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/username/scenariobudget/src/database"
	"github.com/username/scenariobudget/src/models"
)

// ScenarioStore keeps scenarios in the scenarios table.
type ScenarioStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewScenarioStore(db *sql.DB) *ScenarioStore {
	return &ScenarioStore{db: db, now: time.Now}
}

const scenarioColumns = `id, user_id, slug, name, base_currency, created_at`

func scanScenario(row rowScanner) (models.Scenario, error) {
	var sc models.Scenario
	var base sql.NullString
	if err := row.Scan(&sc.ID, &sc.UserID, &sc.Slug, &sc.Name, &base, &sc.CreatedAt); err != nil {
		return models.Scenario{}, err
	}
	sc.BaseCurrency = stringPtr(base)
	sc.CreatedAt = sc.CreatedAt.UTC()
	return sc, nil
}

// ListScenarios returns the user's scenarios, oldest first.
func (s *ScenarioStore) ListScenarios(ctx context.Context, userID string) ([]models.Scenario, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scenarioColumns+` FROM scenarios WHERE user_id = ? ORDER BY created_at ASC, rowid ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	scenarios := []models.Scenario{}
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, rows.Err()
}

func (s *ScenarioStore) GetScenario(ctx context.Context, scope models.Scope) (models.Scenario, error) {
	sc, err := scanScenario(s.db.QueryRowContext(ctx,
		`SELECT `+scenarioColumns+` FROM scenarios WHERE id = ? AND user_id = ?`, scope.ScenarioID, scope.UserID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Scenario{}, models.ErrNotFound
	}
	if err != nil {
		return models.Scenario{}, fmt.Errorf("get scenario %s: %w", scope.ScenarioID, err)
	}
	return sc, nil
}

// CreateScenario inserts a scenario. A slug already used by the user gets a
// numeric suffix.
func (s *ScenarioStore) CreateScenario(ctx context.Context, userID, name, slug string) (models.Scenario, error) {
	sc := models.Scenario{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: s.now().UTC(),
	}

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var taken int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM scenarios WHERE user_id = ? AND (slug = ? OR slug LIKE ?)`,
			userID, slug, slug+"-%").Scan(&taken); err != nil {
			return err
		}
		sc.Slug = slug
		if taken > 0 {
			sc.Slug = fmt.Sprintf("%s-%d", slug, taken+1)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO scenarios (id, user_id, slug, name, base_currency, created_at) VALUES (?, ?, ?, ?, NULL, ?)`,
			sc.ID, sc.UserID, sc.Slug, sc.Name, sc.CreatedAt)
		return err
	})
	if err != nil {
		return models.Scenario{}, fmt.Errorf("insert scenario: %w", err)
	}
	return sc, nil
}

// SetBaseCurrency sets the base currency of a scenario that has none yet.
func (s *ScenarioStore) SetBaseCurrency(ctx context.Context, scope models.Scope, currency string) (models.Scenario, error) {
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE scenarios SET base_currency = ? WHERE id = ? AND user_id = ? AND base_currency IS NULL`,
			currency, scope.ScenarioID, scope.UserID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n > 0 {
			return err
		}

		var exists int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenarios WHERE id = ? AND user_id = ?`,
			scope.ScenarioID, scope.UserID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return models.ErrNotFound
		}
		return models.ErrConflict
	})
	if err != nil {
		return models.Scenario{}, err
	}
	return s.GetScenario(ctx, scope)
}
