package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/scenariobudget/src/models"
)

// ownedScenario guards inserts so records only land in a scenario of the
// same user.
const ownedScenario = `WHERE EXISTS (SELECT 1 FROM scenarios WHERE id = ? AND user_id = ?)`

func listRows[T any](ctx context.Context, db *sql.DB, query string, scan func(rowScanner) (T, error), args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		it, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// execOne runs a write expected to touch exactly one row.
func execOne(ctx context.Context, db *sql.DB, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func wrapWrite(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s: %w", op, table, err)
}
