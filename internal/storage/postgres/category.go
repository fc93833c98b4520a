package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// Upsert returns the id of the category (name, parentID), creating it when
// missing. Concurrent callers racing on the same pair get the same id.
func (s *CategoryStore) Upsert(ctx context.Context, name string, parentID *int64) (int64, error) {
	q := GetExecutor(ctx, s.db)

	var id int64
	err := q.QueryRowxContext(ctx, `
		INSERT INTO categories (name, parent_id) VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT categories_name_parent_key DO NOTHING
		RETURNING id`,
		name, parentID,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		err = q.QueryRowxContext(ctx,
			"SELECT id FROM categories WHERE name = $1 AND parent_id IS NOT DISTINCT FROM $2",
			name, parentID,
		).Scan(&id)
	}

	if err != nil {
		return 0, err
	}

	return id, nil
}
