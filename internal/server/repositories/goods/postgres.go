// Package goods provides a PostgreSQL-backed read-mostly repository for
// catalog goods and their tags.
package goods

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"webshop/server/internal/common"
	"webshop/server/internal/dbx"
	"webshop/server/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Good, error) {
	query := `
		SELECT id, name, price_cents, description, storage_key
		FROM goods
		WHERE id = $1
	`
	good := &models.Good{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&good.ID, &good.Name, &good.PriceCents, &good.Description, &good.StorageKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	tags, err := r.tags(ctx, id)
	if err != nil {
		return nil, err
	}
	good.Tags = tags

	return good, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Good, error) {
	query := `
		SELECT id, name, price_cents, description, storage_key
		FROM goods
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var goods []models.Good
	for rows.Next() {
		var g models.Good
		if err := rows.Scan(&g.ID, &g.Name, &g.PriceCents, &g.Description, &g.StorageKey); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		goods = append(goods, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	for i := range goods {
		tags, err := r.tags(ctx, goods[i].ID)
		if err != nil {
			return nil, err
		}
		goods[i].Tags = tags
	}

	return goods, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM goods WHERE id = $1)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) SetStorageKey(ctx context.Context, id int64, key string) error {
	query := `
		UPDATE goods SET storage_key = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, key); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) tags(ctx context.Context, goodID int64) ([]models.Tag, error) {
	query := `
		SELECT t.id, t.name
		FROM tags t
		JOIN good_tags gt ON gt.tag_id = t.id
		WHERE gt.good_id = $1
		ORDER BY t.id
	`
	rows, err := r.db.QueryContext(ctx, query, goodID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tags, nil
}
