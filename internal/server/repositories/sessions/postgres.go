// Package sessions provides a PostgreSQL-backed repository for shopping
// sessions: the cart line set, the logical cart-save clock, and the single
// refresh-token slot.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"webshop/server/internal/common"
	"webshop/server/internal/dbx"
	"webshop/server/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an empty anonymous session and returns it.
func (r *PostgresRepository) Create(ctx context.Context) (*models.Session, error) {
	query := `
		INSERT INTO sessions DEFAULT VALUES
		RETURNING id
	`
	session := &models.Session{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&session.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return session, nil
}

// Get returns the session with its cart lines. UserID is populated from the
// users back-reference when the session is bound.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Session, error) {
	query := `
		SELECT s.id, s.orders_saved_at, s.refresh_token, u.id
		FROM sessions s
		LEFT JOIN users u ON u.session_id = s.id
		WHERE s.id = $1
	`
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&session.ID, &session.OrdersSavedAt, &session.RefreshToken, &session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	lines, err := r.Lines(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Lines = lines

	return session, nil
}

// GetForUpdate locks and returns the bare session row.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id int64) (*models.Session, error) {
	query := `
		SELECT id, orders_saved_at, refresh_token
		FROM sessions
		WHERE id = $1
		FOR UPDATE
	`
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&session.ID, &session.OrdersSavedAt, &session.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return session, nil
}

// SetRefreshToken overwrites the single refresh-token slot. Passing nil
// clears it (revocation).
func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id int64, token *string) error {
	query := `
		UPDATE sessions SET refresh_token = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// SetOrdersSavedAt records the logical clock of an accepted cart write.
func (r *PostgresRepository) SetOrdersSavedAt(ctx context.Context, id int64, savedAt int64) error {
	query := `
		UPDATE sessions SET orders_saved_at = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, savedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Lines returns the session's cart lines in insertion order.
func (r *PostgresRepository) Lines(ctx context.Context, id int64) ([]models.CartLine, error) {
	query := `
		SELECT id, session_id, good_id, quantity
		FROM cart_lines
		WHERE session_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var l models.CartLine
		if err := rows.Scan(&l.ID, &l.SessionID, &l.GoodID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return lines, nil
}

// DeleteLines drops the whole cart line set.
func (r *PostgresRepository) DeleteLines(ctx context.Context, id int64) error {
	query := `
		DELETE FROM cart_lines
		WHERE session_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// InsertLine adds one cart line.
func (r *PostgresRepository) InsertLine(ctx context.Context, line *models.CartLine) error {
	query := `
		INSERT INTO cart_lines (session_id, good_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, line.SessionID, line.GoodID, line.Quantity).Scan(&line.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the session; cart lines go with it (ON DELETE CASCADE).
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `
		DELETE FROM sessions
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
