// Package credentials provides a PostgreSQL-backed credential store.
// Passwords are stored as bcrypt hashes; verification never returns the
// hash to callers.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"webshop/server/internal/common"
	"webshop/server/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create hashes the password and stores it for the user.
func (r *PostgresRepository) Create(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	query := `
		INSERT INTO credentials (user_id, password_hash)
		VALUES ($1, $2)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, string(hash)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Verify compares the password against the stored hash. A missing
// credential row yields common.ErrNotFound.
func (r *PostgresRepository) Verify(ctx context.Context, userID, password string) (bool, error) {
	query := `
		SELECT password_hash FROM credentials
		WHERE user_id = $1
	`
	var hash string
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	query := `
		DELETE FROM credentials
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
