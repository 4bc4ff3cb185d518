package sessions

import (
	"context"

	"webshop/server/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context) (*models.Session, error)
	// Get loads the session row with its cart lines and, via the users
	// back-reference, the id of the bound user if any.
	Get(ctx context.Context, id int64) (*models.Session, error)
	// GetForUpdate loads the session row (no lines) while holding a row
	// lock, serializing concurrent refresh rotations and cart writes.
	GetForUpdate(ctx context.Context, id int64) (*models.Session, error)
	SetRefreshToken(ctx context.Context, id int64, token *string) error
	SetOrdersSavedAt(ctx context.Context, id int64, savedAt int64) error
	Lines(ctx context.Context, id int64) ([]models.CartLine, error)
	DeleteLines(ctx context.Context, id int64) error
	InsertLine(ctx context.Context, line *models.CartLine) error
	Delete(ctx context.Context, id int64) error
}
