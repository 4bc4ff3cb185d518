package goods

import (
	"context"

	"webshop/server/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*models.Good, error)
	List(ctx context.Context) ([]models.Good, error)
	// Exists reports whether a good with the given id is in the catalog.
	// The cart synchronizer uses it to silently drop unknown references.
	Exists(ctx context.Context, id int64) (bool, error)
	SetStorageKey(ctx context.Context, id int64, key string) error
}
