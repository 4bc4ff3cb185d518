package credentials

import "context"

// Repository is the credential store consumed by signup and login. Hashing
// is an implementation detail of the store; services only ever see
// plaintext in and a verdict out.
type Repository interface {
	Create(ctx context.Context, userID, password string) error
	Verify(ctx context.Context, userID, password string) (bool, error)
	Delete(ctx context.Context, userID string) error
}
