package identity

import "context"

type Repository interface {
	// Create fails with a ConflictError when the email is taken.
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
}
