package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListByDoctor(ctx context.Context, firstName, lastName string) ([]*Prescription, error)
	ListByStatus(ctx context.Context, status Status) ([]*Prescription, error)
	// Update loads the record under a row lock, lets fn mutate it, and stores
	// the result.
	Update(ctx context.Context, id uuid.UUID, fn func(*Prescription) error) (*Prescription, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
