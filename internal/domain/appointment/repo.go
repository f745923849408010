package appointment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByDoctor(ctx context.Context, firstName, lastName string) ([]*Appointment, error)
	// Update loads the record, lets fn mutate it, and stores the result
	// atomically.
	Update(ctx context.Context, id uuid.UUID, fn func(*Appointment) error) (*Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
