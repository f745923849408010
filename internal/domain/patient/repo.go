package patient

import (
	"context"

	"github.com/google/uuid"
)

// Field names a searchable patient column.
type Field string

const (
	FieldFirstName Field = "first_name"
	FieldLastName  Field = "last_name"
	FieldBloodType Field = "blood_type"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	ListBy(ctx context.Context, field Field, value string, limit, offset int) ([]*Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
