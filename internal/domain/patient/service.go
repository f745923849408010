package patient

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/pkg/pagination"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in NewPatient) (*Patient, error) {
	if err := in.Validate(s.now()); err != nil {
		return nil, err
	}
	p := in.Build()
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Address(ctx context.Context, id uuid.UUID) (*Address, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p.Address, nil
}

func (s *Service) ListByFirstName(ctx context.Context, name string, pg pagination.Params) ([]*Patient, error) {
	return s.repo.ListBy(ctx, FieldFirstName, name, pg.Limit, pg.Offset)
}

func (s *Service) ListByLastName(ctx context.Context, name string, pg pagination.Params) ([]*Patient, error) {
	return s.repo.ListBy(ctx, FieldLastName, name, pg.Limit, pg.Offset)
}

func (s *Service) ListByBloodType(ctx context.Context, bloodType string, pg pagination.Params) ([]*Patient, error) {
	bt, err := NormalizeBloodType(bloodType)
	if err != nil {
		return nil, err
	}
	return s.repo.ListBy(ctx, FieldBloodType, bt, pg.Limit, pg.Offset)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
