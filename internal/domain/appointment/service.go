package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the clock used for date validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, in NewAppointment) (*Appointment, error) {
	if err := in.Validate(s.now()); err != nil {
		return nil, err
	}
	a := in.Build()
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info().Str("appointment_id", a.ID.String()).Str("date", a.Date).Msg("appointment created")
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByDoctor(ctx context.Context, firstName, lastName string) ([]*Appointment, error) {
	return s.repo.ListByDoctor(ctx, firstName, lastName)
}

// Update applies the present fields of p. Validation happens before the
// record is read.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p Patch) (*Appointment, error) {
	if err := p.Validate(s.now()); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, func(a *Appointment) error {
		p.Apply(a)
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
