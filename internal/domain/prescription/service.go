package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/platform/events"
)

// Event types published on the prescription stream.
const (
	EventCreated       = "prescription.created"
	EventStatusChanged = "prescription.status_changed"
)

type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher events.Publisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// Create stores a new prescription. The status is always PENDING.
func (s *Service) Create(ctx context.Context, in NewPrescription) (*Prescription, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := in.Build()
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, EventCreated, p, map[string]interface{}{
		"status": p.Status,
		"doctor": p.DoctorFirstName + " " + p.DoctorLastName,
	})
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByDoctor(ctx context.Context, firstName, lastName string) ([]*Prescription, error) {
	return s.repo.ListByDoctor(ctx, firstName, lastName)
}

func (s *Service) ListByStatus(ctx context.Context, status Status) ([]*Prescription, error) {
	return s.repo.ListByStatus(ctx, status)
}

// Update applies the present prescribing fields of p. It never touches the
// status.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p Patch) (*Prescription, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, func(rx *Prescription) error {
		p.Apply(rx)
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// ApplyTransition moves a prescription to the transition's target and
// publishes the change with the status it replaced.
func (s *Service) ApplyTransition(ctx context.Context, id uuid.UUID, t Transition) (*Prescription, error) {
	var from Status
	var changed bool
	p, err := s.repo.Update(ctx, id, func(rx *Prescription) error {
		next, ok, err := t.Apply(rx.Status)
		if err != nil {
			return err
		}
		from, changed = rx.Status, ok
		rx.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info().
			Str("prescription_id", id.String()).
			Str("from", string(from)).
			Str("to", string(p.Status)).
			Msg("prescription status changed")
		s.publish(ctx, EventStatusChanged, p, map[string]interface{}{
			"from": from,
			"to":   p.Status,
		})
	}
	return p, nil
}

// publish is best effort; the record change is already committed.
func (s *Service) publish(ctx context.Context, typ string, p *Prescription, data map[string]interface{}) {
	data["id"] = p.ID.String()
	e := events.Event{
		Type:       typ,
		Key:        p.ID.String(),
		OccurredAt: s.now().UTC(),
		Data:       data,
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("event_type", typ).Str("prescription_id", p.ID.String()).Msg("publish event failed")
	}
}
