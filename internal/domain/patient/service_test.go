package patient

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/pkg/pagination"
)

type mockRepo struct {
	store map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("patient", id.String())
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) ListBy(_ context.Context, field Field, value string, limit, offset int) ([]*Patient, error) {
	var all []*Patient
	for _, p := range m.store {
		var v string
		switch field {
		case FieldFirstName:
			v = p.FirstName
		case FieldLastName:
			v = p.LastName
		case FieldBloodType:
			v = p.BloodType
		}
		if strings.EqualFold(v, value) {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FirstName < all[j].FirstName })

	out := []*Patient{}
	for i := offset; i < len(all) && len(out) < limit; i++ {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return apperr.NotFound("patient", id.String())
	}
	delete(m.store, id)
	return nil
}

func newTestService() *Service {
	svc := NewService(newMockRepo())
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func newPatient(first, last, bloodType string) NewPatient {
	return NewPatient{
		FirstName:   first,
		LastName:    last,
		DateOfBirth: "1980-04-12",
		BloodType:   bloodType,
		Address: Address{
			Street:     "221B Baker Street",
			City:       "London",
			PostalCode: "NW1 6XE",
			Country:    "UK",
		},
	}
}

func TestService_Create(t *testing.T) {
	svc := newTestService()

	p, err := svc.Create(context.Background(), newPatient(" Ada ", "Lovelace", "ab-"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FirstName != "Ada" || p.BloodType != "AB-" {
		t.Errorf("expected normalized fields, got %+v", p)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := map[string]NewPatient{
		"no name":      newPatient("", "Lovelace", "O+"),
		"bad blood":    newPatient("Ada", "Lovelace", "Z"),
		"future birth": func() NewPatient { n := newPatient("Ada", "Lovelace", "O+"); n.DateOfBirth = "2030-01-01"; return n }(),
		"bad birth":    func() NewPatient { n := newPatient("Ada", "Lovelace", "O+"); n.DateOfBirth = "12/04/1980"; return n }(),
	}
	for name, in := range cases {
		if _, err := svc.Create(ctx, in); apperr.StatusOf(err) != http.StatusBadRequest {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestService_Lists(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	svc.Create(ctx, newPatient("Ada", "Lovelace", "O+"))
	svc.Create(ctx, newPatient("Alan", "Turing", "O+"))
	svc.Create(ctx, newPatient("Grace", "Hopper", "A-"))

	byBlood, err := svc.ListByBloodType(ctx, "o+", pagination.Params{Limit: 10})
	if err != nil || len(byBlood) != 2 {
		t.Fatalf("expected 2 O+ patients, got %d (%v)", len(byBlood), err)
	}

	page, _ := svc.ListByBloodType(ctx, "O+", pagination.Params{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].FirstName != "Alan" {
		t.Errorf("unexpected second page %+v", page)
	}

	byLast, _ := svc.ListByLastName(ctx, "hopper", pagination.Params{Limit: 10})
	if len(byLast) != 1 {
		t.Errorf("expected 1 Hopper, got %d", len(byLast))
	}

	none, _ := svc.ListByFirstName(ctx, "Linus", pagination.Params{Limit: 10})
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil list, got %v", none)
	}

	if _, err := svc.ListByBloodType(ctx, "C", pagination.Params{Limit: 10}); err == nil {
		t.Error("expected error for unknown blood type")
	}
}

func TestService_AddressAndDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, newPatient("Ada", "Lovelace", "O+"))

	addr, err := svc.Address(ctx, p.ID)
	if err != nil || addr.City != "London" {
		t.Fatalf("unexpected address %+v (%v)", addr, err)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Address(ctx, p.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
