package prescription

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/patch"
)

type Prescription struct {
	ID              uuid.UUID `json:"id"`
	DoctorFirstName string    `json:"doctorFirstName"`
	DoctorLastName  string    `json:"doctorLastName"`
	Name            string    `json:"name"`
	Dosage          int       `json:"dosage"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// OwnedBy reports whether the prescription was written by the named doctor.
func (p *Prescription) OwnedBy(firstName, lastName string) bool {
	return p.DoctorFirstName == firstName && p.DoctorLastName == lastName
}

// NewPrescription is the creation payload. It carries no status: every
// prescription starts PENDING.
type NewPrescription struct {
	DoctorFirstName string `json:"doctorFirstName"`
	DoctorLastName  string `json:"doctorLastName"`
	Name            string `json:"name"`
	Dosage          int    `json:"dosage"`
}

func (n NewPrescription) Validate() error {
	if strings.TrimSpace(n.DoctorFirstName) == "" || strings.TrimSpace(n.DoctorLastName) == "" {
		return apperr.Validation("Doctor name is required.")
	}
	if err := ValidateName(n.Name); err != nil {
		return err
	}
	return ValidateDosage(n.Dosage)
}

func (n NewPrescription) Build() *Prescription {
	return &Prescription{
		DoctorFirstName: strings.TrimSpace(n.DoctorFirstName),
		DoctorLastName:  strings.TrimSpace(n.DoctorLastName),
		Name:            strings.TrimSpace(n.Name),
		Dosage:          n.Dosage,
		Status:          StatusPending,
	}
}

// Patch is a partial update of the prescribing fields. Status changes go
// through Transition instead.
type Patch struct {
	Name   patch.Field[string] `json:"name"`
	Dosage patch.Field[int]    `json:"dosage"`
}

func (p Patch) MarshalJSON() ([]byte, error) {
	d := patch.Doc{}
	patch.Put(d, "name", p.Name)
	patch.Put(d, "dosage", p.Dosage)
	return json.Marshal(d)
}

func (p Patch) Empty() bool {
	return !p.Name.Set && !p.Dosage.Set
}

// Validate checks only the fields present in the patch.
func (p Patch) Validate() error {
	if err := p.Name.Required("name"); err != nil {
		return err
	}
	if err := p.Dosage.Required("dosage"); err != nil {
		return err
	}
	if v, ok := p.Name.Get(); ok {
		if err := ValidateName(v); err != nil {
			return err
		}
	}
	if v, ok := p.Dosage.Get(); ok {
		if err := ValidateDosage(v); err != nil {
			return err
		}
	}
	return nil
}

func (p Patch) Apply(rx *Prescription) {
	p.Name.ApplyTo(&rx.Name)
	p.Dosage.ApplyTo(&rx.Dosage)
}
