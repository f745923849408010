package appointment

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/patch"
)

// Appointment is a scheduled visit. The doctor fields are assigned from the
// authenticated physician at creation and never change afterwards.
type Appointment struct {
	ID               uuid.UUID `json:"id"`
	DoctorFirstName  string    `json:"doctorFirstName"`
	DoctorLastName   string    `json:"doctorLastName"`
	PatientFirstName string    `json:"patientFirstName"`
	PatientLastName  string    `json:"patientLastName"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// NewAppointment is the creation payload.
type NewAppointment struct {
	DoctorFirstName  string `json:"doctorFirstName"`
	DoctorLastName   string `json:"doctorLastName"`
	PatientFirstName string `json:"patientFirstName"`
	PatientLastName  string `json:"patientLastName"`
	Date             string `json:"date"`
	Time             string `json:"time"`
}

// Validate checks the payload against the calendar day of now.
func (n NewAppointment) Validate(now time.Time) error {
	if strings.TrimSpace(n.DoctorFirstName) == "" || strings.TrimSpace(n.DoctorLastName) == "" {
		return apperr.Validation("Doctor name is required.")
	}
	if err := validatePatientName(n.PatientFirstName, n.PatientLastName); err != nil {
		return err
	}
	if err := ValidateDate(n.Date, now); err != nil {
		return err
	}
	return ValidateTime(n.Time)
}

// Build returns the record the payload describes. The id is assigned by the
// repository.
func (n NewAppointment) Build() *Appointment {
	return &Appointment{
		DoctorFirstName:  strings.TrimSpace(n.DoctorFirstName),
		DoctorLastName:   strings.TrimSpace(n.DoctorLastName),
		PatientFirstName: strings.TrimSpace(n.PatientFirstName),
		PatientLastName:  strings.TrimSpace(n.PatientLastName),
		Date:             n.Date,
		Time:             n.Time,
	}
}

// Patch is a partial update. Doctor fields are deliberately absent.
type Patch struct {
	PatientFirstName patch.Field[string] `json:"patientFirstName"`
	PatientLastName  patch.Field[string] `json:"patientLastName"`
	Date             patch.Field[string] `json:"date"`
	Time             patch.Field[string] `json:"time"`
}

// MarshalJSON emits only the keys that were present.
func (p Patch) MarshalJSON() ([]byte, error) {
	d := patch.Doc{}
	patch.Put(d, "patientFirstName", p.PatientFirstName)
	patch.Put(d, "patientLastName", p.PatientLastName)
	patch.Put(d, "date", p.Date)
	patch.Put(d, "time", p.Time)
	return json.Marshal(d)
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return !p.PatientFirstName.Set && !p.PatientLastName.Set && !p.Date.Set && !p.Time.Set
}

// Validate checks only the fields present in the patch.
func (p Patch) Validate(now time.Time) error {
	for _, f := range []struct {
		name  string
		field patch.Field[string]
	}{
		{"patientFirstName", p.PatientFirstName},
		{"patientLastName", p.PatientLastName},
		{"date", p.Date},
		{"time", p.Time},
	} {
		if err := f.field.Required(f.name); err != nil {
			return err
		}
	}
	if v, ok := p.PatientFirstName.Get(); ok && strings.TrimSpace(v) == "" {
		return apperr.Validation("Patient first name cannot be empty.")
	}
	if v, ok := p.PatientLastName.Get(); ok && strings.TrimSpace(v) == "" {
		return apperr.Validation("Patient last name cannot be empty.")
	}
	if v, ok := p.Date.Get(); ok {
		if err := ValidateDate(v, now); err != nil {
			return err
		}
	}
	if v, ok := p.Time.Get(); ok {
		if err := ValidateTime(v); err != nil {
			return err
		}
	}
	return nil
}

// Apply writes the present fields into a.
func (p Patch) Apply(a *Appointment) {
	p.PatientFirstName.ApplyTo(&a.PatientFirstName)
	p.PatientLastName.ApplyTo(&a.PatientLastName)
	p.Date.ApplyTo(&a.Date)
	p.Time.ApplyTo(&a.Time)
}

// OwnedBy reports whether the appointment was created by the named doctor.
func (a *Appointment) OwnedBy(firstName, lastName string) bool {
	return a.DoctorFirstName == firstName && a.DoctorLastName == lastName
}

func validatePatientName(first, last string) error {
	if strings.TrimSpace(first) == "" || strings.TrimSpace(last) == "" {
		return apperr.Validation("Patient name is required.")
	}
	return nil
}
