package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
)

// BloodTypes lists the accepted ABO/Rh groups.
var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// NormalizeBloodType upper-cases t and checks it against BloodTypes.
func NormalizeBloodType(t string) (string, error) {
	n := strings.ToUpper(strings.TrimSpace(t))
	for _, bt := range BloodTypes {
		if n == bt {
			return n, nil
		}
	}
	return "", apperr.Validation("unknown blood type %q", t)
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type Patient struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	DateOfBirth string    `json:"dateOfBirth"`
	BloodType   string    `json:"bloodType"`
	Phone       string    `json:"phone,omitempty"`
	Address     Address   `json:"address"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewPatient is the creation payload.
type NewPatient struct {
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	DateOfBirth string  `json:"dateOfBirth"`
	BloodType   string  `json:"bloodType"`
	Phone       string  `json:"phone"`
	Address     Address `json:"address"`
}

// Validate checks the payload; now bounds the date of birth.
func (n *NewPatient) Validate(now time.Time) error {
	n.FirstName = strings.TrimSpace(n.FirstName)
	n.LastName = strings.TrimSpace(n.LastName)
	if n.FirstName == "" || n.LastName == "" {
		return apperr.Validation("Patient name is required.")
	}
	dob, err := time.Parse("2006-01-02", n.DateOfBirth)
	if err != nil {
		return apperr.Validation("Date of birth must be in YYYY-MM-DD format.")
	}
	if dob.After(now) {
		return apperr.Validation("Date of birth cannot be in the future.")
	}
	bt, err := NormalizeBloodType(n.BloodType)
	if err != nil {
		return err
	}
	n.BloodType = bt
	return nil
}

func (n NewPatient) Build() *Patient {
	return &Patient{
		FirstName:   n.FirstName,
		LastName:    n.LastName,
		DateOfBirth: n.DateOfBirth,
		BloodType:   n.BloodType,
		Phone:       strings.TrimSpace(n.Phone),
		Address:     n.Address,
	}
}
