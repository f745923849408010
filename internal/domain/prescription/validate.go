package prescription

import (
	"strings"

	"github.com/medrec/medrec/internal/platform/apperr"
)

const (
	MinDosage = 1
	// MaxDosage is bounded by the SMALLINT-sized column the dosage lived in.
	MaxDosage = 127
)

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("Prescription name cannot be empty.")
	}
	return nil
}

func ValidateDosage(dosage int) error {
	if dosage < MinDosage || dosage > MaxDosage {
		return apperr.Validation("Prescription dosage must be between 1 and 127cc.")
	}
	return nil
}
