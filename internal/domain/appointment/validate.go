package appointment

import (
	"time"

	"github.com/medrec/medrec/internal/platform/apperr"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ValidateDate rejects a date strictly before the calendar day of now, in
// now's location. Today is valid.
func ValidateDate(date string, now time.Time) error {
	d, err := time.ParseInLocation(DateLayout, date, now.Location())
	if err != nil {
		return apperr.Validation("Appointment date must be in YYYY-MM-DD format.")
	}
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	if d.Before(today) {
		return apperr.Validation("Appointment date cannot be in the past.")
	}
	return nil
}

// ValidateTime checks a 24-hour HH:MM time of day.
func ValidateTime(t string) error {
	if _, err := time.Parse(TimeLayout, t); err != nil || len(t) != len(TimeLayout) {
		return apperr.Validation("Appointment time must be in HH:MM format.")
	}
	return nil
}
