package appointment

import (
	"net/http"
	"testing"
	"time"

	"github.com/medrec/medrec/internal/platform/apperr"
)

var testNow = time.Date(2026, 3, 15, 23, 30, 0, 0, time.Local)

func TestValidateDate(t *testing.T) {
	tests := []struct {
		date    string
		wantErr bool
	}{
		{"2026-03-15", false},
		{"2026-03-16", false},
		{"2027-01-01", false},
		{"2026-03-14", true},
		{"2025-12-31", true},
		{"15/03/2026", true},
		{"2026-02-30", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateDate(tt.date, testNow)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDate(%q) error = %v, wantErr %v", tt.date, err, tt.wantErr)
		}
		if err != nil && apperr.StatusOf(err) != http.StatusBadRequest {
			t.Errorf("ValidateDate(%q) expected a validation error, got %T", tt.date, err)
		}
	}
}

func TestValidateDate_UsesNowLocation(t *testing.T) {
	// 01:00 on the 16th in UTC+2 is still the 15th in UTC.
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 3, 16, 1, 0, 0, 0, loc)
	if err := ValidateDate("2026-03-15", now); err == nil {
		t.Error("expected the 15th to be in the past for a clock on the 16th")
	}
}

func TestValidateTime(t *testing.T) {
	valid := []string{"00:00", "09:30", "23:59"}
	invalid := []string{"24:00", "9:30", "09:60", "0930", "09:30:00", ""}

	for _, v := range valid {
		if err := ValidateTime(v); err != nil {
			t.Errorf("ValidateTime(%q) unexpected error: %v", v, err)
		}
	}
	for _, v := range invalid {
		if err := ValidateTime(v); err == nil {
			t.Errorf("ValidateTime(%q) expected error", v)
		}
	}
}
