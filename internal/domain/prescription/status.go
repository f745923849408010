package prescription

import (
	"strings"

	"github.com/medrec/medrec/internal/platform/apperr"
)

// Status is the lifecycle state of a prescription. PENDING is the only
// initial state; APPROVED and DENIED are terminal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDenied   Status = "DENIED"
)

// ParseStatus accepts a status name in any letter case.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusDenied:
		return st, true
	}
	return "", false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// Transition is a validated request to move a prescription out of PENDING.
// The zero value is not usable; construct one with NewTransition.
type Transition struct {
	target Status
}

// NewTransition validates the requested target. PENDING and unknown names
// are rejected before anything is looked up.
func NewTransition(target string) (Transition, error) {
	st, ok := ParseStatus(target)
	if !ok {
		return Transition{}, &apperr.StatusError{
			Requested: target,
			Reason:    "Prescription status must be APPROVED or DENIED.",
		}
	}
	if st == StatusPending {
		return Transition{}, &apperr.StatusError{
			Requested: string(st),
			Reason:    "Cannot set prescription status to PENDING.",
		}
	}
	return Transition{target: st}, nil
}

// Target returns the requested status.
func (t Transition) Target() Status { return t.target }

// Apply computes the status that results from applying t to current.
// Re-applying the status a prescription already holds is a no-op; moving
// between the two terminal states is a conflict.
func (t Transition) Apply(current Status) (next Status, changed bool, err error) {
	switch {
	case t.target == "":
		return current, false, &apperr.StatusError{Reason: "Prescription status is required."}
	case current == t.target:
		return current, false, nil
	case current.Terminal():
		return current, false, &apperr.ConflictError{
			Reason: "Prescription has already been " + strings.ToLower(string(current)) + ".",
		}
	}
	return t.target, true, nil
}

// TransitionRequest is the body of /approvePrescription/:id.
type TransitionRequest struct {
	PrescriptionStatus string `json:"prescriptionStatus"`
}
