// Package application defines the review state machine for job applications
// and the service that gates new applications on certificate eligibility.
//
// Valid status graph:
//
//	PENDING ──► UNDER_REVIEW ──► ACCEPTED
//	   │             │    └────► REJECTED
//	   └─────────────┴─────────► WITHDRAWN
//
// ACCEPTED, REJECTED and WITHDRAWN are terminal states.
package application

import "fmt"

// Status values mirror the application_status enum in PostgreSQL.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusAccepted    Status = "ACCEPTED"
	StatusRejected    Status = "REJECTED"
	StatusWithdrawn   Status = "WITHDRAWN"
)

var validTransitions = map[Status][]Status{
	StatusPending:     {StatusUnderReview, StatusWithdrawn},
	StatusUnderReview: {StatusAccepted, StatusRejected, StatusWithdrawn},
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusUnderReview, StatusAccepted, StatusRejected, StatusWithdrawn:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	_, ok := validTransitions[s]
	return !ok
}

// GuardMay reports whether the applying guard (as opposed to the hiring
// company) may perform the move to s. Guards can only withdraw.
func GuardMay(to Status) bool { return to == StatusWithdrawn }
