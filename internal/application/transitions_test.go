package application_test

import (
	"testing"

	"securyflex/verification-service/internal/application"
)

var allStatuses = []application.Status{
	application.StatusPending,
	application.StatusUnderReview,
	application.StatusAccepted,
	application.StatusRejected,
	application.StatusWithdrawn,
}

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_AllConstantsRoundTrip(t *testing.T) {
	for _, s := range allStatuses {
		got, err := application.ParseStatus(string(s))
		if err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_Invalid(t *testing.T) {
	for _, s := range []string{"", "UNKNOWN", "pending", " PENDING"} {
		if _, err := application.ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", s)
		}
	}
}

// ── IsTransitionAllowed ────────────────────────────────────────────────────

func TestIsTransitionAllowed_Valid(t *testing.T) {
	cases := []struct {
		from application.Status
		to   application.Status
	}{
		{application.StatusPending, application.StatusUnderReview},
		{application.StatusUnderReview, application.StatusAccepted},
		{application.StatusUnderReview, application.StatusRejected},
		{application.StatusPending, application.StatusWithdrawn},
		{application.StatusUnderReview, application.StatusWithdrawn},
	}
	for _, c := range cases {
		if !application.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_SkippingReview(t *testing.T) {
	for _, to := range []application.Status{application.StatusAccepted, application.StatusRejected} {
		if application.IsTransitionAllowed(application.StatusPending, to) {
			t.Errorf("IsTransitionAllowed(PENDING → %s) should be false", to)
		}
	}
}

func TestIsTransitionAllowed_SelfLoops(t *testing.T) {
	for _, s := range allStatuses {
		if application.IsTransitionAllowed(s, s) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false", s, s)
		}
	}
}

func TestIsTransitionAllowed_TerminalStatesHaveNoOutgoing(t *testing.T) {
	for _, from := range allStatuses {
		if !application.IsTerminal(from) {
			continue
		}
		for _, to := range allStatuses {
			if application.IsTransitionAllowed(from, to) {
				t.Errorf("IsTransitionAllowed(%s → %s) must be false: %s is terminal", from, to, from)
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	want := map[application.Status]bool{
		application.StatusPending:     false,
		application.StatusUnderReview: false,
		application.StatusAccepted:    true,
		application.StatusRejected:    true,
		application.StatusWithdrawn:   true,
	}
	for s, terminal := range want {
		if got := application.IsTerminal(s); got != terminal {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, got, terminal)
		}
	}
}

func TestGuardMay(t *testing.T) {
	for _, s := range allStatuses {
		want := s == application.StatusWithdrawn
		if got := application.GuardMay(s); got != want {
			t.Errorf("GuardMay(%s) = %v, want %v", s, got, want)
		}
	}
}
