// Package eligibility matches a job's certificate requirements against the
// certificates a guard holds.
//
// Match is a pure function over in-memory inputs: it performs no I/O and
// reads no clock, so the same inputs always give the same Result.
package eligibility

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"securyflex/verification-service/internal/certificate"
)

// CertRef names an acceptable certificate for a requirement, either by
// certificate ID or by category.
type CertRef string

// Requirements maps a requirement name to the certificates that satisfy it.
type Requirements map[string][]CertRef

// Outcome is the per-requirement verdict.
type Outcome string

const (
	OutcomeMet      Outcome = "met"
	OutcomeExpiring Outcome = "expiring_soon"
	OutcomeExpired  Outcome = "expired"
	OutcomeMissing  Outcome = "missing"
)

// RequirementStatus explains how a single requirement was decided.
type RequirementStatus struct {
	Requirement   string                    `json:"requirement"`
	Outcome       Outcome                   `json:"outcome"`
	CertificateID string                    `json:"certificateId,omitempty"`
	State         certificate.ValidityState `json:"state,omitempty"`
	ExpiresAt     *time.Time                `json:"expiresAt,omitempty"`
}

// Result is the derived eligibility of one holder for one job.
type Result struct {
	RequirementsMet      map[string]bool     `json:"requirementsMet"`
	MissingRequirements  []string            `json:"missingRequirements"`
	ExpiredRequirements  []string            `json:"expiredRequirements"`
	ExpiringRequirements []string            `json:"expiringRequirements"`
	EligibilityScore     float64             `json:"eligibilityScore"`
	ActionItems          []string            `json:"actionItems"`
	Details              []RequirementStatus `json:"details"`
	CheckedAt            time.Time           `json:"checkedAt"`
}

// Eligible reports whether every requirement is met. A job without
// requirements is vacuously eligible.
func (r *Result) Eligible() bool {
	return len(r.MissingRequirements) == 0 && len(r.ExpiredRequirements) == 0
}

type options struct {
	warningWindow time.Duration
}

// Option customises Match.
type Option func(*options)

// WithWarningWindow overrides certificate.DefaultWarningWindow.
func WithWarningWindow(d time.Duration) Option {
	return func(o *options) { o.warningWindow = d }
}

// Match evaluates reqs against the holder's certificates at time now.
//
// A requirement is met when at least one matching certificate is valid or
// expiring soon, expired when it has matches but all of them are expired, and
// missing when nothing matches. Certificates with an inverted validity range
// abort the evaluation with a wrapped *certificate.InvalidRangeError.
func Match(reqs Requirements, certs []certificate.Certificate, now time.Time, opts ...Option) (*Result, error) {
	o := options{warningWindow: certificate.DefaultWarningWindow}
	for _, opt := range opts {
		opt(&o)
	}

	// Work on a sorted copy so the result never depends on input order.
	sorted := make([]certificate.Certificate, len(certs))
	copy(sorted, certs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	names := make([]string, 0, len(reqs))
	for name := range reqs {
		names = append(names, name)
	}
	sort.Strings(names)

	res := &Result{
		RequirementsMet:      make(map[string]bool, len(reqs)),
		MissingRequirements:  []string{},
		ExpiredRequirements:  []string{},
		ExpiringRequirements: []string{},
		ActionItems:          []string{},
		Details:              make([]RequirementStatus, 0, len(reqs)),
		CheckedAt:            now,
	}

	met := 0
	for _, name := range names {
		st, err := evaluateRequirement(name, reqs[name], sorted, now, o.warningWindow)
		if err != nil {
			return nil, err
		}
		res.Details = append(res.Details, st)

		switch st.Outcome {
		case OutcomeMet:
			res.RequirementsMet[name] = true
			met++
		case OutcomeExpiring:
			res.RequirementsMet[name] = true
			res.ExpiringRequirements = append(res.ExpiringRequirements, name)
			met++
		case OutcomeExpired:
			res.RequirementsMet[name] = false
			res.ExpiredRequirements = append(res.ExpiredRequirements, name)
		case OutcomeMissing:
			res.RequirementsMet[name] = false
			res.MissingRequirements = append(res.MissingRequirements, name)
		}
	}

	if len(names) == 0 {
		res.EligibilityScore = 1.0
	} else {
		res.EligibilityScore = float64(met) / float64(len(names))
	}
	res.ActionItems = actionItems(res)
	return res, nil
}

func evaluateRequirement(name string, refs []CertRef, certs []certificate.Certificate, now time.Time, window time.Duration) (RequirementStatus, error) {
	st := RequirementStatus{Requirement: name, Outcome: OutcomeMissing}

	var best *certificate.Certificate
	var bestState certificate.ValidityState
	for i := range certs {
		c := &certs[i]
		if !matches(name, refs, c) {
			continue
		}
		state, err := certificate.Evaluate(c.IssueDate, c.ExpirationDate, now, window)
		if err != nil {
			return st, fmt.Errorf("requirement %s: certificate %s: %w", name, c.ID, err)
		}
		if best == nil || preferred(state, c, bestState, best) {
			best, bestState = c, state
		}
	}
	if best == nil {
		return st, nil
	}

	expires := best.ExpirationDate
	st.CertificateID = best.ID
	st.State = bestState
	st.ExpiresAt = &expires
	switch bestState {
	case certificate.StateValid:
		st.Outcome = OutcomeMet
	case certificate.StateExpiringSoon:
		st.Outcome = OutcomeExpiring
	default:
		st.Outcome = OutcomeExpired
	}
	return st, nil
}

// preferred orders candidates by state, then latest expiration, then lowest ID.
func preferred(state certificate.ValidityState, c *certificate.Certificate, bestState certificate.ValidityState, best *certificate.Certificate) bool {
	if state != bestState {
		return certificate.Better(state, bestState)
	}
	if !c.ExpirationDate.Equal(best.ExpirationDate) {
		return c.ExpirationDate.After(best.ExpirationDate)
	}
	return c.ID < best.ID
}

func matches(name string, refs []CertRef, c *certificate.Certificate) bool {
	if strings.EqualFold(string(c.Category), name) {
		return true
	}
	for _, ref := range refs {
		r := string(ref)
		if r == c.ID || strings.EqualFold(r, string(c.Category)) {
			return true
		}
	}
	return false
}

func actionItems(r *Result) []string {
	items := make([]string, 0, len(r.MissingRequirements)+len(r.ExpiredRequirements)+len(r.ExpiringRequirements))
	for _, name := range r.MissingRequirements {
		items = append(items, "obtain "+name)
	}
	for _, name := range r.ExpiredRequirements {
		items = append(items, "renew "+name)
	}
	for _, d := range r.Details {
		if d.Outcome == OutcomeExpiring {
			items = append(items, fmt.Sprintf("renew %s before %s", d.Requirement, d.ExpiresAt.Format("2006-01-02")))
		}
	}
	return items
}
