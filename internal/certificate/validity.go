package certificate

import (
	"errors"
	"math"
	"time"
)

// ValidityState is derived from a certificate's dates and a reference time.
// It is never stored.
type ValidityState string

const (
	StateValid        ValidityState = "valid"
	StateExpiringSoon ValidityState = "expiring_soon"
	StateExpired      ValidityState = "expired"
)

// DefaultWarningWindow is how close to its expiration a certificate is
// reported as expiring soon.
const DefaultWarningWindow = 30 * 24 * time.Hour

// rank orders states from worst to best; used when picking the best of
// several certificates.
var rank = map[ValidityState]int{
	StateExpired:      0,
	StateExpiringSoon: 1,
	StateValid:        2,
}

// Better reports whether a is a strictly better state than b.
func Better(a, b ValidityState) bool { return rank[a] > rank[b] }

// Evaluate classifies a certificate validity period at time now.
//
// Returns *InvalidRangeError when issued is not strictly before expires.
// A certificate is expired only once now is after expires: at the exact
// expiration instant it is still expiring soon. A negative warning window is
// treated as zero.
func Evaluate(issued, expires, now time.Time, warningWindow time.Duration) (ValidityState, error) {
	if !issued.Before(expires) {
		return "", &InvalidRangeError{IssueDate: issued, ExpirationDate: expires}
	}
	if warningWindow < 0 {
		warningWindow = 0
	}

	switch {
	case now.After(expires):
		return StateExpired, nil
	case expires.Sub(now) <= warningWindow:
		return StateExpiringSoon, nil
	default:
		return StateValid, nil
	}
}

// Assessment is the evaluated view of one certificate.
type Assessment struct {
	Certificate   Certificate   `json:"certificate"`
	State         ValidityState `json:"state"`
	DaysRemaining int           `json:"daysRemaining"`
	PercentUsed   float64       `json:"percentUsed"`
	CheckedAt     time.Time     `json:"checkedAt"`
}

// Assess evaluates cert at now and adds the remaining days and how much of
// the validity period has elapsed.
func Assess(cert Certificate, now time.Time, warningWindow time.Duration) (Assessment, error) {
	state, err := Evaluate(cert.IssueDate, cert.ExpirationDate, now, warningWindow)
	if err != nil {
		var re *InvalidRangeError
		if errors.As(err, &re) {
			re.CertificateID = cert.ID
		}
		return Assessment{}, err
	}
	return Assessment{
		Certificate:   cert,
		State:         state,
		DaysRemaining: DaysRemaining(cert.ExpirationDate, now),
		PercentUsed:   PercentUsed(cert.IssueDate, cert.ExpirationDate, now),
		CheckedAt:     now,
	}, nil
}

// DaysRemaining returns the whole days left until expires, rounded down.
// The result is negative once the certificate has expired.
func DaysRemaining(expires, now time.Time) int {
	return int(math.Floor(expires.Sub(now).Hours() / 24))
}

// PercentUsed returns the elapsed share of the validity period in percent,
// clamped to [0, 100].
func PercentUsed(issued, expires, now time.Time) float64 {
	total := expires.Sub(issued)
	if total <= 0 {
		return 100
	}
	used := now.Sub(issued).Seconds() / total.Seconds() * 100
	return math.Max(0, math.Min(100, used))
}
