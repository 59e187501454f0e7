// Package gps classifies location samples reported by a guard's device when
// checking in at a job site.
//
// Classification is stateless. The "improving" label compares two
// successive samples and is applied by the caller through Progress.
package gps

import (
	"fmt"
	"math"
	"time"
)

// Status is the discrete verdict on one location sample.
type Status string

const (
	StatusVerified     Status = "verified"
	StatusExcellent    Status = "excellent"
	StatusImproving    Status = "improving"
	StatusLowAccuracy  Status = "lowAccuracy"
	StatusOutOfRange   Status = "outOfRange"
	StatusMockLocation Status = "mockLocation"
	StatusDisabled     Status = "disabled"
	StatusFailed       Status = "failed"
	StatusPending      Status = "pending"
)

// Thresholds are the accuracy bands, in meters. They are policy, not
// physics, and are loaded from configuration.
type Thresholds struct {
	ExcellentMeters   float64 `yaml:"excellent_meters"`
	VerifiedMeters    float64 `yaml:"verified_meters"`
	LowAccuracyMeters float64 `yaml:"low_accuracy_meters"`
	FailedMeters      float64 `yaml:"failed_meters"`
}

// DefaultThresholds returns the 5/10/50/100 m bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExcellentMeters:   5,
		VerifiedMeters:    10,
		LowAccuracyMeters: 50,
		FailedMeters:      100,
	}
}

// Validate checks 0 < excellent <= verified <= lowAccuracy <= failed.
func (t Thresholds) Validate() error {
	if !(t.ExcellentMeters > 0) {
		return fmt.Errorf("gps: excellent threshold must be positive, got %v", t.ExcellentMeters)
	}
	if t.VerifiedMeters < t.ExcellentMeters ||
		t.LowAccuracyMeters < t.VerifiedMeters ||
		t.FailedMeters < t.LowAccuracyMeters {
		return fmt.Errorf("gps: thresholds must be non-decreasing, got %v/%v/%v/%v",
			t.ExcellentMeters, t.VerifiedMeters, t.LowAccuracyMeters, t.FailedMeters)
	}
	return nil
}

// Reading is a single location sample. DistanceMeters is nil when the
// distance to the site is unknown.
type Reading struct {
	AccuracyMeters float64   `json:"accuracyMeters"`
	DistanceMeters *float64  `json:"distanceMeters,omitempty"`
	IsMock         bool      `json:"isMock"`
	Timestamp      time.Time `json:"timestamp"`
}

// Classifier applies Thresholds to location samples. The zero value is not
// usable; build one with NewClassifier.
type Classifier struct {
	t Thresholds
}

// NewClassifier returns a Classifier for t.
func NewClassifier(t Thresholds) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{t: t}, nil
}

// Thresholds returns the bands this classifier uses.
func (c *Classifier) Thresholds() Thresholds { return c.t }

// Classify decides the status of one sample. Precedence, first match wins:
//
//  1. mock location flag set       -> mockLocation
//  2. accuracy above failed band   -> failed (negative or NaN accuracy too)
//  3. distance beyond site radius  -> outOfRange
//  4. accuracy within excellent    -> excellent
//  5. accuracy within verified     -> verified
//  6. accuracy within low accuracy -> lowAccuracy
//  7. otherwise                    -> pending
func (c *Classifier) Classify(accuracyMeters float64, distanceMeters *float64, isMock bool, siteRadiusMeters float64) Status {
	if isMock {
		return StatusMockLocation
	}
	if math.IsNaN(accuracyMeters) || accuracyMeters < 0 || accuracyMeters > c.t.FailedMeters {
		return StatusFailed
	}
	if distanceMeters != nil && *distanceMeters > siteRadiusMeters {
		return StatusOutOfRange
	}

	switch {
	case accuracyMeters <= c.t.ExcellentMeters:
		return StatusExcellent
	case accuracyMeters <= c.t.VerifiedMeters:
		return StatusVerified
	case accuracyMeters <= c.t.LowAccuracyMeters:
		return StatusLowAccuracy
	default:
		return StatusPending
	}
}

// ClassifyReading is Classify over a Reading.
func (c *Classifier) ClassifyReading(r Reading, siteRadiusMeters float64) Status {
	return c.Classify(r.AccuracyMeters, r.DistanceMeters, r.IsMock, siteRadiusMeters)
}

var defaultClassifier = &Classifier{t: DefaultThresholds()}

// Classify uses DefaultThresholds.
func Classify(accuracyMeters float64, distanceMeters *float64, isMock bool, siteRadiusMeters float64) Status {
	return defaultClassifier.Classify(accuracyMeters, distanceMeters, isMock, siteRadiusMeters)
}

// Progress relabels a pending or lowAccuracy status as improving when the
// accuracy radius strictly shrank since the previous sample. Any other
// status, or a missing previous sample, is returned unchanged.
func Progress(prev *Reading, next Reading, status Status) Status {
	if prev == nil {
		return status
	}
	if status != StatusPending && status != StatusLowAccuracy {
		return status
	}
	if next.AccuracyMeters < prev.AccuracyMeters {
		return StatusImproving
	}
	return status
}

// CanCheckIn reports whether status allows a guard to check in. lowAccuracy
// is allowed but the client shows a warning.
func CanCheckIn(s Status) bool {
	switch s {
	case StatusExcellent, StatusVerified, StatusLowAccuracy:
		return true
	}
	return false
}

// ParseStatus converts a raw string to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := presentations[st]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown gps status %q", s)
}
