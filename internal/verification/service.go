// Package verification contains the business logic of the verification
// service: certificate validity, job eligibility and GPS check-in
// verification. It is transport-agnostic: used by the HTTP handler and the
// gRPC server (grpcserver package).
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"securyflex/verification-service/internal/certificate"
	"securyflex/verification-service/internal/config"
	"securyflex/verification-service/internal/eligibility"
	"securyflex/verification-service/internal/events"
	"securyflex/verification-service/internal/gps"
	"securyflex/verification-service/internal/store"
)

// ─── Capabilities ─────────────────────────────────────────────────────────────

// CertificateStore reads registered certificates.
type CertificateStore interface {
	ListByHolder(ctx context.Context, holderID string) ([]certificate.Certificate, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]certificate.Certificate, error)
}

// JobStore reads job requirements and geofences. Both methods return
// store.ErrJobNotFound for unknown jobs.
type JobStore interface {
	Requirements(ctx context.Context, jobID string) (eligibility.Requirements, error)
	Site(ctx context.Context, jobID string) (*store.Site, error)
}

// SampleCache remembers the previous location sample of a guard at a job.
type SampleCache interface {
	Previous(ctx context.Context, guardID, jobID string) (*gps.Reading, error)
	Remember(ctx context.Context, guardID, jobID string, r gps.Reading) error
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Service encapsulates all verification business logic.
// It has no dependency on net/http and is shared by the HTTP and gRPC layers.
type Service struct {
	certs      CertificateStore
	jobs       JobStore
	samples    SampleCache
	pub        Publisher
	policy     *config.Policy
	classifier *gps.Classifier
	validate   *validator.Validate
	now        func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now as the reference time of every decision.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a configured Service.
func NewService(certs CertificateStore, jobs JobStore, samples SampleCache, pub Publisher, policy *config.Policy, opts ...Option) (*Service, error) {
	if policy == nil {
		policy = config.DefaultPolicy()
	}
	classifier, err := gps.NewClassifier(policy.GPS)
	if err != nil {
		return nil, fmt.Errorf("gps classifier: %w", err)
	}

	s := &Service{
		certs:      certs,
		jobs:       jobs,
		samples:    samples,
		pub:        pub,
		policy:     policy,
		classifier: classifier,
		validate:   validator.New(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ─── Certificates ─────────────────────────────────────────────────────────────

// CertificateValidity evaluates every certificate of holderID.
func (s *Service) CertificateValidity(ctx context.Context, holderID string) ([]certificate.Assessment, error) {
	certs, err := s.certs.ListByHolder(ctx, holderID)
	if err != nil {
		return nil, fmt.Errorf("certificateValidity: %w", err)
	}

	now := s.now().UTC()
	out := make([]certificate.Assessment, 0, len(certs))
	for _, c := range certs {
		a, err := certificate.Assess(c, now, s.policy.WarningWindow)
		if err != nil {
			return nil, fmt.Errorf("certificateValidity: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// SweepExpiring publishes EVENT_CERTIFICATE_EXPIRING for every certificate
// that expires within the warning window. It returns the number of events
// published.
func (s *Service) SweepExpiring(ctx context.Context) (int, error) {
	now := s.now().UTC()
	certs, err := s.certs.ListExpiringBetween(ctx, now, now.Add(s.policy.WarningWindow))
	if err != nil {
		return 0, fmt.Errorf("sweepExpiring: %w", err)
	}

	published := 0
	for _, c := range certs {
		a, err := certificate.Assess(c, now, s.policy.WarningWindow)
		if err != nil {
			slog.Warn("skipping certificate with invalid range", "certificateId", c.ID, "err", err)
			continue
		}
		err = s.pub.Publish(ctx, events.Event{
			Type:       events.TypeCertificateExpiring,
			UserID:     c.HolderID,
			OccurredAt: now,
			Payload: map[string]any{
				"certificateId":  c.ID,
				"category":       string(c.Category),
				"expirationDate": c.ExpirationDate.Format(time.RFC3339),
				"daysRemaining":  a.DaysRemaining,
			},
		})
		if err != nil {
			slog.Warn("publish EVENT_CERTIFICATE_EXPIRING failed", "certificateId", c.ID, "err", err)
			continue
		}
		published++
	}
	return published, nil
}

// ─── Eligibility ──────────────────────────────────────────────────────────────

// EligibilityReport is the outcome of one eligibility evaluation.
type EligibilityReport struct {
	EvaluationID string `json:"evaluationId"`
	HolderID     string `json:"holderId"`
	JobID        string `json:"jobId"`
	Eligible     bool   `json:"eligible"`
	*eligibility.Result
}

// CheckEligibility matches the certificates of holderID against the
// requirements of jobID.
// Returns ErrNotFound if the job does not exist.
func (s *Service) CheckEligibility(ctx context.Context, holderID, jobID string) (*EligibilityReport, error) {
	reqs, err := s.jobs.Requirements(ctx, jobID)
	if err != nil {
		return nil, mapStoreError("checkEligibility", err)
	}
	certs, err := s.certs.ListByHolder(ctx, holderID)
	if err != nil {
		return nil, fmt.Errorf("checkEligibility: %w", err)
	}

	res, err := eligibility.Match(reqs, certs, s.now().UTC(), eligibility.WithWarningWindow(s.policy.WarningWindow))
	if err != nil {
		return nil, fmt.Errorf("checkEligibility: %w", err)
	}

	report := &EligibilityReport{
		EvaluationID: uuid.NewString(),
		HolderID:     holderID,
		JobID:        jobID,
		Eligible:     res.Eligible(),
		Result:       res,
	}

	// Publish for the company dashboard (non-fatal).
	err = s.pub.Publish(ctx, events.Event{
		Type:       events.TypeEligibilityChecked,
		UserID:     holderID,
		OccurredAt: res.CheckedAt,
		Payload: map[string]any{
			"evaluationId":     report.EvaluationID,
			"jobId":            jobID,
			"eligible":         report.Eligible,
			"eligibilityScore": res.EligibilityScore,
		},
	})
	if err != nil {
		slog.Warn("publish EVENT_ELIGIBILITY_CHECKED failed", "err", err)
	}

	return report, nil
}

// ─── GPS check-in ─────────────────────────────────────────────────────────────

// Sample is one location sample sent by a guard's device.
type Sample struct {
	AccuracyMeters *float64  `json:"accuracyMeters"`
	DistanceMeters *float64  `json:"distanceMeters,omitempty" validate:"omitempty,gte=0"`
	Latitude       *float64  `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude      *float64  `json:"longitude,omitempty" validate:"omitempty,longitude"`
	IsMock         bool      `json:"isMock"`
	Disabled       bool      `json:"disabled"`
	Timestamp      time.Time `json:"timestamp"`
}

// CheckInDecision is the verdict on a check-in attempt.
//
// Status is the stateless classification and decides CanCheckIn.
// DisplayStatus additionally carries the improving label derived from the
// previous sample and is what clients render.
type CheckInDecision struct {
	GuardID          string      `json:"guardId"`
	JobID            string      `json:"jobId"`
	Status           gps.Status  `json:"status"`
	DisplayStatus    gps.Status  `json:"displayStatus"`
	CanCheckIn       bool        `json:"canCheckIn"`
	Warning          bool        `json:"warning"`
	AccuracyMeters   float64     `json:"accuracyMeters"`
	DistanceMeters   *float64    `json:"distanceMeters,omitempty"`
	SiteRadiusMeters float64     `json:"siteRadiusMeters"`
	Display          gps.Display `json:"display"`
	CheckedAt        time.Time   `json:"checkedAt"`
}

// VerifyLocation classifies a check-in sample of guardID at jobID.
// Returns ErrNotFound if the job does not exist and *ValidationError for a
// malformed sample.
func (s *Service) VerifyLocation(ctx context.Context, guardID, jobID string, sample Sample) (*CheckInDecision, error) {
	if err := s.validateSample(sample); err != nil {
		return nil, err
	}

	site, err := s.jobs.Site(ctx, jobID)
	if err != nil {
		return nil, mapStoreError("verifyLocation", err)
	}

	now := s.now().UTC()
	radius := s.policy.DefaultSiteRadiusMeters
	if site.RadiusMeters != nil && *site.RadiusMeters > 0 {
		radius = *site.RadiusMeters
	}

	decision := &CheckInDecision{
		GuardID:          guardID,
		JobID:            jobID,
		SiteRadiusMeters: radius,
		CheckedAt:        now,
	}

	if sample.Disabled {
		decision.Status = gps.StatusDisabled
		decision.DisplayStatus = gps.StatusDisabled
		decision.Display = gps.Presentation(gps.StatusDisabled)
		return decision, nil
	}

	reading := gps.Reading{
		AccuracyMeters: *sample.AccuracyMeters,
		DistanceMeters: distanceToSite(sample, site),
		IsMock:         sample.IsMock,
		Timestamp:      sample.Timestamp,
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = now
	}

	status := s.classifier.ClassifyReading(reading, radius)

	prev, err := s.samples.Previous(ctx, guardID, jobID)
	if err != nil {
		slog.Warn("previous sample lookup failed", "guardId", guardID, "jobId", jobID, "err", err)
		prev = nil
	}
	display := gps.Progress(prev, reading, status)

	// Mock readings never seed the improving comparison.
	if status != gps.StatusMockLocation {
		if err := s.samples.Remember(ctx, guardID, jobID, reading); err != nil {
			slog.Warn("remember sample failed", "guardId", guardID, "jobId", jobID, "err", err)
		}
	}

	decision.Status = status
	decision.AccuracyMeters = reading.AccuracyMeters
	decision.DisplayStatus = display
	decision.CanCheckIn = gps.CanCheckIn(status)
	decision.DistanceMeters = reading.DistanceMeters
	decision.Display = gps.Presentation(display)
	decision.Warning = gps.Presentation(status).Warning

	s.publishCheckIn(ctx, decision)
	return decision, nil
}

func (s *Service) publishCheckIn(ctx context.Context, d *CheckInDecision) {
	var eventType string
	switch {
	case d.Status == gps.StatusMockLocation:
		eventType = events.TypeMockLocation
	case d.CanCheckIn:
		eventType = events.TypeCheckInVerified
	default:
		return
	}

	payload := map[string]any{
		"jobId":          d.JobID,
		"status":         string(d.Status),
		"accuracyMeters": d.AccuracyMeters,
	}
	if d.DistanceMeters != nil {
		payload["distanceMeters"] = *d.DistanceMeters
	}
	err := s.pub.Publish(ctx, events.Event{
		Type:       eventType,
		UserID:     d.GuardID,
		OccurredAt: d.CheckedAt,
		Payload:    payload,
	})
	if err != nil {
		slog.Warn("publish check-in event failed", "type", eventType, "err", err)
	}
}

func (s *Service) validateSample(sample Sample) error {
	if err := s.validate.Struct(sample); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return &ValidationError{Msg: "invalid sample: " + strings.Join(fields, ", ")}
		}
		return &ValidationError{Msg: "invalid sample: " + err.Error()}
	}
	if sample.AccuracyMeters == nil && !sample.Disabled {
		return &ValidationError{Msg: "invalid sample: accuracyMeters is required"}
	}
	if (sample.Latitude == nil) != (sample.Longitude == nil) {
		return &ValidationError{Msg: "invalid sample: latitude and longitude must be sent together"}
	}
	return nil
}

// distanceToSite prefers a distance computed on the device and otherwise
// derives it from the sample coordinates and the site center.
func distanceToSite(sample Sample, site *store.Site) *float64 {
	if sample.DistanceMeters != nil {
		d := *sample.DistanceMeters
		return &d
	}
	if sample.Latitude == nil || sample.Longitude == nil || site.Center == nil {
		return nil
	}
	d := gps.DistanceMeters(gps.Coordinate{Latitude: *sample.Latitude, Longitude: *sample.Longitude}, *site.Center)
	return &d
}

func mapStoreError(op string, err error) error {
	if errors.Is(err, store.ErrJobNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
