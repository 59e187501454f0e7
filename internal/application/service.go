package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"securyflex/verification-service/internal/eligibility"
	"securyflex/verification-service/internal/events"
)

// Application is the JSON shape returned to the gateway.
type Application struct {
	ID               string          `json:"id"`
	JobID            string          `json:"jobId"`
	GuardID          string          `json:"guardId"`
	CurrentStatus    string          `json:"currentStatus"`
	EligibilityScore float64         `json:"eligibilityScore"`
	HistoryLog       json.RawMessage `json:"historyLog"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// EligibilityFunc evaluates a guard against a job.
type EligibilityFunc func(ctx context.Context, guardID, jobID string) (*eligibility.Result, error)

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Service holds application business logic.
type Service struct {
	pool     *pgxpool.Pool
	pub      Publisher
	eligible EligibilityFunc
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now as the timestamp of history entries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a configured Service.
func NewService(pool *pgxpool.Pool, pub Publisher, eligible EligibilityFunc, opts ...Option) *Service {
	s := &Service{pool: pool, pub: pub, eligible: eligible, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// historyEntry renders a one-element JSON array to append to history_log.
// from is omitted for the initial PENDING entry.
func (s *Service) historyEntry(from, to Status, by string) string {
	entry := map[string]string{
		"to": string(to),
		"by": by,
		"at": s.now().UTC().Format(time.RFC3339),
	}
	if from != "" {
		entry["from"] = string(from)
	}
	b, _ := json.Marshal([]map[string]string{entry})
	return string(b)
}

const applicationColumns = `id, job_id, guard_id, current_status, eligibility_score, history_log, created_at, updated_at`

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	err := row.Scan(
		&a.ID, &a.JobID, &a.GuardID, &a.CurrentStatus, &a.EligibilityScore,
		&a.HistoryLog, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Apply creates a PENDING application of guardID for jobID.
// Returns *ValidationError listing the missing actions when the guard is not
// fully eligible, or when the guard already applied.
func (s *Service) Apply(ctx context.Context, guardID, jobID string) (*Application, error) {
	res, err := s.eligible(ctx, guardID, jobID)
	if err != nil {
		return nil, err
	}
	if !res.Eligible() {
		return nil, &ValidationError{Msg: "not eligible: " + strings.Join(res.ActionItems, "; ")}
	}

	a, err := scanApplication(s.pool.QueryRow(ctx,
		`INSERT INTO applications (id, job_id, guard_id, current_status, eligibility_score, history_log)
		 VALUES ($1, $2, $3, 'PENDING', $4, $5::jsonb)
		 ON CONFLICT (job_id, guard_id) DO NOTHING
		 RETURNING `+applicationColumns,
		uuid.NewString(), jobID, guardID, res.EligibilityScore, s.historyEntry("", StatusPending, guardID),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ValidationError{Msg: "already applied to this job"}
	}
	if err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	s.publishMoved(ctx, guardID, a, "")
	return a, nil
}

// Move transitions an application to a new status on behalf of actorID.
// The guard who applied may only withdraw; every other move belongs to the
// company that posted the job.
// Returns ErrNotFound if the application does not exist or is not visible to
// actorID, and *ValidationError if the transition is rejected.
func (s *Service) Move(ctx context.Context, actorID, appID, newStatusStr string) (*Application, error) {
	newStatus, err := ParseStatus(newStatusStr)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	var currentStatusStr, guardID, companyID string
	err = s.pool.QueryRow(ctx,
		`SELECT a.current_status, a.guard_id, j.company_id
		 FROM applications a
		 JOIN jobs j ON j.id = a.job_id
		 WHERE a.id = $1`,
		appID,
	).Scan(&currentStatusStr, &guardID, &companyID)
	if err != nil {
		return nil, ErrNotFound
	}

	switch actorID {
	case guardID:
		if !GuardMay(newStatus) {
			return nil, &ValidationError{Msg: fmt.Sprintf("guards may not move an application to %s", newStatus)}
		}
	case companyID:
		if GuardMay(newStatus) {
			return nil, &ValidationError{Msg: "only the applicant can withdraw"}
		}
	default:
		return nil, ErrNotFound
	}

	currentStatus, _ := ParseStatus(currentStatusStr)
	if !IsTransitionAllowed(currentStatus, newStatus) {
		return nil, &ValidationError{
			Msg: fmt.Sprintf("transition %s → %s is not allowed", currentStatus, newStatus),
		}
	}

	// The status predicate makes concurrent moves lose cleanly.
	a, err := scanApplication(s.pool.QueryRow(ctx,
		`UPDATE applications
		 SET current_status = $1::application_status,
		     history_log    = history_log || $2::jsonb,
		     updated_at     = NOW()
		 WHERE id = $3 AND current_status = $4::application_status
		 RETURNING `+applicationColumns,
		string(newStatus), s.historyEntry(currentStatus, newStatus, actorID), appID, string(currentStatus),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ValidationError{Msg: "application changed concurrently, retry"}
	}
	if err != nil {
		return nil, fmt.Errorf("move update: %w", err)
	}

	s.publishMoved(ctx, actorID, a, currentStatus)
	return a, nil
}

func (s *Service) publishMoved(ctx context.Context, actorID string, a *Application, from Status) {
	payload := map[string]any{
		"applicationId": a.ID,
		"jobId":         a.JobID,
		"guardId":       a.GuardID,
		"to":            a.CurrentStatus,
	}
	if from != "" {
		payload["from"] = string(from)
	}
	err := s.pub.Publish(ctx, events.Event{
		Type:       events.TypeApplicationMoved,
		UserID:     actorID,
		OccurredAt: a.UpdatedAt,
		Payload:    payload,
	})
	if err != nil {
		slog.Warn("publish EVENT_APPLICATION_MOVED failed", "applicationId", a.ID, "err", err)
	}
}

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrNotFound is returned when an application is missing or not visible to the caller.
var ErrNotFound = errors.New("application not found")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
