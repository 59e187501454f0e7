// Package store reads certificates and job requirements from PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"securyflex/verification-service/internal/certificate"
	"securyflex/verification-service/internal/eligibility"
	"securyflex/verification-service/internal/gps"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("job not found")

// Site is the geofence of a job.
type Site struct {
	JobID        string          `json:"jobId"`
	CompanyID    string          `json:"companyId"`
	Center       *gps.Coordinate `json:"center,omitempty"`
	RadiusMeters *float64        `json:"radiusMeters,omitempty"`
}

// Postgres implements the certificate and job stores on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a store backed by pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const certificateColumns = `id, holder_id, category, issuing_authority, issue_date, expiration_date, authorizations`

// ListByHolder returns the non-revoked certificates of holderID.
func (p *Postgres) ListByHolder(ctx context.Context, holderID string) ([]certificate.Certificate, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+certificateColumns+`
		 FROM certificates
		 WHERE holder_id = $1 AND revoked_at IS NULL
		 ORDER BY expiration_date DESC`,
		holderID,
	)
	if err != nil {
		return nil, fmt.Errorf("listByHolder query: %w", err)
	}
	return collectCertificates(rows)
}

// expiringBetweenQuery selects the closed interval [$1, $2], matching
// certificate.Evaluate, where expiring exactly at now+window is expiring soon.
const expiringBetweenQuery = `SELECT ` + certificateColumns + `
	 FROM certificates
	 WHERE revoked_at IS NULL
	   AND expiration_date >= $1 AND expiration_date <= $2
	 ORDER BY expiration_date`

// ListExpiringBetween returns non-revoked certificates whose expiration date
// falls in [from, to].
func (p *Postgres) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]certificate.Certificate, error) {
	rows, err := p.pool.Query(ctx, expiringBetweenQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("listExpiringBetween query: %w", err)
	}
	return collectCertificates(rows)
}

func collectCertificates(rows pgx.Rows) ([]certificate.Certificate, error) {
	defer rows.Close()

	certs := make([]certificate.Certificate, 0)
	for rows.Next() {
		var (
			c        certificate.Certificate
			category string
		)
		if err := rows.Scan(
			&c.ID, &c.HolderID, &category, &c.IssuingAuthority,
			&c.IssueDate, &c.ExpirationDate, &c.Authorizations,
		); err != nil {
			return nil, fmt.Errorf("certificate scan: %w", err)
		}
		cat, err := certificate.ParseCategory(category)
		if err != nil {
			return nil, fmt.Errorf("certificate %s: %w", c.ID, err)
		}
		c.Category = cat
		certs = append(certs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("certificate rows: %w", err)
	}
	return certs, nil
}

// Requirements returns the certificate requirements of jobID.
// Returns ErrJobNotFound if the job does not exist.
func (p *Postgres) Requirements(ctx context.Context, jobID string) (eligibility.Requirements, error) {
	if _, err := p.Site(ctx, jobID); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx,
		`SELECT requirement, acceptable_refs FROM job_requirements WHERE job_id = $1`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("requirements query: %w", err)
	}
	defer rows.Close()

	reqs := make(eligibility.Requirements)
	for rows.Next() {
		var (
			name string
			refs []string
		)
		if err := rows.Scan(&name, &refs); err != nil {
			return nil, fmt.Errorf("requirements scan: %w", err)
		}
		list := make([]eligibility.CertRef, 0, len(refs))
		for _, r := range refs {
			list = append(list, eligibility.CertRef(r))
		}
		reqs[name] = list
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("requirements rows: %w", err)
	}
	return reqs, nil
}

// Site returns the geofence of jobID.
// Returns ErrJobNotFound if the job does not exist.
func (p *Postgres) Site(ctx context.Context, jobID string) (*Site, error) {
	var (
		s        = Site{JobID: jobID}
		lat, lng *float64
	)
	err := p.pool.QueryRow(ctx,
		`SELECT company_id, site_latitude, site_longitude, site_radius_meters
		 FROM jobs WHERE id = $1`,
		jobID,
	).Scan(&s.CompanyID, &lat, &lng, &s.RadiusMeters)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("site query: %w", err)
	}
	if lat != nil && lng != nil {
		s.Center = &gps.Coordinate{Latitude: *lat, Longitude: *lng}
	}
	return &s, nil
}
