package verification_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"securyflex/verification-service/internal/certificate"
	"securyflex/verification-service/internal/eligibility"
	"securyflex/verification-service/internal/events"
	"securyflex/verification-service/internal/gps"
	"securyflex/verification-service/internal/store"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func cert(id string, cat certificate.Category, holder string, issuedAgo, expiresIn time.Duration) certificate.Certificate {
	return certificate.Certificate{
		ID:             id,
		Category:       cat,
		HolderID:       holder,
		IssueDate:      testNow.Add(-issuedAgo),
		ExpirationDate: testNow.Add(expiresIn),
	}
}

type fakeCerts struct {
	certs []certificate.Certificate
	err   error
}

func (f *fakeCerts) ListByHolder(_ context.Context, holderID string) ([]certificate.Certificate, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []certificate.Certificate
	for _, c := range f.certs {
		if c.HolderID == holderID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListExpiringBetween selects [from, to], like the Postgres store.
func (f *fakeCerts) ListExpiringBetween(_ context.Context, from, to time.Time) ([]certificate.Certificate, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []certificate.Certificate
	for _, c := range f.certs {
		if !c.ExpirationDate.Before(from) && !c.ExpirationDate.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeJobs struct {
	reqs  map[string]eligibility.Requirements
	sites map[string]*store.Site
}

func (f *fakeJobs) Requirements(_ context.Context, jobID string) (eligibility.Requirements, error) {
	if _, ok := f.sites[jobID]; !ok {
		return nil, store.ErrJobNotFound
	}
	return f.reqs[jobID], nil
}

func (f *fakeJobs) Site(_ context.Context, jobID string) (*store.Site, error) {
	s, ok := f.sites[jobID]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	return s, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type brokenCache struct{}

func (brokenCache) Previous(context.Context, string, string) (*gps.Reading, error) {
	return nil, errors.New("redis down")
}

func (brokenCache) Remember(context.Context, string, string, gps.Reading) error {
	return errors.New("redis down")
}

func ptr(f float64) *float64 { return &f }
