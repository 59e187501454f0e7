package samples_test

import (
	"context"
	"testing"
	"time"

	"securyflex/verification-service/internal/gps"
	"securyflex/verification-service/internal/samples"
)

func TestMemory_RememberAndExpire(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	m := samples.NewMemory(time.Minute, func() time.Time { return clock })

	prev, err := m.Previous(ctx, "guard-1", "job-1")
	if err != nil || prev != nil {
		t.Fatalf("Previous on empty cache = %v, %v; want nil, nil", prev, err)
	}

	if err := m.Remember(ctx, "guard-1", "job-1", gps.Reading{AccuracyMeters: 42}); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	prev, err = m.Previous(ctx, "guard-1", "job-1")
	if err != nil || prev == nil || prev.AccuracyMeters != 42 {
		t.Fatalf("Previous = %v, %v; want accuracy 42", prev, err)
	}

	// Other jobs of the same guard are independent.
	if other, _ := m.Previous(ctx, "guard-1", "job-2"); other != nil {
		t.Errorf("Previous(job-2) = %v, want nil", other)
	}

	clock = clock.Add(time.Minute)
	if prev, _ := m.Previous(ctx, "guard-1", "job-1"); prev != nil {
		t.Errorf("Previous after TTL = %v, want nil", prev)
	}
}

// Mutating the returned reading must not change the cached one.
func TestMemory_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := samples.NewMemory(time.Hour, nil)
	_ = m.Remember(ctx, "g", "j", gps.Reading{AccuracyMeters: 10})

	first, _ := m.Previous(ctx, "g", "j")
	first.AccuracyMeters = 99

	second, _ := m.Previous(ctx, "g", "j")
	if second.AccuracyMeters != 10 {
		t.Errorf("cached accuracy = %f, want 10", second.AccuracyMeters)
	}
}

func TestMemory_PurgeDropsUnreadExpiredEntries(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	m := samples.NewMemory(time.Minute, func() time.Time { return clock })

	_ = m.Remember(ctx, "guard-1", "job-1", gps.Reading{AccuracyMeters: 20})
	clock = clock.Add(30 * time.Second)
	_ = m.Remember(ctx, "guard-2", "job-1", gps.Reading{AccuracyMeters: 20})

	if n := m.Purge(); n != 0 {
		t.Errorf("Purge before expiry removed %d entries, want 0", n)
	}

	clock = clock.Add(30 * time.Second)
	if n := m.Purge(); n != 1 {
		t.Errorf("Purge removed %d entries, want 1", n)
	}
	if got := m.Len(); got != 1 {
		t.Errorf("Len after purge = %d, want 1", got)
	}

	clock = clock.Add(time.Minute)
	m.Purge()
	if got := m.Len(); got != 0 {
		t.Errorf("Len after second purge = %d, want 0", got)
	}
}
