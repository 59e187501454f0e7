// Package events publishes domain events to Redis pub/sub for the gateway's
// SSE fan-out.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types. Each is also the Redis channel it is published on.
const (
	TypeEligibilityChecked  = "EVENT_ELIGIBILITY_CHECKED"
	TypeCheckInVerified     = "EVENT_CHECKIN_VERIFIED"
	TypeMockLocation        = "EVENT_MOCK_LOCATION"
	TypeCertificateExpiring = "EVENT_CERTIFICATE_EXPIRING"
	TypeApplicationMoved    = "EVENT_APPLICATION_MOVED"
)

// Event is the envelope published on the channel named by Type.
type Event struct {
	Type       string         `json:"type"`
	UserID     string         `json:"userId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// RedisPublisher publishes events with PUBLISH.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher returns a publisher on rdb.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// Publish encodes e as JSON and publishes it on channel e.Type.
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Type, err)
	}
	if err := p.rdb.Publish(ctx, e.Type, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}
