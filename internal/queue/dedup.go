package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupGuard short-circuits broker redeliveries with a SETNX marker per
// processed event. It is best effort: the durable guarantee stays with the
// handlers (idempotent wallet creation, keyed refunds); losing Redis only
// costs the short-circuit.
type DedupGuard struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewDedupGuard(rdb redis.UniversalClient, ttl time.Duration) *DedupGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DedupGuard{rdb: rdb, ttl: ttl}
}

func (g *DedupGuard) key(topic, eventID string) string {
	return "consumed:" + topic + ":" + eventID
}

// Seen reports whether the event was already marked processed. Errors read
// as "not seen" so a Redis outage never blocks consumption.
func (g *DedupGuard) Seen(ctx context.Context, topic, eventID string) bool {
	if g == nil || g.rdb == nil || eventID == "" {
		return false
	}
	n, err := g.rdb.Exists(ctx, g.key(topic, eventID)).Result()
	return err == nil && n > 0
}

// Mark records the event as processed, after the handler succeeded.
func (g *DedupGuard) Mark(ctx context.Context, topic, eventID string) error {
	if g == nil || g.rdb == nil || eventID == "" {
		return nil
	}
	return g.rdb.SetNX(ctx, g.key(topic, eventID), 1, g.ttl).Err()
}
