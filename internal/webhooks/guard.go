package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type eventStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookEventKey(platform, eventID string) string
}

// EventGuard remembers delivered webhook event ids so platform retries are
// acknowledged without being processed twice.
type EventGuard struct {
	store eventStore
	ttl   time.Duration
}

// NewEventGuard builds a guard keeping event ids for ttl.
func NewEventGuard(store eventStore, ttl time.Duration) (*EventGuard, error) {
	if store == nil {
		return nil, errors.New("event store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &EventGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark reports whether the event was already seen, marking it seen
// otherwise.
func (g *EventGuard) CheckAndMark(ctx context.Context, platform, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.WebhookEventKey(platform, eventID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set webhook event key: %w", err)
	}
	return !set, nil
}

// Release forgets the event so a platform retry is processed again.
func (g *EventGuard) Release(ctx context.Context, platform, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.WebhookEventKey(platform, eventID))
}
