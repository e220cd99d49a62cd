// Package idempotency contains the read-only guard that prevents
// reprocessing of already-completed webhook events.
package idempotency

import (
	"context"
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

// Guard answers "was this event already processed?". It never writes: the
// processed marker is recorded by the caller after a successful execution,
// keeping the guard reusable across business operations.
type Guard struct {
	store  core.IdempotencyStore
	logger core.Logger
}

func NewGuard(store core.IdempotencyStore, logger core.Logger) *Guard {
	return &Guard{
		store:  store,
		logger: core.EnsureLogger(logger),
	}
}

// IsProcessed returns true only when a record exists with status processed.
// A store read failure reads as "not processed": the guard fails open so a
// store outage cannot silently drop events, trading exactness for safety.
// The failure is logged as a warning since it usually means duplicate work.
func (g *Guard) IsProcessed(ctx context.Context, eventID string) bool {
	if g == nil || g.store == nil {
		return false
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false
	}

	record, found, err := g.store.Get(ctx, eventID)
	if err != nil {
		core.LogWithFields(ctx, g.logger, "warn", "idempotency lookup failed, treating event as unprocessed", map[string]any{
			"event_id": eventID,
			"error":    err.Error(),
		})
		return false
	}
	if !found {
		return false
	}
	return record.Processed()
}
