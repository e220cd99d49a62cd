// Package dlq contains the dead-letter queue manager: durable escalation of
// terminally failed webhooks and the operator replay/resolution workflow.
package dlq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-webhooks/core"
)

// replayEnvelope is the serialized form of the original event, stored
// verbatim on the entry so an operator replay reconstructs exactly what the
// payload source delivered.
type replayEnvelope struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Payload   []byte `json:"payload"`
	TenantID  string `json:"tenant_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
}

type Manager struct {
	store      core.DLQStore
	logger     core.Logger
	maxRetries int
	listLimit  int
	retention  time.Duration
	now        func() time.Time
}

func NewManager(store core.DLQStore, cfg core.Config, logger core.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("dlq: store is required")
	}
	retention := cfg.DLQ.Retention()
	if retention <= 0 {
		retention = time.Duration(core.DefaultRetentionDays) * 24 * time.Hour
	}
	listLimit := cfg.DLQ.ListLimit
	if listLimit <= 0 {
		listLimit = core.DefaultListLimit
	}
	return &Manager{
		store:      store,
		logger:     core.EnsureLogger(logger),
		maxRetries: cfg.Retry.MaxRetries,
		listLimit:  listLimit,
		retention:  retention,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// WithNow overrides the manager clock. Test seam.
func (m *Manager) WithNow(now func() time.Time) *Manager {
	if m != nil && now != nil {
		m.now = now
	}
	return m
}

// Add persists a terminal failure as a new dead-letter entry. The entry id is
// derived from the event id and creation time so repeated escalations of the
// same event (for example a failed replay) produce distinct entries and the
// audit trail is never overwritten.
func (m *Manager) Add(
	ctx context.Context,
	event core.WebhookEvent,
	cause error,
	retryCount int,
	history []core.ProcessingAttempt,
) (core.DLQEntry, error) {
	if m == nil || m.store == nil {
		return core.DLQEntry{}, fmt.Errorf("dlq: manager is not configured")
	}
	if err := event.Validate(); err != nil {
		return core.DLQEntry{}, err
	}

	now := m.clock()
	firstFailedAt := now
	if len(history) > 0 && !history[0].Timestamp.IsZero() {
		firstFailedAt = history[0].Timestamp.UTC()
	}

	failureReason := "unknown failure"
	failureStack := ""
	if cause != nil {
		failureReason = cause.Error()
		if root := errors.Unwrap(cause); root != nil {
			failureStack = root.Error()
		}
	}

	envelope, err := json.Marshal(replayEnvelope{
		EventID:   event.EventID,
		EventType: event.EventType,
		Payload:   event.Payload,
		TenantID:  event.TenantID,
		ActorID:   event.ActorID,
	})
	if err != nil {
		return core.DLQEntry{}, fmt.Errorf("dlq: serialize replay payload: %w", err)
	}

	entry := core.DLQEntry{
		ID:            deriveEntryID(event.EventID, now),
		EventID:       event.EventID,
		EventType:     event.EventType,
		Payload:       envelope,
		TenantID:      event.TenantID,
		ActorID:       event.ActorID,
		FailureReason: failureReason,
		FailureStack:  failureStack,
		RetryCount:    retryCount,
		MaxRetries:    m.maxRetries,
		FirstFailedAt: firstFailedAt,
		LastFailedAt:  now,
		Status:        core.DLQStatusExhausted,
		History:       core.CloneHistory(history),
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(m.retention),
	}

	created, err := m.store.Create(ctx, entry)
	if err != nil {
		return core.DLQEntry{}, fmt.Errorf("dlq: persist entry: %w", err)
	}

	// Primary operational signal: this line is what alerting keys on.
	core.LogWithFields(ctx, m.logger, "error", "webhook moved to dead letter queue", map[string]any{
		"dlq_entry_id":   created.ID,
		"event_id":       created.EventID,
		"event_type":     created.EventType,
		"tenant_id":      created.TenantID,
		"failure_reason": created.FailureReason,
		"retry_count":    created.RetryCount,
		"max_retries":    created.MaxRetries,
	})

	return created, nil
}

// List returns entries matching the status filter, most-recently-failed
// first. Listing is an operator convenience: a store failure logs and yields
// an empty slice instead of propagating.
func (m *Manager) List(ctx context.Context, status string, limit int) []core.DLQEntry {
	if m == nil || m.store == nil {
		return []core.DLQEntry{}
	}
	status = strings.TrimSpace(strings.ToLower(status))
	if status == "" {
		status = core.DLQStatusExhausted
	}
	if limit <= 0 {
		limit = m.listLimit
	}

	entries, err := m.store.List(ctx, status, limit)
	if err != nil {
		core.LogWithFields(ctx, m.logger, "error", "dead letter listing failed", map[string]any{
			"status": status,
			"limit":  limit,
			"error":  err.Error(),
		})
		return []core.DLQEntry{}
	}
	if entries == nil {
		entries = []core.DLQEntry{}
	}
	return entries
}

// GetForRetry fetches an entry's original event for replay and marks the
// entry pending_retry so concurrent operators see the claim. The read is
// idempotent: calling again before resolution still returns the payload and
// never reverts the status. A missing id reports found=false, not an error.
func (m *Manager) GetForRetry(ctx context.Context, entryID string) (core.WebhookEvent, bool, error) {
	if m == nil || m.store == nil {
		return core.WebhookEvent{}, false, fmt.Errorf("dlq: manager is not configured")
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return core.WebhookEvent{}, false, fmt.Errorf("dlq: entry id is required")
	}

	entry, found, err := m.store.Get(ctx, entryID)
	if err != nil {
		return core.WebhookEvent{}, false, fmt.Errorf("dlq: load entry: %w", err)
	}
	if !found {
		return core.WebhookEvent{}, false, nil
	}
	if entry.Status == core.DLQStatusManuallyResolved {
		return core.WebhookEvent{}, false, goerrors.New(
			"dlq: entry is already resolved",
			goerrors.CategoryConflict,
		).WithTextCode(core.WebhookErrorInvalidTransition)
	}

	event, err := decodeReplayEnvelope(entry)
	if err != nil {
		return core.WebhookEvent{}, false, err
	}

	if entry.Status == core.DLQStatusExhausted {
		if _, _, err := m.store.MarkPendingRetry(ctx, entryID); err != nil {
			return core.WebhookEvent{}, false, fmt.Errorf("dlq: mark pending retry: %w", err)
		}
		core.LogWithFields(ctx, m.logger, "info", "dead letter entry claimed for replay", map[string]any{
			"dlq_entry_id": entryID,
			"event_id":     event.EventID,
			"event_type":   event.EventType,
		})
	}

	return event, true, nil
}

// Resolve permanently closes an entry with the operator-supplied resolution
// text. Valid from exhausted or pending_retry; this is the only path that
// closes an incident.
func (m *Manager) Resolve(ctx context.Context, entryID string, resolution string) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("dlq: manager is not configured")
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return fmt.Errorf("dlq: entry id is required")
	}
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return fmt.Errorf("dlq: resolution text is required")
	}

	resolvedAt := m.clock()
	entry, found, err := m.store.MarkResolved(ctx, entryID, resolution, resolvedAt)
	if err != nil {
		return fmt.Errorf("dlq: resolve entry: %w", err)
	}
	if !found {
		return goerrors.New(
			fmt.Sprintf("dlq: entry %q not found or already resolved", entryID),
			goerrors.CategoryNotFound,
		).WithTextCode(core.WebhookErrorEntryNotFound)
	}

	core.LogWithFields(ctx, m.logger, "info", "dead letter entry resolved", map[string]any{
		"dlq_entry_id": entry.ID,
		"event_id":     entry.EventID,
		"resolution":   resolution,
	})
	return nil
}

// PurgeExpired removes entries past their retention horizon. Invoked by the
// background sweep job; stores with native TTL support may make this a no-op.
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	if m == nil || m.store == nil {
		return 0, fmt.Errorf("dlq: manager is not configured")
	}
	purged, err := m.store.PurgeExpired(ctx, m.clock())
	if err != nil {
		return 0, fmt.Errorf("dlq: purge expired entries: %w", err)
	}
	if purged > 0 {
		core.LogWithFields(ctx, m.logger, "info", "expired dead letter entries purged", map[string]any{
			"purged": purged,
		})
	}
	return purged, nil
}

func (m *Manager) clock() time.Time {
	if m != nil && m.now != nil {
		return m.now().UTC()
	}
	return time.Now().UTC()
}

// Nanosecond resolution keeps ids unique when the same event escalates
// twice in quick succession, e.g. a failed replay.
func deriveEntryID(eventID string, createdAt time.Time) string {
	return fmt.Sprintf("dlq_%s_%d", strings.TrimSpace(eventID), createdAt.UnixNano())
}

func decodeReplayEnvelope(entry core.DLQEntry) (core.WebhookEvent, error) {
	var envelope replayEnvelope
	if err := json.Unmarshal(entry.Payload, &envelope); err != nil {
		return core.WebhookEvent{}, fmt.Errorf("dlq: decode replay payload for %s: %w", entry.ID, err)
	}
	event := core.WebhookEvent{
		EventID:   envelope.EventID,
		EventType: envelope.EventType,
		Payload:   envelope.Payload,
		TenantID:  envelope.TenantID,
		ActorID:   envelope.ActorID,
	}
	if event.EventID == "" {
		event.EventID = entry.EventID
	}
	if event.EventType == "" {
		event.EventType = entry.EventType
	}
	return event, nil
}
