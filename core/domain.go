package core

import (
	"fmt"
	"strings"
	"time"
)

// WebhookEvent is the unit of intake. The payload is opaque to this module;
// callers extract tenant/actor identifiers for diagnostics before handing the
// event over. Immutable once received.
type WebhookEvent struct {
	EventID   string
	EventType string
	Payload   []byte
	TenantID  string
	ActorID   string
}

func (e WebhookEvent) Validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("core: event id is required")
	}
	if strings.TrimSpace(e.EventType) == "" {
		return fmt.Errorf("core: event type is required")
	}
	return nil
}

// IdempotencyStatusProcessed is the only status the guard treats as
// "already done". Any other value, and the absence of a record, mean the
// event is still eligible for processing.
const IdempotencyStatusProcessed = "processed"

type IdempotencyRecord struct {
	EventID     string
	Status      string
	ProcessedAt time.Time
}

func (r IdempotencyRecord) Processed() bool {
	return strings.EqualFold(strings.TrimSpace(r.Status), IdempotencyStatusProcessed)
}

// ProcessingAttempt records one execution attempt, including the first.
// The sequence is append-only and ordered by execution.
type ProcessingAttempt struct {
	Attempt      int       `json:"attempt"`
	Timestamp    time.Time `json:"timestamp"`
	ErrorMessage string    `json:"error_message"`
	ErrorKind    string    `json:"error_kind"`
	Transient    bool      `json:"transient"`
}

// RetryOutcome is produced once per executor invocation and consumed
// in-process by the caller; it is never persisted directly.
type RetryOutcome struct {
	Success    bool
	Result     any
	Err        error
	RetryCount int
	History    []ProcessingAttempt
}

const (
	DLQStatusExhausted        = "exhausted"
	DLQStatusPendingRetry     = "pending_retry"
	DLQStatusManuallyResolved = "manually_resolved"
)

// CanTransitionDLQStatus reports whether a dead-letter entry may move from
// one status to another. The only backward move is exhausted -> pending_retry
// (operator requested a replay); manually_resolved is terminal.
func CanTransitionDLQStatus(from string, to string) bool {
	from = strings.TrimSpace(strings.ToLower(from))
	to = strings.TrimSpace(strings.ToLower(to))
	switch from {
	case DLQStatusExhausted:
		return to == DLQStatusPendingRetry || to == DLQStatusManuallyResolved
	case DLQStatusPendingRetry:
		return to == DLQStatusManuallyResolved
	default:
		return false
	}
}

// DLQEntry is the durable record of a terminally failed webhook. Created once
// on terminal failure and mutated only by the pending_retry and
// manually_resolved transitions; the store's expiration mechanism is the only
// deletion path.
type DLQEntry struct {
	ID            string
	EventID       string
	EventType     string
	Payload       []byte
	TenantID      string
	ActorID       string
	FailureReason string
	FailureStack  string
	RetryCount    int
	MaxRetries    int
	FirstFailedAt time.Time
	LastFailedAt  time.Time
	Status        string
	History       []ProcessingAttempt
	Resolution    string
	ResolvedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ExpiresAt     time.Time
}

func (e DLQEntry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("core: dlq entry id is required")
	}
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("core: dlq entry event id is required")
	}
	if strings.TrimSpace(e.Status) == "" {
		return fmt.Errorf("core: dlq entry status is required")
	}
	if len(e.History) != e.RetryCount+1 {
		return fmt.Errorf(
			"core: dlq entry history length %d does not match retry count %d",
			len(e.History),
			e.RetryCount,
		)
	}
	return nil
}

func CloneHistory(history []ProcessingAttempt) []ProcessingAttempt {
	if len(history) == 0 {
		return nil
	}
	out := make([]ProcessingAttempt, len(history))
	copy(out, history)
	return out
}

func ClonePayload(payload []byte) []byte {
	if len(payload) == 0 {
		return nil
	}
	return append([]byte(nil), payload...)
}
