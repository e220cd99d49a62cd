package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-webhooks/core"
)

type idempotencyKeyRecord struct {
	bun.BaseModel `bun:"table:webhook_idempotency_keys,alias:wik"`

	EventID     string    `bun:"event_id,pk"`
	Status      string    `bun:"status,notnull"`
	ProcessedAt time.Time `bun:"processed_at,nullzero,notnull,default:current_timestamp"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type dlqEntryRecord struct {
	bun.BaseModel `bun:"table:webhook_dlq_entries,alias:wde"`

	ID                string                   `bun:"id,pk"`
	EventID           string                   `bun:"event_id,notnull"`
	EventType         string                   `bun:"event_type,notnull"`
	Payload           []byte                   `bun:"payload,notnull"`
	TenantID          string                   `bun:"tenant_id"`
	ActorID           string                   `bun:"actor_id"`
	FailureReason     string                   `bun:"failure_reason,notnull"`
	FailureStack      string                   `bun:"failure_stack"`
	RetryCount        int                      `bun:"retry_count,notnull"`
	MaxRetries        int                      `bun:"max_retries,notnull"`
	FirstFailedAt     time.Time                `bun:"first_failed_at,nullzero,notnull"`
	LastFailedAt      time.Time                `bun:"last_failed_at,nullzero,notnull"`
	Status            string                   `bun:"status,notnull"`
	ProcessingHistory []core.ProcessingAttempt `bun:"processing_history,type:jsonb,notnull"`
	Resolution        string                   `bun:"resolution"`
	ResolvedAt        *time.Time               `bun:"resolved_at,nullzero"`
	CreatedAt         time.Time                `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time                `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	ExpiresAt         time.Time                `bun:"expires_at,nullzero,notnull"`
}
