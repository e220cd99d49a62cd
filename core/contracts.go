package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Operation is the business unit of work supplied by the caller. It must be
// idempotent or safe to re-invoke: the executor does not roll back partial
// side effects of a failed attempt.
type Operation func(ctx context.Context) (any, error)

// RunContext carries correlation identifiers used purely for logging; it is
// never consulted for control flow.
type RunContext struct {
	CorrelationID string
	EventID       string
	EventType     string
	TenantID      string
}

func (c RunContext) Fields() map[string]any {
	fields := map[string]any{}
	if c.CorrelationID != "" {
		fields["correlation_id"] = c.CorrelationID
	}
	if c.EventID != "" {
		fields["event_id"] = c.EventID
	}
	if c.EventType != "" {
		fields["event_type"] = c.EventType
	}
	if c.TenantID != "" {
		fields["tenant_id"] = c.TenantID
	}
	return fields
}

type IdempotencyStore interface {
	Get(ctx context.Context, eventID string) (IdempotencyRecord, bool, error)
	// MarkProcessed is a conditional create-if-absent write; marking an
	// already-processed event is a no-op, not an error.
	MarkProcessed(ctx context.Context, eventID string) error
}

type DLQStore interface {
	Create(ctx context.Context, entry DLQEntry) (DLQEntry, error)
	Get(ctx context.Context, id string) (DLQEntry, bool, error)
	List(ctx context.Context, status string, limit int) ([]DLQEntry, error)
	MarkPendingRetry(ctx context.Context, id string) (DLQEntry, bool, error)
	MarkResolved(ctx context.Context, id string, resolution string, resolvedAt time.Time) (DLQEntry, bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

type StoreProvider interface {
	IdempotencyStore() IdempotencyStore
	DLQStore() DLQStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// JobExecutionMessage is the queue contract for background dead-letter work
// (replays, retention sweeps) dispatched through a go-job queue adapter.
type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

// JobNackDisposition names the outcome requested for a nacked delivery.
type JobNackDisposition string

const (
	JobNackRetry      JobNackDisposition = "retry"
	JobNackDeadLetter JobNackDisposition = "dead_letter"
	JobNackFailed     JobNackDisposition = "failed"
	JobNackCanceled   JobNackDisposition = "canceled"
)

type JobNackOptions struct {
	Disposition JobNackDisposition
	Delay       time.Duration
	Reason      string
}

// JobEnqueueReceipt carries queue acceptance metadata for a dispatched message.
type JobEnqueueReceipt struct {
	DispatchID string
	EnqueuedAt time.Time
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) (JobEnqueueReceipt, error)
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
