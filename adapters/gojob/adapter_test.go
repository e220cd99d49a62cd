package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-webhooks/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

func TestReplayJobMessage(t *testing.T) {
	msg, err := ReplayJobMessage(" dlq_evt_1_1 ")
	if err != nil {
		t.Fatalf("replay job message: %v", err)
	}
	if msg.JobID != JobIDReplay {
		t.Fatalf("expected job id %q, got %q", JobIDReplay, msg.JobID)
	}
	if msg.IdempotencyKey != "dlq_evt_1_1" {
		t.Fatalf("expected entry id as idempotency key, got %q", msg.IdempotencyKey)
	}

	entryID, err := EntryIDFromMessage(msg)
	if err != nil {
		t.Fatalf("entry id from message: %v", err)
	}
	if entryID != "dlq_evt_1_1" {
		t.Fatalf("expected entry id round-trip, got %q", entryID)
	}

	if _, err := ReplayJobMessage("  "); err == nil {
		t.Fatalf("expected blank entry id rejection")
	}
	if _, err := EntryIDFromMessage(PurgeExpiredJobMessage()); err == nil {
		t.Fatalf("expected missing entry id rejection")
	}
}

func TestMessageMappingRoundTrip(t *testing.T) {
	original := &core.JobExecutionMessage{
		JobID:          JobIDReplay,
		ScriptPath:     "webhooks.dlq.replay",
		Parameters:     map[string]any{"entry_id": "dlq_evt_1_1"},
		IdempotencyKey: "dlq_evt_1_1",
		DedupPolicy:    "drop",
	}

	converted := ToExecutionMessage(original)
	if converted == nil {
		t.Fatalf("expected converted message")
	}
	roundTrip := FromExecutionMessage(converted)
	if roundTrip.JobID != original.JobID {
		t.Fatalf("expected job id %q, got %q", original.JobID, roundTrip.JobID)
	}
	if roundTrip.ScriptPath != original.ScriptPath {
		t.Fatalf("expected script path %q, got %q", original.ScriptPath, roundTrip.ScriptPath)
	}
	if roundTrip.IdempotencyKey != original.IdempotencyKey {
		t.Fatalf("expected idempotency key %q, got %q", original.IdempotencyKey, roundTrip.IdempotencyKey)
	}
	if roundTrip.DedupPolicy != original.DedupPolicy {
		t.Fatalf("expected dedup policy %q, got %q", original.DedupPolicy, roundTrip.DedupPolicy)
	}
	if roundTrip.Parameters["entry_id"] != "dlq_evt_1_1" {
		t.Fatalf("expected parameters to survive mapping")
	}
}

func TestEnqueueAndDequeueAdapters(t *testing.T) {
	ctx := context.Background()
	enqueuer := &stubQueueEnqueuer{}
	enqueueAdapter := NewEnqueuerAdapter(enqueuer)

	msg, err := ReplayJobMessage("dlq_evt_2_1")
	if err != nil {
		t.Fatalf("replay job message: %v", err)
	}
	receipt, err := enqueueAdapter.Enqueue(ctx, msg)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if receipt.DispatchID == "" {
		t.Fatalf("expected dispatch id on enqueue receipt")
	}
	if receipt.EnqueuedAt.IsZero() {
		t.Fatalf("expected enqueued_at on enqueue receipt")
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDReplay {
		t.Fatalf("expected mapped go-job message")
	}

	dequeuer := &stubQueueDequeuer{delivery: &stubQueueDelivery{msg: enqueuer.last}}
	dequeueAdapter := NewDequeuerAdapter(dequeuer, RetryPolicy{})
	delivery, err := dequeueAdapter.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	got := delivery.Message()
	if got == nil || got.JobID != JobIDReplay {
		t.Fatalf("expected mapped core message")
	}
	entryID, err := EntryIDFromMessage(got)
	if err != nil || entryID != "dlq_evt_2_1" {
		t.Fatalf("expected entry id from dequeued message, got %q err %v", entryID, err)
	}
	if err := delivery.Ack(ctx); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !dequeuer.delivery.(*stubQueueDelivery).acked {
		t.Fatalf("expected ack on underlying delivery")
	}
}

func TestNackRetryPolicyBoundaries(t *testing.T) {
	ctx := context.Background()
	rawDelivery := &stubQueueDelivery{
		msg: &job.ExecutionMessage{
			JobID:      JobIDPurgeExpired,
			ScriptPath: "webhooks.dlq.purge",
		},
	}
	adapter := NewDeliveryAdapter(rawDelivery, RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	})

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{
		Delay:  30 * time.Second,
		Reason: "transient",
	}, 1); err != nil {
		t.Fatalf("nack attempt 1: %v", err)
	}
	if rawDelivery.nackOpts.Delay != 10*time.Second {
		t.Fatalf("expected delay to be bounded, got %s", rawDelivery.nackOpts.Delay)
	}
	if rawDelivery.nackOpts.Disposition != queue.NackDispositionRetry {
		t.Fatalf("expected retry disposition before max attempts, got %q", rawDelivery.nackOpts.Disposition)
	}

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{
		Disposition: core.JobNackRetry,
		Delay:       time.Second,
		Reason:      "still failing",
	}, 3); err != nil {
		t.Fatalf("nack max attempt: %v", err)
	}
	if rawDelivery.nackOpts.Disposition != queue.NackDispositionDeadLetter {
		t.Fatalf("expected dead-letter disposition on max attempts, got %q", rawDelivery.nackOpts.Disposition)
	}
	if rawDelivery.nackOpts.Delay != 0 {
		t.Fatalf("expected no delay on a terminal disposition, got %s", rawDelivery.nackOpts.Delay)
	}

	if err := adapter.NackForAttempt(ctx, core.JobNackOptions{
		Disposition: core.JobNackCanceled,
		Reason:      "operator stop",
	}, 1); err != nil {
		t.Fatalf("nack canceled: %v", err)
	}
	if rawDelivery.nackOpts.Disposition != queue.NackDispositionCanceled {
		t.Fatalf("expected terminal dispositions to pass through, got %q", rawDelivery.nackOpts.Disposition)
	}
}

func TestWorkerHookAdapterEventMapping(t *testing.T) {
	now := time.Now().UTC().Add(-time.Second)
	coreHook := &capturingHook{}
	adapter := NewWorkerHookAdapter(coreHook)

	evt := worker.Event{
		Message: &job.ExecutionMessage{
			JobID:          JobIDReplay,
			ScriptPath:     "webhooks.dlq.replay",
			IdempotencyKey: "dlq_evt_3_1",
		},
		Attempt:   2,
		Delay:     5 * time.Second,
		Err:       errors.New("retry"),
		StartedAt: now,
		Duration:  250 * time.Millisecond,
	}

	adapter.OnRetry(context.Background(), evt)
	if coreHook.last.Message == nil {
		t.Fatalf("expected worker message mapping")
	}
	if coreHook.last.Message.JobID != JobIDReplay {
		t.Fatalf("expected job id mapping, got %q", coreHook.last.Message.JobID)
	}
	if coreHook.last.Attempt != 2 {
		t.Fatalf("expected attempt 2, got %d", coreHook.last.Attempt)
	}
	if coreHook.last.Delay != 5*time.Second {
		t.Fatalf("expected delay 5s, got %s", coreHook.last.Delay)
	}
	if coreHook.last.Duration != 250*time.Millisecond {
		t.Fatalf("expected duration mapping")
	}
	if coreHook.last.StartedAt.IsZero() {
		t.Fatalf("expected started_at mapping")
	}
	if coreHook.last.Err == nil || coreHook.last.Err.Error() != "retry" {
		t.Fatalf("expected error mapping")
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) (queue.EnqueueReceipt, error) {
	s.last = msg
	return queue.EnqueueReceipt{
		DispatchID: "dispatch-1",
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

type stubQueueDequeuer struct {
	delivery queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return s.delivery, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nackOpts = opts
	return nil
}

type capturingHook struct {
	last core.JobWorkerEvent
}

func (h *capturingHook) OnStart(context.Context, core.JobWorkerEvent)   {}
func (h *capturingHook) OnSuccess(context.Context, core.JobWorkerEvent) {}
func (h *capturingHook) OnFailure(context.Context, core.JobWorkerEvent) {}
func (h *capturingHook) OnRetry(_ context.Context, event core.JobWorkerEvent) {
	h.last = event
}
