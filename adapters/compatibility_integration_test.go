package adapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-webhooks/adapters/gocommand"
	"github.com/goliatone/go-webhooks/adapters/gojob"
	"github.com/goliatone/go-webhooks/adapters/gologger"
	webhookscommand "github.com/goliatone/go-webhooks/command"
	"github.com/goliatone/go-webhooks/core"
)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	logger := &compatLogger{}
	provider := &compatProvider{logger: logger}

	_, _, jobProvider, jobLogger := gologger.ResolveForJob("webhooks", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	enqueueStub := &compatEnqueuer{}
	enqueueAdapter := gojob.NewEnqueuerAdapter(enqueueStub)
	replayMsg, err := gojob.ReplayJobMessage("dlq_evt_1_1")
	if err != nil {
		t.Fatalf("replay job message: %v", err)
	}
	receipt, err := enqueueAdapter.Enqueue(ctx, replayMsg)
	if err != nil {
		t.Fatalf("enqueue via gojob adapter: %v", err)
	}
	if receipt.DispatchID == "" {
		t.Fatalf("expected dispatch id from enqueue receipt")
	}
	if enqueueStub.last == nil || enqueueStub.last.JobID != gojob.JobIDReplay {
		t.Fatalf("expected go-job message mapping through enqueuer adapter")
	}
	if enqueueStub.last.IdempotencyKey != "dlq_evt_1_1" {
		t.Fatalf("expected entry id as idempotency key, got %q", enqueueStub.last.IdempotencyKey)
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := commandAdapter.RegisterCommand(command.CommandFunc[compatMessage](func(context.Context, compatMessage) error {
		return nil
	})); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get("webhooks.compat.command"); !ok {
		t.Fatalf("expected command resolver hook to mirror command into go-job queue registry")
	}
}

func TestRuntimeCompatibility_CommandDispatchThroughWrappers(t *testing.T) {
	svc := &compatMutatingService{}
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())

	processSub, err := gocommand.RegisterAndSubscribe(adapter, webhookscommand.NewProcessEventCommand(svc))
	if err != nil {
		t.Fatalf("register process wrapper: %v", err)
	}
	defer processSub.Unsubscribe()

	resolveSub, err := gocommand.RegisterAndSubscribe(adapter, webhookscommand.NewResolveDLQEntryCommand(svc))
	if err != nil {
		t.Fatalf("register resolve wrapper: %v", err)
	}
	defer resolveSub.Unsubscribe()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	if err := gocommand.Dispatch(context.Background(), webhookscommand.ProcessEventMessage{
		Event: core.WebhookEvent{
			EventID:   "evt_compat_1",
			EventType: "invoice.created",
			Payload:   []byte(`{"amount":100}`),
		},
	}); err != nil {
		t.Fatalf("dispatch process message: %v", err)
	}
	if svc.processCalls != 1 || svc.lastEventID != "evt_compat_1" {
		t.Fatalf("expected process wrapper invocation through dispatch")
	}

	if err := gocommand.Dispatch(context.Background(), webhookscommand.ResolveDLQEntryMessage{
		EntryID:    "dlq_evt_compat_1",
		Resolution: "handled manually",
	}); err != nil {
		t.Fatalf("dispatch resolve message: %v", err)
	}
	if svc.resolveCalls != 1 || svc.lastResolution != "handled manually" {
		t.Fatalf("expected resolve wrapper invocation through dispatch")
	}
}

type compatMessage struct{}

func (compatMessage) Type() string { return "webhooks.compat.command" }

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) (queue.EnqueueReceipt, error) {
	e.last = msg
	return queue.EnqueueReceipt{
		DispatchID: "dispatch-compat-1",
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }

type compatMutatingService struct {
	processCalls   int
	lastEventID    string
	resolveCalls   int
	lastResolution string
}

func (s *compatMutatingService) ProcessEvent(_ context.Context, event core.WebhookEvent) (core.ProcessResult, error) {
	s.processCalls++
	s.lastEventID = event.EventID
	return core.ProcessResult{Status: core.ProcessStatusProcessed, EventID: event.EventID}, nil
}

func (s *compatMutatingService) Replay(_ context.Context, entryID string) (core.ReplayResult, error) {
	return core.ReplayResult{EntryID: entryID, Status: core.ReplayStatusReplayed}, nil
}

func (s *compatMutatingService) ResolveDLQEntry(_ context.Context, _ string, resolution string) error {
	s.resolveCalls++
	s.lastResolution = resolution
	return nil
}

func (s *compatMutatingService) PurgeExpiredDLQEntries(context.Context) (int, error) {
	return 0, nil
}
