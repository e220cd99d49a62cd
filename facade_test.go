package webhooks

import (
	"context"
	"errors"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"

	webhookscommand "github.com/goliatone/go-webhooks/command"
	"github.com/goliatone/go-webhooks/core"
	webhooksquery "github.com/goliatone/go-webhooks/query"
)

func TestNewFacadeRequiresService(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
}

func TestFacadeWiresCommandsAndQueries(t *testing.T) {
	svc := newTestService(t, WithEventHandler(func(_ context.Context, event core.WebhookEvent) (any, error) {
		return "handled:" + event.EventID, nil
	}))

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("build facade: %v", err)
	}

	commands := facade.Commands()
	if commands.ProcessEvent == nil || commands.ReplayDLQEntry == nil ||
		commands.ResolveDLQEntry == nil || commands.PurgeExpired == nil {
		t.Fatalf("expected all commands wired: %#v", commands)
	}
	queries := facade.Queries()
	if queries.ListDLQEntries == nil || queries.GetDLQEntry == nil {
		t.Fatalf("expected all queries wired: %#v", queries)
	}
	if facade.Service() == nil {
		t.Fatalf("expected service accessor")
	}
}

func TestFacadeProcessCommandEndToEnd(t *testing.T) {
	svc := newTestService(t, WithEventHandler(func(_ context.Context, event core.WebhookEvent) (any, error) {
		return "handled:" + event.EventID, nil
	}))
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("build facade: %v", err)
	}

	collector := gocmd.NewResult[core.ProcessResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	msg := webhookscommand.ProcessEventMessage{Event: testEvent("evt_facade_1")}
	if err := msg.Validate(); err != nil {
		t.Fatalf("validate message: %v", err)
	}
	if err := facade.Commands().ProcessEvent.Execute(ctx, msg); err != nil {
		t.Fatalf("execute process command: %v", err)
	}

	outcome, ok := collector.Load()
	if !ok {
		t.Fatalf("expected stored process outcome")
	}
	if outcome.Status != ProcessStatusProcessed {
		t.Fatalf("expected processed outcome, got %q", outcome.Status)
	}
}

func TestFacadeDeadLetterReplayFlow(t *testing.T) {
	failing := true
	svc := newTestService(t, WithEventHandler(func(context.Context, core.WebhookEvent) (any, error) {
		if failing {
			return nil, errors.New("invalid signature")
		}
		return "ok", nil
	}))
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("build facade: %v", err)
	}

	processCollector := gocmd.NewResult[core.ProcessResult]()
	ctx := gocmd.ContextWithResult(context.Background(), processCollector)
	if err := facade.Commands().ProcessEvent.Execute(ctx, webhookscommand.ProcessEventMessage{
		Event: testEvent("evt_facade_2"),
	}); err != nil {
		t.Fatalf("dead-lettered event should be a handled command outcome: %v", err)
	}
	processed, ok := processCollector.Load()
	if !ok || processed.DLQEntryID == "" {
		t.Fatalf("expected dead letter outcome, got %#v", processed)
	}

	entries, err := facade.Queries().ListDLQEntries.Query(context.Background(), webhooksquery.ListDLQEntriesMessage{
		Status: DLQStatusExhausted,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("list query: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != processed.DLQEntryID {
		t.Fatalf("expected the dead letter entry, got %#v", entries)
	}

	failing = false
	replayCollector := gocmd.NewResult[core.ReplayResult]()
	replayCtx := gocmd.ContextWithResult(context.Background(), replayCollector)
	if err := facade.Commands().ReplayDLQEntry.Execute(replayCtx, webhookscommand.ReplayDLQEntryMessage{
		EntryID: processed.DLQEntryID,
	}); err != nil {
		t.Fatalf("execute replay command: %v", err)
	}
	replayed, ok := replayCollector.Load()
	if !ok || replayed.Status != ReplayStatusReplayed {
		t.Fatalf("expected replayed outcome, got %#v", replayed)
	}

	entry, err := facade.Queries().GetDLQEntry.Query(context.Background(), webhooksquery.GetDLQEntryMessage{
		EntryID: processed.DLQEntryID,
	})
	if err != nil {
		t.Fatalf("get query: %v", err)
	}
	if entry.Status != DLQStatusManuallyResolved {
		t.Fatalf("expected resolved entry after replay, got %q", entry.Status)
	}
	if entry.ResolvedAt == nil || entry.ResolvedAt.After(time.Now().UTC().Add(time.Minute)) {
		t.Fatalf("unexpected resolution timestamp: %v", entry.ResolvedAt)
	}
}

func TestFacadeWithDedicatedReader(t *testing.T) {
	svc := newTestService(t, WithEventHandler(func(context.Context, core.WebhookEvent) (any, error) {
		return nil, nil
	}))

	reader := staticDLQReader{entries: []core.DLQEntry{{ID: "dlq_static_1"}}}
	facade, err := NewFacade(svc, WithDLQEntryReader(reader))
	if err != nil {
		t.Fatalf("build facade: %v", err)
	}

	entries, err := facade.Queries().ListDLQEntries.Query(context.Background(), webhooksquery.ListDLQEntriesMessage{})
	if err != nil {
		t.Fatalf("list query: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "dlq_static_1" {
		t.Fatalf("expected entries from the dedicated reader, got %#v", entries)
	}
}

type staticDLQReader struct {
	entries []core.DLQEntry
}

func (r staticDLQReader) ListDLQEntries(context.Context, string, int) []core.DLQEntry {
	return r.entries
}

func (r staticDLQReader) GetDLQEntry(_ context.Context, entryID string) (core.DLQEntry, bool, error) {
	for _, entry := range r.entries {
		if entry.ID == entryID {
			return entry, true, nil
		}
	}
	return core.DLQEntry{}, false, nil
}
