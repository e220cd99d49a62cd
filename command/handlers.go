package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-webhooks/core"
)

type MutatingService interface {
	ProcessEvent(ctx context.Context, event core.WebhookEvent) (core.ProcessResult, error)
	Replay(ctx context.Context, entryID string) (core.ReplayResult, error)
	ResolveDLQEntry(ctx context.Context, entryID string, resolution string) error
	PurgeExpiredDLQEntries(ctx context.Context) (int, error)
}

type ProcessEventCommand struct {
	service MutatingService
}

func NewProcessEventCommand(service MutatingService) *ProcessEventCommand {
	return &ProcessEventCommand{service: service}
}

func (c *ProcessEventCommand) Execute(ctx context.Context, msg ProcessEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: process service is required")
	}
	out, err := c.service.ProcessEvent(ctx, msg.Event)
	if err != nil {
		// A dead-lettered event is a handled outcome: the entry exists and
		// the terminal error already logged, so the command reports success
		// and surfaces the outcome to the collector.
		if out.Status != core.ProcessStatusDeadLettered {
			return err
		}
	}
	storeResult(ctx, out)
	return nil
}

type ReplayDLQEntryCommand struct {
	service MutatingService
}

func NewReplayDLQEntryCommand(service MutatingService) *ReplayDLQEntryCommand {
	return &ReplayDLQEntryCommand{service: service}
}

func (c *ReplayDLQEntryCommand) Execute(ctx context.Context, msg ReplayDLQEntryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: replay service is required")
	}
	out, err := c.service.Replay(ctx, msg.EntryID)
	if err != nil {
		if out.Status != core.ReplayStatusDeadLettered {
			return err
		}
	}
	storeResult(ctx, out)
	return nil
}

type ResolveDLQEntryCommand struct {
	service MutatingService
}

func NewResolveDLQEntryCommand(service MutatingService) *ResolveDLQEntryCommand {
	return &ResolveDLQEntryCommand{service: service}
}

func (c *ResolveDLQEntryCommand) Execute(ctx context.Context, msg ResolveDLQEntryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: resolve service is required")
	}
	return c.service.ResolveDLQEntry(ctx, msg.EntryID, msg.Resolution)
}

type PurgeExpiredCommand struct {
	service MutatingService
}

func NewPurgeExpiredCommand(service MutatingService) *PurgeExpiredCommand {
	return &PurgeExpiredCommand{service: service}
}

func (c *PurgeExpiredCommand) Execute(ctx context.Context, msg PurgeExpiredMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: purge service is required")
	}
	purged, err := c.service.PurgeExpiredDLQEntries(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, purged)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
