package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

const (
	TypeProcessEvent    = "webhooks.command.event.process"
	TypeReplayDLQEntry  = "webhooks.command.dlq.replay"
	TypeResolveDLQEntry = "webhooks.command.dlq.resolve"
	TypePurgeExpired    = "webhooks.command.dlq.purge"
)

type ProcessEventMessage struct {
	Event core.WebhookEvent
}

func (ProcessEventMessage) Type() string { return TypeProcessEvent }

func (m ProcessEventMessage) Validate() error {
	if err := m.Event.Validate(); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

type ReplayDLQEntryMessage struct {
	EntryID string
}

func (ReplayDLQEntryMessage) Type() string { return TypeReplayDLQEntry }

func (m ReplayDLQEntryMessage) Validate() error {
	if strings.TrimSpace(m.EntryID) == "" {
		return fmt.Errorf("command: dlq entry id is required")
	}
	return nil
}

type ResolveDLQEntryMessage struct {
	EntryID    string
	Resolution string
}

func (ResolveDLQEntryMessage) Type() string { return TypeResolveDLQEntry }

func (m ResolveDLQEntryMessage) Validate() error {
	if strings.TrimSpace(m.EntryID) == "" {
		return fmt.Errorf("command: dlq entry id is required")
	}
	if strings.TrimSpace(m.Resolution) == "" {
		return fmt.Errorf("command: resolution text is required")
	}
	return nil
}

type PurgeExpiredMessage struct{}

func (PurgeExpiredMessage) Type() string { return TypePurgeExpired }

func (PurgeExpiredMessage) Validate() error { return nil }
