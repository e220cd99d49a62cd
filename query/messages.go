package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

const (
	TypeListDLQEntries = "webhooks.query.dlq.list"
	TypeGetDLQEntry    = "webhooks.query.dlq.get"
)

type ListDLQEntriesMessage struct {
	Status string
	Limit  int
}

func (ListDLQEntriesMessage) Type() string { return TypeListDLQEntries }

func (m ListDLQEntriesMessage) Validate() error {
	if m.Limit < 0 {
		return fmt.Errorf("query: limit must be >= 0")
	}
	status := strings.TrimSpace(strings.ToLower(m.Status))
	switch status {
	case "", core.DLQStatusExhausted, core.DLQStatusPendingRetry, core.DLQStatusManuallyResolved:
		return nil
	}
	return fmt.Errorf("query: unknown dlq status %q", m.Status)
}

type GetDLQEntryMessage struct {
	EntryID string
}

func (GetDLQEntryMessage) Type() string { return TypeGetDLQEntry }

func (m GetDLQEntryMessage) Validate() error {
	if strings.TrimSpace(m.EntryID) == "" {
		return fmt.Errorf("query: dlq entry id is required")
	}
	return nil
}
