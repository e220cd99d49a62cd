package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-webhooks/core"
)

var (
	_ gocmd.Querier[ListDLQEntriesMessage, []core.DLQEntry] = (*ListDLQEntriesQuery)(nil)
	_ gocmd.Querier[GetDLQEntryMessage, core.DLQEntry]      = (*GetDLQEntryQuery)(nil)
)
