package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProcessEventMessage]    = (*ProcessEventCommand)(nil)
	_ gocmd.Commander[ReplayDLQEntryMessage]  = (*ReplayDLQEntryCommand)(nil)
	_ gocmd.Commander[ResolveDLQEntryMessage] = (*ResolveDLQEntryCommand)(nil)
	_ gocmd.Commander[PurgeExpiredMessage]    = (*PurgeExpiredCommand)(nil)
)
