package core

import "context"

// Handler executes the business side effect for a webhook event. The result
// is surfaced on the process outcome; a returned error is classified and
// drives the retry loop.
type Handler func(ctx context.Context, event WebhookEvent) (any, error)

const (
	ProcessStatusProcessed        = "processed"
	ProcessStatusSkippedDuplicate = "skipped_duplicate"
	ProcessStatusDeadLettered     = "dead_lettered"

	ReplayStatusReplayed     = "replayed"
	ReplayStatusDeadLettered = "dead_lettered"
)

type ProcessResult struct {
	Status     string
	EventID    string
	Result     any
	RetryCount int
	History    []ProcessingAttempt
	DLQEntryID string
}

type ReplayResult struct {
	EntryID       string
	EventID       string
	Status        string
	Result        any
	RetryCount    int
	NewDLQEntryID string
}
