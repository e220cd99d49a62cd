// Package webhooks assembles the reliable webhook-processing pipeline:
// idempotent intake, retried execution with failure classification, and a
// dead letter queue with an operator replay workflow.
package webhooks

import "github.com/goliatone/go-webhooks/core"

type Config = core.Config

type RetryConfig = core.RetryConfig

type DLQConfig = core.DLQConfig

type WebhookEvent = core.WebhookEvent

type ProcessingAttempt = core.ProcessingAttempt

type DLQEntry = core.DLQEntry

type Handler = core.Handler

type ProcessResult = core.ProcessResult

type ReplayResult = core.ReplayResult

type IdempotencyStore = core.IdempotencyStore

type DLQStore = core.DLQStore

type MetricsRecorder = core.MetricsRecorder

const (
	ProcessStatusProcessed        = core.ProcessStatusProcessed
	ProcessStatusSkippedDuplicate = core.ProcessStatusSkippedDuplicate
	ProcessStatusDeadLettered     = core.ProcessStatusDeadLettered

	ReplayStatusReplayed     = core.ReplayStatusReplayed
	ReplayStatusDeadLettered = core.ReplayStatusDeadLettered

	DLQStatusExhausted        = core.DLQStatusExhausted
	DLQStatusPendingRetry     = core.DLQStatusPendingRetry
	DLQStatusManuallyResolved = core.DLQStatusManuallyResolved
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}
