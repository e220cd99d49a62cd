package retry

import (
	"context"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

// Executor drives repeated invocation of a business operation. The backoff
// delay between attempts is a timer-channel receive, so a waiting executor
// never blocks other event-processing goroutines.
type Executor struct {
	MaxRetries int
	Policy     Policy
	Logger     core.Logger
	Now        func() time.Time
	Sleep      func(ctx context.Context, delay time.Duration) error
}

func NewExecutor(cfg core.RetryConfig, logger core.Logger) *Executor {
	return &Executor{
		MaxRetries: cfg.MaxRetries,
		Policy:     NewPolicy(cfg),
		Logger:     core.EnsureLogger(logger),
		Now: func() time.Time {
			return time.Now().UTC()
		},
		Sleep: sleepContext,
	}
}

// Execute invokes op until it succeeds, fails permanently, retries are
// exhausted, or the context is cancelled during a backoff wait. The operation
// runs at most MaxRetries+1 times and never again once a permanent failure is
// observed. The returned outcome's history records every attempt actually
// made, in order, and always carries the final error on failure.
//
// There is no internal timeout: callers under a hard wall-clock budget must
// size MaxRetries and the delay cap so the cumulative worst case fits (31s
// with defaults). Cancellation is only honored between attempts; an in-flight
// attempt is allowed to finish so the history stays consistent with the side
// effects that actually happened.
func (e *Executor) Execute(ctx context.Context, op core.Operation, runCtx core.RunContext) core.RetryOutcome {
	maxRetries := e.maxRetries()
	history := []core.ProcessingAttempt{}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := e.policy().Delay(attempt - 1)
			fields := runCtx.Fields()
			fields["attempt"] = attempt
			fields["max_retries"] = maxRetries
			fields["delay_ms"] = delay.Milliseconds()
			core.LogWithFields(ctx, e.Logger, "info", "retrying webhook operation", fields)

			if err := e.sleep(ctx, delay); err != nil {
				fields := runCtx.Fields()
				fields["attempt"] = attempt
				fields["error"] = err.Error()
				core.LogWithFields(ctx, e.Logger, "warn", "retry wait cancelled", fields)
				return core.RetryOutcome{
					Success:    false,
					Err:        lastErr,
					RetryCount: failureRetryCount(history),
					History:    history,
				}
			}
		}

		result, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				fields := runCtx.Fields()
				fields["attempt"] = attempt
				core.LogWithFields(ctx, e.Logger, "info", "webhook operation succeeded after retry", fields)
			}
			return core.RetryOutcome{
				Success:    true,
				Result:     result,
				RetryCount: attempt,
				History:    history,
			}
		}

		lastErr = err
		classification := Classify(err)
		history = append(history, core.ProcessingAttempt{
			Attempt:      attempt,
			Timestamp:    e.now(),
			ErrorMessage: err.Error(),
			ErrorKind:    classification.Kind,
			Transient:    classification.Transient,
		})

		willRetry := classification.Transient && attempt < maxRetries
		fields := runCtx.Fields()
		fields["attempt"] = attempt
		fields["error"] = err.Error()
		fields["error_kind"] = classification.Kind
		fields["transient"] = classification.Transient
		fields["will_retry"] = willRetry
		core.LogWithFields(ctx, e.Logger, "warn", "webhook operation attempt failed", fields)

		if !classification.Transient {
			break
		}
	}

	return core.RetryOutcome{
		Success:    false,
		Err:        lastErr,
		RetryCount: failureRetryCount(history),
		History:    history,
	}
}

// failureRetryCount keeps the dead-letter invariant len(history) == retryCount+1:
// the first try is attempt zero, so a terminal failure after n attempts reports
// n-1 retries.
func failureRetryCount(history []core.ProcessingAttempt) int {
	if len(history) == 0 {
		return 0
	}
	return len(history) - 1
}

func (e *Executor) maxRetries() int {
	if e != nil && e.MaxRetries >= 0 {
		return e.MaxRetries
	}
	return core.DefaultMaxRetries
}

func (e *Executor) policy() Policy {
	if e != nil {
		return e.Policy
	}
	return Policy{}
}

func (e *Executor) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Executor) sleep(ctx context.Context, delay time.Duration) error {
	if e != nil && e.Sleep != nil {
		return e.Sleep(ctx, delay)
	}
	return sleepContext(ctx, delay)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
