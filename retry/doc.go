// Package retry contains the retrying execution engine: a deterministic
// exponential backoff policy, a transient-vs-permanent failure classifier,
// and the executor that drives repeated invocation of a business operation.
//
// The executor is strictly sequential for a single event: each attempt's
// classification decides whether the next one runs. Distinct events may be
// executed concurrently by the host without coordination from this package.
package retry
