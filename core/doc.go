// Package core contains the canonical webhook-processing domain: event and
// dead-letter entities, store contracts, error envelopes, and configuration.
// Lower-level adapters must depend on this package; core must not depend on
// store- or transport-specific adapters.
package core
