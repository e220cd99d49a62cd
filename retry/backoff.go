package retry

import (
	"time"

	"github.com/goliatone/go-webhooks/core"
)

// Policy computes the delay before re-running a failed attempt. Deterministic
// on purpose: no jitter, so the default configuration always yields
// 1s, 2s, 4s, 8s, 16s, 16s, ...
type Policy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

func NewPolicy(cfg core.RetryConfig) Policy {
	return Policy{
		BaseDelay:  cfg.BaseDelay(),
		MaxDelay:   cfg.MaxDelay(),
		Multiplier: cfg.BackoffMultiplier,
	}
}

// Delay returns base * multiplier^attempt capped at the maximum, where
// attempt is zero-indexed.
func (p Policy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Duration(core.DefaultBaseDelayMs) * time.Millisecond
	}
	maximum := p.MaxDelay
	if maximum <= 0 {
		maximum = time.Duration(core.DefaultMaxDelayMs) * time.Millisecond
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = core.DefaultBackoffMultiplier
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := base
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if delay >= maximum {
			return maximum
		}
	}
	if delay > maximum {
		return maximum
	}
	return delay
}
