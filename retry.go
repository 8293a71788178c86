package seqtable

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures transient-failure retries for object-store reads.
// Retries never apply to decode errors: malformed bytes will not become valid
// on retry.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts including the first.
	// Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Default: 100ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries. Default: 10s.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the backoff after each retry. Default: 2.0.
	BackoffMultiplier float64

	// Jitter between 0 and 1 randomizes the backoff. Default: 0.1.
	Jitter float64

	// RetryIf decides whether an error is transient. Nil retries everything.
	RetryIf func(error) bool
}

// DefaultRetryConfig returns a retry configuration with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// Retryer performs operations with automatic retry on transient failure.
// Exhaustion surfaces the last error; data is never silently skipped.
type Retryer struct {
	config RetryConfig
}

// NewRetryer creates a retryer, applying defaults for unset fields.
func NewRetryer(config RetryConfig) *Retryer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 100 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 10 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	if config.Jitter < 0 || config.Jitter > 1 {
		config.Jitter = 0.1
	}
	return &Retryer{config: config}
}

// Do executes op until it succeeds, a non-retryable error occurs, attempts
// are exhausted, or the context is canceled.
func (r *Retryer) Do(ctx context.Context, op func() error) error {
	backoff := r.config.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if r.config.RetryIf != nil && !r.config.RetryIf(lastErr) {
			return lastErr
		}
		if attempt == r.config.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.jittered(backoff)):
		}
		backoff = time.Duration(math.Min(
			float64(backoff)*r.config.BackoffMultiplier,
			float64(r.config.MaxBackoff),
		))
	}
	return lastErr
}

func (r *Retryer) jittered(d time.Duration) time.Duration {
	if r.config.Jitter == 0 {
		return d
	}
	delta := float64(d) * r.config.Jitter
	return time.Duration(float64(d) + (rand.Float64()*2-1)*delta)
}
