// Package retry provides the bounded retry loop used around connection
// creation and query execution. The policy is plain data with a pluggable
// transient-error classifier, so per-dialect code tables stay testable.
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Policy defines retry behavior with exponential backoff. MaxAttempts counts
// total tries including the first; IsTransient decides whether a failure is
// worth retrying (nil means DefaultIsTransient). Non-transient errors are
// returned immediately.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, +/- fraction of the delay, prevents thundering herd
	IsTransient  func(error) bool
}

// DefaultPolicy returns the defaults used for database operations:
// 3 attempts, 100ms initial delay doubling up to 5s, 10% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// applyJitter spreads a delay by +/- (delay * jitterFactor).
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

func (p Policy) transient(err error) bool {
	if p.IsTransient != nil {
		return p.IsTransient(err)
	}
	return DefaultIsTransient(err)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do executes fn until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. The last error is returned unwrapped so callers
// can classify and format it. Context cancellation aborts the backoff wait.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := p.InitialDelay

	for attempt := 1; attempt <= p.attempts(); attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !p.transient(err) {
			return err
		}

		if attempt < p.attempts() {
			select {
			case <-time.After(applyJitter(delay, p.JitterFactor)):
				delay = time.Duration(float64(delay) * p.Multiplier)
				if delay > p.MaxDelay {
					delay = p.MaxDelay
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

// DoWithResult executes fn under policy p and returns its result. Useful for
// operations that produce a value (opening a connection, running a query).
func DoWithResult[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error
	delay := p.InitialDelay

	for attempt := 1; attempt <= p.attempts(); attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result = r
		lastErr = err

		if !p.transient(err) {
			return result, err
		}

		if attempt < p.attempts() {
			select {
			case <-time.After(applyJitter(delay, p.JitterFactor)):
				delay = time.Duration(float64(delay) * p.Multiplier)
				if delay > p.MaxDelay {
					delay = p.MaxDelay
				}
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	return result, lastErr
}

// transientPhrases is the curated substring list shared by every dialect;
// dialect classifiers union it with their driver error-code tables.
var transientPhrases = []string{
	"connection refused",
	"connection reset",
	"connection timed out",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"timeout",
	"timed out",
	"temporary failure",
	"too many connections",
	"deadlock",
	"lock wait",
	"resource limit",
	"service busy",
	"service unavailable",
	"server is busy",
	"try again",
}

// DefaultIsTransient classifies an error by substring match against the
// curated phrase list. Errors that implement IsRetryable() bool declare their
// own classification and are trusted over the pattern match.
func DefaultIsTransient(err error) bool {
	if err == nil {
		return false
	}

	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}

	return MatchesTransientPhrase(err)
}

// MatchesTransientPhrase reports whether the error text contains any phrase
// from the curated transient list.
func MatchesTransientPhrase(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range transientPhrases {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
