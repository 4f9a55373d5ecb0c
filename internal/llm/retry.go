package llm

import (
	"context"
	"errors"
	"time"
)

// State of a Retrier.
type State int

const (
	StateAttempting State = iota
	StateSuccess
	StateExhausted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSuccess:
		return "success"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RetryPolicy bounds a Retrier.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Retrier is the retry loop of a single generation call as a state machine:
// Attempting(n) moves to Success on a nil error, to Failed on a non-transient
// error, to Exhausted after MaxAttempts transient errors, and otherwise to
// Attempting(n+1) after a backoff delay.
type Retrier struct {
	policy  RetryPolicy
	state   State
	attempt int
	lastErr error
}

func NewRetrier(policy RetryPolicy) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Retrier{policy: policy, state: StateAttempting, attempt: 1}
}

func (r *Retrier) State() State {
	return r.state
}

// Attempt is the 1-based number of the current (or last) attempt.
func (r *Retrier) Attempt() int {
	return r.attempt
}

// Err is the error recorded by the last attempt.
func (r *Retrier) Err() error {
	return r.lastErr
}

// Record feeds the outcome of the current attempt into the state machine and
// returns the delay before the next attempt, or false when the loop is done.
func (r *Retrier) Record(err error) (time.Duration, bool) {
	if r.state != StateAttempting {
		return 0, false
	}
	r.lastErr = err

	switch {
	case err == nil:
		r.state = StateSuccess
		return 0, false
	case !IsKind(err, Transient):
		r.state = StateFailed
		return 0, false
	case r.attempt >= r.policy.MaxAttempts:
		r.state = StateExhausted
		return 0, false
	}

	delay := r.backoffDelay(r.attempt)
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		delay = r.capDelay(statusErr.RetryAfter)
	}
	r.attempt++
	return delay, true
}

// Result converts the final state into the error returned to callers.
func (r *Retrier) Result() error {
	switch r.state {
	case StateSuccess:
		return nil
	case StateExhausted:
		var clientErr *ClientError
		last := r.lastErr
		if errors.As(last, &clientErr) && clientErr.Kind == Transient {
			last = clientErr.Err
		}
		return &ClientError{Kind: Exhausted, Attempts: r.attempt, Err: last}
	default:
		return r.lastErr
	}
}

// MaxTotalDelay is the sum of every backoff delay the policy can produce.
func (r *Retrier) MaxTotalDelay() time.Duration {
	var total time.Duration
	for attempt := 1; attempt < r.policy.MaxAttempts; attempt++ {
		total += r.backoffDelay(attempt)
	}
	return total
}

// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
func (r *Retrier) backoffDelay(attempt int) time.Duration {
	base := r.policy.BaseDelay
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if r.policy.MaxDelay > 0 && delay > r.policy.MaxDelay/2 {
			delay = r.policy.MaxDelay
			break
		}
		delay *= 2
	}
	return r.capDelay(delay)
}

func (r *Retrier) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if r.policy.MaxDelay > 0 && delay > r.policy.MaxDelay {
		return r.policy.MaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
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
