// Package breaker implements the circuit breaker shared by every runtime call
// of one executor instance.
//
// The breaker is closed while calls succeed. FailureThreshold consecutive
// failures open it; while open, calls are rejected with ErrOpen without being
// attempted. Once Cooldown has elapsed the next call is let through as a
// half-open trial: success closes the breaker, failure opens it again.
//
// Every call runs under CallTimeout. The breaker also keeps the request
// counters reported by the executor's stats.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

var (
	// ErrOpen is returned for calls rejected while the breaker is open.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrTimeout is returned when a call exceeds CallTimeout.
	ErrTimeout = errors.New("call timed out")
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes the breaker.
type Config struct {
	FailureThreshold int
	CallTimeout      time.Duration
	Cooldown         time.Duration
}

// DefaultConfig returns the defaults used when no tuning is configured.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 10,
		CallTimeout:      5 * time.Minute,
		Cooldown:         30 * time.Second,
	}
}

// Snapshot is a point-in-time copy of the breaker counters.
type Snapshot struct {
	State               State
	ConsecutiveFailures int
	LastFailure         time.Time
	Total               uint64
	Success             uint64
	Failure             uint64
	Timeouts            uint64
	// Concurrent counts calls whose fn has not returned yet, including calls
	// Run already gave up on after CallTimeout.
	Concurrent     int64
	AverageLatency time.Duration
}

// IsClosed reports whether calls flow normally.
func (s Snapshot) IsClosed() bool { return s.State == StateClosed }

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.PassiveClock) Option {
	return func(b *Breaker) { b.clock = c }
}

// OnStateChange registers a hook invoked after every transition.
// The hook runs outside the breaker lock.
func OnStateChange(fn func(from, to State)) Option {
	return func(b *Breaker) { b.onStateChange = fn }
}

// Breaker is safe for concurrent use.
type Breaker struct {
	cfg           Config
	clock         clock.PassiveClock
	onStateChange func(from, to State)

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	openedAt            time.Time
	lastFailure         time.Time
	trialInFlight       bool

	total      uint64
	success    uint64
	failure    uint64
	timeouts   uint64
	concurrent int64
	avgLatency float64 // nanoseconds, over successful calls
}

// New creates a closed breaker. Zero fields in cfg take their defaults.
func New(cfg Config, opts ...Option) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}

	b := &Breaker{cfg: cfg, clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Config returns the effective configuration.
func (b *Breaker) Config() Config { return b.cfg }

// Run executes fn through the breaker. fn receives a context bounded by
// CallTimeout; if fn has not returned by then Run gives up on it and reports
// ErrTimeout.
func (b *Breaker) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	trial, err := b.acquire()
	if err != nil {
		return err
	}

	start := b.clock.Now()
	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		err := fn(callCtx)
		b.exit()
		done <- err
	}()

	select {
	case err = <-done:
	case <-callCtx.Done():
		err = callCtx.Err()
	}

	timedOut := err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded)
	if timedOut {
		err = fmt.Errorf("%w after %s: %v", ErrTimeout, b.cfg.CallTimeout, err)
	}

	b.release(trial, err, timedOut, b.clock.Since(start))
	return err
}

// Stats returns a snapshot of the counters.
func (b *Breaker) Stats() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		LastFailure:         b.lastFailure,
		Total:               b.total,
		Success:             b.success,
		Failure:             b.failure,
		Timeouts:            b.timeouts,
		Concurrent:          b.concurrent,
		AverageLatency:      time.Duration(b.avgLatency),
	}
}

func (b *Breaker) acquire() (trial bool, err error) {
	b.mu.Lock()
	from := b.state
	b.total++

	if b.state == StateOpen && b.clock.Since(b.openedAt) >= b.cfg.Cooldown {
		b.state = StateHalfOpen
	}

	switch {
	case b.state == StateOpen, b.state == StateHalfOpen && b.trialInFlight:
		b.failure++
		err = ErrOpen
	case b.state == StateHalfOpen:
		b.trialInFlight = true
		trial = true
	}
	if err == nil {
		b.concurrent++
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
	return trial, err
}

func (b *Breaker) exit() {
	b.mu.Lock()
	b.concurrent--
	b.mu.Unlock()
}

func (b *Breaker) release(trial bool, err error, timedOut bool, latency time.Duration) {
	b.mu.Lock()
	from := b.state
	if trial {
		b.trialInFlight = false
	}

	if err == nil {
		b.success++
		b.avgLatency += (float64(latency) - b.avgLatency) / float64(b.success)
		b.consecutiveFailures = 0
		if b.state == StateHalfOpen && trial {
			b.state = StateClosed
		}
	} else {
		b.failure++
		if timedOut {
			b.timeouts++
		}
		b.consecutiveFailures++
		b.lastFailure = b.clock.Now()

		switch {
		case b.state == StateHalfOpen && trial:
			b.trip()
		case b.state == StateClosed && b.consecutiveFailures >= b.cfg.FailureThreshold:
			b.trip()
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// trip must be called with mu held.
func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.clock.Now()
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
