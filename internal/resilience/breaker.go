// Package resilience guards calls to slow or flaky external processes.
//
// [Breaker] is a three-state circuit breaker (closed, open, half-open). It
// only counts failures its classifier recognizes, so a caller hanging up or
// sending garbage does not trip it. It never retries.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Execute] while the breaker rejects
// calls.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of probes through. Enough
	// successes close the breaker; any counted failure opens it again.
	StateHalfOpen
)

// String returns the lower-case name of the state.
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

// BreakerConfig tunes a [Breaker].
type BreakerConfig struct {
	// Name labels log records and state-change callbacks.
	Name string

	// MaxFailures is the number of consecutive counted failures that opens
	// the breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the probe budget in the half-open state. Default: 1.
	HalfOpenMax int

	// IsFailure decides whether an error counts against the breaker. nil
	// counts every error. Context cancellation never counts.
	IsFailure func(error) bool

	// OnStateChange, if set, is called after every transition with the
	// breaker lock released.
	OnStateChange func(name string, from, to State)

	// Logger receives transition logs. Default: slog.Default().
	Logger *slog.Logger
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	isFailure    func(error) bool
	onChange     func(string, State, State)
	log          *slog.Logger
	now          func() time.Time

	mu           sync.Mutex
	state        State
	failures     int
	openedAt     time.Time
	probes       int
	probeSuccess int
}

// NewBreaker returns a closed [Breaker]. Zero config fields take defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = countsByDefault
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Breaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		isFailure:    cfg.IsFailure,
		onChange:     cfg.OnStateChange,
		log:          cfg.Logger,
		now:          time.Now,
	}
}

func countsByDefault(error) bool { return true }

// Execute runs fn unless the breaker is open. The context is handed to fn
// unchanged; an already cancelled context is returned without calling fn
// or touching the counters.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	probe, changed, err := b.admit()
	b.notify(changed)
	if err != nil {
		return err
	}

	callErr := fn(ctx)

	b.notify(b.record(probe, callErr))
	return callErr
}

type transition struct {
	from, to State
	ok       bool
}

func (b *Breaker) admit() (probe bool, t transition, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			return false, t, ErrCircuitOpen
		}
		t = b.setState(StateHalfOpen)
		b.probes, b.probeSuccess = 0, 0
	}
	if b.state == StateHalfOpen {
		if b.probes >= b.halfOpenMax {
			return false, t, ErrCircuitOpen
		}
		b.probes++
		return true, t, nil
	}
	return false, t, nil
}

func (b *Breaker) record(probe bool, err error) transition {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := err != nil && !errors.Is(err, context.Canceled) && b.isFailure(err)
	switch {
	case probe && failed:
		b.openedAt = b.now()
		return b.setState(StateOpen)
	case probe && err == nil:
		b.probeSuccess++
		if b.probeSuccess >= b.halfOpenMax {
			b.failures = 0
			return b.setState(StateClosed)
		}
	case probe:
		// An uncounted error returns the probe slot.
		b.probes--
	case failed:
		b.failures++
		if b.failures >= b.maxFailures && b.state == StateClosed {
			b.openedAt = b.now()
			return b.setState(StateOpen)
		}
	case err == nil:
		b.failures = 0
	}
	return transition{}
}

// setState must be called with b.mu held.
func (b *Breaker) setState(to State) transition {
	from := b.state
	b.state = to
	switch to {
	case StateOpen:
		b.log.Warn("circuit breaker opened", "name", b.name, "from", from.String(), "consecutive_failures", b.failures)
	default:
		b.log.Info("circuit breaker state change", "name", b.name, "from", from.String(), "to", to.String())
	}
	return transition{from: from, to: to, ok: true}
}

func (b *Breaker) notify(t transition) {
	if t.ok && b.onChange != nil {
		b.onChange(b.name, t.from, t.to)
	}
}

// State reports the current state. An open breaker whose timeout has passed
// reports [StateHalfOpen]; the transition itself happens on the next call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker closed and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	t := b.setState(StateClosed)
	b.failures, b.probes, b.probeSuccess = 0, 0, 0
	b.mu.Unlock()
	b.notify(t)
}
