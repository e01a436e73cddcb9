package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("notifier circuit open")

type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

type ProtectedNotifierConfig struct {
	Timeout          time.Duration // per-send deadline
	FailureThreshold int           // consecutive failures before opening
	Cooldown         time.Duration // time spent open before a trial send
	HalfOpenMaxCalls int

	// OnStateChange, when set, is called outside the lock after every transition.
	OnStateChange func(from, to BreakerState)
}

// ProtectedNotifier wraps a Notifier with a deadline and a circuit breaker so a dead mail
// provider fails PIN requests fast instead of holding the request open.
type ProtectedNotifier struct {
	inner Notifier
	cfg   ProtectedNotifierConfig
	now   func() time.Time

	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedNotifier(inner Notifier, cfg ProtectedNotifierConfig) *ProtectedNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedNotifier{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: StateClosed,
	}
}

func (n *ProtectedNotifier) State() BreakerState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *ProtectedNotifier) SendPIN(ctx context.Context, input SendPINInput) error {
	if !n.acquire() {
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	err := n.inner.SendPIN(sendCtx, input)

	n.release(err)

	return err
}

func (n *ProtectedNotifier) acquire() bool {
	n.mu.Lock()
	from := n.state
	allowed := true

	switch n.state {
	case StateOpen:
		if n.now().Sub(n.openedAt) < n.cfg.Cooldown {
			allowed = false
			break
		}
		n.state = StateHalfOpen
		n.halfOpenInFlight = 1
	case StateHalfOpen:
		if n.halfOpenInFlight >= n.cfg.HalfOpenMaxCalls {
			allowed = false
			break
		}
		n.halfOpenInFlight++
	}

	to := n.state
	n.mu.Unlock()

	n.notify(from, to)
	return allowed
}

func (n *ProtectedNotifier) release(err error) {
	n.mu.Lock()
	from := n.state

	if n.state == StateHalfOpen && n.halfOpenInFlight > 0 {
		n.halfOpenInFlight--
	}

	switch {
	case err == nil:
		n.consecutiveFailures = 0
		n.state = StateClosed
	case n.state == StateHalfOpen:
		n.consecutiveFailures++
		n.trip()
	default:
		n.consecutiveFailures++
		if n.consecutiveFailures >= n.cfg.FailureThreshold {
			n.trip()
		}
	}

	to := n.state
	n.mu.Unlock()

	n.notify(from, to)
}

// trip must be called with mu held.
func (n *ProtectedNotifier) trip() {
	n.state = StateOpen
	n.openedAt = n.now()
}

func (n *ProtectedNotifier) notify(from, to BreakerState) {
	if from != to && n.cfg.OnStateChange != nil {
		n.cfg.OnStateChange(from, to)
	}
}
