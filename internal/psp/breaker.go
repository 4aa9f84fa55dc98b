package psp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerOptions configures the provider circuit breaker.
type BreakerOptions struct {
	// MaxFailures is the number of consecutive connection failures that opens the circuit.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a trial request.
	Timeout time.Duration
	Logger  *slog.Logger
}

// BreakerProvider guards a Provider with a circuit breaker. Only connection
// failures count against the circuit; client errors pass through untouched.
type BreakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps next with a circuit breaker.
func NewBreakerProvider(next Provider, opts BreakerOptions) *BreakerProvider {
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	logger := opts.Logger
	settings := gobreaker.Settings{
		Name:        "psp-" + next.Name(),
		MaxRequests: 1,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrConnection)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerProvider{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Name returns the wrapped provider's name.
func (b *BreakerProvider) Name() string {
	return b.next.Name()
}

// State returns the current circuit state.
func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}

// CreateSession opens a checkout session through the circuit breaker.
func (b *BreakerProvider) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.CreateSession(ctx, req)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return res.(*Session), nil
}

// RetrieveCheckout fetches a checkout through the circuit breaker.
func (b *BreakerProvider) RetrieveCheckout(ctx context.Context, apiKey, sessionID string) (*Checkout, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.RetrieveCheckout(ctx, apiKey, sessionID)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return res.(*Checkout), nil
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return err
}

var _ Provider = (*BreakerProvider)(nil)
var _ Provider = (*StripeProvider)(nil)
