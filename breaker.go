package neostaff

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings tunes a BreakerRunner.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a probe through.
	OpenTimeout time.Duration
}

// DefaultBreakerSettings opens after 5 consecutive failures and probes again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{MaxFailures: 5, OpenTimeout: 30 * time.Second}
}

// BreakerRunner is a DBRunner that stops calling the wrapped runner once the database
// keeps failing, returning gobreaker.ErrOpenState until the open timeout elapses.
type BreakerRunner struct {
	next    DBRunner
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerRunner wraps next in a circuit breaker named name.
func NewBreakerRunner(name string, next DBRunner, settings BreakerSettings, logger *zap.Logger) *BreakerRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.MaxFailures == 0 {
		settings.MaxFailures = DefaultBreakerSettings().MaxFailures
	}
	maxFailures := settings.MaxFailures

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerRunner{next: next, breaker: cb}
}

// Run forwards a write query through the breaker.
func (b *BreakerRunner) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	return b.execute(func() (*neo4j.EagerResult, error) {
		return b.next.Run(ctx, query, params)
	})
}

// RunRead forwards a read query through the breaker.
func (b *BreakerRunner) RunRead(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	return b.execute(func() (*neo4j.EagerResult, error) {
		return b.next.RunRead(ctx, query, params)
	})
}

// State reports the breaker's current state.
func (b *BreakerRunner) State() gobreaker.State {
	return b.breaker.State()
}

func (b *BreakerRunner) execute(call func() (*neo4j.EagerResult, error)) (*neo4j.EagerResult, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return call()
	})
	if err != nil {
		return nil, err
	}
	return out.(*neo4j.EagerResult), nil
}

// countsAsFailure is false for errors caused by the request itself: cancelled contexts
// and server-side client errors (bad Cypher, constraint violations).
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.") {
		return false
	}
	return true
}
