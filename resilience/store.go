/*
Package resilience wraps a ledger.DocStore with circuit breaker and
timeout protection.

PURPOSE:
  The document store is a network dependency; every engine invocation
  blocks on it. This decorator fails fast when the store is down instead
  of piling up workers on a dead connection, and bounds each round-trip
  with a timeout.

EXPECTED ERRORS:
  ErrNoDocument and ErrVersionConflict are normal protocol outcomes, not
  store failures. They pass through without counting against the breaker.

SEE ALSO:
  - ledger/store.go: The wrapped interface
  - metrics: Observation sink
*/
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/logging"
	"github.com/warp/ledger-engine/metrics"
)

// Config controls the decorator.
type Config struct {
	// Timeout bounds each store round-trip. Zero disables the bound.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker when reached. Default 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// DefaultConfig returns production settings.
func DefaultConfig() Config {
	return Config{
		Timeout:             5 * time.Second,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// Store decorates a ledger.DocStore with a circuit breaker, a per-call
// timeout, logging, and metrics.
type Store struct {
	inner   ledger.DocStore
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	log     *logging.Logger
}

// Wrap decorates the given store.
func Wrap(inner ledger.DocStore, config Config, collector metrics.Collector, log *logging.Logger) *Store {
	if collector == nil {
		collector = metrics.NoOp{}
	}
	if log == nil {
		log = logging.NewNop()
	}
	log = log.Named("docstore")

	failures := config.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	s := &Store{
		inner:   inner,
		timeout: config.Timeout,
		metrics: collector,
		log:     log,
	}
	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "docstore",
		Timeout: config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ledger.ErrNoDocument) ||
				errors.Is(err, ledger.ErrVersionConflict)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			collector.RecordBreakerState(to.String())
		},
	})
	return s
}

// =============================================================================
// DOC STORE IMPLEMENTATION
// =============================================================================

func (s *Store) Commit(ctx context.Context, puts []ledger.Put) (time.Time, error) {
	var txTime time.Time
	err := s.execute(ctx, "commit", func(ctx context.Context) error {
		var err error
		txTime, err = s.inner.Commit(ctx, puts)
		return err
	})
	return txTime, err
}

func (s *Store) Get(ctx context.Context, id string) (ledger.Entry, error) {
	var entry ledger.Entry
	err := s.execute(ctx, "get", func(ctx context.Context) error {
		var err error
		entry, err = s.inner.Get(ctx, id)
		return err
	})
	return entry, err
}

func (s *Store) History(ctx context.Context, id string) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	err := s.execute(ctx, "history", func(ctx context.Context) error {
		var err error
		entries, err = s.inner.History(ctx, id)
		return err
	})
	return entries, err
}

func (s *Store) Query(ctx context.Context, q ledger.Query) ([]string, error) {
	var ids []string
	err := s.execute(ctx, "query", func(ctx context.Context) error {
		var err error
		ids, err = s.inner.Query(ctx, q)
		return err
	})
	return ids, err
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Store) execute(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	_, err := s.cb.Execute(func() (any, error) {
		callCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		return nil, fn(callCtx)
	})
	s.metrics.ObserveStoreOp(op, time.Since(start), err)

	if err != nil && !ledger.IsRetryable(err) && !errors.Is(err, ledger.ErrNoDocument) {
		s.log.Error("store operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}
