package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/ncobase/querybridge/config"
	"github.com/sony/gobreaker"
)

// BreakerTransport guards a transport with a circuit breaker. Only engine
// side failures trip it: unanswered requests and 5xx statuses. A 4xx is the
// caller's fault and passes through as a success for the breaker.
type BreakerTransport struct {
	next Transport
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerTransport wraps next. A nil cfg uses the defaults from config.
func NewBreakerTransport(next Transport, cfg *config.Breaker) *BreakerTransport {
	if cfg == nil {
		cfg = &config.Breaker{MaxRequests: 100, FailureRatio: 0.6, MinRequests: 3}
	}
	minRequests := cfg.MinRequests
	ratio := cfg.FailureRatio

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(next.Engine()),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var te *TransportError
			if errors.As(err, &te) {
				return !te.IsServerSide()
			}
			return errors.Is(err, context.Canceled)
		},
	})

	return &BreakerTransport{next: next, cb: cb}
}

// State returns the current breaker state
func (b *BreakerTransport) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerTransport) do(fn func() (*Response, error)) (*Response, error) {
	var resp *Response
	_, err := b.cb.Execute(func() (any, error) {
		r, err := fn()
		resp = r
		return r, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &TransportError{
			Engine: b.next.Engine(),
			Type:   "circuit_open",
			Reason: err.Error(),
			Class:  "circuit_open",
			Err:    fmt.Errorf("%w: %w", ErrNoEngineAvailable, err),
		}
	}
	return resp, err
}

func (b *BreakerTransport) Engine() Engine { return b.next.Engine() }

func (b *BreakerTransport) Search(ctx context.Context, index string, body []byte) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.Search(ctx, index, body) })
}

func (b *BreakerTransport) Count(ctx context.Context, index string, body []byte) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.Count(ctx, index, body) })
}

func (b *BreakerTransport) Get(ctx context.Context, index, id string, sourceIncludes []string) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.Get(ctx, index, id, sourceIncludes) })
}

func (b *BreakerTransport) Index(ctx context.Context, index, id string, body []byte, refresh bool) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.Index(ctx, index, id, body, refresh) })
}

func (b *BreakerTransport) Bulk(ctx context.Context, index string, body []byte, refresh bool) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.Bulk(ctx, index, body, refresh) })
}

func (b *BreakerTransport) Delete(ctx context.Context, index, id string, refresh bool) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.Delete(ctx, index, id, refresh) })
}

func (b *BreakerTransport) DeleteByQuery(ctx context.Context, index string, body []byte, refresh bool) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.DeleteByQuery(ctx, index, body, refresh) })
}

func (b *BreakerTransport) OpenPointInTime(ctx context.Context, index, keepAlive string) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.OpenPointInTime(ctx, index, keepAlive) })
}

func (b *BreakerTransport) ClosePointInTime(ctx context.Context, id string) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.ClosePointInTime(ctx, id) })
}

func (b *BreakerTransport) GetMapping(ctx context.Context, index string) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.GetMapping(ctx, index) })
}

func (b *BreakerTransport) CreateIndex(ctx context.Context, index string, body []byte) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.CreateIndex(ctx, index, body) })
}

func (b *BreakerTransport) DeleteIndex(ctx context.Context, index string) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.DeleteIndex(ctx, index) })
}

func (b *BreakerTransport) IndexExists(ctx context.Context, index string) (bool, error) {
	exists := false
	_, err := b.do(func() (*Response, error) {
		ok, err := b.next.IndexExists(ctx, index)
		exists = ok
		return nil, err
	})
	return exists, err
}

func (b *BreakerTransport) PutMapping(ctx context.Context, index string, body []byte) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.PutMapping(ctx, index, body) })
}

func (b *BreakerTransport) PutSettings(ctx context.Context, index string, body []byte) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.PutSettings(ctx, index, body) })
}

func (b *BreakerTransport) CloseIndex(ctx context.Context, index string) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.CloseIndex(ctx, index) })
}

func (b *BreakerTransport) OpenIndex(ctx context.Context, index string) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.OpenIndex(ctx, index) })
}

func (b *BreakerTransport) Refresh(ctx context.Context, index string) (*Response, error) {
	return b.do(func() (*Response, error) { return b.next.Refresh(ctx, index) })
}

func (b *BreakerTransport) Health(ctx context.Context) error {
	_, err := b.do(func() (*Response, error) { return nil, b.next.Health(ctx) })
	return err
}
