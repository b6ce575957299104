package bank

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/DanielPopoola/posnet-gateway/internal/application"
	"github.com/DanielPopoola/posnet-gateway/internal/config"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

// RetryGateway retries read-only operations on technical failures. Anything
// that moves money is sent exactly once; its outcome after a timeout is settled
// with an agreement status query instead.
type RetryGateway struct {
	inner      application.Gateway
	baseDelay  time.Duration
	maxRetries int
	logger     *slog.Logger
}

func NewRetryGateway(inner application.Gateway, cfg config.RetryConfig, logger *slog.Logger) *RetryGateway {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryGateway{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

func (r *RetryGateway) Send(ctx context.Context, req posnet.Request) (posnet.Response, error) {
	if !req.Operation().ReadOnly() {
		return r.inner.Send(ctx, req)
	}

	var (
		resp posnet.Response
		err  error
	)
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.backoff(attempt - 1)
			r.logger.Warn("retrying gateway inquiry",
				"operation", req.Operation(),
				"attempt", attempt+1,
				"delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err = r.inner.Send(ctx, req)
		if !shouldRetry(resp, err) {
			return resp, err
		}
	}

	return resp, err
}

// shouldRetry is true for a transport failure or a reply carrying a
// technical code.
func shouldRetry(resp posnet.Response, err error) bool {
	if err != nil {
		code, ok := domain.GatewayCode(err)
		return ok && code.IsRetryable()
	}
	if resp == nil || resp.Successful() {
		return false
	}
	return resp.Outcome().Code.IsRetryable()
}

// backoff is exponential in attempt with up to half the delay added as jitter.
func (r *RetryGateway) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	if base <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
	return base + jitter
}
