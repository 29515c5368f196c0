package delivery

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/sungwon/mailchannels-relay/internal/auth"
	"github.com/sungwon/mailchannels-relay/internal/metrics"
)

// Limiter decides whether a client may send now. *auth.RateLimiter
// implements it.
type Limiter interface {
	Allow(ctx context.Context, client string) error
}

// LimitedService applies a per-client send limit in front of another
// Service. If the limiter itself fails, the message is let through.
type LimitedService struct {
	next    Service
	limiter Limiter
	log     zerolog.Logger
}

// NewLimitedService wraps next with limiter.
func NewLimitedService(next Service, limiter Limiter, log zerolog.Logger) *LimitedService {
	return &LimitedService{
		next:    next,
		limiter: limiter,
		log:     log,
	}
}

// DeliverMessage returns an error wrapping auth.ErrRateLimited without
// sending when the client is over its limit.
func (l *LimitedService) DeliverMessage(ctx context.Context, req *Request) (*Result, error) {
	if err := l.limiter.Allow(ctx, req.Client); err != nil {
		if errors.Is(err, auth.ErrRateLimited) {
			metrics.RateLimitedTotal.WithLabelValues(req.Source).Inc()
			l.log.Warn().Str("client", req.Client).Str("source", req.Source).Msg("send rate limited")
			return nil, err
		}
		l.log.Warn().Err(err).Str("client", req.Client).Msg("rate limiter unavailable; sending anyway")
	}
	return l.next.DeliverMessage(ctx, req)
}
