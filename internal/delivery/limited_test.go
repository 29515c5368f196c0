package delivery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sungwon/mailchannels-relay/internal/auth"
)

type mockLimiter struct {
	err     error
	clients []string
}

func (m *mockLimiter) Allow(_ context.Context, client string) error {
	m.clients = append(m.clients, client)
	return m.err
}

type countingService struct {
	calls int
}

func (c *countingService) DeliverMessage(context.Context, *Request) (*Result, error) {
	c.calls++
	return &Result{Provider: "mock"}, nil
}

func TestLimitedService(t *testing.T) {
	tests := []struct {
		name      string
		limitErr  error
		wantErr   bool
		wantCalls int
	}{
		{"allowed", nil, false, 1},
		{"limited", fmt.Errorf("%w (3/2 per 1m0s)", auth.ErrRateLimited), true, 0},
		{"limiter down", errors.New("dial tcp: connection refused"), false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &countingService{}
			limiter := &mockLimiter{err: tt.limitErr}
			svc := NewLimitedService(next, limiter, zerolog.Nop())

			_, err := svc.DeliverMessage(context.Background(), &Request{Email: testEmail(), Client: "billing", Source: "api"})

			if tt.wantErr != errors.Is(err, auth.ErrRateLimited) {
				t.Errorf("unexpected error %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if next.calls != tt.wantCalls {
				t.Errorf("expected %d deliveries, got %d", tt.wantCalls, next.calls)
			}
			if len(limiter.clients) != 1 || limiter.clients[0] != "billing" {
				t.Errorf("expected limiter to see client billing, got %v", limiter.clients)
			}
		})
	}
}
