// Package smtp accepts mail over SMTP and relays each message through the
// delivery service.
package smtp

import (
	"context"
	"sync/atomic"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/rs/zerolog"

	"github.com/sungwon/mailchannels-relay/internal/archive"
	"github.com/sungwon/mailchannels-relay/internal/delivery"
	"github.com/sungwon/mailchannels-relay/internal/logger"
	"github.com/sungwon/mailchannels-relay/internal/metrics"
)

// KeyLookup resolves an API key to a client name.
type KeyLookup interface {
	Lookup(ctx context.Context, key string) (string, error)
	Enabled() bool
}

// BackendConfig configures a Backend.
type BackendConfig struct {
	Delivery delivery.Service
	Keys     KeyLookup
	Log      zerolog.Logger
	MaxConns int

	// AllowedDomains restricts MAIL FROM domains. Empty allows all.
	AllowedDomains []string

	// Archive receives a copy of every message accepted for relay. Nil
	// disables archiving.
	Archive archive.Store
}

// Backend implements the go-smtp Backend interface.
// It manages session creation and enforces connection limits.
type Backend struct {
	delivery       delivery.Service
	keys           KeyLookup
	log            zerolog.Logger
	maxConns       int
	allowedDomains []string
	archive        archive.Store
	active         atomic.Int64
}

// NewBackend creates a new SMTP backend.
func NewBackend(cfg BackendConfig) *Backend {
	return &Backend{
		delivery:       cfg.Delivery,
		keys:           cfg.Keys,
		log:            cfg.Log,
		maxConns:       cfg.MaxConns,
		allowedDomains: cfg.AllowedDomains,
		archive:        cfg.Archive,
	}
}

// requireAuth reports whether sessions must authenticate before MAIL FROM.
func (b *Backend) requireAuth() bool {
	return b.keys != nil && b.keys.Enabled()
}

// NewSession is called after a client sends EHLO/HELO. It enforces connection
// limits and creates a new Session for the connection.
func (b *Backend) NewSession(conn *gosmtp.Conn) (gosmtp.Session, error) {
	current := b.active.Add(1)
	if b.maxConns > 0 && int(current) > b.maxConns {
		b.active.Add(-1)
		metrics.SMTPConnectionsTotal.WithLabelValues("rejected").Inc()
		b.log.Warn().
			Int64("active", current-1).
			Int("max", b.maxConns).
			Msg("connection limit reached")
		return nil, &gosmtp.SMTPError{
			Code:         421,
			EnhancedCode: gosmtp.EnhancedCode{4, 7, 0},
			Message:      "Too many connections",
		}
	}
	metrics.SMTPConnectionsTotal.WithLabelValues("accepted").Inc()
	metrics.SMTPActiveSessions.Inc()

	remote := ""
	if conn != nil && conn.Conn() != nil {
		remote = conn.Conn().RemoteAddr().String()
	}
	return b.newSession(remote), nil
}

func (b *Backend) newSession(remote string) *Session {
	correlationID := logger.NewCorrelationID()
	ctx := logger.WithCorrelationID(context.Background(), correlationID)

	sessionLog := b.log.With().
		Str("correlation_id", correlationID).
		Str("remote_addr", remote).
		Logger()

	sessionLog.Info().Msg("new SMTP session")

	return &Session{
		ctx:           ctx,
		log:           sessionLog,
		backend:       b,
		authenticated: !b.requireAuth(),
	}
}

// ActiveSessions returns the current number of active SMTP sessions.
func (b *Backend) ActiveSessions() int64 {
	return b.active.Load()
}
