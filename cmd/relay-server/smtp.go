package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/rs/zerolog"

	"github.com/sungwon/mailchannels-relay/internal/archive"
	"github.com/sungwon/mailchannels-relay/internal/auth"
	"github.com/sungwon/mailchannels-relay/internal/config"
	"github.com/sungwon/mailchannels-relay/internal/delivery"
	smtpserver "github.com/sungwon/mailchannels-relay/internal/smtp"
)

// startSMTP starts the SMTP listener and returns the server for shutdown.
// An unauthenticated listener is only allowed on a loopback address.
func startSMTP(ctx context.Context, cfg *config.Config, svc delivery.Service, keys *auth.KeyStore, log zerolog.Logger) (*gosmtp.Server, error) {
	if !keys.Enabled() && !isLoopback(cfg.SMTP.Host) {
		return nil, fmt.Errorf("smtp listener on %s requires auth.clients", cfg.SMTP.Host)
	}

	var store archive.Store
	if cfg.Archive.Type != "" {
		var err error
		store, err = archive.New(ctx, archive.Config{
			Type:     cfg.Archive.Type,
			Path:     cfg.Archive.Path,
			Bucket:   cfg.Archive.S3Bucket,
			Prefix:   cfg.Archive.S3Prefix,
			Endpoint: cfg.Archive.S3Endpoint,
			Region:   cfg.Archive.S3Region,

			AccessKeyID:     cfg.Archive.S3AccessKeyID,
			SecretAccessKey: cfg.Archive.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("type", cfg.Archive.Type).Msg("message archive enabled")
	}

	backend := smtpserver.NewBackend(smtpserver.BackendConfig{
		Delivery:       svc,
		Keys:           keys,
		Log:            log,
		MaxConns:       cfg.SMTP.MaxConnections,
		AllowedDomains: cfg.SMTP.AllowedDomains,
		Archive:        store,
	})

	s := gosmtp.NewServer(backend)
	s.Addr = fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	s.Domain = cfg.SMTP.Domain
	s.ReadTimeout = cfg.SMTP.ReadTimeout
	s.WriteTimeout = cfg.SMTP.WriteTimeout
	s.MaxMessageBytes = cfg.SMTP.MaxMessageSize
	s.MaxRecipients = cfg.SMTP.MaxRecipients
	s.AllowInsecureAuth = isLoopback(cfg.SMTP.Host)

	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS certificate: %w", err)
		}
		s.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		s.EnableSMTPUTF8 = true
	} else if keys.Enabled() && !s.AllowInsecureAuth {
		log.Warn().Msg("smtp listener has no TLS certificate; AUTH will be refused")
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.Addr, err)
	}

	go func() {
		log.Info().Str("addr", s.Addr).Bool("tls", s.TLSConfig != nil).Msg("SMTP server listening")
		if err := s.Serve(ln); err != nil {
			log.Error().Err(err).Msg("SMTP server error")
		}
	}()

	return s, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
