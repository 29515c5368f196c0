package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/redis/go-redis/v9"

	"github.com/sungwon/mailchannels-relay/internal/api"
	"github.com/sungwon/mailchannels-relay/internal/auth"
	"github.com/sungwon/mailchannels-relay/internal/config"
	"github.com/sungwon/mailchannels-relay/internal/delivery"
	"github.com/sungwon/mailchannels-relay/internal/logger"
	"github.com/sungwon/mailchannels-relay/internal/mailchannels"
	"github.com/sungwon/mailchannels-relay/internal/storage"
)

func main() {
	configDir := flag.String("config", "config", "directory containing config.yaml")
	genKey := flag.String("gen-key", "", "print a new API key and config entry for the named client, then exit")
	flag.Parse()

	if *genKey != "" {
		if err := printNewKey(*genKey); err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate key: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewFromConfig(logger.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	log.Info().Msg("starting relay server")

	ctx := context.Background()

	client := mailchannels.NewClient(mailchannels.Config{
		Endpoint: cfg.MailChannels.Endpoint,
		DKIM: mailchannels.DKIMConfig{
			Domain:     cfg.DKIM.Domain,
			Selector:   cfg.DKIM.Selector,
			PrivateKey: cfg.DKIM.PrivateKey,
		},
	}, mailchannels.NewHTTPClient(cfg.MailChannels.Timeout))

	if client.Signing() {
		log.Info().Str("dkim_domain", cfg.DKIM.Domain).Str("dkim_selector", cfg.DKIM.Selector).Msg("DKIM signing enabled")
	} else if cfg.DKIM.Domain != "" || cfg.DKIM.Selector != "" || cfg.DKIM.PrivateKey != "" {
		log.Warn().Msg("DKIM settings are incomplete; messages will be sent unsigned")
	}

	routerCfg := api.RouterConfig{
		Log:          log,
		MaxBodyBytes: cfg.API.MaxBodyBytes,
	}

	// Delivery log
	var recorder delivery.Recorder
	if cfg.Database.URL != "" {
		db, err := storage.NewDB(ctx, storage.PoolConfig{
			URL:            cfg.Database.URL,
			MinConns:       cfg.Database.PoolMin,
			MaxConns:       cfg.Database.PoolMax,
			ConnectTimeout: cfg.Database.ConnectTimeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}

		recorder = db
		routerCfg.Logs = db
		routerCfg.Checks = append(routerCfg.Checks, api.ReadinessCheck{Name: "database", Ping: db.Ping})
		log.Info().Msg("delivery log enabled")
	}

	var svc delivery.Service = delivery.NewSyncService(client, recorder, log)

	// Per-client rate limiting
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		limiter := auth.NewRateLimiter(rdb, auth.RateLimitConfig{
			Limit:  cfg.RateLimit.Limit,
			Window: cfg.RateLimit.Window,
		})
		svc = delivery.NewLimitedService(svc, limiter, log)
		routerCfg.Checks = append(routerCfg.Checks, api.ReadinessCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		log.Info().
			Int("limit", cfg.RateLimit.Limit).
			Dur("window", cfg.RateLimit.Window).
			Msg("rate limiting enabled")
	}
	routerCfg.Service = svc

	// API keys
	clients := make([]auth.Client, 0, len(cfg.Auth.Clients))
	for _, c := range cfg.Auth.Clients {
		clients = append(clients, auth.Client{Name: c.Name, KeyHash: c.KeyHash})
	}
	keys := auth.NewKeyStore(clients)
	if keys.Enabled() {
		routerCfg.Auth = auth.BearerAuth(keys.Lookup)
		log.Info().Int("clients", len(clients)).Msg("API key authentication enabled")
	} else {
		log.Warn().Msg("no API clients configured; send endpoint is unauthenticated")
	}

	var smtpSrv *gosmtp.Server
	if cfg.SMTP.Enabled {
		smtpSrv, err = startSMTP(ctx, cfg, svc, keys, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start SMTP server")
		}
	}

	// Configure HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if smtpSrv != nil {
		if err := smtpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("SMTP server shutdown error")
		}
	}

	log.Info().Msg("server stopped")
}

func printNewKey(name string) error {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		return err
	}
	hash, err := auth.HashAPIKey(key)
	if err != nil {
		return err
	}

	fmt.Printf("API key for %s (shown once):\n  %s\n\n", name, key)
	fmt.Printf("Add to config.yaml under auth.clients:\n")
	fmt.Printf("  - name: %s\n    key_hash: %q\n", name, hash)
	return nil
}
