// Relayd is the sponsor relay daemon. It accepts sponsored
// transactions over HTTP, attaches the sponsor's signature and fee,
// and broadcasts them to the configured network.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/audit"
	"github.com/blockberries/relay/chain"
	"github.com/blockberries/relay/config"
	relaygrpc "github.com/blockberries/relay/grpc"
	"github.com/blockberries/relay/local"
	"github.com/blockberries/relay/pipeline"
	"github.com/blockberries/relay/ratelimit"
	"github.com/blockberries/relay/server"
	"github.com/blockberries/relay/version"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("relayd", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	showVersion := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Printf("relayd %s\n", version.Full())
		return nil
	}

	settings, err := config.Load(flags)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(settings.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting relayd",
		"version", version.Info(),
		"network", settings.Relay.Network.Name,
		"node_url", settings.Relay.Network.CoreAPIURL,
		"rate_limit", settings.Relay.RateLimit.Capacity,
		"rate_window", settings.Relay.RateLimit.Window.String(),
		"rate_backend", settings.RateLimit.Backend,
	)
	if !settings.Relay.Configured() {
		logger.Warn("SPONSOR_PRIVATE_KEY is not set; every relay request will fail until it is configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := openSink(settings.Audit, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	dispatcher := audit.NewDispatcher(sink, audit.Config{
		AppID:     settings.Audit.AppID,
		QueueSize: settings.Audit.QueueSize,
		Timeout:   settings.Audit.Timeout,
		Logger:    logger,
	})
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(drainCtx); err != nil {
			logger.Warn("audit queue not drained", "error", err)
		}
		st := dispatcher.Stats()
		logger.Info("audit dispatcher stopped",
			"delivered", st.Delivered,
			"failed", st.Failed,
			"dropped", st.Dropped,
		)
	}()

	limiter, closeLimiter, err := openLimiter(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	gateway := chain.NewGateway(chain.NewClient(settings.NodeTimeout, logger), settings.SponsorFee)
	srv := server.New(server.Options{
		Orchestrator:    pipeline.NewOrchestrator(settings.Relay, gateway),
		Limiter:         limiter,
		Audit:           dispatcher,
		Version:         version.Short(),
		Logger:          logger,
		ShutdownTimeout: settings.ShutdownTimeout,
	})

	if err := srv.Run(ctx, settings.Listen); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("relayd stopped")
	return nil
}

// openSink returns the audit sink: a remote gRPC log sink when one is
// configured, otherwise the process log.
func openSink(cfg config.AuditSettings, logger *slog.Logger) (audit.Sink, func(), error) {
	if cfg.Sink == "" {
		logger.Info("audit events logged locally")
		return local.NewSink(logger), func() {}, nil
	}
	client, err := relaygrpc.Dial(cfg.Sink, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("audit sink: %w", err)
	}
	logger.Info("audit events sent to log sink", "addr", cfg.Sink)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("closing log sink connection", "error", err)
		}
	}, nil
}

// openLimiter builds the configured rate limiter backend.
func openLimiter(ctx context.Context, settings *config.Settings, logger *slog.Logger) (relay.RateLimiter, func(), error) {
	switch settings.RateLimit.Backend {
	case config.BackendRedis:
		client, err := ratelimit.DialRedis(ctx, settings.RateLimit.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
		return ratelimit.NewRedis(client, settings.RateLimit.RedisPrefix, settings.Relay.RateLimit), func() {
			if err := client.Close(); err != nil {
				logger.Warn("closing redis connection", "error", err)
			}
		}, nil

	default:
		mem := ratelimit.NewMemory(settings.Relay.RateLimit)
		if interval := settings.RateLimit.SweepInterval; interval > 0 {
			go mem.RunSweeper(ctx, interval, func(removed int) {
				if removed > 0 {
					logger.Debug("rate limit entries evicted", "removed", removed, "remaining", mem.Len())
				}
			})
		}
		return mem, func() {}, nil
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
