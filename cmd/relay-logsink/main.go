// Relay-logsink is a reference audit log sink. It serves the LogSink
// gRPC service and writes every received event to stdout as one JSON
// line.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	relaygrpc "github.com/blockberries/relay/grpc"
	"github.com/blockberries/relay/local"
	"github.com/blockberries/relay/version"

	"google.golang.org/grpc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	listen := pflag.String("listen", "127.0.0.1:9090", "gRPC listen address")
	name := pflag.String("name", "relay-logsink", "sink name reported by Ping")
	debug := pflag.Bool("debug", true, "write debug-level events")
	showVersion := pflag.Bool("version", false, "print version information and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Printf("relay-logsink %s\n", version.Info())
		return nil
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	// Events go to stdout; the sink's own logs go to stderr.
	events := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", *listen, err)
	}

	gs := grpc.NewServer()
	relaygrpc.NewGRPCServer(local.NewSink(events), *name).Register(gs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		gs.GracefulStop()
	}()

	logger.Info("relay-logsink listening", "addr", lis.Addr().String(), "version", version.Info())
	if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
