package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/neox5/decodeceph/internal/app"
	"github.com/neox5/decodeceph/internal/config"
	"github.com/neox5/decodeceph/internal/exporter"
	"github.com/neox5/decodeceph/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newCommand(run).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newCommand builds the CLI; action receives the number of -d occurrences.
func newCommand(action func(ctx context.Context, cmd *cli.Command, verbosity int) error) *cli.Command {
	var verbosity int

	return &cli.Command{
		Name:                   "decodeceph",
		Usage:                  "Decode Ceph operations and forward them to metrics outputs",
		Version:                version.String(),
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "path to config file",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "sets the level of debugging information, repeat for more (-ddd)",
				Config:  cli.BoolConfig{Count: &verbosity},
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "address to serve Prometheus metrics on, disabled when empty",
			},
			&cli.StringFlag{
				Name:  "otlp-endpoint",
				Usage: "host:port of an OTLP collector to push metrics to, disabled when empty",
			},
			&cli.StringFlag{
				Name:  "otlp-protocol",
				Value: exporter.ProtocolHTTP,
				Usage: "OTLP transport, http or grpc",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return action(ctx, cmd, verbosity)
		},
	}
}

// setupLogging installs a text logger at level as the default.
func setupLogging(level config.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return logger
}

func run(ctx context.Context, cmd *cli.Command, verbosity int) error {
	// Log at the requested level while the config file is resolved
	logger := setupLogging(config.LevelFromCount(verbosity))

	cfg := config.NewResolver(config.WithLogger(logger)).Resolve(config.Inputs{
		Path:      cmd.String("config"),
		Verbosity: verbosity,
	})
	if cfg.Verbosity != config.LevelFromCount(verbosity) {
		logger = setupLogging(cfg.Verbosity)
	}

	slog.Info("starting decodeceph",
		"version", version.String(),
		"config", cfg.ConfigPath,
		"outputs", cfg.Outputs,
		"verbosity", cfg.Verbosity)

	application, err := app.New(cfg, app.Options{
		MetricsAddr:  cmd.String("metrics-addr"),
		OTLPEndpoint: cmd.String("otlp-endpoint"),
		OTLPProtocol: cmd.String("otlp-protocol"),
		Version:      version.String(),
		Stdout:       os.Stdout,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			slog.Warn("failed to close outputs", "error", err)
		}
	}()

	// Setup graceful shutdown
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application.Monitor.Run(shutdownCtx)
	defer application.Monitor.Wait()

	var wg sync.WaitGroup
	errChan := make(chan error, 1)

	if application.PrometheusExporter != nil {
		wg.Go(func() {
			if err := application.PrometheusExporter.Start(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("prometheus exporter: %w", err)
			}
		})
	}

	if application.OTELExporter != nil {
		wg.Go(func() {
			if err := application.OTELExporter.Start(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("otel exporter: %w", err)
			}
		})
		defer func() {
			if err := application.OTELExporter.Stop(); err != nil {
				slog.Warn("failed to stop otel exporter", "error", err)
			}
		}()
	}

	// Stdin reads cannot be interrupted; on signal the stream goroutine is abandoned
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- application.Stream(shutdownCtx, os.Stdin)
	}()

	var runErr error
	select {
	case runErr = <-errChan:
		slog.Error("exporter error", "error", runErr)
	case err := <-streamErr:
		if err != nil {
			runErr = fmt.Errorf("input stream: %w", err)
			slog.Error("input error", "error", err)
		} else {
			slog.Debug("input stream finished")
		}
	case <-shutdownCtx.Done():
		// Graceful shutdown triggered
	}
	stop()

	wg.Wait()

	slog.Info("shutdown complete")
	return runErr
}
