// Package main is the entry point for the ledger GraphQL server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pigeonworks-llc/account-ledger/internal/api"
	"github.com/pigeonworks-llc/account-ledger/internal/events"
	"github.com/pigeonworks-llc/account-ledger/internal/ledger"
	"github.com/pigeonworks-llc/account-ledger/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured JSON logging.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	required, err := cfg.SinkRequirements()
	if err != nil {
		return err
	}
	required = append(required, []string{"server", "port"})
	if err := cfg.Validate(required...); err != nil {
		return err
	}

	sinks, err := buildSinks(cfg.Events, logger)
	if err != nil {
		return err
	}

	dispatcher := events.NewDispatcher(logger, cfg.Events.Buffer, sinks...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			slog.Error("failed to close event sinks", "error", err)
		}
	}()

	store := ledger.New(ledger.WithObserver(dispatcher))

	r, err := api.NewRouter(store, api.Config{
		AllowedOrigins: cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxDepth:       cfg.Server.GraphQLMaxDepth,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	slog.Info("starting ledger server", "addr", addr, "sinks", cfg.Events.Sinks)

	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		slog.Info("shutting down server")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildSinks opens every configured event sink. Sinks opened before a
// failure are closed again.
func buildSinks(cfg config.EventsConfig, logger *slog.Logger) ([]events.Sink, error) {
	var sinks []events.Sink
	fail := func(err error) ([]events.Sink, error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}

	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, events.NewLogSink(logger))
		case config.SinkJournal:
			s, err := events.NewJournalSink(cfg.JournalPath)
			if err != nil {
				return fail(err)
			}
			slog.Info("events journal opened", "path", cfg.JournalPath)
			sinks = append(sinks, s)
		case config.SinkKafka:
			s, err := events.NewKafkaSink(events.KafkaConfig{
				Brokers: cfg.KafkaBrokers,
				Topic:   cfg.KafkaTopic,
			}, logger)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		case config.SinkAMQP:
			s, err := events.NewAMQPSink(events.AMQPConfig{
				URL:        cfg.AMQPURL,
				Exchange:   cfg.AMQPExchange,
				RoutingKey: cfg.AMQPRoutingKey,
			})
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		default:
			return fail(fmt.Errorf("unknown event sink %q", name))
		}
	}

	return sinks, nil
}
