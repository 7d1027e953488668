package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowbridge/syncd/internal/engine"
	"github.com/flowbridge/syncd/internal/logger"
	"github.com/flowbridge/syncd/internal/telemetry"
	"github.com/flowbridge/syncd/pkg/config"
	"github.com/flowbridge/syncd/pkg/driver/fake"
	"github.com/flowbridge/syncd/pkg/kvstore"
	"github.com/flowbridge/syncd/pkg/kvstore/badger"
	"github.com/flowbridge/syncd/pkg/kvstore/memory"
	"github.com/flowbridge/syncd/pkg/metrics"
	"github.com/flowbridge/syncd/pkg/recorder"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the syncd daemon",
	Long: `Start the syncd reconciliation daemon with the specified
configuration, running until interrupted or asked to shut down.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "syncd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("error closing store", "error", err)
		}
	}()

	m := setupMetrics(cfg)

	stream, closeStream, err := openRecordingStream(cfg, m.Recorder)
	if err != nil {
		return fmt.Errorf("failed to open recording stream: %w", err)
	}
	defer closeStream()

	// No real vendor SAI binding ships with this project (out of scope);
	// the in-memory fake driver stands in for it so the daemon can run.
	drv := fake.New()

	e := engine.New(cfg, store, drv, stream, m, 1)
	if err := e.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serveDone := make(chan error, 1)
	go func() { serveDone <- e.Serve(ctx) }()

	logger.Info("syncd is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		e.RequestShutdown(engine.ShutdownCold)
		if err := <-serveDone; err != nil {
			logger.Error("serve error", "error", err)
			return err
		}
	case err := <-serveDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("serve error", "error", err)
			return err
		}
	}

	logger.Info("syncd stopped")
	return nil
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func openStore(cfg *config.Config) (kvstore.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memory.New(), nil
	case "badger", "":
		return badger.Open(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openRecordingStream(cfg *config.Config, m *metrics.RecorderMetrics) (recorder.Stream, func(), error) {
	if !cfg.Recording.Enabled {
		return recorder.NullStream{}, func() {}, nil
	}

	rec, err := recorder.New(cfg.Recording.Path)
	if err != nil {
		return nil, nil, err
	}
	rec.SetMetrics(m)
	stop := rec.WatchRotateSignal()
	return rec, func() {
		stop()
		if err := rec.Close(); err != nil {
			logger.Warn("error closing recording stream", "error", err)
		}
	}, nil
}

func setupMetrics(cfg *config.Config) engine.Metrics {
	if !cfg.Metrics.Enabled {
		return engine.Metrics{}
	}
	metrics.InitRegistry()

	m := engine.Metrics{
		Reconcile: metrics.NewReconcileMetrics(),
		Executor:  metrics.NewExecutorMetrics(),
		Recorder:  metrics.NewRecorderMetrics(),
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			logger.Info("metrics server listening", "addr", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, metrics.Handler()); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	return m
}
