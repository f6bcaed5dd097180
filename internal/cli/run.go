package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"trivia-engine/internal/config"
)

// NewRunCmd builds the CLI subcommand that runs the engine: periodic
// maintenance sweeps plus the ops HTTP endpoints.
func NewRunCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the trivia engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), *configPath, *port)
		},
	}
}

func runEngine(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	sweepCtx, stopSweeps := context.WithCancel(ctx)
	defer stopSweeps()
	go sweepLoop(sweepCtx, eng, config.TTLDuration(cfg.Sweep.Interval, 5*time.Minute))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		eng.log.WithField("port", finalPort).Info("starting trivia engine")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			eng.log.WithError(err).Error("failed to start ops server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		eng.log.Info("shutting down...")
	case <-ctx.Done():
		eng.log.Info("context canceled, shutting down...")
	}
	stopSweeps()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func sweepLoop(ctx context.Context, eng *engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eng.sweepOnce(ctx)
		}
	}
}
