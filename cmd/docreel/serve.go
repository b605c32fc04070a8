package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/docreel/docreel-go/config"
	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/graph/emit"
	"github.com/docreel/docreel-go/job"
	"github.com/docreel/docreel-go/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the job HTTP API",
	Long: `Starts the job service: documents are submitted over HTTP, processed in
the background, and polled for results. Jobs orphaned by a previous
process are marked interrupted at startup so they can be resumed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		jobs, closeJobs, err := buildJobStore(cfg)
		if err != nil {
			return err
		}
		defer closeJobs()

		registry := prometheus.NewRegistry()
		metrics := graph.NewPrometheusMetrics(registry)
		emitter := emit.Multi{
			emit.NewLogEmitter(os.Stderr, cfg.LogJSON),
			job.NewProgressEmitter(jobs),
		}

		deps, cleanup, err := buildDeps(ctx, cfg, emitter, metrics)
		if err != nil {
			return err
		}
		defer cleanup()

		engine, err := pipeline.New(deps)
		if err != nil {
			return err
		}

		manager := job.NewManager(jobs, engine)
		if swept, err := manager.RecoverInterrupted(ctx); err != nil {
			return fmt.Errorf("recovery sweep: %w", err)
		} else if swept > 0 {
			fmt.Fprintf(os.Stderr, "marked %d orphaned job(s) interrupted\n", swept)
		}

		router := chi.NewRouter()
		router.Mount("/", job.NewRouter(manager))
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		srv := &http.Server{
			Addr:              cfg.Listen,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			fmt.Fprintf(os.Stderr, "listening on %s\n", cfg.Listen)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		manager.Wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildJobStore keeps job records in SQLite when checkpoints are local,
// otherwise in memory. Job durability follows checkpoint durability; a
// deployment with a shared checkpoint store still restarts cleanly
// because the recovery sweep runs per process.
func buildJobStore(cfg config.Config) (job.Store, func(), error) {
	if cfg.Checkpoint.Driver == "memory" {
		return job.NewMemStore(), func() {}, nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("data dir: %w", err)
	}
	st, err := job.NewSQLiteStore(filepath.Join(cfg.DataDir, "jobs.db"))
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}
