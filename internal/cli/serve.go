package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/sqlheur/internal/engine"
	"github.com/roach88/sqlheur/internal/server"
	"github.com/roach88/sqlheur/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the heuristic list over HTTP",
		Long: `Serve the heuristic list, the recorded observations and Prometheus metrics.

With --target, queries POSTed to /controller/api/queries are scored against
that SQLite database and recorded in the observation store (--db).
Observation seq numbers continue from the store; a restart starts a new
epoch.

Settings come from flags, then SQLHEUR_* environment variables, then the
config file:
  serve.addr    SQLHEUR_SERVE_ADDR    (default :8080)
  serve.db      SQLHEUR_SERVE_DB      (default sqlheur.db)
  serve.target  SQLHEUR_SERVE_TARGET

Exit codes:
  0 - Server stopped
  2 - Command error (target database not found, address in use, etc.)

Examples:
  sqlheur serve
  sqlheur serve --addr :9090 --db observations.db --target app.db
  sqlheur serve --config sqlheur.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().String("db", "", "observation store path (default sqlheur.db)")
	cmd.Flags().String("target", "", "SQLite database POSTed queries are scored against")

	return cmd
}

// serveRuntime holds what a running server owns.
type serveRuntime struct {
	server   *server.Server
	store    *store.Store
	target   *sql.DB
	acc      *engine.Accumulator
	registry *prometheus.Registry
}

func (rt *serveRuntime) Close() error {
	var firstErr error
	if rt.target != nil {
		if err := rt.target.Close(); err != nil {
			firstErr = err
		}
	}
	if err := rt.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	v := opts.Config()
	for key, flag := range map[string]string{
		KeyServeAddr:   "addr",
		KeyServeDB:     "db",
		KeyServeTarget: "target",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return WrapExitError(ExitCommandError, "failed to bind flag", err)
		}
	}

	cfg, err := DecodeConfig(v)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	rt, err := newServeRuntime(ctx, cfg.Serve.DB, cfg.Serve.Target)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start server", err)
	}
	defer rt.Close()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("starting server",
		"addr", cfg.Serve.Addr,
		"store", cfg.Serve.DB,
		"target", cfg.Serve.Target,
		"epoch", rt.acc.Epoch())

	if err := rt.server.Run(ctx, cfg.Serve.Addr); err != nil {
		return WrapExitError(ExitCommandError, "server failed", err)
	}
	return nil
}

// newServeRuntime opens the observation store and, when targetPath is
// set, the target database, and builds the server around them.
func newServeRuntime(ctx context.Context, storePath, targetPath string) (*serveRuntime, error) {
	st, err := store.Open(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	rt := &serveRuntime{store: st}

	seq, err := st.LatestSeq(ctx)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to read latest seq: %w", err)
	}
	epoch, err := st.LatestEpoch(ctx)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to read latest epoch: %w", err)
	}
	// The heuristic list of an earlier process is gone; continuing its
	// epoch would mix two lists in one epoch.
	if seq > 0 {
		epoch++
	}
	rt.acc = engine.NewAccumulatorAt(epoch)

	rt.registry = prometheus.NewRegistry()
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := server.NewMetrics(rt.registry)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	serverOpts := []server.Option{
		server.WithObservations(st),
		server.WithMetrics(metrics, rt.registry),
	}

	if targetPath != "" {
		// store.OpenDB would create a missing file.
		if _, err := os.Stat(targetPath); err != nil {
			rt.Close()
			return nil, fmt.Errorf("target database not found: %s", targetPath)
		}
		target, err := store.OpenDB(targetPath)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to open target database: %w", err)
		}
		rt.target = target

		observer := engine.NewObserver(target, rt.acc,
			engine.WithRecorder(st),
			engine.WithClock(engine.NewClockAt(seq)),
			engine.WithSink(metrics),
		)
		serverOpts = append(serverOpts, server.WithObserver(observer))
	}

	rt.server = server.New(rt.acc, serverOpts...)
	return rt, nil
}
