package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/bigramdict"
	"github.com/hupe1980/bigramdict/internal/server"
	bigramprom "github.com/hupe1980/bigramdict/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(o *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			s, err := o.open(ctx, cmd.ErrOrStderr(), bigramdict.WithMetricsCollector(bigramprom.NewCollector(reg)))
			if err != nil {
				return err
			}
			defer s.Close()
			reg.MustRegister(bigramprom.NewStatsCollector(s.dict))

			if addr == "" {
				addr = s.cfg.ListenAddr()
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			return serve(ctx, s, ln, reg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.bind and server.port")
	return cmd
}

// serve runs the API on ln until ctx is done, then saves a final snapshot.
func serve(ctx context.Context, s *session, ln net.Listener, reg *prometheus.Registry) error {
	logger := s.logger

	if iv := s.cfg.Server.MaintenanceInterval; iv > 0 {
		stopMaintenance := s.dict.StartMaintenance(ctx, iv)
		defer stopMaintenance()
	}
	if iv := s.cfg.Server.SnapshotInterval; iv > 0 {
		go snapshotLoop(ctx, s.dict, iv)
	}

	httpServer := &http.Server{
		Handler:           server.New(s.dict, VersionString(), server.WithGatherer(reg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", ln.Addr().String(), "store", s.cfg.Store.Type)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, err)
	}

	if _, err := s.dict.Save(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("final snapshot: %w", err))
	}
	return serveErr
}

func snapshotLoop(ctx context.Context, d *bigramdict.Dictionary, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Save logs its own failures.
			_, _ = d.Save(ctx)
		}
	}
}
