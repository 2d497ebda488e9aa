package main

import (
	"context"
	"errors"
	"expvar"
	"net"
	"net/http"
	"time"

	"aquamind/internal/adapters/httpapi"
	"aquamind/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = c.cfg.HTTP.Addr
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			handler, closeFn, err := c.buildHandler(cmd.Context())
			if err != nil {
				_ = ln.Close()
				return err
			}
			defer func() { _ = closeFn() }()
			return c.serve(cmd.Context(), ln, handler)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

// buildHandler wires storage, blob exports and the configured metrics
// backend into the API handler. expvar variables are always served at
// /debug/vars; the expvar backend also publishes service totals there.
func (c *cli) buildHandler(ctx context.Context) (http.Handler, func() error, error) {
	var (
		recorder core.MetricsRecorder
		metrics  http.Handler
	)
	switch c.cfg.Metrics.Backend {
	case "expvar":
		rec := core.NewExpvarMetricsRecorder("")
		c.logger.Info("expvar metrics enabled", "var", rec.Name())
		recorder = rec
	default:
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return nil, nil, err
		}
		recorder = rec
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	e, err := c.openService(ctx, core.WithMetrics(recorder))
	if err != nil {
		return nil, nil, err
	}
	exporter, err := c.openExporter(ctx)
	if err != nil {
		_ = e.close()
		return nil, nil, err
	}
	h := httpapi.NewHandler(e.svc)
	h.Exporter = exporter
	h.Logger = c.logger
	h.Metrics = metrics
	h.Vars = expvar.Handler()
	return h, e.close, nil
}

// serve runs an HTTP server on ln until ctx is cancelled, then drains it.
func (c *cli) serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		c.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
