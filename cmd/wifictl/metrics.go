package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/arloliu/go-espwifi/esp32"
	"github.com/arloliu/go-espwifi/internal/config"
	"github.com/arloliu/go-espwifi/internal/metrics"
	"github.com/arloliu/go-espwifi/logger"
)

// serveMetrics starts the Prometheus endpoint and returns a function that
// shuts it down.
func serveMetrics(cfg config.MetricsConfig, drv *esp32.Driver, log logger.Logger) (func(), error) {
	reg := metrics.NewRegistry()
	reg.MustRegister(metrics.NewCollector(drv))

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler(reg))

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()

	log.Info("serving metrics", "addr", ln.Addr().String(), "path", cfg.Path)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
	}, nil
}
