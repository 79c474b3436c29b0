package metricsserver

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
)

// Handler serves the metrics exposition format.
type Handler interface {
	ServeHTTP(ctx *fasthttp.RequestCtx)
}

// Start launches a dedicated metrics listener. Returns nil, nil when metrics
// are disabled. The listen address is checked against the public port during
// config validation.
func Start(cfg configtypes.MetricsConfig, handler Handler, serverName string, logger *zap.Logger) (*fasthttp.Server, error) {
	if !cfg.Enabled {
		logger.Info("Metrics collection disabled")
		return nil, nil
	}

	server := &fasthttp.Server{
		Handler:            newHandler(cfg.Path, handler),
		Name:               serverName + "-Metrics",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 1 * 1024,
		TCPKeepalive:       true,
		TCPKeepalivePeriod: 30 * time.Second,
		MaxConnsPerIP:      100,
		MaxRequestsPerConn: 1000,
		Concurrency:        100,
	}

	go func() {
		logger.Info("Metrics server listening",
			zap.String("listen", cfg.Listen),
			zap.String("path", cfg.Path))

		if err := server.ListenAndServe(cfg.Listen); err != nil {
			logger.Error("Metrics server stopped",
				zap.String("listen", cfg.Listen),
				zap.Error(err))
		}
	}()

	time.Sleep(100 * time.Millisecond)

	return server, nil
}

// Shutdown stops the metrics server if it was started.
func Shutdown(ctx context.Context, server *fasthttp.Server, logger *zap.Logger) {
	if server == nil {
		return
	}
	if err := server.ShutdownWithContext(ctx); err != nil {
		logger.Warn("Metrics server shutdown failed", zap.Error(err))
	}
}

func newHandler(path string, handler Handler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == path {
			handler.ServeHTTP(ctx)
			return
		}

		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("Not Found")
	}
}
