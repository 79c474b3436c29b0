package functions

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/metrics"
	"github.com/localcontactforms/contactform/internal/common/requestid"
)

// System paths
const (
	PathHealth = "/health"
	PathReady  = "/ready"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server is the form service front door: request ids, metrics and the
// route table.
type Server struct {
	router  *Router
	metrics *metrics.PrometheusMetrics
	checks  []ReadinessCheck
	logger  *zap.Logger
}

// NewServer registers the health checks on router. metrics may be nil.
func NewServer(router *Router, pm *metrics.PrometheusMetrics, checks []ReadinessCheck, logger *zap.Logger) *Server {
	s := &Server{router: router, metrics: pm, checks: checks, logger: logger}
	router.Handle(fasthttp.MethodGet, PathHealth, s.handleHealth)
	router.Handle(fasthttp.MethodGet, PathReady, s.handleReady)
	return s
}

func (s *Server) HandleRequest(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	requestID := requestid.FromRequest(ctx)

	method := string(ctx.Method())
	path := string(ctx.Path())
	handler, endpoint := s.router.Lookup(method, path)

	if s.metrics != nil {
		s.metrics.IncActiveRequests()
		defer s.metrics.DecActiveRequests()
	}

	handler(ctx)

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordRequest(endpoint, ctx.Response.StatusCode(), duration)
	}

	if path == PathHealth || path == PathReady {
		return
	}
	s.logger.Debug("Request served",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("duration", duration))
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Content-Type", "text/plain")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString("OK")
}

func (s *Server) handleReady(ctx *fasthttp.RequestCtx) {
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, check := range s.checks {
		if err := check.Check(c); err != nil {
			s.logger.Warn("Readiness check failed", zap.String("check", check.Name), zap.Error(err))
			ctx.Response.Header.Set("Content-Type", "text/plain")
			ctx.Response.SetStatusCode(fasthttp.StatusServiceUnavailable)
			ctx.Response.SetBodyString(check.Name + " not available")
			return
		}
	}

	ctx.Response.Header.Set("Content-Type", "text/plain")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString(fmt.Sprintf("OK - %d checks passed", len(s.checks)))
}
