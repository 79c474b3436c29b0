// Package server is the edge gateway request path: proxy to the origin,
// rewrite tenant meta tags on HTML pages and fire the analytics beacon.
package server

import (
	"context"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/analytics"
	"github.com/localcontactforms/contactform/internal/common/metrics"
	"github.com/localcontactforms/contactform/internal/common/requestid"
	"github.com/localcontactforms/contactform/internal/metatags"
	"github.com/localcontactforms/contactform/pkg/types"
)

// Endpoint labels for request metrics
const (
	endpointHealth   = "health"
	endpointRedirect = "redirect"
	endpointProxy    = "proxy"
)

// Forwarder sends the request to the origin and fills ctx.Response.
type Forwarder interface {
	Forward(ctx *fasthttp.RequestCtx) error
}

// ConfigFetcher returns a tenant's config from the origin.
type ConfigFetcher interface {
	Fetch(ctx context.Context, tenantID string) (types.TenantConfig, error)
}

type Deps struct {
	Origin   Forwarder
	Configs  ConfigFetcher
	Injector *metatags.Injector
	// Beacon is nil when page view logging is disabled.
	Beacon  *analytics.Builder
	Emitter analytics.Emitter
	Metrics *metrics.PrometheusMetrics
}

type Options struct {
	DefaultTenantID string
	PathPrefix      string
	LocalHosts      []string
	RewriteEnabled  bool
	ConfigTimeout   time.Duration
}

type Server struct {
	deps       Deps
	opts       Options
	localHosts map[string]struct{}
	logger     *zap.Logger
}

func NewServer(deps Deps, opts Options, logger *zap.Logger) *Server {
	if deps.Emitter == nil {
		deps.Emitter = analytics.NoopEmitter{}
	}
	local := make(map[string]struct{}, len(opts.LocalHosts))
	for _, h := range opts.LocalHosts {
		local[normalizeHost(h)] = struct{}{}
	}
	return &Server{deps: deps, opts: opts, localHosts: local, logger: logger}
}

func (s *Server) HandleRequest(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	requestID := requestid.FromRequest(ctx)
	logger := s.logger.With(zap.String("request_id", requestID))

	if s.deps.Metrics != nil {
		s.deps.Metrics.IncActiveRequests()
		defer s.deps.Metrics.DecActiveRequests()
	}

	endpoint := s.dispatch(ctx, logger)

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordRequest(endpoint, ctx.Response.StatusCode(), time.Since(start))
	}
	logger.Debug("Request completed",
		zap.String("method", string(ctx.Method())),
		zap.String("path", string(ctx.Path())),
		zap.Int("status_code", ctx.Response.StatusCode()),
		zap.Duration("duration", time.Since(start)))
}

func (s *Server) dispatch(ctx *fasthttp.RequestCtx, logger *zap.Logger) string {
	if string(ctx.Path()) == "/health" {
		s.handleHealth(ctx)
		return endpointHealth
	}

	if s.redirectToDefaultTenant(ctx) {
		return endpointRedirect
	}

	if err := s.deps.Origin.Forward(ctx); err != nil {
		logger.Warn("Origin request failed", zap.Error(err))
		return endpointProxy
	}

	s.maybeRewrite(ctx, logger)
	s.emitPageView(ctx)
	return endpointProxy
}

// redirectToDefaultTenant answers GET / without an id with a 302 to the
// configured default tenant.
func (s *Server) redirectToDefaultTenant(ctx *fasthttp.RequestCtx) bool {
	if s.opts.DefaultTenantID == "" || !ctx.IsGet() || string(ctx.Path()) != "/" {
		return false
	}
	if len(ctx.QueryArgs().Peek("id")) > 0 {
		return false
	}
	ctx.Response.Header.Set(fasthttp.HeaderLocation, "/?id="+url.QueryEscape(s.opts.DefaultTenantID))
	ctx.SetStatusCode(fasthttp.StatusFound)
	return true
}

// emitPageView hands successful page views to the emitter without waiting.
func (s *Server) emitPageView(ctx *fasthttp.RequestCtx) {
	if s.deps.Beacon == nil || ctx.Response.StatusCode() >= fasthttp.StatusBadRequest {
		return
	}
	event, _ := s.deps.Beacon.Build(ctx)
	if event != nil {
		s.deps.Emitter.Emit(event)
	}
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Content-Type", "text/plain")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString("OK")
}

// Shutdown flushes the event emitter.
func (s *Server) Shutdown() error {
	if err := s.deps.Emitter.Close(); err != nil {
		s.logger.Warn("Failed to close event emitter", zap.Error(err))
		return err
	}
	return nil
}
