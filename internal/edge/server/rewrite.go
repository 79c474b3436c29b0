package server

import (
	"context"
	"net"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/metrics"
	"github.com/localcontactforms/contactform/internal/edge/proxy"
	"github.com/localcontactforms/contactform/internal/metatags"
	"github.com/localcontactforms/contactform/internal/tenant"
)

// HTMLContentType is set on every rewritten page.
const HTMLContentType = "text/html; charset=utf-8"

// maybeRewrite injects the tenant's meta tags into an HTML response. Any
// failure leaves the origin response untouched.
func (s *Server) maybeRewrite(ctx *fasthttp.RequestCtx, logger *zap.Logger) {
	if !s.opts.RewriteEnabled {
		return
	}
	if !strings.Contains(strings.ToLower(string(ctx.Response.Header.ContentType())), "text/html") {
		return
	}
	tenantID := tenant.IDFromRequest(string(ctx.Path()), string(ctx.QueryArgs().Peek("id")), s.opts.PathPrefix)
	if tenantID == "" {
		return
	}
	logger = logger.With(zap.String("tenant_id", tenantID))

	if s.isLocalHost(string(ctx.Host())) {
		logger.Debug("Skipping meta rewrite for local host", zap.String("host", string(ctx.Host())))
		s.recordRewrite(metrics.OutcomeSkipped)
		return
	}

	encoding := string(ctx.Response.Header.ContentEncoding())
	body, err := proxy.Decode(encoding, ctx.Response.Body())
	if err != nil {
		s.failOpen(logger, "decode response body", err)
		return
	}

	c, cancel := s.configContext()
	defer cancel()

	cfg, err := s.deps.Configs.Fetch(c, tenantID)
	if err != nil {
		s.failOpen(logger, "fetch tenant config", err)
		return
	}

	res, err := s.deps.Injector.Rewrite(string(body), metatags.Input{
		Config:  cfg,
		PageURL: proxy.PageURL(ctx),
	})
	if err != nil {
		s.failOpen(logger, "rewrite meta tags", err)
		return
	}

	ctx.Response.Header.Del(fasthttp.HeaderContentEncoding)
	ctx.Response.Header.SetContentType(HTMLContentType)
	ctx.Response.SetBodyString(res.HTML)
	s.recordRewrite(metrics.OutcomeRewritten)

	logger.Debug("Rewrote meta tags",
		zap.Strings("replaced", res.Replaced),
		zap.Strings("inserted", res.Inserted))
}

func (s *Server) failOpen(logger *zap.Logger, step string, err error) {
	logger.Warn("Meta rewrite failed, serving origin response", zap.String("step", step), zap.Error(err))
	s.recordRewrite(metrics.OutcomeFailed)
}

func (s *Server) recordRewrite(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordMetaRewrite(outcome)
	}
}

func (s *Server) configContext() (context.Context, context.CancelFunc) {
	if s.opts.ConfigTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.opts.ConfigTimeout)
}

func (s *Server) isLocalHost(host string) bool {
	_, ok := s.localHosts[normalizeHost(host)]
	return ok
}

// normalizeHost lower-cases host and strips any port.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		return strings.Trim(h, "[]")
	}
	return strings.Trim(host, "[]")
}
