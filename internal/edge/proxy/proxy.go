// Package proxy forwards edge requests to the form service origin.
package proxy

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/clientip"
	"github.com/localcontactforms/contactform/internal/common/configtypes"
)

// UpstreamOrigin labels origin calls in upstream metrics
const UpstreamOrigin = "origin"

const defaultTimeout = 15 * time.Second

// BadGatewayBody is served when the origin cannot be reached.
const BadGatewayBody = "Bad Gateway: Origin unreachable"

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Observer receives the latency and outcome of every origin call.
type Observer interface {
	ObserveUpstream(upstream string, start time.Time, err error)
}

type Proxy struct {
	origin   string
	client   *fasthttp.Client
	timeout  time.Duration
	observer Observer
	logger   *zap.Logger
}

// New validates the origin URL. observer may be nil.
func New(cfg configtypes.OriginConfig, observer Observer, logger *zap.Logger) (*Proxy, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid origin url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid origin url %q: need http(s)://host", cfg.URL)
	}

	timeout := cfg.Timeout.OrDefault(defaultTimeout)
	return &Proxy{
		origin: strings.TrimSuffix(u.Scheme+"://"+u.Host, "/"),
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
			// forward the path exactly as the client sent it
			DisablePathNormalizing: true,
		},
		timeout:  timeout,
		observer: observer,
		logger:   logger,
	}, nil
}

// Origin returns the scheme and host requests are forwarded to.
func (p *Proxy) Origin() string {
	return p.origin
}

// Forward sends ctx's request to the origin and copies the reply into
// ctx.Response. When the origin is unreachable the response is a 502 and the
// error is returned.
func (p *Proxy) Forward(ctx *fasthttp.RequestCtx) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	ctx.Request.CopyTo(req)
	req.SetRequestURI(p.origin + string(ctx.RequestURI()))
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}
	req.Header.Set("X-Forwarded-Host", string(ctx.Host()))
	req.Header.Set("X-Forwarded-Proto", scheme(ctx))
	clientip.AppendForwardedFor(&req.Header, ctx.RemoteIP().String())

	start := time.Now()
	err := p.client.DoTimeout(req, resp, p.timeout)
	if p.observer != nil {
		p.observer.ObserveUpstream(UpstreamOrigin, start, err)
	}
	if err != nil {
		ctx.Response.Reset()
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString(BadGatewayBody)
		if errors.Is(err, fasthttp.ErrTimeout) {
			return fmt.Errorf("origin timed out after %s: %w", p.timeout, err)
		}
		return fmt.Errorf("origin request failed: %w", err)
	}

	resp.CopyTo(&ctx.Response)
	for _, h := range hopHeaders {
		ctx.Response.Header.Del(h)
	}

	p.logger.Debug("Proxied request",
		zap.String("path", string(ctx.Path())),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)),
		zap.Int("response_size", len(resp.Body())))
	return nil
}

// scheme reports the scheme the client used to reach the edge.
func scheme(ctx *fasthttp.RequestCtx) string {
	if proto := string(ctx.Request.Header.Peek("X-Forwarded-Proto")); proto != "" {
		return proto
	}
	if ctx.IsTLS() {
		return "https"
	}
	return "http"
}

// PageURL rebuilds the absolute URL the client requested.
func PageURL(ctx *fasthttp.RequestCtx) string {
	return scheme(ctx) + "://" + string(ctx.Host()) + string(ctx.RequestURI())
}
