// Package configclient fetches tenant configuration from the form service's
// get-tenant-config function.
package configclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/httputil"
	"github.com/localcontactforms/contactform/pkg/types"
)

// UpstreamConfig labels config fetches in upstream metrics
const UpstreamConfig = "tenant_config"

const defaultTimeout = 5 * time.Second

var (
	// ErrStatus wraps any non-200 reply.
	ErrStatus = errors.New("unexpected config status")
	// ErrMissingConfig means the reply decoded but carried no config object.
	ErrMissingConfig = errors.New("config missing from response")
)

type Observer interface {
	ObserveUpstream(upstream string, start time.Time, err error)
}

type response struct {
	Config types.TenantConfig `json:"config"`
}

// Client calls GET <origin><path>?id=<tenant>.
type Client struct {
	endpoint string
	client   *fasthttp.Client
	timeout  time.Duration
	observer Observer
	logger   *zap.Logger
}

// New builds a client for origin (scheme://host) and path. observer may be nil.
func New(origin, path string, timeout time.Duration, observer Observer, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: strings.TrimSuffix(origin, "/") + "/" + strings.TrimPrefix(path, "/"),
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		timeout:  timeout,
		observer: observer,
		logger:   logger,
	}
}

// Fetch returns the tenant's config. The call is bounded by the client
// timeout and by ctx's deadline, whichever is sooner.
func (c *Client) Fetch(ctx context.Context, tenantID string) (cfg types.TenantConfig, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(UpstreamConfig, start, err)
		}
	}()

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("fetch config for %q: %w", tenantID, context.DeadlineExceeded)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint + "?id=" + url.QueryEscape(tenantID))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("fetch config for %q: %w", tenantID, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		var body httputil.ErrorResponse
		_ = json.Unmarshal(resp.Body(), &body)
		return nil, fmt.Errorf("fetch config for %q: %w: %d %s", tenantID, ErrStatus, resp.StatusCode(), body.Error)
	}

	var out response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode config for %q: %w", tenantID, err)
	}
	if out.Config == nil {
		return nil, fmt.Errorf("fetch config for %q: %w", tenantID, ErrMissingConfig)
	}

	c.logger.Debug("Fetched tenant config",
		zap.String("tenant_id", tenantID),
		zap.Int("keys", len(out.Config)),
		zap.Duration("duration", time.Since(start)))
	return out.Config, nil
}
