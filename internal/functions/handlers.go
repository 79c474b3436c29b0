// Package functions is the HTTP surface of the form service: the three
// function endpoints, the form page routes and the health checks.
package functions

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/analytics"
	"github.com/localcontactforms/contactform/internal/common/apperr"
	"github.com/localcontactforms/contactform/internal/common/clientip"
	"github.com/localcontactforms/contactform/internal/common/httputil"
	"github.com/localcontactforms/contactform/internal/common/requestid"
	"github.com/localcontactforms/contactform/internal/submission"
	"github.com/localcontactforms/contactform/pkg/types"
)

// Function paths
const (
	PathPrefix          = "/.netlify/functions/"
	PathGetTenantConfig = PathPrefix + "get-tenant-config"
	PathSubmitForm      = PathPrefix + "submit-form"
	PathLogAnalytics    = PathPrefix + "log-analytics"
)

// Caller-facing messages
const (
	MissingTenantIDMessage = "Tenant ID is required (use ?id=xxx or ?tenantId=xxx)"
	InvalidBodyMessage     = "Invalid request body"
)

// ConfigResponse is the body of a successful get-tenant-config call.
type ConfigResponse struct {
	Config types.TenantConfig `json:"config"`
}

type ConfigResolver interface {
	Resolve(ctx context.Context, tenantID string) (types.TenantConfig, error)
}

type Submitter interface {
	Submit(ctx context.Context, payload types.FormSubmission, meta submission.RequestMeta) (*submission.Result, error)
}

type EventRecorder interface {
	Record(ctx context.Context, event *types.AnalyticsEvent) error
}

// Handlers implements the three function endpoints.
type Handlers struct {
	resolver  ConfigResolver
	submitter Submitter
	recorder  EventRecorder
	ipHeaders []string
	timeout   time.Duration
	logger    *zap.Logger
}

func NewHandlers(resolver ConfigResolver, submitter Submitter, recorder EventRecorder, ipHeaders []string, timeout time.Duration, logger *zap.Logger) *Handlers {
	return &Handlers{
		resolver:  resolver,
		submitter: submitter,
		recorder:  recorder,
		ipHeaders: ipHeaders,
		timeout:   timeout,
		logger:    logger,
	}
}

// Register adds the function endpoints to r.
func (h *Handlers) Register(r *Router) {
	r.Function(fasthttp.MethodGet, PathGetTenantConfig, h.GetTenantConfig)
	r.Function(fasthttp.MethodPost, PathSubmitForm, h.SubmitForm)
	r.Function(fasthttp.MethodPost, PathLogAnalytics, h.LogAnalytics)
}

func (h *Handlers) GetTenantConfig(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	tenantID := strings.TrimSpace(string(args.Peek("id")))
	if tenantID == "" {
		tenantID = strings.TrimSpace(string(args.Peek("tenantId")))
	}
	if tenantID == "" {
		httputil.JSONError(ctx, MissingTenantIDMessage, fasthttp.StatusBadRequest)
		return
	}

	c, cancel := h.upstreamContext()
	defer cancel()

	cfg, err := h.resolver.Resolve(c, tenantID)
	if err != nil {
		h.writeError(ctx, err, zap.String("tenant_id", tenantID))
		return
	}

	httputil.JSON(ctx, ConfigResponse{Config: cfg}, fasthttp.StatusOK)
}

func (h *Handlers) SubmitForm(ctx *fasthttp.RequestCtx) {
	var payload types.FormSubmission
	if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
		httputil.JSONError(ctx, InvalidBodyMessage, fasthttp.StatusBadRequest)
		return
	}

	c, cancel := h.upstreamContext()
	defer cancel()

	res, err := h.submitter.Submit(c, payload, submission.RequestMeta{
		ClientIP:  clientip.Extract(ctx, h.ipHeaders),
		UserAgent: string(ctx.UserAgent()),
	})
	if err != nil {
		h.writeError(ctx, err, zap.String("tenant_id", payload.TenantID))
		return
	}

	httputil.JSONSuccess(ctx, res.Message)
}

func (h *Handlers) LogAnalytics(ctx *fasthttp.RequestCtx) {
	var event types.AnalyticsEvent
	if err := json.Unmarshal(ctx.PostBody(), &event); err != nil {
		httputil.JSONError(ctx, analytics.InvalidEventMessage, fasthttp.StatusBadRequest)
		return
	}

	c, cancel := h.upstreamContext()
	defer cancel()

	if err := h.recorder.Record(c, &event); err != nil {
		h.writeError(ctx, err, zap.String("tenant_id", event.TenantID))
		return
	}

	httputil.JSONSuccess(ctx, analytics.RecordedMessage)
}

// upstreamContext bounds upstream calls by the server timeout. RequestCtx is not
// used as the parent: its Done channel only fires on server shutdown.
func (h *Handlers) upstreamContext() (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), h.timeout)
}

// writeError logs server-side failures in full and answers with the public
// message only.
func (h *Handlers) writeError(ctx *fasthttp.RequestCtx, err error, fields ...zap.Field) {
	status := apperr.StatusCode(err)
	if status >= fasthttp.StatusInternalServerError {
		h.logger.Error("Function failed",
			append(fields,
				zap.String("request_id", requestid.FromRequest(ctx)),
				zap.String("path", string(ctx.Path())),
				zap.Error(err))...)
	}
	httputil.JSONError(ctx, apperr.PublicMessage(err), status)
}
