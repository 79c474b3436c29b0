package formpage

import (
	"context"
	"errors"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/requestid"
	"github.com/localcontactforms/contactform/internal/tenant"
	"github.com/localcontactforms/contactform/pkg/types"
)

// ContentType of every rendered page
const ContentType = "text/html; charset=utf-8"

type ConfigResolver interface {
	Resolve(ctx context.Context, tenantID string) (types.TenantConfig, error)
}

// Registrar is the subset of the router the page routes are added to.
type Registrar interface {
	Handle(method, path string, handler fasthttp.RequestHandler)
}

// Options controls where tenant ids are read from and where the form posts.
type Options struct {
	PathPrefix string // "contact/"
	SubmitURL  string
	Timeout    time.Duration
}

// Handler serves the form document.
type Handler struct {
	resolver ConfigResolver
	opts     Options
	logger   *zap.Logger
}

func NewHandler(resolver ConfigResolver, opts Options, logger *zap.Logger) *Handler {
	return &Handler{resolver: resolver, opts: opts, logger: logger}
}

// Register adds GET / and GET /<prefix> to r.
func (h *Handler) Register(r Registrar) {
	r.Handle(fasthttp.MethodGet, "/", h.Serve)
	if h.opts.PathPrefix != "" {
		r.Handle(fasthttp.MethodGet, "/"+h.opts.PathPrefix, h.Serve)
	}
}

func (h *Handler) Serve(ctx *fasthttp.RequestCtx) {
	tenantID := tenant.IDFromRequest(string(ctx.Path()), string(ctx.QueryArgs().Peek("id")), h.opts.PathPrefix)
	if tenantID == "" {
		h.write(ctx, fasthttp.StatusOK, ErrorPage(NoTenantMessage))
		return
	}

	c, cancel := h.context()
	defer cancel()

	cfg, err := h.resolver.Resolve(c, tenantID)
	switch {
	case errors.Is(err, tenant.ErrNotFound):
		h.write(ctx, fasthttp.StatusNotFound, ErrorPage(NotFoundMessage))
		return
	case err != nil:
		h.logger.Error("Failed to resolve tenant for form page",
			zap.String("request_id", requestid.FromRequest(ctx)),
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		page := ErrorPage(UnavailableText)
		page.Title = UnavailableTitle
		h.write(ctx, fasthttp.StatusInternalServerError, page)
		return
	}

	h.write(ctx, fasthttp.StatusOK, NewPage(tenantID, cfg, h.opts.SubmitURL))
}

func (h *Handler) write(ctx *fasthttp.RequestCtx, status int, page *Page) {
	body, err := Render(page)
	if err != nil {
		h.logger.Error("Failed to render form page", zap.Error(err))
		ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType(ContentType)
	ctx.SetBody(body)
}

func (h *Handler) context() (context.Context, context.CancelFunc) {
	if h.opts.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), h.opts.Timeout)
}
