package formpage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/sheets/sheetstest"
	"github.com/localcontactforms/contactform/internal/tenant"
)

const (
	masterID    = "master"
	masterRange = "tenants_master_sheet!A2:L1000"
	configRange = "config!A2:B100"
)

func newHandler() (*Handler, *sheetstest.Fake) {
	fake := sheetstest.New()
	fake.SetRange(masterID, masterRange, [][]string{
		{"acme", "Acme Plumbing", "FALSE", "acme-config", "acme-subs"},
	})
	fake.SetRange("acme-config", configRange, [][]string{
		{"business_name", "Acme Plumbing"},
		{"theme", "Crimson"},
	})

	resolver := tenant.NewResolver(fake, tenant.Options{
		MasterSheetID: masterID,
		MasterRange:   masterRange,
		ConfigRange:   configRange,
	}, zap.NewNop())

	h := NewHandler(resolver, Options{
		PathPrefix: "contact/",
		SubmitURL:  "/.netlify/functions/submit-form",
	}, zap.NewNop())
	return h, fake
}

func serve(h *Handler, uri string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI(uri)
	h.Serve(ctx)
	return ctx
}

func TestServe(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantStatus int
		wantBody   string
	}{
		{name: "query id", uri: "/?id=acme", wantStatus: 200, wantBody: "--theme-header-background: #7D1F26;"},
		{name: "path id", uri: "/contact/acme", wantStatus: 200, wantBody: `data-tenant-id="acme"`},
		{name: "no id", uri: "/", wantStatus: 200, wantBody: NoTenantMessage},
		{name: "unknown tenant", uri: "/contact/ghost", wantStatus: 404, wantBody: NotFoundMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHandler()
			ctx := serve(h, tt.uri)

			assert.Equal(t, tt.wantStatus, ctx.Response.StatusCode())
			assert.Equal(t, ContentType, string(ctx.Response.Header.ContentType()))
			assert.Contains(t, string(ctx.Response.Body()), tt.wantBody)
		})
	}
}

func TestServe_UpstreamFailure(t *testing.T) {
	h, fake := newHandler()
	fake.ReadErr[masterID] = errors.New("quota exceeded")

	ctx := serve(h, "/?id=acme")

	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	body := string(ctx.Response.Body())
	assert.Contains(t, body, UnavailableText)
	assert.NotContains(t, body, "quota exceeded")
}

type routes map[string]string

func (r routes) Handle(method, path string, _ fasthttp.RequestHandler) {
	r[path] = method
}

func TestRegister(t *testing.T) {
	h, _ := newHandler()
	r := routes{}
	h.Register(r)

	assert.Equal(t, routes{"/": "GET", "/contact/": "GET"}, r)
}
