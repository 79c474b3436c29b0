package functions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/analytics"
	"github.com/localcontactforms/contactform/internal/common/apperr"
	"github.com/localcontactforms/contactform/internal/notify"
	"github.com/localcontactforms/contactform/internal/sheets/sheetstest"
	"github.com/localcontactforms/contactform/internal/submission"
	"github.com/localcontactforms/contactform/internal/tenant"
	"github.com/localcontactforms/contactform/pkg/types"
)

const (
	masterID    = "master"
	masterRange = "tenants_master_sheet!A2:L1000"
	configRange = "config!A2:B100"
)

type noCaptcha struct{}

func (noCaptcha) Verify(context.Context, string, string) error { return nil }

type failingNotifier struct{ calls int }

func (f *failingNotifier) SendSubmission(context.Context, notify.Notification) error {
	f.calls++
	return errors.New("smtp unavailable")
}

type fixture struct {
	fake     *sheetstest.Fake
	notifier *failingNotifier
	handler  func(method, uri, body string) (int, map[string]interface{})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fake := sheetstest.New()
	fake.SetRange(masterID, masterRange, [][]string{
		{"acme", "Acme Plumbing", "FALSE", "acme-config", "acme-subs", "active", "", "owner@acme.test"},
	})
	fake.SetRange("acme-config", configRange, [][]string{
		{"business_name", "Acme Plumbing"},
		{"meta_description", "Fast local plumbing"},
		{"theme", "Fern"},
	})
	fake.AddTab("acme-subs", "Sheet1", submission.SubmissionsHeader)
	fake.AddTab("tracking", "Sheet1", submission.TrackingHeader)

	resolver := tenant.NewResolver(fake, tenant.Options{
		MasterSheetID:    masterID,
		MasterRange:      masterRange,
		ConfigRange:      configRange,
		RecaptchaSiteKey: "public-site-key",
	}, zap.NewNop())

	notifier := &failingNotifier{}
	svc := submission.NewService(submission.Deps{
		Sheets:   fake,
		Tenants:  resolver,
		Verifier: noCaptcha{},
		Notifier: notifier,
	}, submission.Options{
		SubmissionsTab:  "Sheet1",
		TrackingSheetID: "tracking",
		TrackingTab:     "Sheet1",
	}, zap.NewNop())

	recorder := analytics.NewRecorder(fake, "hits", "hit_counter", zap.NewNop())

	router := NewRouter(zap.NewNop())
	NewHandlers(resolver, svc, recorder, []string{"X-Forwarded-For"}, 5*time.Second, zap.NewNop()).Register(router)
	server := NewServer(router, nil, nil, zap.NewNop())

	return &fixture{
		fake:     fake,
		notifier: notifier,
		handler: func(method, uri, body string) (int, map[string]interface{}) {
			ctx := newCtx(method, uri, body)
			ctx.Request.Header.Set("X-Forwarded-For", "198.51.100.23")
			server.HandleRequest(ctx)

			var decoded map[string]interface{}
			if len(ctx.Response.Body()) > 0 {
				require.NoError(t, json.Unmarshal(ctx.Response.Body(), &decoded))
			}
			assert.Equal(t, "*", string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")))
			return ctx.Response.StatusCode(), decoded
		},
	}
}

func TestGetTenantConfig(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		uri    string
		status int
		check  func(t *testing.T, body map[string]interface{})
	}{
		{
			name:   "by id",
			uri:    PathGetTenantConfig + "?id=acme",
			status: 200,
			check: func(t *testing.T, body map[string]interface{}) {
				cfg := body["config"].(map[string]interface{})
				assert.Equal(t, "Acme Plumbing", cfg["business_name"])
				assert.Equal(t, "public-site-key", cfg["recaptcha_site_key"])
			},
		},
		{
			name:   "by tenantId",
			uri:    PathGetTenantConfig + "?tenantId=acme",
			status: 200,
		},
		{
			name:   "missing id",
			uri:    PathGetTenantConfig,
			status: 400,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, MissingTenantIDMessage, body["error"])
			},
		},
		{
			name:   "unknown tenant",
			uri:    PathGetTenantConfig + "?id=ghost",
			status: 404,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, tenant.NotFoundMessage, body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.handler("GET", tt.uri, "")
			assert.Equal(t, tt.status, status)
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestGetTenantConfig_UpstreamFailureIsGeneric(t *testing.T) {
	f := newFixture(t)
	f.fake.ReadErr[masterID] = errors.New("googleapi: Error 403: The caller does not have permission")

	status, body := f.handler("GET", PathGetTenantConfig+"?id=acme", "")
	assert.Equal(t, 500, status)
	assert.Equal(t, apperr.GenericMessage, body["error"])
}

func TestSubmitForm_EndToEnd(t *testing.T) {
	f := newFixture(t)

	status, body := f.handler("POST", PathSubmitForm, `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","phone":"555-0100","reason":"Quote","message":"Hi","tenantId":"acme"}`)
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, submission.SuccessMessage, body["message"])

	rows := f.fake.Rows("acme-subs", "Sheet1")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Ada", "Lovelace", "ada@example.com", "555-0100"}, rows[1][1:5])
	assert.NotEmpty(t, rows[1][0])

	tracking := f.fake.Rows("tracking", "Sheet1")
	require.Len(t, tracking, 2)
	assert.Equal(t, "198.51.100.23", tracking[1][3])
	assert.Equal(t, 1, f.notifier.calls)
}

func TestSubmitForm_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		status int
		errMsg string
	}{
		{"wrong method", "GET", "", 405, "Method not allowed"},
		{"malformed json", "POST", `{"firstName":`, 400, InvalidBodyMessage},
		{"missing fields", "POST", `{"firstName":"Ada","tenantId":"acme"}`, 400, submission.MissingFieldsMessage},
		{"unknown tenant", "POST", `{"firstName":"Ada","lastName":"L","email":"a@b.c","phone":"1","tenantId":"ghost"}`, 404, tenant.NotFoundMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			status, body := f.handler(tt.method, PathSubmitForm, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.errMsg, body["error"])
			assert.Empty(t, f.fake.Writes())
		})
	}
}

func TestLogAnalytics(t *testing.T) {
	f := newFixture(t)

	event := types.AnalyticsEvent{TenantID: "acme", Date: "7/1/2025, 9:00:00 AM", Referrer: analytics.DirectReferrer}
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	status, body := f.handler("POST", PathLogAnalytics, string(raw))
	assert.Equal(t, 200, status)
	assert.Equal(t, analytics.RecordedMessage, body["message"])

	rows := f.fake.Rows("hits", "hit_counter")
	require.Len(t, rows, 2)
	assert.Equal(t, event.Row(), rows[1])

	status, body = f.handler("POST", PathLogAnalytics, `{"date":"x"}`)
	assert.Equal(t, 400, status)
	assert.Equal(t, analytics.InvalidEventMessage, body["error"])

	status, _ = f.handler("POST", PathLogAnalytics, `not json`)
	assert.Equal(t, 400, status)

	status, body = f.handler("OPTIONS", PathLogAnalytics, "")
	assert.Equal(t, 200, status)
	assert.Nil(t, body)
}
