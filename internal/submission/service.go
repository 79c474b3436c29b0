// Package submission handles contact form submissions: validation, spam and
// CAPTCHA checks, tenant resolution, the newest-first submissions row and
// the best-effort tracking row and email.
package submission

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/captcha"
	"github.com/localcontactforms/contactform/internal/common/apperr"
	"github.com/localcontactforms/contactform/internal/common/metrics"
	"github.com/localcontactforms/contactform/internal/notify"
	"github.com/localcontactforms/contactform/internal/ratelimit"
	"github.com/localcontactforms/contactform/internal/sheets"
	"github.com/localcontactforms/contactform/internal/useragent"
	"github.com/localcontactforms/contactform/pkg/types"
)

// Caller-facing messages
const (
	SuccessMessage       = "Form submitted successfully"
	MissingFieldsMessage = "Missing required fields"
	CaptchaFailedMessage = "reCAPTCHA verification failed"
	RateLimitedMessage   = "Too many submissions, please try again later"
)

const (
	sideEffectTracking     = "tracking_row"
	sideEffectEmail        = "email"
	sideEffectTenantConfig = "tenant_config"
)

// SubmissionsHeader is the header row of a tenant submissions tab.
var SubmissionsHeader = []string{"Timestamp", "First Name", "Last Name", "Email", "Phone", "Reason", "Message"}

// TrackingHeader is the header row of the shared tracking tab.
var TrackingHeader = []string{"Timestamp", "Tenant ID", "Notify Email", "IP Address", "Platform", "Browser"}

type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type Notifier interface {
	SendSubmission(ctx context.Context, n notify.Notification) error
}

type Limiter interface {
	Allow(ctx context.Context, tenantID string, limit int) ratelimit.Decision
}

// Tenants is the two-hop tenant lookup.
type Tenants interface {
	Lookup(ctx context.Context, tenantID string) (*types.TenantRecord, error)
	Config(ctx context.Context, rec *types.TenantRecord) (types.TenantConfig, error)
}

type Metrics interface {
	RecordSubmission(outcome string)
	RecordSideEffectFailure(kind string)
}

// Deps are the collaborators of a Service. Limiter and Metrics may be nil.
type Deps struct {
	Sheets     sheets.Client
	Tenants    Tenants
	Verifier   Verifier
	Notifier   Notifier
	Limiter    Limiter
	Classifier *useragent.Classifier
	Metrics    Metrics
}

type Options struct {
	SubmissionsTab  string
	TrackingSheetID string
	TrackingTab     string
	Location        *time.Location
}

// RequestMeta describes the HTTP request that carried the payload.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}

// Result is returned for accepted submissions, including silently dropped spam.
type Result struct {
	Message string
	Spam    bool
	Row     []string
}

type Service struct {
	deps   Deps
	opts   Options
	now    func() time.Time
	logger *zap.Logger
}

func NewService(deps Deps, opts Options, logger *zap.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{deps: deps, opts: opts, now: time.Now, logger: logger}
}

// Submit processes one payload. The returned error is an *apperr.Error.
func (s *Service) Submit(ctx context.Context, payload types.FormSubmission, meta RequestMeta) (*Result, error) {
	payload.Normalize()
	logger := s.logger.With(zap.String("tenant_id", payload.TenantID))

	if missing := payload.MissingFields(); len(missing) > 0 {
		logger.Info("Submission missing required fields", zap.Strings("fields", missing))
		s.record(metrics.OutcomeInvalid)
		return nil, apperr.Validation(MissingFieldsMessage)
	}

	if payload.IsSpam() {
		logger.Info("Honeypot field filled, dropping submission", zap.String("client_ip", meta.ClientIP))
		s.record(metrics.OutcomeSpam)
		return &Result{Message: SuccessMessage, Spam: true}, nil
	}

	if payload.RecaptchaToken != "" {
		if err := s.deps.Verifier.Verify(ctx, payload.RecaptchaToken, meta.ClientIP); err != nil {
			if errors.Is(err, captcha.ErrRejected) {
				s.record(metrics.OutcomeRejected)
				return nil, apperr.Wrap(apperr.KindValidation, CaptchaFailedMessage, err)
			}
			logger.Error("reCAPTCHA verification unavailable", zap.Error(err))
			s.record(metrics.OutcomeFailed)
			return nil, apperr.Upstream("captcha verification unavailable", err)
		}
	}

	rec, err := s.deps.Tenants.Lookup(ctx, payload.TenantID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.record(metrics.OutcomeNotFound)
		} else {
			logger.Error("Tenant lookup failed", zap.Error(err))
			s.record(metrics.OutcomeFailed)
		}
		return nil, err
	}

	if s.deps.Limiter != nil {
		if d := s.deps.Limiter.Allow(ctx, rec.TenantID, rec.RateLimitPerHour); !d.Allowed {
			logger.Warn("Submission rate limit exceeded",
				zap.Int64("count", d.Count),
				zap.Int("limit", d.Limit))
			s.record(metrics.OutcomeLimited)
			return nil, apperr.RateLimited(RateLimitedMessage)
		}
	}

	cfg, err := s.deps.Tenants.Config(ctx, rec)
	if err != nil {
		// the row is still written; the email falls back to the owner address
		logger.Warn("Tenant config unavailable for submission", zap.Error(err))
		s.sideEffectFailed(sideEffectTenantConfig)
	}

	timestamp := s.now().In(s.opts.Location).Format(types.TimestampLayout)
	row := []string{
		timestamp,
		sheets.TextCell(payload.FirstName),
		sheets.TextCell(payload.LastName),
		sheets.TextCell(payload.Email),
		sheets.TextCell(payload.Phone),
		sheets.TextCell(payload.Reason),
		sheets.TextCell(payload.Message),
	}

	if rec.SubmissionsSheetID == "" {
		s.record(metrics.OutcomeFailed)
		return nil, apperr.Upstream("write submission", errors.New("tenant has no submissions sheet id"))
	}
	if err := s.deps.Sheets.InsertRowBelowHeader(ctx, rec.SubmissionsSheetID, s.opts.SubmissionsTab, row); err != nil {
		logger.Error("Failed to write submission row", zap.Error(err))
		s.record(metrics.OutcomeFailed)
		return nil, apperr.Upstream("write submission", err)
	}

	notifyEmail := cfg.NotifyEmail(rec)
	s.writeTracking(ctx, logger, timestamp, rec.TenantID, notifyEmail, meta)
	s.sendEmail(ctx, logger, notify.Notification{
		To:           notifyEmail,
		BusinessName: businessName(cfg, rec),
		SubmittedAt:  timestamp,
		Submission:   &payload,
	})

	logger.Info("Submission stored", zap.String("submissions_sheet_id", rec.SubmissionsSheetID))
	s.record(metrics.OutcomeSuccess)
	return &Result{Message: SuccessMessage, Row: row}, nil
}

func (s *Service) writeTracking(ctx context.Context, logger *zap.Logger, timestamp, tenantID, notifyEmail string, meta RequestMeta) {
	if s.opts.TrackingSheetID == "" {
		return
	}

	platform, browser := useragent.Unknown, useragent.OtherBrowser
	if s.deps.Classifier != nil {
		platform = s.deps.Classifier.Platform(meta.UserAgent)
		browser = s.deps.Classifier.Browser(meta.UserAgent)
	}

	row := []string{timestamp, tenantID, notifyEmail, meta.ClientIP, platform, browser}
	err := s.deps.Sheets.EnsureTab(ctx, s.opts.TrackingSheetID, s.opts.TrackingTab, TrackingHeader)
	if err == nil {
		err = s.deps.Sheets.AppendRow(ctx, s.opts.TrackingSheetID, s.opts.TrackingTab, row)
	}
	if err != nil {
		logger.Warn("Failed to write tracking row", zap.Error(err))
		s.sideEffectFailed(sideEffectTracking)
	}
}

func (s *Service) sendEmail(ctx context.Context, logger *zap.Logger, n notify.Notification) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.SendSubmission(ctx, n); err != nil {
		logger.Warn("Failed to send submission email", zap.String("to", n.To), zap.Error(err))
		s.sideEffectFailed(sideEffectEmail)
	}
}

func businessName(cfg types.TenantConfig, rec *types.TenantRecord) string {
	if name := cfg.Get(types.KeyBusinessName); name != "" {
		return name
	}
	return rec.TenantName
}

func (s *Service) record(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordSubmission(outcome)
	}
}

func (s *Service) sideEffectFailed(kind string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordSideEffectFailure(kind)
	}
}
