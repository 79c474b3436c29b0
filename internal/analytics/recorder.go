package analytics

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/apperr"
	"github.com/localcontactforms/contactform/internal/sheets"
	"github.com/localcontactforms/contactform/pkg/types"
)

// Caller-facing messages of log-analytics
const (
	RecordedMessage     = "Analytics logged successfully"
	InvalidEventMessage = "Invalid data format - missing required fields"
)

// Recorder appends events to the hit counter tab, creating it on first use.
type Recorder struct {
	client  sheets.Client
	sheetID string
	tab     string
	logger  *zap.Logger
}

func NewRecorder(client sheets.Client, sheetID, tab string, logger *zap.Logger) *Recorder {
	return &Recorder{client: client, sheetID: sheetID, tab: tab, logger: logger}
}

// Record validates event and appends it as one row.
func (r *Recorder) Record(ctx context.Context, event *types.AnalyticsEvent) error {
	if event == nil || !event.Valid() {
		return apperr.Validation(InvalidEventMessage)
	}
	if r.sheetID == "" {
		return apperr.Upstream("record analytics", errors.New("analytics sheet id is not configured"))
	}

	if err := r.client.EnsureTab(ctx, r.sheetID, r.tab, types.AnalyticsHeaders); err != nil {
		// a concurrent first write may have created it; the append decides
		r.logger.Warn("Could not ensure analytics tab", zap.String("tab", r.tab), zap.Error(err))
	}

	if err := r.client.AppendRow(ctx, r.sheetID, r.tab, event.Row()); err != nil {
		return apperr.Upstream("record analytics", err)
	}

	r.logger.Debug("Analytics event recorded",
		zap.String("tenant_id", event.TenantID),
		zap.String("session_id", event.SessionID))
	return nil
}
