package tenant

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/apperr"
	"github.com/localcontactforms/contactform/internal/sheets"
	"github.com/localcontactforms/contactform/pkg/types"
)

// ErrNotFound is wrapped by Lookup when no master index row matches.
var ErrNotFound = errors.New("tenant not found")

// NotFoundMessage is the caller-facing text for an unknown tenant
const NotFoundMessage = "Tenant not found"

// Options locates the master index and the per-tenant config range.
type Options struct {
	MasterSheetID    string
	MasterRange      string
	ConfigRange      string
	RecaptchaSiteKey string
}

// Resolver turns a tenant id into its master index record and config.
// Every call reads the spreadsheet; nothing is cached.
type Resolver struct {
	client sheets.Client
	opts   Options
	logger *zap.Logger
}

func NewResolver(client sheets.Client, opts Options, logger *zap.Logger) *Resolver {
	return &Resolver{client: client, opts: opts, logger: logger}
}

// Lookup returns the first master index row whose first column equals
// tenantID exactly.
func (r *Resolver) Lookup(ctx context.Context, tenantID string) (*types.TenantRecord, error) {
	rows, err := r.client.ReadRange(ctx, r.opts.MasterSheetID, r.opts.MasterRange)
	if err != nil {
		return nil, apperr.Upstream("read master index", err)
	}

	for _, row := range rows {
		if len(row) > types.ColTenantID && row[types.ColTenantID] == tenantID {
			return types.TenantRecordFromRow(row), nil
		}
	}

	return nil, apperr.Wrap(apperr.KindNotFound, NotFoundMessage, ErrNotFound)
}

// Config reads the key/value rows of the tenant's config sheet.
func (r *Resolver) Config(ctx context.Context, rec *types.TenantRecord) (types.TenantConfig, error) {
	if rec.ConfigSheetID == "" {
		return nil, apperr.Upstream("read tenant config",
			fmt.Errorf("tenant %q has no config sheet id", rec.TenantID))
	}

	values, err := sheets.ReadKeyValues(ctx, r.client, rec.ConfigSheetID, r.opts.ConfigRange)
	if err != nil {
		return nil, apperr.Upstream("read tenant config", err)
	}
	return types.TenantConfig(values), nil
}

// Resolve runs Lookup then Config and adds the public reCAPTCHA site key.
func (r *Resolver) Resolve(ctx context.Context, tenantID string) (types.TenantConfig, error) {
	rec, err := r.Lookup(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	cfg, err := r.Config(ctx, rec)
	if err != nil {
		return nil, err
	}

	cfg[types.KeyRecaptchaSiteKey] = r.opts.RecaptchaSiteKey

	r.logger.Debug("Resolved tenant config",
		zap.String("tenant_id", tenantID),
		zap.Int("keys", len(cfg)))
	return cfg, nil
}
