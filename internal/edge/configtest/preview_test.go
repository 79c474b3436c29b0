package configtest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localcontactforms/contactform/internal/common/htmlprocessor"
	"github.com/localcontactforms/contactform/internal/metatags"
	"github.com/localcontactforms/contactform/pkg/types"
)

type fetcherFunc func(ctx context.Context, tenantID string) (types.TenantConfig, error)

func (f fetcherFunc) Fetch(ctx context.Context, tenantID string) (types.TenantConfig, error) {
	return f(ctx, tenantID)
}

func configFor(cfg types.TenantConfig, err error) fetcherFunc {
	return func(context.Context, string) (types.TenantConfig, error) { return cfg, err }
}

func TestPreview(t *testing.T) {
	fetcher := configFor(types.TenantConfig{
		types.KeyBusinessName:    "Acme Plumbing",
		types.KeyMetaDescription: "Fast & friendly",
		types.KeyLogoURL:         "https://cdn.test/logo.png",
	}, nil)

	res, err := Preview(context.Background(), fetcher, metatags.NewInjector(metatags.Options{}), "acme", "https://forms.test/?id=acme")
	require.NoError(t, err)

	assert.Equal(t, "Acme Plumbing", res.Title)
	assert.Contains(t, res.Tags, htmlprocessor.MetaTag{Key: "description", Content: "Fast & friendly"})
	assert.Contains(t, res.Tags, htmlprocessor.MetaTag{Key: "og:image", Content: "https://cdn.test/logo.png"})
	assert.Contains(t, res.Tags, htmlprocessor.MetaTag{Key: "twitter:card", Content: "summary_large_image"})
	assert.ElementsMatch(t, []string{"title", "description"}, res.Replaced)
	assert.Empty(t, res.Warnings)

	var out bytes.Buffer
	PrintPreview(&out, res)
	assert.Contains(t, out.String(), "=== Tenant: acme ===")
	assert.Contains(t, out.String(), "Title: Acme Plumbing")
	assert.Contains(t, out.String(), "  - og:url: https://forms.test/?id=acme")
}

func TestPreview_Errors(t *testing.T) {
	inj := metatags.NewInjector(metatags.Options{})

	_, err := Preview(context.Background(), configFor(nil, errors.New("404")), inj, "ghost", "https://forms.test/")
	assert.Error(t, err)

	_, err = Preview(context.Background(), configFor(types.TenantConfig{types.KeyBusinessName: "Acme"}, nil), inj, "acme", "https://forms.test/")
	assert.ErrorIs(t, err, metatags.ErrMissingRequired)
}

func TestPrintPreview_Empty(t *testing.T) {
	var out bytes.Buffer
	PrintPreview(&out, &PreviewResult{TenantID: "acme"})
	assert.Contains(t, out.String(), "Replaced: (none)")
}

func TestLint(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "clean head",
			html: `<html><head><title>Acme</title><meta name="description" content="x"></head></html>`,
		},
		{
			name: "no title",
			html: `<html><head><meta name="description" content="x"></head></html>`,
			want: []string{"page has 0 <title> elements"},
		},
		{
			name: "duplicate title and meta",
			html: `<html><head><title>A</title><title>B</title>` +
				`<meta property="og:title" content="A"><meta property="OG:TITLE" content="B">` +
				`<meta name="description" content="x"></head></html>`,
			want: []string{"page has 2 <title> elements", "meta og:title appears 2 times"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := htmlprocessor.Parse([]byte(tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.want, lint(doc))
		})
	}
}

func TestPrintPreview_Warnings(t *testing.T) {
	var out bytes.Buffer
	PrintPreview(&out, &PreviewResult{TenantID: "acme", Warnings: []string{"page has 2 <title> elements"}})
	assert.Contains(t, out.String(), "Warning: page has 2 <title> elements")
}
