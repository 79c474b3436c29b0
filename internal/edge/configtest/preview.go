// Package configtest backs "edge-gateway -t": it previews the tags the edge
// would write for a tenant without serving traffic.
package configtest

import (
	"context"
	"fmt"
	"strings"

	"github.com/localcontactforms/contactform/internal/common/htmlprocessor"
	"github.com/localcontactforms/contactform/internal/formpage"
	"github.com/localcontactforms/contactform/internal/metatags"
	"github.com/localcontactforms/contactform/pkg/types"
)

// SampleDocument mirrors the head of the form page served by the origin.
var SampleDocument = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>` + formpage.DefaultTitle + `</title>
<meta name="description" content="` + formpage.DefaultDescription + `">
</head>
<body></body>
</html>`

type ConfigFetcher interface {
	Fetch(ctx context.Context, tenantID string) (types.TenantConfig, error)
}

// PreviewResult lists the head of the rewritten sample page.
type PreviewResult struct {
	TenantID string
	PageURL  string
	Title    string
	Tags     []htmlprocessor.MetaTag
	Replaced []string
	Inserted []string
	Warnings []string
}

// Preview fetches tenantID's config and rewrites SampleDocument with it.
func Preview(ctx context.Context, fetcher ConfigFetcher, injector *metatags.Injector, tenantID, pageURL string) (*PreviewResult, error) {
	cfg, err := fetcher.Fetch(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	res, err := injector.Rewrite(SampleDocument, metatags.Input{Config: cfg, PageURL: pageURL})
	if err != nil {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, err)
	}

	doc, err := htmlprocessor.Parse([]byte(res.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse rewritten page: %w", err)
	}

	return &PreviewResult{
		TenantID: tenantID,
		PageURL:  pageURL,
		Title:    doc.Title(),
		Tags:     doc.MetaTags(),
		Replaced: res.Replaced,
		Inserted: res.Inserted,
		Warnings: lint(doc),
	}, nil
}

// lint reports head problems crawlers handle inconsistently: a missing or
// repeated <title> and meta keys that appear more than once.
func lint(doc htmlprocessor.Document) []string {
	var warnings []string
	if n := doc.Count("title"); n != 1 {
		warnings = append(warnings, fmt.Sprintf("page has %d <title> elements", n))
	}

	seen := make(map[string]bool)
	for _, tag := range doc.MetaTags() {
		key := strings.ToLower(tag.Key)
		if seen[key] {
			continue
		}
		seen[key] = true
		if n := len(doc.Meta(key)); n > 1 {
			warnings = append(warnings, fmt.Sprintf("meta %s appears %d times", key, n))
		}
	}
	return warnings
}
