// Package analytics derives page view events at the edge, ships them to the
// log-analytics function and records them in the hit counter tab.
package analytics

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/valyala/fasthttp"

	"github.com/localcontactforms/contactform/internal/common/clientip"
	"github.com/localcontactforms/contactform/internal/tenant"
	"github.com/localcontactforms/contactform/internal/useragent"
	"github.com/localcontactforms/contactform/pkg/pattern"
	"github.com/localcontactforms/contactform/pkg/types"
)

// Field defaults
const (
	DirectReferrer = "Direct"
	UnknownGeo     = "Unknown"
)

// Geo headers
const (
	HeaderNetlifyGeo   = "X-Nf-Geo"
	HeaderCFIPCountry  = "CF-IPCountry"
	cfUnknownCountry   = "XX"
	sessionDayLayout   = "2006-01-02"
	sessionIDHexLength = 16
)

// Skip reasons returned by Build
const (
	SkipMethod   = "method"
	SkipPath     = "path"
	SkipBot      = "bot"
	SkipNoTenant = "no_tenant"
)

type BuilderOptions struct {
	Location        *time.Location
	SkipPaths       []string
	ClientIPHeaders []string
	PathPrefix      string
}

// Builder turns a page request into an AnalyticsEvent.
type Builder struct {
	loc        *time.Location
	skipPaths  pattern.Set
	ipHeaders  []string
	pathPrefix string
	classifier *useragent.Classifier
	now        func() time.Time
}

func NewBuilder(opts BuilderOptions, classifier *useragent.Classifier) (*Builder, error) {
	skip, err := pattern.CompileSet(opts.SkipPaths)
	if err != nil {
		return nil, fmt.Errorf("skip paths: %w", err)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{
		loc:        loc,
		skipPaths:  skip,
		ipHeaders:  opts.ClientIPHeaders,
		pathPrefix: opts.PathPrefix,
		classifier: classifier,
		now:        time.Now,
	}, nil
}

// Build derives the event for ctx. When the request must not be counted it
// returns nil and the skip reason.
func (b *Builder) Build(ctx *fasthttp.RequestCtx) (*types.AnalyticsEvent, string) {
	if !ctx.IsGet() {
		return nil, SkipMethod
	}

	path := string(ctx.Path())
	if b.skipPaths.MatchAny(path) {
		return nil, SkipPath
	}

	ua := string(ctx.UserAgent())
	info := b.classifier.Classify(ua)
	if info.Bot {
		return nil, SkipBot
	}

	tenantID := tenant.IDFromRequest(path, string(ctx.QueryArgs().Peek("id")), b.pathPrefix)
	if tenantID == "" {
		return nil, SkipNoTenant
	}

	now := b.now().In(b.loc)
	ip := clientip.Extract(ctx, b.ipHeaders)

	referrer := strings.TrimSpace(string(ctx.Referer()))
	if referrer == "" {
		referrer = DirectReferrer
	}

	return &types.AnalyticsEvent{
		Date:        now.Format(types.TimestampLayout),
		TenantID:    tenantID,
		Domain:      string(ctx.Host()),
		Referrer:    referrer,
		GeoLocation: Geo(&ctx.Request.Header),
		IP:          ip,
		PageURL:     string(ctx.RequestURI()),
		DeviceType:  info.Device,
		SessionID:   SessionID(ip, ua, now),
		Platform:    info.Platform,
		UserAgent:   ua,
	}, ""
}

// SessionID is a coarse per-visitor-per-day key: the first 16 hex digits of
// xxhash64 over ip, user agent and the local calendar day.
func SessionID(ip, userAgent string, day time.Time) string {
	sum := xxhash.Sum64String(ip + "|" + userAgent + "|" + day.Format(sessionDayLayout))
	return fmt.Sprintf("%016x", sum)[:sessionIDHexLength]
}

type netlifyGeo struct {
	City    string `json:"city"`
	Country struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"country"`
	Subdivision struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"subdivision"`
}

// Geo returns "City, Region, Country" from the platform geo header, the
// Cloudflare country code, or UnknownGeo.
func Geo(h *fasthttp.RequestHeader) string {
	if raw := strings.TrimSpace(string(h.Peek(HeaderNetlifyGeo))); raw != "" {
		if geo := decodeNetlifyGeo(raw); geo != "" {
			return geo
		}
	}

	if cc := strings.TrimSpace(string(h.Peek(HeaderCFIPCountry))); cc != "" && !strings.EqualFold(cc, cfUnknownCountry) {
		return strings.ToUpper(cc)
	}

	return UnknownGeo
}

func decodeNetlifyGeo(raw string) string {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		// some proxies pass the JSON through undecoded
		data = []byte(raw)
	}

	var geo netlifyGeo
	if err := json.Unmarshal(data, &geo); err != nil {
		return ""
	}

	var parts []string
	for _, p := range []string{geo.City, geo.Subdivision.Code, geo.Country.Code} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
