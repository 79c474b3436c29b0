package types

import "strings"

// AnalyticsEvent is one page view posted to log-analytics.
type AnalyticsEvent struct {
	Date        string `json:"date"`
	TenantID    string `json:"tenantId"`
	Domain      string `json:"domain"`
	Referrer    string `json:"referrer"`
	GeoLocation string `json:"geoLocation"`
	IP          string `json:"ip"`
	PageURL     string `json:"pageUrl"`
	DeviceType  string `json:"deviceType"`
	SessionID   string `json:"sessionId"`
	Platform    string `json:"platform"`
	UserAgent   string `json:"userAgent"`
}

// AnalyticsHeaders is the header row of the hit counter tab, in Row order.
var AnalyticsHeaders = []string{
	"Date",
	"Tenant ID",
	"Domain",
	"Referrer",
	"Geographic Location",
	"IP Address",
	"Page URL/Path",
	"Device Type",
	"Session ID",
	"Platform",
	"User Agent",
}

// Row returns the event as spreadsheet cells. Empty values are written as "".
func (e *AnalyticsEvent) Row() []string {
	return []string{
		e.Date,
		e.TenantID,
		e.Domain,
		e.Referrer,
		e.GeoLocation,
		e.IP,
		e.PageURL,
		e.DeviceType,
		e.SessionID,
		e.Platform,
		e.UserAgent,
	}
}

// Valid reports whether the event carries a tenant id.
func (e *AnalyticsEvent) Valid() bool {
	return strings.TrimSpace(e.TenantID) != ""
}
