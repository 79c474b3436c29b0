package types

import (
	"strconv"
	"strings"
)

// Master index column positions
const (
	ColTenantID = iota
	ColTenantName
	ColTestTenant
	ColConfigSheetID
	ColSubmissionsSheetID
	ColStatus
	ColCreatedAt
	ColOwnerEmail
	ColOwnerFirstName
	ColOwnerLastName
	ColOwnerPhoneNumber
	ColRateLimitPerHour
)

// TenantRecord is one row of the master index. It is read-only.
type TenantRecord struct {
	TenantID           string
	TenantName         string
	TestTenant         bool
	ConfigSheetID      string
	SubmissionsSheetID string
	Status             string
	CreatedAt          string
	OwnerEmail         string
	OwnerFirstName     string
	OwnerLastName      string
	OwnerPhoneNumber   string
	RateLimitPerHour   int
}

// TenantRecordFromRow maps a master index row onto a TenantRecord.
// Short rows leave the trailing fields empty.
func TenantRecordFromRow(row []string) *TenantRecord {
	col := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	rec := &TenantRecord{
		TenantID:           col(ColTenantID),
		TenantName:         col(ColTenantName),
		TestTenant:         parseBool(col(ColTestTenant)),
		ConfigSheetID:      col(ColConfigSheetID),
		SubmissionsSheetID: col(ColSubmissionsSheetID),
		Status:             col(ColStatus),
		CreatedAt:          col(ColCreatedAt),
		OwnerEmail:         col(ColOwnerEmail),
		OwnerFirstName:     col(ColOwnerFirstName),
		OwnerLastName:      col(ColOwnerLastName),
		OwnerPhoneNumber:   col(ColOwnerPhoneNumber),
	}
	if n, err := strconv.Atoi(col(ColRateLimitPerHour)); err == nil && n > 0 {
		rec.RateLimitPerHour = n
	}
	return rec
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1", "x":
		return true
	}
	return false
}

// Tenant config keys
const (
	KeyBusinessName          = "business_name"
	KeyNotifyOnSubmit        = "notify_on_submit"
	KeyIntroText             = "intro_text"
	KeyMetaDescription       = "meta_description"
	KeyMetaKeywords          = "meta_keywords"
	KeyMetaAuthor            = "meta_author"
	KeyPostSubmitMessage     = "post_submit_message"
	KeyBusinessPhone         = "business_phone"
	KeyBusinessAddress1      = "business_address_1"
	KeyBusinessAddress2      = "business_address_2"
	KeyBusinessCity          = "business_city"
	KeyBusinessState         = "business_state"
	KeyBusinessZip           = "business_zip"
	KeyBusinessWebURL        = "business_web_url"
	KeyTheme                 = "theme"
	KeyReasonForContact      = "reason_for_contact"
	KeyRecaptchaSiteKey      = "recaptcha_site_key"
	KeyShowEmailOnPhone      = "show_email_on_phone"
	KeyShowPhoneNumberOnForm = "show_phone_number_on_form"
	KeyOGImageURL            = "og_image_url"
	KeyLogoURL               = "logo_url"
)

// SocialKeys lists the optional social profile URLs in display order.
var SocialKeys = []string{
	"facebook_url",
	"instagram_url",
	"linkedin_url",
	"pinterest_url",
	"reddit_url",
	"tiktok_url",
	"wechat_url",
	"x_url",
	"youtube_url",
}

// TenantConfig is the flattened key/value configuration of one tenant.
type TenantConfig map[string]string

// Get returns the trimmed value for key, or "" when absent.
func (c TenantConfig) Get(key string) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c[key])
}

// Bool reports whether key holds a truthy flag value.
func (c TenantConfig) Bool(key string) bool {
	return parseBool(c.Get(key))
}

// Reasons splits reason_for_contact on commas, dropping blanks.
func (c TenantConfig) Reasons() []string {
	raw := c.Get(KeyReasonForContact)
	if raw == "" {
		return nil
	}
	var reasons []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			reasons = append(reasons, r)
		}
	}
	return reasons
}

// NotifyEmail returns the address submissions are mailed to.
func (c TenantConfig) NotifyEmail(rec *TenantRecord) string {
	if v := c.Get(KeyNotifyOnSubmit); v != "" {
		return v
	}
	if rec != nil {
		return rec.OwnerEmail
	}
	return ""
}
