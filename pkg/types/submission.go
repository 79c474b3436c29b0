package types

import "strings"

// TimestampLayout formats row timestamps in the business's local time.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// FormSubmission is the JSON body posted to submit-form.
type FormSubmission struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Reason         string `json:"reason"`
	Message        string `json:"message"`
	TenantID       string `json:"tenantId"`
	RecaptchaToken string `json:"recaptchaToken,omitempty"`

	// Website is a honeypot field hidden from humans.
	Website string `json:"website,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (s *FormSubmission) Normalize() {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	s.Email = strings.TrimSpace(s.Email)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Reason = strings.TrimSpace(s.Reason)
	s.Message = strings.TrimSpace(s.Message)
	s.TenantID = strings.TrimSpace(s.TenantID)
	s.RecaptchaToken = strings.TrimSpace(s.RecaptchaToken)
	s.Website = strings.TrimSpace(s.Website)
}

// MissingFields returns the JSON names of required fields that are empty.
func (s *FormSubmission) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"firstName", s.FirstName},
		{"lastName", s.LastName},
		{"email", s.Email},
		{"phone", s.Phone},
		{"tenantId", s.TenantID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// IsSpam reports whether the honeypot field was filled in.
func (s *FormSubmission) IsSpam() bool {
	return s.Website != ""
}
