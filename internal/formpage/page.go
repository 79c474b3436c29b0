// Package formpage renders the themed contact form document served at "/"
// and "/contact/{id}".
package formpage

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/localcontactforms/contactform/pkg/types"
)

// Default head tags. The edge replaces them with the tenant's values.
const (
	DefaultTitle       = "Contact Us"
	DefaultDescription = "Send us a message and we will get back to you."
)

// Page-level messages
const (
	NoTenantMessage  = "No tenant ID provided. Please check your URL."
	NotFoundMessage  = "We could not find this contact form."
	UnavailableTitle = "Something went wrong"
	UnavailableText  = "The contact form is temporarily unavailable. Please try again later."
)

// SocialLink is one rendered social profile link.
type SocialLink struct {
	Network string
	URL     string
}

// Page is the data behind one rendered document.
type Page struct {
	TenantID    string
	Title       string
	Description string
	Theme       string
	ThemeVars   []CSSVar

	BusinessName string
	LogoURL      string
	WebURL       string
	Phone        string
	Email        string
	Address      string
	Intro        template.HTML
	PostSubmit   template.HTML
	Reasons      []string
	Social       []SocialLink
	SiteKey      string
	SubmitURL    string

	// Error replaces the form with a message when set.
	Error string
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func ugcPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return policy
}

// Sanitize strips tenant-provided rich text down to safe markup.
func Sanitize(s string) template.HTML {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return template.HTML(ugcPolicy().Sanitize(s))
}

// Address joins the business address as "addr1[, addr2], city, state zip".
// Missing parts are left out.
func Address(cfg types.TenantConfig) string {
	var parts []string
	for _, key := range []string{types.KeyBusinessAddress1, types.KeyBusinessAddress2, types.KeyBusinessCity} {
		if v := cfg.Get(key); v != "" {
			parts = append(parts, v)
		}
	}
	stateZip := strings.TrimSpace(cfg.Get(types.KeyBusinessState) + " " + cfg.Get(types.KeyBusinessZip))
	if stateZip != "" {
		parts = append(parts, stateZip)
	}
	return strings.Join(parts, ", ")
}

// NewPage builds the page data for a resolved tenant.
func NewPage(tenantID string, cfg types.TenantConfig, submitURL string) *Page {
	theme := ResolveTheme(cfg.Get(types.KeyTheme))
	p := &Page{
		TenantID:     tenantID,
		Title:        DefaultTitle,
		Description:  DefaultDescription,
		Theme:        theme,
		ThemeVars:    ThemeVars(theme),
		BusinessName: cfg.Get(types.KeyBusinessName),
		LogoURL:      cfg.Get(types.KeyLogoURL),
		WebURL:       cfg.Get(types.KeyBusinessWebURL),
		Address:      Address(cfg),
		Intro:        Sanitize(cfg.Get(types.KeyIntroText)),
		PostSubmit:   Sanitize(cfg.Get(types.KeyPostSubmitMessage)),
		Reasons:      cfg.Reasons(),
		SiteKey:      cfg.Get(types.KeyRecaptchaSiteKey),
		SubmitURL:    submitURL,
	}
	if cfg.Bool(types.KeyShowPhoneNumberOnForm) {
		p.Phone = cfg.Get(types.KeyBusinessPhone)
	}
	if cfg.Bool(types.KeyShowEmailOnPhone) {
		p.Email = cfg.Get(types.KeyNotifyOnSubmit)
	}
	for _, key := range types.SocialKeys {
		if url := cfg.Get(key); url != "" {
			p.Social = append(p.Social, SocialLink{Network: strings.TrimSuffix(key, "_url"), URL: url})
		}
	}
	return p
}

// ErrorPage builds a page that shows message instead of the form.
func ErrorPage(message string) *Page {
	return &Page{
		Title:       DefaultTitle,
		Description: DefaultDescription,
		Theme:       DefaultTheme,
		ThemeVars:   ThemeVars(DefaultTheme),
		Error:       message,
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<style>
:root {
{{- range .ThemeVars}}
  {{.Declaration}}
{{- end}}
}
body { margin: 0; font-family: system-ui, sans-serif; background: var(--theme-page-background); }
header { background: var(--theme-header-background); color: var(--theme-header-text); padding: 1rem 2rem; }
.info { background: var(--theme-info-panel-background); color: var(--theme-info-panel-text); padding: 1.5rem; }
.info h2 { color: var(--theme-info-panel-heading); }
.form { background: var(--theme-form-panel-background); color: var(--theme-form-panel-text); padding: 1.5rem; border: 1px solid var(--theme-border-color); }
.form input, .form select, .form textarea { border: 1px solid var(--theme-form-field-border); background: var(--theme-form-field-background); color: var(--theme-form-field-text); }
.form button { background: var(--theme-button-enabled-background); color: var(--theme-button-enabled-text); }
.form button:hover { background: var(--theme-button-hover-background); color: var(--theme-button-hover-text); }
.form button:disabled { background: var(--theme-button-disabled-background); color: var(--theme-button-disabled-text); }
.error { color: var(--theme-error-color); }
.success { color: var(--theme-success-color); }
.hp { position: absolute; left: -10000px; }
</style>
{{- if .SiteKey}}
<script src="https://www.google.com/recaptcha/api.js" async defer></script>
{{- end}}
</head>
<body data-theme="{{.Theme}}">
{{- if .Error}}
<main class="form"><p class="error" role="alert">{{.Error}}</p></main>
{{- else}}
<header>
{{- if .LogoURL}}<img src="{{.LogoURL}}" alt="{{.BusinessName}}" height="48">{{end}}
<h1>{{if .BusinessName}}{{.BusinessName}}{{else}}Contact Us{{end}}</h1>
</header>
<main>
<section class="info">
{{- if .Intro}}<div class="intro">{{.Intro}}</div>{{end}}
{{- if .Address}}<p class="address">{{.Address}}</p>{{end}}
{{- if .Phone}}<p class="phone"><a href="tel:{{.Phone}}">{{.Phone}}</a></p>{{end}}
{{- if .Email}}<p class="email"><a href="mailto:{{.Email}}">{{.Email}}</a></p>{{end}}
{{- if .WebURL}}<p class="web"><a href="{{.WebURL}}" rel="noopener">{{.WebURL}}</a></p>{{end}}
{{- if .Social}}
<ul class="social">
{{- range .Social}}
<li><a href="{{.URL}}" class="social-{{.Network}}" rel="noopener" target="_blank">{{.Network}}</a></li>
{{- end}}
</ul>
{{- end}}
</section>
<section class="form">
<form id="contact-form" data-tenant-id="{{.TenantID}}" data-submit-url="{{.SubmitURL}}">
<input type="hidden" name="tenantId" value="{{.TenantID}}">
<label>First name <input name="firstName" required></label>
<label>Last name <input name="lastName" required></label>
<label>Email <input type="email" name="email" required></label>
<label>Phone <input type="tel" name="phone" required></label>
{{- if .Reasons}}
<label>Reason for contact <select name="reason">
{{- range .Reasons}}
<option value="{{.}}">{{.}}</option>
{{- end}}
</select></label>
{{- end}}
<label>Message <textarea name="message" rows="5"></textarea></label>
<div class="hp" aria-hidden="true"><input name="website" tabindex="-1" autocomplete="off"></div>
{{- if .SiteKey}}
<div id="recaptcha-element" class="g-recaptcha" data-sitekey="{{.SiteKey}}"></div>
{{- end}}
<button type="submit">Send</button>
<p class="error" role="alert" hidden></p>
</form>
<div class="success" hidden>{{if .PostSubmit}}{{.PostSubmit}}{{else}}<p>Thank you! Your message has been sent.</p>{{end}}</div>
</section>
</main>
<script>
(function () {
  var form = document.getElementById("contact-form");
  var errorBox = form.querySelector(".error");
  var button = form.querySelector("button");
  form.addEventListener("submit", function (e) {
    e.preventDefault();
    var body = {};
    new FormData(form).forEach(function (v, k) { body[k] = v; });
    if (window.grecaptcha) { body.recaptchaToken = window.grecaptcha.getResponse(); }
    button.disabled = true;
    errorBox.hidden = true;
    fetch(form.dataset.submitUrl, {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify(body)
    }).then(function (res) {
      return res.json().then(function (data) { return {ok: res.ok, data: data}; });
    }).then(function (r) {
      if (!r.ok) { throw new Error(r.data.error || "Submission failed"); }
      form.hidden = true;
      document.querySelector(".success").hidden = false;
    }).catch(function (err) {
      errorBox.textContent = err.message;
      errorBox.hidden = false;
      button.disabled = false;
      if (window.grecaptcha) { window.grecaptcha.reset(); }
    });
  });
})();
</script>
{{- end}}
</body>
</html>
`))

// Render executes the page template.
func Render(p *Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render form page: %w", err)
	}
	return buf.Bytes(), nil
}
