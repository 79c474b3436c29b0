// Package useragent derives coarse device, platform and browser labels from
// a User-Agent string.
package useragent

import (
	"github.com/localcontactforms/contactform/pkg/pattern"
)

// Device types
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// Unknown labels a platform that matched no rule
const Unknown = "Unknown"

// OtherBrowser labels a browser that matched no rule
const OtherBrowser = "Other"

type rule struct {
	pattern *pattern.Pattern
	label   string
}

func rules(pairs ...string) []rule {
	out := make([]rule, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, rule{pattern: pattern.MustCompile(pairs[i]), label: pairs[i+1]})
	}
	return out
}

// Rules are checked in order; the first match wins. Order matters where one
// family's UA embeds another's token (Android contains Linux, iOS contains
// Mac OS X, Edge and Opera contain Chrome).
var (
	deviceRules = rules(
		`~*ipad|tablet|kindle|silk/|playbook`, DeviceTablet,
		`~*mobi|iphone|ipod|blackberry|iemobile|opera mini|windows phone`, DeviceMobile,
		`~*android`, DeviceTablet,
	)

	platformRules = rules(
		`~*iphone|ipad|ipod`, "iOS",
		`~*android`, "Android",
		`~*\bcros\b`, "ChromeOS",
		`~*windows`, "Windows",
		`~*macintosh|mac os x`, "macOS",
		`~*linux|x11`, "Linux",
	)

	browserRules = rules(
		`~*edg(e|a|ios)?/`, "Edge",
		`~*opr/|opera`, "Opera",
		`~*chrome/|crios/|chromium/`, "Chrome",
		`~*firefox/|fxios/`, "Firefox",
		`~*safari/`, "Safari",
	)
)

func firstMatch(rs []rule, ua, fallback string) string {
	for _, r := range rs {
		if r.pattern.Match(ua) {
			return r.label
		}
	}
	return fallback
}

// Info is the classification of one User-Agent.
type Info struct {
	Device   string
	Platform string
	Browser  string
	Bot      bool
}

// Classifier holds the configured bot patterns.
type Classifier struct {
	bots pattern.Set
}

// NewClassifier compiles botPatterns using the pattern package syntax.
func NewClassifier(botPatterns []string) (*Classifier, error) {
	set, err := pattern.CompileSet(botPatterns)
	if err != nil {
		return nil, err
	}
	return &Classifier{bots: set}, nil
}

func (c *Classifier) Device(ua string) string {
	return firstMatch(deviceRules, ua, DeviceDesktop)
}

func (c *Classifier) Platform(ua string) string {
	return firstMatch(platformRules, ua, Unknown)
}

func (c *Classifier) Browser(ua string) string {
	return firstMatch(browserRules, ua, OtherBrowser)
}

// IsBot reports whether ua matches a configured bot pattern.
func (c *Classifier) IsBot(ua string) bool {
	return c.bots.MatchAny(ua)
}

func (c *Classifier) Classify(ua string) Info {
	return Info{
		Device:   c.Device(ua),
		Platform: c.Platform(ua),
		Browser:  c.Browser(ua),
		Bot:      c.IsBot(ua),
	}
}
