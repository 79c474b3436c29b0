package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // business timezones must resolve in minimal containers

	"github.com/localcontactforms/contactform/internal/common/configtypes"
	"github.com/localcontactforms/contactform/internal/common/yamlutil"
	"github.com/localcontactforms/contactform/pkg/pattern"
	"github.com/localcontactforms/contactform/pkg/types"
)

// Defaults shared by both services
const (
	DefaultTimezone         = "America/New_York"
	DefaultMasterRange      = "tenants_master_sheet!A2:L1000"
	DefaultConfigRange      = "config!A2:B100"
	DefaultSubmissionsTab   = "Sheet1"
	DefaultTrackingTab      = "Sheet1"
	DefaultAnalyticsTab     = "hit_counter"
	DefaultVerifyURL        = "https://www.google.com/recaptcha/api/siteverify"
	DefaultConfigPath       = "/.netlify/functions/get-tenant-config"
	DefaultAnalyticsPath    = "/.netlify/functions/log-analytics"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "contactform"
	DefaultPathPrefix       = "contact/"
)

// DefaultClientIPHeaders prefers the platform-provided address over the forwarded chain.
var DefaultClientIPHeaders = []string{"X-Nf-Client-Connection-Ip", "X-Forwarded-For"}

var defaultLocalHosts = []string{"localhost", "127.0.0.1", "::1", "0.0.0.0"}

var defaultSkipPaths = []string{
	"/.netlify/*",
	"/health",
	"/ready",
	"/favicon.ico",
	"/robots.txt",
	"/assets/*",
	"*.js",
	"*.css",
	"*.map",
	"*.png",
	"*.jpg",
	"*.svg",
	"*.ico",
	"*.woff2",
}

var defaultBotPatterns = []string{
	"*bot*",
	"*crawler*",
	"*spider*",
	"*lighthouse*",
	"*headlesschrome*",
	"*facebookexternalhit*",
}

// LoadFormServiceConfig reads the form service YAML, overlays the process
// environment, applies defaults and validates the result.
func LoadFormServiceConfig(path string) (*configtypes.FormServiceConfig, error) {
	return loadFormServiceConfig(path, os.Getenv)
}

func loadFormServiceConfig(path string, getenv Getenv) (*configtypes.FormServiceConfig, error) {
	cfg := &configtypes.FormServiceConfig{}
	if path != "" {
		if err := yamlutil.LoadFileStrict(path, cfg); err != nil {
			return nil, err
		}
	}

	applyFormServiceEnv(cfg, getenv)
	ApplyFormServiceDefaults(cfg)

	if err := ValidateFormServiceConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEdgeConfig reads the edge gateway YAML the same way.
func LoadEdgeConfig(path string) (*configtypes.EdgeConfig, error) {
	return loadEdgeConfig(path, os.Getenv)
}

func loadEdgeConfig(path string, getenv Getenv) (*configtypes.EdgeConfig, error) {
	cfg := &configtypes.EdgeConfig{}
	if path != "" {
		if err := yamlutil.LoadFileStrict(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEdgeEnv(cfg, getenv)
	ApplyEdgeDefaults(cfg)

	if err := ValidateEdgeConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFormServiceDefaults fills every unset field with its default.
func ApplyFormServiceDefaults(cfg *configtypes.FormServiceConfig) {
	applyServerDefaults(&cfg.Server, ":8080")

	s := &cfg.Sheets
	if s.MasterRange == "" {
		s.MasterRange = DefaultMasterRange
	}
	if s.ConfigRange == "" {
		s.ConfigRange = DefaultConfigRange
	}
	if s.SubmissionsTab == "" {
		s.SubmissionsTab = DefaultSubmissionsTab
	}
	if s.TrackingTab == "" {
		s.TrackingTab = DefaultTrackingTab
	}

	if cfg.Captcha.VerifyURL == "" {
		cfg.Captcha.VerifyURL = DefaultVerifyURL
	}
	if cfg.Captcha.Timeout == 0 {
		cfg.Captcha.Timeout = types.Duration(10 * time.Second)
	}

	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 465
	}

	if cfg.Submission.Timezone == "" {
		cfg.Submission.Timezone = DefaultTimezone
	}
	if cfg.Analytics.Tab == "" {
		cfg.Analytics.Tab = DefaultAnalyticsTab
	}

	if len(cfg.ClientIP.Headers) == 0 {
		cfg.ClientIP.Headers = DefaultClientIPHeaders
	}

	applyLogDefaults(&cfg.Log)
	applyMetricsDefaults(&cfg.Metrics)
}

// ApplyEdgeDefaults fills every unset field with its default.
func ApplyEdgeDefaults(cfg *configtypes.EdgeConfig) {
	applyServerDefaults(&cfg.Server, ":8000")

	cfg.Origin.URL = strings.TrimRight(cfg.Origin.URL, "/")
	if cfg.Origin.Timeout == 0 {
		cfg.Origin.Timeout = types.Duration(15 * time.Second)
	}
	if cfg.Origin.ConfigPath == "" {
		cfg.Origin.ConfigPath = DefaultConfigPath
	}

	m := &cfg.MetaTags
	if m.LocalHosts == nil {
		m.LocalHosts = defaultLocalHosts
	}
	if m.PathPrefix == "" {
		m.PathPrefix = DefaultPathPrefix
	}
	if m.TwitterDescriptionSource == "" {
		m.TwitterDescriptionSource = configtypes.TwitterDescriptionMeta
	}

	b := &cfg.Beacon
	if b.Endpoint == "" && cfg.Origin.URL != "" {
		b.Endpoint = cfg.Origin.URL + DefaultAnalyticsPath
	}
	if b.Timeout == 0 {
		b.Timeout = types.Duration(5 * time.Second)
	}
	if b.Timezone == "" {
		b.Timezone = DefaultTimezone
	}
	if b.SkipPaths == nil {
		b.SkipPaths = defaultSkipPaths
	}
	if b.BotPatterns == nil {
		b.BotPatterns = defaultBotPatterns
	}

	if len(cfg.ClientIP.Headers) == 0 {
		cfg.ClientIP.Headers = DefaultClientIPHeaders
	}

	applyLogDefaults(&cfg.Log)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyServerDefaults(s *configtypes.ServerConfig, listen string) {
	if s.Listen == "" {
		s.Listen = listen
	}
	s.Listen = configtypes.CanonicalListen(s.Listen)
	if s.TLS.Listen != "" {
		s.TLS.Listen = configtypes.CanonicalListen(s.TLS.Listen)
	}
	if s.Timeout == 0 {
		s.Timeout = types.Duration(30 * time.Second)
	}
}

func applyLogDefaults(l *configtypes.LogConfig) {
	if l.Level == "" {
		l.Level = configtypes.LogLevelInfo
	}
	if !l.Console.Enabled && !l.File.Enabled {
		l.Console.Enabled = true
	}
	if l.Console.Format == "" {
		l.Console.Format = configtypes.LogFormatConsole
	}
	if l.File.Format == "" {
		l.File.Format = configtypes.LogFormatJSON
	}
}

func applyMetricsDefaults(m *configtypes.MetricsConfig) {
	if m.Listen != "" {
		m.Listen = configtypes.CanonicalListen(m.Listen)
	}
	if m.Path == "" {
		m.Path = DefaultMetricsPath
	}
	if m.Namespace == "" {
		m.Namespace = DefaultMetricsNamespace
	}
}

// ValidateFormServiceConfig reports every problem at once.
func ValidateFormServiceConfig(cfg *configtypes.FormServiceConfig) error {
	var errs []error

	errs = append(errs, validateServer(cfg.Server)...)

	if cfg.Sheets.MasterSheetID == "" {
		errs = append(errs, fmt.Errorf("sheets.master_sheet_id is required (or set %s)", EnvGlobalConfigSheet))
	}
	if cfg.Sheets.CredentialsJSON == "" && cfg.Sheets.CredentialsFile == "" {
		errs = append(errs, fmt.Errorf("sheets credentials are required (set %s)", EnvServiceAccountKey))
	}
	if !strings.Contains(cfg.Sheets.MasterRange, "!") {
		errs = append(errs, fmt.Errorf("sheets.master_range must be in A1 notation with a tab name, got %q", cfg.Sheets.MasterRange))
	}
	if !strings.Contains(cfg.Sheets.ConfigRange, "!") {
		errs = append(errs, fmt.Errorf("sheets.config_range must be in A1 notation with a tab name, got %q", cfg.Sheets.ConfigRange))
	}

	if _, err := url.ParseRequestURI(cfg.Captcha.VerifyURL); err != nil {
		errs = append(errs, fmt.Errorf("captcha.verify_url: %w", err))
	}

	if cfg.SMTP.Enabled {
		if cfg.SMTP.Host == "" {
			errs = append(errs, fmt.Errorf("smtp.host is required when smtp is enabled"))
		}
		if cfg.SMTP.Sender == "" {
			errs = append(errs, fmt.Errorf("smtp.sender is required when smtp is enabled"))
		}
	}

	if _, err := time.LoadLocation(cfg.Submission.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("submission.timezone: %w", err))
	}

	if cfg.Redis != nil && cfg.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("redis.addr is required when redis is configured"))
	}

	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateMetrics(cfg.Metrics, cfg.Server.Listen)...)

	return errors.Join(errs...)
}

// ValidateEdgeConfig reports every problem at once.
func ValidateEdgeConfig(cfg *configtypes.EdgeConfig) error {
	var errs []error

	errs = append(errs, validateServer(cfg.Server)...)

	if cfg.Origin.URL == "" {
		errs = append(errs, fmt.Errorf("origin.url is required (or set %s)", EnvOriginURL))
	} else if u, err := url.Parse(cfg.Origin.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("origin.url must be an absolute URL, got %q", cfg.Origin.URL))
	}

	switch cfg.MetaTags.TwitterDescriptionSource {
	case configtypes.TwitterDescriptionMeta, configtypes.TwitterDescriptionIntro:
	default:
		errs = append(errs, fmt.Errorf("meta_tags.twitter_description_source must be %q or %q, got %q",
			configtypes.TwitterDescriptionMeta, configtypes.TwitterDescriptionIntro, cfg.MetaTags.TwitterDescriptionSource))
	}

	if cfg.Beacon.Enabled {
		if _, err := url.ParseRequestURI(cfg.Beacon.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("beacon.endpoint: %w", err))
		}
		if _, err := time.LoadLocation(cfg.Beacon.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("beacon.timezone: %w", err))
		}
		if _, err := pattern.CompileSet(cfg.Beacon.SkipPaths); err != nil {
			errs = append(errs, fmt.Errorf("beacon.skip_paths: %w", err))
		}
		if _, err := pattern.CompileSet(cfg.Beacon.BotPatterns); err != nil {
			errs = append(errs, fmt.Errorf("beacon.bot_patterns: %w", err))
		}
	}

	if cfg.EventLogging != nil && cfg.EventLogging.File.Enabled && cfg.EventLogging.File.Path == "" {
		errs = append(errs, fmt.Errorf("event_logging.file.path is required when file logging is enabled"))
	}

	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateMetrics(cfg.Metrics, cfg.Server.Listen)...)

	return errors.Join(errs...)
}

func validateServer(s configtypes.ServerConfig) []error {
	var errs []error
	if err := configtypes.ValidateListenAddress(s.Listen); err != nil {
		errs = append(errs, fmt.Errorf("server.listen: %w", err))
	}
	if s.TLS.Enabled {
		if err := configtypes.ValidateListenAddress(s.TLS.Listen); err != nil {
			errs = append(errs, fmt.Errorf("server.tls.listen: %w", err))
		}
		if s.TLS.CertFile == "" || s.TLS.KeyFile == "" {
			errs = append(errs, fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when tls is enabled"))
		}
	}
	return errs
}

func validateLog(l configtypes.LogConfig) []error {
	var errs []error
	switch l.Level {
	case configtypes.LogLevelDebug, configtypes.LogLevelInfo, configtypes.LogLevelWarn, configtypes.LogLevelError:
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", l.Level))
	}
	if l.File.Enabled && l.File.Path == "" {
		errs = append(errs, fmt.Errorf("log.file.path is required when file logging is enabled"))
	}
	return errs
}

func validateMetrics(m configtypes.MetricsConfig, serverListen string) []error {
	if !m.Enabled {
		return nil
	}
	var errs []error
	if err := configtypes.ValidateListenAddress(m.Listen); err != nil {
		errs = append(errs, fmt.Errorf("metrics.listen: %w", err))
	} else if configtypes.SamePort(m.Listen, serverListen) {
		errs = append(errs, fmt.Errorf("metrics.listen must use a different port than server.listen"))
	}
	if !strings.HasPrefix(m.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with /"))
	}
	return errs
}
