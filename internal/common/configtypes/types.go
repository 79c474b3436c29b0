package configtypes

import (
	"github.com/localcontactforms/contactform/pkg/types"
)

// Log level constants
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

// Twitter description sources
const (
	TwitterDescriptionMeta  = "meta_description"
	TwitterDescriptionIntro = "intro_text"
)

// FormServiceConfig is the origin service configuration: the three function
// endpoints and the server-rendered form page.
type FormServiceConfig struct {
	Server     ServerConfig        `yaml:"server"`
	Sheets     SheetsConfig        `yaml:"sheets"`
	Captcha    CaptchaConfig       `yaml:"captcha"`
	SMTP       SMTPConfig          `yaml:"smtp"`
	Submission SubmissionConfig    `yaml:"submission"`
	Analytics  AnalyticsSinkConfig `yaml:"analytics"`
	Redis      *RedisConfig        `yaml:"redis,omitempty"`
	ClientIP   ClientIPConfig      `yaml:"client_ip"`
	Log        LogConfig           `yaml:"log"`
	Metrics    MetricsConfig       `yaml:"metrics"`
}

// EdgeConfig is the edge gateway configuration.
type EdgeConfig struct {
	Server          ServerConfig        `yaml:"server"`
	Origin          OriginConfig        `yaml:"origin"`
	MetaTags        MetaTagsConfig      `yaml:"meta_tags"`
	DefaultTenantID string              `yaml:"default_tenant_id,omitempty"`
	Beacon          BeaconConfig        `yaml:"beacon"`
	EventLogging    *EventLoggingConfig `yaml:"event_logging,omitempty"`
	ClientIP        ClientIPConfig      `yaml:"client_ip"`
	Log             LogConfig           `yaml:"log"`
	Metrics         MetricsConfig       `yaml:"metrics"`
}

// TLSConfig holds TLS/HTTPS configuration for the public listener
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Listen   string `yaml:"listen"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type ServerConfig struct {
	Listen  string         `yaml:"listen"`
	Timeout types.Duration `yaml:"timeout"`
	TLS     TLSConfig      `yaml:"tls"`
}

// SheetsConfig locates the spreadsheets used as the data store.
// Credentials normally arrive through GOOGLE_SERVICE_ACCOUNT_KEY.
type SheetsConfig struct {
	CredentialsJSON string         `yaml:"credentials_json,omitempty"`
	CredentialsFile string         `yaml:"credentials_file,omitempty"`
	MasterSheetID   string         `yaml:"master_sheet_id"`
	MasterRange     string         `yaml:"master_range"`
	ConfigRange     string         `yaml:"config_range"`
	SubmissionsTab  string         `yaml:"submissions_tab"`
	TrackingSheetID string         `yaml:"tracking_sheet_id,omitempty"`
	TrackingTab     string         `yaml:"tracking_tab"`
	Timeout         types.Duration `yaml:"timeout"`
}

type CaptchaConfig struct {
	SecretKey string         `yaml:"secret_key,omitempty"`
	SiteKey   string         `yaml:"site_key,omitempty"`
	VerifyURL string         `yaml:"verify_url"`
	Timeout   types.Duration `yaml:"timeout"`
}

type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Sender   string `yaml:"sender"`
}

type SubmissionConfig struct {
	// Timezone stamps submission rows in the business's local time.
	Timezone string `yaml:"timezone"`
}

// AnalyticsSinkConfig locates the hit counter tab written by log-analytics.
type AnalyticsSinkConfig struct {
	SheetID string `yaml:"sheet_id,omitempty"`
	Tab     string `yaml:"tab"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ClientIPConfig lists headers consulted, in order, for the client address.
type ClientIPConfig struct {
	Headers []string `yaml:"headers"`
}

// OriginConfig points the edge at the form service.
type OriginConfig struct {
	URL        string         `yaml:"url"`
	Timeout    types.Duration `yaml:"timeout"`
	ConfigPath string         `yaml:"config_path"`
}

type MetaTagsConfig struct {
	Enabled                  *bool    `yaml:"enabled,omitempty"`
	LocalHosts               []string `yaml:"local_hosts"`
	PathPrefix               string   `yaml:"path_prefix"`
	TwitterDescriptionSource string   `yaml:"twitter_description_source"`
}

// IsEnabled defaults to true when unset.
func (m MetaTagsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

type BeaconConfig struct {
	Enabled     bool           `yaml:"enabled"`
	Endpoint    string         `yaml:"endpoint"`
	Timeout     types.Duration `yaml:"timeout"`
	Timezone    string         `yaml:"timezone"`
	SkipPaths   []string       `yaml:"skip_paths"`
	BotPatterns []string       `yaml:"bot_patterns"`
}

type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// EventLoggingConfig configures local page view logging at the edge
type EventLoggingConfig struct {
	File EventFileConfig `yaml:"file"`
}

// EventFileConfig configures the JSON lines page view log
type EventFileConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Rotation RotationConfig `yaml:"rotation"`
}
