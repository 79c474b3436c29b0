package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
)

// Environment variable names
const (
	EnvServiceAccountKey  = "GOOGLE_SERVICE_ACCOUNT_KEY"
	EnvServiceAccountFile = "GOOGLE_SERVICE_ACCOUNT_FILE"
	EnvGlobalConfigSheet  = "GLOBAL_CONFIG_SHEET_ID"
	EnvTrackingSheet      = "TRACKING_SHEET_ID"
	EnvAnalyticsSheet     = "ANALYTICS_SHEET_ID"
	EnvRecaptchaSecret    = "RECAPTCHA_SECRET_KEY"
	EnvRecaptchaSiteKey   = "RECAPTCHA_SITE_KEY"
	EnvSMTPHost           = "SMTP_HOST"
	EnvSMTPPort           = "SMTP_PORT"
	EnvSMTPUser           = "SMTP_USER"
	EnvSMTPPass           = "SMTP_PASS"
	EnvSMTPSender         = "SMTP_SENDER"
	EnvRedisAddr          = "REDIS_ADDR"
	EnvRedisPassword      = "REDIS_PASSWORD"
	EnvOriginURL          = "ORIGIN_URL"
	EnvDefaultTenantID    = "DEFAULT_TENANT_ID"
)

// Getenv matches os.Getenv so tests can inject a fixed environment.
type Getenv func(string) string

// LoadDotEnv loads KEY=VALUE pairs from .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

func setFromEnv(getenv Getenv, name string, dst *string) {
	if v := strings.TrimSpace(getenv(name)); v != "" {
		*dst = v
	}
}

// applyFormServiceEnv overlays secrets and sheet locations from the environment.
func applyFormServiceEnv(cfg *configtypes.FormServiceConfig, getenv Getenv) {
	// service account JSON may legitimately contain leading whitespace; keep it raw
	if v := getenv(EnvServiceAccountKey); strings.TrimSpace(v) != "" {
		cfg.Sheets.CredentialsJSON = v
	}
	setFromEnv(getenv, EnvServiceAccountFile, &cfg.Sheets.CredentialsFile)
	setFromEnv(getenv, EnvGlobalConfigSheet, &cfg.Sheets.MasterSheetID)
	setFromEnv(getenv, EnvTrackingSheet, &cfg.Sheets.TrackingSheetID)
	setFromEnv(getenv, EnvAnalyticsSheet, &cfg.Analytics.SheetID)
	setFromEnv(getenv, EnvRecaptchaSecret, &cfg.Captcha.SecretKey)
	setFromEnv(getenv, EnvRecaptchaSiteKey, &cfg.Captcha.SiteKey)

	if host := strings.TrimSpace(getenv(EnvSMTPHost)); host != "" {
		cfg.SMTP.Enabled = true
		cfg.SMTP.Host = host
	}
	if port, err := strconv.Atoi(strings.TrimSpace(getenv(EnvSMTPPort))); err == nil {
		cfg.SMTP.Port = port
	}
	setFromEnv(getenv, EnvSMTPUser, &cfg.SMTP.Username)
	setFromEnv(getenv, EnvSMTPPass, &cfg.SMTP.Password)
	setFromEnv(getenv, EnvSMTPSender, &cfg.SMTP.Sender)

	if addr := strings.TrimSpace(getenv(EnvRedisAddr)); addr != "" {
		if cfg.Redis == nil {
			cfg.Redis = &configtypes.RedisConfig{}
		}
		cfg.Redis.Addr = addr
	}
	if cfg.Redis != nil {
		setFromEnv(getenv, EnvRedisPassword, &cfg.Redis.Password)
	}
}

func applyEdgeEnv(cfg *configtypes.EdgeConfig, getenv Getenv) {
	setFromEnv(getenv, EnvOriginURL, &cfg.Origin.URL)
	setFromEnv(getenv, EnvDefaultTenantID, &cfg.DefaultTenantID)
}
