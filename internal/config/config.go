// Package config handles configuration for the account manager: defaults,
// an optional JSON overlay and command-line flags, applied in that order.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/go-playground/validator/v10"
)

// Config holds the runtime settings of the account manager.
//
// Fields:
//   - DatabaseDriver / DatabaseDSN: relational store for sessions, attributes
//     and the tables touched by renames ("sqlite" or "pgx").
//   - PasswordStores: credential stores consulted in order.
//   - HashMethod: hash used by the session store.
//   - HtPasswd* / HtDigest* / SvnServeFile: file-backed stores.
//   - FileBackend and S3*: where password files live ("local" or "s3").
//   - AuthenticationURL / AuthenticationTimeout: verify-only HTTP store.
//   - Radius*: verify-only RADIUS store.
//   - Register*, UsernameRegexp, EmailRegexp, VerifyEmail: registration checks.
//   - LoginAttemptMaxCount and UserLock*: account guard.
//   - UIDChangers: changers run by identity renames.
type Config struct {
	LogLevel       string `validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	DatabaseDriver string `validate:"required,oneof=sqlite sqlite3 pgx postgres postgresql"`
	DatabaseDSN    string `validate:"required"`

	PasswordStores []string `validate:"required,min=1,dive,oneof=SessionStore HtPasswdStore HtDigestStore SvnServePasswordStore HttpAuthStore RadiusAuthStore"`
	HashMethod     string

	HtPasswdFile     string
	HtPasswdHashType string
	HtDigestFile     string
	HtDigestRealm    string
	SvnServeFile     string

	FileBackend    string `validate:"omitempty,oneof=local s3"`
	S3RootUser     string
	S3RootPassword string
	S3Bucket       string `validate:"required_if=FileBackend s3"`
	S3Region       string
	S3BaseEndpoint string `validate:"omitempty,url"`

	AuthenticationURL     string        `validate:"omitempty,url"`
	AuthenticationTimeout time.Duration `validate:"gte=0"`

	RadiusServer   string
	RadiusSecret   string
	RadiusAuthPort int           `validate:"gte=0,lte=65535"`
	RadiusTimeout  time.Duration `validate:"gte=0"`

	IgnoreAuthCase          bool
	RefreshPasswd           bool
	ForcePasswdChange       bool
	GeneratedPasswordLength int `validate:"gte=0"`

	RegisterChecks        []string `validate:"dive,oneof=BasicCheck BotTrapCheck EmailCheck RegExpCheck UsernamePermCheck"`
	UsernameCharBlacklist string
	UsernameRegexp        string
	EmailRegexp           string
	VerifyEmail           bool
	RegisterBasicToken    string

	LoginAttemptMaxCount    int           `validate:"gte=0"`
	UserLockTime            time.Duration `validate:"gte=0"`
	UserLockMaxTime         time.Duration `validate:"gte=0"`
	UserLockTimeProgression float64       `validate:"gte=0"`

	UIDChangers []string

	MetricsAddr string `validate:"omitempty,hostname_port"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.LogLevel = "info"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "acctmgr.db"

	c.PasswordStores = []string{"SessionStore"}
	c.HashMethod = "htdigest"

	c.HtPasswdHashType = "md5"
	c.HtDigestRealm = "TracDigestRealm"

	c.FileBackend = "local"
	c.S3Bucket = "accounts"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"

	c.AuthenticationTimeout = 10 * time.Second

	c.RadiusAuthPort = 1812
	c.RadiusTimeout = 5 * time.Second

	c.GeneratedPasswordLength = 8

	c.RegisterChecks = []string{"BasicCheck", "EmailCheck", "BotTrapCheck", "RegExpCheck", "UsernamePermCheck"}
	c.UsernameCharBlacklist = ":[]"
	c.UsernameRegexp = `(?i)^[A-Z0-9.\-_]{5,}$`
	c.EmailRegexp = `(?i)^[A-Z0-9._%+-]+@(?:[A-Z0-9-]+\.)+[A-Z]{2,6}$`

	c.UserLockMaxTime = 24 * time.Hour
	c.UserLockTimeProgression = 1

	c.UIDChangers = []string{"attachment", "auth_cookie", "component", "permission", "report", "revision", "ticket", "wiki"}
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// Validate checks field constraints declared in the struct tags. Errors wrap
// common.ErrorConfiguration.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorConfiguration, err)
	}
	return nil
}
