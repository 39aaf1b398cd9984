package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/acctmgr/internal/flagx"
	"github.com/dmitrijs2005/acctmgr/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "30s" and integer nanoseconds are accepted.
type JsonConfig struct {
	LogLevel       string `json:"log_level"`
	DatabaseDriver string `json:"database_driver"`
	DatabaseDSN    string `json:"database_dsn"`

	PasswordStores []string `json:"password_stores"`
	HashMethod     string   `json:"hash_method"`

	HtPasswdFile     string `json:"htpasswd_file"`
	HtPasswdHashType string `json:"htpasswd_hash_type"`
	HtDigestFile     string `json:"htdigest_file"`
	HtDigestRealm    string `json:"htdigest_realm"`
	SvnServeFile     string `json:"svnserve_file"`

	FileBackend    string `json:"file_backend"`
	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	AuthenticationURL     string         `json:"authentication_url"`
	AuthenticationTimeout timex.Duration `json:"authentication_timeout"`

	RadiusServer   string         `json:"radius_server"`
	RadiusSecret   string         `json:"radius_secret"`
	RadiusAuthPort int            `json:"radius_authport"`
	RadiusTimeout  timex.Duration `json:"radius_timeout"`

	IgnoreAuthCase          bool `json:"ignore_auth_case"`
	RefreshPasswd           bool `json:"refresh_passwd"`
	ForcePasswdChange       bool `json:"force_passwd_change"`
	GeneratedPasswordLength int  `json:"generated_password_length"`

	RegisterChecks        []string `json:"register_check"`
	UsernameCharBlacklist string   `json:"username_char_blacklist"`
	UsernameRegexp        string   `json:"username_regexp"`
	EmailRegexp           string   `json:"email_regexp"`
	VerifyEmail           bool     `json:"verify_email"`
	RegisterBasicToken    string   `json:"register_basic_token"`

	LoginAttemptMaxCount    int            `json:"login_attempt_max_count"`
	UserLockTime            timex.Duration `json:"user_lock_time"`
	UserLockMaxTime         timex.Duration `json:"user_lock_max_time"`
	UserLockTimeProgression float64        `json:"user_lock_time_progression"`

	UIDChangers []string `json:"uid_changers"`

	MetricsAddr string `json:"metrics_addr"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		LogLevel:                c.LogLevel,
		DatabaseDriver:          c.DatabaseDriver,
		DatabaseDSN:             c.DatabaseDSN,
		PasswordStores:          c.PasswordStores,
		HashMethod:              c.HashMethod,
		HtPasswdFile:            c.HtPasswdFile,
		HtPasswdHashType:        c.HtPasswdHashType,
		HtDigestFile:            c.HtDigestFile,
		HtDigestRealm:           c.HtDigestRealm,
		SvnServeFile:            c.SvnServeFile,
		FileBackend:             c.FileBackend,
		S3RootUser:              c.S3RootUser,
		S3RootPassword:          c.S3RootPassword,
		S3Bucket:                c.S3Bucket,
		S3Region:                c.S3Region,
		S3BaseEndpoint:          c.S3BaseEndpoint,
		AuthenticationURL:       c.AuthenticationURL,
		AuthenticationTimeout:   timex.Duration{Duration: c.AuthenticationTimeout},
		RadiusServer:            c.RadiusServer,
		RadiusSecret:            c.RadiusSecret,
		RadiusAuthPort:          c.RadiusAuthPort,
		RadiusTimeout:           timex.Duration{Duration: c.RadiusTimeout},
		IgnoreAuthCase:          c.IgnoreAuthCase,
		RefreshPasswd:           c.RefreshPasswd,
		ForcePasswdChange:       c.ForcePasswdChange,
		GeneratedPasswordLength: c.GeneratedPasswordLength,
		RegisterChecks:          c.RegisterChecks,
		UsernameCharBlacklist:   c.UsernameCharBlacklist,
		UsernameRegexp:          c.UsernameRegexp,
		EmailRegexp:             c.EmailRegexp,
		VerifyEmail:             c.VerifyEmail,
		RegisterBasicToken:      c.RegisterBasicToken,
		LoginAttemptMaxCount:    c.LoginAttemptMaxCount,
		UserLockTime:            timex.Duration{Duration: c.UserLockTime},
		UserLockMaxTime:         timex.Duration{Duration: c.UserLockMaxTime},
		UserLockTimeProgression: c.UserLockTimeProgression,
		UIDChangers:             c.UIDChangers,
		MetricsAddr:             c.MetricsAddr,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.LogLevel = j.LogLevel
	c.DatabaseDriver = j.DatabaseDriver
	c.DatabaseDSN = j.DatabaseDSN
	c.PasswordStores = j.PasswordStores
	c.HashMethod = j.HashMethod
	c.HtPasswdFile = j.HtPasswdFile
	c.HtPasswdHashType = j.HtPasswdHashType
	c.HtDigestFile = j.HtDigestFile
	c.HtDigestRealm = j.HtDigestRealm
	c.SvnServeFile = j.SvnServeFile
	c.FileBackend = j.FileBackend
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.AuthenticationURL = j.AuthenticationURL
	c.AuthenticationTimeout = j.AuthenticationTimeout.Duration
	c.RadiusServer = j.RadiusServer
	c.RadiusSecret = j.RadiusSecret
	c.RadiusAuthPort = j.RadiusAuthPort
	c.RadiusTimeout = j.RadiusTimeout.Duration
	c.IgnoreAuthCase = j.IgnoreAuthCase
	c.RefreshPasswd = j.RefreshPasswd
	c.ForcePasswdChange = j.ForcePasswdChange
	c.GeneratedPasswordLength = j.GeneratedPasswordLength
	c.RegisterChecks = j.RegisterChecks
	c.UsernameCharBlacklist = j.UsernameCharBlacklist
	c.UsernameRegexp = j.UsernameRegexp
	c.EmailRegexp = j.EmailRegexp
	c.VerifyEmail = j.VerifyEmail
	c.RegisterBasicToken = j.RegisterBasicToken
	c.LoginAttemptMaxCount = j.LoginAttemptMaxCount
	c.UserLockTime = j.UserLockTime.Duration
	c.UserLockMaxTime = j.UserLockMaxTime.Duration
	c.UserLockTimeProgression = j.UserLockTimeProgression
	c.UIDChangers = j.UIDChangers
	c.MetricsAddr = j.MetricsAddr
}

// parseJson overlays the JSON file named by -c/-config onto config. Keys
// absent from the file keep their current values. An unreadable file or
// invalid JSON panics, since the process cannot start with a broken config.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	c.apply(config)
}
