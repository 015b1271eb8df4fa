// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN; empty until DB is wired.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// ClockSkewTolerance is the max difference between a signed request's
	// timestamp and server time (e.g. "5m"). Requests outside it are rejected
	// before the nonce ledger is consulted.
	ClockSkewTolerance string `mapstructure:"CLOCK_SKEW_TOLERANCE"`
	// TwoFactorTTL is the lifetime of a two-factor code (e.g. "10m").
	TwoFactorTTL string `mapstructure:"TWO_FACTOR_TTL"`
	// TwoFactorMaxAttempts is how many mismatched codes invalidate a challenge; default 5.
	TwoFactorMaxAttempts int `mapstructure:"TWO_FACTOR_MAX_ATTEMPTS"`
	// TwoFactorCodeLength is the number of digits in a two-factor code; default 6.
	TwoFactorCodeLength int `mapstructure:"TWO_FACTOR_CODE_LENGTH"`
	// MailerURL is the HTTP mail API endpoint used to deliver two-factor codes.
	MailerURL string `mapstructure:"MAILER_URL"`
	// MailerAPIKey authenticates against the mail API.
	MailerAPIKey string `mapstructure:"MAILER_API_KEY"`
	// MailerFrom is the sender address for two-factor emails.
	MailerFrom string `mapstructure:"MAILER_FROM"`
	// RiskAssessmentURL is the risk-scoring service endpoint (reCAPTCHA-style assessment API).
	RiskAssessmentURL string `mapstructure:"RISK_ASSESSMENT_URL"`
	// RiskAPIKey authenticates against the risk-scoring service.
	RiskAPIKey string `mapstructure:"RISK_API_KEY"`
	// RiskThresholdWeb/Android/IOS are the minimum acceptable scores per platform (0..1).
	RiskThresholdWeb     float64 `mapstructure:"RISK_THRESHOLD_WEB"`
	RiskThresholdAndroid float64 `mapstructure:"RISK_THRESHOLD_ANDROID"`
	RiskThresholdIOS     float64 `mapstructure:"RISK_THRESHOLD_IOS"`
	// RiskAllowOnUnavailable, when true, lets requests pass if the risk service
	// is unreachable. Default false (fail closed).
	RiskAllowOnUnavailable bool `mapstructure:"RISK_ALLOW_ON_UNAVAILABLE"`
	// CIDRWhitelist is a comma-separated list of "range|description" pairs
	// (e.g. "10.0.0.0/8|office,192.168.0.0/16|vpn"). Sources inside any range
	// are never challenged.
	CIDRWhitelist string `mapstructure:"CIDR_WHITELIST"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim; required when token issuance is enabled.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim; required when token issuance is enabled.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// AppleIssuer and AppleAudience validate Apple identity tokens.
	AppleIssuer   string `mapstructure:"APPLE_ISSUER"`
	AppleAudience string `mapstructure:"APPLE_AUDIENCE"`
	// GoogleUserInfoURL, FacebookUserInfoURL, LinkedInUserInfoURL override the
	// provider userinfo endpoints (tests point these at local fakes).
	GoogleUserInfoURL   string `mapstructure:"GOOGLE_USERINFO_URL"`
	FacebookUserInfoURL string `mapstructure:"FACEBOOK_USERINFO_URL"`
	LinkedInUserInfoURL string `mapstructure:"LINKEDIN_USERINFO_URL"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint for traces/metrics/logs; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// WhitelistEntry is one parsed CIDR whitelist entry.
type WhitelistEntry struct {
	Prefix      netip.Prefix
	Description string
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CLOCK_SKEW_TOLERANCE", "5m")
	v.SetDefault("TWO_FACTOR_TTL", "10m")
	v.SetDefault("TWO_FACTOR_MAX_ATTEMPTS", 5)
	v.SetDefault("TWO_FACTOR_CODE_LENGTH", 6)
	v.SetDefault("MAILER_URL", "")
	v.SetDefault("MAILER_FROM", "no-reply@newm.io")
	v.SetDefault("RISK_ASSESSMENT_URL", "")
	v.SetDefault("RISK_THRESHOLD_WEB", 0.5)
	v.SetDefault("RISK_THRESHOLD_ANDROID", 0.5)
	v.SetDefault("RISK_THRESHOLD_IOS", 0.5)
	v.SetDefault("RISK_ALLOW_ON_UNAVAILABLE", false)
	v.SetDefault("CIDR_WHITELIST", "")
	v.SetDefault("JWT_ISSUER", "newm-auth")
	v.SetDefault("JWT_AUDIENCE", "newm-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("APPLE_ISSUER", "https://appleid.apple.com")
	v.SetDefault("APPLE_AUDIENCE", "")
	v.SetDefault("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v2/userinfo")
	v.SetDefault("FACEBOOK_USERINFO_URL", "https://graph.facebook.com/v17.0/me")
	v.SetDefault("LINKEDIN_USERINFO_URL", "https://api.linkedin.com/v2/userinfo")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.TwoFactorMaxAttempts <= 0 {
		return nil, errors.New("config: TWO_FACTOR_MAX_ATTEMPTS must be positive")
	}
	if cfg.TwoFactorCodeLength < 4 || cfg.TwoFactorCodeLength > 10 {
		return nil, errors.New("config: TWO_FACTOR_CODE_LENGTH must be between 4 and 10")
	}
	for _, t := range []float64{cfg.RiskThresholdWeb, cfg.RiskThresholdAndroid, cfg.RiskThresholdIOS} {
		if t < 0 || t > 1 {
			return nil, errors.New("config: risk thresholds must be between 0 and 1")
		}
	}
	if _, err := cfg.Whitelist(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SkewTolerance parses ClockSkewTolerance as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) SkewTolerance() time.Duration {
	d, err := time.ParseDuration(c.ClockSkewTolerance)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// CodeTTL parses TwoFactorTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) CodeTTL() time.Duration {
	d, err := time.ParseDuration(c.TwoFactorTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// Whitelist parses CIDRWhitelist into prefix/description entries.
// Entries are "range|description"; the description is optional.
func (c *Config) Whitelist() ([]WhitelistEntry, error) {
	if c == nil || strings.TrimSpace(c.CIDRWhitelist) == "" {
		return nil, nil
	}
	parts := strings.Split(c.CIDRWhitelist, ",")
	out := make([]WhitelistEntry, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		rangeStr, desc, _ := strings.Cut(p, "|")
		prefix, err := netip.ParsePrefix(strings.TrimSpace(rangeStr))
		if err != nil {
			return nil, fmt.Errorf("config: invalid CIDR whitelist entry %q: %w", p, err)
		}
		out = append(out, WhitelistEntry{Prefix: prefix, Description: strings.TrimSpace(desc)})
	}
	return out, nil
}

// Thresholds returns the per-platform minimum risk scores keyed by platform tag.
func (c *Config) Thresholds() map[string]float64 {
	return map[string]float64{
		"web":     c.RiskThresholdWeb,
		"android": c.RiskThresholdAndroid,
		"ios":     c.RiskThresholdIOS,
	}
}
