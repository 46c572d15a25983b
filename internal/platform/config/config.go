// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local .env file is
merged in first when present; real environment variables always win.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Mail) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/taibuivan/resumehub/internal/platform/mail"
	"github.com/taibuivan/resumehub/internal/platform/sec"
	"github.com/taibuivan/resumehub/internal/platform/startup"
)

// Mail dispatch modes.
const (
	DispatchQueue  = "queue"
	DispatchInline = "inline"
)

// # Configuration Schema

// Config holds all runtime configuration for the API server and the mail worker.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"15"`
	DatabaseMinConns int32  `env:"DATABASE_MIN_CONNS" envDefault:"2"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL      string `env:"REDIS_URL,required"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// StartupAttempts bounds how often postgres and redis are probed at boot
	StartupAttempts uint64 `env:"STARTUP_ATTEMPTS" envDefault:"5"`

	// Asymmetric JWT keys, either as file paths or inline PEM
	JWTPrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH"`
	JWTPrivateKey     string        `env:"JWT_PRIVATE_KEY"`
	JWTPublicKey      string        `env:"JWT_PUBLIC_KEY"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"30m"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Email verification tokens and links
	SecretKey                 string        `env:"SECRET_KEY"`
	SaltEmail                 string        `env:"SALT_EMAIL"                  envDefault:"email-confirmation"`
	EmailTokenMaxAge          time.Duration `env:"EMAIL_TOKEN_MAX_AGE"         envDefault:"24h"`
	FrontendURL               string        `env:"FRONTEND_URL"                envDefault:"http://localhost:3000"`
	EmailVerificationEndpoint string        `env:"EMAIL_VERIFICATION_ENDPOINT" envDefault:"/verify-email/"`

	// Login brute-force protection
	MaxLoginAttempts      int           `env:"MAX_LOGIN_ATTEMPTS"        envDefault:"5"`
	LoginBlockTime        time.Duration `env:"LOGIN_BLOCK_TIME"          envDefault:"15m"`
	MaxLoginAttemptsPerIP int           `env:"MAX_LOGIN_ATTEMPTS_PER_IP" envDefault:"30"`
	LoginBlockTimeIP      time.Duration `env:"LOGIN_BLOCK_TIME_IP"       envDefault:"20m"`

	// Password hashing (argon2id)
	Argon2MemoryKiB   uint32 `env:"ARGON2_MEMORY_KIB"  envDefault:"65536"`
	Argon2Iterations  uint32 `env:"ARGON2_ITERATIONS"  envDefault:"3"`
	Argon2Parallelism uint8  `env:"ARGON2_PARALLELISM" envDefault:"2"`
	Argon2SaltLength  uint32 `env:"ARGON2_SALT_LENGTH" envDefault:"16"`
	Argon2KeyLength   uint32 `env:"ARGON2_KEY_LENGTH"  envDefault:"32"`
	HashConcurrency   int    `env:"HASH_CONCURRENCY"   envDefault:"0"`

	// Outbound mail (SMTP with STARTTLS)
	SMTPHost          string        `env:"SMTP_HOST"`
	SMTPPort          string        `env:"SMTP_PORT"          envDefault:"587"`
	SMTPUser          string        `env:"SMTP_USER"`
	SMTPPassword      string        `env:"SMTP_PASSWORD"`
	MailFrom          string        `env:"MAIL_FROM"`
	MailMaxRetries    int           `env:"MAIL_MAX_RETRIES"   envDefault:"3"`
	MailRetryDelay    time.Duration `env:"MAIL_RETRY_DELAY"   envDefault:"60s"`
	MailDispatch      string        `env:"MAIL_DISPATCH"      envDefault:"queue"`
	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" envDefault:"5"`

	// Cross-Origin Resource Sharing and cookies
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	CookieSecure   bool     `env:"COOKIE_SECURE"   envDefault:"true"`
}

// # Configuration Loading

// Load parses and validates the configuration used by cmd/api.
func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateAPI(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker parses and validates the configuration used by cmd/worker.
func LoadWorker() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateMail(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// loadDotEnv merges ENV_FILE (default ".env") into the process environment.
// A missing file is not an error.
func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	return nil
}

// # Validation

// ValidateAPI checks the settings only the API server needs.
func (c *Config) ValidateAPI() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	if c.JWTPrivateKeyPath == "" && c.JWTPrivateKey == "" {
		errs = append(errs, errors.New("JWT_PRIVATE_KEY_PATH or JWT_PRIVATE_KEY is required"))
	}
	if c.JWTPublicKeyPath == "" && c.JWTPublicKey == "" {
		errs = append(errs, errors.New("JWT_PUBLIC_KEY_PATH or JWT_PUBLIC_KEY is required"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= c.AccessTokenTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must exceed a positive ACCESS_TOKEN_TTL"))
	}
	if c.MaxLoginAttempts < 1 || c.MaxLoginAttemptsPerIP < 1 {
		errs = append(errs, errors.New("login attempt thresholds must be at least 1"))
	}
	if c.LoginBlockTime < time.Second || c.LoginBlockTimeIP < time.Second {
		errs = append(errs, errors.New("login block times must be at least one second"))
	}
	if c.MailDispatch != DispatchQueue && c.MailDispatch != DispatchInline {
		errs = append(errs, fmt.Errorf("MAIL_DISPATCH must be %q or %q", DispatchQueue, DispatchInline))
	}
	if c.MailDispatch == DispatchInline {
		if err := c.ValidateMail(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.HashParams().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// ValidateMail checks the settings needed to deliver email.
func (c *Config) ValidateMail() error {
	var errs []error

	if c.SMTPHost == "" {
		errs = append(errs, errors.New("SMTP_HOST is required"))
	}
	if c.MailFrom == "" {
		errs = append(errs, errors.New("MAIL_FROM is required"))
	}
	if c.MailMaxRetries < 0 {
		errs = append(errs, errors.New("MAIL_MAX_RETRIES must not be negative"))
	}
	if c.MailRetryDelay <= 0 {
		errs = append(errs, errors.New("MAIL_RETRY_DELAY must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// # Derived Settings

// HashParams returns the argon2id work factor.
func (c *Config) HashParams() sec.HashParams {
	return sec.HashParams{
		MemoryKiB:   c.Argon2MemoryKiB,
		Iterations:  c.Argon2Iterations,
		Parallelism: c.Argon2Parallelism,
		SaltLength:  c.Argon2SaltLength,
		KeyLength:   c.Argon2KeyLength,
	}
}

// SMTP returns the relay settings for [mail.NewSMTPSender].
func (c *Config) SMTP() mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
	}
}

// MailPolicy returns the bounded retry policy for activation emails.
func (c *Config) MailPolicy() mail.Policy {
	return mail.Policy{MaxRetries: c.MailMaxRetries, Delay: c.MailRetryDelay}
}

// StartupPolicy returns the dependency wait used for postgres and redis.
func (c *Config) StartupPolicy() startup.Policy {
	policy := startup.DefaultPolicy()
	policy.Attempts = c.StartupAttempts
	return policy
}

// VerificationBaseURL is the link prefix to which "?token=..." is appended.
func (c *Config) VerificationBaseURL() string {
	return c.FrontendURL + c.EmailVerificationEndpoint
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
