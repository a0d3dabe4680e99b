package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/studyhub/authsvc/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction

	// Deliberately short: the access token forces clients onto the refresh
	// flow, the refresh token bounds the session
	defaultAccessTokenTTL  = 30 * time.Second
	defaultRefreshTokenTTL = 60 * time.Second
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the auth service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secrets for signing access and refresh tokens
	// Must never share a value: a leaked refresh token must not double as
	// an access token
	AccessSecret  string
	RefreshSecret string

	// Secret for signing the OAuth anti-CSRF state
	SessionSecret string

	// Token lifetimes
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Set the Secure flag on cookies. Off for plain-http development
	CookieSecure bool

	// Google OAuth client. The oauth routes are mounted only when set
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		ListenAddr:      defaultListenAddr,
		Environment:     defaultEnvironment,
		AccessTokenTTL:  defaultAccessTokenTTL,
		RefreshTokenTTL: defaultRefreshTokenTTL,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	var errs []error

	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setDuration := func(o *time.Duration, key string) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			parsed, err := time.ParseDuration(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("can't parse %s: %w", key, err))
				return
			}
			*o = parsed
		}
	}
	setBool := func(o *bool, key string) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("can't parse %s: %w", key, err))
				return
			}
			*o = parsed
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":          setString(&c.ListenAddr),
		"DATABASE_URI":         setString(&c.DatabaseDSN),
		"ACCESS_TOKEN_SECRET":  setString(&c.AccessSecret),
		"REFRESH_TOKEN_SECRET": setString(&c.RefreshSecret),
		"SESSION_SECRET":       setString(&c.SessionSecret),
		"ACCESS_TOKEN_TTL":     setDuration(&c.AccessTokenTTL, "ACCESS_TOKEN_TTL"),
		"REFRESH_TOKEN_TTL":    setDuration(&c.RefreshTokenTTL, "REFRESH_TOKEN_TTL"),
		"COOKIE_SECURE":        setBool(&c.CookieSecure, "COOKIE_SECURE"),
		"GOOGLE_CLIENT_ID":     setString(&c.GoogleClientID),
		"GOOGLE_CLIENT_SECRET": setString(&c.GoogleClientSecret),
		"GOOGLE_REDIRECT_URL":  setString(&c.GoogleRedirectURL),
		"LOG_LEVEL":            setString(&c.LogLevel),
		"ENVIRONMENT":          setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authsvc", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVar(&c.AccessSecret, "access-secret", c.AccessSecret, "Secret to sign access tokens")
	fs.StringVar(&c.RefreshSecret, "refresh-secret", c.RefreshSecret, "Secret to sign refresh tokens")
	fs.StringVar(&c.SessionSecret, "session-secret", c.SessionSecret, "Secret to sign oauth state")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.BoolVar(&c.CookieSecure, "cookie-secure", c.CookieSecure, "Set the Secure flag on cookies")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}

// Validate checks the invariants that are cheaper to catch at startup than
// to debug in production
func (c *Config) Validate() error {
	var errs []error

	if c.AccessSecret == "" {
		errs = append(errs, errors.New("access token secret must be set"))
	}
	if c.RefreshSecret == "" {
		errs = append(errs, errors.New("refresh token secret must be set"))
	}
	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		errs = append(errs, errors.New("access and refresh secrets must not share a value"))
	}
	if c.SessionSecret != "" && (c.SessionSecret == c.AccessSecret || c.SessionSecret == c.RefreshSecret) {
		errs = append(errs, errors.New("session secret must not share a value with token secrets"))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database connection string must be set"))
	}

	if c.GoogleClientID != "" || c.GoogleClientSecret != "" {
		if c.GoogleClientID == "" || c.GoogleClientSecret == "" || c.GoogleRedirectURL == "" {
			errs = append(errs, errors.New("google oauth requires client id, client secret and redirect url"))
		}
		if c.SessionSecret == "" {
			errs = append(errs, errors.New("google oauth requires a session secret"))
		}
	}

	return errors.Join(errs...)
}
