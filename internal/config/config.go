package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"outbound-calls/pkg/utils"
)

// Config holds all configuration required by the API process.
// Values are layered by Load (defaults, optional YAML file, environment).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig    `koanf:"app"`
	Store  StoreConfig  `koanf:"store"`
	DB     DBConfig     `koanf:"db"`
	Redis  RedisConfig  `koanf:"redis"`
	Auth   AuthConfig   `koanf:"jwt"`
	Twilio TwilioConfig `koanf:"twilio"`
	AMD    AMDConfig    `koanf:"amd"`
}

type AppConfig struct {
	Env  string `koanf:"env"`
	Port int    `koanf:"port"`
}

// StoreConfig selects where call records and the event journal live.
// Backend is one of memory, postgres, redis. The journal uses Postgres when
// the backend is postgres and memory otherwise.
type StoreConfig struct {
	Backend     string        `koanf:"backend"`
	RedisPrefix string        `koanf:"redis_prefix"`
	RedisTTL    time.Duration `koanf:"redis_ttl"`
}

type DBConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string `koanf:"sslmode"`

	// Pool sizing; zero keeps the driver-side defaults.
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type AuthConfig struct {
	JWTSecret      string        `koanf:"secret"`
	JWTIssuer      string        `koanf:"issuer"`
	JWTAudience    string        `koanf:"audience"`
	AccessTokenTTL time.Duration `koanf:"access_ttl"`
}

type TwilioConfig struct {
	AccountSID string `koanf:"account_sid"`
	AuthToken  string `koanf:"auth_token"`

	// APIBaseURL is the REST root, e.g. https://api.twilio.com/2010-04-01.
	APIBaseURL string `koanf:"api_base_url"`

	// BaseURL is this service's public host. It is used for the media stream
	// URL in the connection descriptor and for the recording callback.
	BaseURL string `koanf:"base_url"`

	// StatusCallbackURL enables status callbacks when set.
	StatusCallbackURL string `koanf:"status_callback_url"`

	// ValidateSignatures enforces X-Twilio-Signature on inbound webhooks.
	ValidateSignatures bool `koanf:"validate_signatures"`

	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// AMDConfig controls asynchronous answering machine detection on created calls.
type AMDConfig struct {
	Enabled         bool   `koanf:"enabled"`
	CallbackURL     string `koanf:"callback_url"`
	Mode            string `koanf:"mode"`
	Timeout         int    `koanf:"timeout"`
	SpeechThreshold int    `koanf:"speech_threshold"`
}

// Default returns the configuration used before any file or env layer.
func Default() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		Store: StoreConfig{Backend: "memory", RedisPrefix: "outbound:", RedisTTL: 24 * time.Hour},
		DB:    DBConfig{Port: 5432},
		Redis: RedisConfig{Port: 6379},
		Auth:  AuthConfig{AccessTokenTTL: 15 * time.Minute},
		Twilio: TwilioConfig{
			APIBaseURL:     "https://api.twilio.com/2010-04-01",
			RequestTimeout: 10 * time.Second,
		},
		AMD: AMDConfig{Mode: "DetectMessageEnd", Timeout: 30, SpeechThreshold: 2000},
	}
}

// Validate reports every problem at once and fills environment-dependent
// defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	switch c.Store.Backend {
	case "memory":
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE_BACKEND memory is not allowed in production"))
		}
	case "postgres":
		errs = append(errs, c.validateDB()...)
	case "redis":
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be one of memory, postgres, redis, got %q", c.Store.Backend))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		// Default: short-lived access tokens.
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	if c.Twilio.AccountSID == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
	}
	if c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}
	if strings.TrimSpace(c.Twilio.BaseURL) == "" {
		errs = append(errs, errors.New("TWILIO_BASE_URL is required"))
	}
	if !isAbsoluteURL(c.Twilio.APIBaseURL) {
		errs = append(errs, fmt.Errorf("TWILIO_API_BASE_URL must be an absolute URL, got %q", c.Twilio.APIBaseURL))
	}
	if c.Twilio.StatusCallbackURL != "" && !isAbsoluteURL(c.Twilio.StatusCallbackURL) {
		errs = append(errs, fmt.Errorf("TWILIO_STATUS_CALLBACK_URL must be an absolute URL, got %q", c.Twilio.StatusCallbackURL))
	}
	if c.Twilio.RequestTimeout <= 0 {
		c.Twilio.RequestTimeout = 10 * time.Second
	}
	if c.IsProduction() && !c.Twilio.ValidateSignatures {
		errs = append(errs, errors.New("TWILIO_VALIDATE_SIGNATURES must be enabled in production"))
	}

	if c.AMD.Enabled {
		if !isAbsoluteURL(c.AMD.CallbackURL) {
			errs = append(errs, fmt.Errorf("AMD_CALLBACK_URL must be an absolute URL when AMD is enabled, got %q", c.AMD.CallbackURL))
		}
		if c.AMD.Mode == "" {
			c.AMD.Mode = "DetectMessageEnd"
		}
		if c.AMD.Timeout <= 0 {
			c.AMD.Timeout = 30
		}
		if c.AMD.SpeechThreshold <= 0 {
			c.AMD.SpeechThreshold = 2000
		}
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	if c.DB.MaxOpenConns < 0 || c.DB.MaxIdleConns < 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative, got %d and %d", c.DB.MaxOpenConns, c.DB.MaxIdleConns))
	}
	if c.DB.ConnMaxLifetime < 0 || c.DB.ConnMaxIdleTime < 0 {
		errs = append(errs, errors.New("DB_CONN_MAX_LIFETIME and DB_CONN_MAX_IDLE_TIME must not be negative"))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// PostgresPool maps the DB_* pool settings onto the opener's pool config.
func (c Config) PostgresPool() utils.PostgresPoolConfig {
	return utils.PostgresPoolConfig{
		MaxOpenConns:    c.DB.MaxOpenConns,
		MaxIdleConns:    c.DB.MaxIdleConns,
		ConnMaxLifetime: c.DB.ConnMaxLifetime,
		ConnMaxIdleTime: c.DB.ConnMaxIdleTime,
	}
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func isAbsoluteURL(v string) bool {
	u, err := url.Parse(v)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
