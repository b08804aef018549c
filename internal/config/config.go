package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvConfigFile names the optional TOML file applied beneath the environment.
const EnvConfigFile = "FINTRACK_CONFIG"

type Config struct {
	// HTTP Server
	Port                string
	RequestTimeout      time.Duration
	RateLimitPerMinute  int
	JWTSecret           string
	JWTIssuer           string
	AllowHeaderIdentity bool

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Exchange rates
	ExchangeRateURL     string
	ExchangeRateTTL     time.Duration
	ExchangeRateTimeout time.Duration

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Project documents
	DocumentDir       string
	DocumentGCSBucket string
	DocumentMaxBytes  int64

	// Worker sweep
	SweepOwners   []string
	SweepInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// fileConfig mirrors Config in TOML. Pointers distinguish "absent" from zero.
type fileConfig struct {
	Server struct {
		Port                *int    `toml:"port"`
		RequestTimeout      *string `toml:"request_timeout"`
		RateLimitPerMinute  *int    `toml:"rate_limit_per_minute"`
		JWTSecret           *string `toml:"jwt_secret"`
		JWTIssuer           *string `toml:"jwt_issuer"`
		AllowHeaderIdentity *bool   `toml:"allow_header_identity"`
	} `toml:"server"`
	Storage struct {
		Backend    *string `toml:"backend"`
		SQLitePath *string `toml:"sqlite_path"`
	} `toml:"storage"`
	AMQP struct {
		URL      *string `toml:"url"`
		Exchange *string `toml:"exchange"`
		Queue    *string `toml:"queue"`
	} `toml:"amqp"`
	Exchange struct {
		URL     *string `toml:"url"`
		TTL     *string `toml:"ttl"`
		Timeout *string `toml:"timeout"`
	} `toml:"exchange_rates"`
	Sheets struct {
		SpreadsheetID      *string `toml:"spreadsheet_id"`
		SheetName          *string `toml:"sheet_name"`
		ServiceAccountFile *string `toml:"service_account_file"`
	} `toml:"sheets"`
	Documents struct {
		Dir       *string `toml:"dir"`
		GCSBucket *string `toml:"gcs_bucket"`
		MaxBytes  *int64  `toml:"max_bytes"`
	} `toml:"documents"`
	Sweep struct {
		Owners   []string `toml:"owners"`
		Interval *string  `toml:"interval"`
	} `toml:"sweep"`
	Log struct {
		Level  *string `toml:"level"`
		Format *string `toml:"format"`
	} `toml:"log"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:                "8081",
		RequestTimeout:      30 * time.Second,
		RateLimitPerMinute:  120,
		DataBackend:         "sqlite",
		SQLiteDBPath:        "./data/fintrack.db",
		AMQPExchange:        "fintrack",
		AMQPQueue:           "fintrack_events",
		ExchangeRateTTL:     time.Hour,
		ExchangeRateTimeout: 10 * time.Second,
		GoogleSheetName:     "Ledger",
		DocumentDir:         "./data/documents",
		DocumentMaxBytes:    10 << 20,
		SweepInterval:       time.Hour,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// FINTRACK_CONFIG (if any), then the environment.
func Load() (*Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile overlays the values present in a TOML file.
func (c *Config) LoadFile(path string) error {
	var f fileConfig
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var errs []string
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setDuration := func(key string, dst *time.Duration, v *string) {
		if v == nil {
			return
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, *v))
			return
		}
		*dst = d
	}

	if f.Server.Port != nil {
		c.Port = strconv.Itoa(*f.Server.Port)
	}
	setDuration("server.request_timeout", &c.RequestTimeout, f.Server.RequestTimeout)
	if f.Server.RateLimitPerMinute != nil {
		c.RateLimitPerMinute = *f.Server.RateLimitPerMinute
	}
	setString(&c.JWTSecret, f.Server.JWTSecret)
	setString(&c.JWTIssuer, f.Server.JWTIssuer)
	if f.Server.AllowHeaderIdentity != nil {
		c.AllowHeaderIdentity = *f.Server.AllowHeaderIdentity
	}

	setString(&c.DataBackend, f.Storage.Backend)
	setString(&c.SQLiteDBPath, f.Storage.SQLitePath)

	setString(&c.AMQPURL, f.AMQP.URL)
	setString(&c.AMQPExchange, f.AMQP.Exchange)
	setString(&c.AMQPQueue, f.AMQP.Queue)

	setString(&c.ExchangeRateURL, f.Exchange.URL)
	setDuration("exchange_rates.ttl", &c.ExchangeRateTTL, f.Exchange.TTL)
	setDuration("exchange_rates.timeout", &c.ExchangeRateTimeout, f.Exchange.Timeout)

	setString(&c.GoogleSpreadsheetID, f.Sheets.SpreadsheetID)
	setString(&c.GoogleSheetName, f.Sheets.SheetName)
	setString(&c.GoogleServiceAccountFile, f.Sheets.ServiceAccountFile)

	setString(&c.DocumentDir, f.Documents.Dir)
	setString(&c.DocumentGCSBucket, f.Documents.GCSBucket)
	if f.Documents.MaxBytes != nil {
		c.DocumentMaxBytes = *f.Documents.MaxBytes
	}

	if f.Sweep.Owners != nil {
		c.SweepOwners = cleanList(f.Sweep.Owners)
	}
	setDuration("sweep.interval", &c.SweepInterval, f.Sweep.Interval)

	setString(&c.LogLevel, f.Log.Level)
	setString(&c.LogFormat, f.Log.Format)

	if len(errs) > 0 {
		return fmt.Errorf("config file %s:\n- %s", path, strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.AllowHeaderIdentity = getEnvBool("ALLOW_HEADER_IDENTITY", c.AllowHeaderIdentity)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.ExchangeRateURL = getEnv("EXCHANGE_RATE_URL", c.ExchangeRateURL)
	c.ExchangeRateTTL = getEnvDuration("EXCHANGE_RATE_TTL", c.ExchangeRateTTL)
	c.ExchangeRateTimeout = getEnvDuration("EXCHANGE_RATE_TIMEOUT", c.ExchangeRateTimeout)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile)

	c.DocumentDir = getEnv("DOCUMENT_DIR", c.DocumentDir)
	c.DocumentGCSBucket = getEnv("DOCUMENT_GCS_BUCKET", c.DocumentGCSBucket)
	c.DocumentMaxBytes = int64(getEnvInt("DOCUMENT_MAX_BYTES", int(c.DocumentMaxBytes)))

	if v := os.Getenv("SWEEP_OWNERS"); v != "" {
		c.SweepOwners = cleanList(strings.Split(v, ","))
	}
	c.SweepInterval = getEnvDuration("SWEEP_INTERVAL", c.SweepInterval)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// SheetsEnabled reports whether ledger rows should be exported.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.JWTSecret == "" && !c.AllowHeaderIdentity {
		errors = append(errors, "either JWT_SECRET or ALLOW_HEADER_IDENTITY must be set, otherwise no request can be authenticated")
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.RequestTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must not be negative", c.RequestTimeout))
	}

	if c.ExchangeRateURL != "" {
		if u, err := url.Parse(c.ExchangeRateURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid exchange rate URL '%s': must be an http(s) URL", c.ExchangeRateURL))
		}
	}
	if c.ExchangeRateTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid exchange rate TTL %v: must be at least 1 second", c.ExchangeRateTTL))
	}
	if c.ExchangeRateTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid exchange rate timeout %v: must be positive", c.ExchangeRateTimeout))
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.DocumentGCSBucket == "" && strings.TrimSpace(c.DocumentDir) == "" {
		errors = append(errors, "document directory cannot be empty when no GCS bucket is set")
	}
	if c.DocumentMaxBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid document size limit %d: must be at least 1 byte", c.DocumentMaxBytes))
	}

	if c.SweepInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid sweep interval %v: must be at least 1 minute", c.SweepInterval))
	} else if c.SweepInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sweep interval %v: must be at most 24 hours", c.SweepInterval))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
