package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for risk_desk.
type Config struct {
	Environment string        `toml:"environment"`
	Logging     LoggingConfig `toml:"logging"`
	Server      ServerConfig  `toml:"server"`
	Risk        RiskConfig    `toml:"risk"`
	Economy     EconomyConfig `toml:"economy"`
	Market      MarketConfig  `toml:"market"`
	Session     SessionConfig `toml:"session"`
	Watch       WatchConfig   `toml:"watch"`
	Storage     StorageConfig `toml:"storage"`

	// Credentials never come from TOML, only from the environment or .env.
	Credentials Credentials `toml:"-"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // "console" or "json"
	FilePath   string `toml:"file_path"`
	MaxSizeMB  int64  `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr is host:port for net/http.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RiskConfig holds calculator defaults used when a tool call omits them.
type RiskConfig struct {
	DefaultVolatility float64 `toml:"default_volatility"`
	RiskFreeRate      float64 `toml:"risk_free_rate"`
}

// EconomyConfig selects the indicator source.
type EconomyConfig struct {
	Source string     `toml:"source"` // "mock" or "fred"
	FRED   FREDConfig `toml:"fred"`
}

// FREDConfig configures the FRED observations client.
type FREDConfig struct {
	BaseURL   string  `toml:"base_url"`
	RateLimit float64 `toml:"rate_limit"`
	Timeout   string  `toml:"timeout"`
}

// GetTimeout parses Timeout, defaulting to 10s.
func (c FREDConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// MarketConfig selects the price source.
type MarketConfig struct {
	PriceSource string `toml:"price_source"` // "static" or "alpaca"
}

// SessionConfig controls analysis session retention.
type SessionConfig struct {
	IdleTTL       string `toml:"idle_ttl"`
	SweepSchedule string `toml:"sweep_schedule"`
}

// GetIdleTTL parses IdleTTL, defaulting to 30m.
func (c SessionConfig) GetIdleTTL() time.Duration {
	return parseDuration(c.IdleTTL, 30*time.Minute)
}

// WatchConfig drives the background systemic-risk watcher.
type WatchConfig struct {
	PollIntervalMins int      `toml:"poll_interval_mins"`
	Indicators       []string `toml:"indicators"`
	Companies        []string `toml:"companies"`
	AlertLevel       string   `toml:"alert_level"`
	SuppressMins     int      `toml:"suppress_mins"`
}

// StorageConfig holds file locations.
type StorageConfig struct {
	HoldingsPath string `toml:"holdings_path"`
	ExportDir    string `toml:"export_dir"`
}

// Credentials are secrets read from the environment.
type Credentials struct {
	FREDAPIKey       string
	AlpacaKeyID      string
	AlpacaSecretKey  string
	AlpacaBaseURL    string
	TelegramBotToken string
	TelegramChatID   string
}

// NewDefaultConfig returns a config with every default filled in.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			FilePath:   "logs/risk_desk.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Risk: RiskConfig{
			DefaultVolatility: 0.02,
			RiskFreeRate:      0.04,
		},
		Economy: EconomyConfig{
			Source: "mock",
			FRED: FREDConfig{
				BaseURL:   "https://api.stlouisfed.org/fred",
				RateLimit: 2,
				Timeout:   "10s",
			},
		},
		Market: MarketConfig{
			PriceSource: "static",
		},
		Session: SessionConfig{
			IdleTTL:       "30m",
			SweepSchedule: "@every 1m",
		},
		Watch: WatchConfig{
			PollIntervalMins: 60,
			Indicators:       []string{"GDP", "UNRATE", "VIXCLS", "DFF", "CPI"},
			Companies:        []string{"AAPL", "JPM", "XOM"},
			AlertLevel:       "ELEVATED",
			SuppressMins:     15,
		},
		Storage: StorageConfig{
			HoldingsPath: "holdings.json",
			ExportDir:    "exports",
		},
	}
}

// Load reads .env, then merges TOML files in order (later files override
// earlier, missing files are skipped), then applies RISKDESK_* environment
// overrides and reads credentials.
func Load(paths ...string) (*Config, error) {
	// Load .env variables into the process environment
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using system environment variables")
	}

	cfg := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.Credentials = loadCredentials()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RISKDESK_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("RISKDESK_HOST"); v != "" {
		cfg.Server.Host = v
	}
	cfg.Server.Port = getEnvAsInt("RISKDESK_PORT", cfg.Server.Port)

	if v := os.Getenv("RISKDESK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RISKDESK_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RISKDESK_LOG_FILE"); v != "" {
		cfg.Logging.FilePath = v
	}

	cfg.Risk.DefaultVolatility = getEnvAsFloat64("RISKDESK_DEFAULT_VOLATILITY", cfg.Risk.DefaultVolatility)
	cfg.Risk.RiskFreeRate = getEnvAsFloat64("RISKDESK_RISK_FREE_RATE", cfg.Risk.RiskFreeRate)

	if v := os.Getenv("RISKDESK_ECONOMY_SOURCE"); v != "" {
		cfg.Economy.Source = v
	}
	if v := os.Getenv("RISKDESK_PRICE_SOURCE"); v != "" {
		cfg.Market.PriceSource = v
	}

	cfg.Watch.PollIntervalMins = getEnvAsInt("RISKDESK_POLL_INTERVAL", cfg.Watch.PollIntervalMins)
	if v := os.Getenv("RISKDESK_ALERT_LEVEL"); v != "" {
		cfg.Watch.AlertLevel = v
	}
	if v := os.Getenv("RISKDESK_HOLDINGS_PATH"); v != "" {
		cfg.Storage.HoldingsPath = v
	}
}

func loadCredentials() Credentials {
	return Credentials{
		FREDAPIKey:       os.Getenv("FRED_API_KEY"),
		AlpacaKeyID:      os.Getenv("APCA_API_KEY_ID"),
		AlpacaSecretKey:  os.Getenv("APCA_API_SECRET_KEY"),
		AlpacaBaseURL:    os.Getenv("APCA_API_BASE_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Economy.Source {
	case "mock", "fred":
	default:
		errs = append(errs, fmt.Errorf("economy.source must be mock or fred, got %q", c.Economy.Source))
	}
	switch c.Market.PriceSource {
	case "static", "alpaca":
	default:
		errs = append(errs, fmt.Errorf("market.price_source must be static or alpaca, got %q", c.Market.PriceSource))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	switch strings.ToUpper(c.Watch.AlertLevel) {
	case "NORMAL", "ELEVATED", "CRITICAL":
	default:
		errs = append(errs, fmt.Errorf("watch.alert_level must be NORMAL, ELEVATED or CRITICAL, got %q", c.Watch.AlertLevel))
	}
	if c.Watch.PollIntervalMins <= 0 {
		errs = append(errs, fmt.Errorf("watch.poll_interval_mins must be positive, got %d", c.Watch.PollIntervalMins))
	}
	return errors.Join(errs...)
}

// MissingCredentialsError lists required secrets that are not set.
// It is fatal at startup and never retried.
type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
}

// RequiredSecrets lists the env vars the enabled features need.
// withNotify adds the Telegram secrets used by the watcher.
func (c *Config) RequiredSecrets(withNotify bool) map[string]string {
	req := map[string]string{}
	if c.Economy.Source == "fred" {
		req["FRED_API_KEY"] = c.Credentials.FREDAPIKey
	}
	if c.Market.PriceSource == "alpaca" {
		req["APCA_API_KEY_ID"] = c.Credentials.AlpacaKeyID
		req["APCA_API_SECRET_KEY"] = c.Credentials.AlpacaSecretKey
	}
	if withNotify {
		req["TELEGRAM_BOT_TOKEN"] = c.Credentials.TelegramBotToken
		req["TELEGRAM_CHAT_ID"] = c.Credentials.TelegramChatID
	}
	return req
}

// CheckCredentials returns a *MissingCredentialsError when any secret the
// enabled features need is empty.
func (c *Config) CheckCredentials(withNotify bool) error {
	var missing []string
	for key, val := range c.RequiredSecrets(withNotify) {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &MissingCredentialsError{Missing: missing}
}

// MaskedSecrets returns the required secrets with all but the last 4 chars hidden.
func (c *Config) MaskedSecrets(withNotify bool) map[string]string {
	out := map[string]string{}
	for key, val := range c.RequiredSecrets(withNotify) {
		out[key] = Mask(val)
	}
	return out
}

// Mask hides a secret, showing only its last 4 chars.
func Mask(val string) string {
	if len(val) > 4 {
		return "***" + val[len(val)-4:]
	}
	return "***"
}

// IsProduction reports whether Environment is prod or production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "prod" || env == "production"
}

// PollInterval is the watcher period.
func (c WatchConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMins) * time.Minute
}

// SuppressWindow is how long a repeated alert level stays quiet.
func (c WatchConfig) SuppressWindow() time.Duration {
	return time.Duration(c.SuppressMins) * time.Minute
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
