package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"stockpulse/internal/logging"
)

// PlaceholderKey is the unconfigured sink credential; notifications are
// suppressed while a channel still carries it.
const PlaceholderKey = "123456"

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Logging   logging.Config  `mapstructure:"logging"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Quotes    QuotesConfig    `mapstructure:"quotes"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// IdentityConfig names the user whose rules are monitored.
type IdentityConfig struct {
	Email string `mapstructure:"email"`
}

// RulesConfig selects and tunes the rule store.
type RulesConfig struct {
	Backend        string        `mapstructure:"backend"`
	SheetID        string        `mapstructure:"sheet_id"`
	Worksheet      string        `mapstructure:"worksheet"`
	SheetBaseURL   string        `mapstructure:"sheet_base_url"`
	File           string        `mapstructure:"file"`
	SQLitePath     string        `mapstructure:"sqlite_path"`
	ConnectionTTL  time.Duration `mapstructure:"connection_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// QuotesConfig covers the market data provider.
type QuotesConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Range          string        `mapstructure:"range"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// SchedulerConfig governs cycle cadence.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines notification routing.
type AlertingConfig struct {
	Enabled        bool            `mapstructure:"enabled"`
	Cooldown       time.Duration   `mapstructure:"cooldown"`
	PlaceholderKey string          `mapstructure:"placeholder_key"`
	Timeout        time.Duration   `mapstructure:"timeout"`
	CallMeBot      CallMeBotConfig `mapstructure:"callmebot"`
	Telegram       TelegramConfig  `mapstructure:"telegram"`
	NATS           NATSConfig      `mapstructure:"nats"`
	Kafka          KafkaConfig     `mapstructure:"kafka"`
}

// CallMeBotConfig describes the WhatsApp gateway.
type CallMeBotConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Phone   string `mapstructure:"phone"`
	APIKey  string `mapstructure:"api_key"`
	APIBase string `mapstructure:"api_base"`
}

// TelegramConfig describes Telegram bot delivery.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// NATSConfig describes alert event publishing over NATS.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// KafkaConfig describes alert event publishing over Kafka.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// HTTPConfig controls the status API.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int    `mapstructure:"max_data_points"`
	Range         string `mapstructure:"range"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STOCKPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stockpulse")
	v.SetDefault("app.environment", "development")

	v.SetDefault("identity.email", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "logs/stockpulse.log")
	v.SetDefault("logging.file.max_size_mb", 50)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.max_age_days", 14)

	v.SetDefault("rules.backend", "sheet")
	v.SetDefault("rules.sheet_id", "")
	v.SetDefault("rules.worksheet", "Rules")
	v.SetDefault("rules.sheet_base_url", "https://docs.google.com")
	v.SetDefault("rules.file", "rules.yaml")
	v.SetDefault("rules.sqlite_path", "stockpulse.db")
	v.SetDefault("rules.connection_ttl", "30m")
	v.SetDefault("rules.request_timeout", "10s")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("quotes.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("quotes.range", "5d")
	v.SetDefault("quotes.cache_ttl", "20s")
	v.SetDefault("quotes.request_timeout", "10s")
	v.SetDefault("quotes.user_agent", "stockpulse/1.0")

	v.SetDefault("scheduler.interval", "1s")
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.cooldown", "0s")
	v.SetDefault("alerting.placeholder_key", PlaceholderKey)
	v.SetDefault("alerting.timeout", "5s")
	v.SetDefault("alerting.callmebot.enabled", true)
	v.SetDefault("alerting.callmebot.phone", "")
	v.SetDefault("alerting.callmebot.api_key", PlaceholderKey)
	v.SetDefault("alerting.callmebot.api_base", "https://api.callmebot.com")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.nats.enabled", false)
	v.SetDefault("alerting.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("alerting.nats.subject", "stockpulse.alerts")
	v.SetDefault("alerting.kafka.enabled", false)
	v.SetDefault("alerting.kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("alerting.kafka.topic", "stockpulse.alerts")

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("export.max_data_points", 100000)
	v.SetDefault("export.range", "6mo")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown cannot be negative")
	}
	if c.Quotes.CacheTTL < 0 {
		return fmt.Errorf("quotes.cache_ttl cannot be negative")
	}

	switch strings.ToLower(c.Rules.Backend) {
	case "sheet":
		if c.Rules.SheetID == "" {
			return fmt.Errorf("rules.sheet_id is required for the sheet backend")
		}
	case "file":
		if c.Rules.File == "" {
			return fmt.Errorf("rules.file is required for the file backend")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres backend")
		}
	case "sqlite":
		if c.Rules.SQLitePath == "" {
			return fmt.Errorf("rules.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("rules.backend %q is not supported", c.Rules.Backend)
	}

	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	if c.Alerting.Kafka.Enabled && len(c.Alerting.Kafka.Brokers) == 0 {
		return fmt.Errorf("alerting.kafka.brokers is required")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// ResolveIdentity prefers the CLI override over the configured email.
func (c *Config) ResolveIdentity(override string) (string, error) {
	identity := strings.TrimSpace(override)
	if identity == "" {
		identity = strings.TrimSpace(c.Identity.Email)
	}
	if identity == "" {
		return "", fmt.Errorf("identity is required: pass --email or set identity.email")
	}
	return identity, nil
}
