package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Chatbot      ChatbotConfig      `mapstructure:"chatbot"`
	Broadcast    BroadcastConfig    `mapstructure:"broadcast"`
	Confirmation ConfirmationConfig `mapstructure:"confirmation"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig selects between PostgreSQL and an SQLite file.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	Path            string `mapstructure:"path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnectRetries  int    `mapstructure:"connect_retries"`
}

type ChatbotConfig struct {
	BotName    string `mapstructure:"bot_name"`
	Token      string `mapstructure:"token"`
	Mode       string `mapstructure:"mode"`
	WebhookURL string `mapstructure:"webhook_url"`
	// WebhookSecret is registered as setWebhook's secret_token and must
	// arrive on every webhook request.
	WebhookSecret string `mapstructure:"webhook_secret"`
	Timeout       int    `mapstructure:"timeout"`
	PollTimeout   int    `mapstructure:"poll_timeout"`
	Workers       int    `mapstructure:"workers"`
	QueueSize     int    `mapstructure:"queue_size"`
}

type BroadcastConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	Schedule           string  `mapstructure:"schedule"`
	SendTimeout        int     `mapstructure:"send_timeout"`
	Workers            int     `mapstructure:"workers"`
	RatePerSec         int     `mapstructure:"rate_per_sec"`
	BroadcasterChatIDs []int64 `mapstructure:"broadcaster_chat_ids"`
}

type ConfirmationConfig struct {
	TTL           int    `mapstructure:"ttl"`
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Telegram's accepted alphabet for setWebhook secret_token.
var webhookSecretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Load reads config.yaml from ./configs or the working directory and applies
// environment overrides (chatbot.token -> CHATBOT_TOKEN). A missing file is
// not an error. Load does not validate; callers run Validate before use.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Chatbot.Token) == "" {
		return fmt.Errorf("chatbot.token is required")
	}

	switch c.Database.Driver {
	case DriverPostgres:
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}

	switch c.Chatbot.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Chatbot.WebhookURL == "" {
			return fmt.Errorf("chatbot.webhook_url is required in webhook mode")
		}
		if !webhookSecretPattern.MatchString(c.Chatbot.WebhookSecret) {
			return fmt.Errorf("chatbot.webhook_secret is required in webhook mode: 1-256 characters of A-Z, a-z, 0-9, _ and -")
		}
	default:
		return fmt.Errorf("chatbot.mode must be %q or %q, got %q", ModePolling, ModeWebhook, c.Chatbot.Mode)
	}

	if c.Chatbot.Workers <= 0 {
		return fmt.Errorf("chatbot.workers must be greater than 0")
	}
	if c.Broadcast.Enabled && strings.TrimSpace(c.Broadcast.Schedule) == "" {
		return fmt.Errorf("broadcast.schedule is required when broadcast is enabled")
	}
	if c.Broadcast.SendTimeout <= 0 {
		return fmt.Errorf("broadcast.send_timeout must be greater than 0")
	}
	if c.Broadcast.Workers <= 0 {
		return fmt.Errorf("broadcast.workers must be greater than 0")
	}
	if c.Confirmation.TTL <= 0 {
		return fmt.Errorf("confirmation.ttl must be greater than 0")
	}

	return nil
}

// DSN builds the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return d.Path
	}
	// prefer_simple_protocol avoids server-side prepared statement name collisions
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s prefer_simple_protocol=true",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "announcebot")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "data/announcebot.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.connect_retries", 5)

	v.SetDefault("chatbot.bot_name", "announcebot")
	v.SetDefault("chatbot.token", "")
	v.SetDefault("chatbot.mode", ModePolling)
	v.SetDefault("chatbot.webhook_url", "")
	v.SetDefault("chatbot.webhook_secret", "")
	v.SetDefault("chatbot.timeout", 30)
	v.SetDefault("chatbot.poll_timeout", 60)
	v.SetDefault("chatbot.workers", 4)
	v.SetDefault("chatbot.queue_size", 64)

	v.SetDefault("broadcast.enabled", true)
	v.SetDefault("broadcast.schedule", "0 0 12 * * *") // every day at noon
	v.SetDefault("broadcast.send_timeout", 10)
	v.SetDefault("broadcast.workers", 8)
	v.SetDefault("broadcast.rate_per_sec", 25) // Telegram allows ~30 msg/s per bot
	v.SetDefault("broadcast.broadcaster_chat_ids", []int64{})

	v.SetDefault("confirmation.ttl", 86400)
	v.SetDefault("confirmation.sweep_schedule", "@every 10m")

	v.SetDefault("log.level", "info")
}
