// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"telemetry-dashboard/internal/data"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Anomaly AnomalyConfig `mapstructure:"anomaly"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	DataPort       int      `mapstructure:"data_port"`
	UIPort         int      `mapstructure:"ui_port"`
	WebDir         string   `mapstructure:"web_dir"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type StoreConfig struct {
	HistoryLimit   int  `mapstructure:"history_limit"`
	SchemaRevision int  `mapstructure:"schema_revision"`
	CapResync      bool `mapstructure:"cap_resync"`
}

type IngestConfig struct {
	Buffer    int                   `mapstructure:"buffer"`
	WebSocket WebSocketSourceConfig `mapstructure:"websocket"`
	Redis     RedisSourceConfig     `mapstructure:"redis"`
	NATS      NATSSourceConfig      `mapstructure:"nats"`
}

// WebSocketSourceConfig points at the upstream telemetry producer.
// An empty URL disables the source.
type WebSocketSourceConfig struct {
	URL           string        `mapstructure:"url"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type RedisSourceConfig struct {
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	Channel       string        `mapstructure:"channel"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type NATSSourceConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type AnomalyConfig struct {
	Rules map[string]Rule `mapstructure:"rules"`
}

type Rule struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

type AuthConfig struct {
	JWTSecret     string   `mapstructure:"jwt_secret"`
	JWTExpiration int      `mapstructure:"jwt_expiration"` // in minutes
	APIKeys       []string `mapstructure:"api_keys"`
	Users         []User   `mapstructure:"users"`
}

type User struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         string `mapstructure:"role"`
}

// LogConfig enables a rotating log file next to stderr when File is set.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// LoadConfig reads config.yaml from path, layered over defaults and
// TELEMETRY_* environment variables. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.SetEnvPrefix("telemetry")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Printf("Warning: no config file in %s, using defaults", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.data_port", 8080)
	v.SetDefault("server.ui_port", 8081)
	v.SetDefault("server.web_dir", "./web")

	v.SetDefault("store.history_limit", 1000)
	v.SetDefault("store.schema_revision", int(data.LatestRevision))
	v.SetDefault("store.cap_resync", false)

	v.SetDefault("ingest.buffer", 256)
	v.SetDefault("ingest.websocket.url", "")
	v.SetDefault("ingest.websocket.reconnect_wait", 2*time.Second)
	v.SetDefault("ingest.redis.addr", "")
	v.SetDefault("ingest.redis.password", "")
	v.SetDefault("ingest.redis.db", 0)
	v.SetDefault("ingest.redis.channel", "telemetry")
	v.SetDefault("ingest.redis.reconnect_wait", 2*time.Second)
	v.SetDefault("ingest.nats.url", "")
	v.SetDefault("ingest.nats.subject", "telemetry.packets")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiration", 60)

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
}

func (c *Config) Validate() error {
	if c.Store.HistoryLimit <= 0 {
		return fmt.Errorf("store.history_limit must be positive, got %d", c.Store.HistoryLimit)
	}
	if !data.Revision(c.Store.SchemaRevision).Valid() {
		return fmt.Errorf("store.schema_revision %d is not supported", c.Store.SchemaRevision)
	}
	if c.Server.DataPort == c.Server.UIPort {
		return fmt.Errorf("server.data_port and server.ui_port must differ (both %d)", c.Server.DataPort)
	}
	if c.Ingest.Buffer <= 0 {
		return fmt.Errorf("ingest.buffer must be positive, got %d", c.Ingest.Buffer)
	}
	for name, rule := range c.Anomaly.Rules {
		if rule.Min > rule.Max {
			return fmt.Errorf("anomaly rule %s: min %.2f above max %.2f", name, rule.Min, rule.Max)
		}
	}
	return nil
}
