package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config holds CLI configuration from config.toml, overridden by PITV_* variables.
type Config struct {
	URL       string          `toml:"url" env:"PITV_URL"`
	Password  string          `toml:"password" env:"PITV_PASSWORD"`
	TimeoutMS int64           `toml:"timeout_ms" env:"PITV_TIMEOUT_MS"`
	Log       LogConfig       `toml:"log"`
	Reconnect ReconnectConfig `toml:"reconnect"`
	MQTT      MQTTConfig      `toml:"mqtt"`
}

// LogConfig selects the zap logger setup.
type LogConfig struct {
	Level  string `toml:"level" env:"PITV_LOG_LEVEL"`
	Format string `toml:"format" env:"PITV_LOG_FORMAT"`
	Output string `toml:"output"`
	UTC    bool   `toml:"utc"`
}

// ReconnectConfig tunes the transport backoff and keepalive.
type ReconnectConfig struct {
	InitialMS int64 `toml:"initial_ms"`
	MaxMS     int64 `toml:"max_ms"`
	PingMS    int64 `toml:"ping_ms"`
}

// MQTTConfig configures the bridge.
type MQTTConfig struct {
	Broker    string    `toml:"broker" env:"PITV_MQTT_BROKER"`
	TopicBase string    `toml:"topic_base" env:"PITV_MQTT_TOPIC_BASE"`
	ClientID  string    `toml:"client_id"`
	User      string    `toml:"user" env:"PITV_MQTT_USER"`
	Pass      string    `toml:"pass" env:"PITV_MQTT_PASS"`
	TLS       TLSConfig `toml:"tls"`
}

// TLSConfig holds TLS paths for MQTT.
type TLSConfig struct {
	CA   string `toml:"ca"`
	Cert string `toml:"cert"`
	Key  string `toml:"key"`
}

const (
	defaultTimeoutMS = 10000
	defaultInitialMS = 1000
	defaultMaxMS     = 30000
	defaultPingMS    = 30000
	defaultMQTTTopic = "pitv"
	defaultLogLevel  = "warn"
	defaultLogFormat = "text"
	defaultLogOutput = "stderr"
)

// Load reads path (or the default location when empty) and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return Config{}, errors.New("config path is a directory")
	case err == nil:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, err
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = defaultTimeoutMS
	}
	if c.Reconnect.InitialMS <= 0 {
		c.Reconnect.InitialMS = defaultInitialMS
	}
	if c.Reconnect.MaxMS <= 0 {
		c.Reconnect.MaxMS = defaultMaxMS
	}
	if c.Reconnect.MaxMS < c.Reconnect.InitialMS {
		c.Reconnect.MaxMS = c.Reconnect.InitialMS
	}
	if c.Reconnect.PingMS == 0 {
		c.Reconnect.PingMS = defaultPingMS
	}
	if c.MQTT.TopicBase == "" {
		c.MQTT.TopicBase = defaultMQTTTopic
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	if c.Log.Output == "" {
		c.Log.Output = defaultLogOutput
	}
}

// Timeout is the command timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// InitialInterval is the first reconnect delay.
func (r ReconnectConfig) InitialInterval() time.Duration {
	return time.Duration(r.InitialMS) * time.Millisecond
}

// MaxInterval caps the reconnect delay.
func (r ReconnectConfig) MaxInterval() time.Duration {
	return time.Duration(r.MaxMS) * time.Millisecond
}

// PingInterval is the keepalive period. Negative values disable pings.
func (r ReconnectConfig) PingInterval() time.Duration {
	if r.PingMS < 0 {
		return 0
	}
	return time.Duration(r.PingMS) * time.Millisecond
}

// DefaultPath returns the config file location.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "pitv", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pitv", "config.toml"), nil
}
