// Package config loads the tool's settings: the bridge endpoint, timeout
// layering and retry caps. Persisted session state lives in internal/store,
// not here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds all wconnect configuration.
type Settings struct {
	BridgeURL string `mapstructure:"bridge_url"`
	LogLevel  string `mapstructure:"log_level"`
	DataDir   string `mapstructure:"data_dir"`

	MaxRetries       int           `mapstructure:"max_retries"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	MaxConnectionAge time.Duration `mapstructure:"max_connection_age"`

	Health HealthSettings `mapstructure:"health"`
}

// HealthSettings configures the health monitor. Timeouts are layered:
// probe_timeout < check_timeout < safety_timeout.
type HealthSettings struct {
	Interval       time.Duration `mapstructure:"interval"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	CheckTimeout   time.Duration `mapstructure:"check_timeout"`
	SafetyTimeout  time.Duration `mapstructure:"safety_timeout"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	MaxLatency     time.Duration `mapstructure:"max_latency"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
}

// Load reads settings from config.yaml in dir (optional) and WCONNECT_*
// environment variables, over built-in defaults. dir defaults to
// ~/.wconnect.
func Load(dir string) (*Settings, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".wconnect")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("WCONNECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &s, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("bridge_url", "http://127.0.0.1:8545")
	v.SetDefault("log_level", "warn")
	v.SetDefault("data_dir", dir)

	v.SetDefault("max_retries", 3)
	v.SetDefault("connect_timeout", "30s")
	v.SetDefault("max_connection_age", "24h")

	v.SetDefault("health.interval", "30s")
	v.SetDefault("health.probe_timeout", "2500ms")
	v.SetDefault("health.check_timeout", "9s")
	v.SetDefault("health.safety_timeout", "18s")
	v.SetDefault("health.reconnect_delay", "5s")
	v.SetDefault("health.max_latency", "2s")
	v.SetDefault("health.max_reconnects", 3)
}
