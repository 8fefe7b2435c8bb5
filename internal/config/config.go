// Package config loads matchcore's runtime configuration via viper, with
// environment variable overrides and sane defaults for local development.
package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the root configuration object, per spec.md section 6.6.
type Config struct {
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Redis struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`

	Channels struct {
		MarketData  string `mapstructure:"marketData"`
		OrderUpdate string `mapstructure:"orderUpdate"`
		Trade       string `mapstructure:"trade"`
		Error       string `mapstructure:"error"`
	} `mapstructure:"channels"`

	// Simulator feeds the demo price generator: the symbols to create at
	// startup, the per-step volatility of its random walk, and the
	// interval between ticks.
	Simulator struct {
		Symbols        []string `mapstructure:"symbols"`
		Volatility     float64  `mapstructure:"volatility"`
		UpdateInterval float64  `mapstructure:"updateInterval"`
		Enabled        bool     `mapstructure:"enabled"`
	} `mapstructure:"simulator"`

	Bus struct {
		QueueCapacity int `mapstructure:"queueCapacity"`
	} `mapstructure:"bus"`

	LogLevel string `mapstructure:"logLevel"`
}

var (
	loaded *Config
	once   sync.Once
)

// Load reads configuration from configPath (a directory containing
// config.yaml), falling back to environment variables prefixed
// MATCHCORE_ and then built-in defaults for anything unset.
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		cfg := &Config{}
		setDefaults(cfg)

		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if configPath != "" {
			v.AddConfigPath(configPath)
		} else {
			v.AddConfigPath(".")
			v.AddConfigPath("./config")
			v.AddConfigPath("/etc/matchcore")
		}

		v.AutomaticEnv()
		v.SetEnvPrefix("MATCHCORE")

		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("failed to read config file: %w", readErr)
				return
			}
		}

		if err = v.Unmarshal(cfg); err != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", err)
			return
		}
		loaded = cfg
	})

	return loaded, err
}

// Get returns the already-loaded configuration, loading it with defaults
// if Load has not yet been called.
func Get() *Config {
	if loaded == nil {
		if _, err := Load(""); err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	}
	return loaded
}

func setDefaults(cfg *Config) {
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080

	cfg.Redis.Host = "localhost"
	cfg.Redis.Port = 6379

	cfg.Channels.MarketData = "market_data"
	cfg.Channels.OrderUpdate = "order_updates"
	cfg.Channels.Trade = "trades"
	cfg.Channels.Error = "errors"

	cfg.Simulator.Symbols = []string{"AAPL", "TSLA", "QQQ"}
	cfg.Simulator.Volatility = 0.002
	cfg.Simulator.UpdateInterval = 1.0
	cfg.Simulator.Enabled = true

	cfg.Bus.QueueCapacity = 256

	cfg.LogLevel = "info"
}

// NewLogger builds zap's development logger when cfg.LogLevel is "debug"
// and zap's production logger (info level) for any other value.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	switch cfg.LogLevel {
	case "debug":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
