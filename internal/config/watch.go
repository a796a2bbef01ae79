package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// WatchConfig holds configuration for the watch command.
type WatchConfig struct {
	RPCURL       string
	Pool         string
	Token0       string
	Token1       string
	Policy       string
	PollInterval time.Duration
	MaxBlocks    uint64
	MaxRetries   int
	RetryBackoff time.Duration
	MetricsPort  int
	MetricsPath  string
	CacheDB      string
	PGDSN        string
	LogLevel     string
}

// LoadWatch merges config file, environment variables, and flags into WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("policy", "exact")
	v.SetDefault("poll-interval", 5*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("metrics-path", "/metrics")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return WatchConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return WatchConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return WatchConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := WatchConfig{
		RPCURL:       v.GetString("rpc"),
		Pool:         v.GetString("pool"),
		Token0:       v.GetString("token0"),
		Token1:       v.GetString("token1"),
		Policy:       v.GetString("policy"),
		PollInterval: v.GetDuration("poll-interval"),
		MaxBlocks:    v.GetUint64("max-blocks"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		MetricsPort:  v.GetInt("metrics-port"),
		MetricsPath:  v.GetString("metrics-path"),
		CacheDB:      v.GetString("cache-db"),
		PGDSN:        v.GetString("pg-dsn"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
