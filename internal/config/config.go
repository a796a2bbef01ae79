package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration for the encode command.
type Config struct {
	Reserve0  string
	Reserve1  string
	Decimals0 uint8
	Decimals1 uint8
	Policy    string
	LogLevel  string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("decimals0", 18)
	v.SetDefault("decimals1", 18)
	v.SetDefault("policy", "exact")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	decimals0, err := decimalsValue(v, "decimals0")
	if err != nil {
		return Config{}, err
	}
	decimals1, err := decimalsValue(v, "decimals1")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Reserve0:  v.GetString("reserve0"),
		Reserve1:  v.GetString("reserve1"),
		Decimals0: decimals0,
		Decimals1: decimals1,
		Policy:    v.GetString("policy"),
		LogLevel:  v.GetString("log-level"),
	}

	return cfg, nil
}

func decimalsValue(v *viper.Viper, key string) (uint8, error) {
	value := v.GetInt(key)
	if value < 0 || value > 255 {
		return 0, fmt.Errorf("%s out of range: %d", key, value)
	}
	return uint8(value), nil
}
