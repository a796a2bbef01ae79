package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// PoolConfig holds configuration for the pool command.
type PoolConfig struct {
	RPCURL   string
	Pool     string
	Token0   string
	Token1   string
	Block    uint64
	Policy   string
	CacheDB  string
	PGDSN    string
	LogLevel string
}

// LoadPool merges config file, environment variables, and flags into PoolConfig.
func LoadPool(cfgFile string, flags *pflag.FlagSet) (PoolConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("policy", "exact")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return PoolConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return PoolConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return PoolConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := PoolConfig{
		RPCURL:   v.GetString("rpc"),
		Pool:     v.GetString("pool"),
		Token0:   v.GetString("token0"),
		Token1:   v.GetString("token1"),
		Block:    v.GetUint64("block"),
		Policy:   v.GetString("policy"),
		CacheDB:  v.GetString("cache-db"),
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}
