package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SchemasConfig holds configuration for the schemas command.
type SchemasConfig struct {
	Schemas  string
	Out      string
	PgDSN    string
	LogLevel string
}

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	Schemas  string
	Summary  string
	PgDSN    string
	In       string
	Out      string
	Errors   string
	LogLevel string
}

// LoadSchemas merges config file, environment variables, and flags into
// SchemasConfig.
func LoadSchemas(cfgFile string, flags *pflag.FlagSet) (SchemasConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SchemasConfig{}, err
	}
	return SchemasConfig{
		Schemas:  v.GetString("schemas"),
		Out:      v.GetString("out"),
		PgDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

// LoadDecode merges config file, environment variables, and flags into
// DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return DecodeConfig{}, err
	}
	return DecodeConfig{
		Schemas:  v.GetString("schemas"),
		Summary:  v.GetString("summary"),
		PgDSN:    v.GetString("pg-dsn"),
		In:       v.GetString("in"),
		Out:      v.GetString("out"),
		Errors:   v.GetString("errors"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("CODEC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
