package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"host":      "service.host",
	"grpc-port": "service.grpc_port",
	"http-port": "service.http_port",
	"data-dir":  "service.data_dir",
	"db-url":    "database.url",
}

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
// flags may be nil; only flags listed in flagKeys that the user changed
// take effect.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*ServiceConfig, error) {
	v := viper.New()

	def := DefaultServiceConfig()
	v.SetDefault("service.host", def.Host)
	v.SetDefault("service.grpc_port", def.GRPCPort)
	v.SetDefault("service.http_port", def.HTTPPort)
	v.SetDefault("service.request_timeout", def.RequestTimeout.String())
	v.SetDefault("service.max_payload_bytes", def.MaxPayloadBytes)
	v.SetDefault("service.data_dir", def.DataDir)
	v.SetDefault("service.default_columns", def.DefaultColumns)
	v.SetDefault("database.url", def.DatabaseURL)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Checked before env binding so only file values are inspected
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	// Bind environment variables with FK_ prefix
	v.SetEnvPrefix("FK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &ServiceConfig{
		Host:            v.GetString("service.host"),
		GRPCPort:        v.GetInt("service.grpc_port"),
		HTTPPort:        v.GetInt("service.http_port"),
		RequestTimeout:  v.GetDuration("service.request_timeout"),
		MaxPayloadBytes: v.GetInt64("service.max_payload_bytes"),
		DataDir:         v.GetString("service.data_dir"),
		DefaultColumns:  v.GetInt("service.default_columns"),
		DatabaseURL:     v.GetString("database.url"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port ranges, positive limits and the column default.
func validateConfig(cfg *ServiceConfig) error {
	if cfg.GRPCPort <= 0 || cfg.GRPCPort > 65535 {
		return fmt.Errorf("grpc_port must be between 1 and 65535, got %d", cfg.GRPCPort)
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535, got %d", cfg.HTTPPort)
	}
	if cfg.GRPCPort == cfg.HTTPPort {
		return fmt.Errorf("grpc_port and http_port must differ, both are %d", cfg.GRPCPort)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxPayloadBytes <= 0 {
		return fmt.Errorf("max_payload_bytes must be positive, got %d", cfg.MaxPayloadBytes)
	}
	if cfg.DefaultColumns < 1 || cfg.DefaultColumns > 4 {
		return fmt.Errorf("default_columns must be between 1 and 4, got %d", cfg.DefaultColumns)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	return nil
}

// validateNoSecretsInConfig keeps database passwords out of config files
// (12-factor principle); they belong in FK_DATABASE_URL or --db-url.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("database.url") && hasPassword(v.GetString("database.url")) {
		return fmt.Errorf("database passwords not allowed in config files (use FK_DATABASE_URL environment variable)")
	}
	return nil
}
