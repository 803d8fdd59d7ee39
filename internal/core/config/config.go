// Package config provides configuration management for formkeeper services.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// ServiceConfig holds configuration for the gRPC and HTTP form service.
type ServiceConfig struct {
	Host            string
	GRPCPort        int
	HTTPPort        int
	RequestTimeout  time.Duration
	MaxPayloadBytes int64
	DataDir         string
	DefaultColumns  int
	DatabaseURL     string
}

// DefaultServiceConfig returns configuration with default values.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Host:            "0.0.0.0",
		GRPCPort:        50061,
		HTTPPort:        8080,
		RequestTimeout:  30 * time.Second,
		MaxPayloadBytes: 1 << 20,
		DataDir:         "./data",
		DefaultColumns:  4,
		DatabaseURL:     "sqlite://./data/formkeeper.db",
	}
}

// GRPCAddr returns host:port for the gRPC listener.
func (c *ServiceConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// HTTPAddr returns host:port for the HTTP listener.
func (c *ServiceConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// JournalDir is where saved form revisions are appended.
func (c *ServiceConfig) JournalDir() string {
	return filepath.Join(c.DataDir, "revisions")
}

// hasPassword reports whether a database URL embeds a password.
func hasPassword(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return false
	}
	_, ok := u.User.Password()
	return ok
}
