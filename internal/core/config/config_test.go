package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	want := DefaultServiceConfig()
	if *cfg != *want {
		t.Errorf("config = %+v, want %+v", cfg, want)
	}
	if cfg.GRPCAddr() != "0.0.0.0:50061" || cfg.HTTPAddr() != "0.0.0.0:8080" {
		t.Errorf("addrs = %s %s", cfg.GRPCAddr(), cfg.HTTPAddr())
	}
	if cfg.JournalDir() != filepath.Join("data", "revisions") {
		t.Errorf("JournalDir() = %s", cfg.JournalDir())
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `service:
  host: "127.0.0.1"
  grpc_port: 6000
  http_port: 6001
  request_timeout: "5s"
  data_dir: "/var/lib/formkeeper"
  default_columns: 2
database:
  url: "postgres://forms@db/forms?sslmode=disable"
`)

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.GRPCPort != 6000 || cfg.HTTPPort != 6001 {
		t.Errorf("listeners = %s %d %d", cfg.Host, cfg.GRPCPort, cfg.HTTPPort)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.DefaultColumns != 2 || cfg.DataDir != "/var/lib/formkeeper" {
		t.Errorf("columns = %d data_dir = %s", cfg.DefaultColumns, cfg.DataDir)
	}
	if cfg.DatabaseURL != "postgres://forms@db/forms?sslmode=disable" {
		t.Errorf("DatabaseURL = %s", cfg.DatabaseURL)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfig(t, "service:\n  grpc_port: 9090\n  http_port: 9091\n")

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("FK_SERVICE_GRPC_PORT", "7070")
		cfg, err := LoadConfig(path, nil)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.GRPCPort != 7070 || cfg.HTTPPort != 9091 {
			t.Errorf("ports = %d %d, want 7070 9091", cfg.GRPCPort, cfg.HTTPPort)
		}
	})

	t.Run("changed flag overrides environment", func(t *testing.T) {
		t.Setenv("FK_SERVICE_GRPC_PORT", "7070")
		flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
		flags.Int("grpc-port", 50061, "")
		flags.Int("http-port", 8080, "")
		if err := flags.Parse([]string{"--grpc-port=6060"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadConfig(path, flags)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.GRPCPort != 6060 {
			t.Errorf("GRPCPort = %d, want 6060", cfg.GRPCPort)
		}
		// unchanged flag defaults do not mask the file
		if cfg.HTTPPort != 9091 {
			t.Errorf("HTTPPort = %d, want 9091", cfg.HTTPPort)
		}
	})
}

func TestLoadConfig_RejectsPasswordInFile(t *testing.T) {
	path := writeConfig(t, "database:\n  url: \"postgres://forms:hunter2@db/forms\"\n")
	_, err := LoadConfig(path, nil)
	if err == nil || !strings.Contains(err.Error(), "FK_DATABASE_URL") {
		t.Fatalf("err = %v, want password rejection", err)
	}

	t.Setenv("FK_DATABASE_URL", "postgres://forms:hunter2@db/forms")
	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("password from environment rejected: %v", err)
	}
	if !hasPassword(cfg.DatabaseURL) {
		t.Error("environment URL not applied")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServiceConfig)
		wantErr bool
	}{
		{"defaults", func(*ServiceConfig) {}, false},
		{"grpc port zero", func(c *ServiceConfig) { c.GRPCPort = 0 }, true},
		{"http port too large", func(c *ServiceConfig) { c.HTTPPort = 70000 }, true},
		{"same ports", func(c *ServiceConfig) { c.HTTPPort = c.GRPCPort }, true},
		{"zero timeout", func(c *ServiceConfig) { c.RequestTimeout = 0 }, true},
		{"zero payload limit", func(c *ServiceConfig) { c.MaxPayloadBytes = 0 }, true},
		{"five columns", func(c *ServiceConfig) { c.DefaultColumns = 5 }, true},
		{"zero columns", func(c *ServiceConfig) { c.DefaultColumns = 0 }, true},
		{"one column", func(c *ServiceConfig) { c.DefaultColumns = 1 }, false},
		{"empty data dir", func(c *ServiceConfig) { c.DataDir = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServiceConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasPassword(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"postgres://user:pw@host/db", true},
		{"postgres://user@host/db", false},
		{"sqlite://./data/forms.db", false},
		{"::bad", false},
	}
	for _, tt := range tests {
		if got := hasPassword(tt.url); got != tt.want {
			t.Errorf("hasPassword(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
