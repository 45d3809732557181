package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Target.Host = "10.0.0.1"
	cfg.Target.Community = "public"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Target.Port != 161 || cfg.Target.Version != "2c" || cfg.Target.TimeoutSeconds != 10 {
		t.Errorf("unexpected target defaults: %+v", cfg.Target)
	}
	if cfg.Thresholds.FailedTolerance != 0 {
		t.Errorf("failed tolerance default = %d, want 0", cfg.Thresholds.FailedTolerance)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{"Valid v2c", func(c *Config) {}, ""},
		{"Missing host", func(c *Config) { c.Target.Host = "" }, "host is required"},
		{"Missing community", func(c *Config) { c.Target.Community = "" }, "community is required"},
		{"Zero timeout", func(c *Config) { c.Target.TimeoutSeconds = 0 }, "timeout_seconds must be greater than 0"},
		{"Bad port", func(c *Config) { c.Target.Port = 70000 }, "port must be at most 65535"},
		{"Bad version", func(c *Config) { c.Target.Version = "4" }, "version must be one of: 1 2c 3"},
		{"Negative tolerance", func(c *Config) { c.Thresholds.FailedTolerance = -1 }, "failed_tolerance must be at least 0"},
		{"Bad log level", func(c *Config) { c.Logging.Level = "trace" }, "level must be one of"},
		{"v3 missing auth password", func(c *Config) { c.Target.Version = "3" }, "auth_password of at least 8 characters"},
		{
			"v3 authPriv missing priv password",
			func(c *Config) {
				c.Target.Version = "3"
				c.Target.SecurityLevel = "authPriv"
				c.Target.AuthPassword = "authpass1"
			},
			"priv_password of at least 8 characters",
		},
		{
			"v3 noAuthNoPriv",
			func(c *Config) {
				c.Target.Version = "3"
				c.Target.SecurityLevel = "noAuthNoPriv"
			},
			"",
		},
		{
			"v3 bad auth protocol",
			func(c *Config) {
				c.Target.Version = "3"
				c.Target.AuthProtocol = "CRC32"
			},
			"auth_protocol must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.errorMsg)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("expected *ConfigError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.yaml")
	content := `
target:
  port: 1161
  version: "3"
  timeout_seconds: 4
  security_level: authPriv
  auth_protocol: SHA256
  priv_protocol: AES
thresholds:
  failed_tolerance: 2
  min_members: 4
  require_standby: true
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPrefix+"COMMUNITY", "monitor")
	t.Setenv(EnvPrefix+"AUTH_PASSWORD", "authsecret")
	t.Setenv(EnvPrefix+"PRIV_PASSWORD", "privsecret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Target.Port != 1161 || cfg.Target.Version != "3" {
		t.Errorf("target = %+v", cfg.Target)
	}
	if cfg.Target.GetTimeout() != 4*time.Second {
		t.Errorf("timeout = %v, want 4s", cfg.Target.GetTimeout())
	}
	if cfg.Target.Community != "monitor" || cfg.Target.AuthPassword != "authsecret" || cfg.Target.PrivPassword != "privsecret" {
		t.Errorf("env overrides not applied: %+v", cfg.Target)
	}
	if cfg.Thresholds.FailedTolerance != 2 || cfg.Thresholds.MinMembers != 4 || !cfg.Thresholds.RequireStandby {
		t.Errorf("thresholds = %+v", cfg.Thresholds)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}

	cfg.Target.Host = "sw-core"
	if err := cfg.Validate(); err != nil {
		t.Errorf("merged config should validate: %v", err)
	}

	target := cfg.Target.SNMPTarget()
	if target.Host != "sw-core" || target.Port != 1161 || target.Timeout != 4*time.Second || target.Community != "monitor" {
		t.Errorf("SNMPTarget() = %+v", target)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	unknownField := filepath.Join(dir, "typo.yaml")
	if err := os.WriteFile(unknownField, []byte("thresholds:\n  failed_tolerence: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		errorMsg string
	}{
		{"Missing file", filepath.Join(dir, "nope.yaml"), "failed to read config file"},
		{"Unknown field", unknownField, "failed to parse config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Target.Port != 161 {
		t.Errorf("port = %d, want 161", cfg.Target.Port)
	}
}

func TestValidate_NamesKeyAndFlag(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			"Flag and key",
			func(c *Config) { c.Target.Host = "" },
			"invalid arguments: host is required (set -H or target.host)",
		},
		{
			"Long flag",
			func(c *Config) { c.Thresholds.MinMembers = -2 },
			"invalid arguments: min_members must be at least 0 (set --min-members or thresholds.min_members)",
		},
		{
			"Key only",
			func(c *Config) { c.Logging.Format = "xml" },
			"invalid arguments: format must be one of: text json (set logging.format)",
		},
		{
			"Several settings",
			func(c *Config) {
				c.Target.Host = ""
				c.Target.Community = ""
			},
			"invalid arguments: host is required (set -H or target.host); community is required (set -c or target.community)",
		},
		{
			"v3 passphrase",
			func(c *Config) {
				c.Target.Version = "3"
				c.Target.AuthPassword = "short"
			},
			"invalid arguments: auth_password of at least 8 characters is required for authNoPriv (set -A or target.auth_password)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q\nwant    %q", err.Error(), tt.want)
			}
			var invalid InvalidSettings
			if !errors.As(err, &invalid) {
				t.Errorf("expected InvalidSettings in chain, got %T", errors.Unwrap(err))
			}
		})
	}
}
