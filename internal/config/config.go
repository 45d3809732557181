// Package config
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nmslite/check-cisco-stack/internal/snmp"
	"github.com/nmslite/check-cisco-stack/internal/threshold"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "CHECK_CISCO_STACK_"

type Config struct {
	Target     TargetConfig         `yaml:"target"`
	Thresholds threshold.Thresholds `yaml:"thresholds"`
	Logging    LoggingConfig        `yaml:"logging"`
}

type TargetConfig struct {
	Host           string `yaml:"host" validate:"required"`
	Port           int    `yaml:"port" validate:"min=1,max=65535"`
	Version        string `yaml:"version" validate:"oneof=1 2c 3"`
	Community      string `yaml:"community" validate:"required"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gt=0,lte=300"`

	SecurityLevel string `yaml:"security_level" validate:"omitempty,oneof=noAuthNoPriv authNoPriv authPriv"`
	AuthProtocol  string `yaml:"auth_protocol" validate:"omitempty,oneof=MD5 SHA SHA224 SHA256 SHA384 SHA512"`
	AuthPassword  string `yaml:"auth_password"`
	PrivProtocol  string `yaml:"priv_protocol" validate:"omitempty,oneof=DES AES AES192 AES256"`
	PrivPassword  string `yaml:"priv_password"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// ConfigError reports unusable invocation arguments or configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "invalid arguments: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Default returns the configuration used when neither file nor flags say otherwise.
func Default() *Config {
	return &Config{
		Target: TargetConfig{
			Port:           161,
			Version:        "2c",
			TimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads the optional configuration file and applies environment
// variable overrides on top of the defaults. An empty path skips the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("failed to read config file: %w", err)}
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, &ConfigError{Err: fmt.Errorf("failed to parse config file: %w", err)}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides keeps secrets out of the process list.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "COMMUNITY"); v != "" {
		cfg.Target.Community = v
	}
	if v := os.Getenv(EnvPrefix + "AUTH_PASSWORD"); v != "" {
		cfg.Target.AuthPassword = v
	}
	if v := os.Getenv(EnvPrefix + "PRIV_PASSWORD"); v != "" {
		cfg.Target.PrivPassword = v
	}
}

// Validate checks the merged configuration. Failures are *ConfigError.
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}

// GetTimeout returns the SNMP timeout as a duration
func (t *TargetConfig) GetTimeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Validate implements the SNMPv3 cross-field rules.
// USM passphrases must be at least 8 characters.
func (t *TargetConfig) Validate() error {
	if t.Version != "3" {
		return nil
	}
	level := t.SecurityLevel
	if level == "" {
		level = "authNoPriv"
	}
	var invalid InvalidSettings
	if level != "noAuthNoPriv" && len(t.AuthPassword) < 8 {
		invalid = append(invalid, passphraseRequired("target.auth_password", level))
	}
	if level == "authPriv" && len(t.PrivPassword) < 8 {
		invalid = append(invalid, passphraseRequired("target.priv_password", level))
	}
	if len(invalid) > 0 {
		return invalid
	}
	return nil
}

func passphraseRequired(key, level string) InvalidSetting {
	field := key[strings.IndexByte(key, '.')+1:]
	return InvalidSetting{
		Key:     key,
		Flag:    settingFlags[key],
		Message: fmt.Sprintf("%s of at least 8 characters is required for %s", field, level),
	}
}

// SNMPTarget builds the immutable target handed to the protocol client.
func (t *TargetConfig) SNMPTarget() snmp.Target {
	return snmp.Target{
		Host:          t.Host,
		Port:          uint16(t.Port),
		Version:       t.Version,
		Community:     t.Community,
		Timeout:       t.GetTimeout(),
		SecurityLevel: t.SecurityLevel,
		AuthProtocol:  t.AuthProtocol,
		AuthPassword:  t.AuthPassword,
		PrivProtocol:  t.PrivProtocol,
		PrivPassword:  t.PrivPassword,
	}
}
