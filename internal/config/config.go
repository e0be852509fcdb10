package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moetools/moepush/internal/moemail"
)

const (
	// DefaultListen is the fallback TCP listen address.
	DefaultListen = ":8080"

	// DefaultExpiryHours is applied when the configured alias expiry is
	// absent, malformed, or negative. Zero is valid and means "never".
	DefaultExpiryHours = 24
)

// Config is resolved once at startup and treated as read-only afterwards.
// It is passed explicitly to every component; there is no global.
type Config struct {
	Listen   string        `yaml:"listen"`
	LogLevel string        `yaml:"log_level"`
	BaseURL  string        `yaml:"base_url"`
	Moemail  MoemailConfig `yaml:"moemail"`
	Wecom    WecomConfig   `yaml:"wecom"`
}

// MoemailConfig points at the moemail deployment the alias proxy fronts.
type MoemailConfig struct {
	APIBaseURL         string `yaml:"api_base_url"`
	DefaultExpiryHours int    `yaml:"default_expiry_hours"`
}

// WecomConfig describes the destination group-bot webhook. An empty Secret
// means the bot accepts unsigned calls; an empty WebhookURL means forwarding
// is not configured at all.
type WecomConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Secret     string `yaml:"secret"`
	LogPayload bool   `yaml:"log_payload"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:   DefaultListen,
		LogLevel: "INFO",
		Moemail: MoemailConfig{
			APIBaseURL:         moemail.DefaultAPIBaseURL,
			DefaultExpiryHours: DefaultExpiryHours,
		},
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads a YAML config file on top of the defaults. ${ENV_VAR}
// references in the file are expanded before parsing.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})

	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if cfg.Moemail.DefaultExpiryHours < 0 {
		cfg.Moemail.DefaultExpiryHours = DefaultExpiryHours
	}
	return cfg, nil
}

// ApplyEnv overlays the well-known deployment environment variables, so
// container deployments can run without a config file.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv("BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := os.LookupEnv("MOEMAIL_URL"); ok {
		c.Moemail.APIBaseURL = v
	}
	if v, ok := os.LookupEnv("DEFAULT_EXPIRY_HOURS"); ok {
		c.Moemail.DefaultExpiryHours = ParseExpiryHours(v)
	}
	if v, ok := os.LookupEnv("WECOM_BOT_WEBHOOK"); ok {
		c.Wecom.WebhookURL = v
	}
	if v, ok := os.LookupEnv("WECOM_BOT_SECRET"); ok {
		c.Wecom.Secret = v
	}
	if v, ok := os.LookupEnv("LOG_WECOM_PAYLOAD"); ok {
		c.Wecom.LogPayload = v == "1"
	}
}

// ParseExpiryHours parses an expiry-hours value, falling back to the default
// on malformed or negative input.
func ParseExpiryHours(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return DefaultExpiryHours
	}
	return n
}
