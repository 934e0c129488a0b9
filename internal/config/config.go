package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	commoncfg "altenheim-avatar/internal/common/config"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Model profile defaults.
const (
	DefaultCompanionModel       = "claude-haiku-4-5-20251001"
	DefaultCompanionMaxTokens   = 200
	DefaultCompanionTemperature = 0.8

	DefaultStaffModel       = "claude-sonnet-4-5-20250929"
	DefaultStaffMaxTokens   = 800
	DefaultStaffTemperature = 0.3
)

const minJWTSecretLen = 32

// Config altenheim-avatar configuration, read from the environment.
type Config struct {
	HTTP     HTTPConfig               `envconfig:"HTTP"`
	Database commoncfg.DatabaseConfig `envconfig:"DB"`
	Redis    commoncfg.RedisConfig    `envconfig:"REDIS"`
	MQTT     commoncfg.MQTTConfig     `envconfig:"MQTT"`
	Log      LogConfig                `envconfig:"LOG"`
	Auth     AuthConfig               `envconfig:"AUTH"`
	LLM      LLMConfig                `envconfig:"LLM"`
	Events   EventsConfig             `envconfig:"EVENTS"`

	JWTSecret       string `envconfig:"JWT_SECRET"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
}

type HTTPConfig struct {
	Addr            string        `envconfig:"ADDR" default:":3000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"40s"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

// AuthConfig session token lifetimes and the optional PIN lookup index.
type AuthConfig struct {
	StaffTokenTTL    time.Duration `envconfig:"STAFF_TOKEN_TTL" default:"8h"`
	ResidentTokenTTL time.Duration `envconfig:"RESIDENT_TOKEN_TTL" default:"24h"`
	PINIndexEnabled  bool          `envconfig:"PIN_INDEX_ENABLED" default:"true"`
	PINIndexKey      string        `envconfig:"PIN_INDEX_KEY"`
	PINIndexTTL      time.Duration `envconfig:"PIN_INDEX_TTL" default:"24h"`
}

// ProfileConfig one model profile. Unset fields fall back to the mode defaults.
type ProfileConfig struct {
	Model       string   `envconfig:"MODEL" yaml:"model"`
	MaxTokens   int      `envconfig:"MAX_TOKENS" yaml:"max_tokens"`
	Temperature *float64 `envconfig:"TEMPERATURE" yaml:"temperature"`
}

type LLMConfig struct {
	BaseURL         string        `envconfig:"BASE_URL" default:"https://api.anthropic.com"`
	StreamTimeout   time.Duration `envconfig:"STREAM_TIMEOUT" default:"35s"`
	HistoryLimit    int           `envconfig:"HISTORY_LIMIT" default:"20"`
	MaxMessageChars int           `envconfig:"MAX_MESSAGE_CHARS" default:"2000"`
	ProfilesFile    string        `envconfig:"PROFILES_FILE"`
	Companion       ProfileConfig `envconfig:"COMPANION"`
	Staff           ProfileConfig `envconfig:"STAFF"`
}

// EventsConfig selects the conversation event backend: redis, mqtt or none.
type EventsConfig struct {
	Backend      string `envconfig:"BACKEND" default:"none"`
	Stream       string `envconfig:"STREAM" default:"companion:events"`
	StreamMaxLen int64  `envconfig:"STREAM_MAX_LEN" default:"10000"`
}

type profilesFile struct {
	Profiles struct {
		Companion ProfileConfig `yaml:"companion"`
		Staff     ProfileConfig `yaml:"staff"`
	} `yaml:"profiles"`
}

// Load reads the environment, merges the optional profiles file and fills profile defaults.
// Environment values win over the file.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if cfg.LLM.ProfilesFile != "" {
		pf, err := readProfilesFile(cfg.LLM.ProfilesFile)
		if err != nil {
			return nil, err
		}
		mergeProfile(&cfg.LLM.Companion, pf.Profiles.Companion)
		mergeProfile(&cfg.LLM.Staff, pf.Profiles.Staff)
	}

	mergeProfile(&cfg.LLM.Companion, ProfileConfig{
		Model:       DefaultCompanionModel,
		MaxTokens:   DefaultCompanionMaxTokens,
		Temperature: float64Ptr(DefaultCompanionTemperature),
	})
	mergeProfile(&cfg.LLM.Staff, ProfileConfig{
		Model:       DefaultStaffModel,
		MaxTokens:   DefaultStaffMaxTokens,
		Temperature: float64Ptr(DefaultStaffTemperature),
	})

	cfg.Events.Backend = strings.ToLower(strings.TrimSpace(cfg.Events.Backend))
	switch cfg.Events.Backend {
	case "redis", "mqtt", "none", "":
	default:
		return nil, fmt.Errorf("unsupported EVENTS_BACKEND: %s", cfg.Events.Backend)
	}

	if cfg.LLM.HistoryLimit <= 0 || cfg.LLM.HistoryLimit > 20 {
		cfg.LLM.HistoryLimit = 20
	}
	if cfg.LLM.MaxMessageChars <= 0 {
		cfg.LLM.MaxMessageChars = 2000
	}
	return &cfg, nil
}

// ValidateServe checks the settings only the HTTP server needs.
func (c *Config) ValidateServe() error {
	var errs []error
	if len(c.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLen))
	}
	if c.AnthropicAPIKey == "" {
		errs = append(errs, errors.New("ANTHROPIC_API_KEY is required"))
	}
	if c.LLM.StreamTimeout <= 0 {
		errs = append(errs, errors.New("LLM_STREAM_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// PINIndexSecret is the HMAC key for the PIN index. It defaults to the JWT secret.
func (c *Config) PINIndexSecret() string {
	if c.Auth.PINIndexKey != "" {
		return c.Auth.PINIndexKey
	}
	return c.JWTSecret
}

func readProfilesFile(path string) (*profilesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file %s: %w", path, err)
	}
	var pf profilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse profiles file %s: %w", path, err)
	}
	return &pf, nil
}

// mergeProfile fills the unset fields of dst from src.
func mergeProfile(dst *ProfileConfig, src ProfileConfig) {
	if dst.Model == "" {
		dst.Model = src.Model
	}
	if dst.MaxTokens <= 0 {
		dst.MaxTokens = src.MaxTokens
	}
	if dst.Temperature == nil && src.Temperature != nil {
		t := *src.Temperature
		dst.Temperature = &t
	}
}

func float64Ptr(v float64) *float64 { return &v }
