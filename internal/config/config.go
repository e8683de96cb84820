package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/arko-chat/flurrybridge/internal/credentials"
)

const (
	appName    = "flurrybridge"
	configFile = "config.json"

	secretHashKey  = "hash_key"
	secretBlockKey = "block_key"
)

var validate = validator.New()

type Config struct {
	Addr              string   `json:"addr" validate:"required,hostname_port"`
	DataDir           string   `json:"data_dir" validate:"required"`
	LogLevel          string   `json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat         string   `json:"log_format" validate:"oneof=text json"`
	DecisionTimeoutMS int      `json:"decision_timeout_ms" validate:"gte=1,lte=10000"`
	CacheTTLMS        int      `json:"cache_ttl_ms" validate:"gte=0"`
	AllowedOrigins    []string `json:"allowed_origins" validate:"dive,url"`
	PrivacyURL        string   `json:"privacy_url" validate:"omitempty,url"`

	APIKey   string `json:"-"`
	HashKey  []byte `json:"-" validate:"len=32"`
	BlockKey []byte `json:"-" validate:"len=32"`
}

func (c *Config) DecisionTimeout() time.Duration {
	return time.Duration(c.DecisionTimeoutMS) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMS) * time.Millisecond
}

// Defaults is the configuration generated on first run.
func Defaults(appDir string) Config {
	return Config{
		Addr:              "127.0.0.1:8787",
		DataDir:           filepath.Join(appDir, "data"),
		LogLevel:          "info",
		LogFormat:         "text",
		DecisionTimeoutMS: 300,
		CacheTTLMS:        3000,
	}
}

// Load reads the config from the user config directory, creating it on
// first run.
func Load() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(configDir, appName))
}

// LoadFrom reads appDir/config.json, layers .env and the environment on
// top and pulls secrets from the OS keyring.
func LoadFrom(appDir string) (*Config, error) {
	path := filepath.Join(appDir, configFile)
	cfg := Defaults(appDir)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(appDir, 0700); err != nil {
			return nil, err
		}
		out, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(path, out, 0600); err != nil {
			return nil, err
		}
		slog.Info("generated new config", "path", path)
	default:
		return nil, err
	}

	if cfg.HashKey, err = appSecret(secretHashKey); err != nil {
		return nil, err
	}
	if cfg.BlockKey, err = appSecret(secretBlockKey); err != nil {
		return nil, err
	}
	cfg.APIKey, err = credentials.LoadAPIKey()
	if err != nil && !errors.Is(err, credentials.ErrNotFound) {
		return nil, err
	}

	_ = godotenv.Load()
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// appSecret loads a 32 byte key from the keyring, generating and
// storing one when absent.
func appSecret(name string) ([]byte, error) {
	if enc, err := credentials.LoadAppSecret(name); err == nil {
		if key, err := base64.StdEncoding.DecodeString(enc); err == nil && len(key) == 32 {
			return key, nil
		}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := credentials.StoreAppSecret(name, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("store %s: %w", name, err)
	}
	return key, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("FLURRY_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("FLURRYBRIDGE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("FLURRYBRIDGE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("FLURRYBRIDGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("FLURRYBRIDGE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("FLURRYBRIDGE_DECISION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FLURRYBRIDGE_DECISION_TIMEOUT: %w", err)
		}
		cfg.DecisionTimeoutMS = int(d / time.Millisecond)
	}
	if v := os.Getenv("FLURRYBRIDGE_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}
	return nil
}
