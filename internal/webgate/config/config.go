package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from defaults and environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	Log LoggingConfig `koanf:"log" validate:"required"`

	Policy PolicyConfig `koanf:"policy"`

	Cache CacheConfig `koanf:"cache"`

	Audit AuditConfig `koanf:"audit"`

	Index IndexConfig `koanf:"index"`

	// Homepage is loaded when the shell starts without a link.
	Homepage string `koanf:"homepage" validate:"required,https_url"`
}

type LoggingConfig struct {
	// Level controls log verbosity: "debug", "info", "warn", or "error".
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

// PolicyConfig points at an optional operator policy file.
type PolicyConfig struct {
	// File is a YAML, JSON or TOML policy file. Empty means compiled-in policy only.
	File string `koanf:"file"`

	// Replace uses the file on its own instead of extending the compiled-in policy.
	Replace bool `koanf:"replace"`
}

// CacheConfig sizes the decision cache. Zero disables it.
type CacheConfig struct {
	Size int `koanf:"size" validate:"gte=0"`
}

// AuditConfig locates the denial store. Empty disables persistence;
// denials are still logged.
type AuditConfig struct {
	DB string `koanf:"db"`
}

type IndexConfig struct {
	// FPRate is the false-positive rate of the exact-host prefilter.
	FPRate float64 `koanf:"fp_rate" validate:"gt=0,lt=1"`
}

// DEFAULT_APP_CONFIG defines the default application configuration.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:      "prod",
	Log:      LoggingConfig{Level: "info"},
	Policy:   PolicyConfig{File: "", Replace: false},
	Cache:    CacheConfig{Size: 1000},
	Audit:    AuditConfig{DB: ""},
	Index:    IndexConfig{FPRate: 0.01},
	Homepage: "https://maps.apple.com/",
}

// envKeys maps environment variable names (prefix stripped, lowercased) to
// koanf keys. Variables not listed here are ignored.
var envKeys = map[string]string{
	"env":            "env",
	"log_level":      "log.level",
	"policy_file":    "policy.file",
	"policy_replace": "policy.replace",
	"cache_size":     "cache.size",
	"audit_db":       "audit.db",
	"index_fp_rate":  "index.fp_rate",
	"homepage":       "homepage",
}

// validHTTPSURL reports whether the field is an absolute https URL with a host.
func validHTTPSURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, "https") && u.Host != ""
}

// envLoader loads environment variables with the prefix "WEBGATE_".
// It can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "WEBGATE_",
		TransformFunc: func(key, value string) (string, any) {
			name := strings.ToLower(strings.TrimPrefix(key, "WEBGATE_"))
			mapped, ok := envKeys[name]
			if !ok {
				return "", nil
			}
			return mapped, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the "https_url" tag.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("https_url", validHTTPSURL)
}

// Load applies defaults, then environment overrides, and validates the result.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
