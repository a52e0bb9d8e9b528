package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/dgellow/authredirect/internal/log"
	"github.com/dgellow/authredirect/internal/storage"
)

// Load loads and processes the config with immediate env var resolution.
// Fields the file leaves out keep their Default() values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for config bytes already in memory
func Parse(data []byte) (Config, error) {
	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if !strings.HasPrefix(version, VersionPrefix) {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateRawConfig validates the config structure before environment resolution
func validateRawConfig(rawConfig map[string]any) error {
	st, ok := rawConfig["storage"].(map[string]any)
	if !ok {
		return nil
	}
	value, exists := st["redisPassword"]
	if !exists {
		return nil
	}
	if _, isString := value.(string); isString {
		return fmt.Errorf("storage.redisPassword must use environment variable reference for security")
	}
	if refMap, isMap := value.(map[string]any); isMap {
		if _, hasEnv := refMap["$env"]; !hasEnv {
			return fmt.Errorf("storage.redisPassword must use {\"$env\": \"VAR_NAME\"} format")
		}
	}
	return nil
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.BaseURL == "" {
		return fmt.Errorf("baseURL is required")
	}
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return fmt.Errorf("baseURL is invalid: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("baseURL must be an absolute http(s) URL, got %q", config.BaseURL)
	}

	paths := []struct {
		name  string
		value string
	}{
		{"loginPath", config.LoginPath},
		{"logoutPath", config.LogoutPath},
		{"homePath", config.HomePath},
	}
	for _, p := range paths {
		if !strings.HasPrefix(p.value, "/") {
			return fmt.Errorf("%s must start with '/', got %q", p.name, p.value)
		}
	}

	if strings.TrimSpace(config.TokenKey) == "" {
		return fmt.Errorf("tokenKey is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	if err := validateStorageConfig(&config.Storage); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if config.Server.CookieMaxAge < 0 {
		return fmt.Errorf("server.cookieMaxAge cannot be negative")
	}

	if !config.EnforceAllowList {
		log.LogWarn("enforceAllowList is false - every redirect target will be accepted")
	}
	if config.EnforceAllowList && len(config.Redirects) == 0 {
		log.LogWarn("redirects is empty - every login URL request will be rejected")
	}
	if config.Timeout == 0 {
		log.LogWarn("timeout is 0 - a hung logout endpoint blocks until the caller gives up")
	}

	return nil
}

func validateStorageConfig(s *StorageConfig) error {
	switch s.Kind {
	case storage.KindMemory:
	case storage.KindRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("redisAddr is required when using redis storage")
		}
		if s.RedisDB < 0 {
			return fmt.Errorf("redisDb cannot be negative")
		}
	case storage.KindFirestore:
		if s.GCPProject == "" {
			return fmt.Errorf("gcpProject is required when using firestore storage")
		}
		if s.Collection == "" {
			return fmt.Errorf("collection is required when using firestore storage")
		}
	default:
		return fmt.Errorf("unsupported storage kind %q (memory, redis or firestore)", s.Kind)
	}
	return nil
}
