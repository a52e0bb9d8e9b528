package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgellow/authredirect/internal/storage"
)

// resolveString parses an optional string-or-$env value into dst. Absent
// values leave dst unchanged.
func resolveString(raw json.RawMessage, name string, dst *string) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	parsed, err := ParseConfigValue(raw)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = parsed.value
	return nil
}

func parseDuration(s, name string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = d
	return nil
}

// UnmarshalJSON overlays the fields present in data onto c, resolving env
// references immediately. Start from Default() to get defaults for the rest.
func (c *Config) UnmarshalJSON(data []byte) error {
	type rawConfig struct {
		Version          string          `json:"version"`
		BaseURL          json.RawMessage `json:"baseURL"`
		LoginPath        string          `json:"loginPath"`
		LogoutPath       string          `json:"logoutPath"`
		HomePath         string          `json:"homePath"`
		TokenKey         string          `json:"tokenKey"`
		Redirects        *[]string       `json:"redirects"`
		EnforceAllowList *bool           `json:"enforceAllowList"`
		StrictLogout     *bool           `json:"strictLogout"`
		Timeout          string          `json:"timeout"`
		Storage          *StorageConfig  `json:"storage"`
		Server           *ServerConfig   `json:"server"`
	}

	// Nested structs decode over the current values so their defaults survive.
	raw := rawConfig{
		Storage: &c.Storage,
		Server:  &c.Server,
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Version != "" {
		c.Version = raw.Version
	}
	if err := resolveString(raw.BaseURL, "baseURL", &c.BaseURL); err != nil {
		return err
	}
	setIfPresent(&c.LoginPath, raw.LoginPath)
	setIfPresent(&c.LogoutPath, raw.LogoutPath)
	setIfPresent(&c.HomePath, raw.HomePath)
	setIfPresent(&c.TokenKey, raw.TokenKey)

	if raw.Redirects != nil {
		c.Redirects = *raw.Redirects
	}
	if raw.EnforceAllowList != nil {
		c.EnforceAllowList = *raw.EnforceAllowList
	}
	if raw.StrictLogout != nil {
		c.StrictLogout = *raw.StrictLogout
	}
	if err := parseDuration(raw.Timeout, "timeout", &c.Timeout); err != nil {
		return err
	}
	return nil
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// UnmarshalJSON implements custom unmarshaling for StorageConfig
func (s *StorageConfig) UnmarshalJSON(data []byte) error {
	type rawStorage struct {
		Kind              storage.Kind    `json:"kind"`
		KeyPrefix         *string         `json:"keyPrefix"`
		RedisAddr         json.RawMessage `json:"redisAddr"`
		RedisPassword     json.RawMessage `json:"redisPassword"`
		RedisDB           *int            `json:"redisDb"`
		GCPProject        json.RawMessage `json:"gcpProject"`
		FirestoreDatabase string          `json:"firestoreDatabase"`
		Collection        string          `json:"collection"`
		CredentialsFile   json.RawMessage `json:"credentialsFile"`
	}

	var raw rawStorage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Kind != "" {
		s.Kind = raw.Kind
	}
	if raw.KeyPrefix != nil {
		s.KeyPrefix = *raw.KeyPrefix
	}
	if raw.RedisDB != nil {
		s.RedisDB = *raw.RedisDB
	}
	setIfPresent(&s.FirestoreDatabase, raw.FirestoreDatabase)
	setIfPresent(&s.Collection, raw.Collection)

	if err := resolveString(raw.RedisAddr, "storage.redisAddr", &s.RedisAddr); err != nil {
		return err
	}
	var password string
	if err := resolveString(raw.RedisPassword, "storage.redisPassword", &password); err != nil {
		return err
	}
	if password != "" {
		s.RedisPassword = Secret(password)
	}
	if err := resolveString(raw.GCPProject, "storage.gcpProject", &s.GCPProject); err != nil {
		return err
	}
	return resolveString(raw.CredentialsFile, "storage.credentialsFile", &s.CredentialsFile)
}

// UnmarshalJSON implements custom unmarshaling for ServerConfig
func (s *ServerConfig) UnmarshalJSON(data []byte) error {
	type rawServer struct {
		Addr         json.RawMessage `json:"addr"`
		CookieMaxAge string          `json:"cookieMaxAge"`
	}

	var raw rawServer
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if err := resolveString(raw.Addr, "server.addr", &s.Addr); err != nil {
		return err
	}
	return parseDuration(raw.CookieMaxAge, "server.cookieMaxAge", &s.CookieMaxAge)
}
