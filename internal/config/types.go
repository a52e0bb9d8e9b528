package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dgellow/authredirect/internal/redirect"
	"github.com/dgellow/authredirect/internal/storage"
)

// VersionPrefix gates the config formats this build understands
const VersionPrefix = "v0.0.1-DEV_EDITION"

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageConfig selects where the session token lives
type StorageConfig struct {
	Kind      storage.Kind `json:"kind"`
	KeyPrefix string       `json:"keyPrefix,omitempty"`

	RedisAddr     string `json:"redisAddr,omitempty"`
	RedisPassword Secret `json:"redisPassword,omitempty"`
	RedisDB       int    `json:"redisDb,omitempty"`

	GCPProject        string `json:"gcpProject,omitempty"`
	FirestoreDatabase string `json:"firestoreDatabase,omitempty"`
	Collection        string `json:"collection,omitempty"`
	CredentialsFile   string `json:"credentialsFile,omitempty"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr         string        `json:"addr"`
	CookieMaxAge time.Duration `json:"cookieMaxAge"`
}

// Config represents the config structure with resolved values
type Config struct {
	Version string `json:"version"`
	BaseURL string `json:"baseURL"`

	LoginPath  string `json:"loginPath"`
	LogoutPath string `json:"logoutPath"`
	HomePath   string `json:"homePath"`
	TokenKey   string `json:"tokenKey"`

	Redirects        []string      `json:"redirects"`
	EnforceAllowList bool          `json:"enforceAllowList"`
	StrictLogout     bool          `json:"strictLogout"`
	Timeout          time.Duration `json:"timeout"`

	Storage StorageConfig `json:"storage"`
	Server  ServerConfig  `json:"server"`
}

// Default returns the configuration used for any field a file leaves out
func Default() Config {
	return Config{
		Version:          VersionPrefix,
		BaseURL:          "http://localhost:5333",
		LoginPath:        redirect.DefaultLoginPath,
		LogoutPath:       "/logout",
		HomePath:         redirect.DefaultHomePath,
		TokenKey:         redirect.DefaultTokenKey,
		Redirects:        append([]string(nil), redirect.DefaultRedirects...),
		EnforceAllowList: true,
		Timeout:          redirect.DefaultTimeout,
		Storage: StorageConfig{
			Kind:       storage.KindMemory,
			Collection: "authredirect_sessions",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			CookieMaxAge: 24 * time.Hour,
		},
	}
}

// RawConfigValue represents a value that could be a plain string or an env ref.
// This is only used during parsing, not in the final config.
type RawConfigValue struct {
	value string
}

// ParseConfigValue parses a JSON value that could be a string or reference object
func ParseConfigValue(raw json.RawMessage) (*RawConfigValue, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return &RawConfigValue{value: str}, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("config value must be string or reference object")
	}

	if envVar, ok := ref["$env"]; ok {
		value := os.Getenv(envVar)
		if value == "" {
			return nil, fmt.Errorf("environment variable %s not set", envVar)
		}
		// Strip surrounding quotes if present (only matching pairs)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		return &RawConfigValue{value: value}, nil
	}

	return nil, fmt.Errorf("unknown reference type in config value")
}

// Value returns the resolved string
func (v *RawConfigValue) Value() string {
	return v.value
}
