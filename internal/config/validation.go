package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dgellow/authredirect/internal/redirect"
	"github.com/dgellow/authredirect/internal/storage"
)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

func (v *ValidationResult) addError(path, format string, args ...any) {
	v.Errors = append(v.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationResult) addWarning(path, format string, args ...any) {
	v.Warnings = append(v.Warnings, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

var bashStyleRegex = regexp.MustCompile(`\$\{?[A-Z_][A-Z0-9_]*\}?`)

// ValidateFile validates a config file structure without requiring env vars
func ValidateFile(path string) (*ValidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ValidateBytes(data), nil
}

// ValidateBytes is ValidateFile for config bytes already in memory
func ValidateBytes(data []byte) *ValidationResult {
	result := &ValidationResult{}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.addError("", "invalid JSON: %v", err)
		return result
	}

	checkBashStyleSyntax(rawConfig, "", result)

	version, ok := rawConfig["version"].(string)
	if !ok {
		result.addError("version", "version field is required. Hint: Add \"version\": \"%s\"", VersionPrefix)
	} else if !strings.HasPrefix(version, VersionPrefix) {
		result.addError("version", "unsupported version '%s' - use '%s' or '%s-<variant>'", version, VersionPrefix, VersionPrefix)
	}

	if _, ok := rawConfig["baseURL"]; !ok {
		result.addWarning("baseURL", "baseURL not set - defaults to %s", Default().BaseURL)
	}

	for _, key := range []string{"loginPath", "logoutPath", "homePath"} {
		if v, ok := rawConfig[key].(string); ok && !strings.HasPrefix(v, "/") {
			result.addError(key, "%s must start with '/'", key)
		}
	}

	validateRedirects(rawConfig, result)
	validateStorageSection(rawConfig, result)

	if enforce, ok := rawConfig["enforceAllowList"].(bool); ok && !enforce {
		result.addWarning("enforceAllowList", "allow-list enforcement disabled - any redirect target is accepted")
	}

	return result
}

func validateRedirects(rawConfig map[string]any, result *ValidationResult) {
	value, exists := rawConfig["redirects"]
	if !exists {
		return
	}
	list, ok := value.([]any)
	if !ok {
		result.addError("redirects", "redirects must be an array of strings")
		return
	}

	seen := make(map[string]int, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			result.addError(fmt.Sprintf("redirects[%d]", i), "redirect target must be a string")
			continue
		}
		normalized := redirect.Normalize(s)
		if first, dup := seen[normalized]; dup {
			result.addWarning(fmt.Sprintf("redirects[%d]", i), "duplicates redirects[%d] after normalization (%q)", first, normalized)
			continue
		}
		seen[normalized] = i
		if strings.Contains(normalized, "://") || strings.HasPrefix(normalized, "//") {
			result.addWarning(fmt.Sprintf("redirects[%d]", i), "redirect target %q looks like an absolute URL - targets are relative paths", s)
		}
	}
}

func validateStorageSection(rawConfig map[string]any, result *ValidationResult) {
	st, ok := rawConfig["storage"].(map[string]any)
	if !ok {
		return
	}

	kind, _ := st["kind"].(string)
	switch storage.Kind(kind) {
	case "", storage.KindMemory:
	case storage.KindRedis:
		if _, ok := st["redisAddr"]; !ok {
			result.addError("storage.redisAddr", "redisAddr is required when using redis storage")
		}
	case storage.KindFirestore:
		if _, ok := st["gcpProject"]; !ok {
			result.addError("storage.gcpProject", "gcpProject is required when using firestore storage")
		}
	default:
		result.addError("storage.kind", "unsupported storage kind '%s' - use memory, redis or firestore", kind)
	}

	if v, exists := st["redisPassword"]; exists {
		if _, isString := v.(string); isString {
			result.addError("storage.redisPassword", "redisPassword must use {\"$env\": \"VAR_NAME\"} format")
		}
	}
}

func checkBashStyleSyntax(value any, path string, result *ValidationResult) {
	switch v := value.(type) {
	case string:
		for _, match := range bashStyleRegex.FindAllString(v, -1) {
			varName := strings.Trim(match, "${}")
			result.addWarning(path, "found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", match, varName)
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; hasEnv {
			return
		}
		for key, val := range v {
			newPath := key
			if path != "" {
				newPath = path + "." + key
			}
			checkBashStyleSyntax(val, newPath, result)
		}
	case []any:
		for i, item := range v {
			checkBashStyleSyntax(item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}
