package toolkit

import (
	"fmt"
	"strings"
)

// GetString extracts a string value from a config map.
func GetString(cfg map[string]any, key string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}

// GetInt extracts an integer value from a config map with a default. YAML
// numbers may decode as int, int64 or float64.
func GetInt(cfg map[string]any, key string, defaultVal int) (int, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return defaultVal, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s: %v is not a whole number", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s: expected a number, got %T", key, raw)
	}
}

// GetStringSlice extracts a list of strings from a config map. A single
// string is split on commas.
func GetStringSlice(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case string:
		var out []string
		for part := range strings.SplitSeq(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// GetStringMap extracts a map[string]string value from a config map.
func GetStringMap(cfg map[string]any, key string) map[string]string {
	raw, ok := cfg[key].(map[string]any)
	if !ok {
		return nil
	}
	result := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}

// Describe returns the configured description override for tool, or def.
func Describe(overrides map[string]string, tool, def string) string {
	if d, ok := overrides[tool]; ok && d != "" {
		return d
	}
	return def
}
