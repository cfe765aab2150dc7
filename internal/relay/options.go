package relay

import (
	"fmt"
	"time"

	"github.com/ylorant/HedgeBot-sub001/internal/domain"
)

// RequireKeys checks that every mandatory key is present and non-empty in cfg.
// The returned *domain.ConfigError lists all missing keys in the order given.
func RequireKeys(clientType string, cfg map[string]any, keys ...string) error {
	var missing []string
	for _, key := range keys {
		v, ok := cfg[key]
		if !ok || v == nil {
			missing = append(missing, key)
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &domain.ConfigError{ClientType: clientType, Missing: missing}
	}
	return nil
}

// String reads an option as a string. Non-string scalars are formatted; absent keys yield def.
func String(cfg map[string]any, key, def string) string {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def
	}
	if s, isString := v.(string); isString {
		return s
	}
	return fmt.Sprint(v)
}

// Duration reads an option holding a Go duration string ("5s") or a number of seconds.
func Duration(cfg map[string]any, key string, def time.Duration) (time.Duration, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def, nil
	}
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, fmt.Errorf("option %q: %w", key, err)
		}
		return parsed, nil
	case int:
		return time.Duration(d) * time.Second, nil
	case int64:
		return time.Duration(d) * time.Second, nil
	case uint64:
		return time.Duration(d) * time.Second, nil
	case float64:
		return time.Duration(d * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("option %q: unsupported duration value %v", key, v)
	}
}
