package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// RelayConfig declares one relay client instance. Options are handed to the
// client's Initialize unchanged, so key case is preserved ("hubUrl", "jwtKey").
type RelayConfig struct {
	Name    string         `yaml:"name"`
	Type    string         `yaml:"type"`
	Options map[string]any `yaml:"options"`
}

type relayFile struct {
	Relays []RelayConfig `yaml:"relays"`
}

// LoadRelays reads the relay declarations from a YAML file. ${VAR} references
// are expanded from the environment first, so secrets can stay out of the file.
// An empty path means no relays.
func LoadRelays(path string) ([]RelayConfig, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read relay config: %w", err)
	}
	return ParseRelays([]byte(os.ExpandEnv(string(raw))))
}

// ParseRelays decodes and validates a relay declaration document.
// A relay without a name is named after its type.
func ParseRelays(data []byte) ([]RelayConfig, error) {
	var file relayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse relay config: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Relays))
	for i := range file.Relays {
		r := &file.Relays[i]
		if r.Type == "" {
			return nil, fmt.Errorf("relay #%d: type is required", i+1)
		}
		if r.Name == "" {
			r.Name = r.Type
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("relay #%d: name %q is already used", i+1, r.Name)
		}
		seen[r.Name] = struct{}{}
		if r.Options == nil {
			r.Options = map[string]any{}
		}
	}
	return file.Relays, nil
}
