package profile

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode reads an adapter profile document. Format is "json" or "yaml".
// Defaults are applied; validation is a separate, explicit step.
func Decode(r io.Reader, format string) (*AdapterProfile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	var p AdapterProfile
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing JSON profile: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing YAML profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format: %s", format)
	}

	p.ApplyDefaults()
	return &p, nil
}
