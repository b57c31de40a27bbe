package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalJSONDocument renders cfg as a JSON object keyed like the YAML
// document. Durations appear as strings ("30s").
func MarshalJSONDocument(cfg *Config) ([]byte, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}

	return json.Marshal(doc)
}

// MergeJSONDocument applies a JSON object (keyed like the YAML document) on
// top of base and returns the result. Keys absent from data keep the value
// from base. The result is not validated.
func MergeJSONDocument(base *Config, data []byte, dir string) (*Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid configuration document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("invalid configuration document: expected an object")
	}

	raw, err := yaml.Marshal(normalizeNumbers(doc))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration document: %w", err)
	}

	out := base.Clone()
	if err := yaml.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("invalid configuration document: %w", err)
	}
	ApplyDefaults(out, dir)

	return out, nil
}

// normalizeNumbers replaces json.Number values with int64 or float64 so
// that the YAML encoder emits them as numbers rather than quoted strings.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeNumbers(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeNumbers(val)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}
