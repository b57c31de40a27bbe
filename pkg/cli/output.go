package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how a command prints structured results.
type OutputFormat string

const (
	// FormatYAML matches the on-disk configuration document.
	FormatYAML OutputFormat = "yaml"
	// FormatJSON matches the /kurp/config endpoint.
	FormatJSON OutputFormat = "json"
)

// Formatter writes structured command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// YAMLFormatter writes data as a YAML document.
type YAMLFormatter struct{}

// FormatTo implements Formatter.
func (YAMLFormatter) FormatTo(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// JSONFormatter writes data as indented JSON. Values that are already
// encoded JSON are re-indented rather than quoted.
type JSONFormatter struct{}

// FormatTo implements Formatter.
func (JSONFormatter) FormatTo(w io.Writer, data any) error {
	if raw, ok := data.([]byte); ok {
		data = json.RawMessage(raw)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// NewFormatter returns the formatter for format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatYAML, "":
		return YAMLFormatter{}, nil
	case FormatJSON:
		return JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want yaml or json)", format)
	}
}
