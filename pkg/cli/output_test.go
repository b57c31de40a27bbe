package cli

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Port    int    `yaml:"port" json:"port"`
	Backend string `yaml:"backend" json:"backend"`
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format  OutputFormat
		want    string
		wantErr bool
	}{
		{FormatYAML, "port: 3030\nbackend: komga\n", false},
		{"", "port: 3030\nbackend: komga\n", false},
		{FormatJSON, "{\n  \"port\": 3030,\n  \"backend\": \"komga\"\n}\n", false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := NewFormatter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			var buf bytes.Buffer
			if err := f.FormatTo(&buf, sample{Port: 3030, Backend: "komga"}); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSONFormatter_RawDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).FormatTo(&buf, []byte(`{"port":3030}`)); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "{\n  \"port\": 3030\n}" {
		t.Errorf("output = %q", got)
	}
}
