package logging

import (
	"log/slog"
	"testing"
)

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "GET /api/v1/books/12/pages/3", "GET /api/v1/books/12/pages/3"},
		{"bearer", "header Bearer abc.def.ghi", "header Bearer ***"},
		{"basic", "Basic dXNlcjpwYXNz", "Basic ***"},
		{"api key param", "/api/image?apiKey=abc123&x=1", "/api/image?apiKey=***&x=1"},
		{"password field", "password=hunter2 next", "password=*** next"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"sensitive key", slog.String("Cookie", "SESSION=1"), "***"},
		{"sensitive key keeps scheme", slog.String("Authorization", "Bearer xyz"), "Bearer ***"},
		{"sensitive non-string", slog.Int("token", 1234), "***"},
		{"non-sensitive string", slog.String("path", "/hubs/messages"), "/hubs/messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("RedactAttr(%v) = %q, want %q", tt.attr, got.Value.String(), tt.want)
			}
		})
	}

	if got := r.RedactAttr(slog.Int("status", 200)); got.Value.Int64() != 200 {
		t.Errorf("RedactAttr(status) = %v, want 200", got.Value)
	}
}
