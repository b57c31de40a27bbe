package transcode

import (
	"errors"
	"testing"

	"kurp-hq/kurp/pkg/config"
)

func TestNormalizeMIME(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"image/jpeg", "image/jpeg"},
		{"image/jpg", "image/jpeg"},
		{"IMAGE/JPG", "image/jpeg"},
		{"image/png; charset=binary", "image/png"},
		{"image/webp", "image/webp"},
		{"image/x-png", "image/png"},
		{" image/gif ", "image/gif"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeMIME(tt.in); got != tt.want {
				t.Errorf("NormalizeMIME(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		contentType string
		want        Format
		wantErr     bool
	}{
		{"image/jpeg", FormatJPEG, false},
		{"image/jpg", FormatJPEG, false},
		{"image/png", FormatPNG, false},
		{"image/webp", FormatWebP, false},
		{"image/gif", FormatGIF, false},
		{"image/avif", FormatUnknown, true},
		{"application/json", FormatUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			got, err := ParseFormat(tt.contentType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat() = %v, want %v", got, tt.want)
			}
			if tt.wantErr {
				var unsupported *UnsupportedFormatError
				if !errors.As(err, &unsupported) {
					t.Errorf("error type = %T, want *UnsupportedFormatError", err)
				}
			}
		})
	}
}

func TestResolveOutput(t *testing.T) {
	tests := []struct {
		returnFormat string
		source       Format
		want         Format
	}{
		{config.FormatWebP, FormatJPEG, FormatWebP},
		{config.FormatPNG, FormatJPEG, FormatPNG},
		{config.FormatJPEG, FormatPNG, FormatJPEG},
		{config.FormatOriginal, FormatPNG, FormatPNG},
		{config.FormatOriginal, FormatGIF, FormatGIF},
	}

	for _, tt := range tests {
		if got := ResolveOutput(tt.returnFormat, tt.source); got != tt.want {
			t.Errorf("ResolveOutput(%q, %v) = %v, want %v", tt.returnFormat, tt.source, got, tt.want)
		}
	}
}

func TestFormat_MIMEAndExtension(t *testing.T) {
	if got := FormatJPEG.Extension(); got != "jpg" {
		t.Errorf("FormatJPEG.Extension() = %q, want jpg", got)
	}
	if got := FormatWebP.MIME(); got != "image/webp" {
		t.Errorf("FormatWebP.MIME() = %q, want image/webp", got)
	}
	if got := FormatUnknown.String(); got != "unknown" {
		t.Errorf("FormatUnknown.String() = %q, want unknown", got)
	}
}
