package types

import (
	"net/http"
	"testing"
)

func TestErrorDetail_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		errorType string
		want      int
	}{
		{ErrorTypeInvalidRequest, http.StatusBadRequest},
		{ErrorTypeAuthentication, http.StatusUnauthorized},
		{ErrorTypePermissionDenied, http.StatusForbidden},
		{ErrorTypeNotFound, http.StatusNotFound},
		{ErrorTypeServerError, http.StatusInternalServerError},
		{ErrorTypeBadGateway, http.StatusBadGateway},
		{ErrorTypeServiceUnavailable, http.StatusServiceUnavailable},
		{"unknown", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.errorType, func(t *testing.T) {
			detail := ErrorDetail{Type: tt.errorType}
			if got := detail.HTTPStatusCode(); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewBadGatewayError(t *testing.T) {
	resp := NewBadGatewayError("upstream unreachable", CodeUpstreamError)
	if resp.Error.Type != ErrorTypeBadGateway {
		t.Errorf("Type = %q, want %q", resp.Error.Type, ErrorTypeBadGateway)
	}
	if resp.Error.Code != CodeUpstreamError {
		t.Errorf("Code = %q, want %q", resp.Error.Code, CodeUpstreamError)
	}
}
