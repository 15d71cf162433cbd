package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	bare := NewDecodeError("bad image", nil)
	if bare.Error() != "decode: bad image" {
		t.Errorf("Unexpected message: %s", bare.Error())
	}

	wrapped := NewInferenceError("model call failed", fmt.Errorf("connection refused"))
	want := "inference: model call failed (caused by: connection refused)"
	if wrapped.Error() != want {
		t.Errorf("Unexpected message: %s", wrapped.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewInferenceError("model call failed", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should reach the cause through Unwrap")
	}
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewDecodeError("", nil), http.StatusBadRequest},
		{NewValidationError("", nil), http.StatusBadRequest},
		{NewInferenceError("", nil), http.StatusBadGateway},
		{NewTimeoutError("", nil), http.StatusGatewayTimeout},
		{NewNotFoundError("", nil), http.StatusNotFound},
		{fmt.Errorf("plain error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := GetStatusCode(tt.err); got != tt.want {
			t.Errorf("GetStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestIsType(t *testing.T) {
	err := NewTimeoutError("budget exceeded", nil)

	if !IsType(err, ErrorTypeTimeout) {
		t.Error("Expected timeout type match")
	}
	if IsType(err, ErrorTypeDecode) {
		t.Error("Unexpected decode type match")
	}
	if IsType(fmt.Errorf("plain"), ErrorTypeTimeout) {
		t.Error("Plain errors should never match")
	}
}
