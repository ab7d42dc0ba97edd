package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_MessageNamesKind(t *testing.T) {
	err := NewNoDataError("collection is empty after filtering", nil)
	if !strings.HasPrefix(err.Error(), "NoDataError: ") {
		t.Errorf("Expected message to start with kind, got %q", err.Error())
	}

	wrapped := NewNetworkError("catalog unreachable", context.DeadlineExceeded)
	if !strings.Contains(wrapped.Error(), "caused by: context deadline exceeded") {
		t.Errorf("Expected cause in message, got %q", wrapped.Error())
	}
	if !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("Expected cause to be reachable through errors.Is")
	}
}

func TestIsType_ThroughWrapping(t *testing.T) {
	base := NewPixelBudgetExceededError("too many pixels", nil)
	wrapped := fmt.Errorf("zonal statistics: %w", base)

	if !IsType(wrapped, ErrorTypePixelBudgetExceeded) {
		t.Error("Expected wrapped error to keep its type")
	}
	if IsType(wrapped, ErrorTypeNoData) {
		t.Error("Did not expect a different type to match")
	}
	if TypeOf(errors.New("plain")) != ErrorTypeInternal {
		t.Error("Expected foreign errors to be internal")
	}
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewAuthError("bad credential", nil), http.StatusUnauthorized},
		{NewUnknownModuleError("nope", nil), http.StatusNotFound},
		{NewModelNotReadyError("untrained", nil), http.StatusConflict},
		{NewInvalidAOIError("bad polygon", nil), http.StatusBadRequest},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := GetStatusCode(tt.err); got != tt.want {
			t.Errorf("GetStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestTransientAndFatal(t *testing.T) {
	if !IsTransient(NewTimeoutError("slow", nil)) || !IsTransient(NewNetworkError("down", nil)) {
		t.Error("Expected timeout and network errors to be transient")
	}
	if IsTransient(NewNoDataError("empty", nil)) {
		t.Error("Did not expect NoDataError to be transient")
	}
	if !IsSessionFatal(fmt.Errorf("init: %w", NewAuthError("expired", nil))) {
		t.Error("Expected AuthError to be session fatal")
	}
}
