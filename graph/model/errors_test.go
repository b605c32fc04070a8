package model

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		retryable bool
	}{
		{"auth", errors.New("401 Unauthorized"), "invalid_api_key", false},
		{"quota", errors.New("insufficient_quota for this billing period"), "quota_exceeded", false},
		{"rate limit", errors.New("429: rate limit exceeded"), "rate_limited", true},
		{"server", errors.New("503 service unavailable"), "server_error", true},
		{"network", errors.New("connection reset by peer"), "network_error", true},
		{"unknown", errors.New("model does not exist"), "api_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError("test", tt.err)
			var pe *ProviderError
			if !errors.As(got, &pe) {
				t.Fatalf("expected *ProviderError, got %T", got)
			}
			if pe.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", pe.Code, tt.wantCode)
			}
			if Retryable(got) != tt.retryable {
				t.Errorf("Retryable = %v, want %v", Retryable(got), tt.retryable)
			}
		})
	}
}

func TestClassifyErrorPassesContextThrough(t *testing.T) {
	if got := ClassifyError("test", context.Canceled); !errors.Is(got, context.Canceled) {
		t.Errorf("got %v", got)
	}
	if got := ClassifyError("test", context.DeadlineExceeded); !errors.Is(got, context.DeadlineExceeded) {
		t.Errorf("got %v", got)
	}
	if got := ClassifyError("test", nil); got != nil {
		t.Errorf("nil should stay nil, got %v", got)
	}
}
