package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ProviderError is a classified failure from a text-generation provider.
type ProviderError struct {
	Provider  string
	Code      string
	Message   string
	Retryable bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}

// Retryable reports whether err is worth retrying. Meant as the Retryable
// hook of a graph.RetryPolicy on model-backed nodes.
func Retryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// ClassifyError maps a raw SDK error onto a *ProviderError. Provider SDKs
// expose failures mostly through error strings, so classification is
// substring-based: auth and quota problems are permanent, rate limits and
// server/network hiccups are retryable. Context errors pass through
// untouched so the engine can tell interruption from failure.
func ClassifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "401", "403", "unauthorized", "authentication", "api key", "api_key"):
		return &ProviderError{Provider: provider, Code: "invalid_api_key", Message: err.Error(), Retryable: false}
	case containsAny(msg, "quota", "insufficient_quota", "billing"):
		return &ProviderError{Provider: provider, Code: "quota_exceeded", Message: err.Error(), Retryable: false}
	case containsAny(msg, "429", "rate limit", "rate_limit", "too many requests", "resource_exhausted", "overloaded"):
		return &ProviderError{Provider: provider, Code: "rate_limited", Message: err.Error(), Retryable: true}
	case containsAny(msg, "500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable"):
		return &ProviderError{Provider: provider, Code: "server_error", Message: err.Error(), Retryable: true}
	case containsAny(msg, "timeout", "deadline", "connection", "network", "temporary"):
		return &ProviderError{Provider: provider, Code: "network_error", Message: err.Error(), Retryable: true}
	default:
		return &ProviderError{Provider: provider, Code: "api_error", Message: err.Error(), Retryable: false}
	}
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
