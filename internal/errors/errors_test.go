package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      *TradeError
		category ErrorCategory
	}{
		{"config", NewConfigError("SLIPPAGE_BPS", "out of range"), CategoryConfig},
		{"invalid address", NewInvalidAddressError("0xnope"), CategoryConfig},
		{"unknown venue", NewUnknownVenueError("0xabc"), CategoryVenue},
		{"quote unavailable", NewQuoteUnavailableError("0xabc", fmt.Errorf("revert"), fmt.Errorf("404")), CategoryQuote},
		{"execution", NewExecutionFailedError("sell", "0xabc", fmt.Errorf("reverted")), CategoryExecution},
		{"store", NewStoreError("save", fmt.Errorf("disk full")), CategoryPersistence},
		{"provider", NewProviderError("rpc", fmt.Errorf("timeout")), CategoryProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("category = %s, want %s", tt.err.Category, tt.category)
			}
			if !IsCategory(tt.err, tt.category) {
				t.Error("IsCategory should match through the error value")
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(NewConfigError("KEY", "missing")) {
		t.Error("config errors are fatal")
	}
	if IsFatal(NewExecutionFailedError("buy", "0xabc", nil)) {
		t.Error("execution errors are not fatal")
	}
}

func TestIsUnpriceable(t *testing.T) {
	err := NewQuoteUnavailableError("0xabc", fmt.Errorf("revert"), fmt.Errorf("no price"))
	if !IsUnpriceable(err) {
		t.Error("quote unavailability must be unpriceable")
	}
	// Categorization survives wrapping.
	wrapped := fmt.Errorf("evaluating: %w", err)
	if !IsUnpriceable(wrapped) {
		t.Error("categorization must survive wrapping")
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewProviderError("rpc", cause)
	if !stderrors.Is(err, cause) {
		t.Error("cause must be reachable through Unwrap")
	}
}

func TestCategorizePassthrough(t *testing.T) {
	original := NewStoreError("load", fmt.Errorf("corrupt"))
	got := Categorize(fmt.Errorf("wrapped: %w", original))
	if got.Category != CategoryPersistence {
		t.Errorf("category = %s, want %s", got.Category, CategoryPersistence)
	}

	plain := Categorize(fmt.Errorf("plain"))
	if plain.Category != CategoryProvider {
		t.Errorf("uncategorized errors default to provider, got %s", plain.Category)
	}

	if Categorize(nil) != nil {
		t.Error("Categorize(nil) must be nil")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewProviderError("api", fmt.Errorf("503"))) {
		t.Error("provider errors are retryable")
	}
	if IsRetryable(NewUnknownVenueError("0xabc")) {
		t.Error("venue errors are not retryable")
	}
}
