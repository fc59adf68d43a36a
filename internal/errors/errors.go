// Package errors provides categorized errors for the trading engine.
// The category decides how a failure propagates: configuration errors abort
// the process before any network call, everything else is handled at
// per-position granularity.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryConfig represents configuration errors (fatal, pre-network)
	CategoryConfig ErrorCategory = "config"
	// CategoryQuote represents quote unavailability (skip token for the cycle)
	CategoryQuote ErrorCategory = "quote"
	// CategoryVenue represents venue resolution errors (fatal for the trade)
	CategoryVenue ErrorCategory = "venue"
	// CategoryExecution represents failed trade transactions
	CategoryExecution ErrorCategory = "execution"
	// CategoryPersistence represents position-store failures
	CategoryPersistence ErrorCategory = "persistence"
	// CategoryProvider represents RPC / market API transport errors
	CategoryProvider ErrorCategory = "provider"
)

// TradeError represents an error with category and structured context
type TradeError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error implements the error interface
func (e *TradeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *TradeError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a fatal configuration error
func NewConfigError(field string, reason string) *TradeError {
	return &TradeError{
		Category: CategoryConfig,
		Code:     "CONFIG_ERROR",
		Message:  fmt.Sprintf("invalid configuration '%s': %s", field, reason),
		Details: map[string]interface{}{
			"field":  field,
			"reason": reason,
		},
	}
}

// NewInvalidAddressError creates an invalid address error
func NewInvalidAddressError(address string) *TradeError {
	return &TradeError{
		Category: CategoryConfig,
		Code:     "INVALID_ADDRESS",
		Message:  fmt.Sprintf("invalid address format: %s", address),
		Details: map[string]interface{}{
			"address": address,
		},
	}
}

// NewUnknownVenueError creates an error for a quote whose router matches
// neither configured venue. The caller must not proceed with the trade.
func NewUnknownVenueError(router string) *TradeError {
	return &TradeError{
		Category: CategoryVenue,
		Code:     "UNKNOWN_VENUE",
		Message:  fmt.Sprintf("quote router %s matches neither bonding-curve nor dex router", router),
		Details: map[string]interface{}{
			"router": router,
		},
	}
}

// NewQuoteUnavailableError marks a token as unpriceable for this cycle:
// both the on-chain quote and the market API fallback failed.
func NewQuoteUnavailableError(token string, onchainErr, apiErr error) *TradeError {
	return &TradeError{
		Category: CategoryQuote,
		Code:     "QUOTE_UNAVAILABLE",
		Message:  fmt.Sprintf("token %s is unpriceable: on-chain quote and api fallback both failed", token),
		Cause:    onchainErr,
		Details: map[string]interface{}{
			"token":    token,
			"apiError": fmt.Sprint(apiErr),
		},
	}
}

// NewExecutionFailedError creates an error for a reverted or rejected trade
func NewExecutionFailedError(action string, token string, cause error) *TradeError {
	return &TradeError{
		Category: CategoryExecution,
		Code:     "EXECUTION_FAILED",
		Message:  fmt.Sprintf("%s failed for token %s", action, token),
		Cause:    cause,
		Details: map[string]interface{}{
			"action": action,
			"token":  token,
		},
	}
}

// NewStoreError creates a position-store persistence error
func NewStoreError(operation string, cause error) *TradeError {
	return &TradeError{
		Category: CategoryPersistence,
		Code:     "STORE_ERROR",
		Message:  fmt.Sprintf("position store error during %s", operation),
		Cause:    cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewProviderError creates an RPC / market API transport error
func NewProviderError(provider string, cause error) *TradeError {
	return &TradeError{
		Category: CategoryProvider,
		Code:     "PROVIDER_ERROR",
		Message:  fmt.Sprintf("provider error: %s", provider),
		Cause:    cause,
		Details: map[string]interface{}{
			"provider": provider,
		},
	}
}

// Categorize wraps an arbitrary error as a TradeError, passing through
// errors that already carry a category.
func Categorize(err error) *TradeError {
	if err == nil {
		return nil
	}
	var te *TradeError
	if errors.As(err, &te) {
		return te
	}
	return &TradeError{
		Category: CategoryProvider,
		Code:     "UNEXPECTED_ERROR",
		Message:  "unexpected error",
		Cause:    err,
	}
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, category ErrorCategory) bool {
	te := Categorize(err)
	return te != nil && te.Category == category
}

// IsFatal reports whether err must abort the process (configuration errors
// only; everything else is retried or skipped at per-position granularity).
func IsFatal(err error) bool {
	return IsCategory(err, CategoryConfig)
}

// IsUnpriceable reports whether err means the token could not be priced
// this cycle and should be skipped without a trade decision.
func IsUnpriceable(err error) bool {
	return IsCategory(err, CategoryQuote)
}

// IsRetryable determines if an error is worth retrying at the transport level
func IsRetryable(err error) bool {
	te := Categorize(err)
	if te == nil {
		return false
	}
	return te.Category == CategoryProvider
}
