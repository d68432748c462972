// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrFeedUnavailable  = errors.New("feed unavailable")
	ErrNoData           = errors.New("no data")
	ErrMissingExpiry    = errors.New("missing expiry")
	ErrInvalidTimeframe = errors.New("invalid timeframe")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrConfigInvalid    = errors.New("invalid configuration")
)

// DataError represents a storage-layer error for a symbol.
type DataError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *DataError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("data error [%s] %s: %v", e.Op, e.Symbol, e.Err)
	}
	return fmt.Sprintf("data error [%s]: %v", e.Op, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(op, symbol string, err error) *DataError {
	return &DataError{Op: op, Symbol: symbol, Err: err}
}

// FeedError represents an error from the external quote source.
type FeedError struct {
	Endpoint string
	Symbol   string
	Err      error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed error [%s] %s: %v", e.Endpoint, e.Symbol, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError creates a new FeedError.
func NewFeedError(endpoint, symbol string, err error) *FeedError {
	return &FeedError{Endpoint: endpoint, Symbol: symbol, Err: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
