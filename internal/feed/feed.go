// Package feed provides access to external market data sources.
package feed

import (
	"context"

	"optionflow/internal/models"
)

// QuoteSource serves point-in-time quotes for any instrument symbol,
// including full option contract symbols.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string, exchange models.Exchange) (*models.Quote, error)
}

// ExpirySource lists option expiry dates for an underlying.
type ExpirySource interface {
	// ExpiryList returns expiry dates as DD-MMM-YY strings, e.g. 25-DEC-25,
	// sorted nearest first.
	ExpiryList(ctx context.Context, symbol string, exchange models.Exchange) ([]string, error)
}

// Source combines everything the engine needs from a market data vendor.
type Source interface {
	QuoteSource
	ExpirySource
}
