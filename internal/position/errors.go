package position

import "errors"

var (
	// ErrInvalidTrade rejects trades with non-positive price or volume.
	// No ledger effect happens on rejection.
	ErrInvalidTrade = errors.New("invalid trade: price and volume must be positive")
	// ErrInsufficientPosition rejects closing or selling more than held.
	// State is left untouched; the excess is never silently under-closed.
	ErrInsufficientPosition = errors.New("insufficient position")
)
