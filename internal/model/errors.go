package model

import "errors"

var (
	// ErrProviderUnavailable covers network failures, timeouts and 5xx responses.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrRateLimited is returned when a provider throttles us and no
	// credential is left to rotate to.
	ErrRateLimited = errors.New("rate limited")
	// ErrInsufficientData means the candle window is shorter than the
	// largest indicator period or a required value is undefined.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMalformedResponse is returned when a provider payload cannot be parsed.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrLedgerInvariant signals a broken stats invariant.
	ErrLedgerInvariant = errors.New("ledger invariant violated")
)
