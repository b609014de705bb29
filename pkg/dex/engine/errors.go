package engine

import "errors"

// Order entry error taxonomy. All errors are synchronous; Unauthorized
// and InvalidArgument reject the call with no book or ledger mutation.
// InsufficientFunds during a market-order walk leaves earlier fills
// committed (see PlaceMarketOrder).
var (
	// ErrUnknownToken rejects orders for tickers that are not listed
	// (including the base asset ticker itself).
	ErrUnknownToken = errors.New("token not listed")
	// ErrInvalidArgument rejects zero or negative amounts and prices.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientFunds rejects an order whose balance precondition
	// fails: at submission for limit orders, at settlement of an
	// individual fill for market orders.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
