package book

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/jmlee-dev/godex/pkg/dex/asset"
)

// Side is the direction of an order.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the side a taker order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// ParseSide converts the wire representation ("buy"/"sell") to a Side.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "buy":
		return Buy, true
	case "sell":
		return Sell, true
	default:
		return 0, false
	}
}

// Order is a resting limit order.
//
// ID is assigned by the engine from a single monotonically increasing
// sequence, so ascending ID is submission order across the whole
// system. Amount is fixed at creation; only Filled is mutated, by the
// matching routine, and the order leaves its book exactly when
// Filled == Amount.
type Order struct {
	ID        uint64         `json:"id"`
	Trader    common.Address `json:"trader"`
	Ticker    asset.Ticker   `json:"ticker"`
	Side      Side           `json:"side"`
	Amount    int64          `json:"amount"`
	Filled    int64          `json:"filled"`
	Price     int64          `json:"price"` // base asset per token unit
	CreatedAt int64          `json:"createdAt"`
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Amount - o.Filled
}
