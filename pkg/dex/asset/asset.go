// Package asset defines tradeable asset identifiers and the token
// registry that gates which tickers may be traded on the exchange.
package asset

import (
	"github.com/ethereum/go-ethereum/common"
)

// Ticker is the symbolic identifier of a tradeable asset (e.g. "LINK").
// Comparison is exact-match; no case folding is applied anywhere.
type Ticker string

func (t Ticker) String() string { return string(t) }

// Token is a listed asset: its ticker plus the address of the ERC-20
// contract that backs deposits and withdrawals for it.
type Token struct {
	Ticker   Ticker         `json:"ticker"`
	Contract common.Address `json:"contract"`
	ListedAt int64          `json:"listedAt"` // Unix milliseconds
}
