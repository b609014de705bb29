package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jmlee-dev/godex/pkg/dex/asset"
	"github.com/jmlee-dev/godex/pkg/dex/book"
)

// Pebble key schema. Numeric key components are zero-padded so that
// lexicographic key order matches numeric order:
//
//	bal:<address>:<ticker>          → Balance
//	ord:<ticker>:<side>:<id20>      → resting Order
//	trade:<ticker>:<ts20>:<uuid>    → Trade
//	seq:order                       → last assigned order ID
const (
	prefixBalance = "bal:"
	prefixOrder   = "ord:"
	prefixTrade   = "trade:"
	keyOrderSeq   = "seq:order"
)

func balanceKey(addr common.Address, ticker asset.Ticker) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixBalance, addr.Hex(), ticker))
}

func orderKey(ticker asset.Ticker, side book.Side, id uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%d:%020d", prefixOrder, ticker, side, id))
}

func tradeKey(ticker asset.Ticker, timestamp int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefixTrade, ticker, timestamp, id))
}

func tradePrefix(ticker asset.Ticker) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixTrade, ticker))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
