// Package book implements one side of an order book: an ordered
// sequence of resting limit orders with price-time priority.
package book

import (
	"fmt"

	"github.com/jmlee-dev/godex/pkg/dex/asset"
)

// Book holds the resting orders for one (ticker, side) pair.
//
// Ordering invariant, maintained by Insert and never violated between
// calls:
//
//	Buy  side: prices non-increasing head to tail
//	Sell side: prices non-decreasing head to tail
//
// Orders with equal price stay in ascending ID order (earlier
// submissions first), which Insert guarantees by only displacing
// entries the new order strictly outranks. The head is always the
// highest-priority order. The book is not safe for concurrent use;
// the engine serializes access.
type Book struct {
	ticker asset.Ticker
	side   Side
	orders []*Order
}

// New creates an empty book for the given ticker and side.
func New(ticker asset.Ticker, side Side) *Book {
	return &Book{ticker: ticker, side: side}
}

// Ticker returns the ticker this book belongs to.
func (b *Book) Ticker() asset.Ticker { return b.ticker }

// Side returns which side of the market this book holds.
func (b *Book) Side() Side { return b.side }

// Len returns the number of resting orders.
func (b *Book) Len() int { return len(b.orders) }

// outranks reports whether an incoming order at price p must sit ahead
// of an existing resting order at price q. Equal prices never outrank,
// which preserves submission order among same-priced orders.
func (b *Book) outranks(p, q int64) bool {
	if b.side == Buy {
		return p > q
	}
	return p < q
}

// Insert places o at the position preserving the ordering invariant:
// a scan from the head finds the first resting order the newcomer
// strictly outranks, and the newcomer goes just before it. If no such
// order exists it is appended.
func (b *Book) Insert(o *Order) error {
	if o.Side != b.side {
		return fmt.Errorf("insert %s order into %s book", o.Side, b.side)
	}
	if o.Ticker != b.ticker {
		return fmt.Errorf("insert %s order into %s book", o.Ticker, b.ticker)
	}

	at := len(b.orders)
	for i, resting := range b.orders {
		if b.outranks(o.Price, resting.Price) {
			at = i
			break
		}
	}

	b.orders = append(b.orders, nil)
	copy(b.orders[at+1:], b.orders[at:])
	b.orders[at] = o
	return nil
}

// Head returns the highest-priority resting order, or nil if empty.
func (b *Book) Head() *Order {
	if len(b.orders) == 0 {
		return nil
	}
	return b.orders[0]
}

// RemoveHead erases the head order, preserving the relative order of
// the remaining entries.
func (b *Book) RemoveHead() {
	if len(b.orders) == 0 {
		return
	}
	copy(b.orders, b.orders[1:])
	b.orders[len(b.orders)-1] = nil
	b.orders = b.orders[:len(b.orders)-1]
}

// Snapshot returns a copy of the book in priority order. The copy is
// detached: later mutations of the book or its orders are not visible
// through it.
func (b *Book) Snapshot() []Order {
	out := make([]Order, len(b.orders))
	for i, o := range b.orders {
		out[i] = *o
	}
	return out
}

// Validate checks the ordering invariant and that no fully-filled
// order is still resting. Used by tests and on startup restore.
func (b *Book) Validate() error {
	for i, o := range b.orders {
		if o.Filled >= o.Amount {
			return fmt.Errorf("order %d resting fully filled (%d/%d)", o.ID, o.Filled, o.Amount)
		}
		if i == 0 {
			continue
		}
		prev := b.orders[i-1]
		if b.outranks(o.Price, prev.Price) {
			return fmt.Errorf("%s book out of order at index %d: %d after %d",
				b.side, i, o.Price, prev.Price)
		}
		if o.Price == prev.Price && o.ID < prev.ID {
			return fmt.Errorf("%s book time priority violated at index %d: id %d after %d",
				b.side, i, o.ID, prev.ID)
		}
	}
	return nil
}
