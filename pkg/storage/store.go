// Package storage provides Pebble-backed persistence for exchange
// state: custodial balances, resting orders, trade history, and the
// order ID sequence.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/jmlee-dev/godex/pkg/dex/asset"
	"github.com/jmlee-dev/godex/pkg/dex/book"
	"github.com/jmlee-dev/godex/pkg/dex/engine"
	"github.com/jmlee-dev/godex/pkg/dex/ledger"
)

// Store wraps a Pebble database. It implements ledger.Store and
// engine.Store; callers share one Store across both.
type Store struct {
	db *pebble.DB
}

var (
	_ ledger.Store = (*Store)(nil)
	_ engine.Store = (*Store)(nil)
)

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBalance upserts one ledger entry.
func (s *Store) SaveBalance(b ledger.Balance) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal balance: %w", err)
	}
	if err := s.db.Set(balanceKey(b.Trader, b.Ticker), data, pebble.Sync); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

// LoadBalances returns every persisted ledger entry.
func (s *Store) LoadBalances() ([]ledger.Balance, error) {
	prefix := []byte(prefixBalance)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	defer iter.Close()

	var out []ledger.Balance
	for iter.First(); iter.Valid(); iter.Next() {
		var b ledger.Balance
		if err := json.Unmarshal(iter.Value(), &b); err != nil {
			return nil, fmt.Errorf("unmarshal balance %q: %w", iter.Key(), err)
		}
		out = append(out, b)
	}
	return out, nil
}

// SaveOrder upserts a resting order.
func (s *Store) SaveOrder(o book.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	if err := s.db.Set(orderKey(o.Ticker, o.Side, o.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("save order %d: %w", o.ID, err)
	}
	return nil
}

// ApplyFill writes the maker-order update (or deletion) and the trade
// in one atomic batch, so a crash between the two cannot leave a fill
// half-recorded.
func (s *Store) ApplyFill(maker book.Order, makerDone bool, t engine.Trade) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	if makerDone {
		if err := batch.Delete(orderKey(maker.Ticker, maker.Side, maker.ID), nil); err != nil {
			return fmt.Errorf("batch delete order %d: %w", maker.ID, err)
		}
	} else {
		data, err := json.Marshal(maker)
		if err != nil {
			return fmt.Errorf("marshal order: %w", err)
		}
		if err := batch.Set(orderKey(maker.Ticker, maker.Side, maker.ID), data, nil); err != nil {
			return fmt.Errorf("batch set order %d: %w", maker.ID, err)
		}
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}
	if err := batch.Set(tradeKey(t.Ticker, t.Timestamp, t.ID), data, nil); err != nil {
		return fmt.Errorf("batch set trade: %w", err)
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit fill: %w", err)
	}
	return nil
}

// LoadOrders returns all resting orders. Within one (ticker, side)
// book the zero-padded key suffix yields ascending ID order, which is
// what the engine needs to rebuild price-time priority by re-insertion.
func (s *Store) LoadOrders() ([]book.Order, error) {
	prefix := []byte(prefixOrder)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	defer iter.Close()

	var out []book.Order
	for iter.First(); iter.Valid(); iter.Next() {
		var o book.Order
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			return nil, fmt.Errorf("unmarshal order %q: %w", iter.Key(), err)
		}
		out = append(out, o)
	}
	return out, nil
}

// SaveOrderSeq persists the last assigned order ID.
func (s *Store) SaveOrderSeq(seq uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := s.db.Set([]byte(keyOrderSeq), buf[:], pebble.Sync); err != nil {
		return fmt.Errorf("save order seq: %w", err)
	}
	return nil
}

// LoadOrderSeq returns the persisted order ID sequence; found is false
// on a fresh store.
func (s *Store) LoadOrderSeq() (uint64, bool, error) {
	val, closer, err := s.db.Get([]byte(keyOrderSeq))
	if err == pebble.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load order seq: %w", err)
	}
	defer closer.Close()

	if len(val) != 8 {
		return 0, false, fmt.Errorf("load order seq: corrupt value of %d bytes", len(val))
	}
	return binary.BigEndian.Uint64(val), true, nil
}

// LoadRecentTrades returns the most recent trades for ticker, newest
// first, at most limit entries.
func (s *Store) LoadRecentTrades(ticker asset.Ticker, limit int) ([]engine.Trade, error) {
	prefix := tradePrefix(ticker)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	defer iter.Close()

	var out []engine.Trade
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var t engine.Trade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, fmt.Errorf("unmarshal trade %q: %w", iter.Key(), err)
		}
		out = append(out, t)
	}
	return out, nil
}
