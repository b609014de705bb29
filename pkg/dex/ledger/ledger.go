// Package ledger implements the custodial balance ledger: one
// non-negative integer quantity per (account, ticker) pair.
//
// The ledger is the single owner of balance state. The matching engine
// mutates it through Credit/Debit during settlement, and the custody
// layer (deposits and withdrawals whose external transfers have already
// been verified) calls the same primitives directly.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jmlee-dev/godex/pkg/dex/asset"
)

var (
	// ErrInsufficientBalance is returned by Debit when the requested
	// amount exceeds the current balance. The balance is left unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNegativeAmount is returned when a credit or debit amount is negative.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// Balance is one ledger entry, used for persistence and snapshots.
type Balance struct {
	Trader common.Address `json:"trader"`
	Ticker asset.Ticker   `json:"ticker"`
	Qty    int64          `json:"qty"`
}

// Store persists ledger entries. Implemented by pkg/storage.
type Store interface {
	SaveBalance(b Balance) error
	LoadBalances() ([]Balance, error)
}

// Ledger holds all custodial balances in memory and writes every
// mutation through to the store. A nil store keeps the ledger purely
// in memory.
type Ledger struct {
	mu       sync.RWMutex
	balances map[common.Address]map[asset.Ticker]int64
	store    Store
}

// New creates a ledger, reloading any persisted balances from store.
func New(store Store) (*Ledger, error) {
	l := &Ledger{
		balances: make(map[common.Address]map[asset.Ticker]int64),
		store:    store,
	}

	if store != nil {
		entries, err := store.LoadBalances()
		if err != nil {
			return nil, fmt.Errorf("load balances: %w", err)
		}
		for _, b := range entries {
			l.set(b.Trader, b.Ticker, b.Qty)
		}
	}
	return l, nil
}

// set writes a balance into the in-memory map (lock must be held by
// the caller, or the ledger not yet shared).
func (l *Ledger) set(addr common.Address, ticker asset.Ticker, qty int64) {
	byTicker, ok := l.balances[addr]
	if !ok {
		byTicker = make(map[asset.Ticker]int64)
		l.balances[addr] = byTicker
	}
	byTicker[ticker] = qty
}

// Credit increases the (addr, ticker) balance by qty.
func (l *Ledger) Credit(addr common.Address, ticker asset.Ticker, qty int64) error {
	if qty < 0 {
		return fmt.Errorf("credit %d %s: %w", qty, ticker, ErrNegativeAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.balances[addr][ticker] + qty
	l.set(addr, ticker, next)
	return l.persist(addr, ticker, next)
}

// Debit decreases the (addr, ticker) balance by qty. It fails with
// ErrInsufficientBalance if qty exceeds the current balance; a negative
// balance can never result.
func (l *Ledger) Debit(addr common.Address, ticker asset.Ticker, qty int64) error {
	if qty < 0 {
		return fmt.Errorf("debit %d %s: %w", qty, ticker, ErrNegativeAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.balances[addr][ticker]
	if qty > cur {
		return fmt.Errorf("debit %d %s from %s (have %d): %w",
			qty, ticker, addr.Hex(), cur, ErrInsufficientBalance)
	}

	next := cur - qty
	l.set(addr, ticker, next)
	return l.persist(addr, ticker, next)
}

// BalanceOf returns the current (addr, ticker) balance. Pure read.
func (l *Ledger) BalanceOf(addr common.Address, ticker asset.Ticker) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr][ticker]
}

// Balances returns a snapshot of all non-zero balances held by addr.
func (l *Ledger) Balances(addr common.Address) []Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Balance, 0, len(l.balances[addr]))
	for ticker, qty := range l.balances[addr] {
		if qty == 0 {
			continue
		}
		out = append(out, Balance{Trader: addr, Ticker: ticker, Qty: qty})
	}
	return out
}

// persist writes one entry through to the store (lock held by caller).
func (l *Ledger) persist(addr common.Address, ticker asset.Ticker, qty int64) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.SaveBalance(Balance{Trader: addr, Ticker: ticker, Qty: qty}); err != nil {
		return fmt.Errorf("persist balance %s/%s: %w", addr.Hex(), ticker, err)
	}
	return nil
}
