package asset

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotOwner is returned when a non-owner account tries to list a token.
	ErrNotOwner = errors.New("caller is not the registry owner")
	// ErrAlreadyListed is returned when a ticker is registered twice.
	ErrAlreadyListed = errors.New("ticker already listed")
	// ErrReservedTicker is returned when someone tries to list the base asset.
	ErrReservedTicker = errors.New("ticker is reserved for the base asset")
)

// Registry manages the set of listed tokens in a thread-safe manner.
// The base asset ticker is reserved at construction and can never be
// listed as a token; every other ticker must be registered by the
// owner before orders for it are accepted.
type Registry struct {
	mu     sync.RWMutex
	owner  common.Address
	base   Ticker
	tokens map[Ticker]Token
}

// NewRegistry creates a registry owned by owner with the given base
// asset ticker reserved.
func NewRegistry(owner common.Address, base Ticker) *Registry {
	return &Registry{
		owner:  owner,
		base:   base,
		tokens: make(map[Ticker]Token),
	}
}

// Base returns the reserved base asset ticker.
func (r *Registry) Base() Ticker {
	return r.base
}

// Owner returns the account allowed to list tokens.
func (r *Registry) Owner() common.Address {
	return r.owner
}

// Register lists a new token. Only the owner may call it; the base
// ticker and already-listed tickers are rejected.
func (r *Registry) Register(caller common.Address, ticker Ticker, contract common.Address) error {
	if caller != r.owner {
		return fmt.Errorf("register %s: %w", ticker, ErrNotOwner)
	}
	if ticker == "" {
		return fmt.Errorf("register: empty ticker")
	}
	if ticker == r.base {
		return fmt.Errorf("register %s: %w", ticker, ErrReservedTicker)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[ticker]; exists {
		return fmt.Errorf("register %s: %w", ticker, ErrAlreadyListed)
	}

	r.tokens[ticker] = Token{
		Ticker:   ticker,
		Contract: contract,
		ListedAt: time.Now().UnixMilli(),
	}
	return nil
}

// Exists reports whether ticker is a listed token. The base asset is
// not a token and always reports false.
func (r *Registry) Exists(ticker Ticker) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tokens[ticker]
	return exists
}

// Get returns the listed token for ticker.
func (r *Registry) Get(ticker Ticker) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tok, ok := r.tokens[ticker]
	return tok, ok
}

// List returns all listed tokens sorted by ticker.
func (r *Registry) List() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]Token, 0, len(r.tokens))
	for _, tok := range r.tokens {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Ticker < tokens[j].Ticker
	})
	return tokens
}

// Count returns the number of listed tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
