// Package engine implements order entry and matching for the exchange:
// price-time-priority books per (ticker, side) and the market-order
// walk that settles fills against the balance ledger.
package engine

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmlee-dev/godex/pkg/dex/asset"
	"github.com/jmlee-dev/godex/pkg/dex/book"
	"github.com/jmlee-dev/godex/pkg/dex/ledger"
	"github.com/jmlee-dev/godex/pkg/util"
)

// Trade is one completed fill between a taker and a resting maker.
type Trade struct {
	ID           string         `json:"id"`
	Ticker       asset.Ticker   `json:"ticker"`
	Price        int64          `json:"price"` // maker's price (price-taker convention)
	Qty          int64          `json:"qty"`
	TakerSide    book.Side      `json:"takerSide"`
	TakerOrderID uint64         `json:"takerOrderId"`
	MakerOrderID uint64         `json:"makerOrderId"`
	Taker        common.Address `json:"taker"`
	Maker        common.Address `json:"maker"`
	Timestamp    int64          `json:"timestamp"` // Unix milliseconds
}

// MarketOrder is the transient record of a market order. Market orders
// never rest in a book; the engine keeps the most recent one per
// (ticker, side) as a read convenience only.
type MarketOrder struct {
	ID        uint64         `json:"id"`
	Trader    common.Address `json:"trader"`
	Ticker    asset.Ticker   `json:"ticker"`
	Side      book.Side      `json:"side"`
	Amount    int64          `json:"amount"`
	Filled    int64          `json:"filled"`
	Timestamp int64          `json:"timestamp"`
}

// Store persists engine state. Implemented by pkg/storage.
type Store interface {
	// SaveOrder upserts a resting order.
	SaveOrder(o book.Order) error
	// ApplyFill atomically records a fill: the maker-order update (or
	// its deletion when makerDone) together with the trade.
	ApplyFill(maker book.Order, makerDone bool, t Trade) error
	// LoadOrders returns all resting orders, per book in ascending ID order.
	LoadOrders() ([]book.Order, error)
	SaveOrderSeq(seq uint64) error
	// LoadOrderSeq returns the persisted sequence; found is false on a
	// fresh store.
	LoadOrderSeq() (seq uint64, found bool, err error)
}

// WAL records order-entry events as append-only lines.
type WAL interface {
	Append(line string)
}

type sideBooks struct {
	buys  *book.Book
	sells *book.Book
	// most recent market order per side (Buy, Sell)
	lastMarket [2]*MarketOrder
}

func (tb *sideBooks) book(s book.Side) *book.Book {
	if s == book.Buy {
		return tb.buys
	}
	return tb.sells
}

// Engine matches orders against the books and settles through the
// ledger.
//
// Every order-entry call runs under one engine-wide mutex: books for
// all tickers and every ledger leg of a match are mutated inside the
// same critical section, so calls are fully serialized and no partial
// match state is ever observable. Per-ticker locking would not be
// equivalent here because all tickers settle against the shared base
// asset balances.
type Engine struct {
	log    *zap.SugaredLogger
	clock  util.Clock
	tokens *asset.Registry
	ledger *ledger.Ledger
	store  Store
	wal    WAL

	mu    sync.Mutex
	books map[asset.Ticker]*sideBooks
	seq   uint64 // last assigned order ID

	// OnTrade, when set, is invoked synchronously for every fill.
	OnTrade func(Trade)
}

// New creates an engine and restores persisted resting orders and the
// order ID sequence from store. A nil store disables persistence and a
// nil wal disables event logging.
func New(tokens *asset.Registry, led *ledger.Ledger, store Store, wal WAL, log *zap.SugaredLogger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	e := &Engine{
		log:    log,
		clock:  util.RealClock{},
		tokens: tokens,
		ledger: led,
		store:  store,
		wal:    wal,
		books:  make(map[asset.Ticker]*sideBooks),
	}

	if store == nil {
		return e, nil
	}

	seq, found, err := store.LoadOrderSeq()
	if err != nil {
		return nil, fmt.Errorf("restore order seq: %w", err)
	}
	if found {
		e.seq = seq
	}

	orders, err := store.LoadOrders()
	if err != nil {
		return nil, fmt.Errorf("restore orders: %w", err)
	}
	for i := range orders {
		o := orders[i]
		if err := e.booksFor(o.Ticker).book(o.Side).Insert(&o); err != nil {
			return nil, fmt.Errorf("restore order %d: %w", o.ID, err)
		}
		if o.ID > e.seq {
			e.seq = o.ID
		}
	}
	for ticker, tb := range e.books {
		if err := tb.buys.Validate(); err != nil {
			return nil, fmt.Errorf("restored %s buy book: %w", ticker, err)
		}
		if err := tb.sells.Validate(); err != nil {
			return nil, fmt.Errorf("restored %s sell book: %w", ticker, err)
		}
	}
	if len(orders) > 0 {
		log.Infow("orders_restored", "count", len(orders), "next_id", e.seq+1)
	}
	return e, nil
}

// SetClock replaces the engine clock. Tests use this to get
// deterministic timestamps.
func (e *Engine) SetClock(c util.Clock) {
	e.clock = c
}

// booksFor returns the book pair for ticker, creating it on first use
// (mutex held by caller or engine not yet shared).
func (e *Engine) booksFor(ticker asset.Ticker) *sideBooks {
	tb, ok := e.books[ticker]
	if !ok {
		tb = &sideBooks{
			buys:  book.New(ticker, book.Buy),
			sells: book.New(ticker, book.Sell),
		}
		e.books[ticker] = tb
	}
	return tb
}

// PlaceLimitOrder validates funding for the requested side, assigns the
// next order ID, and inserts the order at its price-time position.
//
// Limit orders only rest: a marketable limit order that crosses the
// opposite book is still inserted as-is and consumed by later flow.
// The balance check happens at submission only; nothing is escrowed
// while the order rests.
func (e *Engine) PlaceLimitOrder(trader common.Address, ticker asset.Ticker, side book.Side, amount, price int64) (uint64, error) {
	if amount <= 0 || price <= 0 {
		return 0, fmt.Errorf("limit %s %s amount=%d price=%d: %w",
			side, ticker, amount, price, ErrInvalidArgument)
	}
	if !e.tokens.Exists(ticker) {
		return 0, fmt.Errorf("limit %s %s: %w", side, ticker, ErrUnknownToken)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	base := e.tokens.Base()
	if side == book.Buy {
		if need := amount * price; e.ledger.BalanceOf(trader, base) < need {
			return 0, fmt.Errorf("limit buy %s needs %d %s: %w",
				ticker, need, base, ErrInsufficientFunds)
		}
	} else {
		if e.ledger.BalanceOf(trader, ticker) < amount {
			return 0, fmt.Errorf("limit sell needs %d %s: %w",
				amount, ticker, ErrInsufficientFunds)
		}
	}

	e.seq++
	o := &book.Order{
		ID:        e.seq,
		Trader:    trader,
		Ticker:    ticker,
		Side:      side,
		Amount:    amount,
		Price:     price,
		CreatedAt: e.clock.Now().UnixMilli(),
	}
	if err := e.booksFor(ticker).book(side).Insert(o); err != nil {
		return 0, err
	}

	if e.store != nil {
		if err := e.store.SaveOrder(*o); err != nil {
			return o.ID, fmt.Errorf("persist order %d: %w", o.ID, err)
		}
		if err := e.store.SaveOrderSeq(e.seq); err != nil {
			return o.ID, fmt.Errorf("persist order seq: %w", err)
		}
	}
	e.walAppend(fmt.Sprintf("limit %s %s %s %d@%d id=%d",
		ticker, side, trader.Hex(), amount, price, o.ID))
	e.log.Infow("limit_order_placed",
		"id", o.ID, "ticker", ticker, "side", side.String(),
		"trader", trader.Hex(), "amount", amount, "price", price)
	return o.ID, nil
}

// PlaceMarketOrder walks the opposite book head-first, settling each
// fill at the resting order's price, until amount is exhausted or the
// book runs dry. An empty book is not an error: the order just fills
// zero.
//
// Solvency is checked per fill, not upfront: resting orders are not
// escrowed, so either leg can run out of funds mid-walk. The first
// unsatisfiable fill stops the walk with ErrInsufficientFunds, leaving
// every fill settled before it committed. The returned quantity is
// what actually filled in either case; market orders never rest.
func (e *Engine) PlaceMarketOrder(trader common.Address, ticker asset.Ticker, side book.Side, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("market %s %s amount=%d: %w",
			side, ticker, amount, ErrInvalidArgument)
	}
	if !e.tokens.Exists(ticker) {
		return 0, fmt.Errorf("market %s %s: %w", side, ticker, ErrUnknownToken)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	mo := &MarketOrder{
		ID:        e.seq,
		Trader:    trader,
		Ticker:    ticker,
		Side:      side,
		Amount:    amount,
		Timestamp: e.clock.Now().UnixMilli(),
	}

	tb := e.booksFor(ticker)
	opp := tb.book(side.Opposite())
	base := e.tokens.Base()

	var walkErr error
	for mo.Filled < amount && opp.Len() > 0 {
		resting := opp.Head()
		qty := min(amount-mo.Filled, resting.Remaining())
		cost := qty * resting.Price

		buyer, seller := trader, resting.Trader
		if side == book.Sell {
			buyer, seller = resting.Trader, trader
		}

		// Both debit legs must clear before anything about this fill is
		// applied; a fill either settles completely or not at all.
		if e.ledger.BalanceOf(buyer, base) < cost || e.ledger.BalanceOf(seller, ticker) < qty {
			walkErr = fmt.Errorf("market %s %s fill %d@%d (maker %d): %w",
				side, ticker, qty, resting.Price, resting.ID, ErrInsufficientFunds)
			break
		}

		if err := e.settle(buyer, seller, ticker, base, qty, cost); err != nil {
			// Unreachable after the pre-check under the engine lock.
			return mo.Filled, fmt.Errorf("settle fill against order %d: %w", resting.ID, err)
		}

		resting.Filled += qty
		mo.Filled += qty

		trade := Trade{
			ID:           uuid.NewString(),
			Ticker:       ticker,
			Price:        resting.Price,
			Qty:          qty,
			TakerSide:    side,
			TakerOrderID: mo.ID,
			MakerOrderID: resting.ID,
			Taker:        trader,
			Maker:        resting.Trader,
			Timestamp:    e.clock.Now().UnixMilli(),
		}

		makerDone := resting.Filled == resting.Amount
		if makerDone {
			opp.RemoveHead()
		}
		if e.store != nil {
			if err := e.store.ApplyFill(*resting, makerDone, trade); err != nil {
				return mo.Filled, fmt.Errorf("persist fill: %w", err)
			}
		}
		if e.OnTrade != nil {
			e.OnTrade(trade)
		}
	}

	tb.lastMarket[side] = mo
	if e.store != nil {
		if err := e.store.SaveOrderSeq(e.seq); err != nil && walkErr == nil {
			walkErr = fmt.Errorf("persist order seq: %w", err)
		}
	}
	e.walAppend(fmt.Sprintf("market %s %s %s %d filled=%d id=%d",
		ticker, side, trader.Hex(), amount, mo.Filled, mo.ID))
	e.log.Infow("market_order_done",
		"id", mo.ID, "ticker", ticker, "side", side.String(),
		"trader", trader.Hex(), "amount", amount, "filled", mo.Filled,
		"aborted", walkErr != nil)
	return mo.Filled, walkErr
}

// settle moves both legs of one fill through the ledger: cost of base
// asset from buyer to seller, qty of token from seller to buyer.
func (e *Engine) settle(buyer, seller common.Address, ticker, base asset.Ticker, qty, cost int64) error {
	if err := e.ledger.Debit(buyer, base, cost); err != nil {
		return err
	}
	if err := e.ledger.Credit(seller, base, cost); err != nil {
		return err
	}
	if err := e.ledger.Debit(seller, ticker, qty); err != nil {
		return err
	}
	return e.ledger.Credit(buyer, ticker, qty)
}

// OrderBook returns a snapshot of the (ticker, side) book in priority
// order: best price first, submission order within a price. The
// snapshot is detached from later engine mutations.
func (e *Engine) OrderBook(ticker asset.Ticker, side book.Side) []book.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	tb, ok := e.books[ticker]
	if !ok {
		return []book.Order{}
	}
	return tb.book(side).Snapshot()
}

// LastMarketOrder returns the most recent market order submitted for
// (ticker, side), if any.
func (e *Engine) LastMarketOrder(ticker asset.Ticker, side book.Side) (MarketOrder, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tb, ok := e.books[ticker]
	if !ok || tb.lastMarket[side] == nil {
		return MarketOrder{}, false
	}
	return *tb.lastMarket[side], true
}

func (e *Engine) walAppend(line string) {
	if e.wal != nil {
		e.wal.Append(line)
	}
}

func min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
