package storage

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/jmlee-dev/godex/pkg/dex/asset"
	"github.com/jmlee-dev/godex/pkg/dex/book"
	"github.com/jmlee-dev/godex/pkg/dex/engine"
	"github.com/jmlee-dev/godex/pkg/dex/ledger"
)

var (
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBalanceRoundTrip(t *testing.T) {
	s := openTestStore(t)

	entries := []ledger.Balance{
		{Trader: alice, Ticker: "ETH", Qty: 1000},
		{Trader: alice, Ticker: "LINK", Qty: 25},
		{Trader: bob, Ticker: "ETH", Qty: 7},
	}
	for _, b := range entries {
		if err := s.SaveBalance(b); err != nil {
			t.Fatalf("save balance: %v", err)
		}
	}
	// Upsert: a second write for the same key replaces the value.
	if err := s.SaveBalance(ledger.Balance{Trader: bob, Ticker: "ETH", Qty: 12}); err != nil {
		t.Fatalf("save balance: %v", err)
	}

	loaded, err := s.LoadBalances()
	if err != nil {
		t.Fatalf("load balances: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("loaded %d balances, want 3", len(loaded))
	}
	byKey := make(map[string]int64)
	for _, b := range loaded {
		byKey[b.Trader.Hex()+":"+string(b.Ticker)] = b.Qty
	}
	if byKey[bob.Hex()+":ETH"] != 12 {
		t.Errorf("bob ETH = %d, want 12 after upsert", byKey[bob.Hex()+":ETH"])
	}
}

func TestOrdersLoadAscendingPerBook(t *testing.T) {
	s := openTestStore(t)

	// Insert out of numeric order; the zero-padded key must restore
	// ascending IDs within each (ticker, side) book.
	for _, id := range []uint64{42, 3, 100, 7} {
		o := book.Order{
			ID: id, Trader: alice, Ticker: "LINK",
			Side: book.Sell, Amount: 10, Price: int64(id),
		}
		if err := s.SaveOrder(o); err != nil {
			t.Fatalf("save order %d: %v", id, err)
		}
	}

	loaded, err := s.LoadOrders()
	if err != nil {
		t.Fatalf("load orders: %v", err)
	}
	want := []uint64{3, 7, 42, 100}
	if len(loaded) != len(want) {
		t.Fatalf("loaded %d orders, want %d", len(loaded), len(want))
	}
	for i, o := range loaded {
		if o.ID != want[i] {
			t.Fatalf("order ids = %v..., want ascending %v", o.ID, want)
		}
	}
}

func TestOrderSeqRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, found, err := s.LoadOrderSeq(); err != nil || found {
		t.Fatalf("fresh store: found=%v err=%v, want not found", found, err)
	}
	if err := s.SaveOrderSeq(77); err != nil {
		t.Fatalf("save seq: %v", err)
	}
	seq, found, err := s.LoadOrderSeq()
	if err != nil || !found || seq != 77 {
		t.Fatalf("load seq = (%d, %v, %v), want (77, true, nil)", seq, found, err)
	}
}

func TestApplyFill(t *testing.T) {
	s := openTestStore(t)

	maker := book.Order{
		ID: 5, Trader: bob, Ticker: "LINK",
		Side: book.Sell, Amount: 10, Filled: 0, Price: 20,
	}
	if err := s.SaveOrder(maker); err != nil {
		t.Fatalf("save order: %v", err)
	}

	trade := func(qty int64, ts int64) engine.Trade {
		return engine.Trade{
			ID: uuid.NewString(), Ticker: "LINK", Price: 20, Qty: qty,
			TakerSide: book.Buy, TakerOrderID: 6, MakerOrderID: maker.ID,
			Taker: alice, Maker: bob, Timestamp: ts,
		}
	}

	// Partial fill updates the resting order in place.
	maker.Filled = 4
	if err := s.ApplyFill(maker, false, trade(4, 1000)); err != nil {
		t.Fatalf("apply partial fill: %v", err)
	}
	orders, err := s.LoadOrders()
	if err != nil {
		t.Fatalf("load orders: %v", err)
	}
	if len(orders) != 1 || orders[0].Filled != 4 {
		t.Fatalf("orders after partial fill = %+v", orders)
	}

	// Completing fill deletes the order and keeps the trade.
	maker.Filled = 10
	if err := s.ApplyFill(maker, true, trade(6, 2000)); err != nil {
		t.Fatalf("apply final fill: %v", err)
	}
	orders, err = s.LoadOrders()
	if err != nil {
		t.Fatalf("load orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("orders after final fill = %+v, want none", orders)
	}

	trades, err := s.LoadRecentTrades("LINK", 10)
	if err != nil {
		t.Fatalf("load trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("loaded %d trades, want 2", len(trades))
	}
	// Newest first.
	if trades[0].Timestamp != 2000 || trades[1].Timestamp != 1000 {
		t.Errorf("trade order = [%d, %d], want newest first", trades[0].Timestamp, trades[1].Timestamp)
	}

	limited, err := s.LoadRecentTrades("LINK", 1)
	if err != nil {
		t.Fatalf("load trades limit 1: %v", err)
	}
	if len(limited) != 1 || limited[0].Timestamp != 2000 {
		t.Errorf("limited trades = %+v, want single newest", limited)
	}
	if other, _ := s.LoadRecentTrades("UNI", 10); len(other) != 0 {
		t.Errorf("UNI trades = %d, want 0", len(other))
	}
}

// End-to-end restart: balances, resting orders (with partial fills), and
// the order ID sequence all survive a close/reopen.
func TestExchangeStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	owner := common.HexToAddress("0x0000000000000000000000000000000000000001")

	newExchange := func(s *Store) (*engine.Engine, *ledger.Ledger) {
		tokens := asset.NewRegistry(owner, "ETH")
		if err := tokens.Register(owner, "LINK", common.Address{0x51}); err != nil {
			t.Fatalf("register: %v", err)
		}
		led, err := ledger.New(s)
		if err != nil {
			t.Fatalf("new ledger: %v", err)
		}
		eng, err := engine.New(tokens, led, s, nil, nil)
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		return eng, led
	}

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	eng1, led1 := newExchange(s1)
	led1.Credit(alice, "ETH", 1000)
	led1.Credit(bob, "LINK", 100)

	if _, err := eng1.PlaceLimitOrder(bob, "LINK", book.Sell, 10, 20); err != nil {
		t.Fatalf("limit: %v", err)
	}
	lastID, err := eng1.PlaceLimitOrder(bob, "LINK", book.Sell, 5, 30)
	if err != nil {
		t.Fatalf("limit: %v", err)
	}
	// Partially fill the head order so a non-zero Filled is persisted.
	if filled, err := eng1.PlaceMarketOrder(alice, "LINK", book.Buy, 4); err != nil || filled != 4 {
		t.Fatalf("market: filled=%d err=%v", filled, err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	eng2, led2 := newExchange(s2)

	asks := eng2.OrderBook("LINK", book.Sell)
	if len(asks) != 2 {
		t.Fatalf("restored sell book len = %d, want 2", len(asks))
	}
	if asks[0].Price != 20 || asks[0].Filled != 4 {
		t.Errorf("restored head = %+v, want 10@20 filled 4", asks[0])
	}
	if asks[1].Price != 30 || asks[1].Filled != 0 {
		t.Errorf("restored tail = %+v, want 5@30 unfilled", asks[1])
	}

	if got := led2.BalanceOf(alice, "LINK"); got != 4 {
		t.Errorf("restored alice LINK = %d, want 4", got)
	}
	if got := led2.BalanceOf(alice, "ETH"); got != 920 {
		t.Errorf("restored alice ETH = %d, want 920", got)
	}
	if got := led2.BalanceOf(bob, "ETH"); got != 80 {
		t.Errorf("restored bob ETH = %d, want 80", got)
	}

	// The ID sequence continues past everything assigned before restart
	// (the market order consumed an ID too).
	newID, err := eng2.PlaceLimitOrder(alice, "LINK", book.Buy, 1, 5)
	if err != nil {
		t.Fatalf("limit after restart: %v", err)
	}
	if newID <= lastID+1 {
		t.Errorf("post-restart id = %d, must exceed %d", newID, lastID+1)
	}

	trades, err := s2.LoadRecentTrades("LINK", 10)
	if err != nil {
		t.Fatalf("load trades: %v", err)
	}
	if len(trades) != 1 || trades[0].Qty != 4 || trades[0].Price != 20 {
		t.Errorf("restored trades = %+v, want one 4@20", trades)
	}
}
