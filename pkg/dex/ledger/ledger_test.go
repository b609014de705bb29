package ledger

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func newTestLedger(t *testing.T) *Ledger {
	l, err := New(nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l
}

func TestCreditAndBalanceOf(t *testing.T) {
	l := newTestLedger(t)

	if got := l.BalanceOf(alice, "LINK"); got != 0 {
		t.Fatalf("fresh balance = %d, want 0", got)
	}
	if err := l.Credit(alice, "LINK", 100); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if err := l.Credit(alice, "LINK", 50); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if got := l.BalanceOf(alice, "LINK"); got != 150 {
		t.Errorf("balance = %d, want 150", got)
	}
	// Other accounts and tickers stay untouched.
	if got := l.BalanceOf(bob, "LINK"); got != 0 {
		t.Errorf("bob balance = %d, want 0", got)
	}
	if got := l.BalanceOf(alice, "ETH"); got != 0 {
		t.Errorf("alice ETH balance = %d, want 0", got)
	}
}

func TestDebit(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Credit(alice, "LINK", 100); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if err := l.Debit(alice, "LINK", 40); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if got := l.BalanceOf(alice, "LINK"); got != 60 {
		t.Errorf("balance = %d, want 60", got)
	}
	// Debit down to exactly zero is allowed.
	if err := l.Debit(alice, "LINK", 60); err != nil {
		t.Fatalf("debit to zero failed: %v", err)
	}
	if got := l.BalanceOf(alice, "LINK"); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestDebitUnderflow(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Credit(alice, "LINK", 100); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	err := l.Debit(alice, "LINK", 500)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	// Failed debit must leave the balance unchanged.
	if got := l.BalanceOf(alice, "LINK"); got != 100 {
		t.Errorf("balance after failed debit = %d, want 100", got)
	}
}

func TestNegativeAmounts(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Credit(alice, "LINK", -5); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("credit -5: expected ErrNegativeAmount, got %v", err)
	}
	if err := l.Debit(alice, "LINK", -5); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("debit -5: expected ErrNegativeAmount, got %v", err)
	}
}

func TestBalancesSnapshot(t *testing.T) {
	l := newTestLedger(t)

	l.Credit(alice, "ETH", 1000)
	l.Credit(alice, "LINK", 25)
	l.Credit(alice, "UNI", 10)
	l.Debit(alice, "UNI", 10) // back to zero, should be dropped

	balances := l.Balances(alice)
	if len(balances) != 2 {
		t.Fatalf("expected 2 non-zero balances, got %d", len(balances))
	}
	for _, b := range balances {
		if b.Trader != alice {
			t.Errorf("balance trader = %s, want alice", b.Trader.Hex())
		}
		if b.Qty == 0 {
			t.Errorf("zero balance %s leaked into snapshot", b.Ticker)
		}
	}
}

// fakeStore records writes so persistence can be checked without a
// real database (storage round-trips are covered in pkg/storage).
type fakeStore struct {
	saved   []Balance
	initial []Balance
}

func (f *fakeStore) SaveBalance(b Balance) error      { f.saved = append(f.saved, b); return nil }
func (f *fakeStore) LoadBalances() ([]Balance, error) { return f.initial, nil }

func TestWriteThroughAndReload(t *testing.T) {
	store := &fakeStore{}
	l, err := New(store)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	l.Credit(alice, "LINK", 100)
	l.Debit(alice, "LINK", 30)
	if len(store.saved) != 2 {
		t.Fatalf("expected 2 write-throughs, got %d", len(store.saved))
	}
	if last := store.saved[len(store.saved)-1]; last.Qty != 70 {
		t.Errorf("last persisted qty = %d, want 70", last.Qty)
	}

	// A ledger built over existing entries starts from them.
	reloaded, err := New(&fakeStore{initial: []Balance{
		{Trader: alice, Ticker: "LINK", Qty: 70},
		{Trader: bob, Ticker: "ETH", Qty: 500},
	}})
	if err != nil {
		t.Fatalf("reload ledger: %v", err)
	}
	if got := reloaded.BalanceOf(alice, "LINK"); got != 70 {
		t.Errorf("reloaded alice LINK = %d, want 70", got)
	}
	if got := reloaded.BalanceOf(bob, "ETH"); got != 500 {
		t.Errorf("reloaded bob ETH = %d, want 500", got)
	}
}
