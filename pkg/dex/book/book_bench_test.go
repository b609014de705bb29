package book

import (
	"math/rand"
	"testing"
)

// BenchmarkInsert measures positional insertion into a book with
// realistic depth (100 price levels, several orders per level).
func BenchmarkInsert(b *testing.B) {
	bk := New("LINK", Buy)
	id := uint64(0)
	for i := 0; i < 100; i++ {
		for j := 0; j < 5; j++ {
			id++
			bk.Insert(limitOrder(id, Buy, 100, int64(1000-i)))
		}
	}

	r := rand.New(rand.NewSource(42))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id++
		bk.Insert(limitOrder(id, Buy, 10, int64(900+r.Intn(100))))
	}
}

// BenchmarkSnapshot measures the cost of a full book view at depth 500.
func BenchmarkSnapshot(b *testing.B) {
	bk := New("LINK", Sell)
	for i := uint64(1); i <= 500; i++ {
		bk.Insert(limitOrder(i, Sell, 10, int64(1000+i)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if snap := bk.Snapshot(); len(snap) != 500 {
			b.Fatalf("snapshot len = %d", len(snap))
		}
	}
}
