package phoneme

import (
	"cmp"
	"slices"
	"sync"
)

// AnomalyCount is one entry of an [AnomalyTable] snapshot.
type AnomalyCount struct {
	Symbol string
	Count  int
}

// AnomalyTable counts symbols the tokenizer could not map to the inventory.
// It is diagnostic only and safe for concurrent use.
type AnomalyTable struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewAnomalyTable returns an empty table.
func NewAnomalyTable() *AnomalyTable {
	return &AnomalyTable{counts: make(map[string]int)}
}

// Record increments the count for symbol and returns the new count.
func (a *AnomalyTable) Record(symbol string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[symbol]++
	return a.counts[symbol]
}

// Len returns the number of distinct symbols recorded.
func (a *AnomalyTable) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.counts)
}

// Snapshot returns the recorded symbols ordered by descending count, ties
// broken by symbol.
func (a *AnomalyTable) Snapshot() []AnomalyCount {
	a.mu.Lock()
	out := make([]AnomalyCount, 0, len(a.counts))
	for s, c := range a.counts {
		out = append(out, AnomalyCount{Symbol: s, Count: c})
	}
	a.mu.Unlock()

	slices.SortFunc(out, func(x, y AnomalyCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Symbol, y.Symbol)
	})
	return out
}

// Reset clears all counts.
func (a *AnomalyTable) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.counts)
}
