package ngram

import (
	"fmt"
	"strings"
)

// Symbol is a single raw character unit of the corpus.
type Symbol = byte

// Entry holds the statistics of one symbol within a FrequencyTable. Probability
// and Cumulative are only meaningful after the table has been normalized.
type Entry struct {
	Symbol      Symbol
	Count       int
	Probability float64
	Cumulative  float64
}

// String renders the entry as (symbol count probability cumulative).
func (e Entry) String() string {
	return fmt.Sprintf("(%s %d %g %g)", formatSymbol(e.Symbol), e.Count, e.Probability, e.Cumulative)
}

// FrequencyTable is an ordered set of symbol entries recording which symbols
// followed a window and how often. A symbol seen for the first time is placed
// at the front of the iteration order, so iteration runs from the most
// recently introduced symbol to the oldest.
//
// Entries are stored oldest first and iterated in reverse; position i in
// iteration order is entries[len(entries)-1-i]. That keeps front insertion
// O(1) and the slot index stable for lookups.
type FrequencyTable struct {
	entries    []Entry
	slots      map[Symbol]int // symbol -> slot in entries
	total      int
	normalized bool
}

// NewFrequencyTable returns an empty table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{slots: make(map[Symbol]int)}
}

// Len returns the number of distinct symbols in the table.
func (t *FrequencyTable) Len() int {
	return len(t.entries)
}

// Total returns the sum of all counts.
func (t *FrequencyTable) Total() int {
	return t.total
}

// Increment adds one occurrence of s, inserting it at the front of the
// iteration order if it has not been seen before. Any previous normalization
// is invalidated.
func (t *FrequencyTable) Increment(s Symbol) {
	if slot, ok := t.slots[s]; ok {
		t.entries[slot].Count++
	} else {
		t.slots[s] = len(t.entries)
		t.entries = append(t.entries, Entry{Symbol: s, Count: 1})
	}
	t.total++
	t.normalized = false
}

// Find returns the position of s in iteration order.
func (t *FrequencyTable) Find(s Symbol) (int, bool) {
	slot, ok := t.slots[s]
	if !ok {
		return -1, false
	}
	return len(t.entries) - 1 - slot, true
}

// EntryAt returns the entry at position i in iteration order.
func (t *FrequencyTable) EntryAt(i int) (Entry, error) {
	if i < 0 || i >= len(t.entries) {
		return Entry{}, fmt.Errorf("%w: %d (size %d)", ErrIndexOutOfRange, i, len(t.entries))
	}
	return t.entries[len(t.entries)-1-i], nil
}

// Entries returns a copy of all entries in iteration order.
func (t *FrequencyTable) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i := range out {
		out[i] = t.entries[len(t.entries)-1-i]
	}
	return out
}

// Normalize computes each entry's probability and the running cumulative
// probability in iteration order. The last cumulative value is pinned to 1.
func (t *FrequencyTable) Normalize() error {
	if len(t.entries) == 0 || t.total == 0 {
		return ErrEmptyTable
	}
	total := float64(t.total)
	var sum float64
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := &t.entries[i]
		e.Probability = float64(e.Count) / total
		sum += e.Probability
		e.Cumulative = sum
	}
	t.entries[0].Cumulative = 1
	t.normalized = true
	return nil
}

// Normalized reports whether the probabilities reflect the current counts.
func (t *FrequencyTable) Normalized() bool {
	return t.normalized
}

// Sample returns the first symbol in iteration order whose cumulative
// probability is strictly greater than draw, which is expected in [0, 1).
// A draw past the final cumulative value yields the last entry.
func (t *FrequencyTable) Sample(draw float64) (Symbol, error) {
	if len(t.entries) == 0 {
		return 0, ErrEmptyTable
	}
	if !t.normalized {
		return 0, ErrNotNormalized
	}
	for i := len(t.entries) - 1; i > 0; i-- {
		if t.entries[i].Cumulative > draw {
			return t.entries[i].Symbol, nil
		}
	}
	return t.entries[0].Symbol, nil
}

// String renders the entries in iteration order, e.g. "((a 2 0.5 0.5) (b 2 0.5 1))".
func (t *FrequencyTable) String() string {
	if len(t.entries) == 0 {
		return "()"
	}
	var sb strings.Builder
	sb.WriteByte('(')
	for i := len(t.entries) - 1; i >= 0; i-- {
		sb.WriteString(t.entries[i].String())
		if i > 0 {
			sb.WriteByte(' ')
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// formatSymbol prints printable ASCII as is and quotes everything else.
func formatSymbol(s Symbol) string {
	if s > ' ' && s < 0x7f {
		return string(rune(s))
	}
	return fmt.Sprintf("%q", []byte{s})
}
