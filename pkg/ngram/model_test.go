package ngram

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestNewModel(t *testing.T) {
	for _, n := range []int{0, -1, -50} {
		if _, err := NewModel(n); !errors.Is(err, ErrInvalidWindowLength) {
			t.Errorf("NewModel(%d): expected ErrInvalidWindowLength, got %v", n, err)
		}
	}

	m, err := NewModel(4, WithSeed(7))
	if err != nil {
		t.Fatalf("NewModel(4) error = %v", err)
	}
	if m.WindowLength() != 4 {
		t.Errorf("WindowLength() = %d, want 4", m.WindowLength())
	}
	if m.Trained() {
		t.Error("expected a new model to be untrained")
	}
	if len(m.Windows()) != 0 {
		t.Errorf("expected no windows, got %v", m.Windows())
	}
}

func TestWindowsAndTables(t *testing.T) {
	m := newTrainedModel(t, 3, "abcabcabc")

	if got, want := m.Windows(), []string{"abc", "bca", "cab"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Windows() = %v, want %v", got, want)
	}
	for _, w := range m.Windows() {
		if len(w) != m.WindowLength() {
			t.Errorf("window %q has length %d, want %d", w, len(w), m.WindowLength())
		}
	}
	if _, ok := m.Table("zzz"); ok {
		t.Error("expected no table for an unseen window")
	}
}

func TestProbabilitiesSumToOne(t *testing.T) {
	m := newTrainedModel(t, 2, testCorpus)
	for _, w := range m.Windows() {
		table, _ := m.Table(w)
		var sum, prev float64
		for i, e := range table.Entries() {
			sum += e.Probability
			if e.Cumulative < prev {
				t.Errorf("window %q: cumulative decreased at entry %d (%g < %g)", w, i, e.Cumulative, prev)
			}
			prev = e.Cumulative
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("window %q: probabilities sum to %g", w, sum)
		}
		if math.Abs(prev-1) > 1e-9 {
			t.Errorf("window %q: last cumulative is %g", w, prev)
		}
	}
}

func TestModelString(t *testing.T) {
	m := newTrainedModel(t, 3, "abcabcabc")
	want := "abc : ((a 2 1 1))\nbca : ((b 2 1 1))\ncab : ((c 2 1 1))\n"
	if got := m.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	m = newTrainedModel(t, 1, "x\ny")
	want = "\"\\n\" : ((y 1 1 1))\nx : ((\"\\n\" 1 1 1))\n"
	if got := m.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStats(t *testing.T) {
	m := newTrainedModel(t, 3, "abcabcabc")
	want := Stats{WindowLength: 3, Windows: 3, Transitions: 3, TotalFrequency: 6, Symbols: 3}
	if got := m.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}

	m = newTrainedModel(t, 1, "abac")
	// a -> b, b -> a, a -> c
	want = Stats{WindowLength: 1, Windows: 2, Transitions: 3, TotalFrequency: 3, Symbols: 3}
	if got := m.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}
