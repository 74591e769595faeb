package ngram

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestTrainWindowCounts(t *testing.T) {
	m := newTrainedModel(t, 3, "abcabcabc")

	testCases := []struct {
		window string
		symbol Symbol
		count  int
	}{
		{"abc", 'a', 2},
		{"bca", 'b', 2},
		{"cab", 'c', 2},
	}
	for _, tc := range testCases {
		table, ok := m.Table(tc.window)
		if !ok {
			t.Fatalf("expected a table for window %q", tc.window)
		}
		if table.Len() != 1 {
			t.Errorf("window %q: expected 1 successor, got %d", tc.window, table.Len())
		}
		e, err := table.EntryAt(0)
		if err != nil {
			t.Fatalf("EntryAt(0) error = %v", err)
		}
		if e.Symbol != tc.symbol || e.Count != tc.count {
			t.Errorf("window %q: got %v, want (%c %d)", tc.window, e, tc.symbol, tc.count)
		}
		if !table.Normalized() {
			t.Errorf("window %q: table was not normalized", tc.window)
		}
	}
	if !m.Trained() {
		t.Error("expected model to be trained")
	}
}

func TestTrainMultipleSuccessors(t *testing.T) {
	m := newTrainedModel(t, 2, "ab ab ac ab")

	table, ok := m.Table("ab")
	if !ok {
		t.Fatal("expected a table for window \"ab\"")
	}
	// "ab" is always followed by a space.
	if idx, ok := table.Find(' '); !ok || idx != 0 {
		t.Fatalf("Find(' ') = %d, %v", idx, ok)
	}
	e, _ := table.EntryAt(0)
	if e.Count != 2 {
		t.Errorf("expected \"ab\" -> ' ' count of 2, got %d", e.Count)
	}

	table, _ = m.Table(" a")
	if table.Len() != 2 || table.Total() != 3 {
		t.Fatalf("expected \" a\" to have 2 successors over 3 occurrences, got %d over %d", table.Len(), table.Total())
	}
	// 'b' was seen first, 'c' later, so 'c' is iterated first.
	first, _ := table.EntryAt(0)
	second, _ := table.EntryAt(1)
	if first.Symbol != 'c' || first.Count != 1 || second.Symbol != 'b' || second.Count != 2 {
		t.Errorf("unexpected \" a\" table %s", table)
	}
}

func TestTrainErrors(t *testing.T) {
	m, _ := NewModel(5)
	if err := m.TrainString("abc"); !errors.Is(err, ErrInsufficientInput) {
		t.Errorf("expected ErrInsufficientInput, got %v", err)
	}

	m, _ = NewModel(1)
	if err := m.TrainString(""); !errors.Is(err, ErrInsufficientInput) {
		t.Errorf("expected ErrInsufficientInput for empty input, got %v", err)
	}

	errBoom := errors.New("boom")
	m, _ = NewModel(2)
	err := m.Train(iotest.ErrReader(errBoom))
	if !errors.Is(err, errBoom) || errors.Is(err, ErrInsufficientInput) {
		t.Errorf("expected read error to be wrapped, got %v", err)
	}

	m, _ = NewModel(2)
	err = m.Train(io.MultiReader(strings.NewReader("abcd"), iotest.ErrReader(errBoom)))
	if !errors.Is(err, errBoom) {
		t.Errorf("expected mid-stream read error to be wrapped, got %v", err)
	}
	if m.Trained() {
		t.Error("a failed training run must not mark the model trained")
	}
}

func TestTrainExactlyOneWindow(t *testing.T) {
	m := newTrainedModel(t, 3, "abc")
	if len(m.Windows()) != 0 {
		t.Errorf("expected no windows for input of exactly one window, got %v", m.Windows())
	}
	if got := m.Generate("abc", 10); got != "abc" {
		t.Errorf("Generate() = %q, want %q", got, "abc")
	}
}

func TestTrainOnlyOnce(t *testing.T) {
	m := newTrainedModel(t, 2, "abab")
	if err := m.TrainString("cdcd"); !errors.Is(err, ErrAlreadyTrained) {
		t.Errorf("expected ErrAlreadyTrained, got %v", err)
	}
	if _, ok := m.Table("cd"); ok {
		t.Error("second training run must not modify the model")
	}
}

func BenchmarkTrain(b *testing.B) {
	corpus := createBenchmarkCorpus()

	for _, windowLength := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("Window%d", windowLength), func(b *testing.B) {
			b.SetBytes(int64(len(corpus)))
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				m, _ := NewModel(windowLength)
				if err := m.TrainString(corpus); err != nil {
					b.Fatalf("Train() failed: %v", err)
				}
			}
		})
	}
}
