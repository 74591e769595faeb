package ngram

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
)

// pcgStream is the fixed second PCG word used for seeded models.
const pcgStream = 0x9e3779b97f4a7c15

// Model maps every window of windowLength bytes seen during training to the
// FrequencyTable of bytes that followed it.
//
// A Model is trained exactly once and is read-only afterwards. Generation
// methods may be called concurrently once Train has returned.
type Model struct {
	windowLength int
	tables       map[string]*FrequencyTable
	trained      bool

	seeded bool
	seed   uint64
	mu     sync.Mutex // guards master
	master *rand.Rand

	logger *slog.Logger
}

// Option configures a Model at construction.
type Option func(*Model)

// WithSeed makes generation reproducible. Each generation call on a seeded
// model starts from a fresh generator built from seed, so identical calls
// return identical text.
func WithSeed(seed uint64) Option {
	return func(m *Model) {
		m.seeded = true
		m.seed = seed
	}
}

// NewModel creates an empty model for the given window length. Without
// WithSeed the model draws its randomness from a private generator seeded
// from runtime entropy.
func NewModel(windowLength int, opts ...Option) (*Model, error) {
	if windowLength <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindowLength, windowLength)
	}
	m := &Model{
		windowLength: windowLength,
		tables:       make(map[string]*FrequencyTable),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.seeded {
		m.master = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return m, nil
}

// SetLogger sets the logger for the Model. By default, all logs are discarded.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// WindowLength returns the number of bytes in each window.
func (m *Model) WindowLength() int {
	return m.windowLength
}

// Trained reports whether Train has completed successfully.
func (m *Model) Trained() bool {
	return m.trained
}

// Table returns the frequency table recorded for window.
func (m *Model) Table(window string) (*FrequencyTable, bool) {
	t, ok := m.tables[window]
	return t, ok
}

// Windows returns every known window in sorted order.
func (m *Model) Windows() []string {
	windows := make([]string, 0, len(m.tables))
	for w := range m.tables {
		windows = append(windows, w)
	}
	sort.Strings(windows)
	return windows
}

// String dumps the window to table mapping, one window per line in sorted order.
func (m *Model) String() string {
	var sb strings.Builder
	for _, w := range m.Windows() {
		sb.WriteString(formatWindow(w))
		sb.WriteString(" : ")
		sb.WriteString(m.tables[w].String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// newRand returns the generator owned by a single generation call.
func (m *Model) newRand() *rand.Rand {
	if m.seeded {
		return rand.New(rand.NewPCG(m.seed, pcgStream))
	}
	m.mu.Lock()
	s1, s2 := m.master.Uint64(), m.master.Uint64()
	m.mu.Unlock()
	return rand.New(rand.NewPCG(s1, s2))
}

func formatWindow(w string) string {
	for i := 0; i < len(w); i++ {
		if w[i] < ' ' || w[i] >= 0x7f {
			return fmt.Sprintf("%q", w)
		}
	}
	return w
}
