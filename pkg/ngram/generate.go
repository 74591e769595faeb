package ngram

import (
	"log/slog"
	"math/rand/v2"
)

// State describes how a generation run ended.
type State int

const (
	// StateSeedRejected means no generation was attempted: the seed was shorter
	// than the window or already at least the target length.
	StateSeedRejected State = iota
	// StateStalled means generation stopped at a window absent from the model.
	StateStalled
	// StateLengthReached means the target length was met.
	StateLengthReached
)

func (s State) String() string {
	switch s {
	case StateSeedRejected:
		return "seed_rejected"
	case StateStalled:
		return "stalled"
	case StateLengthReached:
		return "length_reached"
	default:
		return "unknown"
	}
}

// maxPrealloc bounds the capacity reserved up front for generated bytes.
// Longer outputs grow by append.
const maxPrealloc = 4096

// Result is the outcome of Extend.
type Result struct {
	Text  string
	State State
}

// Generate extends seed with sampled bytes. The seed is returned unchanged
// when it is shorter than the window length or not shorter than
// targetLength. Otherwise bytes are appended until the output exceeds
// targetLength by the window length, or until the trailing window was never
// seen in training, in which case the text produced so far is returned.
func (m *Model) Generate(seed string, targetLength int) string {
	return m.Extend(seed, targetLength).Text
}

// Extend behaves like Generate and also reports how generation ended.
func (m *Model) Extend(seed string, targetLength int) Result {
	if !m.accepts(seed, targetLength) {
		return Result{Text: seed, State: StateSeedRejected}
	}

	out, state := m.run(newBuffer(seed, targetLength), targetLength, m.newRand(), nil)
	return Result{Text: string(out), State: state}
}

// newBuffer returns a copy of seed with room for at most maxPrealloc more
// bytes. Callers must have checked accepts, so targetLength > len(seed).
func newBuffer(seed string, targetLength int) []byte {
	extra := min(targetLength-len(seed), maxPrealloc)
	out := make([]byte, len(seed), len(seed)+extra)
	copy(out, seed)
	return out
}

func (m *Model) accepts(seed string, targetLength int) bool {
	return len(seed) >= m.windowLength && len(seed) < targetLength
}

// run drives the generation loop over out, which already holds the seed, and
// returns the grown buffer. A non-nil emit receives every appended byte and
// returns false to stop early, which is reported as StateStalled.
func (m *Model) run(out []byte, targetLength int, rng *rand.Rand, emit func(Symbol) bool) ([]byte, State) {
	for len(out)-m.windowLength < targetLength {
		window := out[len(out)-m.windowLength:]
		table, ok := m.tables[string(window)]
		if !ok {
			m.logger.Debug("Generation stalled on unknown window",
				slog.String("window", string(window)),
				slog.Int("generated_length", len(out)),
			)
			return out, StateStalled
		}
		next, err := table.Sample(rng.Float64())
		if err != nil {
			// Only reachable for a table that was never normalized.
			m.logger.Error("Failed to sample window", slog.String("window", string(window)), slog.Any("error", err))
			return out, StateStalled
		}
		out = append(out, next)
		if emit != nil && !emit(next) {
			return out, StateStalled
		}
	}
	m.logger.Debug("Generation reached target length",
		slog.Int("target_length", targetLength),
		slog.Int("generated_length", len(out)),
	)
	return out, StateLengthReached
}
