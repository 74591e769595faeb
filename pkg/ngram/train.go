package ngram

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Train reads the whole stream once and records, for every window, the byte
// that follows it. The first windowLength bytes form the initial window; the
// stream must contain at least that many. When the stream is exhausted every
// table is normalized. A model can only be trained once.
func (m *Model) Train(data io.Reader) error {
	if m.trained {
		return ErrAlreadyTrained
	}

	br, ok := data.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(data)
	}

	window := make([]byte, m.windowLength)
	for i := range window {
		c, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: read %d of %d bytes", ErrInsufficientInput, i, m.windowLength)
			}
			return fmt.Errorf("failed reading initial window: %w", err)
		}
		window[i] = c
	}

	var processed int64
	for {
		c, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed reading training data after %d bytes: %w", processed+int64(m.windowLength), err)
		}

		// The map lookup with string(window) does not allocate; only new keys do.
		table, ok := m.tables[string(window)]
		if !ok {
			table = NewFrequencyTable()
			m.tables[string(window)] = table
		}
		table.Increment(c)

		copy(window, window[1:])
		window[len(window)-1] = c
		processed++
	}

	for w, table := range m.tables {
		if err := table.Normalize(); err != nil {
			return fmt.Errorf("failed to normalize window %q: %w", w, err)
		}
	}
	m.trained = true

	m.logger.Info("Training completed",
		slog.Int("window_length", m.windowLength),
		slog.Int("windows", len(m.tables)),
		slog.Int64("transitions_processed", processed),
	)
	return nil
}

// TrainString is a convenience wrapper around Train for in-memory text.
func (m *Model) TrainString(text string) error {
	return m.Train(strings.NewReader(text))
}
