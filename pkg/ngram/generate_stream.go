package ngram

import (
	"context"
	"log/slog"
)

// GenerateStream runs the same generation as Generate but delivers the text
// byte by byte on the returned channel, starting with the seed itself. The
// channel is closed once generation ends, on an unknown window, or when ctx is
// cancelled. A rejected seed is sent unchanged.
func (m *Model) GenerateStream(ctx context.Context, seed string, targetLength int) <-chan Symbol {
	symbolChan := make(chan Symbol)

	go func() {
		defer close(symbolChan)

		send := func(s Symbol) bool {
			select {
			case <-ctx.Done():
				m.logger.DebugContext(ctx, "Generation stream cancelled by context")
				return false
			case symbolChan <- s:
				return true
			}
		}

		for i := 0; i < len(seed); i++ {
			if !send(seed[i]) {
				return
			}
		}
		if !m.accepts(seed, targetLength) {
			return
		}

		_, state := m.run(newBuffer(seed, targetLength), targetLength, m.newRand(), send)
		m.logger.DebugContext(ctx, "Generation stream finished", slog.String("state", state.String()))
	}()

	return symbolChan
}
