package ngram

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const testCorpus = "the quick brown fox jumps over the lazy dog. the dog sleeps. the fox runs off into the thick of the woods."

// newTrainedModel builds a model over corpus and fails the test on any error.
func newTrainedModel(t testing.TB, windowLength int, corpus string, opts ...Option) *Model {
	t.Helper()
	m, err := NewModel(windowLength, opts...)
	if err != nil {
		t.Fatalf("NewModel(%d) error = %v", windowLength, err)
	}
	if err := m.TrainString(corpus); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return m
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = strings.Repeat(testCorpus+" ", 200)
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
