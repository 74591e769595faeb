package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/charwindow/pkg/corpus"
	"github.com/CTAG07/charwindow/pkg/ngram"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// app carries the state shared by every subcommand once the config is loaded.
type app struct {
	configPath string
	logLevel   string
	config     *Config
	logger     *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "charwindow",
		Short:        "Character-level sliding-window text generator",
		Version:      fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "./config.json", "path to the JSON config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		a.generateCmd(),
		a.ingestCmd(),
		a.documentsCmd(),
		a.removeCmd(),
		a.statsCmd(),
		a.serveCmd(),
	)
	return root
}

// load reads the config file and builds the logger. Logs go to w so that
// generated text on stdout stays clean.
func (a *app) load(w io.Writer) error {
	config, err := LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		config.Server.LogLevel = a.logLevel
		if err = config.Validate(); err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", a.logLevel, err)
		}
	}
	a.config = config
	a.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLogLevel(config.Server.LogLevel)}))
	return nil
}

// openStore opens the corpus database, creating its directory and schema when needed.
func (a *app) openStore() (*sql.DB, *corpus.Store, error) {
	dataSource := a.config.Server.DatabasePath
	dir := filepath.Dir(strings.SplitN(dataSource, "?", 2)[0])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := openDB(dataSource)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = corpus.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to setup corpus schema: %w", err)
	}
	store, err := corpus.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to prepare corpus store: %w", err)
	}
	store.SetLogger(a.logger)
	return db, store, nil
}

// trainModel builds and trains a model from r using the configured window
// length and seed.
func trainModel(config *ModelConfig, logger *slog.Logger, r io.Reader) (*ngram.Model, error) {
	var opts []ngram.Option
	if config.RandSeed != nil {
		opts = append(opts, ngram.WithSeed(*config.RandSeed))
	}
	model, err := ngram.NewModel(config.WindowLength, opts...)
	if err != nil {
		return nil, err
	}
	model.SetLogger(logger)
	if err = model.Train(r); err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	return model, nil
}

// trainFromStore trains a model on the configured documents of store.
func trainFromStore(ctx context.Context, config *ModelConfig, logger *slog.Logger, store *corpus.Store) (*ngram.Model, error) {
	r, err := store.Reader(ctx, config.Documents...)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	return trainModel(config, logger, r)
}
