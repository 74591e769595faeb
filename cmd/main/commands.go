package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/CTAG07/charwindow/pkg/corpus"
	"github.com/CTAG07/charwindow/pkg/ngram"
	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

// modelFlags are the flags shared by commands that build a model.
type modelFlags struct {
	corpusPath string
	documents  []string
	window     int
	randSeed   uint64
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.corpusPath, "corpus", "", "train on this file instead of the corpus database")
	cmd.Flags().StringSliceVar(&f.documents, "documents", nil, "corpus documents to train on (default: config, then all)")
	cmd.Flags().IntVar(&f.window, "window", 0, "window length (default: config)")
	cmd.Flags().Uint64Var(&f.randSeed, "rand-seed", 0, "seed for reproducible generation")
}

// apply merges the flags that were set on the command line into config.
func (f *modelFlags) apply(cmd *cobra.Command, config *ModelConfig) {
	if cmd.Flags().Changed("documents") {
		config.Documents = f.documents
	}
	if cmd.Flags().Changed("window") {
		config.WindowLength = f.window
	}
	if cmd.Flags().Changed("rand-seed") {
		seed := f.randSeed
		config.RandSeed = &seed
	}
}

// buildModel trains a model from --corpus when given, otherwise from the
// corpus database.
func (a *app) buildModel(cmd *cobra.Command, f *modelFlags) (*ngram.Model, error) {
	f.apply(cmd, a.config.Model)

	if f.corpusPath != "" {
		file, err := os.Open(f.corpusPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open corpus file: %w", err)
		}
		defer func(file *os.File) {
			_ = file.Close()
		}(file)
		return trainModel(a.config.Model, a.logger, file)
	}

	db, store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer func() {
		store.Close()
		_ = db.Close()
	}()
	return trainFromStore(cmd.Context(), a.config.Model, a.logger, store)
}

func (a *app) generateCmd() *cobra.Command {
	var (
		f        modelFlags
		seedText string
		length   int
		outPath  string
		dump     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Train a model and generate text from a seed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := a.buildModel(cmd, &f)
			if err != nil {
				return err
			}
			if dump {
				_, _ = io.WriteString(cmd.OutOrStdout(), model.String())
			}

			if !cmd.Flags().Changed("length") {
				length = a.config.Model.DefaultLength
			}
			res := model.Extend(seedText, length)
			a.logger.Info("Generation finished",
				"state", res.State.String(),
				"length", len(res.Text),
			)

			if outPath != "" {
				if err = atomic.WriteFile(outPath, strings.NewReader(res.Text)); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return err
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&seedText, "seed-text", "", "initial text; its last window starts generation")
	cmd.Flags().IntVar(&length, "length", 0, "target length of generated text (default: config)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the result to this file instead of stdout")
	cmd.Flags().BoolVar(&dump, "dump", false, "print the trained window table before generating")
	_ = cmd.MarkFlagRequired("seed-text")
	return cmd
}

func (a *app) ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest NAME PATH",
		Short: "Store a text file in the corpus database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer func(file *os.File) {
				_ = file.Close()
			}(file)

			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() {
				store.Close()
				_ = db.Close()
			}()

			doc, err := store.AddDocument(cmd.Context(), name, file)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%s)\n", doc.Name, humanize.Bytes(uint64(doc.Size)))
			return err
		},
	}
}

func (a *app) documentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List the documents in the corpus database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() {
				store.Close()
				_ = db.Close()
			}()

			docs, err := store.Documents(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tSIZE\tADDED")
			for _, doc := range docs {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", doc.ID, doc.Name, humanize.Bytes(uint64(doc.Size)), humanize.Time(doc.AddedAt))
			}
			return tw.Flush()
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Delete a document from the corpus database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() {
				store.Close()
				_ = db.Close()
			}()
			return store.RemoveDocument(cmd.Context(), args[0])
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	var f modelFlags

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus and trained model statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if f.corpusPath == "" {
				db, store, err := a.openStore()
				if err != nil {
					return err
				}
				st, err := store.Stats(cmd.Context())
				store.Close()
				_ = db.Close()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "documents:    %s\n", humanize.Comma(int64(st.Documents)))
				_, _ = fmt.Fprintf(out, "corpus size:  %s\n", humanize.Bytes(uint64(st.TotalBytes)))
			}

			model, err := a.buildModel(cmd, &f)
			if errors.Is(err, corpus.ErrNoDocuments) {
				_, err = fmt.Fprintln(out, "no documents to train on")
				return err
			}
			if err != nil {
				return err
			}
			ms := model.Stats()
			_, _ = fmt.Fprintf(out, "window:       %d\n", ms.WindowLength)
			_, _ = fmt.Fprintf(out, "windows:      %s\n", humanize.Comma(int64(ms.Windows)))
			_, _ = fmt.Fprintf(out, "transitions:  %s\n", humanize.Comma(int64(ms.Transitions)))
			_, _ = fmt.Fprintf(out, "trained on:   %s symbols\n", humanize.Comma(int64(ms.TotalFrequency)))
			_, err = fmt.Fprintf(out, "symbols:      %s\n", humanize.Comma(int64(ms.Symbols)))
			return err
		},
	}
	f.register(cmd)
	return cmd
}
