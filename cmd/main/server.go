package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/CTAG07/charwindow/pkg/corpus"
	"github.com/CTAG07/charwindow/pkg/ngram"
	"github.com/spf13/cobra"
)

const (
	maxDocumentSize   = 32 << 20
	maxGenerateLength = 1 << 20
)

// Server hosts the generation API on top of a corpus store. The current model
// is swapped atomically on retrain so generation never blocks on training.
type Server struct {
	config    *Config
	db        *sql.DB
	store     *corpus.Store
	logger    *slog.Logger
	model     atomic.Pointer[ngram.Model]
	retrainMu sync.Mutex
	apiMux    *http.ServeMux
}

// GenerateRequest is the body of POST /api/generate. A zero Length uses the
// configured default.
type GenerateRequest struct {
	Seed   string `json:"seed"`
	Length int    `json:"length"`
}

type GenerateResponse struct {
	Text  string `json:"text"`
	State string `json:"state"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	ModelReady bool   `json:"model_ready"`
}

// NewServer builds the server and trains the initial model from store. A
// corpus that cannot train a model (empty, too short, or missing a configured
// document) is not an error; generation is unavailable until a retrain.
func NewServer(ctx context.Context, config *Config, logger *slog.Logger, db *sql.DB, store *corpus.Store) (*Server, error) {
	s := &Server{
		config: config,
		db:     db,
		store:  store,
		logger: logger,
		apiMux: http.NewServeMux(),
	}
	if _, err := s.retrain(ctx); err != nil {
		if !isCorpusError(err) {
			return nil, fmt.Errorf("failed to train initial model: %w", err)
		}
		logger.Warn("No model loaded, fix the corpus and retrain", "error", err)
	}
	s.RegisterRoutes(s.apiMux)
	return s, nil
}

// RegisterRoutes sets up the routing for all /api endpoints.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/generate", s.handleGenerate)
	mux.HandleFunc("/api/model/stats", s.handleModelStats)
	mux.HandleFunc("/api/model/retrain", s.handleRetrain)
	mux.HandleFunc("/api/corpus/documents", s.handleDocuments)
	mux.HandleFunc("/api/corpus/documents/", s.handleDocumentByName)
}

// retrain trains a fresh model on the configured documents and publishes it.
func (s *Server) retrain(ctx context.Context) (*ngram.Model, error) {
	s.retrainMu.Lock()
	defer s.retrainMu.Unlock()

	start := time.Now()
	model, err := trainFromStore(ctx, s.config.Model, s.logger, s.store)
	if err != nil {
		return nil, err
	}
	s.model.Store(model)
	s.logger.Info("Model trained", "windows", len(model.Windows()), "duration", time.Since(start))
	return model, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.respondWithJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Version:    Version,
		ModelReady: s.model.Load() != nil,
	})
}

// handleGenerate extends a seed with the current model.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	model := s.model.Load()
	if model == nil {
		s.respondWithError(w, http.StatusServiceUnavailable, "No model loaded, add documents and retrain")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if req.Length == 0 {
		req.Length = s.config.Model.DefaultLength
	}
	if req.Length < 0 || req.Length > maxGenerateLength {
		s.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Length must be between 0 and %d", maxGenerateLength))
		return
	}

	res := model.Extend(req.Seed, req.Length)
	s.logger.Debug("Generated text", "state", res.State.String(), "length", len(res.Text), "remote_addr", r.RemoteAddr)
	s.respondWithJSON(w, http.StatusOK, GenerateResponse{Text: res.Text, State: res.State.String()})
}

func (s *Server) handleModelStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	model := s.model.Load()
	if model == nil {
		s.respondWithError(w, http.StatusServiceUnavailable, "No model loaded")
		return
	}
	s.respondWithJSON(w, http.StatusOK, model.Stats())
}

// handleRetrain rebuilds the model from the current corpus.
func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	model, err := s.retrain(r.Context())
	switch {
	case isCorpusError(err):
		s.respondWithError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.logger.Error("Failed to retrain model", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrain model: %v", err))
	default:
		s.respondWithJSON(w, http.StatusOK, model.Stats())
	}
}

// handleDocuments lists documents on GET and stores the request body as the
// document named by the "name" query parameter on POST.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		docs, err := s.store.Documents(r.Context())
		if err != nil {
			s.logger.Error("Failed to list documents", "error", err)
			s.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list documents: %v", err))
			return
		}
		s.respondWithJSON(w, http.StatusOK, docs)
	case http.MethodPost:
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			s.respondWithError(w, http.StatusBadRequest, "Query parameter 'name' is required")
			return
		}
		doc, err := s.store.AddDocument(r.Context(), name, http.MaxBytesReader(w, r.Body, maxDocumentSize))
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondWithError(w, http.StatusRequestEntityTooLarge, "Document too large")
			return
		}
		if err != nil {
			s.logger.Error("Failed to store document", "document_name", name, "error", err)
			s.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to store document: %v", err))
			return
		}
		s.respondWithJSON(w, http.StatusCreated, doc)
	default:
		w.Header().Set("Allow", "GET, POST")
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleDocumentByName deletes a single document.
func (s *Server) handleDocumentByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/corpus/documents/")
	if name == "" {
		s.respondWithError(w, http.StatusBadRequest, "Document name is required")
		return
	}
	err := s.store.RemoveDocument(r.Context(), name)
	if errors.Is(err, corpus.ErrDocumentNotFound) {
		s.respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("Failed to remove document", "document_name", name, "error", err)
		s.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove document: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// isCorpusError reports whether err means the corpus cannot train a model, as
// opposed to a database or I/O failure.
func isCorpusError(err error) bool {
	return errors.Is(err, corpus.ErrNoDocuments) ||
		errors.Is(err, corpus.ErrDocumentNotFound) ||
		errors.Is(err, ngram.ErrInsufficientInput)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			s.logger.Error("Failed to encode JSON response", "error", err)
		}
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the generation API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// serve runs the API server until SIGINT or SIGTERM.
func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	db, store, err := a.openStore()
	if err != nil {
		return err
	}

	server, err := NewServer(ctx, a.config, logger, db, store)
	if err != nil {
		store.Close()
		_ = db.Close()
		return fmt.Errorf("failed to create server object: %w", err)
	}
	apiHttpServer := &http.Server{Addr: a.config.Server.ApiAddr, Handler: server.apiMux}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting api server", "address", apiHttpServer.Addr)
		if err := apiHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	osSignalChan := make(chan os.Signal, 1)
	signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(osSignalChan)

	select {
	case sig := <-osSignalChan:
		logger.Info("OS signal received, initiating shutdown.", "signal", sig.String())
	case err = <-serveErr:
		logger.Error("Api server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := apiHttpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("Api server shutdown failed", "error", shutdownErr)
	}
	logger.Info("HTTP server stopped.")

	logger.Info("Closing database connection.")
	store.Close()
	if closeErr := db.Close(); closeErr != nil {
		logger.Error("Failed to close database", "error", closeErr)
	}
	return err
}
