// Package server exposes link, token exchange and detection over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/subscout-dev/subscout/internal/credentials"
	"github.com/subscout-dev/subscout/internal/detect"
	"github.com/subscout-dev/subscout/internal/logger"
	"github.com/subscout-dev/subscout/internal/model"
	"github.com/subscout-dev/subscout/internal/plaid"
	"github.com/subscout-dev/subscout/internal/recurring"
	"github.com/subscout-dev/subscout/internal/report"
)

// Aggregator is the part of the Plaid client the server calls.
type Aggregator interface {
	CreateLinkToken(ctx context.Context, clientUserID string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (plaid.Exchange, error)
	GetTransactions(ctx context.Context, r plaid.TransactionsRequest) ([]model.Transaction, error)
}

// AllowListLoader returns the current allow list. It is called per request
// so edits to the file apply without a restart.
type AllowListLoader func() (detect.AllowList, error)

// Options configures a Server.
type Options struct {
	Aggregator  Aggregator
	Credentials credentials.Repository
	AllowList   AllowListLoader
	WindowDays  int
	PageSize    int
	Logger      zerolog.Logger
	Now         func() time.Time
}

// Server handles the HTTP API.
type Server struct {
	opts Options
	log  zerolog.Logger
	mux  *http.ServeMux
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = plaid.DefaultWindowDays
	}
	if opts.PageSize <= 0 {
		opts.PageSize = plaid.DefaultCount
	}
	s := &Server{opts: opts, log: opts.Logger, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /create_link_token", s.handleCreateLinkToken)
	s.mux.HandleFunc("POST /exchange_public_token", s.handleExchangePublicToken)
	s.mux.HandleFunc("POST /get_recurring_transactions", s.handleGetRecurring)
	return s
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.log.Info().Msg("http server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type linkTokenRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	var req linkTokenRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}

	tok, err := s.opts.Aggregator.CreateLinkToken(r.Context(), req.UserID)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link_token": tok, "user_id": req.UserID})
}

type exchangeRequest struct {
	PublicToken string `json:"public_token"`
	UserID      string `json:"user_id"`
}

func (s *Server) handleExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PublicToken == "" {
		writeError(w, http.StatusBadRequest, "Public token not provided")
		return
	}
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}

	ex, err := s.opts.Aggregator.ExchangePublicToken(r.Context(), req.PublicToken)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}

	cred := credentials.Credential{AccessToken: ex.AccessToken, ItemID: ex.ItemID, UpdatedAt: s.opts.Now().UTC()}
	if err := s.opts.Credentials.Put(r.Context(), req.UserID, cred); err != nil {
		s.log.Error().Err(err).Str("user_id", req.UserID).Msg("storing credential")
		writeError(w, http.StatusInternalServerError, "storing credential failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": ex.AccessToken,
		"item_id":      ex.ItemID,
		"user_id":      req.UserID,
	})
}

type recurringRequest struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token := req.AccessToken
	if token == "" && req.UserID != "" {
		cred, err := s.opts.Credentials.Get(r.Context(), req.UserID)
		if errors.Is(err, credentials.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No credential stored for user")
			return
		}
		if err != nil {
			s.log.Error().Err(err).Str("user_id", req.UserID).Msg("loading credential")
			writeError(w, http.StatusInternalServerError, "loading credential failed")
			return
		}
		token = cred.AccessToken
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "Access token not provided")
		return
	}

	allow, err := s.opts.AllowList()
	if err != nil {
		s.log.Error().Err(err).Msg("loading allow list")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	src := recurring.APISource{
		Client:      s.opts.Aggregator,
		AccessToken: token,
		WindowDays:  s.opts.WindowDays,
		Count:       s.opts.PageSize,
		Now:         s.opts.Now,
	}
	rep, err := recurring.NewService(allow, s.log).Run(r.Context(), src)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report.NewResponse(rep.Recurring))
}

// upstreamError reports aggregation API failures with the API's own error body.
func (s *Server) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Error().Err(err).Str("path", r.URL.Path).Msg("upstream request failed")

	var apiErr *plaid.APIError
	if errors.As(err, &apiErr) && apiErr.Body != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]json.RawMessage{"error": apiErr.Body})
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// decodeOptional decodes a JSON body, treating an empty body as {}.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
