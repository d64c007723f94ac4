// Package api exposes the verifier over HTTP and a websocket progress
// stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/NullMeDev/factlens/internal/apperror"
	"github.com/NullMeDev/factlens/internal/evidence"
	"github.com/NullMeDev/factlens/internal/health"
	"github.com/NullMeDev/factlens/internal/logging"
	"github.com/NullMeDev/factlens/internal/verify"
)

const (
	// MaxClaimLength bounds accepted claims, in runes.
	MaxClaimLength = 2000

	maxRequestBytes = 64 << 10
)

// Verifier is the part of verify.Verifier the server needs.
type Verifier interface {
	VerifyWithProgress(ctx context.Context, claim string, progress verify.ProgressFunc) *evidence.Record
}

// SourceInfo names one configured source.
type SourceInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Options configures a Server.
type Options struct {
	RatePerMinute int
	Monitor       *health.Monitor
	Sources       []SourceInfo
	Logger        *logging.Logger
	Version       string
}

// Server serves the verification API.
type Server struct {
	verifier  Verifier
	monitor   *health.Monitor
	limiter   *rate.Limiter
	sources   []SourceInfo
	log       *logging.Logger
	version   string
	startedAt time.Time
	router    *mux.Router
	upgrader  websocket.Upgrader
}

// VerifyRequest is the body of POST /api/verify and of websocket messages.
type VerifyRequest struct {
	Claim string `json:"claim"`
}

// StreamMessage is one websocket frame sent to the client.
type StreamMessage struct {
	Type   string           `json:"type"`
	Source string           `json:"source,omitempty"`
	Items  int              `json:"items"`
	Error  string           `json:"error,omitempty"`
	Record *evidence.Record `json:"record,omitempty"`
}

// NewServer creates the server and its routes. A zero RatePerMinute
// disables throttling.
func NewServer(v Verifier, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}

	s := &Server{
		verifier:  v,
		monitor:   opts.Monitor,
		sources:   opts.Sources,
		log:       log,
		version:   opts.Version,
		startedAt: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if opts.RatePerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(float64(opts.RatePerMinute)/60.0), opts.RatePerMinute)
	}

	s.router = mux.NewRouter()
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/verify", s.handleVerify).Methods("POST")
	api.HandleFunc("/sources", s.handleSources).Methods("GET")
	api.HandleFunc("/ws", s.handleWebsocket)
	s.router.HandleFunc("/healthcheck", s.handleHealthCheck).Methods("GET")

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting API server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.log.Info("Shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

// validateClaim trims text and checks it is usable.
func validateClaim(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("claim is required")
	}
	if utf8.RuneCountInString(text) > MaxClaimLength {
		return "", fmt.Errorf("claim is longer than %d characters", MaxClaimLength)
	}
	return text, nil
}

func (s *Server) allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	claimText, err := validateClaim(req.Claim)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.allow() {
		respondWithError(w, http.StatusTooManyRequests, "too many verification requests, try again shortly")
		return
	}

	rec := s.verifier.VerifyWithProgress(r.Context(), claimText, nil)
	s.recordFailure(rec)
	respondWithJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{"sources": s.sources}
	if s.monitor != nil {
		payload["health"] = s.monitor.Report()
	}
	respondWithJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.monitor != nil {
		status = s.monitor.Report().Status
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": s.version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleWebsocket reads claims from the client and streams one "source"
// message per finished source followed by the "record".
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warning("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ws := &streamConn{conn: conn}
	for {
		var req VerifyRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("Websocket closed: %v", err)
			}
			return
		}

		claimText, err := validateClaim(req.Claim)
		if err != nil {
			ws.send(StreamMessage{Type: "error", Error: err.Error()})
			continue
		}
		if !s.allow() {
			ws.send(StreamMessage{Type: "error", Error: "too many verification requests, try again shortly"})
			continue
		}

		rec := s.verifier.VerifyWithProgress(r.Context(), claimText, func(p verify.Progress) {
			ws.send(StreamMessage{Type: "source", Source: p.Source, Items: p.Items, Error: p.Error})
		})
		s.recordFailure(rec)
		if err := ws.send(StreamMessage{Type: "record", Record: rec}); err != nil {
			return
		}
	}
}

func (s *Server) recordFailure(rec *evidence.Record) {
	if rec == nil || rec.Error == "" || s.monitor == nil {
		return
	}
	s.monitor.RecordError(apperror.NewAggregationError(rec.Error, nil), "api")
}
