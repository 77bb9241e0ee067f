package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hupe1980/hauntmesh/core"
	"github.com/hupe1980/hauntmesh/history"
	"github.com/hupe1980/hauntmesh/logging"
)

// RunStore is the read side of a run history.
type RunStore interface {
	Runs() []string
	Get(runID string) (*history.Run, error)
	Events(runID string, afterRound int) ([]core.RoundEvent, error)
}

// ServerOptions configures a Server.
type ServerOptions struct {
	// History backs the /runs endpoints; they are not mounted without it.
	History RunStore
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
	Logger  logging.Logger
}

// Server exposes a hub and its companions over HTTP.
type Server struct {
	hub     *Hub
	history RunStore
	metrics http.Handler
	logger  logging.Logger
}

// NewServer creates a server around hub.
func NewServer(hub *Hub, optFns ...func(o *ServerOptions)) *Server {
	opts := ServerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Server{
		hub:     hub,
		history: opts.History,
		metrics: opts.Metrics,
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /ws", s.hub)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.hub.Clients()})
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	if s.history != nil {
		mux.HandleFunc("GET /runs", s.listRuns)
		mux.HandleFunc("GET /runs/{id}", s.getRun)
		mux.HandleFunc("GET /runs/{id}/events", s.listEvents)
	}

	return mux
}

// ListenAndServe serves Handler on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("stream.server.start", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.logger.Info("stream.server.stopped", "addr", addr)

	return nil
}

func (s *Server) listRuns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"runs": s.history.Runs()})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.history.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	after := 0
	if raw := r.URL.Query().Get("after"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "after must be a non-negative integer"})
			return
		}
		after = n
	}

	events, err := s.history.Events(r.PathValue("id"), after)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if events == nil {
		events = []core.RoundEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrRunNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Error("stream.request.failed", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
