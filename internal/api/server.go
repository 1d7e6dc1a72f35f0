// Package api serves the synchronous query surface: cost estimates and
// book health, plus metrics and liveness.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"cost_engine/internal/estimator"
	"cost_engine/internal/models"
)

type Server struct {
	engine *estimator.Engine
	log    zerolog.Logger
	mux    *http.ServeMux
}

func New(engine *estimator.Engine, log zerolog.Logger, metricsHandler http.Handler) *Server {
	s := &Server{engine: engine, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /estimate", s.handleEstimate)
	s.mux.HandleFunc("GET /book/state", s.handleBookState)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metricsHandler != nil {
		s.mux.Handle("GET /metrics", metricsHandler)
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	side, err := models.ParseSide(q.Get("side"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	size, err := strconv.ParseFloat(q.Get("size"), 64)
	if err != nil {
		s.badRequest(w, errors.New("size must be a number"))
		return
	}
	volume := 0.0
	if raw := q.Get("volume"); raw != "" {
		if volume, err = strconv.ParseFloat(raw, 64); err != nil {
			s.badRequest(w, errors.New("volume must be a number"))
			return
		}
	}

	req := models.CostRequest{
		Symbol:        q.Get("symbol"),
		Side:          side,
		Size:          size,
		MonthlyVolume: volume,
	}
	est, err := s.engine.Estimate(req)
	switch {
	case errors.Is(err, estimator.ErrBookNotReady):
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		s.badRequest(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleBookState(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		s.badRequest(w, errors.New("symbol is required"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"symbol": symbol,
		"state":  s.engine.BookState(symbol).String(),
	})
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.writeError(w, http.StatusBadRequest, err)
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("response encode failed")
	}
}
