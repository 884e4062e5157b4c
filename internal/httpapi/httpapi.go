// Package httpapi exposes the read-only HTTP surface a dashboard
// collaborator would poll: a health check and the last cached signal
// per symbol. Rendering a dashboard is out of scope; this is only the
// endpoint it would call.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sawpanic/alphacore/internal/cache"
)

// Server wraps a gorilla/mux router over the signal cache.
type Server struct {
	router *mux.Router
	cache  *cache.SignalCache
}

// New creates an httpapi Server backed by the given signal cache.
func New(signalCache *cache.SignalCache) *Server {
	s := &Server{router: mux.NewRouter(), cache: signalCache}
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/signals/{symbol}", s.handleSignal).Methods(http.MethodGet)
	return s
}

// Handler returns the configured router for use with http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	record, ok := s.cache.Get(context.Background(), symbol)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no signal cached for symbol"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}
