package control

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"scopecam/focus"
	"scopecam/logging"
	"scopecam/pipeline"
)

// SnapshotTaker is the part of a pipeline session the API drives.
type SnapshotTaker interface {
	Snapshot() (pipeline.SnapshotResult, error)
	Status() pipeline.Status
}

// APIResponse is the envelope for every JSON reply.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server exposes snapshot and status endpoints over HTTP.
type Server struct {
	taker  SnapshotTaker
	logger *zap.Logger
	http   *http.Server
}

func NewServer(addr string, taker SnapshotTaker, logger *zap.Logger) *Server {
	s := &Server{
		taker:  taker,
		logger: logging.OrNop(logger).Named("control"),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the route table; exposed for tests.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	// Add CORS middleware
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods("POST", "OPTIONS")
	api.HandleFunc("/status", s.handleStatus).Methods("GET", "OPTIONS")

	return router
}

// Start listens in the background. It returns once the socket is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("control API listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control API stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	res, err := s.taker.Snapshot()
	switch {
	case errors.Is(err, focus.ErrEmptyBuffer):
		s.writeJSON(w, http.StatusConflict, APIResponse{
			Success: false,
			Message: "No frames buffered yet",
			Error:   err.Error(),
		})
	case err != nil:
		s.logger.Error("snapshot failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, APIResponse{
			Success: false,
			Message: "Snapshot failed",
			Error:   err.Error(),
		})
	default:
		s.writeJSON(w, http.StatusOK, APIResponse{
			Success: true,
			Message: "Snapshot saved",
			Data:    res,
		})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: "Pipeline status",
		Data:    s.taker.Status(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Warn("failed to encode response", zap.Int("status", code), zap.Error(err))
	}
}
