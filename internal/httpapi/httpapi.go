// Package httpapi wires the REST surface of the master: job and node
// endpoints, the X-API-Key auth gate, and CORS.
package httpapi

import (
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/clusterml/master/internal/audit"
	"github.com/clusterml/master/internal/jobs"
	"github.com/clusterml/master/internal/nodes"
	"github.com/clusterml/master/internal/scheduler"
)

// Server exposes the master's REST API over a *mux.Router.
type Server struct {
	jobs   *jobs.Supervisor
	nodes  *nodes.Supervisor
	sched  *scheduler.Scheduler
	audit  *audit.Sink
	apiKey string
}

// NewServer constructs the HTTP server. apiKey is the shared secret
// checked against the X-API-Key header on every /api/v1 request when
// non-empty (/health is not checked); an empty apiKey disables auth
// (used in DEV_MODE).
func NewServer(j *jobs.Supervisor, n *nodes.Supervisor, sched *scheduler.Scheduler, auditSink *audit.Sink, apiKey string) *Server {
	return &Server{jobs: j, nodes: n, sched: sched, audit: auditSink, apiKey: apiKey}
}

// Router builds the full *mux.Router, including CORS and auth
// middleware, ready to hand to http.Server.
func (s *Server) Router(corsOrigins []string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/jobs", s.handleCreateJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/stats", s.handleJobStats).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleUpdateJob).Methods(http.MethodPut)
	api.HandleFunc("/jobs/{id}", s.handleCancelJob).Methods(http.MethodDelete)
	api.HandleFunc("/jobs/{id}/logs", s.handleJobLogs).Methods(http.MethodGet)

	api.HandleFunc("/nodes", s.handleRegisterNode).Methods(http.MethodPost)
	api.HandleFunc("/nodes", s.handleListNodes).Methods(http.MethodGet)
	api.HandleFunc("/nodes/status", s.handleClusterStatus).Methods(http.MethodGet)
	api.HandleFunc("/nodes/{id}", s.handleGetNode).Methods(http.MethodGet)
	api.HandleFunc("/nodes/{id}", s.handleRemoveNode).Methods(http.MethodDelete)
	api.HandleFunc("/nodes/heartbeat", s.handleHeartbeat).Methods(http.MethodPost)

	corsHandler := handlers.CORS(
		handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "X-API-Key"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedOrigins(corsOrigins),
	)

	return handlers.LoggingHandler(log.Writer(), corsHandler(r))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
