package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/clusterml/master/internal/apierr"
	"github.com/clusterml/master/internal/model"
)

func (s *Server) handleRegisterNode(w http.ResponseWriter, r *http.Request) {
	var req model.NodeRegister
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid request body: "+err.Error())
		return
	}
	if req.Hostname == "" || req.IPAddress == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION", "hostname and ip_address are required")
		return
	}

	node := s.nodes.Register(req)
	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	var status *model.NodeStatus
	if sp := r.URL.Query().Get("status"); sp != "" {
		st := model.NodeStatus(sp)
		status = &st
	}
	nodes := s.nodes.List(status)
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	node := s.nodes.Get(id)
	if node == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "node not found")
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.nodes.Remove(id) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "node not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req model.HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid request body: "+err.Error())
		return
	}
	if req.WorkerID == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION", "worker_id is required")
		return
	}

	resp, err := s.nodes.Heartbeat(req)
	if err != nil {
		if apiErr, ok := apierr.As(err); ok && apiErr.Kind == apierr.KindUnknownWorker {
			writeJSON(w, http.StatusNotFound, resp)
			return
		}
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClusterStatus(w http.ResponseWriter, r *http.Request) {
	nodes := s.nodes.List(nil)
	stats := s.jobs.Stats()

	status := model.ClusterStatus{
		TotalJobs:     sumInts(stats),
		RunningJobs:   stats[string(model.JobStatusRunning)],
		PendingJobs:   stats[string(model.JobStatusPending)] + stats[string(model.JobStatusQueued)],
		CompletedJobs: stats[string(model.JobStatusCompleted)],
		FailedJobs:    stats[string(model.JobStatusFailed)],
		TotalNodes:    len(nodes),
	}
	for _, n := range nodes {
		if n.Status != model.NodeStatusOnline {
			continue
		}
		status.OnlineNodes++
		status.TotalCPUCores += n.Resources.CPUCores
		status.TotalGPUCount += n.Resources.GPUCount
		status.TotalMemoryMB += n.Resources.MemoryTotalMB
	}

	writeJSON(w, http.StatusOK, status)
}

func sumInts(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}
