package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"github.com/clusterml/master/internal/model"
	"github.com/clusterml/master/internal/specyaml"
)

// createJobRequest accepts either a structured Spec or a raw SpecYAML
// document; SpecYAML takes precedence when both are present.
type createJobRequest struct {
	Name     string            `json:"name"`
	Labels   map[string]string `json:"labels"`
	Spec     *model.JobSpec    `json:"spec"`
	SpecYAML string            `json:"spec_yaml"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid request body: "+err.Error())
		return
	}

	create := model.JobCreate{Name: req.Name, Labels: req.Labels, Spec: req.Spec}
	if req.SpecYAML != "" {
		parsed, err := specyaml.Parse(req.SpecYAML)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error())
			return
		}
		create = parsed
		if req.Name != "" {
			create.Name = req.Name
		}
	}
	if create.Spec == nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION", "job must include spec or spec_yaml")
		return
	}
	if n := utf8.RuneCountInString(create.Name); n < 1 || n > 128 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION", "name must be between 1 and 128 characters")
		return
	}
	if create.Spec.Resources.GPU < 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION", "resources.gpu must not be negative")
		return
	}

	job := s.jobs.Create(create)
	s.audit.RecordJobEvent(job.ID, nil, string(job.Status), "job_created")

	// Minimize queuing latency: try a synchronous match immediately
	// rather than waiting for the next periodic tick.
	s.sched.Trigger()
	job = s.jobs.Get(job.ID)

	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job := s.jobs.Get(id)
	if job == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var status *model.JobStatus
	if sp := q.Get("status"); sp != "" {
		st := model.JobStatus(sp)
		status = &st
	}

	limit := 100
	if lp := q.Get("limit"); lp != "" {
		if parsed, err := strconv.Atoi(lp); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}
	offset := 0
	if op := q.Get("offset"); op != "" {
		if parsed, err := strconv.Atoi(op); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	jobs := s.jobs.List(status, q.Get("label"), limit, offset)
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var update model.JobUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid request body: "+err.Error())
		return
	}

	before := s.jobs.Get(id)
	updated, err := s.jobs.Update(id, update)
	if err != nil {
		writeAPIErr(w, err)
		return
	}

	if update.Status != nil && before != nil {
		fromStatus := string(before.Status)
		s.audit.RecordJobEvent(id, &fromStatus, string(*update.Status), "user_update")
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	before := s.jobs.Get(id)
	if before == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}

	updated, err := s.jobs.Cancel(id)
	if err != nil {
		writeAPIErr(w, err)
		return
	}

	if updated.Status == model.JobStatusCancelled && !before.Status.IsTerminal() {
		fromStatus := string(before.Status)
		s.audit.RecordJobEvent(id, &fromStatus, string(updated.Status), "user_cancelled")
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleJobLogs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job := s.jobs.Get(id)
	if job == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"job_id": job.ID, "logs": job.Logs})
}

func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.Stats())
}
