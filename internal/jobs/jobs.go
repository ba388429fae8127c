// Package jobs implements the Job Supervisor: lifecycle transitions and
// terminal-state protection layered on top of the Cluster Store.
package jobs

import (
	"time"

	"github.com/clusterml/master/internal/apierr"
	"github.com/clusterml/master/internal/model"
	"github.com/clusterml/master/internal/store"
)

// Supervisor manages job creation, update, cancellation, and the
// scheduler-only RUNNING/terminal transitions.
type Supervisor struct {
	store *store.ClusterStore
}

// New constructs a job Supervisor over the given store.
func New(s *store.ClusterStore) *Supervisor {
	return &Supervisor{store: s}
}

// Create stores a new job. The store writes PENDING, then this
// immediately advances it to QUEUED; only QUEUED is externally visible
// in the returned record.
func (m *Supervisor) Create(create model.JobCreate) *model.Job {
	job := m.store.CreateJob(create)
	queued := model.JobStatusQueued
	updated := m.store.UpdateJob(job.ID, store.JobPatch{Status: &queued})
	return updated
}

// Get returns a job by id, or nil if absent.
func (m *Supervisor) Get(id string) *model.Job {
	return m.store.GetJob(id)
}

// List returns jobs matching the optional status and label filters.
func (m *Supervisor) List(status *model.JobStatus, label string, limit, offset int) []*model.Job {
	return m.store.ListJobs(status, label, limit, offset)
}

// Update applies a JobUpdate, setting StartedAt on transition to
// RUNNING and CompletedAt on transition to a terminal state. Rejects
// any attempt to mutate Status on an already-terminal job.
func (m *Supervisor) Update(id string, update model.JobUpdate) (*model.Job, error) {
	existing := m.store.GetJob(id)
	if existing == nil {
		return nil, apierr.NotFound("job", id)
	}

	patch := store.JobPatch{}
	if update.Status != nil {
		if existing.Status.IsTerminal() {
			return nil, apierr.New(apierr.KindInvalidTransition, "job %s is in terminal state %s", id, existing.Status)
		}
		patch.Status = update.Status
		now := time.Now().UTC()
		switch *update.Status {
		case model.JobStatusRunning:
			patch.StartedAt = &now
		case model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusCancelled:
			patch.CompletedAt = &now
		}
	}
	if update.Result != nil {
		patch.Result = update.Result
	}
	if update.Logs != nil {
		patch.Logs = update.Logs
	}

	updated := m.store.UpdateJob(id, patch)
	if updated == nil {
		return nil, apierr.NotFound("job", id)
	}
	return updated, nil
}

// Cancel transitions a job to CANCELLED. Idempotent: a job already in a
// terminal state is returned unchanged.
func (m *Supervisor) Cancel(id string) (*model.Job, error) {
	existing := m.store.GetJob(id)
	if existing == nil {
		return nil, apierr.NotFound("job", id)
	}
	if existing.Status.IsTerminal() {
		return existing, nil
	}

	cancelled := model.JobStatusCancelled
	now := time.Now().UTC()
	return m.store.UpdateJob(id, store.JobPatch{Status: &cancelled, CompletedAt: &now}), nil
}

// MarkRunning transitions a job to RUNNING on the given worker. Invoked
// only by the Scheduler.
func (m *Supervisor) MarkRunning(id, workerID string) *model.Job {
	running := model.JobStatusRunning
	now := time.Now().UTC()
	return m.store.UpdateJob(id, store.JobPatch{
		Status:    &running,
		WorkerID:  &workerID,
		StartedAt: &now,
	})
}

// MarkCompleted transitions a job to COMPLETED with the given result.
func (m *Supervisor) MarkCompleted(id string, result map[string]interface{}) *model.Job {
	completed := model.JobStatusCompleted
	now := time.Now().UTC()
	return m.store.UpdateJob(id, store.JobPatch{
		Status:      &completed,
		CompletedAt: &now,
		Result:      result,
	})
}

// MarkFailed transitions a job to FAILED with the given error reason.
func (m *Supervisor) MarkFailed(id, reason string) *model.Job {
	failed := model.JobStatusFailed
	now := time.Now().UTC()
	return m.store.UpdateJob(id, store.JobPatch{
		Status:      &failed,
		CompletedAt: &now,
		Error:       &reason,
	})
}

// Stats returns job counts grouped by status name.
func (m *Supervisor) Stats() map[string]int {
	counts := m.store.CountJobsByStatus()
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	return out
}
