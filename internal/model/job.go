// Package model defines the data types shared across the master: jobs,
// nodes, and the request/response shapes of the REST API.
package model

import "time"

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether status is one of the absorbing end states.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// ResourceRequirements are the resources a job asks for. CPU and Memory
// are string-typed quantities parsed by package resources at scheduling
// time (e.g. "4", "4000m", "16Gi", "512Mi").
type ResourceRequirements struct {
	CPU    string `json:"cpu" yaml:"cpu"`
	Memory string `json:"memory" yaml:"memory"`
	GPU    int    `json:"gpu" yaml:"gpu"`
}

// EnvVar is a single environment variable entry in a job spec.
type EnvVar struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// VolumeMount describes a volume to mount into the job's container.
type VolumeMount struct {
	Name      string `json:"name" yaml:"name"`
	MountPath string `json:"mountPath" yaml:"mountPath"`
	Source    string `json:"source" yaml:"source"`
}

// DistributedConfig describes a multi-worker distributed training job.
// The field is carried through the system but not acted on: the
// scheduler does not gang-schedule the requested replica count.
type DistributedConfig struct {
	Workers int    `json:"workers" yaml:"workers"`
	Type    string `json:"type" yaml:"type"`
}

// JobSpec is the immutable definition of what a job runs.
type JobSpec struct {
	Image       string               `json:"image" yaml:"image"`
	Command     []string             `json:"command" yaml:"command"`
	Args        []string             `json:"args" yaml:"args"`
	Resources   ResourceRequirements `json:"resources" yaml:"resources"`
	Env         []EnvVar             `json:"env" yaml:"env"`
	Volumes     []VolumeMount        `json:"volumes" yaml:"volumes"`
	Distributed *DistributedConfig   `json:"distributed,omitempty" yaml:"distributed,omitempty"`
}

// JobCreate is the request body for submitting a new job.
type JobCreate struct {
	Name     string            `json:"name"`
	Labels   map[string]string `json:"labels"`
	Spec     *JobSpec          `json:"spec"`
	SpecYAML string            `json:"spec_yaml,omitempty"`
}

// JobUpdate is the request body for PUT /jobs/{id}.
type JobUpdate struct {
	Status *JobStatus             `json:"status,omitempty"`
	Result map[string]interface{} `json:"result,omitempty"`
	Logs   *string                `json:"logs,omitempty"`
}

// Job is the full record stored by the master for a submitted job.
//
// Invariants (enforced by package jobs / package store):
//   - WorkerID is set when the scheduler marks the job RUNNING and
//     persists through terminal states; a RUNNING status written through
//     a JobUpdate leaves it unset.
//   - StartedAt is set on first transition into RUNNING and never cleared.
//   - CompletedAt is set on entry to any terminal state and never cleared.
//   - Once Status is terminal, Status/StartedAt/CompletedAt never change again.
type Job struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Labels      map[string]string      `json:"labels"`
	Spec        JobSpec                `json:"spec"`
	Status      JobStatus              `json:"status"`
	WorkerID    *string                `json:"worker_id,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Logs        string                 `json:"logs,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// Clone returns a deep-enough copy of the job so that a caller holding
// onto a snapshot never observes a later mutation (no torn reads).
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Labels = cloneStringMap(j.Labels)
	cp.Spec.Command = append([]string(nil), j.Spec.Command...)
	cp.Spec.Args = append([]string(nil), j.Spec.Args...)
	cp.Spec.Env = append([]EnvVar(nil), j.Spec.Env...)
	cp.Spec.Volumes = append([]VolumeMount(nil), j.Spec.Volumes...)
	if j.Spec.Distributed != nil {
		d := *j.Spec.Distributed
		cp.Spec.Distributed = &d
	}
	if j.WorkerID != nil {
		w := *j.WorkerID
		cp.WorkerID = &w
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	if j.Result != nil {
		r := make(map[string]interface{}, len(j.Result))
		for k, v := range j.Result {
			r[k] = v
		}
		cp.Result = r
	}
	return &cp
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
