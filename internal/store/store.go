// Package store implements the Cluster Store: the authoritative,
// concurrency-safe in-memory registry of jobs and nodes. It is the
// single source of truth the rest of the master consults and mutates.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clusterml/master/internal/model"
)

// ClusterStore holds jobs and nodes behind a single coarse lock.
// Compound mutations (create, patch, register, remove) take the write
// lock. Point reads take the read lock and always return clones, so a
// caller never observes a record torn between pre- and post-mutation
// field values.
type ClusterStore struct {
	mu    sync.RWMutex
	jobs  map[string]*model.Job
	nodes map[string]*model.Node
}

// New constructs an empty ClusterStore.
func New() *ClusterStore {
	return &ClusterStore{
		jobs:  make(map[string]*model.Job),
		nodes: make(map[string]*model.Node),
	}
}

// ─── Job operations ─────────────────────────────────────────────────────

// CreateJob assigns a fresh id, sets status=PENDING and created_at=now,
// stores the job, and returns a copy of it.
func (s *ClusterStore) CreateJob(create model.JobCreate) *model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &model.Job{
		ID:        uuid.NewString(),
		Name:      create.Name,
		Labels:    create.Labels,
		Status:    model.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if create.Spec != nil {
		job.Spec = *create.Spec
	}
	s.jobs[job.ID] = job
	return job.Clone()
}

// GetJob returns a copy of the job, or nil if absent.
func (s *ClusterStore) GetJob(id string) *model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id].Clone()
}

// JobPatch is an all-optional partial update applied to a stored job.
// Only non-nil fields are written; this replaces the dynamic
// kwargs/setattr dispatch of the original with an explicit, typed
// contract that cannot silently drop an unrecognized field.
type JobPatch struct {
	Status      *model.JobStatus
	WorkerID    *string
	Result      map[string]interface{}
	Logs        *string
	Error       *string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// UpdateJob applies patch to the stored job and returns the updated
// copy, or nil if the job does not exist. Once a job is terminal its
// Status, StartedAt and CompletedAt are left as they are; the other
// patch fields are still applied.
func (s *ClusterStore) UpdateJob(id string, patch JobPatch) *model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	terminal := job.Status.IsTerminal()
	if patch.Status != nil && !terminal {
		job.Status = *patch.Status
	}
	if patch.WorkerID != nil {
		job.WorkerID = patch.WorkerID
	}
	if patch.Result != nil {
		job.Result = patch.Result
	}
	if patch.Logs != nil {
		job.Logs = *patch.Logs
	}
	if patch.Error != nil {
		job.Error = *patch.Error
	}
	if patch.StartedAt != nil && !terminal {
		job.StartedAt = patch.StartedAt
	}
	if patch.CompletedAt != nil && !terminal {
		job.CompletedAt = patch.CompletedAt
	}
	return job.Clone()
}

// ListJobs returns a snapshot of jobs filtered by optional status and
// label selector ("key=value" or bare "key"), sorted by created_at
// descending, then sliced [offset : offset+limit]. A limit <= 0 returns
// every job from offset on.
func (s *ClusterStore) ListJobs(status *model.JobStatus, label string, limit, offset int) []*model.Job {
	s.mu.RLock()
	all := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		all = append(all, j.Clone())
	}
	s.mu.RUnlock()

	filtered := all[:0]
	for _, j := range all {
		if status != nil && j.Status != *status {
			continue
		}
		if label != "" && !matchesLabel(j.Labels, label) {
			continue
		}
		filtered = append(filtered, j)
	}

	sort.Slice(filtered, func(i, k int) bool {
		return filtered[i].CreatedAt.After(filtered[k].CreatedAt)
	})

	if offset >= len(filtered) {
		return []*model.Job{}
	}
	end := offset + limit
	if end > len(filtered) || limit <= 0 {
		end = len(filtered)
	}
	return filtered[offset:end]
}

func matchesLabel(labels map[string]string, selector string) bool {
	key, value, hasValue := strings.Cut(selector, "=")
	if hasValue {
		return labels[key] == value
	}
	_, ok := labels[key]
	return ok
}

// CountJobsByStatus returns the number of jobs in each status.
func (s *ClusterStore) CountJobsByStatus() map[model.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[model.JobStatus]int)
	for _, j := range s.jobs {
		counts[j.Status]++
	}
	return counts
}

// ─── Node operations ────────────────────────────────────────────────────

const defaultMaxConcurrentJobs = 2

// RegisterNode registers a worker, or re-registers an existing one.
// Identity for re-registration is the (hostname, ip_address) tuple: a
// match reuses the existing node id and current_jobs, refreshing the
// mutable fields; no match mints a new node.
func (s *ClusterStore) RegisterNode(reg model.NodeRegister, maxConcurrentJobs int) *model.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, n := range s.nodes {
		if n.Hostname == reg.Hostname && n.IPAddress == reg.IPAddress {
			n.Status = model.NodeStatusOnline
			n.Resources = reg.Resources
			n.Labels = reg.Labels
			n.LastHeartbeat = &now
			n.Version = reg.Version
			return n.Clone()
		}
	}

	if maxConcurrentJobs <= 0 {
		maxConcurrentJobs = defaultMaxConcurrentJobs
	}
	node := &model.Node{
		ID:                uuid.NewString(),
		Hostname:          reg.Hostname,
		IPAddress:         reg.IPAddress,
		Port:              reg.Port,
		Status:            model.NodeStatusOnline,
		Resources:         reg.Resources,
		Labels:            reg.Labels,
		CurrentJobs:       []string{},
		MaxConcurrentJobs: maxConcurrentJobs,
		RegisteredAt:      now,
		Version:           reg.Version,
	}
	s.nodes[node.ID] = node
	return node.Clone()
}

// GetNode returns a copy of the node, or nil if absent.
func (s *ClusterStore) GetNode(id string) *model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[id].Clone()
}

// NodePatch is an all-optional partial update applied to a stored node.
type NodePatch struct {
	Status        *model.NodeStatus
	Resources     *model.ResourceInfo
	Labels        map[string]string
	CurrentJobs   *[]string
	LastHeartbeat *time.Time
	Version       *string
}

// UpdateNode applies patch to the stored node and returns the updated
// copy, or nil if the node does not exist.
func (s *ClusterStore) UpdateNode(id string, patch NodePatch) *model.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil
	}
	if patch.Status != nil {
		node.Status = *patch.Status
	}
	if patch.Resources != nil {
		node.Resources = *patch.Resources
	}
	if patch.Labels != nil {
		node.Labels = patch.Labels
	}
	if patch.CurrentJobs != nil {
		node.CurrentJobs = *patch.CurrentJobs
	}
	if patch.LastHeartbeat != nil {
		node.LastHeartbeat = patch.LastHeartbeat
	}
	if patch.Version != nil {
		node.Version = *patch.Version
	}
	return node.Clone()
}

// RemoveNode deletes a node from the registry, reporting whether it existed.
func (s *ClusterStore) RemoveNode(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return false
	}
	delete(s.nodes, id)
	return true
}

// ListNodes returns a snapshot of nodes, optionally filtered by status,
// sorted by registered_at descending.
func (s *ClusterStore) ListNodes(status *model.NodeStatus) []*model.Node {
	s.mu.RLock()
	all := make([]*model.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		all = append(all, n.Clone())
	}
	s.mu.RUnlock()

	filtered := all[:0]
	for _, n := range all {
		if status != nil && n.Status != *status {
			continue
		}
		filtered = append(filtered, n)
	}
	sort.Slice(filtered, func(i, k int) bool {
		return filtered[i].RegisteredAt.After(filtered[k].RegisteredAt)
	})
	return filtered
}

// GetAvailableNodes returns every node that is online and below its
// max_concurrent_jobs capacity, in ListNodes order.
func (s *ClusterStore) GetAvailableNodes() []*model.Node {
	online := model.NodeStatusOnline
	nodes := s.ListNodes(&online)
	available := nodes[:0]
	for _, n := range nodes {
		if n.HasCapacity() {
			available = append(available, n)
		}
	}
	return available
}
