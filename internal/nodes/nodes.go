// Package nodes implements the Node Supervisor: registration, heartbeat
// ingestion, and liveness-timeout eviction.
package nodes

import (
	"log"
	"sync"
	"time"

	"github.com/clusterml/master/internal/apierr"
	"github.com/clusterml/master/internal/model"
	"github.com/clusterml/master/internal/store"
)

// Supervisor manages worker node lifecycle: register, heartbeat, timeout.
type Supervisor struct {
	store             *store.ClusterStore
	nodeTimeout       time.Duration
	maxConcurrentJobs int

	// assignMu and recentAssignments implement the heartbeat/scheduler
	// grace window from spec.md §5: a heartbeat must not silently drop
	// a job id the scheduler assigned less than graceWindow ago, since
	// the worker may simply not have observed it yet.
	assignMu          sync.Mutex
	recentAssignments map[string]map[string]time.Time // nodeID -> jobID -> assigned-at
	graceWindow       time.Duration
}

// New constructs a Node Supervisor. nodeTimeout is the duration of
// missed heartbeats after which an ONLINE node is marked OFFLINE.
// schedulerInterval sizes the heartbeat/scheduler race grace window
// (2x the scheduler interval, per spec.md §5).
func New(s *store.ClusterStore, nodeTimeout, schedulerInterval time.Duration, maxConcurrentJobs int) *Supervisor {
	return &Supervisor{
		store:             s,
		nodeTimeout:       nodeTimeout,
		maxConcurrentJobs: maxConcurrentJobs,
		recentAssignments: make(map[string]map[string]time.Time),
		graceWindow:       2 * schedulerInterval,
	}
}

// Register delegates to the store and returns the full node record.
func (m *Supervisor) Register(reg model.NodeRegister) *model.Node {
	return m.store.RegisterNode(reg, m.maxConcurrentJobs)
}

// RecordAssignment notes that the scheduler just appended jobID to
// nodeID's current_jobs, starting this node/job pair's grace window.
func (m *Supervisor) RecordAssignment(nodeID, jobID string) {
	now := time.Now().UTC()
	m.assignMu.Lock()
	defer m.assignMu.Unlock()
	if m.recentAssignments[nodeID] == nil {
		m.recentAssignments[nodeID] = make(map[string]time.Time)
	}
	m.recentAssignments[nodeID][jobID] = now
}

// protectedJobs returns the job ids assigned to nodeID within the grace
// window, pruning expired entries as it goes.
func (m *Supervisor) protectedJobs(nodeID string) []string {
	m.assignMu.Lock()
	defer m.assignMu.Unlock()

	byJob := m.recentAssignments[nodeID]
	if len(byJob) == 0 {
		return nil
	}
	now := time.Now().UTC()
	var protected []string
	for jobID, at := range byJob {
		if now.Sub(at) > m.graceWindow {
			delete(byJob, jobID)
			continue
		}
		protected = append(protected, jobID)
	}
	if len(byJob) == 0 {
		delete(m.recentAssignments, nodeID)
	}
	return protected
}

// Heartbeat processes a worker's periodic report. If the worker is not
// registered, no mutation occurs and acknowledged=false is returned so
// the caller can map it to the UNKNOWN_WORKER error. Otherwise the
// node's last_heartbeat, resources, and current_jobs are refreshed and
// status is healed to ONLINE.
func (m *Supervisor) Heartbeat(req model.HeartbeatRequest) (model.HeartbeatResponse, error) {
	node := m.store.GetNode(req.WorkerID)
	if node == nil {
		return model.HeartbeatResponse{Acknowledged: false}, apierr.New(apierr.KindUnknownWorker, "worker %s not registered", req.WorkerID)
	}

	activeJobs := mergeProtected(req.ActiveJobs, m.protectedJobs(req.WorkerID))

	now := time.Now().UTC()
	online := model.NodeStatusOnline
	resources := req.Resources
	m.store.UpdateNode(req.WorkerID, store.NodePatch{
		Status:        &online,
		Resources:     &resources,
		CurrentJobs:   &activeJobs,
		LastHeartbeat: &now,
	})

	return model.HeartbeatResponse{
		Acknowledged: true,
		AssignedJobs: []model.JobAssignment{},
		Commands:     []string{},
	}, nil
}

// mergeProtected returns reported with any protected job id appended
// that reported is missing, preserving reported's order and avoiding
// duplicates.
func mergeProtected(reported, protected []string) []string {
	if len(protected) == 0 {
		return append([]string(nil), reported...)
	}
	present := make(map[string]bool, len(reported))
	for _, id := range reported {
		present[id] = true
	}
	merged := append([]string(nil), reported...)
	for _, id := range protected {
		if !present[id] {
			merged = append(merged, id)
		}
	}
	return merged
}

// CheckTimeouts transitions every ONLINE node whose last_heartbeat is
// older than nodeTimeout to OFFLINE, returning the ids transitioned. A
// node that has never heartbeated since registration is exempt: the
// registration-to-first-heartbeat grace period is unbounded.
func (m *Supervisor) CheckTimeouts() []string {
	online := model.NodeStatusOnline
	nodes := m.store.ListNodes(&online)

	now := time.Now().UTC()
	var timedOut []string
	offline := model.NodeStatusOffline
	for _, n := range nodes {
		if n.LastHeartbeat == nil {
			continue
		}
		if now.Sub(*n.LastHeartbeat) > m.nodeTimeout {
			m.store.UpdateNode(n.ID, store.NodePatch{Status: &offline})
			log.Printf("node %s (%s) timed out after %s", n.ID, n.Hostname, now.Sub(*n.LastHeartbeat))
			timedOut = append(timedOut, n.ID)
		}
	}
	return timedOut
}

// Get returns a node by id, or nil if absent.
func (m *Supervisor) Get(id string) *model.Node {
	return m.store.GetNode(id)
}

// List returns nodes matching the optional status filter.
func (m *Supervisor) List(status *model.NodeStatus) []*model.Node {
	return m.store.ListNodes(status)
}

// Remove deletes a node from the registry.
func (m *Supervisor) Remove(id string) bool {
	return m.store.RemoveNode(id)
}
