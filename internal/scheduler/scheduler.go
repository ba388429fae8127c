// Package scheduler implements the periodic FIFO resource-matching
// scheduler: the single producer of job-to-node assignments.
package scheduler

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/clusterml/master/internal/jobs"
	"github.com/clusterml/master/internal/model"
	"github.com/clusterml/master/internal/nodes"
	"github.com/clusterml/master/internal/resources"
	"github.com/clusterml/master/internal/store"
)

// Scheduler runs a single-producer periodic job-to-node matching pass.
// The timer loop and a manual Trigger() both funnel through tick, which
// is guarded by tickMu so the two never run concurrently (the
// single-writer invariant of node current_jobs and job RUNNING
// transitions).
type Scheduler struct {
	store *store.ClusterStore
	jobs  *jobs.Supervisor
	nodes *nodes.Supervisor

	interval time.Duration

	tickMu sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs a Scheduler. interval is the background tick period
// (spec default 5s).
func New(s *store.ClusterStore, j *jobs.Supervisor, n *nodes.Supervisor, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:    s,
		jobs:     j,
		nodes:    n,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background scheduling loop. It returns
// immediately; the loop runs until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.safeTick()
		}
	}
}

// safeTick runs one tick, logging and swallowing any panic so the loop
// never dies — the spec's INTERNAL error-containment policy for the
// scheduler.
func (s *Scheduler) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: tick panicked: %v", r)
		}
	}()
	s.Tick()
}

// Stop requests the background loop to exit and waits for it to do so.
// Idempotent.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
}

// Trigger runs one tick synchronously on the caller's goroutine. Used
// by the job-submission handler to minimize queuing latency.
func (s *Scheduler) Trigger() {
	s.safeTick()
}

// Tick performs one scheduling pass: check node timeouts, then try to
// match every queued job to a fitting node in FIFO order.
func (s *Scheduler) Tick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	timedOut := s.nodes.CheckTimeouts()
	if len(timedOut) > 0 {
		log.Printf("scheduler: %d node(s) timed out", len(timedOut))
	}

	candidates := s.candidateJobs()
	if len(candidates) == 0 {
		return
	}

	available := s.store.GetAvailableNodes()
	if len(available) == 0 {
		log.Printf("scheduler: %d job(s) queued but no nodes available", len(candidates))
		return
	}

	scheduled := 0
	for _, job := range candidates {
		node := s.findFittingNode(job, available)
		if node == nil {
			continue
		}

		s.assign(job, node)
		scheduled++

		if len(node.CurrentJobs)+1 >= node.MaxConcurrentJobs {
			available = removeNode(available, node.ID)
		} else {
			node.CurrentJobs = append(node.CurrentJobs, job.ID)
		}
	}
	log.Printf("scheduler: tick scheduled %d of %d queued job(s)", scheduled, len(candidates))
}

// candidateJobs returns PENDING/QUEUED jobs sorted FIFO by CreatedAt,
// ties broken on JobID to give a deterministic, documented order.
func (s *Scheduler) candidateJobs() []*model.Job {
	pending := model.JobStatusPending
	queued := model.JobStatusQueued

	all := append(s.store.ListJobs(&pending, "", 0, 0), s.store.ListJobs(&queued, "", 0, 0)...)
	sort.Slice(all, func(i, k int) bool {
		if all[i].CreatedAt.Equal(all[k].CreatedAt) {
			return all[i].ID < all[k].ID
		}
		return all[i].CreatedAt.Before(all[k].CreatedAt)
	})
	return all
}

// findFittingNode returns the first node (in available's order) whose
// capacity satisfies job's requirements, or nil.
func (s *Scheduler) findFittingNode(job *model.Job, available []*model.Node) *model.Node {
	for _, node := range available {
		availCPU := float64(node.Resources.CPUCores)
		availMem := float64(node.Resources.MemoryTotalMB - node.Resources.MemoryUsedMB)
		availGPU := node.Resources.GPUCount - s.gpuJobsAssigned(node)

		fits, reason, err := resources.CheckResourcesFit(
			job.Spec.Resources.CPU,
			job.Spec.Resources.Memory,
			job.Spec.Resources.GPU,
			availCPU, availMem, availGPU,
		)
		if err != nil {
			log.Printf("scheduler: job %s has invalid resource quantity, staying queued: %v", job.ID, err)
			return nil
		}
		if fits {
			return node
		}
		log.Printf("scheduler: job %s does not fit node %s: %s", job.ID, node.ID, reason)
	}
	return nil
}

// gpuJobsAssigned counts jobs currently assigned to node that request
// at least one GPU, treating each as consuming exactly one GPU
// regardless of how many it requested (documented approximation, see
// DESIGN.md).
func (s *Scheduler) gpuJobsAssigned(node *model.Node) int {
	count := 0
	for _, id := range node.CurrentJobs {
		j := s.store.GetJob(id)
		if j != nil && j.Spec.Resources.GPU > 0 {
			count++
		}
	}
	return count
}

// assign marks job RUNNING on node, then persists the node's updated
// current_jobs and starts the pair's heartbeat grace window. These are
// separate store writes, so a concurrent reader can briefly observe the
// job RUNNING before it appears in its node's current_jobs.
func (s *Scheduler) assign(job *model.Job, node *model.Node) {
	s.jobs.MarkRunning(job.ID, node.ID)

	updatedJobs := append(append([]string(nil), node.CurrentJobs...), job.ID)
	s.store.UpdateNode(node.ID, store.NodePatch{CurrentJobs: &updatedJobs})
	s.nodes.RecordAssignment(node.ID, job.ID)

	log.Printf("scheduler: assigned job %s (%s) to node %s (%s)", job.ID, job.Name, node.ID, node.Hostname)
}

func removeNode(nodes []*model.Node, id string) []*model.Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}
