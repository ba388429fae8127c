// Package workerapi documents the narrow contract a worker agent must
// satisfy to participate in this cluster. The master never calls these
// interfaces directly — workers run in a separate process and reach the
// master only through the HTTP register/heartbeat/update endpoints —
// but the contract lives here so job specs (notably Distributed) have a
// single authoritative description of what a compliant worker does with
// them.
package workerapi

import (
	"context"

	"github.com/clusterml/master/internal/model"
)

// JobReporter is implemented by a worker agent: it runs a job locally
// and reports status back to the master via PUT /api/v1/jobs/{id} and
// POST /api/v1/nodes/heartbeat.
type JobReporter interface {
	// Run executes spec and blocks until it finishes or ctx is
	// cancelled (job cancellation propagated from the master).
	Run(ctx context.Context, jobID string, spec model.JobSpec) error

	// Logs returns the job's captured stdout/stderr so far.
	Logs(jobID string) (string, error)
}

// DistributedLauncher is implemented by a worker agent capable of
// bringing up a multi-worker distributed job (spec.Distributed != nil).
// Frameworks such as PyTorch DDP, Horovod, or TensorFlow MultiWorker
// each require their own rendezvous and launch-script generation; the
// master only records DistributedConfig.Workers/Type and leaves the
// setup itself to the worker's implementation of this interface.
type DistributedLauncher interface {
	// LaunchGroup starts a coordinated group of worker processes for
	// one distributed job, returning once rendezvous is established.
	LaunchGroup(ctx context.Context, jobID string, cfg model.DistributedConfig, peers []string) error
}
