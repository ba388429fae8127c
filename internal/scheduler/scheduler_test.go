package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterml/master/internal/jobs"
	"github.com/clusterml/master/internal/model"
	"github.com/clusterml/master/internal/nodes"
	"github.com/clusterml/master/internal/store"
)

func newHarness(nodeTimeout, interval time.Duration) (*store.ClusterStore, *jobs.Supervisor, *nodes.Supervisor, *Scheduler) {
	s := store.New()
	j := jobs.New(s)
	n := nodes.New(s, nodeTimeout, interval, 2)
	sched := New(s, j, n, interval)
	return s, j, n, sched
}

func registerNode(t *testing.T, n *nodes.Supervisor, cpu, memMB, gpu int) *model.Node {
	t.Helper()
	node := n.Register(model.NodeRegister{
		Hostname:  "host-" + time.Now().String(),
		IPAddress: "10.0.0.1",
		Port:      8081,
		Resources: model.ResourceInfo{
			CPUCores:      cpu,
			MemoryTotalMB: memMB,
			GPUCount:      gpu,
		},
	})
	return node
}

func submitJob(t *testing.T, j *jobs.Supervisor, name, cpu, mem string, gpu int) *model.Job {
	t.Helper()
	job := j.Create(model.JobCreate{
		Name: name,
		Spec: &model.JobSpec{
			Resources: model.ResourceRequirements{CPU: cpu, Memory: mem, GPU: gpu},
		},
	})
	require.Equal(t, model.JobStatusQueued, job.Status)
	return job
}

func TestScheduleGPUJobToGPUNode(t *testing.T) {
	_, j, n, sched := newHarness(90*time.Second, 5*time.Second)
	node := registerNode(t, n, 16, 65536, 4)
	job := submitJob(t, j, "train", "4", "8Gi", 1)

	sched.Tick()

	got := j.Get(job.ID)
	require.Equal(t, model.JobStatusRunning, got.Status)
	require.NotNil(t, got.WorkerID)
	assert.Equal(t, node.ID, *got.WorkerID)

	gotNode := n.Get(node.ID)
	assert.Contains(t, gotNode.CurrentJobs, job.ID)
}

func TestScheduleNoNodesStaysQueued(t *testing.T) {
	_, j, _, sched := newHarness(90*time.Second, 5*time.Second)
	job := submitJob(t, j, "train", "4", "8Gi", 1)

	sched.Tick()

	got := j.Get(job.ID)
	assert.Equal(t, model.JobStatusQueued, got.Status)
	assert.Nil(t, got.WorkerID)
}

func TestScheduleInsufficientGPUThenFits(t *testing.T) {
	_, j, n, sched := newHarness(90*time.Second, 5*time.Second)
	registerNode(t, n, 2, 4096, 0)
	job := submitJob(t, j, "train", "1", "1Gi", 1)

	sched.Tick()
	assert.Equal(t, model.JobStatusQueued, j.Get(job.ID).Status)

	registerNode(t, n, 8, 8192, 2)
	sched.Tick()

	assert.Equal(t, model.JobStatusRunning, j.Get(job.ID).Status)
}

func TestFIFOFairnessSingleNode(t *testing.T) {
	_, j, n, sched := newHarness(90*time.Second, 5*time.Second)
	registerNode(t, n, 4, 8192, 0)

	j1 := submitJob(t, j, "first", "4", "8Gi", 0)
	time.Sleep(time.Millisecond)
	submitJob(t, j, "second", "4", "8Gi", 0)

	sched.Tick()

	first := j.Get(j1.ID)
	assert.Equal(t, model.JobStatusRunning, first.Status)
}

func TestCancelTerminalIsNoOp(t *testing.T) {
	_, j, _, _ := newHarness(90*time.Second, 5*time.Second)
	job := j.Create(model.JobCreate{Name: "x", Spec: &model.JobSpec{}})
	j.MarkCompleted(job.ID, map[string]interface{}{"accuracy": 0.95})

	updated, err := j.Cancel(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, updated.Status)
	assert.Equal(t, 0.95, updated.Result["accuracy"])
}
