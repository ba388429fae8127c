package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterml/master/internal/model"
)

func TestCreateJobStartsPending(t *testing.T) {
	s := New()
	job := s.CreateJob(model.JobCreate{Name: "j1"})
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestListJobsFiltersByLabel(t *testing.T) {
	s := New()
	s.CreateJob(model.JobCreate{Name: "a", Labels: map[string]string{"team": "ml"}})
	s.CreateJob(model.JobCreate{Name: "b", Labels: map[string]string{"team": "infra"}})
	s.CreateJob(model.JobCreate{Name: "c", Labels: map[string]string{"team": "ml", "env": "prod"}})

	got := s.ListJobs(nil, "team=ml", 100, 0)
	assert.Len(t, got, 2)

	got = s.ListJobs(nil, "env", 100, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Name)
}

func TestListJobsSortedByCreatedAtDescending(t *testing.T) {
	s := New()
	j1 := s.CreateJob(model.JobCreate{Name: "first"})
	j2 := s.CreateJob(model.JobCreate{Name: "second"})

	got := s.ListJobs(nil, "", 100, 0)
	require.Len(t, got, 2)
	assert.Equal(t, j2.ID, got[0].ID)
	assert.Equal(t, j1.ID, got[1].ID)
}

func TestNodeIdentityStability(t *testing.T) {
	s := New()
	n1 := s.RegisterNode(model.NodeRegister{Hostname: "w1", IPAddress: "10.0.0.1"}, 2)

	patched := s.UpdateNode(n1.ID, NodePatch{CurrentJobs: &[]string{"job-1"}})
	require.NotNil(t, patched)

	n2 := s.RegisterNode(model.NodeRegister{Hostname: "w1", IPAddress: "10.0.0.1"}, 2)
	assert.Equal(t, n1.ID, n2.ID)
	assert.Equal(t, []string{"job-1"}, n2.CurrentJobs)
	assert.Equal(t, model.NodeStatusOnline, n2.Status)
}

func TestNodeIdentityDiffersOnNewTuple(t *testing.T) {
	s := New()
	n1 := s.RegisterNode(model.NodeRegister{Hostname: "w1", IPAddress: "10.0.0.1"}, 2)
	n2 := s.RegisterNode(model.NodeRegister{Hostname: "w1", IPAddress: "10.0.0.2"}, 2)
	assert.NotEqual(t, n1.ID, n2.ID)
}

func TestGetAvailableNodesExcludesFullAndOffline(t *testing.T) {
	s := New()
	full := s.RegisterNode(model.NodeRegister{Hostname: "full", IPAddress: "10.0.0.1"}, 1)
	s.UpdateNode(full.ID, NodePatch{CurrentJobs: &[]string{"job-1"}})

	offline := s.RegisterNode(model.NodeRegister{Hostname: "offline", IPAddress: "10.0.0.2"}, 2)
	offlineStatus := model.NodeStatusOffline
	s.UpdateNode(offline.ID, NodePatch{Status: &offlineStatus})

	s.RegisterNode(model.NodeRegister{Hostname: "ok", IPAddress: "10.0.0.3"}, 2)

	available := s.GetAvailableNodes()
	require.Len(t, available, 1)
	assert.Equal(t, "ok", available[0].Hostname)
}

func TestSnapshotsDoNotTear(t *testing.T) {
	s := New()
	job := s.CreateJob(model.JobCreate{Name: "j"})

	snap := s.GetJob(job.ID)
	running := model.JobStatusRunning
	s.UpdateJob(job.ID, JobPatch{Status: &running})

	assert.Equal(t, model.JobStatusPending, snap.Status, "snapshot must not observe later mutation")
}
