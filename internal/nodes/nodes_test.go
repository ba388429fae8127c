package nodes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterml/master/internal/apierr"
	"github.com/clusterml/master/internal/model"
	"github.com/clusterml/master/internal/store"
)

func TestHeartbeatFromUnknownWorker(t *testing.T) {
	s := store.New()
	sup := New(s, 90*time.Second, 5*time.Second, 2)

	resp, err := sup.Heartbeat(model.HeartbeatRequest{WorkerID: "ghost"})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindUnknownWorker, apiErr.Kind)
	assert.False(t, resp.Acknowledged)
}

func TestHeartbeatHealsOfflineNode(t *testing.T) {
	s := store.New()
	sup := New(s, 90*time.Second, 5*time.Second, 2)

	node := sup.Register(model.NodeRegister{Hostname: "w1", IPAddress: "10.0.0.1"})
	offline := model.NodeStatusOffline
	s.UpdateNode(node.ID, store.NodePatch{Status: &offline})

	resp, err := sup.Heartbeat(model.HeartbeatRequest{WorkerID: node.ID, ActiveJobs: []string{}})
	require.NoError(t, err)
	assert.True(t, resp.Acknowledged)

	assert.Equal(t, model.NodeStatusOnline, sup.Get(node.ID).Status)
}

func TestCheckTimeoutsTransitionsStaleNode(t *testing.T) {
	s := store.New()
	sup := New(s, 50*time.Millisecond, 5*time.Second, 2)
	node := sup.Register(model.NodeRegister{Hostname: "w1", IPAddress: "10.0.0.1"})

	past := time.Now().UTC().Add(-time.Hour)
	s.UpdateNode(node.ID, store.NodePatch{LastHeartbeat: &past})

	timedOut := sup.CheckTimeouts()
	require.Contains(t, timedOut, node.ID)
	assert.Equal(t, model.NodeStatusOffline, sup.Get(node.ID).Status)
}

func TestCheckTimeoutsExemptsNeverHeartbeated(t *testing.T) {
	s := store.New()
	sup := New(s, time.Nanosecond, 5*time.Second, 2)
	node := sup.Register(model.NodeRegister{Hostname: "w1", IPAddress: "10.0.0.1"})

	timedOut := sup.CheckTimeouts()
	assert.Empty(t, timedOut)
	assert.Equal(t, model.NodeStatusOnline, sup.Get(node.ID).Status)
}

func TestHeartbeatGraceWindowProtectsRecentAssignment(t *testing.T) {
	s := store.New()
	sup := New(s, 90*time.Second, 5*time.Second, 2)
	node := sup.Register(model.NodeRegister{Hostname: "w1", IPAddress: "10.0.0.1"})

	sup.RecordAssignment(node.ID, "job-1")

	// Worker's own view omits job-1 (it hasn't observed the assignment yet).
	_, err := sup.Heartbeat(model.HeartbeatRequest{WorkerID: node.ID, ActiveJobs: []string{}})
	require.NoError(t, err)

	assert.Contains(t, sup.Get(node.ID).CurrentJobs, "job-1")
}
