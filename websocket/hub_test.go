package websocket

import (
	"testing"
	"time"

	"novascp/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func testClient(h Hub, jobID string, buffer int) *Client {
	return &Client{hub: h, send: make(chan types.ProgressMessage, buffer), jobID: jobID}
}

func receive(t *testing.T, c *Client) types.ProgressMessage {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return types.ProgressMessage{}
}

func TestHubRoutesMessagesByJob(t *testing.T) {
	h := startHub(t)

	jobA := testClient(h, "a", 8)
	jobB := testClient(h, "b", 8)
	all := testClient(h, AllJobs, 8)
	h.RegisterClient(jobA)
	h.RegisterClient(jobB)
	h.RegisterClient(all)

	require.Eventually(t, func() bool { return h.ClientCount() == 3 }, time.Second, time.Millisecond)

	h.BroadcastProgress(types.ProgressMessage{JobID: "a", Type: "progress", Progress: 10})
	h.BroadcastProgress(types.ProgressMessage{JobID: "b", Type: "progress", Progress: 20})

	msg := receive(t, jobA)
	assert.Equal(t, 10, msg.Progress)
	assert.False(t, msg.Timestamp.IsZero())

	assert.Equal(t, 20, receive(t, jobB).Progress)

	assert.Equal(t, "a", receive(t, all).JobID)
	assert.Equal(t, "b", receive(t, all).JobID)

	select {
	case msg := <-jobA.send:
		t.Fatalf("unexpected message for job a: %+v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubUnregister(t *testing.T) {
	h := startHub(t)

	c := testClient(h, "a", 1)
	h.RegisterClient(c)
	h.UnregisterClient(c)

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount())

	// unregistering twice is harmless
	h.UnregisterClient(c)
}

func TestHubDropsSlowClients(t *testing.T) {
	h := startHub(t)

	slow := testClient(h, "a", 1)
	h.RegisterClient(slow)

	h.BroadcastProgress(types.ProgressMessage{JobID: "a", Progress: 1})
	h.BroadcastProgress(types.ProgressMessage{JobID: "a", Progress: 2})

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, h.Dropped())

	assert.Equal(t, 1, receive(t, slow).Progress)
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHubStopClosesClients(t *testing.T) {
	h := NewHub()
	stopped := make(chan struct{})
	go func() {
		h.Run()
		close(stopped)
	}()

	c := testClient(h, AllJobs, 1)
	h.RegisterClient(c)
	h.Stop()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	_, ok := <-c.send
	assert.False(t, ok)

	// calls after stop return immediately
	h.RegisterClient(testClient(h, "a", 1))
	h.Stop()
}
