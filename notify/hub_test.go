package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPublishReachesSubscribedUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{UserID: "f1", Send: make(chan []byte, 4)}
	hub.Register(client)

	hub.Publish([]string{"f1"}, map[string]string{"type": "order-placed", "orderId": "o1"})

	var event map[string]string
	require.NoError(t, json.Unmarshal(recv(t, client.Send), &event))
	assert.Equal(t, "o1", event["orderId"])
}

func TestPublishSkipsOtherUsers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	f1 := &Client{UserID: "f1", Send: make(chan []byte, 4)}
	f2 := &Client{UserID: "f2", Send: make(chan []byte, 4)}
	hub.Register(f1)
	hub.Register(f2)

	hub.Publish([]string{"f2"}, map[string]string{"type": "order-status"})

	recv(t, f2.Send)
	select {
	case <-f1.Send:
		t.Fatal("message leaked to unrelated user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{UserID: "b1", Send: make(chan []byte, 4)}
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, open := <-client.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestUnregisterAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{UserID: "b1", Send: make(chan []byte, 4)}
	hub.Register(client)
	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.Unregister(client)
		hub.Register(&Client{UserID: "b2", Send: make(chan []byte, 4)})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after hub stop")
	}
}

func TestPublishFansOutToAllListed(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	buyer := &Client{UserID: "b1", Send: make(chan []byte, 4)}
	farmer := &Client{UserID: "f1", Send: make(chan []byte, 4)}
	hub.Register(buyer)
	hub.Register(farmer)

	hub.Publish([]string{"b1", "f1"}, map[string]string{"type": "order-status"})

	recv(t, buyer.Send)
	recv(t, farmer.Send)
}
