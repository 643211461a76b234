package collab

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescope/sitescope/internal/logger"
)

func TestSubscriber_DispatchesRoomTraffic(t *testing.T) {
	_, srv := newTestHub(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=follower"

	cameras := make(chan Message, 8)
	edits := make(chan Message, 8)
	presences := make(chan PresencePayload, 8)

	sub := NewSubscriber(url, Handlers{
		OnCamera:   func(m Message) { cameras <- m },
		OnEdit:     func(m Message) { edits <- m },
		OnPresence: func(p PresencePayload) { presences <- p },
	}, logger.New("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	// The subscriber's own join shows up as presence.
	select {
	case p := <-presences:
		require.NotEmpty(t, p.Participants)
	case <-time.After(2 * time.Second):
		t.Fatal("never saw the join presence")
	}

	alice := dial(t, srv, "alice")
	readPresenceWith(t, alice, 2)

	pose, _ := json.Marshal(map[string]float64{"x": 1})
	require.NoError(t, alice.WriteJSON(Message{Type: MessageCamera, Payload: pose}))

	select {
	case m := <-cameras:
		assert.Equal(t, "alice", m.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("camera message never dispatched")
	}

	require.NoError(t, alice.WriteJSON(Message{Type: MessageEdit}))
	select {
	case m := <-edits:
		assert.Equal(t, "alice", m.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("edit message never dispatched")
	}

	// A remote selection invalidates the local copy the same way an
	// edit does.
	require.NoError(t, alice.WriteJSON(Message{Type: MessageSelect}))
	select {
	case m := <-edits:
		assert.Equal(t, MessageSelect, m.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("select message never dispatched")
	}
}

func TestSubscriber_PublishesIntoRoom(t *testing.T) {
	_, srv := newTestHub(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=engine"

	sub := NewSubscriber(url, Handlers{}, logger.New("test"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	alice := dial(t, srv, "alice")
	readPresenceWith(t, alice, 2)

	pose, _ := json.Marshal(map[string]float64{"x": 4})
	sub.Publish(Message{Type: MessageCamera, Payload: pose})

	// The hub stamps the subscriber's identity on relay.
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg Message
		require.NoError(t, alice.ReadJSON(&msg), "published pose never reached the room")
		if msg.Type != MessageCamera {
			continue
		}
		assert.Equal(t, "engine", msg.UserID)
		break
	}
}

func TestSubscriber_ReconnectsAfterDrop(t *testing.T) {
	hub, srv := newTestHub(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=follower"

	presences := make(chan PresencePayload, 8)
	sub := NewSubscriber(url, Handlers{
		OnPresence: func(p PresencePayload) { presences <- p },
	}, logger.New("test"))
	sub.delay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	select {
	case <-presences:
	case <-time.After(2 * time.Second):
		t.Fatal("never connected")
	}

	// Kick the follower by closing the server side of its connection,
	// then wait for the rejoin's presence broadcast.
	srv.CloseClientConnections()

	select {
	case <-presences:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never reconnected")
	}
	assert.Len(t, hub.Participants("p1"), 1)
}

func TestSubscriber_StopsOnCancel(t *testing.T) {
	_, srv := newTestHub(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=follower"

	sub := NewSubscriber(url, Handlers{}, logger.New("test"))
	sub.delay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sub.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
