package collab

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sitescope/sitescope/internal/logger"
)

// ReconnectDelay is the fixed wait between connection attempts.
const ReconnectDelay = 2 * time.Second

// Handlers receives the room traffic a subscriber cares about. Nil
// funcs are skipped.
type Handlers struct {
	// OnCamera receives remote camera poses, for follow mode.
	OnCamera func(msg Message)
	// OnEdit fires when a collaborator changed persisted data or shared
	// selection state; the receiver should refetch and rebuild its
	// scene.
	OnEdit func(msg Message)
	// OnPresence receives the room roster after joins and leaves.
	OnPresence func(p PresencePayload)
}

// Subscriber is a client connection to a project room that follows
// remote activity and publishes the engine's own messages into the
// room. It reconnects with a fixed delay until its context is
// cancelled.
type Subscriber struct {
	url      string
	handlers Handlers
	log      *logger.Logger
	delay    time.Duration
	send     chan Message
}

// NewSubscriber creates a subscriber for the room at url, which must be
// a ws:// or wss:// join endpoint including the user identity query.
func NewSubscriber(url string, handlers Handlers, log *logger.Logger) *Subscriber {
	return &Subscriber{
		url:      url,
		handlers: handlers,
		log:      log,
		delay:    ReconnectDelay,
		send:     make(chan Message, 16),
	}
}

// Publish queues a message for the room. The hub stamps the
// subscriber's identity on relay, so callers only fill Type and
// Payload. Messages past the buffer are dropped; room traffic is
// advisory and a fresh pose follows within the broadcast interval.
func (s *Subscriber) Publish(msg Message) {
	select {
	case s.send <- msg:
	default:
	}
}

// Run connects and dispatches messages until ctx is cancelled. Dropped
// connections are re-dialed after the reconnect delay.
func (s *Subscriber) Run(ctx context.Context) {
	for {
		if err := s.connect(ctx); err != nil {
			s.log.Warn("room connection lost", map[string]interface{}{
				"url":   s.url,
				"error": err.Error(),
			})
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.delay):
		}
	}
}

// connect dials the room and reads until the connection drops or ctx is
// cancelled.
func (s *Subscriber) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case msg := <-s.send:
				if err := conn.WriteJSON(msg); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Subscriber) dispatch(msg Message) {
	switch msg.Type {
	case MessageCamera:
		if s.handlers.OnCamera != nil {
			s.handlers.OnCamera(msg)
		}
	case MessageEdit, MessageSelect:
		if s.handlers.OnEdit != nil {
			s.handlers.OnEdit(msg)
		}
	case MessagePresence:
		if s.handlers.OnPresence == nil {
			return
		}
		var p PresencePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		s.handlers.OnPresence(p)
	}
}
