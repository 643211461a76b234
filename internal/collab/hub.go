package collab

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sitescope/sitescope/internal/logger"
)

// userColors is the fixed palette assigned to participants in join
// order, wrapping when a room grows past its length.
var userColors = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c",
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checking happens in the HTTP layer's CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub owns all collaboration rooms. One hub per process.
type Hub struct {
	log *logger.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	clients   map[*client]bool
	nextColor int
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:   log,
		rooms: make(map[string]*room),
	}
}

// ServeWS upgrades the request and joins the connection to the
// project's room. Blocks until the connection closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, projectID, userID, userName string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := h.join(projectID, userID, userName, conn)
	h.log.Info("collaborator joined", map[string]interface{}{
		"project_id": projectID,
		"user_id":    userID,
		"color":      c.color,
	})

	go c.writePump()
	c.readPump()
	return nil
}

// Participants returns the current roster of a project's room.
func (h *Hub) Participants(projectID string) []Participant {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[projectID]
	if !ok {
		return nil
	}
	out := make([]Participant, 0, len(rm.clients))
	for c := range rm.clients {
		out = append(out, Participant{UserID: c.userID, UserName: c.userName, Color: c.color})
	}
	return out
}

func (h *Hub) join(projectID, userID, userName string, conn *websocket.Conn) *client {
	h.mu.Lock()
	rm, ok := h.rooms[projectID]
	if !ok {
		rm = &room{clients: make(map[*client]bool)}
		h.rooms[projectID] = rm
	}

	c := &client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 64),
		projectID: projectID,
		userID:    userID,
		userName:  userName,
		color:     userColors[rm.nextColor%len(userColors)],
	}
	rm.nextColor++
	rm.clients[c] = true
	h.mu.Unlock()

	h.broadcastPresence(projectID)
	return c
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	rm, ok := h.rooms[c.projectID]
	if ok {
		if _, present := rm.clients[c]; present {
			delete(rm.clients, c)
			close(c.send)
		}
		if len(rm.clients) == 0 {
			delete(h.rooms, c.projectID)
		}
	}
	h.mu.Unlock()

	h.broadcastPresence(c.projectID)
	h.log.Info("collaborator left", map[string]interface{}{
		"project_id": c.projectID,
		"user_id":    c.userID,
	})
}

// broadcastPresence sends the full roster to everyone in the room.
func (h *Hub) broadcastPresence(projectID string) {
	payload, err := json.Marshal(PresencePayload{Participants: h.Participants(projectID)})
	if err != nil {
		return
	}
	msg := Message{
		Type:      MessagePresence,
		ProjectID: projectID,
		Payload:   payload,
	}
	h.broadcast(projectID, nil, msg)
}

// relay stamps the sender's identity on a message and forwards it to
// everyone else in the room.
func (h *Hub) relay(sender *client, msg Message) {
	switch msg.Type {
	case MessageCursor, MessageSelect, MessageEdit, MessageCamera:
	default:
		return
	}

	msg.ProjectID = sender.projectID
	msg.UserID = sender.userID
	msg.UserName = sender.userName
	msg.Color = sender.color
	h.broadcast(sender.projectID, sender, msg)
}

// broadcast sends a message to every room member except the sender.
// Clients whose send buffer is full are dropped rather than allowed to
// stall the room.
func (h *Hub) broadcast(projectID string, except *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.Lock()
	rm, ok := h.rooms[projectID]
	if !ok {
		h.mu.Unlock()
		return
	}

	var stalled []*client
	for c := range rm.clients {
		if c == except {
			continue
		}
		select {
		case c.send <- data:
		default:
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		delete(rm.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	for _, c := range stalled {
		c.conn.Close()
		h.log.Warn("dropping stalled collaborator", map[string]interface{}{
			"project_id": projectID,
			"user_id":    c.userID,
		})
	}
}
