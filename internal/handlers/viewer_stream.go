package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sitescope/sitescope/internal/mapsync"
	"github.com/sitescope/sitescope/internal/scene"
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin checking happens in the HTTP layer's CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const streamWriteWait = 10 * time.Second

// Stream frame types.
const (
	FrameScene   = "scene"
	FrameMapPose = "map_pose"
)

// StreamFrame is one message on the viewer stream: the full scene graph
// on connect, then a map pose every frame while sync is enabled.
type StreamFrame struct {
	Type    string           `json:"type"`
	Scene   *scene.Graph     `json:"scene,omitempty"`
	MapPose *mapsync.MapPose `json:"map_pose,omitempty"`
}

// Scene handles GET /api/v1/sessions/:id/scene. Viewers fetch it on
// load and refetch after edit notifications from the collaboration
// room.
func (h *SessionHandler) Scene(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, StreamFrame{Type: FrameScene, Scene: sess.Graph()})
}

// Stream handles GET /api/v1/sessions/:id/stream. It upgrades to a
// WebSocket, sends the built scene, and then mirrors the session's map
// pose to the viewer every frame until the connection drops.
func (h *SessionHandler) Stream(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(StreamFrame{Type: FrameScene, Scene: sess.Graph()}); err != nil {
		return
	}

	v := newViewerStream()
	sess.SetMapRenderer(v)
	defer sess.SetMapRenderer(nil)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case pose := <-v.poses:
				conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteJSON(StreamFrame{Type: FrameMapPose, MapPose: &pose}); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	// The read loop only detects the viewer going away; inbound
	// commands go through the REST surface.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// viewerStream adapts the websocket to the map renderer contract. The
// frame loop must never block on a slow viewer, so JumpTo keeps only
// the latest pose and the writer drains it at the socket's pace.
type viewerStream struct {
	poses chan mapsync.MapPose
}

func newViewerStream() *viewerStream {
	return &viewerStream{poses: make(chan mapsync.MapPose, 1)}
}

func (v *viewerStream) JumpTo(pose mapsync.MapPose) {
	for {
		select {
		case v.poses <- pose:
			return
		default:
			select {
			case <-v.poses:
			default:
			}
		}
	}
}
