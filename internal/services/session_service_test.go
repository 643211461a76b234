package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescope/sitescope/internal/backend"
	"github.com/sitescope/sitescope/internal/camera"
	"github.com/sitescope/sitescope/internal/collab"
	"github.com/sitescope/sitescope/internal/logger"
	"github.com/sitescope/sitescope/internal/models"
)

// newTestBackend serves a minimal project API for session creation.
func newTestBackend(t *testing.T) *backend.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/projects/p1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Project{
			ID:   "p1",
			Name: "Test Project",
			Location: &models.Location{
				Latitude:  51.5,
				Longitude: -0.12,
			},
		})
	})
	mux.HandleFunc("/api/v1/projects/p1/zones", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Zone{})
	})
	mux.HandleFunc("/api/v1/context", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.ContextData{})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, "", logger.New("test"))
}

// newCountingBackend is newTestBackend with a counter on project
// fetches, for observing scene reloads.
func newCountingBackend(t *testing.T) (*backend.Client, *int32) {
	t.Helper()

	var fetches int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/projects/p1", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		json.NewEncoder(w).Encode(models.Project{ID: "p1", Name: "Test Project"})
	})
	mux.HandleFunc("/api/v1/projects/p1/zones", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Zone{})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, "", logger.New("test")), &fetches
}

// newCollabServer runs a real hub behind the room join endpoint the
// service subscribes to.
func newCollabServer(t *testing.T) (*collab.Hub, string) {
	t.Helper()

	hub := collab.NewHub(logger.New("test"))
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/projects/p1/ws", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "p1", r.URL.Query().Get("user_id"), r.URL.Query().Get("name"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

// joinRoom dials the room as a collaborator with the given identity.
func joinRoom(t *testing.T, wsURL, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(
		wsURL+"/api/v1/projects/p1/ws?user_id="+userID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSessionService_CreateAndGet(t *testing.T) {
	svc := NewSessionService(newTestBackend(t), SessionTuning{}, logger.New("test"))
	defer svc.Shutdown()

	sess, err := svc.Create(context.Background(), "p1")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, err := svc.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestSessionService_Create_UnknownProject(t *testing.T) {
	svc := NewSessionService(newTestBackend(t), SessionTuning{}, logger.New("test"))
	defer svc.Shutdown()

	_, err := svc.Create(context.Background(), "missing")
	require.Error(t, err)
}

func TestSessionService_Get_NotFound(t *testing.T) {
	svc := NewSessionService(newTestBackend(t), SessionTuning{}, logger.New("test"))
	defer svc.Shutdown()

	_, err := svc.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_Close(t *testing.T) {
	svc := NewSessionService(newTestBackend(t), SessionTuning{}, logger.New("test"))
	defer svc.Shutdown()

	sess, err := svc.Create(context.Background(), "p1")
	require.NoError(t, err)

	require.NoError(t, svc.Close(sess.ID))

	_, err = svc.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.Close(sess.ID), ErrSessionNotFound)
}

func TestSessionService_RemoteEditReloadsScene(t *testing.T) {
	client, fetches := newCountingBackend(t)
	hub, wsURL := newCollabServer(t)

	svc := NewSessionService(client, SessionTuning{CollabURL: wsURL}, logger.New("test"))
	defer svc.Shutdown()

	_, err := svc.Create(context.Background(), "p1")
	require.NoError(t, err)

	// The session joins its project's room on creation.
	require.Eventually(t, func() bool {
		return len(hub.Participants("p1")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	before := atomic.LoadInt32(fetches)

	editor := joinRoom(t, wsURL, "editor")
	require.NoError(t, editor.WriteJSON(collab.Message{Type: collab.MessageEdit}))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(fetches) > before
	}, 2*time.Second, 10*time.Millisecond, "the remote edit never triggered a refetch")
}

func TestSessionService_RemoteSelectReloadsScene(t *testing.T) {
	client, fetches := newCountingBackend(t)
	hub, wsURL := newCollabServer(t)

	svc := NewSessionService(client, SessionTuning{CollabURL: wsURL}, logger.New("test"))
	defer svc.Shutdown()

	_, err := svc.Create(context.Background(), "p1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(hub.Participants("p1")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	before := atomic.LoadInt32(fetches)

	editor := joinRoom(t, wsURL, "editor")
	require.NoError(t, editor.WriteJSON(collab.Message{Type: collab.MessageSelect}))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(fetches) > before
	}, 2*time.Second, 10*time.Millisecond, "the remote selection never triggered a refetch")
}

func TestSessionService_FollowsRemoteCamera(t *testing.T) {
	client, _ := newCountingBackend(t)
	hub, wsURL := newCollabServer(t)

	svc := NewSessionService(client, SessionTuning{CollabURL: wsURL}, logger.New("test"))
	defer svc.Shutdown()

	sess, err := svc.Create(context.Background(), "p1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(hub.Participants("p1")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	sess.FollowUser("guide")
	guide := joinRoom(t, wsURL, "guide")

	want := camera.Pose{Position: mgl64.Vec3{10, 20, 30}, Target: mgl64.Vec3{0, 0, 0}}
	payload, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, guide.WriteJSON(collab.Message{Type: collab.MessageCamera, Payload: payload}))

	require.Eventually(t, func() bool {
		return sess.CameraPose() == want
	}, 2*time.Second, 10*time.Millisecond, "the followed pose never applied")
}

func TestSessionService_BroadcastsCameraPoseToRoom(t *testing.T) {
	client, _ := newCountingBackend(t)
	hub, wsURL := newCollabServer(t)

	svc := NewSessionService(client, SessionTuning{CollabURL: wsURL}, logger.New("test"))
	defer svc.Shutdown()

	sess, err := svc.Create(context.Background(), "p1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(hub.Participants("p1")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	viewer := joinRoom(t, wsURL, "viewer")

	var sawPose atomic.Bool
	go func() {
		for {
			var msg collab.Message
			if err := viewer.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type != collab.MessageCamera ||
				msg.UserID != "engine-"+sess.ID {
				continue
			}
			var pose camera.Pose
			if json.Unmarshal(msg.Payload, &pose) == nil {
				sawPose.Store(true)
			}
		}
	}()

	require.Eventually(t, sawPose.Load, 2*time.Second, 10*time.Millisecond,
		"no engine camera pose reached the room")
}

func TestSessionService_Shutdown(t *testing.T) {
	svc := NewSessionService(newTestBackend(t), SessionTuning{}, logger.New("test"))

	a, err := svc.Create(context.Background(), "p1")
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), "p1")
	require.NoError(t, err)

	svc.Shutdown()

	_, err = svc.Get(a.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Get(b.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
