package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sitescope/sitescope/internal/backend"
	"github.com/sitescope/sitescope/internal/camera"
	"github.com/sitescope/sitescope/internal/collab"
	"github.com/sitescope/sitescope/internal/logger"
	"github.com/sitescope/sitescope/internal/session"
)

// Service-level errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionTuning carries the per-session knobs taken from configuration.
type SessionTuning struct {
	FrameInterval time.Duration
	ContextRadius float64

	// CollabURL is the ws(s):// base of the collaboration hub. When set,
	// every session joins its project's room and reacts to remote edits
	// and camera poses. Empty disables the subscription.
	CollabURL string
}

// SessionService defines the interface for managing live viewer sessions.
type SessionService interface {
	// Create loads the project and starts a new session with its frame
	// loop running. Returns an error if the project cannot be loaded.
	Create(ctx context.Context, projectID string) (*session.Session, error)

	// Get retrieves a running session by ID.
	// Returns ErrSessionNotFound if no such session exists.
	Get(sessionID string) (*session.Session, error)

	// Close stops a session's frame loop and forgets it.
	// Returns ErrSessionNotFound if no such session exists.
	Close(sessionID string) error

	// Shutdown stops every running session. Used at server exit.
	Shutdown()
}

// sessionService is the concrete implementation of SessionService.
type sessionService struct {
	backend *backend.Client
	tuning  SessionTuning
	log     *logger.Logger

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

// sessionEntry pairs a session with the cancel func of its frame loop.
type sessionEntry struct {
	session *session.Session
	cancel  context.CancelFunc
}

// NewSessionService creates a new instance of SessionService.
func NewSessionService(client *backend.Client, tuning SessionTuning, log *logger.Logger) SessionService {
	return &sessionService{
		backend: client,
		tuning:  tuning,
		log:     log,
		entries: make(map[string]*sessionEntry),
	}
}

// Create loads the project's scene and starts the session's frame loop
// on its own goroutine.
func (s *sessionService) Create(ctx context.Context, projectID string) (*session.Session, error) {
	sess, err := session.New(ctx, session.Options{
		ProjectID:     projectID,
		Backend:       s.backend,
		Logger:        s.log,
		FrameInterval: s.tuning.FrameInterval,
		ContextRadius: s.tuning.ContextRadius,
	})
	if err != nil {
		s.log.Error("Failed to create session", err, map[string]interface{}{
			"project_id": projectID,
		})
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	go sess.Scheduler().Run(runCtx)

	if s.tuning.CollabURL != "" {
		sub := s.joinCollab(runCtx, sess, projectID)
		go sub.Run(runCtx)
	}

	s.mu.Lock()
	s.entries[sess.ID] = &sessionEntry{session: sess, cancel: cancel}
	s.mu.Unlock()

	s.log.Info("Session created", map[string]interface{}{
		"session_id": sess.ID,
		"project_id": projectID,
	})
	return sess, nil
}

// joinCollab builds the session's room subscription: remote edits and
// selections invalidate the scene, a followed collaborator's poses
// apply to the camera, and the session's own throttled camera poses
// publish back into the room for everyone else.
func (s *sessionService) joinCollab(runCtx context.Context, sess *session.Session, projectID string) *collab.Subscriber {
	sub := collab.NewSubscriber(s.roomURL(projectID, sess.ID), collab.Handlers{
		OnCamera: func(msg collab.Message) {
			var pose camera.Pose
			if err := json.Unmarshal(msg.Payload, &pose); err != nil {
				return
			}
			sess.ApplyRemoteCamera(msg.UserID, pose)
		},
		OnEdit: func(msg collab.Message) {
			if err := sess.HandleRemoteEdit(runCtx); err != nil {
				s.log.Warn("Remote edit reload failed", map[string]interface{}{
					"session_id": sess.ID,
					"error":      err.Error(),
				})
			}
		},
	}, s.log)

	sess.SetBroadcast(func(pose camera.Pose) {
		payload, err := json.Marshal(pose)
		if err != nil {
			return
		}
		sub.Publish(collab.Message{Type: collab.MessageCamera, Payload: payload})
	})
	return sub
}

// roomURL builds the websocket join endpoint for a project's
// collaboration room, identifying the session as a participant.
func (s *sessionService) roomURL(projectID, sessionID string) string {
	q := url.Values{}
	q.Set("user_id", "engine-"+sessionID)
	q.Set("name", "Scene Engine")
	return fmt.Sprintf("%s/api/v1/projects/%s/ws?%s",
		strings.TrimSuffix(s.tuning.CollabURL, "/"), projectID, q.Encode())
}

// Get retrieves a running session by ID.
func (s *sessionService) Get(sessionID string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry.session, nil
}

// Close stops a session's frame loop and removes it.
func (s *sessionService) Close(sessionID string) error {
	s.mu.Lock()
	entry, ok := s.entries[sessionID]
	if ok {
		delete(s.entries, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	entry.cancel()

	s.log.Info("Session closed", map[string]interface{}{
		"session_id": sessionID,
	})
	return nil
}

// Shutdown stops every running session.
func (s *sessionService) Shutdown() {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for id, entry := range entries {
		entry.cancel()
		s.log.Info("Session stopped", map[string]interface{}{
			"session_id": id,
		})
	}
}
