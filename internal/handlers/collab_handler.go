package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sitescope/sitescope/internal/collab"
	"github.com/sitescope/sitescope/internal/middleware"
)

// CollabHandler exposes the per-project collaboration channel.
type CollabHandler struct {
	hub *collab.Hub
}

// NewCollabHandler creates a new CollabHandler instance.
func NewCollabHandler(hub *collab.Hub) *CollabHandler {
	return &CollabHandler{
		hub: hub,
	}
}

// Join handles GET /api/v1/projects/:projectID/ws.
// It upgrades the connection to a websocket and blocks until the
// participant disconnects. Anonymous participants get a generated
// identity.
func (h *CollabHandler) Join(c *gin.Context) {
	projectID := c.Param("projectID")

	userID := c.Query("user_id")
	if userID == "" {
		userID = uuid.New().String()
	}
	userName := c.Query("name")
	if userName == "" {
		userName = "Guest"
	}

	if err := h.hub.ServeWS(c.Writer, c.Request, projectID, userID, userName); err != nil {
		if log := middleware.GetLogger(c); log != nil {
			log.Warn("Websocket upgrade failed", map[string]interface{}{
				"project_id": projectID,
				"error":      err.Error(),
			})
		}
	}
}

// ParticipantsResponse lists the participants present in a project room.
type ParticipantsResponse struct {
	Participants []collab.Participant `json:"participants"`
	Count        int                  `json:"count"`
}

// Participants handles GET /api/v1/projects/:projectID/participants.
func (h *CollabHandler) Participants(c *gin.Context) {
	participants := h.hub.Participants(c.Param("projectID"))
	c.JSON(http.StatusOK, ParticipantsResponse{
		Participants: participants,
		Count:        len(participants),
	})
}
