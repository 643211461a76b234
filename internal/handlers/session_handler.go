package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-playground/validator/v10"

	"github.com/sitescope/sitescope/internal/camera"
	apierrors "github.com/sitescope/sitescope/internal/errors"
	"github.com/sitescope/sitescope/internal/measure"
	"github.com/sitescope/sitescope/internal/middleware"
	"github.com/sitescope/sitescope/internal/models"
	"github.com/sitescope/sitescope/internal/services"
	"github.com/sitescope/sitescope/internal/session"
)

// SessionHandler handles the session lifecycle and command endpoints.
type SessionHandler struct {
	service services.SessionService
}

// NewSessionHandler creates a new SessionHandler instance.
func NewSessionHandler(service services.SessionService) *SessionHandler {
	return &SessionHandler{
		service: service,
	}
}

// CreateSessionRequest represents the body for creating a session.
type CreateSessionRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
}

// SessionResponse represents a session's observable state.
type SessionResponse struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id"`
	CameraMode  string   `json:"camera_mode"`
	CameraPose  PoseData `json:"camera_pose"`
	ActivePhase int      `json:"active_phase"`
	Selection   string   `json:"selection,omitempty"`
	Directives  []string `json:"directives,omitempty"`
}

// PoseData represents a camera pose in scene meters.
type PoseData struct {
	Position [3]float64 `json:"position"`
	Target   [3]float64 `json:"target"`
}

// PointRequest is a picked scene point in meters.
type PointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CameraCommandRequest represents one camera command.
type CameraCommandRequest struct {
	Action string  `json:"action" binding:"required,oneof=mode preset target orbit pan zoom look speed lock unlock follow unfollow"`
	Mode   string  `json:"mode,omitempty" binding:"omitempty,oneof=orbit firstPerson flyThrough"`
	Preset string  `json:"preset,omitempty" binding:"omitempty,oneof=aerial street corner front"`
	Target string  `json:"target,omitempty"`
	User   string  `json:"user,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Steps  float64 `json:"steps,omitempty"`
	Speed  float64 `json:"speed,omitempty" binding:"omitempty,gte=0.25,lte=3"`
}

// InputRequest represents the held movement keys and mouse delta.
type InputRequest struct {
	Forward bool    `json:"forward"`
	Back    bool    `json:"back"`
	Left    bool    `json:"left"`
	Right   bool    `json:"right"`
	MouseDX float64 `json:"mouse_dx"`
	MouseDY float64 `json:"mouse_dy"`
}

// PhaseRequest selects the visible construction phase.
type PhaseRequest struct {
	Phase *int `json:"phase" binding:"required,gte=0"`
}

// CompareRequest configures the split-screen phase comparison.
type CompareRequest struct {
	Enabled    *bool    `json:"enabled" binding:"required"`
	LeftPhase  int      `json:"left_phase" binding:"gte=0"`
	RightPhase int      `json:"right_phase" binding:"gte=0"`
	Divider    *float64 `json:"divider,omitempty" binding:"omitempty,gte=0,lte=1"`
}

// ComparePhaseResponse reports the phase rendered where a scene point
// appears on screen.
type ComparePhaseResponse struct {
	Phase int `json:"phase"`
}

// MapSyncRequest configures the 2D map mirroring.
type MapSyncRequest struct {
	Enabled        *bool    `json:"enabled,omitempty"`
	ViewportHeight *float64 `json:"viewport_height,omitempty" binding:"omitempty,gt=0"`
}

// MeasureRequest represents one measurement command.
type MeasureRequest struct {
	Action string        `json:"action" binding:"required,oneof=mode point close undo cancel units"`
	Mode   string        `json:"mode,omitempty" binding:"omitempty,oneof=distance angle area height"`
	Units  string        `json:"units,omitempty" binding:"omitempty,oneof=metric imperial"`
	Point  *PointRequest `json:"point,omitempty"`
}

// MeasureResponse reports the outcome of a measurement command.
type MeasureResponse struct {
	Completed   bool                  `json:"completed"`
	Measurement *measure.Measurement  `json:"measurement,omitempty"`
	All         []measure.Measurement `json:"measurements"`
}

// PlannerRequest represents one zone-drawing command.
type PlannerRequest struct {
	Action string        `json:"action" binding:"required,oneof=tool vertex finish undo cancel"`
	Tool   string        `json:"tool,omitempty" binding:"omitempty,oneof=building residential road green_space parking water development_area"`
	Vertex *PointRequest `json:"vertex,omitempty"`
}

// PlannerResponse reports a finished zone, if the command produced one.
type PlannerResponse struct {
	Finished bool         `json:"finished"`
	Zone     *models.Zone `json:"zone,omitempty"`
}

// SelectRequest marks a scene entity as selected. An empty ID clears
// the selection.
type SelectRequest struct {
	ID string `json:"id"`
}

// AnnotationRequest represents the body for creating an annotation.
type AnnotationRequest struct {
	BuildingID *string    `json:"building_id,omitempty"`
	Position   [3]float64 `json:"position"`
	Label      string     `json:"label" binding:"required"`
	Body       string     `json:"body,omitempty"`
	Color      string     `json:"color,omitempty"`
}

// DirectiveRequest queues a one-shot client directive.
type DirectiveRequest struct {
	Type string `json:"type" binding:"required,oneof=screenshot export_glb"`
}

// Create handles POST /api/v1/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	log := middleware.GetLogger(c)

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	if log != nil {
		log.Info("Creating session", map[string]interface{}{
			"project_id": req.ProjectID,
		})
	}

	sess, err := h.service.Create(c.Request.Context(), req.ProjectID)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to load project scene", err)
		return
	}

	c.JSON(http.StatusCreated, sessionState(sess))
}

// Get handles GET /api/v1/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionState(sess))
}

// Delete handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.service.Close(c.Param("id")); err != nil {
		apierrors.NotFound(c, "No session with this ID")
		return
	}
	c.Status(http.StatusNoContent)
}

// Camera handles POST /api/v1/sessions/:id/camera.
func (h *SessionHandler) Camera(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req CameraCommandRequest
	if !bindJSON(c, &req) {
		return
	}

	switch req.Action {
	case "mode":
		if req.Mode == "" {
			apierrors.BadRequest(c, "mode is required for the mode action", nil)
			return
		}
		sess.SetCameraMode(camera.Mode(req.Mode))
	case "preset":
		if req.Preset == "" {
			apierrors.BadRequest(c, "preset is required for the preset action", nil)
			return
		}
		sess.FlyToPreset(camera.Preset(req.Preset))
	case "target":
		if req.Target == "" {
			apierrors.BadRequest(c, "target is required for the target action", nil)
			return
		}
		sess.FlyToTarget(req.Target)
	case "orbit":
		sess.Orbit(req.DX, req.DY)
	case "pan":
		sess.Pan(req.DX, req.DY)
	case "zoom":
		sess.Zoom(req.Steps)
	case "look":
		sess.Look(req.DX, req.DY)
	case "speed":
		sess.SetMoveSpeed(req.Speed)
	case "lock":
		sess.AcquirePointerLock()
	case "unlock":
		sess.ReleasePointerLock()
	case "follow":
		if req.User == "" {
			apierrors.BadRequest(c, "user is required for the follow action", nil)
			return
		}
		sess.FollowUser(req.User)
	case "unfollow":
		sess.FollowUser("")
	}

	c.JSON(http.StatusOK, sessionState(sess))
}

// Input handles POST /api/v1/sessions/:id/input.
func (h *SessionHandler) Input(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req InputRequest
	if !bindJSON(c, &req) {
		return
	}

	sess.SetInput(camera.Input{
		Forward: req.Forward,
		Back:    req.Back,
		Left:    req.Left,
		Right:   req.Right,
		MouseDX: req.MouseDX,
		MouseDY: req.MouseDY,
	})
	c.Status(http.StatusNoContent)
}

// Phase handles POST /api/v1/sessions/:id/phase.
func (h *SessionHandler) Phase(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req PhaseRequest
	if !bindJSON(c, &req) {
		return
	}

	sess.SetActivePhase(*req.Phase)
	c.JSON(http.StatusOK, gin.H{"active_phase": sess.ActivePhase()})
}

// Compare handles POST /api/v1/sessions/:id/compare.
func (h *SessionHandler) Compare(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req CompareRequest
	if !bindJSON(c, &req) {
		return
	}

	if *req.Enabled {
		sess.EnableCompare(req.LeftPhase, req.RightPhase)
	} else {
		sess.DisableCompare()
	}
	if req.Divider != nil {
		sess.SetCompareDivider(*req.Divider)
	}
	c.Status(http.StatusNoContent)
}

// ComparePhase handles POST /api/v1/sessions/:id/compare/phase.
// Clients hit-test picked points against the split view with it.
func (h *SessionHandler) ComparePhase(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req PointRequest
	if !bindJSON(c, &req) {
		return
	}

	phase := sess.ComparePhaseAt(mgl64.Vec3{req.X, req.Y, req.Z})
	c.JSON(http.StatusOK, ComparePhaseResponse{Phase: phase})
}

// MapSync handles POST /api/v1/sessions/:id/map.
func (h *SessionHandler) MapSync(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req MapSyncRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.Enabled != nil {
		sess.SetMapSyncEnabled(*req.Enabled)
	}
	if req.ViewportHeight != nil {
		sess.SetViewport(*req.ViewportHeight)
	}
	c.Status(http.StatusNoContent)
}

// Measure handles POST /api/v1/sessions/:id/measure.
func (h *SessionHandler) Measure(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req MeasureRequest
	if !bindJSON(c, &req) {
		return
	}

	resp := MeasureResponse{}
	switch req.Action {
	case "mode":
		sess.SetMeasurementMode(measure.Mode(req.Mode))
	case "point":
		if req.Point == nil {
			apierrors.BadRequest(c, "point is required for the point action", nil)
			return
		}
		m, done := sess.AddMeasurePoint(mgl64.Vec3{req.Point.X, req.Point.Y, req.Point.Z})
		if done {
			resp.Completed = true
			resp.Measurement = &m
		}
	case "close":
		m, done := sess.CloseMeasurement()
		if done {
			resp.Completed = true
			resp.Measurement = &m
		}
	case "undo":
		sess.UndoMeasurePoint()
	case "cancel":
		sess.CancelMeasurement()
	case "units":
		if req.Units == "" {
			apierrors.BadRequest(c, "units is required for the units action", nil)
			return
		}
		sess.SetUnits(measure.Units(req.Units))
	}

	resp.All = sess.Measurements()
	c.JSON(http.StatusOK, resp)
}

// Planner handles POST /api/v1/sessions/:id/planner.
func (h *SessionHandler) Planner(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req PlannerRequest
	if !bindJSON(c, &req) {
		return
	}

	resp := PlannerResponse{}
	switch req.Action {
	case "tool":
		if req.Tool == "" {
			apierrors.BadRequest(c, "tool is required for the tool action", nil)
			return
		}
		zone, finished, err := sess.SetPlannerTool(c.Request.Context(), models.ZoneType(req.Tool))
		if err != nil {
			apierrors.InternalServerError(c, "Failed to submit drawn zone", err)
			return
		}
		if finished {
			resp.Finished = true
			resp.Zone = &zone
		}
	case "vertex":
		if req.Vertex == nil {
			apierrors.BadRequest(c, "vertex is required for the vertex action", nil)
			return
		}
		sess.AddPlannerVertex(mgl64.Vec3{req.Vertex.X, req.Vertex.Y, req.Vertex.Z})
	case "finish":
		zone, err := sess.FinishZone(c.Request.Context())
		if err != nil {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		resp.Finished = true
		resp.Zone = &zone
	case "undo":
		sess.UndoPlannerVertex()
	case "cancel":
		sess.CancelPlanner()
	}

	c.JSON(http.StatusOK, resp)
}

// Select handles POST /api/v1/sessions/:id/select.
func (h *SessionHandler) Select(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req SelectRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.ID == "" {
		sess.ClearSelection()
	} else {
		sess.Select(req.ID)
	}
	c.Status(http.StatusNoContent)
}

// Hover handles POST /api/v1/sessions/:id/hover.
func (h *SessionHandler) Hover(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req SelectRequest
	if !bindJSON(c, &req) {
		return
	}

	sess.SetHover(req.ID)
	c.Status(http.StatusNoContent)
}

// Model handles GET /api/v1/sessions/:id/buildings/:buildingID/model.
// It serves the building's asset at the requested detail level through
// the session's model cache.
func (h *SessionHandler) Model(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	level, err := strconv.Atoi(c.DefaultQuery("lod", "0"))
	if err != nil || level < 0 {
		apierrors.BadRequest(c, "lod must be a non-negative integer", nil)
		return
	}

	data, err := sess.ModelData(c.Request.Context(), c.Param("buildingID"), level)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to fetch building model", err)
		return
	}
	c.Data(http.StatusOK, "model/gltf-binary", data)
}

// CreateAnnotation handles POST /api/v1/sessions/:id/annotations.
func (h *SessionHandler) CreateAnnotation(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req AnnotationRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := sess.CreateAnnotation(c.Request.Context(), models.Annotation{
		BuildingID: req.BuildingID,
		Position:   req.Position,
		Label:      req.Label,
		Body:       req.Body,
		Color:      req.Color,
	})
	if err != nil {
		apierrors.InternalServerError(c, "Failed to persist annotation", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Directive handles POST /api/v1/sessions/:id/directives.
func (h *SessionHandler) Directive(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req DirectiveRequest
	if !bindJSON(c, &req) {
		return
	}

	switch req.Type {
	case session.DirectiveScreenshot:
		sess.RequestScreenshot()
	case session.DirectiveExportGLB:
		sess.RequestExportGLB()
	}
	c.Status(http.StatusAccepted)
}

// lookup resolves the session from the :id path parameter, writing a 404
// response when it does not exist.
func (h *SessionHandler) lookup(c *gin.Context) (*session.Session, bool) {
	sess, err := h.service.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			apierrors.NotFound(c, "No session with this ID")
			return nil, false
		}
		apierrors.InternalServerError(c, "Failed to resolve session", err)
		return nil, false
	}
	return sess, true
}

// bindJSON binds the request body, writing the error response on failure.
func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return false
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return false
	}
	return true
}

// sessionState maps a session to its response DTO, draining any queued
// client directives.
func sessionState(s *session.Session) SessionResponse {
	pose := s.CameraPose()
	resp := SessionResponse{
		ID:          s.ID,
		ProjectID:   s.ProjectID,
		CameraMode:  string(s.CameraMode()),
		ActivePhase: s.ActivePhase(),
		Selection:   s.Selection(),
		CameraPose: PoseData{
			Position: [3]float64{pose.Position.X(), pose.Position.Y(), pose.Position.Z()},
			Target:   [3]float64{pose.Target.X(), pose.Target.Y(), pose.Target.Z()},
		},
	}
	for _, d := range s.DrainDirectives() {
		resp.Directives = append(resp.Directives, d.Type)
	}
	return resp
}
