package session

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/sitescope/sitescope/internal/camera"
	"github.com/sitescope/sitescope/internal/measure"
	"github.com/sitescope/sitescope/internal/models"
	"github.com/sitescope/sitescope/internal/scene"
)

// Camera commands.

// SetCameraMode switches the camera's navigation mode.
func (s *Session) SetCameraMode(mode camera.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.SetMode(mode)
}

// SetMoveSpeed sets the walk/fly movement speed multiplier.
func (s *Session) SetMoveSpeed(speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.SetMoveSpeed(speed)
}

// SetInput replaces the held movement input sampled by the frame loop.
func (s *Session) SetInput(in camera.Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = in
}

// FlyToPreset starts a transition to a built-in framing of the site.
func (s *Session) FlyToPreset(preset camera.Preset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.FlyToPreset(preset, s.graph.Center(), s.graph.Radius())
}

// FlyToTarget starts a transition to a registered named pose.
func (s *Session) FlyToTarget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.FlyToTarget(name)
}

// Orbit rotates the orbit camera by a mouse drag delta.
func (s *Session) Orbit(dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.Orbit(dx, dy)
}

// Pan translates the orbit camera by a mouse drag delta.
func (s *Session) Pan(dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.Pan(dx, dy)
}

// Zoom moves the orbit camera along its view axis.
func (s *Session) Zoom(steps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.Zoom(steps)
}

// Look rotates the first-person or fly camera by a mouse delta.
func (s *Session) Look(dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.Look(dx, dy)
}

// AcquirePointerLock requests pointer capture for mouse look.
func (s *Session) AcquirePointerLock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.AcquirePointerLock()
}

// ReleasePointerLock drops pointer capture.
func (s *Session) ReleasePointerLock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.ReleasePointerLock()
}

// FollowUser starts mirroring a collaborator's broadcast camera poses.
// An empty ID stops following.
func (s *Session) FollowUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followUser = userID
}

// FollowedUser returns the collaborator being followed, or empty.
func (s *Session) FollowedUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.followUser
}

// ApplyRemoteCamera applies a collaborator's broadcast pose when that
// collaborator is being followed; poses from anyone else are dropped.
func (s *Session) ApplyRemoteCamera(userID string, pose camera.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.followUser == "" || s.followUser != userID {
		return
	}
	s.camera.SetPose(pose)
}

// CameraPose returns the current camera pose.
func (s *Session) CameraPose() camera.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera.Pose()
}

// CameraMode returns the current navigation mode.
func (s *Session) CameraMode() camera.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera.Mode()
}

// Measurement commands.

// SetMeasurementMode activates a measurement tool, discarding any
// half-built measurement from the previous tool.
func (s *Session) SetMeasurementMode(mode measure.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measure.SetMode(mode)
}

// AddMeasurePoint records a picked scene point for the active tool.
func (s *Session) AddMeasurePoint(p mgl64.Vec3) (measure.Measurement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.measure.AddPoint(p)
}

// CloseMeasurement closes an in-progress area measurement.
func (s *Session) CloseMeasurement() (measure.Measurement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.measure.Close()
}

// UndoMeasurePoint removes the last pending measurement point.
func (s *Session) UndoMeasurePoint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measure.Undo()
}

// CancelMeasurement discards the in-progress measurement.
func (s *Session) CancelMeasurement() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measure.Cancel()
}

// SetUnits switches the measurement display unit system.
func (s *Session) SetUnits(units measure.Units) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measure.SetUnits(units)
}

// Measurements returns all completed measurements.
func (s *Session) Measurements() []measure.Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.measure.Measurements()
}

// Selection commands.

// Select marks an entity as selected.
func (s *Session) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = id
}

// ClearSelection drops the selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = ""
}

// Selection returns the selected entity ID, or empty.
func (s *Session) Selection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// SetHover records the entity under the cursor, or empty for none.
func (s *Session) SetHover(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hover = id
}

// Hover returns the hovered entity ID, or empty.
func (s *Session) Hover() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hover
}

// Phase commands.

// SetActivePhase selects the visible construction phase, clamped to the
// project's timeline.
func (s *Session) SetActivePhase(phase int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max := s.project.MaxPhase(); phase > max {
		phase = max
	}
	s.phases.SetActivePhase(phase)
}

// ActivePhase returns the visible construction phase.
func (s *Session) ActivePhase() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phases.ActivePhase()
}

// BuildingAppearance returns a building's phase-animation state.
func (s *Session) BuildingAppearance(buildingID string) scene.Appearance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phases.Appearance(buildingID)
}

// Compare commands.

// EnableCompare activates the split-screen phase comparison.
func (s *Session) EnableCompare(leftPhase, rightPhase int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compare.Enable(leftPhase, rightPhase)
}

// DisableCompare deactivates the comparison, keeping the divider.
func (s *Session) DisableCompare() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compare.Disable()
}

// SetCompareDivider moves the comparison divider.
func (s *Session) SetCompareDivider(x float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compare.SetDivider(x)
}

// Compare returns the comparison state.
func (s *Session) Compare() *scene.Compare {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compare
}

// ComparePhaseAt returns the construction phase rendered where a scene
// point appears on screen, honoring the split divider. Points the
// camera cannot see, and sessions without an active comparison, resolve
// to the globally active phase.
func (s *Session) ComparePhaseAt(p mgl64.Vec3) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.compare.Enabled() {
		return s.phases.ActivePhase()
	}
	frac, ok := scene.ScreenFraction(s.camera.Pose(), defaultFOVDegrees, defaultAspectRatio, p)
	if !ok {
		return s.phases.ActivePhase()
	}
	return s.compare.PhaseAt(frac)
}

// Map sync commands.

// SetMapSyncEnabled toggles the per-frame 2D map synchronization.
func (s *Session) SetMapSyncEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapEnabled = enabled
	s.mapSync.SetEnabled(enabled)
}

// SetViewport updates the viewport height used for map zoom derivation.
func (s *Session) SetViewport(heightPx float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapSync.SetViewport(heightPx)
}

// SetMapRenderer attaches the connected viewer's map renderer, or
// detaches it with nil. Survives scene rebuilds.
func (s *Session) SetMapRenderer(r MapRenderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderer = r
	s.mapSync.SetRenderer(r)
}

// SetBroadcast installs the publisher for the throttled collaboration
// camera broadcast. Nil disables broadcasting.
func (s *Session) SetBroadcast(fn CameraBroadcast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcast = fn
}

// Planner commands.

// SetPlannerTool switches the drawing tool, auto-finishing a complete
// in-progress shape under its previous tool. The submission runs
// without the session lock so the frame loop keeps ticking while the
// API round-trip is in flight.
func (s *Session) SetPlannerTool(ctx context.Context, tool models.ZoneType) (models.Zone, bool, error) {
	s.mu.Lock()
	draft, hasDraft := s.planner.SwitchTool(tool)
	s.mu.Unlock()
	if !hasDraft {
		return models.Zone{}, false, nil
	}

	zone, err := s.backend.CreateZone(ctx, draft)
	if err != nil {
		s.log.Error("zone submission failed", err, map[string]interface{}{
			"zone_type": draft.ZoneType,
		})
		return models.Zone{}, false, err
	}

	s.log.Info("zone created", map[string]interface{}{
		"zone_id":   zone.ID,
		"zone_type": zone.ZoneType,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones = append(s.zones, zone)
	s.rebuild()
	return zone, true, nil
}

// AddPlannerVertex appends a clicked ground point to the drawn shape.
func (s *Session) AddPlannerVertex(p mgl64.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planner.AddVertex(p)
}

// FinishZone submits the drawn shape and rebuilds the scene with the
// persisted zone. The draft is built under the session lock, submitted
// without it, then consumed once the API accepted it, so a slow
// submission never stalls the frame loop and a failed one keeps the
// drawn vertices for a retry.
func (s *Session) FinishZone(ctx context.Context) (models.Zone, error) {
	s.mu.Lock()
	draft, err := s.planner.Draft()
	s.mu.Unlock()
	if err != nil {
		return models.Zone{}, err
	}

	zone, err := s.backend.CreateZone(ctx, draft)
	if err != nil {
		s.log.Error("zone submission failed", err, map[string]interface{}{
			"zone_type": draft.ZoneType,
		})
		return models.Zone{}, err
	}

	s.log.Info("zone created", map[string]interface{}{
		"zone_id":   zone.ID,
		"zone_type": zone.ZoneType,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.planner.Consume()
	s.zones = append(s.zones, zone)
	s.rebuild()
	return zone, nil
}

// UndoPlannerVertex removes the last clicked vertex.
func (s *Session) UndoPlannerVertex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planner.Undo()
}

// CancelPlanner discards the drawn shape.
func (s *Session) CancelPlanner() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planner.Cancel()
}

// Annotation commands.

// CreateAnnotation persists a scene annotation for this project.
func (s *Session) CreateAnnotation(ctx context.Context, a models.Annotation) (models.Annotation, error) {
	a.ProjectID = s.ProjectID
	return s.backend.CreateAnnotation(ctx, a)
}

// Asset commands.

// ModelData returns one building's model payload at the given detail
// level, downloading it through the backend's cache on first request.
// Runs without the session lock so streaming never stalls the frame
// loop.
func (s *Session) ModelData(ctx context.Context, buildingID string, level int) ([]byte, error) {
	if data, ok := s.backend.Model(buildingID, level); ok {
		return data, nil
	}
	if err := s.backend.FetchModel(ctx, buildingID, level); err != nil {
		return nil, err
	}
	data, _ := s.backend.Model(buildingID, level)
	return data, nil
}

// Export commands.

// RequestScreenshot queues a screenshot directive for the client.
func (s *Session) RequestScreenshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directives = append(s.directives, Directive{Type: DirectiveScreenshot})
}

// RequestExportGLB queues a scene export directive for the client.
func (s *Session) RequestExportGLB() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directives = append(s.directives, Directive{Type: DirectiveExportGLB})
}

// DrainDirectives returns and clears the pending client directives.
func (s *Session) DrainDirectives() []Directive {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.directives
	s.directives = nil
	return out
}

// HandleRemoteEdit refetches project data after a collaborator's edit
// notification.
func (s *Session) HandleRemoteEdit(ctx context.Context) error {
	return s.Reload(ctx)
}
