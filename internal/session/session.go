// Package session owns one viewer's complete state: the loaded scene,
// the camera, the active tools, and the per-frame systems that keep the
// map and collaborators in step with the 3D view. All mutation goes
// through named commands so the surface a client can drive stays
// explicit and small.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/sitescope/sitescope/internal/backend"
	"github.com/sitescope/sitescope/internal/camera"
	"github.com/sitescope/sitescope/internal/collab"
	"github.com/sitescope/sitescope/internal/frame"
	"github.com/sitescope/sitescope/internal/geo"
	"github.com/sitescope/sitescope/internal/lod"
	"github.com/sitescope/sitescope/internal/logger"
	"github.com/sitescope/sitescope/internal/mapsync"
	"github.com/sitescope/sitescope/internal/measure"
	"github.com/sitescope/sitescope/internal/models"
	"github.com/sitescope/sitescope/internal/planner"
	"github.com/sitescope/sitescope/internal/scene"
)

// Default viewport parameters used until the client reports its real
// geometry.
const (
	defaultViewportHeight = 1080
	defaultFOVDegrees     = 60
	defaultAspectRatio    = 16.0 / 9.0

	// defaultContextRadius is the surroundings fetch radius in meters
	// when the deployment does not override it.
	defaultContextRadius = 500.0
)

// Directive is a one-shot instruction for the rendering client, drained
// by the transport layer each frame.
type Directive struct {
	Type string `json:"type"`
}

const (
	DirectiveScreenshot = "screenshot"
	DirectiveExportGLB  = "export_glb"
)

// assetRef tracks one asset-path building for per-frame LOD updates.
type assetRef struct {
	buildingID string
	center     mgl64.Vec3
}

// MapRenderer receives per-frame map poses. Implemented by the
// transport layer pushing to the client's 2D map.
type MapRenderer = mapsync.Renderer

// CameraBroadcast receives throttled camera poses for the
// collaboration channel.
type CameraBroadcast func(pose camera.Pose)

// Session is one viewer's live state for one project.
type Session struct {
	ID        string
	ProjectID string

	log           *logger.Logger
	backend       *backend.Client
	contextRadius float64

	mu sync.Mutex

	project     *models.Project
	zones       []models.Zone
	contextData *models.ContextData
	graph       *scene.Graph

	camera     *camera.Controller
	measure    *measure.Tracker
	planner    *planner.Planner
	lod        *lod.Manager
	phases     *scene.PhaseAnimator
	compare    *scene.Compare
	mapSync    *mapsync.Synchronizer
	renderer   MapRenderer
	mapEnabled bool
	throttle   *collab.Throttle

	scheduler *frame.Scheduler
	input     camera.Input
	assets    []assetRef

	selection  string
	hover      string
	followUser string
	directives []Directive

	broadcast CameraBroadcast
}

// Options configures a new session.
type Options struct {
	ProjectID   string
	Backend     *backend.Client
	MapRenderer MapRenderer
	Broadcast   CameraBroadcast
	Logger      *logger.Logger

	// FrameInterval overrides the scheduler cadence. Zero means the
	// default 16ms.
	FrameInterval time.Duration
	// ContextRadius overrides the surroundings fetch radius in meters.
	// Zero means the default.
	ContextRadius float64
}

// New creates a session and loads the project's scene. The returned
// session is ready to be stepped by its scheduler.
func New(ctx context.Context, opts Options) (*Session, error) {
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = frame.DefaultInterval
	}
	radius := opts.ContextRadius
	if radius <= 0 {
		radius = defaultContextRadius
	}

	s := &Session{
		ID:            uuid.NewString(),
		ProjectID:     opts.ProjectID,
		log:           opts.Logger.With(map[string]interface{}{"project_id": opts.ProjectID}),
		backend:       opts.Backend,
		contextRadius: radius,
		measure:       measure.NewTracker(),
		phases:        scene.NewPhaseAnimator(),
		compare:       scene.NewCompare(),
		throttle:      collab.NewThrottle(collab.CameraBroadcastInterval),
		scheduler:     frame.NewScheduler(interval, opts.Logger),
		broadcast:     opts.Broadcast,
	}
	s.lod = lod.NewManager(opts.Backend, s.log)
	s.renderer = opts.MapRenderer
	s.mapEnabled = true

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	s.registerSystems()
	return s, nil
}

// Reload refetches all project data and rebuilds the scene. Called at
// startup and whenever a collaborator's edit invalidates the local
// copy.
func (s *Session) Reload(ctx context.Context) error {
	project, err := s.backend.GetProject(ctx, s.ProjectID)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}
	zones, err := s.backend.ListZones(ctx, s.ProjectID)
	if err != nil {
		return fmt.Errorf("loading zones: %w", err)
	}

	var contextData *models.ContextData
	if project.Location != nil {
		contextData, err = s.backend.GetContext(ctx,
			project.Location.Latitude, project.Location.Longitude, s.contextRadius)
		if err != nil {
			// Context is decoration; a scene without surroundings is
			// still fully usable.
			s.log.Warn("context fetch failed", map[string]interface{}{"error": err.Error()})
			contextData = nil
		}
	}

	graph := scene.Build(scene.Input{
		Project: project,
		Zones:   zones,
		Context: contextData,
	}, s.log)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.project != nil {
		s.evictRemovedModels(project)
	}
	s.project = project
	s.zones = zones
	s.contextData = contextData
	s.graph = graph
	s.rewireScene()
	return nil
}

// evictRemovedModels drops cached model payloads for buildings that no
// longer exist in the refetched project. Caller holds s.mu.
func (s *Session) evictRemovedModels(next *models.Project) {
	kept := make(map[string]bool, len(next.Buildings))
	for i := range next.Buildings {
		kept[next.Buildings[i].ID] = true
	}
	for i := range s.project.Buildings {
		if id := s.project.Buildings[i].ID; !kept[id] {
			s.backend.EvictModels(id)
		}
	}
}

// rebuild reconstructs the scene from the session's cached data, used
// after local mutations that already round-tripped through the API.
// Caller holds s.mu.
func (s *Session) rebuild() {
	s.graph = scene.Build(scene.Input{
		Project: s.project,
		Zones:   s.zones,
		Context: s.contextData,
	}, s.log)
	s.rewireScene()
}

// rewireScene points the per-building systems at the freshly built
// graph. Caller holds s.mu.
func (s *Session) rewireScene() {
	for _, ref := range s.assets {
		s.lod.Unmount(ref.buildingID)
	}
	s.assets = s.assets[:0]

	for i := range s.project.Buildings {
		b := &s.project.Buildings[i]
		s.phases.Track(b.ID, b.Phase())

		if scene.PathFor(b) != scene.PathAsset {
			continue
		}
		maxLevel := len(b.LODURLs) - 1
		if maxLevel < 0 {
			maxLevel = 0
		}
		s.lod.Mount(b.ID, maxLevel)
		s.assets = append(s.assets, assetRef{
			buildingID: b.ID,
			center:     buildingCenter(b, s.graph),
		})
	}

	if s.camera == nil {
		start := camera.PresetPose(camera.PresetAerial, s.graph.Center(), s.graph.Radius())
		s.camera = camera.NewController(start, s.graph.Collider())
	} else {
		s.camera.SetCollider(s.graph.Collider())
	}

	collider := s.graph.Collider()
	s.measure.SetHeightResolver(func(p mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, bool) {
		top, ok := collider.HeightAt(p.X(), p.Z())
		if !ok {
			return mgl64.Vec3{}, mgl64.Vec3{}, false
		}
		return mgl64.Vec3{p.X(), 0, p.Z()}, mgl64.Vec3{p.X(), top, p.Z()}, true
	})

	s.planner = planner.New(s.graph.Origin, s.ProjectID)
	s.mapSync = mapsync.NewSynchronizer(
		s.graph.Origin, s.renderer, defaultViewportHeight, defaultFOVDegrees)
	s.mapSync.SetEnabled(s.mapEnabled)
}

// registerSystems wires the frame loop. Order is the contract: the
// camera resolves first, scene animation and LOD react to the new pose,
// the map mirrors it, and the collaboration broadcast samples it last.
func (s *Session) registerSystems() {
	s.scheduler.Register("camera", func(dt time.Duration) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.camera.Update(dt, s.input)
	})

	s.scheduler.Register("scene", func(dt time.Duration) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.phases.Update(dt)
		pos := s.camera.Pose().Position
		for _, ref := range s.assets {
			s.lod.Update(ref.buildingID, pos.Sub(ref.center).Len())
		}
	})

	s.scheduler.Register("mapsync", func(dt time.Duration) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.mapSync.Sync(s.camera.Pose())
	})

	s.scheduler.Register("collab", func(dt time.Duration) {
		s.mu.Lock()
		pose := s.camera.Pose()
		fn := s.broadcast
		send := fn != nil && s.throttle.Allow(time.Now())
		s.mu.Unlock()
		if send {
			fn(pose)
		}
	})
}

// Scheduler returns the session's frame scheduler for the transport
// layer to run.
func (s *Session) Scheduler() *frame.Scheduler { return s.scheduler }

// Graph returns the current scene graph.
func (s *Session) Graph() *scene.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// buildingCenter locates a building in scene space from its footprint.
func buildingCenter(b *models.Building, g *scene.Graph) mgl64.Vec3 {
	if len(b.Footprint) == 0 {
		return g.Center()
	}
	var cx, cz float64
	for _, c := range b.Footprint {
		p := geo.ToLocal(c[0], c[1], g.Origin)
		cx += p.X
		cz += p.Z
	}
	n := float64(len(b.Footprint))
	return mgl64.Vec3{cx / n, 0, cz / n}
}
