// Package lod tracks which level-of-detail variants of a remote 3D asset
// are loaded and switches the displayed variant by camera distance without
// ever blocking a frame on a network fetch.
package lod

import (
	"context"
	"sync"

	"github.com/sitescope/sitescope/internal/logger"
)

// Distance thresholds in meters mapping camera distance to the ideal LOD
// level. Lower level numbers are higher visual fidelity.
const (
	Level0MaxDistance = 80.0
	Level1MaxDistance = 200.0
	Level2MaxDistance = 400.0
)

// Fetcher downloads one LOD variant of a building's asset. Implementations
// must be safe for concurrent use; the manager calls Fetch from background
// goroutines.
type Fetcher interface {
	FetchModel(ctx context.Context, buildingID string, level int) error
}

// State is the per-building LOD state machine. The invariant the whole
// design exists to protect: Current is always a member of Loaded, so the
// displayed asset never points at an unloaded variant.
type State struct {
	Current int
	Loaded  map[int]bool

	maxLevel int
	loading  map[int]bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// IdealLevel maps a camera distance to the LOD level the scene would show
// if every variant were already loaded.
func IdealLevel(distance float64, maxLevel int) int {
	var ideal int
	switch {
	case distance <= Level0MaxDistance:
		ideal = 0
	case distance <= Level1MaxDistance:
		ideal = 1
	case distance <= Level2MaxDistance:
		ideal = 2
	default:
		ideal = 3
	}
	if ideal > maxLevel {
		ideal = maxLevel
	}
	return ideal
}

// Manager owns the LOD state of every mounted building with a multi-level
// asset. All exported methods are safe for concurrent use: fetch
// completions arrive from background goroutines while the frame loop calls
// Update.
type Manager struct {
	mu      sync.Mutex
	states  map[string]*State
	fetcher Fetcher
	log     *logger.Logger
}

// NewManager creates a LOD manager using the given fetcher for background
// downloads.
func NewManager(fetcher Fetcher, log *logger.Logger) *Manager {
	return &Manager{
		states:  make(map[string]*State),
		fetcher: fetcher,
		log:     log,
	}
}

// Mount registers a building with maxLevel+1 LOD variants. The
// lowest-detail (highest-numbered) level is displayed first for fast
// initial paint and is immediately marked loaded.
func (m *Manager) Mount(buildingID string, maxLevel int) {
	if maxLevel < 0 {
		maxLevel = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.states[buildingID]; exists {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	m.states[buildingID] = &State{
		Current:  maxLevel,
		Loaded:   map[int]bool{maxLevel: true},
		maxLevel: maxLevel,
		loading:  make(map[int]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Unmount removes a building's LOD state and cancels its in-flight
// preloads. Called when the building view is destroyed.
func (m *Manager) Unmount(buildingID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.states[buildingID]; ok {
		st.cancel()
		delete(m.states, buildingID)
	}
}

// Update runs the per-frame distance check for one building and returns
// the level to display this frame.
//
// If the ideal level is already loaded it is displayed immediately. If
// not, the display falls back to the best already-loaded level that is
// still no worse (numerically >=) than the ideal, preserving visual
// continuity instead of popping to an unready asset. Background preloading
// then targets the next better (lower-numbered) level than the current
// one, one step at a time.
func (m *Manager) Update(buildingID string, distance float64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[buildingID]
	if !ok {
		return 0
	}

	ideal := IdealLevel(distance, st.maxLevel)

	if st.Loaded[ideal] {
		st.Current = ideal
	} else {
		// Best loaded level numerically >= ideal.
		for level := ideal + 1; level <= st.maxLevel; level++ {
			if st.Loaded[level] {
				st.Current = level
				break
			}
		}
	}

	m.maybePreload(buildingID, st)
	return st.Current
}

// maybePreload starts a background fetch for the level one step better
// than current, if it is wanted and not already loaded or in flight.
// Caller holds the lock.
func (m *Manager) maybePreload(buildingID string, st *State) {
	target := st.Current - 1
	if target < 0 || st.Loaded[target] || st.loading[target] {
		return
	}

	st.loading[target] = true

	// Unmount cancels st.ctx, aborting every in-flight preload for this
	// building.
	go func() {
		err := m.fetcher.FetchModel(st.ctx, buildingID, target)
		if err != nil {
			// Failed loads are recovered locally: the building keeps
			// showing its current level and the preload may retry on a
			// later frame.
			m.log.Warn("LOD preload failed", map[string]interface{}{
				"building_id": buildingID,
				"level":       target,
				"error":       err.Error(),
			})
			m.mu.Lock()
			if st, ok := m.states[buildingID]; ok {
				delete(st.loading, target)
			}
			m.mu.Unlock()
			return
		}
		m.finishLoad(buildingID, target)
	}()
}

// finishLoad flips the loaded flag for a completed fetch. The displayed
// level only changes on the next frame's Update, keeping the state
// transition in one place.
func (m *Manager) finishLoad(buildingID string, level int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[buildingID]
	if !ok {
		// Unmounted while the fetch was in flight.
		return
	}

	delete(st.loading, level)
	st.Loaded[level] = true
}

// Snapshot returns a copy of a building's LOD state for inspection.
func (m *Manager) Snapshot(buildingID string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[buildingID]
	if !ok {
		return State{}, false
	}

	loaded := make(map[int]bool, len(st.Loaded))
	for k, v := range st.Loaded {
		loaded[k] = v
	}
	return State{Current: st.Current, Loaded: loaded, maxLevel: st.maxLevel}, true
}
