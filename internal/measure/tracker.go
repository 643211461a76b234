// Package measure implements the in-scene measurement tools: point to
// point distance, three-point angle, closed-polygon area, and ground
// height probing. All values are stored in metric units; the display
// unit system only affects formatting.
package measure

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/sitescope/sitescope/internal/geo"
	"github.com/sitescope/sitescope/internal/geometry"
)

// Mode selects the active measurement tool.
type Mode string

const (
	ModeNone     Mode = ""
	ModeDistance Mode = "distance"
	ModeAngle    Mode = "angle"
	ModeArea     Mode = "area"
	ModeHeight   Mode = "height"
)

// Units selects how stored metric values are rendered.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

const (
	feetPerMeter             = 3.28084
	squareFeetPerSquareMeter = 10.7639
)

// Measurement is a completed measurement. Value is meters for distance
// and height, square meters for area, and degrees for angle.
type Measurement struct {
	ID     string       `json:"id"`
	Kind   Mode         `json:"kind"`
	Points []mgl64.Vec3 `json:"points"`
	Value  float64      `json:"value"`
}

// HeightResolver maps a picked point to the vertical extent of the
// structure beneath it: the base on the ground plane and the top of the
// structure. ok is false when nothing stands there.
type HeightResolver func(p mgl64.Vec3) (base, top mgl64.Vec3, ok bool)

// Tracker runs the measurement state machine for one viewer session.
// Clicks accumulate in a pending buffer until the active tool's point
// count is reached; switching tools discards the buffer so a half-built
// measurement never leaks into the next tool.
type Tracker struct {
	mode      Mode
	units     Units
	pending   []mgl64.Vec3
	completed []Measurement

	resolveHeight HeightResolver
}

// NewTracker creates a tracker with no active tool and metric display.
func NewTracker() *Tracker {
	return &Tracker{units: UnitsMetric}
}

// Mode returns the active tool.
func (t *Tracker) Mode() Mode { return t.mode }

// SetMode activates a tool. Any pending points from the previous tool
// are discarded; completed measurements stay.
func (t *Tracker) SetMode(mode Mode) {
	if mode == t.mode {
		return
	}
	t.mode = mode
	t.pending = nil
}

// SetHeightResolver installs the scene lookup the height tool uses to
// find the structure under a pick. Replaced on every scene rebuild.
func (t *Tracker) SetHeightResolver(r HeightResolver) {
	t.resolveHeight = r
}

// Units returns the display unit system.
func (t *Tracker) Units() Units { return t.units }

// SetUnits switches the display unit system. Stored values are not
// converted.
func (t *Tracker) SetUnits(units Units) {
	if units == UnitsMetric || units == UnitsImperial {
		t.units = units
	}
}

// Pending returns the points accumulated for the in-progress
// measurement.
func (t *Tracker) Pending() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(t.pending))
	copy(out, t.pending)
	return out
}

// Measurements returns all completed measurements.
func (t *Tracker) Measurements() []Measurement {
	out := make([]Measurement, len(t.completed))
	copy(out, t.completed)
	return out
}

// AddPoint records a picked scene point for the active tool. When the
// tool's point count is reached the measurement completes and is
// returned; area never completes here, it requires an explicit Close.
func (t *Tracker) AddPoint(p mgl64.Vec3) (Measurement, bool) {
	switch t.mode {
	case ModeDistance:
		t.pending = append(t.pending, p)
		if len(t.pending) < 2 {
			return Measurement{}, false
		}
		return t.complete(t.pending[0].Sub(t.pending[1]).Len()), true

	case ModeAngle:
		t.pending = append(t.pending, p)
		if len(t.pending) < 3 {
			return Measurement{}, false
		}
		return t.complete(angleAt(t.pending[0], t.pending[1], t.pending[2])), true

	case ModeArea:
		t.pending = append(t.pending, p)
		return Measurement{}, false

	case ModeHeight:
		// Single click: measure the structure under the pick, storing
		// its base and top. Off any structure, or without a resolver,
		// the picked point's own elevation is the value.
		if t.resolveHeight != nil {
			if base, top, ok := t.resolveHeight(p); ok {
				t.pending = []mgl64.Vec3{base, top}
				return t.complete(top.Y() - base.Y()), true
			}
		}
		t.pending = []mgl64.Vec3{p}
		return t.complete(p.Y()), true
	}
	return Measurement{}, false
}

// Close finishes an area measurement by closing the pending polygon.
// Fewer than three vertices cannot form a polygon; the pending points
// are kept so the user can continue clicking.
func (t *Tracker) Close() (Measurement, bool) {
	if t.mode != ModeArea || len(t.pending) < 3 {
		return Measurement{}, false
	}
	ring := make([]geo.LocalPoint, len(t.pending))
	for i, p := range t.pending {
		ring[i] = geo.LocalPoint{X: p.X(), Z: p.Z()}
	}
	return t.complete(geometry.RingArea(ring)), true
}

// Undo removes the most recent pending point.
func (t *Tracker) Undo() {
	if n := len(t.pending); n > 0 {
		t.pending = t.pending[:n-1]
	}
}

// Cancel discards the in-progress measurement without changing the
// active tool.
func (t *Tracker) Cancel() {
	t.pending = nil
}

// Remove deletes a completed measurement by ID.
func (t *Tracker) Remove(id string) bool {
	for i, m := range t.completed {
		if m.ID == id {
			t.completed = append(t.completed[:i], t.completed[i+1:]...)
			return true
		}
	}
	return false
}

// Clear deletes all completed measurements and any pending points.
func (t *Tracker) Clear() {
	t.pending = nil
	t.completed = nil
}

// Format renders a measurement's value in the tracker's display units.
func (t *Tracker) Format(m Measurement) string {
	switch m.Kind {
	case ModeAngle:
		return fmt.Sprintf("%.1f°", m.Value)
	case ModeArea:
		if t.units == UnitsImperial {
			return fmt.Sprintf("%.1f ft²", m.Value*squareFeetPerSquareMeter)
		}
		return fmt.Sprintf("%.1f m²", m.Value)
	default:
		if t.units == UnitsImperial {
			return fmt.Sprintf("%.2f ft", m.Value*feetPerMeter)
		}
		return fmt.Sprintf("%.2f m", m.Value)
	}
}

func (t *Tracker) complete(value float64) Measurement {
	m := Measurement{
		ID:     uuid.NewString(),
		Kind:   t.mode,
		Points: t.pending,
		Value:  value,
	}
	t.pending = nil
	t.completed = append(t.completed, m)
	return m
}

// angleAt returns the angle in degrees at vertex between the rays
// toward a and b, always in [0, 180].
func angleAt(a, vertex, b mgl64.Vec3) float64 {
	va := a.Sub(vertex)
	vb := b.Sub(vertex)
	la, lb := va.Len(), vb.Len()
	if la < 1e-9 || lb < 1e-9 {
		return 0
	}
	cos := va.Dot(vb) / (la * lb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
