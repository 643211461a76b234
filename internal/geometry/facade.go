package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Facade placement constants. Window spacing and corner margins are fixed
// so facades read consistently across buildings of any footprint.
const (
	WindowSpacing      = 3.5
	WindowCornerMargin = 1.5
	windowWidth        = 1.2
	windowHeight       = 1.5
	windowInset        = 0.05

	doorWidth  = 1.0
	doorHeight = 2.2
	doorDepth  = 0.12

	floorStripHeight = 0.12
	floorStripInset  = 0.04

	corniceDepth  = 0.3
	corniceHeight = 0.25

	balconyMaxWidth  = 2.5
	balconyDepth     = 1.2
	balconyThickness = 0.15
)

// WindowsPerWall returns how many windows fit on a wall of the given
// length: the usable span after the corner margins, divided by the fixed
// spacing.
func WindowsPerWall(length float64) int {
	usable := length - 2*WindowCornerMargin
	if usable < WindowSpacing {
		return 0
	}
	return int(math.Floor(usable / WindowSpacing))
}

// Windows places one row of window quads per floor along every wall
// segment. Each window is a single quad standing just outside the wall
// plane along the outward normal.
func Windows(walls []WallSegment, floors int, floorHeight float64) *Mesh {
	if floors < 1 || floorHeight <= 0 {
		return nil
	}

	mesh := NewMesh("windows", "glass")
	for _, wall := range walls {
		count := WindowsPerWall(wall.Length)
		if count == 0 {
			continue
		}

		usable := wall.Length - 2*WindowCornerMargin
		step := usable / float64(count)

		for floor := 0; floor < floors; floor++ {
			sillY := float64(floor)*floorHeight + floorHeight*0.4
			h := math.Min(windowHeight, floorHeight*0.5)

			for i := 0; i < count; i++ {
				d := WindowCornerMargin + (float64(i)+0.5)*step
				center := wall.PointAt(d)

				cx := center.X + wall.NormalX*windowInset
				cz := center.Z + wall.NormalZ*windowInset
				hx := wall.DirX * windowWidth / 2
				hz := wall.DirZ * windowWidth / 2

				mesh.AddQuad(
					mgl64.Vec3{cx - hx, sillY, cz - hz},
					mgl64.Vec3{cx + hx, sillY, cz + hz},
					mgl64.Vec3{cx + hx, sillY + h, cz + hz},
					mgl64.Vec3{cx - hx, sillY + h, cz - hz},
				)
			}
		}
	}

	if mesh.Empty() {
		return nil
	}
	return mesh
}

// Door places a single door box centered on the longest wall segment.
func Door(walls []WallSegment) *Mesh {
	idx := LongestSegment(walls)
	if idx < 0 {
		return nil
	}
	wall := walls[idx]
	if wall.Length < doorWidth*2 {
		return nil
	}

	mesh := NewMesh("door", "wood")
	center := mgl64.Vec3{
		wall.MidX + wall.NormalX*doorDepth/2,
		doorHeight / 2,
		wall.MidZ + wall.NormalZ*doorDepth/2,
	}
	mesh.AddBox(center, mgl64.Vec3{doorWidth, doorHeight, doorDepth}, -wall.Angle)
	return mesh
}

// FloorLines generates a thin divider strip per wall segment at every
// interior floor boundary.
func FloorLines(walls []WallSegment, floors int, floorHeight float64) *Mesh {
	if floors < 2 || floorHeight <= 0 {
		return nil
	}

	mesh := NewMesh("floor_lines", "trim")
	for _, wall := range walls {
		for floor := 1; floor < floors; floor++ {
			y := float64(floor) * floorHeight
			ax := wall.StartX + wall.NormalX*floorStripInset
			az := wall.StartZ + wall.NormalZ*floorStripInset
			bx := wall.EndX + wall.NormalX*floorStripInset
			bz := wall.EndZ + wall.NormalZ*floorStripInset

			mesh.AddQuad(
				mgl64.Vec3{ax, y - floorStripHeight/2, az},
				mgl64.Vec3{bx, y - floorStripHeight/2, bz},
				mgl64.Vec3{bx, y + floorStripHeight/2, bz},
				mgl64.Vec3{ax, y + floorStripHeight/2, az},
			)
		}
	}

	if mesh.Empty() {
		return nil
	}
	return mesh
}

// Cornice generates a roofline ledge box per wall segment.
func Cornice(walls []WallSegment, height float64) *Mesh {
	if len(walls) == 0 || height <= 0 {
		return nil
	}

	mesh := NewMesh("cornice", "trim")
	for _, wall := range walls {
		center := mgl64.Vec3{
			wall.MidX + wall.NormalX*corniceDepth/2,
			height + corniceHeight/2,
			wall.MidZ + wall.NormalZ*corniceDepth/2,
		}
		mesh.AddBox(center, mgl64.Vec3{wall.Length + corniceDepth, corniceHeight, corniceDepth}, -wall.Angle)
	}
	return mesh
}

// Balconies places balcony slabs on the longest wall for every floor above
// the ground floor. Residential buildings only.
func Balconies(walls []WallSegment, floors int, floorHeight float64) *Mesh {
	if floors < 2 || floorHeight <= 0 {
		return nil
	}
	idx := LongestSegment(walls)
	if idx < 0 {
		return nil
	}
	wall := walls[idx]

	width := math.Min(balconyMaxWidth, wall.Length*0.3)
	if width <= 0 {
		return nil
	}

	mesh := NewMesh("balconies", "concrete")
	for floor := 1; floor < floors; floor++ {
		center := mgl64.Vec3{
			wall.MidX + wall.NormalX*balconyDepth/2,
			float64(floor)*floorHeight + balconyThickness/2,
			wall.MidZ + wall.NormalZ*balconyDepth/2,
		}
		mesh.AddBox(center, mgl64.Vec3{width, balconyThickness, balconyDepth}, -wall.Angle)
	}
	return mesh
}
