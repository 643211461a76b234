package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is one renderable triangle mesh produced by the builder. Meshes are
// rebuilt wholesale whenever their source polygon changes; nothing mutates
// a mesh after it is returned.
type Mesh struct {
	Name     string       `json:"name"`
	Material string       `json:"material"`
	Vertices []mgl64.Vec3 `json:"vertices"`
	Faces    [][3]int     `json:"faces"`
}

// NewMesh creates an empty named mesh.
func NewMesh(name, material string) *Mesh {
	return &Mesh{Name: name, Material: material}
}

// Empty reports whether the mesh has no faces.
func (m *Mesh) Empty() bool {
	return m == nil || len(m.Faces) == 0
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(v mgl64.Vec3) int {
	m.Vertices = append(m.Vertices, v)
	return len(m.Vertices) - 1
}

// AddTriangle appends a triangle from three new vertices.
func (m *Mesh) AddTriangle(a, b, c mgl64.Vec3) {
	i := m.AddVertex(a)
	j := m.AddVertex(b)
	k := m.AddVertex(c)
	m.Faces = append(m.Faces, [3]int{i, j, k})
}

// AddQuad appends a quadrilateral a-b-c-d as two triangles. Vertices are
// expected in winding order around the quad perimeter.
func (m *Mesh) AddQuad(a, b, c, d mgl64.Vec3) {
	i := m.AddVertex(a)
	j := m.AddVertex(b)
	k := m.AddVertex(c)
	l := m.AddVertex(d)
	m.Faces = append(m.Faces, [3]int{i, j, k}, [3]int{i, k, l})
}

// QuadCount returns the number of quads in a mesh built exclusively from
// AddQuad calls.
func (m *Mesh) QuadCount() int {
	return len(m.Faces) / 2
}

// AddBox appends an axis-aligned box centered at center with the given
// extents, rotated by angle radians around the vertical axis. Used for
// facade details (windows, doors, balcony slabs) which are thin boxes
// oriented along their wall.
func (m *Mesh) AddBox(center mgl64.Vec3, extents mgl64.Vec3, angle float64) {
	hx, hy, hz := extents.X()/2, extents.Y()/2, extents.Z()/2

	rot := mgl64.Rotate3DY(angle)
	corner := func(sx, sy, sz float64) mgl64.Vec3 {
		local := mgl64.Vec3{sx * hx, sy * hy, sz * hz}
		return center.Add(rot.Mul3x1(local))
	}

	// Eight corners, bottom face then top face.
	v := [8]mgl64.Vec3{
		corner(-1, -1, -1), corner(1, -1, -1), corner(1, -1, 1), corner(-1, -1, 1),
		corner(-1, 1, -1), corner(1, 1, -1), corner(1, 1, 1), corner(-1, 1, 1),
	}

	m.AddQuad(v[0], v[1], v[2], v[3]) // bottom
	m.AddQuad(v[4], v[7], v[6], v[5]) // top
	m.AddQuad(v[0], v[4], v[5], v[1]) // side
	m.AddQuad(v[1], v[5], v[6], v[2]) // side
	m.AddQuad(v[2], v[6], v[7], v[3]) // side
	m.AddQuad(v[3], v[7], v[4], v[0]) // side
}
