package dzb

import "github.com/Faultbox/dzbkit/pkg/math"

// VertexSize is the on-disk size of a vertex record.
const VertexSize = 0x0C

// Vertex is a point of the collision mesh.
type Vertex struct {
	X, Y, Z float32
}

// Pos returns the vertex position as a vector.
func (v *Vertex) Pos() math.Vec3 {
	return math.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// at reports whether v sits exactly at p.
func (v *Vertex) at(p math.Vec3) bool {
	return v.X == p.X && v.Y == p.Y && v.Z == p.Z
}

func readVertex(data []byte, off int) *Vertex {
	return &Vertex{
		X: readF32(data, off+0),
		Y: readF32(data, off+4),
		Z: readF32(data, off+8),
	}
}

func (v *Vertex) write(w *writer, off int) {
	w.f32(off+0, v.X)
	w.f32(off+4, v.Y)
	w.f32(off+8, v.Z)
}
