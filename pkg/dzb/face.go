package dzb

import "github.com/Faultbox/dzbkit/pkg/math"

// FaceSize is the on-disk size of a face record.
const FaceSize = 0x0A

// Face is a collision triangle.
//
// The index fields hold what was read from (or last written to) the file.
// The reference fields are set by the resolution pass after a read and are
// the source of truth when saving; the container's slices own the objects.
type Face struct {
	VertexIndices [3]uint16
	PropertyIndex uint16
	GroupIndex    uint16

	Vertices [3]*Vertex
	Property *Property
	Group    *Group
}

// Normal returns the unit normal of the triangle using counter-clockwise
// winding. Degenerate or unresolved faces return the zero vector.
func (f *Face) Normal() math.Vec3 {
	if f.Vertices[0] == nil || f.Vertices[1] == nil || f.Vertices[2] == nil {
		return math.Vec3{}
	}
	a := f.Vertices[0].Pos()
	b := f.Vertices[1].Pos()
	c := f.Vertices[2].Pos()
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}

func readFace(data []byte, off int) *Face {
	return &Face{
		VertexIndices: [3]uint16{
			readU16(data, off+0),
			readU16(data, off+2),
			readU16(data, off+4),
		},
		PropertyIndex: readU16(data, off+6),
		GroupIndex:    readU16(data, off+8),
	}
}

func (f *Face) write(w *writer, off int) {
	w.u16(off+0, f.VertexIndices[0])
	w.u16(off+2, f.VertexIndices[1])
	w.u16(off+4, f.VertexIndices[2])
	w.u16(off+6, f.PropertyIndex)
	w.u16(off+8, f.GroupIndex)
}
