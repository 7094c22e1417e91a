package dzb

import (
	"fmt"

	"github.com/Faultbox/dzbkit/pkg/math"
)

// AddFace appends a triangle at the three given positions. Each position
// reuses the first existing vertex with exactly the same coordinates, or adds
// a new one. prop and group must already belong to d.
func (d *DZB) AddFace(positions []math.Vec3, prop *Property, group *Group) (*Face, error) {
	if len(positions) != 3 {
		return nil, preconditionError("add face", fmt.Errorf("%w: got %d", ErrWrongVertexCount, len(positions)))
	}
	propIndex := d.IndexOfProperty(prop)
	if propIndex < 0 {
		return nil, preconditionError("add face", fmt.Errorf("property: %w", ErrNotOwned))
	}
	groupIndex := d.IndexOfGroup(group)
	if groupIndex < 0 {
		return nil, preconditionError("add face", fmt.Errorf("group: %w", ErrNotOwned))
	}

	f := &Face{
		Property:      prop,
		Group:         group,
		PropertyIndex: uint16(propIndex),
		GroupIndex:    uint16(groupIndex),
	}
	for i, p := range positions {
		vi := d.findVertex(p)
		if vi < 0 {
			vi = len(d.Vertices)
			d.Vertices = append(d.Vertices, &Vertex{X: p.X, Y: p.Y, Z: p.Z})
		}
		f.Vertices[i] = d.Vertices[vi]
		f.VertexIndices[i] = uint16(vi)
	}
	d.Faces = append(d.Faces, f)
	return f, nil
}

func (d *DZB) findVertex(p math.Vec3) int {
	for i, v := range d.Vertices {
		if v.at(p) {
			return i
		}
	}
	return -1
}

// AddProperty appends p to the property list and returns it.
func (d *DZB) AddProperty(p *Property) *Property {
	d.Properties = append(d.Properties, p)
	return p
}

// AddGroup appends g to the group list as a root and returns it. Any tree
// links already set on g are cleared; use AttachGroup to parent it.
func (d *DZB) AddGroup(g *Group) *Group {
	g.ParentIndex = NoGroup
	g.NextSiblingIndex = NoGroup
	g.FirstChildIndex = NoGroup
	d.Groups = append(d.Groups, g)
	return g
}

// IndexOfVertex returns the position of v in d.Vertices, or -1.
func (d *DZB) IndexOfVertex(v *Vertex) int { return position(d.Vertices, v) }

// IndexOfFace returns the position of f in d.Faces, or -1.
func (d *DZB) IndexOfFace(f *Face) int { return position(d.Faces, f) }

// IndexOfGroup returns the position of g in d.Groups, or -1.
func (d *DZB) IndexOfGroup(g *Group) int { return position(d.Groups, g) }

// IndexOfProperty returns the position of p in d.Properties, or -1.
func (d *DZB) IndexOfProperty(p *Property) int { return position(d.Properties, p) }

func position[T any](items []*T, item *T) int {
	if item == nil {
		return -1
	}
	for i, it := range items {
		if it == item {
			return i
		}
	}
	return -1
}

// FacesInGroup returns the faces assigned to g, in file order.
func (d *DZB) FacesInGroup(g *Group) []*Face {
	var faces []*Face
	for _, f := range d.Faces {
		if f.Group == g {
			faces = append(faces, f)
		}
	}
	return faces
}

// Bounds returns the axis-aligned bounding box of all vertices. An empty mesh
// returns two zero vectors.
func (d *DZB) Bounds() (min, max math.Vec3) {
	if len(d.Vertices) == 0 {
		return math.Vec3{}, math.Vec3{}
	}
	min = d.Vertices[0].Pos()
	max = min
	for _, v := range d.Vertices[1:] {
		min = min.Min(v.Pos())
		max = max.Max(v.Pos())
	}
	return min, max
}
