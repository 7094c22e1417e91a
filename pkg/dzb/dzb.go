// Package dzb reads and writes DZB collision meshes: a triangle list with
// per-triangle property metadata and a tree of named groups.
//
// All multi-byte values are big-endian. A DZB is read into a graph where each
// Face points at Vertex, Property and Group objects owned by the container's
// slices; Save rebuilds the byte image from that graph.
//
// The octree lists referenced by the header are not modeled. Their counts and
// offsets are kept after a read but Save writes them as zero, so any octree
// data in the source file is dropped.
package dzb

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// HeaderSize is the size of the fixed file header.
const HeaderSize = 0x34

// Header is the fixed table of record counts and list offsets at the start of
// every DZB file.
type Header struct {
	NumVertices      uint32
	VertexListOffset uint32

	NumFaces       uint32
	FaceListOffset uint32

	NumOctreeIndices      uint32
	OctreeIndexListOffset uint32
	NumOctreeNodes        uint32
	OctreeNodeListOffset  uint32

	NumGroups       uint32
	GroupListOffset uint32

	NumProperties      uint32
	PropertyListOffset uint32

	Unknown1 uint32
}

func readHeader(data []byte) Header {
	return Header{
		NumVertices:           readU32(data, 0x00),
		VertexListOffset:      readU32(data, 0x04),
		NumFaces:              readU32(data, 0x08),
		FaceListOffset:        readU32(data, 0x0C),
		NumOctreeIndices:      readU32(data, 0x10),
		OctreeIndexListOffset: readU32(data, 0x14),
		NumOctreeNodes:        readU32(data, 0x18),
		OctreeNodeListOffset:  readU32(data, 0x1C),
		NumGroups:             readU32(data, 0x20),
		GroupListOffset:       readU32(data, 0x24),
		NumProperties:         readU32(data, 0x28),
		PropertyListOffset:    readU32(data, 0x2C),
		Unknown1:              readU32(data, 0x30),
	}
}

func (h *Header) write(w *writer) {
	w.u32(0x00, h.NumVertices)
	w.u32(0x04, h.VertexListOffset)
	w.u32(0x08, h.NumFaces)
	w.u32(0x0C, h.FaceListOffset)
	w.u32(0x10, h.NumOctreeIndices)
	w.u32(0x14, h.OctreeIndexListOffset)
	w.u32(0x18, h.NumOctreeNodes)
	w.u32(0x1C, h.OctreeNodeListOffset)
	w.u32(0x20, h.NumGroups)
	w.u32(0x24, h.GroupListOffset)
	w.u32(0x28, h.NumProperties)
	w.u32(0x2C, h.PropertyListOffset)
	w.u32(0x30, h.Unknown1)
}

// DZB is a collision mesh. The slices own every record; slice order is the
// on-disk index order.
//
// A DZB must not be used from more than one goroutine at a time.
type DZB struct {
	Header

	Vertices   []*Vertex
	Faces      []*Face
	Groups     []*Group
	Properties []*Property

	opts options
}

// New returns an empty collision mesh.
func New(opts ...Option) *DZB {
	d := &DZB{opts: defaultOptions()}
	for _, opt := range opts {
		opt(&d.opts)
	}
	return d
}

func (d *DZB) log() *zap.Logger {
	if d.opts.logger == nil {
		return zap.NewNop()
	}
	return d.opts.logger
}

// Parse decodes a DZB file image.
func Parse(data []byte, opts ...Option) (*DZB, error) {
	d := New(opts...)
	if err := d.Read(data); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseFile decodes a DZB file from disk.
func ParseFile(path string, opts ...Option) (*DZB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DZB file: %w", err)
	}
	return Parse(data, opts...)
}

// Read replaces the contents of d with the mesh decoded from data. On error
// d is left unchanged.
func (d *DZB) Read(data []byte) error {
	if len(data) < HeaderSize {
		return formatError("header", 0, fmt.Errorf("%w: need 0x%x bytes, have 0x%x", ErrTruncated, HeaderSize, len(data)))
	}
	h := readHeader(data)

	lists := []struct {
		name   string
		offset uint32
		count  uint32
		size   int
	}{
		{"vertex list", h.VertexListOffset, h.NumVertices, VertexSize},
		{"face list", h.FaceListOffset, h.NumFaces, FaceSize},
		{"group list", h.GroupListOffset, h.NumGroups, GroupSize},
		{"property list", h.PropertyListOffset, h.NumProperties, PropertySize},
	}
	for _, l := range lists {
		if err := checkList(len(data), l.offset, l.count, l.size); err != nil {
			return formatError(l.name, int64(l.offset), err)
		}
	}

	vertices := make([]*Vertex, h.NumVertices)
	for i := range vertices {
		vertices[i] = readVertex(data, int(h.VertexListOffset)+i*VertexSize)
	}

	faces := make([]*Face, h.NumFaces)
	for i := range faces {
		faces[i] = readFace(data, int(h.FaceListOffset)+i*FaceSize)
	}

	groups := make([]*Group, h.NumGroups)
	for i := range groups {
		g, err := readGroup(data, int(h.GroupListOffset)+i*GroupSize, &d.opts)
		if err != nil {
			return fmt.Errorf("parsing group %d: %w", i, err)
		}
		groups[i] = g
	}

	properties := make([]*Property, h.NumProperties)
	for i := range properties {
		properties[i] = readProperty(data, int(h.PropertyListOffset)+i*PropertySize)
	}

	for i, f := range faces {
		off := int64(h.FaceListOffset) + int64(i)*FaceSize
		if err := resolveFace(f, vertices, properties, groups); err != nil {
			return formatError("face", off, fmt.Errorf("face %d: %w", i, err))
		}
	}

	for i, g := range groups {
		off := int64(h.GroupListOffset) + int64(i)*GroupSize
		if err := checkGroupLinks(g, len(groups)); err != nil {
			return formatError("group", off, fmt.Errorf("group %d: %w", i, err))
		}
	}

	d.Header = h
	d.Vertices = vertices
	d.Faces = faces
	d.Groups = groups
	d.Properties = properties

	d.log().Debug("parsed DZB",
		zap.Int("bytes", len(data)),
		zap.Uint32("vertices", h.NumVertices),
		zap.Uint32("faces", h.NumFaces),
		zap.Uint32("groups", h.NumGroups),
		zap.Uint32("properties", h.NumProperties),
		zap.Uint32("octree_indices", h.NumOctreeIndices),
		zap.Uint32("octree_nodes", h.NumOctreeNodes))

	return nil
}

// resolveFace points f at the records its indices name.
func resolveFace(f *Face, vertices []*Vertex, properties []*Property, groups []*Group) error {
	for j, vi := range f.VertexIndices {
		if int(vi) >= len(vertices) {
			return fmt.Errorf("%w: vertex %d index %d, have %d vertices", ErrIndexOutOfRange, j+1, vi, len(vertices))
		}
		f.Vertices[j] = vertices[vi]
	}
	if int(f.PropertyIndex) >= len(properties) {
		return fmt.Errorf("%w: property index %d, have %d properties", ErrIndexOutOfRange, f.PropertyIndex, len(properties))
	}
	f.Property = properties[f.PropertyIndex]
	if int(f.GroupIndex) >= len(groups) {
		return fmt.Errorf("%w: group index %d, have %d groups", ErrIndexOutOfRange, f.GroupIndex, len(groups))
	}
	f.Group = groups[f.GroupIndex]
	return nil
}

func checkGroupLinks(g *Group, n int) error {
	links := []struct {
		name  string
		index int16
	}{
		{"parent", g.ParentIndex},
		{"next sibling", g.NextSiblingIndex},
		{"first child", g.FirstChildIndex},
	}
	for _, l := range links {
		if l.index != NoGroup && (l.index < 0 || int(l.index) >= n) {
			return fmt.Errorf("%w: %s index %d, have %d groups", ErrBadGroupLink, l.name, l.index, n)
		}
	}
	return nil
}

// Save encodes the mesh into a fresh file image.
//
// Lists are emitted in the order header, vertices, faces, properties and
// groups, with the last two aligned to four bytes. In the default mode the
// group names follow the group list as a table of null-terminated strings.
// On success the header fields of d are updated to describe the image.
func (d *DZB) Save() ([]byte, error) {
	indices, err := d.faceIndices()
	if err != nil {
		return nil, err
	}

	w := &writer{}
	w.grow(0, HeaderSize)

	var h Header
	h.Unknown1 = d.Unknown1

	h.NumVertices = uint32(len(d.Vertices))
	h.VertexListOffset = uint32(w.len())
	for i, v := range d.Vertices {
		v.write(w, int(h.VertexListOffset)+i*VertexSize)
	}

	h.NumFaces = uint32(len(d.Faces))
	h.FaceListOffset = uint32(w.len())
	for i, f := range d.Faces {
		rec := *f
		indices[i].apply(&rec)
		rec.write(w, int(h.FaceListOffset)+i*FaceSize)
	}

	w.align(4)
	h.NumProperties = uint32(len(d.Properties))
	h.PropertyListOffset = uint32(w.len())
	for i, p := range d.Properties {
		p.write(w, int(h.PropertyListOffset)+i*PropertySize)
	}

	w.align(4)
	h.NumGroups = uint32(len(d.Groups))
	h.GroupListOffset = uint32(w.len())
	if err := d.writeGroups(w, int(h.GroupListOffset)); err != nil {
		return nil, err
	}

	h.write(w)
	d.Header = h
	for i, f := range d.Faces {
		indices[i].apply(f)
	}

	d.log().Debug("saved DZB",
		zap.Int("bytes", w.len()),
		zap.Uint32("vertices", h.NumVertices),
		zap.Uint32("faces", h.NumFaces),
		zap.Uint32("groups", h.NumGroups),
		zap.Uint32("properties", h.NumProperties),
		zap.Bool("legacy_groups", d.opts.legacyGroup))

	return w.buf, nil
}

// SaveFile encodes the mesh and writes it to path.
func (d *DZB) SaveFile(path string) error {
	data, err := d.Save()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing DZB file: %w", err)
	}
	return nil
}

type faceIndex struct {
	VertexIndices [3]uint16
	PropertyIndex uint16
	GroupIndex    uint16
}

func (fi faceIndex) apply(f *Face) {
	f.VertexIndices = fi.VertexIndices
	f.PropertyIndex = fi.PropertyIndex
	f.GroupIndex = fi.GroupIndex
}

// faceIndices recomputes every face's indices from its references. Faces are
// only updated once Save has succeeded, so a failed Save leaves the graph as
// it was.
func (d *DZB) faceIndices() ([]faceIndex, error) {
	vertexIndex := indexOf(d.Vertices)
	propertyIndex := indexOf(d.Properties)
	groupIndex := indexOf(d.Groups)

	out := make([]faceIndex, len(d.Faces))
	for i, f := range d.Faces {
		for j, v := range f.Vertices {
			idx, err := lookup(vertexIndex, v)
			if err != nil {
				return nil, preconditionError("save", fmt.Errorf("face %d vertex %d: %w", i, j+1, err))
			}
			out[i].VertexIndices[j] = idx
		}
		idx, err := lookup(propertyIndex, f.Property)
		if err != nil {
			return nil, preconditionError("save", fmt.Errorf("face %d property: %w", i, err))
		}
		out[i].PropertyIndex = idx
		if idx, err = lookup(groupIndex, f.Group); err != nil {
			return nil, preconditionError("save", fmt.Errorf("face %d group: %w", i, err))
		}
		out[i].GroupIndex = idx
	}
	return out, nil
}

func indexOf[T any](items []*T) map[*T]int {
	m := make(map[*T]int, len(items))
	for i, item := range items {
		if _, seen := m[item]; !seen {
			m[item] = i
		}
	}
	return m
}

func lookup[T any](m map[*T]int, item *T) (uint16, error) {
	idx, ok := m[item]
	if item == nil || !ok {
		return 0, ErrNotOwned
	}
	if idx > 0xFFFF {
		return 0, fmt.Errorf("%w: index %d does not fit in 16 bits", ErrIndexOutOfRange, idx)
	}
	return uint16(idx), nil
}

func (d *DZB) writeGroups(w *writer, offset int) error {
	if d.opts.legacyGroup {
		for i, g := range d.Groups {
			g.writeLegacy(w, offset+i*GroupSize)
		}
		return nil
	}

	// Names go after the group list; identical names share one entry.
	table := offset + len(d.Groups)*GroupSize
	w.grow(offset, table-offset)
	placed := make(map[string]uint32)
	for i, g := range d.Groups {
		name, err := g.encodeName(&d.opts)
		if err != nil {
			return preconditionError("save", fmt.Errorf("group %d: %w", i, err))
		}
		nameOffset, ok := placed[string(name)]
		if !ok {
			nameOffset = uint32(w.len())
			w.bytes(w.len(), append(name, 0))
			placed[string(name)] = nameOffset
		}
		g.write(w, offset+i*GroupSize, nameOffset)
	}
	return nil
}
