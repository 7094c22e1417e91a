package dzb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testGroup struct {
	name        string
	scale       [3]float32
	rot         [3]uint16
	unknown1    uint16
	translation [3]float32
	parent      int16
	sibling     int16
	child       int16
	room        int16
	unknown2    uint16
	octreeRoot  uint16
	info        uint32
}

type testFile struct {
	vertices   [][3]float32
	faces      [][5]uint16 // v1, v2, v3, property, group
	groups     []testGroup
	properties [][4]uint32
	octree     [4]uint32 // index count, index offset, node count, node offset
	unknown    uint32
}

// createTestDZB lays out a DZB the way the game files do: header, vertices,
// faces, properties and groups, followed by the group name strings.
func createTestDZB(tf testFile) []byte {
	vertexOff := HeaderSize
	faceOff := vertexOff + len(tf.vertices)*VertexSize
	propOff := (faceOff + len(tf.faces)*FaceSize + 3) &^ 3
	groupOff := propOff + len(tf.properties)*PropertySize
	nameOff := groupOff + len(tf.groups)*GroupSize

	buf := new(bytes.Buffer)
	be := binary.BigEndian

	header := []uint32{
		uint32(len(tf.vertices)), uint32(vertexOff),
		uint32(len(tf.faces)), uint32(faceOff),
		tf.octree[0], tf.octree[1], tf.octree[2], tf.octree[3],
		uint32(len(tf.groups)), uint32(groupOff),
		uint32(len(tf.properties)), uint32(propOff),
		tf.unknown,
	}
	binary.Write(buf, be, header)

	for _, v := range tf.vertices {
		binary.Write(buf, be, v)
	}
	for _, f := range tf.faces {
		binary.Write(buf, be, f)
	}
	for buf.Len() < propOff {
		buf.WriteByte(0)
	}
	for _, p := range tf.properties {
		binary.Write(buf, be, p)
	}

	names := new(bytes.Buffer)
	for _, g := range tf.groups {
		binary.Write(buf, be, uint32(nameOff+names.Len()))
		names.WriteString(g.name)
		names.WriteByte(0)

		binary.Write(buf, be, g.scale)
		binary.Write(buf, be, g.rot)
		binary.Write(buf, be, g.unknown1)
		binary.Write(buf, be, g.translation)
		binary.Write(buf, be, [4]int16{g.parent, g.sibling, g.child, g.room})
		binary.Write(buf, be, [2]uint16{g.unknown2, g.octreeRoot})
		binary.Write(buf, be, g.info)
	}
	buf.Write(names.Bytes())

	return buf.Bytes()
}

func rootGroup(name string) testGroup {
	return testGroup{
		name:     name,
		scale:    [3]float32{1, 1, 1},
		unknown1: 0xFFFF,
		parent:   -1,
		sibling:  -1,
		child:    -1,
	}
}

// simpleFile is one triangle with one property and one group.
func simpleFile() testFile {
	return testFile{
		vertices:   [][3]float32{{0, 0, 0}, {100, 0, 0}, {0, 0, 100}},
		faces:      [][5]uint16{{0, 1, 2, 0, 0}},
		groups:     []testGroup{rootGroup("Room0")},
		properties: [][4]uint32{{0x00000105, 0x00230000, 0x04030201, 7}},
	}
}

func TestParse_SingleTriangle(t *testing.T) {
	d, err := Parse(createTestDZB(simpleFile()))
	require.NoError(t, err)

	require.Len(t, d.Vertices, 3)
	require.Len(t, d.Faces, 1)
	require.Len(t, d.Groups, 1)
	require.Len(t, d.Properties, 1)

	f := d.Faces[0]
	for i := range f.Vertices {
		assert.Same(t, d.Vertices[i], f.Vertices[i], "face vertex %d", i)
	}
	assert.Same(t, d.Properties[0], f.Property)
	assert.Same(t, d.Groups[0], f.Group)

	assert.Equal(t, float32(100), d.Vertices[1].X)
	assert.Equal(t, float32(100), d.Vertices[2].Z)
	assert.Equal(t, "Room0", d.Groups[0].Name)
	assert.Equal(t, NoGroup, d.Groups[0].ParentIndex)
}

func TestParse_Header(t *testing.T) {
	tf := simpleFile()
	tf.unknown = 0xCAFEBABE
	tf.octree = [4]uint32{3, 0x100, 2, 0x200}

	d, err := Parse(createTestDZB(tf))
	require.NoError(t, err)

	assert.Equal(t, uint32(3), d.NumVertices)
	assert.Equal(t, uint32(HeaderSize), d.VertexListOffset)
	assert.Equal(t, uint32(HeaderSize+3*VertexSize), d.FaceListOffset)
	assert.Equal(t, uint32(3), d.NumOctreeIndices)
	assert.Equal(t, uint32(0x100), d.OctreeIndexListOffset)
	assert.Equal(t, uint32(2), d.NumOctreeNodes)
	assert.Equal(t, uint32(0x200), d.OctreeNodeListOffset)
	assert.Equal(t, uint32(0xCAFEBABE), d.Unknown1)
}

func TestParse_PropertyIndexOutOfRange(t *testing.T) {
	tf := simpleFile()
	tf.faces[0][3] = 5

	d, err := Parse(createTestDZB(tf))
	require.Error(t, err)
	assert.Nil(t, d)

	var fe *FormatError
	require.True(t, errors.As(err, &fe), "expected *FormatError, got %T", err)
	assert.Equal(t, "face", fe.Record)
	assert.Equal(t, int64(HeaderSize+3*VertexSize), fe.Offset)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestParse_IndexOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		face [5]uint16
	}{
		{"first vertex", [5]uint16{3, 1, 2, 0, 0}},
		{"second vertex", [5]uint16{0, 0xFFFF, 2, 0, 0}},
		{"third vertex", [5]uint16{0, 1, 9, 0, 0}},
		{"property", [5]uint16{0, 1, 2, 1, 0}},
		{"group", [5]uint16{0, 1, 2, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tf := simpleFile()
			tf.faces[0] = tt.face

			_, err := Parse(createTestDZB(tf))
			assert.ErrorIs(t, err, ErrIndexOutOfRange)

			var fe *FormatError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestParse_Truncated(t *testing.T) {
	valid := createTestDZB(simpleFile())

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", valid[:HeaderSize-1]},
		{"vertex list cut", valid[:HeaderSize+VertexSize]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			assert.ErrorIs(t, err, ErrTruncated)

			var fe *FormatError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestParse_ListOffsetPastEnd(t *testing.T) {
	data := createTestDZB(simpleFile())

	// Group list offset close to the 32-bit limit must not wrap around.
	binary.BigEndian.PutUint32(data[0x24:], 0xFFFFFFF0)
	_, err := Parse(data)
	require.ErrorIs(t, err, ErrTruncated)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "group list", fe.Record)
	assert.Equal(t, int64(0xFFFFFFF0), fe.Offset)
}

func TestParse_HugeCount(t *testing.T) {
	data := createTestDZB(simpleFile())
	binary.BigEndian.PutUint32(data[0x00:], 0xFFFFFFFF)

	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParse_BadGroupLink(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *testGroup)
	}{
		{"parent", func(g *testGroup) { g.parent = 1 }},
		{"sibling", func(g *testGroup) { g.sibling = 4 }},
		{"child", func(g *testGroup) { g.child = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tf := simpleFile()
			tt.mutate(&tf.groups[0])

			_, err := Parse(createTestDZB(tf))
			assert.ErrorIs(t, err, ErrBadGroupLink)
		})
	}
}

func TestParse_BadGroupName(t *testing.T) {
	data := createTestDZB(simpleFile())
	groupOff := binary.BigEndian.Uint32(data[0x24:])

	// Name offset outside the buffer.
	binary.BigEndian.PutUint32(data[groupOff:], uint32(len(data)+10))
	_, err := Parse(data)
	require.ErrorIs(t, err, ErrBadString)

	// Name with no terminator: point at the last byte and make it non-zero.
	data[len(data)-1] = 'x'
	binary.BigEndian.PutUint32(data[groupOff:], uint32(len(data)-1))
	_, err = Parse(data)
	require.ErrorIs(t, err, ErrBadString)

	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestRead_LeavesContainerOnError(t *testing.T) {
	d, err := Parse(createTestDZB(simpleFile()))
	require.NoError(t, err)

	bad := simpleFile()
	bad.faces[0][4] = 3
	err = d.Read(createTestDZB(bad))
	require.Error(t, err)

	assert.Len(t, d.Vertices, 3)
	assert.Len(t, d.Faces, 1)
	assert.Same(t, d.Groups[0], d.Faces[0].Group)
}

func TestParse_DuplicateVerticesKept(t *testing.T) {
	tf := simpleFile()
	tf.vertices = append(tf.vertices, [3]float32{0, 0, 0})

	d, err := Parse(createTestDZB(tf))
	require.NoError(t, err)
	require.Len(t, d.Vertices, 4)
	assert.NotSame(t, d.Vertices[0], d.Vertices[3])
	assert.Equal(t, *d.Vertices[0], *d.Vertices[3])
}

// multiFile has two rooms under a parent group and faces spread over them.
func multiFile() testFile {
	parent := rootGroup("Stage")
	parent.child = 1
	parent.room = -1

	room0 := rootGroup("Room0")
	room0.parent = 0
	room0.sibling = 2
	room0.room = 0
	room0.scale = [3]float32{2, 0.5, 1}
	room0.rot = [3]uint16{0x4000, 0, 0x8000}
	room0.translation = [3]float32{-350.5, 12, 9000}
	room0.unknown2 = 0x1234
	room0.octreeRoot = 3
	room0.info = 0x00081305 // rtbl 5, water, lava, sound 2, unused2 1

	room1 := rootGroup("Room1")
	room1.parent = 0
	room1.room = 1
	room1.unknown1 = 0xDCDC
	room1.info = 0x00000400

	return testFile{
		vertices: [][3]float32{
			{0, 0, 0}, {100, 0, 0}, {0, 0, 100},
			{100, 0, 100}, {-1.5, 2.25, 1e6},
		},
		faces: [][5]uint16{
			{0, 1, 2, 0, 1},
			{1, 3, 2, 1, 1},
			{2, 3, 4, 1, 2},
		},
		groups: []testGroup{parent, room0, room1},
		properties: [][4]uint32{
			{0x12345678, 0x9ABCDEF0, 0x0F0E0D0C, 0},
			{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF},
		},
		unknown: 0x11,
	}
}

func TestRoundTrip_VerticesAndFaces(t *testing.T) {
	orig, err := Parse(createTestDZB(multiFile()))
	require.NoError(t, err)

	data, err := orig.Save()
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)

	require.Len(t, again.Vertices, len(orig.Vertices))
	for i := range orig.Vertices {
		assert.Equal(t, *orig.Vertices[i], *again.Vertices[i], "vertex %d", i)
	}

	require.Len(t, again.Faces, len(orig.Faces))
	for i := range orig.Faces {
		a, b := orig.Faces[i], again.Faces[i]
		assert.Equal(t, a.VertexIndices, b.VertexIndices, "face %d", i)
		assert.Equal(t, a.PropertyIndex, b.PropertyIndex, "face %d", i)
		assert.Equal(t, a.GroupIndex, b.GroupIndex, "face %d", i)
	}

	require.Len(t, again.Properties, len(orig.Properties))
	for i := range orig.Properties {
		assert.Equal(t, *orig.Properties[i], *again.Properties[i], "property %d", i)
	}
	assert.Equal(t, orig.Unknown1, again.Unknown1)
}

func TestRoundTrip_FullGroups(t *testing.T) {
	orig, err := Parse(createTestDZB(multiFile()))
	require.NoError(t, err)

	data, err := orig.Save()
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)

	require.Len(t, again.Groups, 3)
	for i := range orig.Groups {
		assert.Equal(t, *orig.Groups[i], *again.Groups[i], "group %d", i)
	}

	g := again.Groups[1]
	assert.Equal(t, "Room0", g.Name)
	assert.Equal(t, uint8(5), g.RTBLIndex)
	assert.True(t, g.IsWater)
	assert.True(t, g.IsLava)
	assert.Equal(t, uint8(2), g.SoundID)
	assert.Equal(t, uint16(1), g.Unused2)
	assert.Equal(t, uint16(0xDCDC), again.Groups[2].Unknown1)
	assert.True(t, again.Groups[2].Unused1)
}

func TestRoundTrip_SaveIsStable(t *testing.T) {
	d, err := Parse(createTestDZB(multiFile()))
	require.NoError(t, err)

	first, err := d.Save()
	require.NoError(t, err)

	again, err := Parse(first)
	require.NoError(t, err)
	second, err := again.Save()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSave_Layout(t *testing.T) {
	d, err := Parse(createTestDZB(simpleFile()))
	require.NoError(t, err)

	data, err := d.Save()
	require.NoError(t, err)

	be := binary.BigEndian
	faceOff := HeaderSize + 3*VertexSize // 0x58
	propOff := 0x64                      // 0x58 + 0x0A = 0x62, aligned up
	groupOff := propOff + PropertySize
	nameOff := groupOff + GroupSize

	assert.Equal(t, uint32(3), be.Uint32(data[0x00:]))
	assert.Equal(t, uint32(HeaderSize), be.Uint32(data[0x04:]))
	assert.Equal(t, uint32(1), be.Uint32(data[0x08:]))
	assert.Equal(t, uint32(faceOff), be.Uint32(data[0x0C:]))
	assert.Equal(t, uint32(1), be.Uint32(data[0x20:]))
	assert.Equal(t, uint32(groupOff), be.Uint32(data[0x24:]))
	assert.Equal(t, uint32(1), be.Uint32(data[0x28:]))
	assert.Equal(t, uint32(propOff), be.Uint32(data[0x2C:]))

	assert.Equal(t, []byte{0, 0}, data[faceOff+FaceSize:propOff], "alignment padding")
	assert.Equal(t, uint32(nameOff), be.Uint32(data[groupOff:]))
	assert.Equal(t, []byte("Room0\x00"), data[nameOff:])

	assert.Equal(t, uint32(groupOff), d.GroupListOffset)
	assert.Equal(t, uint32(propOff), d.PropertyListOffset)
}

func TestSave_DropsOctree(t *testing.T) {
	tf := simpleFile()
	tf.octree = [4]uint32{3, 0x100, 2, 0x200}
	tf.unknown = 0xABCD

	d, err := Parse(createTestDZB(tf))
	require.NoError(t, err)

	data, err := d.Save()
	require.NoError(t, err)

	assert.Equal(t, make([]byte, 16), data[0x10:0x20])
	assert.Equal(t, uint32(0xABCD), binary.BigEndian.Uint32(data[0x30:]))
	assert.Zero(t, d.NumOctreeIndices)
	assert.Zero(t, d.OctreeNodeListOffset)
}

func TestSave_LegacyGroups(t *testing.T) {
	d, err := Parse(createTestDZB(multiFile()), WithLegacyGroupWrite())
	require.NoError(t, err)

	data, err := d.Save()
	require.NoError(t, err)

	groupOff := binary.BigEndian.Uint32(data[0x24:])
	assert.Equal(t, int(groupOff)+3*GroupSize, len(data), "legacy output has no name table")

	again, err := Parse(data)
	require.NoError(t, err)

	for i, g := range again.Groups {
		orig := d.Groups[i]
		assert.Equal(t, orig.RoomIndex, g.RoomIndex, "group %d room", i)
		assert.Equal(t, orig.Info(), g.Info(), "group %d info", i)

		assert.Equal(t, "", g.Name, "group %d name", i)
		assert.Zero(t, g.Scale, "group %d scale", i)
		assert.Zero(t, g.Rotation, "group %d rotation", i)
		assert.Zero(t, g.Unknown1, "group %d unknown1", i)
		assert.Zero(t, g.Translation, "group %d translation", i)
		assert.Zero(t, g.ParentIndex, "group %d parent", i)
		assert.Zero(t, g.OctreeRootNodeIndex, "group %d octree root", i)
	}

	// Only groups are cut down; properties keep every field.
	for i, p := range again.Properties {
		assert.Equal(t, *d.Properties[i], *p, "property %d", i)
	}
}

func TestSave_ForeignReference(t *testing.T) {
	d, err := Parse(createTestDZB(simpleFile()))
	require.NoError(t, err)

	d.Faces[0].Property = &Property{}
	_, err = d.Save()
	require.ErrorIs(t, err, ErrNotOwned)

	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "save", pe.Op)

	d.Faces[0].Property = d.Properties[0]
	d.Faces[0].Vertices[1] = nil
	_, err = d.Save()
	assert.ErrorIs(t, err, ErrNotOwned)
}

func TestSave_ReindexesFromReferences(t *testing.T) {
	d, err := Parse(createTestDZB(multiFile()))
	require.NoError(t, err)

	// Move the first property to the end; faces keep pointing at the same objects.
	first := d.Properties[0]
	d.Properties = append(d.Properties[1:], first)

	data, err := d.Save()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), d.Faces[0].PropertyIndex)
	assert.Equal(t, uint16(0), d.Faces[1].PropertyIndex)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, *first, *again.Faces[0].Property)
}

func TestSave_FailureLeavesFaceIndices(t *testing.T) {
	d, err := Parse(createTestDZB(multiFile()))
	require.NoError(t, err)
	header := d.Header

	first := d.Properties[0]
	d.Properties = append(d.Properties[1:], first)
	d.Groups[2].Name = "\U0001F600"

	_, err = d.Save()
	require.ErrorIs(t, err, ErrUnencodableName)

	assert.Equal(t, uint16(0), d.Faces[0].PropertyIndex)
	assert.Equal(t, uint16(1), d.Faces[1].PropertyIndex)
	assert.Equal(t, header, d.Header)
}

func TestSave_SharedNames(t *testing.T) {
	d := New()
	d.AddGroup(NewGroup("Room"))
	d.AddGroup(NewGroup("Room"))
	d.AddGroup(NewGroup("Other"))

	data, err := d.Save()
	require.NoError(t, err)

	groupOff := binary.BigEndian.Uint32(data[0x24:])
	name0 := binary.BigEndian.Uint32(data[groupOff:])
	name1 := binary.BigEndian.Uint32(data[groupOff+GroupSize:])
	name2 := binary.BigEndian.Uint32(data[groupOff+2*GroupSize:])

	assert.Equal(t, name0, name1)
	assert.NotEqual(t, name0, name2)
	assert.Equal(t, len(data), int(groupOff)+3*GroupSize+len("Room\x00Other\x00"))
}

func TestSave_NameEncoding(t *testing.T) {
	d := New()
	d.AddGroup(NewGroup("あ"))

	data, err := d.Save()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x82, 0xa0, 0x00}, data[len(data)-3:])

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "あ", again.Groups[0].Name)

	d.Groups[0].Name = "\U0001F600"
	_, err = d.Save()
	assert.ErrorIs(t, err, ErrUnencodableName)

	d.Groups[0].Name = "a\x00b"
	_, err = d.Save()
	assert.ErrorIs(t, err, ErrUnencodableName)
}

func TestRawNames(t *testing.T) {
	tf := simpleFile()
	tf.groups[0].name = "\x82\xa0x"

	d, err := Parse(createTestDZB(tf), WithRawNames())
	require.NoError(t, err)
	assert.Equal(t, "\x82\xa0x", d.Groups[0].Name)

	data, err := d.Save()
	require.NoError(t, err)
	assert.Equal(t, []byte("\x82\xa0x\x00"), data[len(data)-4:])
}

func TestRoundTrip_NameNotShiftJIS(t *testing.T) {
	tf := simpleFile()
	tf.groups[0].name = "\x80\xa0bad"

	d, err := Parse(createTestDZB(tf))
	require.NoError(t, err)
	name := d.Groups[0].Name

	data, err := d.Save()
	require.NoError(t, err)
	assert.Equal(t, []byte("\x80\xa0bad\x00"), data[len(data)-6:])

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, name, again.Groups[0].Name)

	resaved, err := again.Save()
	require.NoError(t, err)
	assert.Equal(t, data, resaved)

	// A renamed group is encoded from its new name.
	again.Groups[0].Name = "あ"
	data, err = again.Save()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x82, 0xa0, 0x00}, data[len(data)-3:])
}

func TestZeroValueDZB(t *testing.T) {
	var d DZB

	data, err := d.Save()
	require.NoError(t, err)
	assert.Len(t, data, HeaderSize)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Empty(t, again.Vertices)
	assert.Empty(t, again.Faces)
}

func TestWithLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	d, err := Parse(createTestDZB(simpleFile()), WithLogger(zap.New(core)))
	require.NoError(t, err)
	_, err = d.Save()
	require.NoError(t, err)

	parsed := logs.FilterMessage("parsed DZB").All()
	require.Len(t, parsed, 1)
	assert.Equal(t, uint32(1), parsed[0].ContextMap()["faces"])
	assert.Equal(t, 1, logs.FilterMessage("saved DZB").Len())
}

func TestFormatError_Message(t *testing.T) {
	err := &FormatError{Offset: 0x58, Record: "face", Cause: ErrIndexOutOfRange}
	assert.Equal(t, "dzb format error in face at 0x58: index out of range", err.Error())

	err = &FormatError{Offset: -1, Cause: ErrTruncated}
	assert.Equal(t, "dzb format error: data extends past end of buffer", err.Error())

	pe := &PreconditionError{Op: "add face", Cause: ErrWrongVertexCount}
	assert.Equal(t, "dzb: add face: face needs exactly three vertex positions", pe.Error())
}
