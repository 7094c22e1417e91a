package dzb

import (
	"bytes"
	"fmt"

	"github.com/Faultbox/dzbkit/pkg/encoding"
	"github.com/Faultbox/dzbkit/pkg/math"
)

// GroupSize is the on-disk size of a group record.
const GroupSize = 0x34

// NoGroup marks an absent parent, sibling or child link.
const NoGroup int16 = -1

// Bit layout of group_info.
var (
	infoRTBLIndex = bitRange{0, 8}
	infoIsWater   = bitRange{8, 1}
	infoIsLava    = bitRange{9, 1}
	infoUnused1   = bitRange{10, 1}
	infoSoundID   = bitRange{11, 8}
	infoUnused2   = bitRange{19, 13}
)

// Group is a named node of the collision scene tree. Tree links are indices
// into the owning DZB's Groups slice, with NoGroup for none.
type Group struct {
	Name string

	Scale       math.Vec3
	Rotation    [3]uint16
	Unknown1    uint16 // usually 0xFFFF, sometimes 0xDCDC
	Translation math.Vec3

	ParentIndex      int16
	NextSiblingIndex int16
	FirstChildIndex  int16

	RoomIndex           int16
	Unknown2            uint16
	OctreeRootNodeIndex uint16

	// Decoded group_info.
	RTBLIndex uint8
	IsWater   bool
	IsLava    bool
	Unused1   bool
	SoundID   uint8
	Unused2   uint16 // 13 bits

	// rawName holds the name bytes as read and readName the Name decoded
	// from them. Save writes rawName back while Name still equals readName.
	rawName  string
	readName string
}

// NewGroup returns an unlinked group with unit scale.
func NewGroup(name string) *Group {
	return &Group{
		Name:             name,
		Scale:            math.V3(1, 1, 1),
		Unknown1:         0xFFFF,
		ParentIndex:      NoGroup,
		NextSiblingIndex: NoGroup,
		FirstChildIndex:  NoGroup,
	}
}

// Info packs the surface flags into the group_info word.
func (g *Group) Info() uint32 {
	var info uint32
	info = infoRTBLIndex.set(info, uint32(g.RTBLIndex))
	info = infoIsWater.set(info, boolBit(g.IsWater))
	info = infoIsLava.set(info, boolBit(g.IsLava))
	info = infoUnused1.set(info, boolBit(g.Unused1))
	info = infoSoundID.set(info, uint32(g.SoundID))
	info = infoUnused2.set(info, uint32(g.Unused2))
	return info
}

// SetInfo replaces the surface flags from a group_info word.
func (g *Group) SetInfo(info uint32) {
	g.RTBLIndex = uint8(infoRTBLIndex.get(info))
	g.IsWater = infoIsWater.get(info) != 0
	g.IsLava = infoIsLava.get(info) != 0
	g.Unused1 = infoUnused1.get(info) != 0
	g.SoundID = uint8(infoSoundID.get(info))
	g.Unused2 = uint16(infoUnused2.get(info))
}

func readGroup(data []byte, off int, opts *options) (*Group, error) {
	nameOffset := readU32(data, off+0x00)
	raw, err := encoding.CString(data, int(nameOffset))
	if err != nil {
		return nil, formatError("group name", int64(nameOffset), fmt.Errorf("%w: %v", ErrBadString, err))
	}

	g := &Group{
		Scale: math.Vec3{
			X: readF32(data, off+0x04),
			Y: readF32(data, off+0x08),
			Z: readF32(data, off+0x0C),
		},
		Rotation: [3]uint16{
			readU16(data, off+0x10),
			readU16(data, off+0x12),
			readU16(data, off+0x14),
		},
		Unknown1: readU16(data, off+0x16),
		Translation: math.Vec3{
			X: readF32(data, off+0x18),
			Y: readF32(data, off+0x1C),
			Z: readF32(data, off+0x20),
		},
		ParentIndex:         readS16(data, off+0x24),
		NextSiblingIndex:    readS16(data, off+0x26),
		FirstChildIndex:     readS16(data, off+0x28),
		RoomIndex:           readS16(data, off+0x2A),
		Unknown2:            readU16(data, off+0x2C),
		OctreeRootNodeIndex: readU16(data, off+0x2E),
	}
	if opts.rawNames {
		g.Name = string(raw)
	} else {
		g.Name = encoding.ShiftJISToUTF8(raw)
	}
	g.rawName = string(raw)
	g.readName = g.Name
	g.SetInfo(readU32(data, off+0x30))

	return g, nil
}

// write emits every field of the group. nameOffset is where the encoded name
// was placed in the string table.
func (g *Group) write(w *writer, off int, nameOffset uint32) {
	w.u32(off+0x00, nameOffset)
	w.f32(off+0x04, g.Scale.X)
	w.f32(off+0x08, g.Scale.Y)
	w.f32(off+0x0C, g.Scale.Z)
	w.u16(off+0x10, g.Rotation[0])
	w.u16(off+0x12, g.Rotation[1])
	w.u16(off+0x14, g.Rotation[2])
	w.u16(off+0x16, g.Unknown1)
	w.f32(off+0x18, g.Translation.X)
	w.f32(off+0x1C, g.Translation.Y)
	w.f32(off+0x20, g.Translation.Z)
	w.s16(off+0x24, g.ParentIndex)
	w.s16(off+0x26, g.NextSiblingIndex)
	w.s16(off+0x28, g.FirstChildIndex)
	w.s16(off+0x2A, g.RoomIndex)
	w.u16(off+0x2C, g.Unknown2)
	w.u16(off+0x2E, g.OctreeRootNodeIndex)
	w.u32(off+0x30, g.Info())
}

// writeLegacy emits only the room index and group_info, leaving the rest of
// the record zero, as earlier tooling did.
func (g *Group) writeLegacy(w *writer, off int) {
	w.grow(off, GroupSize)
	w.s16(off+0x2A, g.RoomIndex)
	w.u32(off+0x30, g.Info())
}

// encodeName returns the string table bytes for the group name, without the
// terminator. An unchanged name read from a file keeps its original bytes,
// even when they are not valid Shift-JIS.
func (g *Group) encodeName(opts *options) ([]byte, error) {
	if g.Name == g.readName && g.rawName != "" {
		return []byte(g.rawName), nil
	}
	b := []byte(g.Name)
	if !opts.rawNames {
		var err error
		if b, err = encoding.UTF8ToShiftJIS(g.Name); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrUnencodableName, g.Name, err)
		}
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return nil, fmt.Errorf("%w: %q contains a null byte", ErrUnencodableName, g.Name)
	}
	return b, nil
}
