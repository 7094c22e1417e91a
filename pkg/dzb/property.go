package dzb

// PropertySize is the on-disk size of a property record.
const PropertySize = 0x10

// Bit layout of the three packed property words.
var (
	propCamID     = bitRange{0, 8}
	propSoundID   = bitRange{8, 5}
	propExitIndex = bitRange{13, 6}
	propPolyColor = bitRange{19, 8}
	propUnknown1  = bitRange{27, 5}

	propLinkNo        = bitRange{0, 8}
	propWallType      = bitRange{8, 4}
	propSpecialType   = bitRange{12, 4}
	propAttributeType = bitRange{16, 5}
	propGroundType    = bitRange{21, 5}
	propUnknown2      = bitRange{26, 6}

	propCamMoveBG       = bitRange{0, 8}
	propRoomCamID       = bitRange{8, 8}
	propRoomPathID      = bitRange{16, 8}
	propRoomPathPointNo = bitRange{24, 8}
)

// Property is per-triangle gameplay metadata: camera, sound, exits and
// surface behavior. Values wider than their field are truncated on encode.
type Property struct {
	CamID     uint8
	SoundID   uint8 // 5 bits
	ExitIndex uint8 // 6 bits
	PolyColor uint8
	Unknown1  uint8 // 5 bits

	LinkNo        uint8
	WallType      uint8 // 4 bits
	SpecialType   uint8 // 4 bits
	AttributeType uint8 // 5 bits
	GroundType    uint8 // 5 bits
	Unknown2      uint8 // 6 bits

	CamMoveBG       uint8
	RoomCamID       uint8
	RoomPathID      uint8
	RoomPathPointNo uint8

	CameraBehavior uint32
}

// Bitfields packs the property into its three on-disk words.
func (p *Property) Bitfields() (uint32, uint32, uint32) {
	var b1, b2, b3 uint32

	b1 = propCamID.set(b1, uint32(p.CamID))
	b1 = propSoundID.set(b1, uint32(p.SoundID))
	b1 = propExitIndex.set(b1, uint32(p.ExitIndex))
	b1 = propPolyColor.set(b1, uint32(p.PolyColor))
	b1 = propUnknown1.set(b1, uint32(p.Unknown1))

	b2 = propLinkNo.set(b2, uint32(p.LinkNo))
	b2 = propWallType.set(b2, uint32(p.WallType))
	b2 = propSpecialType.set(b2, uint32(p.SpecialType))
	b2 = propAttributeType.set(b2, uint32(p.AttributeType))
	b2 = propGroundType.set(b2, uint32(p.GroundType))
	b2 = propUnknown2.set(b2, uint32(p.Unknown2))

	b3 = propCamMoveBG.set(b3, uint32(p.CamMoveBG))
	b3 = propRoomCamID.set(b3, uint32(p.RoomCamID))
	b3 = propRoomPathID.set(b3, uint32(p.RoomPathID))
	b3 = propRoomPathPointNo.set(b3, uint32(p.RoomPathPointNo))

	return b1, b2, b3
}

// SetBitfields replaces every packed field from the three on-disk words.
func (p *Property) SetBitfields(b1, b2, b3 uint32) {
	p.CamID = uint8(propCamID.get(b1))
	p.SoundID = uint8(propSoundID.get(b1))
	p.ExitIndex = uint8(propExitIndex.get(b1))
	p.PolyColor = uint8(propPolyColor.get(b1))
	p.Unknown1 = uint8(propUnknown1.get(b1))

	p.LinkNo = uint8(propLinkNo.get(b2))
	p.WallType = uint8(propWallType.get(b2))
	p.SpecialType = uint8(propSpecialType.get(b2))
	p.AttributeType = uint8(propAttributeType.get(b2))
	p.GroundType = uint8(propGroundType.get(b2))
	p.Unknown2 = uint8(propUnknown2.get(b2))

	p.CamMoveBG = uint8(propCamMoveBG.get(b3))
	p.RoomCamID = uint8(propRoomCamID.get(b3))
	p.RoomPathID = uint8(propRoomPathID.get(b3))
	p.RoomPathPointNo = uint8(propRoomPathPointNo.get(b3))
}

func readProperty(data []byte, off int) *Property {
	p := &Property{}
	p.SetBitfields(readU32(data, off+0x00), readU32(data, off+0x04), readU32(data, off+0x08))
	p.CameraBehavior = readU32(data, off+0x0C)
	return p
}

func (p *Property) write(w *writer, off int) {
	b1, b2, b3 := p.Bitfields()
	w.u32(off+0x00, b1)
	w.u32(off+0x04, b2)
	w.u32(off+0x08, b3)
	w.u32(off+0x0C, p.CameraBehavior)
}
