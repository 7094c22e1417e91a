package dzb

// bitRange names a run of bits inside a packed 32-bit word.
type bitRange struct {
	shift uint
	width uint
}

func (r bitRange) mask() uint32 {
	return (1<<r.width - 1) << r.shift
}

// get extracts the field from word.
func (r bitRange) get(word uint32) uint32 {
	return (word & r.mask()) >> r.shift
}

// set returns word with the field replaced by v. Bits of v beyond the field
// width are discarded.
func (r bitRange) set(word, v uint32) uint32 {
	return word&^r.mask() | (v<<r.shift)&r.mask()
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
