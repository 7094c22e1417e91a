package dzb

import (
	"encoding/binary"
	"fmt"
	"math"
)

// order is the byte order of every multi-byte field in a DZB file.
var order = binary.BigEndian

// checkList verifies that count records of size bytes starting at offset fit
// inside a buffer of length n.
func checkList(n int, offset, count uint32, size int) error {
	end := uint64(offset) + uint64(count)*uint64(size)
	if end > uint64(n) {
		return fmt.Errorf("%w: %d records of 0x%x bytes at 0x%x end at 0x%x, buffer is 0x%x bytes",
			ErrTruncated, count, size, offset, end, n)
	}
	return nil
}

func readU16(data []byte, off int) uint16 { return order.Uint16(data[off:]) }
func readS16(data []byte, off int) int16  { return int16(order.Uint16(data[off:])) }
func readU32(data []byte, off int) uint32 { return order.Uint32(data[off:]) }

func readF32(data []byte, off int) float32 {
	return math.Float32frombits(order.Uint32(data[off:]))
}

// writer is a growable byte image. Writing past the current end extends the
// image and zero-fills any gap.
type writer struct {
	buf []byte
}

func (w *writer) len() int { return len(w.buf) }

// grow makes sure the image covers [off, off+n).
func (w *writer) grow(off, n int) []byte {
	if end := off + n; end > len(w.buf) {
		if end > cap(w.buf) {
			next := make([]byte, end, max(end, 2*cap(w.buf)))
			copy(next, w.buf)
			w.buf = next
		} else {
			clear(w.buf[len(w.buf):end])
			w.buf = w.buf[:end]
		}
	}
	return w.buf[off : off+n]
}

func (w *writer) u16(off int, v uint16) { order.PutUint16(w.grow(off, 2), v) }
func (w *writer) s16(off int, v int16)  { order.PutUint16(w.grow(off, 2), uint16(v)) }
func (w *writer) u32(off int, v uint32) { order.PutUint32(w.grow(off, 4), v) }

func (w *writer) f32(off int, v float32) {
	order.PutUint32(w.grow(off, 4), math.Float32bits(v))
}

func (w *writer) bytes(off int, b []byte) { copy(w.grow(off, len(b)), b) }

// align pads the image with zeros up to the next multiple of n.
func (w *writer) align(n int) {
	if rem := len(w.buf) % n; rem != 0 {
		w.grow(len(w.buf), n-rem)
	}
}
