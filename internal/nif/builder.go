package nif

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Builder constructs a mesh binary in this package's own wire format. It has
// no counterpart in a production mesh pipeline (a real NIF is authored by
// the modeling tool, never hand-built) -- its only job is to give the rest
// of this repository's tests a way to synthesize meshes without a real
// Skyrim install, the same role other_examples' container fixtures play for
// their own formats.
type Builder struct {
	buf    bytes.Buffer
	shapes int
}

func NewBuilder() *Builder { return &Builder{} }

// AddShape appends a shape with the given bounding sphere and shader texture
// slots (slots[i] == "" leaves that slot unset). Pass nil slots for a
// shape with no shader.
func (b *Builder) AddShape(center [3]float32, radius float32, slots []string) {
	b.shapes++
	writeF32(&b.buf, center[0])
	writeF32(&b.buf, center[1])
	writeF32(&b.buf, center[2])
	writeF32(&b.buf, radius)
	if slots == nil {
		b.buf.WriteByte(0)
		return
	}
	b.buf.WriteByte(1)
	var n uint16
	for range slots {
		if n == maxTextureSlots {
			break
		}
		n++
	}
	writeU16(&b.buf, n)
	for i := uint16(0); i < n; i++ {
		s := slots[i]
		writeU16(&b.buf, uint16(len(s)))
		b.buf.WriteString(s)
	}
}

// Bytes assembles the final mesh buffer.
func (b *Builder) Bytes() []byte {
	var out bytes.Buffer
	out.WriteString(magic)
	writeU32(&out, uint32(b.shapes))
	out.Write(b.buf.Bytes())
	return out.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeF32(buf *bytes.Buffer, v float32) {
	writeU32(buf, math.Float32bits(v))
}
