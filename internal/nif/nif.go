// Package nif implements the mesh-binary-parser collaborator named in
// spec.md §6: load a mesh's raw bytes, then walk its shapes to read each
// one's bounding sphere, shader, and up-to-20 texture-slot strings.
//
// No NIF (Gamebryo scene-graph) library exists in the retrieval pack --
// real NIF is a large versioned block graph, well outside this component's
// ~10% budget share. This reader parses a flat, explicit record layout that
// exposes exactly the fields spec.md's mesh-parser interface names (shapes,
// bounds, shader, texture slots), field-by-field via encoding/binary, the
// same "skip reflection, read primitives directly" idiom other_examples'
// icza-mpq/mpq.go uses for its own binary container header.
package nif

import (
	"encoding/binary"
	"fmt"
	"math"
)

const magic = "NIF1"

const maxTextureSlots = 20

// BoundingSphere is a shape's on-screen-prominence proxy (spec.md glossary).
type BoundingSphere struct {
	CenterX, CenterY, CenterZ float32
	Radius                    float32
}

// Shader holds a shape's up-to-20 texture-slot path strings.
type Shader struct {
	slots [maxTextureSlots]string
}

// TextureSlot returns the slot string, or "" if unset or out of range --
// spec.md §6: "empty string if unset".
func (s *Shader) TextureSlot(index int) string {
	if s == nil || index < 0 || index >= maxTextureSlots {
		return ""
	}
	return s.slots[index]
}

// Shape is one entry in a mesh's scene graph: a bounding sphere plus an
// (optional) shader.
type Shape struct {
	bounds BoundingSphere
	shader *Shader
}

func (sh *Shape) Bounds() BoundingSphere { return sh.bounds }

// Mesh is a parsed mesh binary: an ordered list of shapes.
type Mesh struct {
	shapes []*Shape
}

func (m *Mesh) Shapes() []*Shape { return m.shapes }

// ShaderOf returns shape's shader, or nil if the shape has none.
func (m *Mesh) ShaderOf(shape *Shape) *Shader { return shape.shader }

// Load parses a mesh buffer. A mesh whose bytes are malformed is reported as
// an error and must be skipped by the caller, never treated as empty
// (spec.md §4.2 error semantics): the aggregator only ever calls Load and
// checks the error, it never inspects a partially-built Mesh.
func Load(buf []byte) (*Mesh, error) {
	r := &reader{b: buf}
	if len(buf) < 8 {
		return nil, fmt.Errorf("nif: truncated header (%d bytes)", len(buf))
	}
	if string(r.take(4)) != magic {
		return nil, fmt.Errorf("nif: bad magic %q", buf[:4])
	}
	numShapes, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("nif: shape count: %w", err)
	}
	if numShapes > 1<<20 {
		return nil, fmt.Errorf("nif: implausible shape count %d", numShapes)
	}

	mesh := &Mesh{shapes: make([]*Shape, 0, numShapes)}
	for i := uint32(0); i < numShapes; i++ {
		shape, err := r.readShape()
		if err != nil {
			return nil, fmt.Errorf("nif: shape %d: %w", i, err)
		}
		mesh.shapes = append(mesh.shapes, shape)
	}
	return mesh, nil
}

type reader struct {
	b   []byte
	pos int
}

func (r *reader) take(n int) []byte {
	if r.pos+n > len(r.b) {
		return nil
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out
}

func (r *reader) u32() (uint32, error) {
	b := r.take(4)
	if b == nil {
		return 0, fmt.Errorf("short read")
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u16() (uint16, error) {
	b := r.take(2)
	if b == nil {
		return 0, fmt.Errorf("short read")
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) f32() (float32, error) {
	b := r.take(4)
	if b == nil {
		return 0, fmt.Errorf("short read")
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (r *reader) readShape() (*Shape, error) {
	var b BoundingSphere
	var err error
	if b.CenterX, err = r.f32(); err != nil {
		return nil, err
	}
	if b.CenterY, err = r.f32(); err != nil {
		return nil, err
	}
	if b.CenterZ, err = r.f32(); err != nil {
		return nil, err
	}
	if b.Radius, err = r.f32(); err != nil {
		return nil, err
	}

	hasShader := r.take(1)
	if hasShader == nil {
		return nil, fmt.Errorf("short read (shader flag)")
	}
	shape := &Shape{bounds: b}
	if hasShader[0] == 0 {
		return shape, nil
	}

	shader := &Shader{}
	n, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("slot count: %w", err)
	}
	if int(n) > maxTextureSlots {
		return nil, fmt.Errorf("slot count %d exceeds %d", n, maxTextureSlots)
	}
	for i := uint16(0); i < n; i++ {
		l, err := r.u16()
		if err != nil {
			return nil, fmt.Errorf("slot %d length: %w", i, err)
		}
		s := r.take(int(l))
		if s == nil && l > 0 {
			return nil, fmt.Errorf("slot %d: short read", i)
		}
		shader.slots[i] = string(s)
	}
	shape.shader = shader
	return shape, nil
}
