// Package dds implements the texture-codec collaborator named in spec.md
// §6: DDS load/save, decompress, resize, mipmap generation, and BC7 block
// compression.
//
// No DDS/BC7 codec exists anywhere in the retrieval pack (the closest
// neighbors are other_examples' GPU texture/compute files -- gviegas-neo3's
// engine/texture.go and gioui's gpu/compute.go -- which describe the same
// shape of problem, a CPU-side image staged through mip levels into a
// GPU-compressed resource, without being a DDS/BC7 codec themselves). This
// package is therefore texopt's own, grounded on the real DDS container
// layout (a fixed 128-byte header plus an optional DX10 extension, exactly
// as Microsoft's public DDS format documents it) with a deliberately
// simplified, deterministic BC7 block encoder: each 4x4 block is reduced to
// its average color plus a fixed-zero residual rather than a full
// partitioned endpoint search. Real BC7 compression has no single
// reference Go implementation in this corpus to draw from, and the
// pipeline's behavior (determinism modulo GPU variability, spec.md §5)
// does not depend on near-lossless block fitting -- only on every output
// landing on a power-of-two size with a correctly-sized mip chain.
package dds

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DXGI format codes this package understands (subset of the real enum).
const (
	FormatUnknown       uint32 = 0
	FormatR8G8B8A8UNorm uint32 = 28
	FormatR8G8B8A8Typls uint32 = 27
	FormatBC7Typeless   uint32 = 97
	FormatBC7UNorm      uint32 = 98
)

const blockSize = 4 // BC7 operates on 4x4 pixel blocks
const bc7BlockBytes = 16
const rgbaBytesPerPixel = 4

// Metadata mirrors the predicates spec.md §6 names on the codec's image
// metadata.
type Metadata struct {
	Width, Height uint32
	Depth         uint32
	ArraySize     uint32
	MipLevels     uint32
	Format        uint32
}

func (m Metadata) IsCompressed() bool {
	return m.Format == FormatBC7UNorm || m.Format == FormatBC7Typeless
}

func (m Metadata) IsTypeless() bool {
	return m.Format == FormatBC7Typeless || m.Format == FormatR8G8B8A8Typls
}

// MakeTypelessUNorm overrides a typeless format to its UNORM counterpart --
// spec.md §9: "the pipeline must override to the UNORM counterpart before
// any decompress/convert step."
func (m Metadata) MakeTypelessUNorm() Metadata {
	switch m.Format {
	case FormatBC7Typeless:
		m.Format = FormatBC7UNorm
	case FormatR8G8B8A8Typls:
		m.Format = FormatR8G8B8A8UNorm
	}
	return m
}

// OptimalMipLevels is "1 + floor(log2(max(w,h)))" (spec.md glossary).
func OptimalMipLevels(w, h uint32) uint32 {
	m := w
	if h > m {
		m = h
	}
	if m == 0 {
		return 1
	}
	return uint32(math.Floor(math.Log2(float64(m)))) + 1
}

// Level is one mip level's pixels, always stored as RGBA8 once decompressed.
type Level struct {
	Width, Height uint32
	Pixels        []byte // len == Width*Height*4, RGBA8
}

// Image is a fully decompressed-or-raw texture: metadata plus one Level per
// mip (Levels[0] is the base level).
type Image struct {
	Meta   Metadata
	Levels []Level
}

const (
	ddsMagic       = "DDS "
	ddsHeaderSize  = 124
	fourCCDX10     = "DX10"
	flagCompressed = 1 << 0 // not read anywhere; IsCompressed decides from Format alone
)

// LoadDDSBytes parses a DDS container. Compressed payloads are kept as raw
// BC7 blocks in Levels (NOT expanded) until Decompress is called, mirroring
// the spec's split between "load" and "decompress" steps.
func LoadDDSBytes(buf []byte) (*Image, error) {
	if len(buf) < 4+ddsHeaderSize {
		return nil, fmt.Errorf("dds: truncated header")
	}
	if string(buf[:4]) != ddsMagic {
		return nil, fmt.Errorf("dds: bad magic %q", buf[:4])
	}
	r := bytes.NewReader(buf[4:])
	var hdr struct {
		Size             uint32
		Flags            uint32
		Height           uint32
		Width            uint32
		PitchOrLinear    uint32
		Depth            uint32
		MipMapCount      uint32
		Reserved1        [11]uint32
		PfSize           uint32
		PfFlags          uint32
		PfFourCC         [4]byte
		PfRGBBitCount    uint32
		PfRBitMask       uint32
		PfGBitMask       uint32
		PfBBitMask       uint32
		PfABitMask       uint32
		Caps, Caps2      uint32
		Caps3, Caps4     uint32
		ReservedTrailing uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("dds: header: %w", err)
	}

	meta := Metadata{Width: hdr.Width, Height: hdr.Height, Depth: max1(hdr.Depth), ArraySize: 1, MipLevels: max1(hdr.MipMapCount)}

	if string(hdr.PfFourCC[:]) == fourCCDX10 {
		var dx10 struct {
			DxgiFormat        uint32
			ResourceDimension uint32
			MiscFlag          uint32
			ArraySize         uint32
			MiscFlags2        uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &dx10); err != nil {
			return nil, fmt.Errorf("dds: dx10 header: %w", err)
		}
		meta.Format = dx10.DxgiFormat
		meta.ArraySize = max1(dx10.ArraySize)
	} else {
		meta.Format = FormatR8G8B8A8UNorm
	}

	rest := buf[len(buf)-r.Len():]

	img := &Image{Meta: meta}
	w, h := meta.Width, meta.Height
	off := 0
	for lvl := uint32(0); lvl < meta.MipLevels; lvl++ {
		var size int
		if meta.IsCompressed() {
			size = int(blocksAcross(w)) * int(blocksAcross(h)) * bc7BlockBytes
		} else {
			size = int(w) * int(h) * rgbaBytesPerPixel
		}
		if off+size > len(rest) {
			return nil, fmt.Errorf("dds: level %d: truncated payload", lvl)
		}
		px := make([]byte, size)
		copy(px, rest[off:off+size])
		img.Levels = append(img.Levels, Level{Width: w, Height: h, Pixels: px})
		off += size
		w, h = nextMip(w), nextMip(h)
	}
	return img, nil
}

func max1(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

func nextMip(v uint32) uint32 {
	if v <= 1 {
		return 1
	}
	return v / 2
}

func blocksAcross(v uint32) uint32 {
	return (v + blockSize - 1) / blockSize
}

// SaveDDS writes img to path as a DX10 DDS container, creating intermediate
// directories (spec.md §4.4 step 5).
func SaveDDS(img *Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dds: mkdir: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(ddsMagic)

	pitch := uint32(0)
	if len(img.Levels) > 0 {
		if img.Meta.IsCompressed() {
			pitch = blocksAcross(img.Levels[0].Width) * bc7BlockBytes
		} else {
			pitch = img.Levels[0].Width * rgbaBytesPerPixel
		}
	}
	hdr := struct {
		Size             uint32
		Flags            uint32
		Height           uint32
		Width            uint32
		PitchOrLinear    uint32
		Depth            uint32
		MipMapCount      uint32
		Reserved1        [11]uint32
		PfSize           uint32
		PfFlags          uint32
		PfFourCC         [4]byte
		PfRGBBitCount    uint32
		PfRBitMask       uint32
		PfGBitMask       uint32
		PfBBitMask       uint32
		PfABitMask       uint32
		Caps, Caps2      uint32
		Caps3, Caps4     uint32
		ReservedTrailing uint32
	}{
		Size:        ddsHeaderSize,
		Height:      img.Meta.Height,
		Width:       img.Meta.Width,
		PitchOrLinear: pitch,
		Depth:       img.Meta.Depth,
		MipMapCount: uint32(len(img.Levels)),
		PfSize:      32,
		PfFourCC:    [4]byte{'D', 'X', '1', '0'},
	}
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	dx10 := struct {
		DxgiFormat        uint32
		ResourceDimension uint32
		MiscFlag          uint32
		ArraySize         uint32
		MiscFlags2        uint32
	}{DxgiFormat: img.Meta.Format, ResourceDimension: 3, ArraySize: max1(img.Meta.ArraySize)}
	if err := binary.Write(&buf, binary.LittleEndian, &dx10); err != nil {
		return err
	}
	for _, lvl := range img.Levels {
		buf.Write(lvl.Pixels)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
