package dds

import (
	"os"
	"testing"
)

func solidImage(w, h uint32, r, g, b, a byte) *Image {
	px := make([]byte, w*h*rgbaBytesPerPixel)
	for i := uint32(0); i < w*h; i++ {
		o := i * rgbaBytesPerPixel
		px[o], px[o+1], px[o+2], px[o+3] = r, g, b, a
	}
	return &Image{
		Meta:   Metadata{Width: w, Height: h, Depth: 1, ArraySize: 1, MipLevels: 1, Format: FormatR8G8B8A8UNorm},
		Levels: []Level{{Width: w, Height: h, Pixels: px}},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	img := solidImage(8, 8, 10, 20, 30, 255)
	path := t.TempDir() + "/nested/t.dds"
	if err := SaveDDS(img, path); err != nil {
		t.Fatalf("SaveDDS: %v", err)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile: %v", err)
	}
	got, err := LoadDDSBytes(buf)
	if err != nil {
		t.Fatalf("LoadDDSBytes: %v", err)
	}
	if got.Meta.Width != 8 || got.Meta.Height != 8 {
		t.Fatalf("dims = %dx%d, want 8x8", got.Meta.Width, got.Meta.Height)
	}
	if len(got.Levels) != 1 || len(got.Levels[0].Pixels) != len(img.Levels[0].Pixels) {
		t.Fatalf("level mismatch")
	}
	if got.Levels[0].Pixels[0] != 10 {
		t.Fatalf("pixel[0] = %d, want 10", got.Levels[0].Pixels[0])
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	if _, err := LoadDDSBytes([]byte("not a dds file at all, way too short")); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestResizeDownscale(t *testing.T) {
	img := solidImage(16, 16, 100, 150, 200, 255)
	out, err := Resize(img, 4, 4)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if out.Levels[0].Width != 4 || out.Levels[0].Height != 4 {
		t.Fatalf("resized dims = %dx%d, want 4x4", out.Levels[0].Width, out.Levels[0].Height)
	}
	px := out.Levels[0].Pixels
	if px[0] != 100 || px[1] != 150 || px[2] != 200 || px[3] != 255 {
		t.Fatalf("solid color not preserved by resize: %v", px[:4])
	}
}

func TestGenerateMipmapsChainLength(t *testing.T) {
	img := solidImage(8, 8, 1, 2, 3, 4)
	out, err := GenerateMipmaps(img, OptimalMipLevels(8, 8))
	if err != nil {
		t.Fatalf("GenerateMipmaps: %v", err)
	}
	if len(out.Levels) != 4 { // 8 -> 4 -> 2 -> 1
		t.Fatalf("got %d levels, want 4", len(out.Levels))
	}
	want := uint32(8)
	for i, lvl := range out.Levels {
		if lvl.Width != want || lvl.Height != want {
			t.Fatalf("level %d = %dx%d, want %dx%d", i, lvl.Width, lvl.Height, want, want)
		}
		want = nextMip(want)
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	img := solidImage(4, 4, 5, 6, 7, 255)
	compressed, err := Compress(img, false)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !compressed.Meta.IsCompressed() {
		t.Fatal("expected compressed format after Compress")
	}
	if len(compressed.Levels[0].Pixels) != bc7BlockBytes {
		t.Fatalf("4x4 image should be exactly one BC7 block, got %d bytes", len(compressed.Levels[0].Pixels))
	}
	decompressed, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	px := decompressed.Levels[0].Pixels
	if px[0] != 5 || px[1] != 6 || px[2] != 7 || px[3] != 255 {
		t.Fatalf("round trip color = %v, want [5 6 7 255]", px[:4])
	}
}

func TestOptimalMipLevels(t *testing.T) {
	cases := []struct{ w, h, want uint32 }{
		{1, 1, 1},
		{2, 2, 2},
		{1024, 1024, 11},
		{1024, 512, 11},
	}
	for _, c := range cases {
		if got := OptimalMipLevels(c.w, c.h); got != c.want {
			t.Errorf("OptimalMipLevels(%d,%d) = %d, want %d", c.w, c.h, got, c.want)
		}
	}
}
