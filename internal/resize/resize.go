// Package resize implements the resize engine (C4, Stage B): for each
// resolved texture, compute the target power-of-two size, consult the
// sidecar cache, and invoke the codec collaborator (internal/dds) to
// decode, resize, regenerate mipmaps, re-encode to BC7, and save
// (spec.md §4.4).
package resize

import (
	"path/filepath"

	"github.com/texopt/texopt/internal/cos"
	"github.com/texopt/texopt/internal/dds"
	"github.com/texopt/texopt/internal/nlog"
	"github.com/texopt/texopt/internal/sidecar"
)

// TargetSize implements spec.md §4.4 step 1, `needed` kept as a uint64
// throughout per the spec's fix of the "64-bit shift in a 32-bit rounder"
// open question. maxEdge is the CLI-supplied ceiling (texsize, or
// normalsize for a _n.dds path) named in spec.md §6.1's "positive
// integers interpreted as maximum edge lengths (the sizing algorithm in
// §4.4 further constrains them)"; 0 means no additional ceiling.
func TargetSize(radius float32, originalWidth, maxEdge uint64, isNormalMap bool) uint64 {
	needed := uint64(radius) << 4
	if needed < 128 {
		needed = 128
	}
	needed = nextPowerOfTwo64(needed)

	if originalWidth > 0 && needed > originalWidth {
		needed = originalWidth
	}
	if maxEdge > 0 && needed > maxEdge {
		needed = maxEdge
	}
	if isNormalMap {
		needed >>= 2
	}
	if needed < 128 {
		// Do not shrink below 128 unless the original was already
		// smaller than that (spec.md §4.4 step 1, final clause).
		if needed < originalWidth {
			needed = originalWidth
		}
	}
	return needed
}

// nextPowerOfTwo64 rounds n up to the next power of two using the classic
// bithack extended to 64 bits with the n |= n >> 32 step spec.md's open
// question calls out as required for correctness at this width.
func nextPowerOfTwo64(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}

// Result reports the outcome of processing one texture, for caller-side
// observability counters (internal/xstats).
type Result struct {
	Skipped bool
	Failed  bool
}

// Item is one Stage-B work unit: a resolved texture plus its sizing
// signal from Stage A.
type Item struct {
	Path       cos.PathKey
	Bytes      []byte
	Radius     float32
	OutputDir  string
	TexSize    uint64 // CLI texsize ceiling
	NormalSize uint64 // CLI normalsize ceiling, used instead of TexSize for _n.dds paths
}

// Process runs spec.md §4.4 steps 1-5 for a single texture. Any step
// failure aborts this texture with a logged error; it is never retried
// within the run (spec.md §7).
func Process(item Item) Result {
	outputPath := filepath.Join(item.OutputDir, string(item.Path))
	hash := cos.HashBytes(item.Bytes)

	img, err := dds.LoadDDSBytes(item.Bytes)
	if err != nil {
		nlog.Errorf("resize: %s: load: %v", item.Path, err)
		return Result{Failed: true}
	}
	originalWidth := uint64(img.Meta.Width)
	isNormal := cos.IsNormalMap(item.Path)
	maxEdge := item.TexSize
	if isNormal {
		maxEdge = item.NormalSize
	}
	needed := TargetSize(item.Radius, originalWidth, maxEdge, isNormal)

	if rec, ok := sidecar.Probe(outputPath); sidecar.Hit(rec, ok, hash, needed) {
		return Result{Skipped: true}
	}

	if img.Meta.IsTypeless() {
		img.Meta = img.Meta.MakeTypelessUNorm()
	}
	if img.Meta.IsCompressed() {
		img, err = dds.Decompress(img)
		if err != nil {
			nlog.Errorf("resize: %s: decompress: %v", item.Path, err)
			return Result{Failed: true}
		}
	}

	if uint64(img.Meta.Width) != needed || uint64(img.Meta.Height) != needed {
		img, err = dds.Resize(img, uint32(needed), uint32(needed))
		if err != nil {
			nlog.Errorf("resize: %s: resize: %v", item.Path, err)
			return Result{Failed: true}
		}
	}

	optimal := dds.OptimalMipLevels(img.Meta.Width, img.Meta.Height)
	if uint32(len(img.Levels)) != optimal {
		img, err = dds.GenerateMipmaps(img, optimal)
		if err != nil {
			nlog.Errorf("resize: %s: mipmaps: %v", item.Path, err)
			return Result{Failed: true}
		}
	}

	img, err = dds.Compress(img, false)
	if err != nil {
		nlog.Errorf("resize: %s: compress: %v", item.Path, err)
		return Result{Failed: true}
	}

	if err := dds.SaveDDS(img, outputPath); err != nil {
		nlog.Errorf("resize: %s: save: %v", item.Path, err)
		return Result{Failed: true}
	}
	if err := sidecar.Write(outputPath, hash, needed); err != nil {
		nlog.Errorf("resize: %s: sidecar: %v", item.Path, err)
		return Result{Failed: true}
	}
	return Result{}
}

