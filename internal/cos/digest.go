package cos

import (
	"encoding/hex"
	"hash"
	"strconv"
	"strings"

	sha256simd "github.com/minio/sha256-simd"
)

// Digest is the streaming 256-bit hash collaborator named in spec.md §6,
// backed by minio/sha256-simd (grounded on the retrieval pack's
// go-fil-commp-hashhash module, which depends on the same library for
// exactly this kind of streaming content-hash-as-cache-key use). SIMD
// acceleration matters here because every texture's raw bytes are hashed on
// every run, cache hit or miss.
type Digest struct {
	h hash.Hash
}

func NewDigest() *Digest {
	return &Digest{h: sha256simd.New()}
}

func (d *Digest) Write(p []byte) { d.h.Write(p) } //nolint:errcheck // hash.Hash.Write never errors

// HexDigest returns the lower-case hex digest, matching the sidecar format
// "<hex_digest>:<target_size>" from spec.md §4.5.
func (d *Digest) HexDigest() string {
	sum := d.h.Sum(nil)
	return hex.EncodeToString(sum)
}

// HashBytes is a convenience one-shot digest of a full buffer.
func HashBytes(b []byte) string {
	d := NewDigest()
	d.Write(b)
	return d.HexDigest()
}

// SidecarRecord is the parsed form of a "<hex>:<size>" sidecar (spec.md §4.5).
type SidecarRecord struct {
	Hash string
	Size uint64
}

// ParseSidecar parses the sidecar body, tolerating trailing whitespace.
// A malformed sidecar (no colon) is reported as a miss, never an error --
// the cache probe in internal/resize treats ok==false as "recompute".
func ParseSidecar(body string) (rec SidecarRecord, ok bool) {
	body = strings.TrimSpace(body)
	idx := strings.LastIndex(body, ":")
	if idx < 0 {
		return rec, false
	}
	size, err := strconv.ParseUint(body[idx+1:], 10, 64)
	if err != nil {
		return rec, false
	}
	rec.Hash = body[:idx]
	rec.Size = size
	return rec, true
}

// FormatSidecar renders a sidecar body from a hash and target size.
func FormatSidecar(hash string, size uint64) string {
	return hash + ":" + strconv.FormatUint(size, 10)
}
