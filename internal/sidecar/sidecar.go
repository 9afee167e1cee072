// Package sidecar implements the content-addressed skip store (C5): one
// ".info.mohidden" file per output texture recording "<hex_digest>:<size>",
// read before work and written only after a successful encode+save
// (spec.md §4.5).
package sidecar

import (
	"fmt"
	"os"

	"github.com/texopt/texopt/internal/cos"
)

const suffix = ".info.mohidden"

// Path returns the sidecar path for a given output texture path.
func Path(outputPath string) string { return outputPath + suffix }

// Probe reads and parses the sidecar for outputPath. ok is false if the
// file is absent or malformed (treated identically as a miss, spec.md
// §4.5: "A malformed file (no colon) is treated as a miss").
func Probe(outputPath string) (rec cos.SidecarRecord, ok bool) {
	body, err := os.ReadFile(Path(outputPath))
	if err != nil {
		return rec, false
	}
	return cos.ParseSidecar(string(body))
}

// Hit reports whether the probed record matches the input's current hash
// and the newly computed target size (spec.md §4.4 step 2).
func Hit(rec cos.SidecarRecord, ok bool, hash string, targetSize uint64) bool {
	return ok && rec.Hash == hash && rec.Size == targetSize
}

// Write persists a fresh sidecar after a successful encode+save. It is
// never called on a partial failure (spec.md §4.5: "partial-failure
// outputs have no sidecar and will be redone on the next run").
func Write(outputPath, hash string, targetSize uint64) error {
	body := cos.FormatSidecar(hash, targetSize)
	if err := os.WriteFile(Path(outputPath), []byte(body), 0o644); err != nil {
		return fmt.Errorf("sidecar: write %s: %w", Path(outputPath), err)
	}
	return nil
}
