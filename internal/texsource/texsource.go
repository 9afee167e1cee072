// Package texsource implements the texture source resolver (C3): given
// the finalized Stage-A aggregate, locate each texture's byte source --
// preferring a loose file under the data tree, otherwise re-opening
// archives in load order and keeping the bytes from the last archive that
// carries it (spec.md §4.3).
package texsource

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/texopt/texopt/internal/bsa"
	"github.com/texopt/texopt/internal/cos"
	"github.com/texopt/texopt/internal/meshsize"
	"github.com/texopt/texopt/internal/nlog"
)

// Source is the tagged variant named in spec.md §3: exactly one of LoosePath
// or ArchiveBytes is set.
type Source struct {
	LoosePath    string // absolute path, set iff this is a LooseFile variant
	ArchiveBytes []byte // set iff this is an ArchiveBlob variant
}

func (s Source) IsLoose() bool { return s.LoosePath != "" }

// Load materializes the source's bytes, reading from disk for a LooseFile
// and returning the already-extracted bytes for an ArchiveBlob.
func (s Source) Load() ([]byte, error) {
	if s.IsLoose() {
		return os.ReadFile(s.LoosePath)
	}
	return s.ArchiveBytes, nil
}

// Resolve implements spec.md §4.3's three-step policy: scope-filter, then
// loose-file pass, then archive passes in load order, with loose files
// never overwritten.
func Resolve(aggregate map[cos.PathKey]meshsize.SizeRecord, dataRoot string, archivePaths []string) (map[cos.PathKey]Source, error) {
	resolved := make(map[cos.PathKey]Source, len(aggregate))

	inScope := make(map[cos.PathKey]bool, len(aggregate))
	for key := range aggregate {
		if cos.IsTextureInScope(key) {
			inScope[key] = true
		}
	}

	for key := range inScope {
		abs := filepath.Join(dataRoot, string(key))
		if _, err := os.Stat(abs); err == nil {
			resolved[key] = Source{LoosePath: abs}
		}
	}

	for _, path := range archivePaths {
		a, err := bsa.Open(path)
		if err != nil {
			return nil, fmt.Errorf("texsource: archive %s: %w", path, err)
		}
		for key := range inScope {
			if existing, ok := resolved[key]; ok && existing.IsLoose() {
				continue // a LooseFile is never overwritten
			}
			if _, found := a.Find(key); !found {
				continue
			}
			b, err := a.Extract(key)
			if err != nil {
				nlog.Errorf("texsource: extract %s from %s: %v", key, path, err)
				continue
			}
			resolved[key] = Source{ArchiveBytes: b}
		}
		if err := a.Close(); err != nil {
			nlog.Errorf("texsource: close %s: %v", path, err)
		}
	}

	return resolved, nil
}
