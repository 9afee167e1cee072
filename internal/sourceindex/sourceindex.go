// Package sourceindex implements the source index collaborator (C1): it
// enumerates mesh files from archives in load order and from the loose
// data tree, building a case-folded map from internal path to an owned
// byte buffer, with loose files winning on conflict (spec.md §4.1).
package sourceindex

import (
	"fmt"
	"os"
	"path/filepath"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/texopt/texopt/internal/bsa"
	"github.com/texopt/texopt/internal/cos"
	"github.com/texopt/texopt/internal/nlog"
	"github.com/karrick/godirwalk"
)

// Entry is one indexed mesh: its internal path key plus owned bytes.
// Ownership transfers to whoever pulls it off the Stage-A queue (spec.md
// §3 MeshEntry, §9 "owned byte buffers").
type Entry struct {
	Path    cos.PathKey
	Payload *cos.Buffer
}

// Index is the result of Build: every in-scope mesh keyed by its
// case-folded internal path. Spec.md §4.1: "the mesh map is unordered for
// downstream consumers", so Index exposes only Entries(), never an
// ordering guarantee.
type Index struct {
	entries map[cos.PathKey]*Entry
	filter  *cuckoo.Filter
}

// Build enumerates archives (in load order) then the loose data tree,
// inserting a MeshEntry for every path passing cos.IsMeshInScope. Loose
// files are scanned after archives so they naturally overwrite any
// archive entry sharing a key (spec.md §4.1 "Override policy").
//
// A missing archive in archivePaths is fatal (spec.md §4.1 "Errors"); a
// directory-iterator error during the loose-tree walk is logged and
// iteration continues past it.
func Build(archivePaths []string, dataRoot string) (*Index, error) {
	idx := &Index{
		entries: make(map[cos.PathKey]*Entry),
		filter:  cuckoo.NewFilter(1 << 20),
	}

	for _, path := range archivePaths {
		if err := idx.ingestArchive(path); err != nil {
			return nil, fmt.Errorf("sourceindex: archive %s: %w", path, err)
		}
	}
	idx.ingestLooseTree(dataRoot)
	return idx, nil
}

func (idx *Index) ingestArchive(path string) error {
	a, err := bsa.Open(path)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, name := range a.List() {
		if !cos.IsMeshInScope(name) {
			continue
		}
		b, err := a.Extract(name)
		if err != nil {
			nlog.Errorf("sourceindex: extract %s from %s: %v", name, path, err)
			continue
		}
		idx.insert(name, cos.NewBuffer(b))
	}
	return nil
}

func (idx *Index) ingestLooseTree(dataRoot string) {
	if dataRoot == "" {
		return
	}
	err := godirwalk.Walk(dataRoot, &godirwalk.Options{
		Unsorted: true,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(dataRoot, osPathname)
			if err != nil {
				return nil //nolint:nilerr // unreachable under a valid walk root, never fatal
			}
			key := cos.FoldPath(rel)
			if !cos.IsMeshInScope(key) {
				return nil
			}
			b, err := os.ReadFile(osPathname)
			if err != nil {
				nlog.Errorf("sourceindex: read %s: %v", osPathname, err)
				return nil
			}
			idx.insert(key, cos.NewBuffer(b))
			return nil
		},
		ErrorCallback: func(osPathname string, err error) godirwalk.ErrorAction {
			nlog.Errorf("sourceindex: walk %s: %v", osPathname, err)
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		nlog.Errorf("sourceindex: walk %s: %v", dataRoot, err)
	}
}

// insert adds or overwrites the entry for key. Every key is recorded in the
// cuckoo filter (a negative InsertUnique, meaning a probable existing key,
// is followed by a plain Insert); the filter's answer does not change what
// happens to the map. The map lookup below always runs and alone decides
// whether an existing entry is freed and overwritten.
func (idx *Index) insert(key cos.PathKey, payload *cos.Buffer) {
	keyBytes := []byte(key)
	if !idx.filter.InsertUnique(keyBytes) {
		idx.filter.Insert(keyBytes)
	}
	if old, exists := idx.entries[key]; exists {
		old.Payload.Free()
	}
	idx.entries[key] = &Entry{Path: key, Payload: payload}
}

// Entries returns every indexed mesh in no particular order.
func (idx *Index) Entries() []*Entry {
	out := make([]*Entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e)
	}
	return out
}

// Len reports how many meshes are indexed.
func (idx *Index) Len() int { return len(idx.entries) }
