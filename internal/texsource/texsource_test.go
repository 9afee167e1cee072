package texsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/texopt/texopt/internal/cos"
	"github.com/texopt/texopt/internal/meshsize"
)

func TestResolveFiltersOutOfScope(t *testing.T) {
	dir := t.TempDir()
	agg := map[cos.PathKey]meshsize.SizeRecord{
		cos.FoldPath(`textures\lod\far.dds`):              {Radius: 99},
		cos.FoldPath(`textures\effects\gradients\g.dds`):  {Radius: 50},
		cos.FoldPath(`textures\hero.dds`):                 {Radius: 2},
	}
	resolved, err := Resolve(agg, dir, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 0 {
		t.Fatalf("expected nothing resolved (hero.dds has no source), got %d", len(resolved))
	}
	if _, ok := resolved[cos.FoldPath(`textures\lod\far.dds`)]; ok {
		t.Fatal("lod texture must never produce a source")
	}
}

func TestResolveLooseFileWins(t *testing.T) {
	dir := t.TempDir()
	texPath := filepath.Join(dir, "textures", "hero.dds")
	if err := os.MkdirAll(filepath.Dir(texPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(texPath, []byte("loose bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	agg := map[cos.PathKey]meshsize.SizeRecord{
		cos.FoldPath(`textures\hero.dds`): {Radius: 2},
	}
	resolved, err := Resolve(agg, dir, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	src, ok := resolved[cos.FoldPath(`textures\hero.dds`)]
	if !ok {
		t.Fatal("expected hero.dds resolved")
	}
	if !src.IsLoose() {
		t.Fatal("expected a loose source")
	}
	b, err := src.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(b) != "loose bytes" {
		t.Fatalf("got %q", b)
	}
}
