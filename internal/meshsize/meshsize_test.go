package meshsize

import (
	"testing"

	"github.com/texopt/texopt/internal/cos"
	"github.com/texopt/texopt/internal/nif"
	"github.com/texopt/texopt/internal/sourceindex"
)

func entry(t *testing.T, path string, radius float32, slot string) *sourceindex.Entry {
	t.Helper()
	b := nif.NewBuilder()
	var slots []string
	if slot != "" {
		slots = []string{slot}
	}
	b.AddShape([3]float32{0, 0, 0}, radius, slots)
	return &sourceindex.Entry{Path: cos.FoldPath(path), Payload: cos.NewBuffer(b.Bytes())}
}

func TestRunMaxRadiusCorrectness(t *testing.T) {
	entries := []*sourceindex.Entry{
		entry(t, `meshes\a.nif`, 3.0, `textures\t.dds`),
		entry(t, `meshes\b.nif`, 9.0, `textures\t.dds`),
		entry(t, `meshes\c.nif`, 5.0, `textures\other.dds`),
	}
	pool := NewPool(4)
	agg := pool.Run(entries)

	rec, ok := agg[cos.FoldPath(`textures\t.dds`)]
	if !ok {
		t.Fatal("expected textures\\t.dds in aggregate")
	}
	if rec.Radius != 9.0 {
		t.Fatalf("radius = %v, want 9.0", rec.Radius)
	}
	if rec.RepresentativeMesh != cos.FoldPath(`meshes\b.nif`) {
		t.Fatalf("representative = %q, want meshes\\b.nif", rec.RepresentativeMesh)
	}

	other, ok := agg[cos.FoldPath(`textures\other.dds`)]
	if !ok || other.Radius != 5.0 {
		t.Fatalf("other.dds = %+v, want radius 5.0", other)
	}
}

func TestRunSkipsUnparseableMesh(t *testing.T) {
	bad := &sourceindex.Entry{Path: cos.FoldPath(`meshes\bad.nif`), Payload: cos.NewBuffer([]byte("garbage"))}
	good := entry(t, `meshes\a.nif`, 1.0, `textures\t.dds`)

	pool := NewPool(2)
	agg := pool.Run([]*sourceindex.Entry{bad, good})

	if len(agg) != 1 {
		t.Fatalf("got %d aggregate entries, want 1", len(agg))
	}
}

func TestRunEmptyInput(t *testing.T) {
	pool := NewPool(2)
	agg := pool.Run(nil)
	if len(agg) != 0 {
		t.Fatalf("got %d entries, want 0", len(agg))
	}
}
