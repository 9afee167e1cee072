package pipeline_test

import (
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/texopt/texopt/internal/dds"
	"github.com/texopt/texopt/internal/gameconfig"
	"github.com/texopt/texopt/internal/nif"
	"github.com/texopt/texopt/internal/pipeline"
	"github.com/texopt/texopt/internal/xstats"
)

func mustTempDir() string {
	dir, err := os.MkdirTemp("", "texopt-pipeline-*")
	Expect(err).ToNot(HaveOccurred())
	return dir
}

func writeMesh(dir, rel string, radius float32, slot string) {
	b := nif.NewBuilder()
	b.AddShape([3]float32{0, 0, 0}, radius, []string{slot})
	full := filepath.Join(dir, rel)
	Expect(os.MkdirAll(filepath.Dir(full), 0o755)).To(Succeed())
	Expect(os.WriteFile(full, b.Bytes(), 0o644)).To(Succeed())
}

func writeTexture(dir, rel string, edge uint32) {
	px := make([]byte, edge*edge*4)
	for i := range px {
		px[i] = 1
	}
	img := &dds.Image{
		Meta:   dds.Metadata{Width: edge, Height: edge, Depth: 1, ArraySize: 1, MipLevels: 1, Format: dds.FormatR8G8B8A8UNorm},
		Levels: []dds.Level{{Width: edge, Height: edge, Pixels: px}},
	}
	Expect(dds.SaveDDS(img, filepath.Join(dir, rel))).To(Succeed())
}

func emptyINI(dir string) string {
	path := filepath.Join(dir, "Skyrim.ini")
	Expect(os.WriteFile(path, []byte("[General]\r\n"), 0o644)).To(Succeed())
	return path
}

var _ = Describe("Run", func() {
	It("sizes a texture from its referencing mesh's bounding sphere and writes output plus sidecar (E1)", func() {
		dataRoot := mustTempDir()
		outRoot := mustTempDir()
		cfgDir := mustTempDir()

		writeMesh(dataRoot, `meshes\a.nif`, 5.0, `textures\t.dds`)
		writeTexture(dataRoot, `textures\t.dds`, 1024)

		cfg := pipeline.Config{
			DataRoot:   dataRoot,
			OutputRoot: outRoot,
			WorkersA:   2,
			WorkersB:   1,
			GameConfig: gameconfig.Paths{
				SkyrimINI:    emptyINI(cfgDir),
				LoadOrderTxt: filepath.Join(cfgDir, "missing-loadorder.txt"),
				DataRoot:     dataRoot,
			},
		}

		stats := xstats.New()
		Expect(pipeline.Run(cfg, stats)).To(Succeed())

		outPath := filepath.Join(outRoot, `textures\t.dds`)
		_, err := os.Stat(outPath)
		Expect(err).ToNot(HaveOccurred())

		sidecarPath := outPath + ".info.mohidden"
		body, err := os.ReadFile(sidecarPath)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(HaveSuffix(":128"), fmt.Sprintf("radius 5.0 on a 1024x1024 source must size to 128, got sidecar %q", body))
	})

	It("skips every texture on a second run with unchanged inputs (E6, sidecar idempotence)", func() {
		dataRoot := mustTempDir()
		outRoot := mustTempDir()
		cfgDir := mustTempDir()

		writeMesh(dataRoot, `meshes\a.nif`, 5.0, `textures\t.dds`)
		writeTexture(dataRoot, `textures\t.dds`, 1024)

		cfg := pipeline.Config{
			DataRoot:   dataRoot,
			OutputRoot: outRoot,
			WorkersA:   1,
			WorkersB:   1,
			GameConfig: gameconfig.Paths{
				SkyrimINI:    emptyINI(cfgDir),
				LoadOrderTxt: filepath.Join(cfgDir, "missing-loadorder.txt"),
				DataRoot:     dataRoot,
			},
		}

		Expect(pipeline.Run(cfg, xstats.New())).To(Succeed())

		outPath := filepath.Join(outRoot, `textures\t.dds`)
		before, err := os.Stat(outPath)
		Expect(err).ToNot(HaveOccurred())

		stats2 := xstats.New()
		Expect(pipeline.Run(cfg, stats2)).To(Succeed())
		Expect(stats2.Summary(xstats.StageTexture)).To(ContainSubstring("1 skipped"))

		after, err := os.Stat(outPath)
		Expect(err).ToNot(HaveOccurred())
		Expect(after.ModTime()).To(Equal(before.ModTime()), "second run must not rewrite an unchanged output")
	})

	It("never resolves a texture that lives only under a lod/gradients out-of-scope path (E4)", func() {
		dataRoot := mustTempDir()
		outRoot := mustTempDir()
		cfgDir := mustTempDir()

		writeMesh(dataRoot, `meshes\a.nif`, 99.0, `textures\lod\far.dds`)
		writeTexture(dataRoot, `textures\lod\far.dds`, 512)

		cfg := pipeline.Config{
			DataRoot:   dataRoot,
			OutputRoot: outRoot,
			WorkersA:   1,
			WorkersB:   1,
			GameConfig: gameconfig.Paths{
				SkyrimINI:    emptyINI(cfgDir),
				LoadOrderTxt: filepath.Join(cfgDir, "missing-loadorder.txt"),
				DataRoot:     dataRoot,
			},
		}

		Expect(pipeline.Run(cfg, xstats.New())).To(Succeed())

		_, err := os.Stat(filepath.Join(outRoot, `textures\lod\far.dds`))
		Expect(os.IsNotExist(err)).To(BeTrue(), "a lod-scoped mesh must never produce a resolved texture")
	})
})
