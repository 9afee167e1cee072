package bsa

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"testing"

	"github.com/texopt/texopt/internal/cos"
)

// buildTestArchive writes a minimal, single-folder BSA to path, using the
// same field layout bsa.parse expects. It exists purely so this package's
// tests don't require a real Skyrim install. Offsets are computed by
// writing sequentially and patching placeholders, rather than hand-computed
// arithmetic, to keep the fixture trustworthy.
func buildTestArchive(t *testing.T, path string, compressed bool) {
	t.Helper()

	type file struct {
		name string
		data []byte
	}
	files := []file{
		{name: "a.nif", data: []byte("mesh-bytes-one")},
		{name: "b.nif", data: []byte("mesh-bytes-two-longer-payload")},
	}

	var bodies [][]byte
	var sizes []uint32
	for _, f := range files {
		if !compressed {
			bodies = append(bodies, f.data)
			sizes = append(sizes, uint32(len(f.data)))
			continue
		}
		var zbuf bytes.Buffer
		zw := zlib.NewWriter(&zbuf)
		zw.Write(f.data) //nolint:errcheck
		zw.Close()
		var full bytes.Buffer
		var szHdr [4]byte
		binary.LittleEndian.PutUint32(szHdr[:], uint32(len(f.data)))
		full.Write(szHdr[:])
		full.Write(zbuf.Bytes())
		bodies = append(bodies, full.Bytes())
		sizes = append(sizes, uint32(full.Len()))
	}

	const folderName = "meshes"

	var buf bytes.Buffer
	writeU32 := func(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); buf.Write(b[:]) }

	buf.WriteString(magic)
	writeU32(105) // version
	folderRecOffPos := buf.Len()
	writeU32(0) // folder record offset -- patched below
	flags := uint32(0)
	if compressed {
		flags |= flagCompressed
	}
	writeU32(flags)
	writeU32(1) // folder count
	writeU32(uint32(len(files)))
	writeU32(uint32(len(folderName) + 1))
	nameBlockSize := 0
	for _, f := range files {
		nameBlockSize += len(f.name) + 1
	}
	writeU32(uint32(nameBlockSize))
	writeU32(0) // file flags

	folderRecOff := buf.Len()
	patchU32(&buf, folderRecOffPos, uint32(folderRecOff))

	writeU32(0) // hash lo
	writeU32(0) // hash hi
	writeU32(uint32(len(files)))
	writeU32(0) // padding
	folderOffsetFieldPos := buf.Len()
	writeU32(0) // folder block offset -- patched below
	writeU32(0) // unused trailing word (24-byte stride)

	folderBlockOff := buf.Len()
	patchU32(&buf, folderOffsetFieldPos, uint32(folderBlockOff))

	buf.WriteByte(byte(len(folderName) + 1))
	buf.WriteString(folderName)
	buf.WriteByte(0)

	fileOffsetFieldPos := make([]int, len(files))
	for i := range files {
		writeU32(0)
		writeU32(0)
		writeU32(sizes[i])
		fileOffsetFieldPos[i] = buf.Len()
		writeU32(0) // file data offset -- patched below
	}

	for _, f := range files {
		buf.WriteString(f.name)
		buf.WriteByte(0)
	}

	for i, b := range bodies {
		patchU32(&buf, fileOffsetFieldPos[i], uint32(buf.Len()))
		buf.Write(b)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func patchU32(buf *bytes.Buffer, pos int, v uint32) {
	b := buf.Bytes()
	binary.LittleEndian.PutUint32(b[pos:pos+4], v)
}

func TestOpenExtractUncompressed(t *testing.T) {
	path := t.TempDir() + "/test.bsa"
	buildTestArchive(t, path, false)

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	key := cos.FoldPath(`meshes\a.nif`)
	rec, ok := a.Find(key)
	if !ok {
		t.Fatalf("Find(%s): not found, entries=%v", key, a.List())
	}
	if rec.CompressedSize == 0 {
		t.Fatalf("expected non-zero size")
	}
	data, err := a.Extract(key)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(data) != "mesh-bytes-one" {
		t.Fatalf("got %q", data)
	}
}

func TestOpenExtractCompressed(t *testing.T) {
	path := t.TempDir() + "/test_compressed.bsa"
	buildTestArchive(t, path, true)

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	key := cos.FoldPath(`meshes\b.nif`)
	data, err := a.Extract(key)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(data) != "mesh-bytes-two-longer-payload" {
		t.Fatalf("got %q", data)
	}
}

func TestFindMissing(t *testing.T) {
	path := t.TempDir() + "/test.bsa"
	buildTestArchive(t, path, false)
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()
	if _, ok := a.Find(cos.FoldPath(`meshes\missing.nif`)); ok {
		t.Fatal("expected missing entry")
	}
}

func TestOpenMissingArchive(t *testing.T) {
	if _, err := Open("/nonexistent/path.bsa"); err == nil {
		t.Fatal("expected error for missing archive")
	}
}
