// Package gameconfig discovers the list of BSA archives a Skyrim Special
// Edition install will load, by reading Skyrim.ini's archive list keys and
// loadorder.txt (spec.md §6). Neither file is structured INI in the
// key=section sense -- both are prefix-matched line scans -- so this
// package uses bufio.Scanner (stdlib; justified in DESIGN.md, the pack
// carries no .ini-format library at all).
package gameconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/texopt/texopt/internal/nlog"
)

const (
	keyArchiveList2 = "sResourceArchiveList2="
	keyArchiveList  = "sResourceArchiveList="
)

// Paths locates the two files this package reads, overridable for tests
// and for the `-config` CLI flag (spec.md §6.1).
type Paths struct {
	SkyrimINI    string
	LoadOrderTxt string
	DataRoot     string // where .bsa archives named by loadorder.txt live
}

// DefaultPaths returns the real per-user Skyrim SE locations, following the
// teacher's convention of resolving OS-specific paths once at startup
// rather than scattering os.Getenv calls through the codebase.
func DefaultPaths() Paths {
	docs := os.Getenv("USERPROFILE")
	if docs == "" {
		docs, _ = os.UserHomeDir()
	}
	localAppData := os.Getenv("LOCALAPPDATA")
	return Paths{
		SkyrimINI:    filepath.Join(docs, "Documents", "My Games", "Skyrim Special Edition", "Skyrim.ini"),
		LoadOrderTxt: filepath.Join(localAppData, "Skyrim Special Edition", "loadorder.txt"),
	}
}

// ArchiveList returns the ordered list of .bsa paths this install will
// load: the comma-space-separated names from Skyrim.ini's
// sResourceArchiveList2 (falling back to sResourceArchiveList if the
// former key is absent), followed by every loadorder.txt entry that
// resolves to an existing `<name>.bsa` under DataRoot (spec.md §6: "entries
// that don't exist on disk are silently skipped, not reported as errors").
func (p Paths) ArchiveList() ([]string, error) {
	names, err := readArchiveListKey(p.SkyrimINI)
	if err != nil {
		return nil, fmt.Errorf("gameconfig: %w", err)
	}

	loadOrderNames, err := readLoadOrder(p.LoadOrderTxt)
	if err != nil {
		nlog.Warningf("gameconfig: loadorder.txt unreadable, continuing with ini list only: %v", err)
		loadOrderNames = nil
	}

	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, filepath.Join(p.DataRoot, n))
	}
	for _, n := range loadOrderNames {
		bsa := n + ".bsa"
		if seen[bsa] {
			continue
		}
		full := filepath.Join(p.DataRoot, bsa)
		if _, err := os.Stat(full); err != nil {
			continue // does not exist on disk: silently skipped
		}
		seen[bsa] = true
		out = append(out, full)
	}
	return out, nil
}

func readArchiveListKey(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open skyrim.ini: %w", err)
	}
	defer f.Close()

	var list2, list1 string
	var foundList2 bool
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, keyArchiveList2):
			list2 = strings.TrimPrefix(line, keyArchiveList2)
			foundList2 = true
		case strings.HasPrefix(line, keyArchiveList):
			list1 = strings.TrimPrefix(line, keyArchiveList)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan skyrim.ini: %w", err)
	}

	raw := list1
	if foundList2 {
		raw = list2
	}
	return splitCommaSpace(raw), nil
}

func readLoadOrder(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, strings.TrimSuffix(line, ".esp"))
		names[len(names)-1] = strings.TrimSuffix(names[len(names)-1], ".esl")
		names[len(names)-1] = strings.TrimSuffix(names[len(names)-1], ".esm")
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return nil, err
	}
	return names, nil
}

func splitCommaSpace(s string) []string {
	parts := strings.Split(s, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
