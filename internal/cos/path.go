// Package cos provides the low-level types shared by every texopt package:
// case-folded path keys, owned byte buffers, and the content digest.
//
// Ported and adapted from the teacher's cmn/cos: same "small low-level
// helpers with no upward dependencies" role, rebuilt around the game-archive
// path convention (backslash separator, ASCII case-fold) instead of the
// teacher's POSIX bucket/object-name convention.
package cos

import "strings"

// PathKey is the identity used for deduplication across archives and loose
// files: ASCII-lower-cased, backslash-separated, exactly as Skyrim's archive
// tooling addresses internal paths.
type PathKey string

// FoldPath lower-cases ASCII letters (other characters are kept as they
// are) and normalizes separators into a PathKey. It is the
// single choke point for path identity in the pipeline -- every index,
// aggregate, and resolver key must flow through it.
func FoldPath(p string) PathKey {
	p = strings.ReplaceAll(p, "/", `\`)
	return PathKey(strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, p))
}

func (k PathKey) String() string { return string(k) }

// HasSuffixFold reports whether the key ends with the given (already
// lower-case) suffix.
func (k PathKey) HasSuffixFold(suffix string) bool {
	return strings.HasSuffix(string(k), suffix)
}

// ContainsFold reports whether the key contains the given (already
// lower-case) substring.
func (k PathKey) ContainsFold(sub string) bool {
	return strings.Contains(string(k), sub)
}

// IsMeshInScope implements spec.md's §3 .nif filter predicate: a path is a
// mesh in scope for Stage A iff it ends in .nif and does not sit under a
// \lod\ subtree.
func IsMeshInScope(k PathKey) bool {
	return k.HasSuffixFold(".nif") && !k.ContainsFold(`\lod\`)
}

// IsTextureInScope implements spec.md's §3 texture filter predicate.
func IsTextureInScope(k PathKey) bool {
	return !k.ContainsFold(`textures\effects\gradients\`) && !k.ContainsFold(`textures\lod\`)
}

// IsNormalMap reports whether the texture is a normal map by its _n.dds
// naming convention (spec.md §4.4 step 1).
func IsNormalMap(k PathKey) bool {
	return k.HasSuffixFold("_n.dds")
}
