// Package pathspec normalizes SqPack file paths and computes the hashes the
// archive's index files key on.
package pathspec

import (
	"errors"
	"hash/crc32"
	"strings"
)

// ErrEmptyPath is returned when a PathSpec is constructed from an empty string.
var ErrEmptyPath = errors.New("pathspec: empty path")

// PathSpec identifies a file inside a SqPack archive by any subset of its
// lowercased full path and the three hashes derived from it. A PathSpec
// built from hashes alone (no full path) cannot be used for synonym
// disambiguation or directory listing.
type PathSpec struct {
	fullPath     string // lowercased, "/"-separated; empty if not known
	hasFullPath  bool
	pathHash     uint32
	nameHash     uint32
	fullPathHash uint32
	hasHashes    bool
}

// crcTable is the standard IEEE polynomial table used by every observed
// SqPack hash (pathHash, nameHash, fullPathHash alike): a CRC32 over the
// lowercased bytes, then bitwise-inverted.
var crcTable = crc32.IEEETable

func hashBytes(b []byte) uint32 {
	return ^crc32.Checksum(b, crcTable)
}

// normalize lowercases ASCII and turns backslashes into forward slashes,
// the way the game's own path comparisons are case- and separator-insensitive.
func normalize(path string) string {
	b := []byte(path)
	for i, c := range b {
		if c == '\\' {
			b[i] = '/'
		} else if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

// New builds a PathSpec from a full path string (see NewFromBytes for byte
// slices). The path is normalized (lowercased, backslashes converted) before hashing.
func New(path string) (PathSpec, error) {
	if path == "" {
		return PathSpec{}, ErrEmptyPath
	}
	norm := normalize(path)
	return newFromNormalized(norm), nil
}

// NewFromBytes is a convenience wrapper over New for raw byte paths.
func NewFromBytes(path []byte) (PathSpec, error) {
	return New(string(path))
}

func newFromNormalized(norm string) PathSpec {
	pathPart, namePart := splitPath(norm)
	return PathSpec{
		fullPath:     norm,
		hasFullPath:  true,
		pathHash:     hashBytes([]byte(pathPart)),
		nameHash:     hashBytes([]byte(namePart)),
		fullPathHash: hashBytes([]byte(norm)),
		hasHashes:    true,
	}
}

// splitPath splits a normalized path at its last '/' into (path, name).
// A path with no '/' has an empty path-portion.
func splitPath(norm string) (pathPart, namePart string) {
	idx := strings.LastIndexByte(norm, '/')
	if idx < 0 {
		return "", norm
	}
	return norm[:idx], norm[idx+1:]
}

// NewFromHashes builds a PathSpec carrying only hashes: full-path lookup and
// synonym resolution via text tables will not be possible from this value.
func NewFromHashes(pathHash, nameHash, fullPathHash uint32) PathSpec {
	return PathSpec{
		pathHash:     pathHash,
		nameHash:     nameHash,
		fullPathHash: fullPathHash,
		hasHashes:    true,
	}
}

// NewFromPairHash builds a PathSpec from only a (pathHash, nameHash) pair,
// useful when resolving via the name-hash locator segment without a known
// full-path hash.
func NewFromPairHash(pathHash, nameHash uint32) PathSpec {
	return PathSpec{pathHash: pathHash, nameHash: nameHash, hasHashes: true}
}

// FullPath returns the normalized full path, and whether one is known.
func (p PathSpec) FullPath() (string, bool) {
	return p.fullPath, p.hasFullPath
}

// PathHash returns the hash of the path portion (everything before the
// last '/').
func (p PathSpec) PathHash() uint32 { return p.pathHash }

// NameHash returns the hash of the name portion (everything after the
// last '/').
func (p PathSpec) NameHash() uint32 { return p.nameHash }

// FullPathHash returns the hash of the entire normalized path.
func (p PathSpec) FullPathHash() uint32 { return p.fullPathHash }

// HasFullPath reports whether the normalized full path string is known.
func (p PathSpec) HasFullPath() bool { return p.hasFullPath }

// HasPathNameHash reports whether the (pathHash, nameHash) pair is known.
// It is true for every PathSpec that carries hashes, whichever constructor
// built it.
func (p PathSpec) HasPathNameHash() bool { return p.hasHashes }

// HasFullPathHash reports whether the full-path hash is known. A zero
// full-path hash on a hash-only PathSpec (as NewFromPairHash leaves it)
// counts as unknown.
func (p PathSpec) HasFullPathHash() bool {
	return p.hasFullPath || (p.hasHashes && p.fullPathHash != 0)
}

// IsDirectory reports whether the known full path ends in '/', marking a
// directory-listing PathSpec rather than a single file.
func (p PathSpec) IsDirectory() bool {
	return p.hasFullPath && strings.HasSuffix(p.fullPath, "/")
}

// Equal reports whether two PathSpecs are equivalent, i.e. any hash pair
// both sides know agrees. Two PathSpecs that don't share a known hash are
// considered not equal (there's nothing to compare).
func (p PathSpec) Equal(other PathSpec) bool {
	if p.hasFullPath && other.hasFullPath {
		return p.fullPath == other.fullPath
	}
	if p.hasHashes && other.hasHashes {
		if p.HasFullPathHash() && other.HasFullPathHash() {
			return p.fullPathHash == other.fullPathHash
		}
		return p.pathHash == other.pathHash && p.nameHash == other.nameHash
	}
	return false
}

// String renders a PathSpec for debugging: the full path if known, else the
// hash triple.
func (p PathSpec) String() string {
	if p.hasFullPath {
		return p.fullPath
	}
	return hashString(p)
}

func hashString(p PathSpec) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 0, 32)
	appendHex := func(v uint32) {
		for shift := 28; shift >= 0; shift -= 4 {
			buf = append(buf, hexDigits[(v>>uint(shift))&0xF])
		}
	}
	buf = append(buf, '~')
	appendHex(p.pathHash)
	buf = append(buf, '/')
	appendHex(p.nameHash)
	return string(buf)
}
