// Package sqpack opens SqPack archives (.index/.index2 + .datN) and decodes
// their entries (spec.md §4.D/§4.E/§4.F).
package sqpack

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Soreepeong/pyxivdata/pathspec"
	xiv "github.com/Soreepeong/pyxivdata/xerrors"
)

// DataLocator is the resolved location of a single entry: which dat file it
// lives in, and its byte offset within that file.
type DataLocator struct {
	DatIndex int
	Offset   int64
}

// Archive owns one category's index reader and its N dat file handles,
// mirroring icza/mpq.MPQ's "one struct owns the header tables plus the
// input source(s), all closed together" shape.
type Archive struct {
	index  *Index
	index2 *Index2
	dats   []*os.File
}

// Open opens basePath+".index", basePath+".index2", and basePath+".datN" for
// N = 0..datCount-1 (datCount taken from the .index file's text-locator
// segment count, per spec.md §4.E). All handles are released together by
// Close, and any handle opened before a later failure is closed before the
// error is returned.
func Open(basePath string) (a *Archive, err error) {
	a = &Archive{}
	opened := a // a itself is nil by the time a failing return runs the defer
	defer func() {
		if err != nil {
			opened.Close()
		}
	}()

	idxFile, err := os.Open(basePath + ".index")
	if err != nil {
		return nil, xiv.New(xiv.KindIO, "open .index", err)
	}
	a.index, err = loadIndex(idxFile)
	idxFile.Close()
	if err != nil {
		return nil, err
	}

	idx2File, err := os.Open(basePath + ".index2")
	if err != nil {
		return nil, xiv.New(xiv.KindIO, "open .index2", err)
	}
	a.index2, err = loadIndex2(idx2File)
	idx2File.Close()
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < a.index.datCount; i++ {
		f, err := os.Open(fmt.Sprintf("%s.dat%d", basePath, i))
		if err != nil {
			return nil, xiv.New(xiv.KindIO, "open dat file", err)
		}
		a.dats = append(a.dats, f)
	}
	return a, nil
}

// Close releases every dat file handle this Archive opened. Close is
// idempotent: a second call is a no-op since dats is cleared after the
// first pass.
func (a *Archive) Close() error {
	var first error
	for _, f := range a.dats {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.dats = nil
	return first
}

// Locate resolves spec to a DataLocator (spec.md §4.E operation 1-3).
func (a *Archive) Locate(spec pathspec.PathSpec) (DataLocator, error) {
	if spec.HasPathNameHash() {
		return a.locateByPairHash(spec)
	}
	if spec.HasFullPathHash() {
		return a.locateByFullHash(spec)
	}
	return DataLocator{}, pathspec.ErrEmptyPath
}

func (a *Archive) locateByPairHash(spec pathspec.PathSpec) (DataLocator, error) {
	candidates, err := a.index.nameHashLocators(spec.PathHash())
	if err != nil {
		return DataLocator{}, err
	}
	i := sort.Search(len(candidates), func(i int) bool { return candidates[i].NameHash >= spec.NameHash() })
	if i >= len(candidates) || candidates[i].NameHash != spec.NameHash() {
		return DataLocator{}, xiv.New(xiv.KindNotFound, "no entry for path/name hash pair", nil)
	}
	loc := candidates[i].Locator
	if !loc.synonym() {
		return DataLocator{DatIndex: loc.datIndex(), Offset: loc.offset()}, nil
	}
	fullPath, ok := spec.FullPath()
	if !ok {
		return DataLocator{}, xiv.New(xiv.KindAmbiguousPath, "synonym hash without a full path to disambiguate", nil)
	}
	for i := range a.index.textLocators {
		row := &a.index.textLocators[i]
		if row.isSentinel() {
			break
		}
		if row.PathHash == spec.PathHash() && row.NameHash == spec.NameHash() && row.path() == fullPath {
			return DataLocator{DatIndex: row.Locator.datIndex(), Offset: row.Locator.offset()}, nil
		}
	}
	return DataLocator{}, xiv.New(xiv.KindNotFound, "synonym text-locator match not found", nil)
}

func (a *Archive) locateByFullHash(spec pathspec.PathSpec) (DataLocator, error) {
	hashes := a.index2.hashLocators
	i := sort.Search(len(hashes), func(i int) bool { return hashes[i].FullPathHash >= spec.FullPathHash() })
	if i >= len(hashes) || hashes[i].FullPathHash != spec.FullPathHash() {
		return DataLocator{}, xiv.New(xiv.KindNotFound, "no entry for full-path hash", nil)
	}
	loc := hashes[i].Locator
	if !loc.synonym() {
		return DataLocator{DatIndex: loc.datIndex(), Offset: loc.offset()}, nil
	}
	fullPath, ok := spec.FullPath()
	if !ok {
		return DataLocator{}, xiv.New(xiv.KindAmbiguousPath, "synonym hash without a full path to disambiguate", nil)
	}
	for i := range a.index2.textLocators {
		row := &a.index2.textLocators[i]
		if row.isSentinel() {
			break
		}
		if row.FullPathHash == spec.FullPathHash() && row.path() == fullPath {
			return DataLocator{DatIndex: row.Locator.datIndex(), Offset: row.Locator.offset()}, nil
		}
	}
	return DataLocator{}, xiv.New(xiv.KindNotFound, "synonym text-locator match not found", nil)
}

// StoredSize computes an entry's physical on-disk size: the next used
// offset in the same dat file, or the file's end, minus this entry's offset
// (spec.md §4.E operation "stored_size"). Entries are not self-delimiting.
func (a *Archive) StoredSize(loc DataLocator) (int64, error) {
	if loc.DatIndex < 0 || loc.DatIndex >= len(a.dats) {
		return 0, xiv.New(xiv.KindCorruptData, "dat index out of range", nil)
	}
	offsets := a.usedOffsets(loc.DatIndex)
	i := sort.Search(len(offsets), func(i int) bool { return offsets[i] > loc.Offset })
	var end int64
	if i < len(offsets) {
		end = offsets[i]
	} else {
		info, err := a.dats[loc.DatIndex].Stat()
		if err != nil {
			return 0, xiv.New(xiv.KindIO, "stat dat file", err)
		}
		end = info.Size()
	}
	return end - loc.Offset, nil
}

// usedOffsets returns every known entry offset within the given dat file,
// sorted, gathered from both the pair-hash and full-hash locator segments.
func (a *Archive) usedOffsets(datIndex int) []int64 {
	var out []int64
	for _, l := range a.index.hashLocators {
		if l.Locator.datIndex() == datIndex {
			out = append(out, l.Locator.offset())
		}
	}
	for _, l := range a.index2.hashLocators {
		if l.Locator.datIndex() == datIndex {
			out = append(out, l.Locator.offset())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Open resolves spec and decodes its entry into a logical byte buffer
// (spec.md §4.E operation "open").
func (a *Archive) Open(spec pathspec.PathSpec) ([]byte, error) {
	loc, err := a.Locate(spec)
	if err != nil {
		return nil, err
	}
	size, err := a.StoredSize(loc)
	if err != nil {
		return nil, err
	}
	if loc.DatIndex < 0 || loc.DatIndex >= len(a.dats) {
		return nil, xiv.New(xiv.KindCorruptData, "dat index out of range", nil)
	}
	return decodeEntry(io.NewSectionReader(a.dats[loc.DatIndex], loc.Offset, size))
}

// ListDirectory returns the full paths stored in the text-locator tables for
// entries under spec's directory (spec.md §4.E "directory-style listings"):
// .index rows whose path hash equals the directory's, and .index2 rows whose
// path starts with it (which includes nested subdirectories). Entries with
// no text-locator row are not listed. spec must have a known full path
// ending in '/'.
func (a *Archive) ListDirectory(spec pathspec.PathSpec) ([]string, error) {
	full, ok := spec.FullPath()
	if !ok || !strings.HasSuffix(full, "/") {
		return nil, xiv.New(xiv.KindCorruptData, "ListDirectory requires a full path ending in '/'", nil)
	}
	seen := map[string]struct{}{}
	var out []string
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for i := range a.index.textLocators {
		row := &a.index.textLocators[i]
		if row.isSentinel() {
			break
		}
		if row.PathHash == spec.PathHash() {
			add(row.path())
		}
	}
	for i := range a.index2.textLocators {
		row := &a.index2.textLocators[i]
		if row.isSentinel() {
			break
		}
		if p := row.path(); strings.HasPrefix(p, full) {
			add(p)
		}
	}
	sort.Strings(out)
	return out, nil
}
