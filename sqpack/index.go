package sqpack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	xiv "github.com/Soreepeong/pyxivdata/xerrors"
)

// Index loads an .index file: the archive header, the index header, and
// (via loadIndex) its hash-locator, path-hash-locator and text-locator
// segments; the unknown-3 segment is not read. It mirrors icza/mpq.MPQ's
// "parse everything eagerly at open time, keep slices in memory" shape —
// SqPack index segments are small enough that lazy per-segment loading
// buys nothing.
type Index struct {
	hashLocators     []pairHashLocator // sorted by (path_hash, name_hash)
	pathHashLocators []pathHashLocator // sorted by path_hash
	textLocators     []textLocatorRow  // sentinel-terminated, not pre-sorted
	datCount         uint32            // text_locator_segment.count, per spec.md §4.E
}

// Index2 loads the companion .index2 file: full-path-hash keyed, no
// path-hash segment (full-path hashing needs no path/name split).
type Index2 struct {
	hashLocators []fullHashLocator // sorted by full_path_hash
	textLocators []fullHashTextRow
}

// loadIndex reads a complete .index file from r.
func loadIndex(r io.ReaderAt) (*Index, error) {
	ah, ih, err := readHeaders(r)
	if err != nil {
		return nil, err
	}
	idx := &Index{datCount: ih.TextLocatorSegment.Count}

	hashBuf, err := readSegment(r, ih.HashLocatorSegment, 16)
	if err != nil {
		return nil, err
	}
	idx.hashLocators = make([]pairHashLocator, len(hashBuf)/16)
	if err := binary.Read(bytes.NewReader(hashBuf), binary.LittleEndian, &idx.hashLocators); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "decode hash-locator segment", err)
	}
	sort.Slice(idx.hashLocators, func(i, j int) bool { return pairLess(idx.hashLocators[i], idx.hashLocators[j]) })

	pathBuf, err := readSegment(r, ih.PathHashLocatorSegment, 16)
	if err != nil {
		return nil, err
	}
	idx.pathHashLocators = make([]pathHashLocator, len(pathBuf)/16)
	if err := binary.Read(bytes.NewReader(pathBuf), binary.LittleEndian, &idx.pathHashLocators); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "decode path-hash-locator segment", err)
	}
	sort.Slice(idx.pathHashLocators, func(i, j int) bool {
		return idx.pathHashLocators[i].PathHash < idx.pathHashLocators[j].PathHash
	})

	textBuf, err := readSegment(r, ih.TextLocatorSegment, 256)
	if err != nil {
		return nil, err
	}
	idx.textLocators = make([]textLocatorRow, len(textBuf)/256)
	if err := binary.Read(bytes.NewReader(textBuf), binary.LittleEndian, &idx.textLocators); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "decode text-locator segment", err)
	}

	_ = ah // archive header is validated by readHeaders; nothing else to keep
	return idx, nil
}

// loadIndex2 reads a complete .index2 file from r.
func loadIndex2(r io.ReaderAt) (*Index2, error) {
	_, ih, err := readHeaders(r)
	if err != nil {
		return nil, err
	}
	idx := &Index2{}

	hashBuf, err := readSegment(r, ih.HashLocatorSegment, 8)
	if err != nil {
		return nil, err
	}
	idx.hashLocators = make([]fullHashLocator, len(hashBuf)/8)
	if err := binary.Read(bytes.NewReader(hashBuf), binary.LittleEndian, &idx.hashLocators); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "decode full-hash-locator segment", err)
	}
	sort.Slice(idx.hashLocators, func(i, j int) bool {
		return idx.hashLocators[i].FullPathHash < idx.hashLocators[j].FullPathHash
	})

	textBuf, err := readSegment(r, ih.TextLocatorSegment, 256)
	if err != nil {
		return nil, err
	}
	idx.textLocators = make([]fullHashTextRow, len(textBuf)/256)
	if err := binary.Read(bytes.NewReader(textBuf), binary.LittleEndian, &idx.textLocators); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "decode full-hash text-locator segment", err)
	}

	return idx, nil
}

// readHeaders reads and validates the shared archiveHeader+indexHeader
// prologue common to .index and .index2 files.
func readHeaders(r io.ReaderAt) (archiveHeader, indexHeader, error) {
	var ah archiveHeader
	if err := readAt(r, 0, &ah); err != nil {
		return ah, indexHeader{}, xiv.New(xiv.KindIO, "read archive header", err)
	}
	if string(ah.Signature[:len(sqpackSignature)]) != sqpackSignature {
		return ah, indexHeader{}, xiv.New(xiv.KindCorruptData, "bad archive signature", nil)
	}
	if ah.HeaderSize != archiveHeaderSize {
		return ah, indexHeader{}, xiv.New(xiv.KindCorruptData, "unexpected archive header size", nil)
	}

	var ih indexHeader
	if err := readAt(r, archiveHeaderSize, &ih); err != nil {
		return ah, ih, xiv.New(xiv.KindIO, "read index header", err)
	}
	if ih.HeaderSize != indexHeaderSize {
		return ah, ih, xiv.New(xiv.KindCorruptData, "unexpected index header size", nil)
	}
	return ah, ih, nil
}

// readSegment validates that a segment's size divides evenly by recordSize
// (spec.md §4.D invariant) and returns its raw bytes.
func readSegment(r io.ReaderAt, d segmentDescriptor, recordSize int) ([]byte, error) {
	if d.Size%uint32(recordSize) != 0 {
		return nil, xiv.New(xiv.KindCorruptData, fmt.Sprintf("segment size %d is not a multiple of record size %d", d.Size, recordSize), nil)
	}
	buf := make([]byte, d.Size)
	if len(buf) == 0 {
		return buf, nil
	}
	if _, err := r.ReadAt(buf, int64(d.Offset)); err != nil {
		return nil, xiv.New(xiv.KindIO, "read segment", err)
	}
	return buf, nil
}

func readAt(r io.ReaderAt, offset int64, data interface{}) error {
	size := binary.Size(data)
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, data)
}

func pairLess(a, b pairHashLocator) bool {
	if a.PathHash != b.PathHash {
		return a.PathHash < b.PathHash
	}
	return a.NameHash < b.NameHash
}

// nameHashLocators bisects the path-hash locator segment for pathHash,
// validates the resulting sub-range lies entirely within the hash-locator
// segment, and returns the matching run of pairHashLocator records (spec.md
// §4.D). Returns nil if pathHash has no entries.
func (idx *Index) nameHashLocators(pathHash uint32) ([]pairHashLocator, error) {
	i := sort.Search(len(idx.pathHashLocators), func(i int) bool {
		return idx.pathHashLocators[i].PathHash >= pathHash
	})
	if i >= len(idx.pathHashLocators) || idx.pathHashLocators[i].PathHash != pathHash {
		return nil, nil
	}
	rec := idx.pathHashLocators[i]
	if rec.PairLocatorSize%16 != 0 {
		return nil, xiv.New(xiv.KindCorruptData, "path-hash sub-range size not a multiple of 16", nil)
	}
	start := int(rec.PairLocatorOffset) / 16
	count := int(rec.PairLocatorSize) / 16
	if start < 0 || count < 0 || start+count > len(idx.hashLocators) {
		return nil, xiv.New(xiv.KindCorruptData, "path-hash sub-range exceeds hash-locator segment", nil)
	}
	return idx.hashLocators[start : start+count], nil
}
