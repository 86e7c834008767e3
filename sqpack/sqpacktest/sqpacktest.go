// Package sqpacktest builds minimal on-disk SqPack archives for use by
// other packages' tests (excel, and sqpack's own), the same "construct a
// tiny archive by hand instead of shipping binary fixtures" habit
// icza/mpq_test.go uses, factored out since more than one package needs it.
package sqpacktest

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/Soreepeong/pyxivdata/pathspec"
)

const archiveHeaderSize = 1024
const indexHeaderSize = 1024

const sqpackSignature = "SqPack\x00\x00\x00\x00\x00\x00"

type archiveHeader struct {
	Signature  [12]byte
	HeaderSize uint32
	Unknown10  uint32
	Kind       uint32
	YYYYMMDD   uint32
	Time       uint32
	Unknown20  uint32
	Padding24  [0x3c0 - 0x024]byte
	Sha1       [20]byte
	Padding3D4 [0x02c]byte
}

type segmentDescriptor struct {
	Count   uint32
	Offset  uint32
	Size    uint32
	Sha1    [20]byte
	Padding [0x028]byte
}

type indexHeader struct {
	HeaderSize             uint32
	HashLocatorSegment     segmentDescriptor
	Padding4C              [4]byte
	TextLocatorSegment     segmentDescriptor
	UnknownSegment3        segmentDescriptor
	PathHashLocatorSegment segmentDescriptor
	Padding128             [4]byte
	IndexType              uint32
	Padding130             [0x3c0 - 0x130]byte
	Sha1                   [20]byte
	Padding3D4             [0x02c]byte
}

type dataLocator uint32

func encodeLocator(datIndex int, offset int64) dataLocator {
	var v uint32
	v |= uint32(datIndex&0x7) << 1
	v |= uint32(offset>>3) & 0xFFFFFFF0
	return dataLocator(v)
}

type pairHashLocator struct {
	NameHash uint32
	PathHash uint32
	Locator  dataLocator
	Padding  uint32
}

type fullHashLocator struct {
	FullPathHash uint32
	Locator      dataLocator
}

type pathHashLocator struct {
	PathHash          uint32
	PairLocatorOffset uint32
	PairLocatorSize   uint32
	Padding           uint32
}

type textLocatorRow struct {
	NameHash      uint32
	PathHash      uint32
	Locator       dataLocator
	ConflictIndex uint32
	FullPath      [0xF0]byte
}

type fullHashTextRow struct {
	FullPathHash  uint32
	UnusedHash    uint32
	Locator       dataLocator
	ConflictIndex uint32
	FullPath      [0xF0]byte
}

func writeStruct(buf *bytes.Buffer, v any) {
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func padTo(buf *bytes.Buffer, size int) {
	for buf.Len() < size {
		buf.WriteByte(0)
	}
}

func newArchiveHeader(kind uint32) archiveHeader {
	var h archiveHeader
	copy(h.Signature[:], sqpackSignature)
	h.HeaderSize = archiveHeaderSize
	h.Kind = kind
	return h
}

// deflateRaw returns raw (no zlib header) DEFLATE-compressed bytes.
func deflateRaw(data []byte) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// encodeBinaryEntry builds a single-block Binary entry's bytes for payload.
func encodeBinaryEntry(payload []byte) []byte {
	compressed := deflateRaw(payload)
	var entry bytes.Buffer
	writeStruct(&entry, struct {
		HeaderSize                 uint32
		Type                       uint32
		DecompressedSize           uint32
		Unknown1                   uint32
		AlignedUnitAllocationCount uint32
		BlockCountOrVersion        uint32
	}{HeaderSize: 24, Type: 2, DecompressedSize: uint32(len(payload)), BlockCountOrVersion: 1})
	writeStruct(&entry, struct {
		Offset               uint32
		BlockSize            uint16
		DecompressedDataSize uint16
	}{Offset: 8})
	writeStruct(&entry, struct {
		HeaderSize       uint32
		Version          uint32
		CompressedSize   uint32
		DecompressedSize uint32
	}{HeaderSize: 16, CompressedSize: uint32(len(compressed)), DecompressedSize: uint32(len(payload))})
	entry.Write(compressed)
	return entry.Bytes()
}

// BuildArchive writes basePath+".index"/".index2"/".dat0" holding one Binary
// entry per (path, payload) pair in files, and returns basePath for Open.
// All paths in files must share the same directory portion (path_hash):
// the path-hash-locator row built for each entry spans the whole
// hash-locator segment, which is only correct when every entry collides on
// path_hash.
func BuildArchive(dir, baseName string, files map[string][]byte) (string, error) {
	var dat bytes.Buffer
	writeStruct(&dat, newArchiveHeader(1))
	padTo(&dat, archiveHeaderSize)

	type located struct {
		spec   pathspec.PathSpec
		loc    dataLocator
		offset int64
	}
	var entries []located
	for path, payload := range files {
		spec, err := pathspec.New(path)
		if err != nil {
			return "", err
		}
		// Data locators can only express 128-byte-aligned offsets.
		padTo(&dat, (dat.Len()+127)&^127)
		offset := int64(dat.Len())
		dat.Write(encodeBinaryEntry(payload))
		entries = append(entries, located{spec: spec, loc: encodeLocator(0, offset), offset: offset})
	}

	var hashLocators, pathHashLocators, textLocators, fullHashLocators, fullHashTextLocators bytes.Buffer
	for _, e := range entries {
		writeStruct(&hashLocators, pairHashLocator{NameHash: e.spec.NameHash(), PathHash: e.spec.PathHash(), Locator: e.loc})
		writeStruct(&pathHashLocators, pathHashLocator{PathHash: e.spec.PathHash(), PairLocatorOffset: 0, PairLocatorSize: uint32(len(entries) * 16)})
		fullPath, _ := e.spec.FullPath()
		var textRow textLocatorRow
		textRow.PathHash, textRow.NameHash, textRow.Locator = e.spec.PathHash(), e.spec.NameHash(), e.loc
		copy(textRow.FullPath[:], fullPath)
		writeStruct(&textLocators, textRow)

		writeStruct(&fullHashLocators, fullHashLocator{FullPathHash: e.spec.FullPathHash(), Locator: e.loc})
		var fhText fullHashTextRow
		fhText.FullPathHash, fhText.Locator = e.spec.FullPathHash(), e.loc
		copy(fhText.FullPath[:], fullPath)
		writeStruct(&fullHashTextLocators, fhText)
	}
	// sentinel rows
	writeStruct(&textLocators, textLocatorRow{NameHash: 0xFFFFFFFF, PathHash: 0xFFFFFFFF, ConflictIndex: 0xFFFFFFFF})
	writeStruct(&fullHashTextLocators, fullHashTextRow{FullPathHash: 0xFFFFFFFF, UnusedHash: 0xFFFFFFFF, ConflictIndex: 0xFFFFFFFF})

	indexRaw := buildIndexFile(hashLocators.Bytes(), pathHashLocators.Bytes(), textLocators.Bytes(), 1)
	index2Raw := buildIndex2File(fullHashLocators.Bytes(), fullHashTextLocators.Bytes())

	base := filepath.Join(dir, baseName)
	if err := os.WriteFile(base+".index", indexRaw, 0o644); err != nil {
		return "", err
	}
	if err := os.WriteFile(base+".index2", index2Raw, 0o644); err != nil {
		return "", err
	}
	if err := os.WriteFile(base+".dat0", dat.Bytes(), 0o644); err != nil {
		return "", err
	}
	return base, nil
}

func buildIndexFile(hashLocators, pathHashLocators, textLocators []byte, datCount uint32) []byte {
	var buf bytes.Buffer
	writeStruct(&buf, newArchiveHeader(2))
	padTo(&buf, archiveHeaderSize)

	base := archiveHeaderSize + indexHeaderSize
	hashOff := base
	textOff := hashOff + len(hashLocators)
	pathOff := textOff + len(textLocators)

	ih := indexHeader{
		HeaderSize: indexHeaderSize,
		HashLocatorSegment: segmentDescriptor{
			Count: uint32(len(hashLocators) / 16), Offset: uint32(hashOff), Size: uint32(len(hashLocators)),
		},
		TextLocatorSegment: segmentDescriptor{
			Count: datCount, Offset: uint32(textOff), Size: uint32(len(textLocators)),
		},
		PathHashLocatorSegment: segmentDescriptor{
			Count: uint32(len(pathHashLocators) / 16), Offset: uint32(pathOff), Size: uint32(len(pathHashLocators)),
		},
	}
	writeStruct(&buf, ih)
	padTo(&buf, archiveHeaderSize+indexHeaderSize)

	buf.Write(hashLocators)
	buf.Write(textLocators)
	buf.Write(pathHashLocators)
	return buf.Bytes()
}

func buildIndex2File(hashLocators, textLocators []byte) []byte {
	var buf bytes.Buffer
	writeStruct(&buf, newArchiveHeader(2))
	padTo(&buf, archiveHeaderSize)

	base := archiveHeaderSize + indexHeaderSize
	hashOff := base
	textOff := hashOff + len(hashLocators)

	ih := indexHeader{
		HeaderSize: indexHeaderSize,
		HashLocatorSegment: segmentDescriptor{
			Count: uint32(len(hashLocators) / 8), Offset: uint32(hashOff), Size: uint32(len(hashLocators)),
		},
		TextLocatorSegment: segmentDescriptor{
			Count: uint32(len(textLocators) / 256), Offset: uint32(textOff), Size: uint32(len(textLocators)),
		},
	}
	writeStruct(&buf, ih)
	padTo(&buf, archiveHeaderSize+indexHeaderSize)

	buf.Write(hashLocators)
	buf.Write(textLocators)
	return buf.Bytes()
}
