package sqpack

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
)

// Test fixtures build raw .index/.index2/.datN byte images by hand, the way
// icza/mpq's own tests construct minimal archives rather than shipping
// binary test data files.

func writeStruct(buf *bytes.Buffer, v interface{}) {
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func padTo(buf *bytes.Buffer, size int) {
	for buf.Len() < size {
		buf.WriteByte(0)
	}
}

func newArchiveHeader(kind sqpackKind) archiveHeader {
	var h archiveHeader
	copy(h.Signature[:], sqpackSignature)
	h.HeaderSize = archiveHeaderSize
	h.Kind = uint32(kind)
	return h
}

// buildIndexFile assembles a complete .index-shaped byte image from the four
// segment payloads (already-encoded record bytes) plus the dat count to
// report via the text-locator segment's count field.
func buildIndexFile(hashLocators, pathHashLocators, textLocators []byte, datCount uint32) []byte {
	var buf bytes.Buffer
	writeStruct(&buf, newArchiveHeader(kindIndex))
	padTo(&buf, archiveHeaderSize)

	// Layout segments back to back, immediately after the 1024+1024 header
	// region, in hash/text/path order for simplicity.
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
		IndexType: 0,
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
	writeStruct(&buf, newArchiveHeader(kindIndex))
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

func encodeLocator(datIndex int, offset int64, synonym bool) dataLocator {
	var v uint32
	if synonym {
		v |= 1
	}
	v |= uint32(datIndex&0x7) << 1
	v |= uint32(offset>>3) & 0xFFFFFFF0
	return dataLocator(v)
}

func encodePairHash(pathHash, nameHash uint32, loc dataLocator) []byte {
	var buf bytes.Buffer
	writeStruct(&buf, pairHashLocator{NameHash: nameHash, PathHash: pathHash, Locator: loc})
	return buf.Bytes()
}

func encodePathHash(pathHash uint32, offset, size uint32) []byte {
	var buf bytes.Buffer
	writeStruct(&buf, pathHashLocator{PathHash: pathHash, PairLocatorOffset: offset, PairLocatorSize: size})
	return buf.Bytes()
}

func encodeFullHash(fullHash uint32, loc dataLocator) []byte {
	var buf bytes.Buffer
	writeStruct(&buf, fullHashLocator{FullPathHash: fullHash, Locator: loc})
	return buf.Bytes()
}

func textLocatorSentinelRow() []byte {
	var buf bytes.Buffer
	writeStruct(&buf, textLocatorRow{NameHash: 0xFFFFFFFF, PathHash: 0xFFFFFFFF, ConflictIndex: 0xFFFFFFFF})
	return buf.Bytes()
}

func encodeTextLocator(pathHash, nameHash uint32, loc dataLocator, fullPath string) []byte {
	var row textLocatorRow
	row.PathHash, row.NameHash, row.Locator = pathHash, nameHash, loc
	copy(row.FullPath[:], fullPath)
	var buf bytes.Buffer
	writeStruct(&buf, row)
	return buf.Bytes()
}

func fullHashTextSentinelRow() []byte {
	var buf bytes.Buffer
	writeStruct(&buf, fullHashTextRow{FullPathHash: 0xFFFFFFFF, UnusedHash: 0xFFFFFFFF, ConflictIndex: 0xFFFFFFFF})
	return buf.Bytes()
}

func encodeFullHashText(fullHash uint32, loc dataLocator, fullPath string) []byte {
	var row fullHashTextRow
	row.FullPathHash, row.Locator = fullHash, loc
	copy(row.FullPath[:], fullPath)
	var buf bytes.Buffer
	writeStruct(&buf, row)
	return buf.Bytes()
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
