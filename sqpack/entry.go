package sqpack

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"io"

	xiv "github.com/Soreepeong/pyxivdata/xerrors"
)

// decodeEntry reads the 24-byte entry header from the front of r and
// dispatches to the matching sub-decoder (spec.md §4.F).
func decodeEntry(r *io.SectionReader) ([]byte, error) {
	var h entryHeader
	if err := readAt(r, 0, &h); err != nil {
		return nil, xiv.New(xiv.KindIO, "read entry header", err)
	}
	switch entryType(h.Type) {
	case entryBinary:
		return decodeBinaryEntry(r, h)
	case entryModel:
		return decodeModelEntry(r, h)
	case entryTexture:
		return decodeTextureEntry(r, h)
	default:
		return nil, xiv.New(xiv.KindCorruptData, "unsupported or empty entry type", nil)
	}
}

// decodeBlock reads one block header at offset (relative to r) and returns
// its decompressed payload (spec.md §4.F shared primitive).
func decodeBlock(r io.ReaderAt, offset int64) ([]byte, error) {
	var bh blockHeader
	if err := readAt(r, offset, &bh); err != nil {
		return nil, xiv.New(xiv.KindBadBlock, "read block header", err)
	}
	bodyOffset := offset + int64(bh.HeaderSize)
	if !bh.isCompressed() {
		buf := make([]byte, bh.DecompressedSize)
		if _, err := r.ReadAt(buf, bodyOffset); err != nil {
			return nil, xiv.New(xiv.KindBadBlock, "read uncompressed block body", err)
		}
		return buf, nil
	}
	compressed := make([]byte, bh.CompressedSize)
	if _, err := r.ReadAt(compressed, bodyOffset); err != nil {
		return nil, xiv.New(xiv.KindBadBlock, "read compressed block body", err)
	}
	out := make([]byte, bh.DecompressedSize)
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()
	if _, err := io.ReadFull(fr, out); err != nil {
		return nil, xiv.New(xiv.KindDecompressFailed, "inflate block", err)
	}
	return out, nil
}

// entryHeaderSize is ctypes.sizeof(header) in the reference decoder: the
// fixed on-disk size of entryHeader, where every entry's locator/size table
// begins. h.HeaderSize is a separate field reserved for block-data offsets
// (it must be large enough to cover the locator tables themselves, so it
// cannot also be used to locate them).
const entryHeaderSize = 24

// decodeBinaryEntry concatenates every block-locator's decompressed block in
// order (spec.md §4.F "Binary").
func decodeBinaryEntry(r *io.SectionReader, h entryHeader) ([]byte, error) {
	locators := make([]blockLocator, h.BlockCountOrVersion)
	if err := readAt(r, entryHeaderSize, &locators); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "read binary block locators", err)
	}
	out := make([]byte, 0, h.DecompressedSize)
	for _, l := range locators {
		block, err := decodeBlock(r, int64(h.HeaderSize)+int64(l.Offset))
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}

// modelHeaderSize is the synthetic model file header's fixed size
// (spec.md §4.F "Model"): version, per-chunk stack/runtime sizes, vertex
// declaration and material counts, per-LOD vertex/index buffer
// sizes+offsets, LOD count, and three flags.
const modelHeaderSize = 68

// modelSyntheticHeader mirrors the 68-byte header decodeModelEntry
// synthesizes at the front of the produced file.
type modelSyntheticHeader struct {
	Version                    uint32
	StackSize                  uint32
	RuntimeSize                uint32
	VertexDeclarationCount     uint16
	MaterialCount              uint16
	VertexBufferSize           [3]uint32
	IndexBufferSize            [3]uint32
	VertexOffset               [3]uint32
	IndexOffset                [3]uint32
	LodCount                   uint8
	EnableIndexBufferStreaming uint8
	EnableEdgeGeometry         uint8
	Padding                    uint8
}

// decodeModelEntry reconstructs a model file from its 11-chunk block stream
// (spec.md §4.F "Model"). Chunks are produced in fixed index order 0..10;
// for LOD i, the vertex chunk is index 2+3i and the index chunk is 4+3i.
// Edge-geometry chunks are emitted into the stream but not tracked by the
// synthetic header's offset table.
func decodeModelEntry(r *io.SectionReader, h entryHeader) ([]byte, error) {
	var loc modelBlockLocator
	if err := readAt(r, entryHeaderSize, &loc); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "read model block locator", err)
	}
	var blockSizeTableLen int
	for i := 0; i < 11; i++ {
		blockSizeTableLen += int(loc.BlockCount.at(i))
	}
	blockSizes := make([]uint16, blockSizeTableLen)
	locatorSize := int64(binary.Size(modelBlockLocator{}))
	if err := readAt(r, entryHeaderSize+locatorSize, &blockSizes); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "read model block size table", err)
	}

	synth := modelSyntheticHeader{
		Version:                    h.BlockCountOrVersion,
		VertexDeclarationCount:     loc.VertexDeclarationCount,
		MaterialCount:              loc.MaterialCount,
		LodCount:                   loc.LodCount,
		EnableIndexBufferStreaming: loc.EnableIndexBufferStreaming,
		EnableEdgeGeometry:         loc.EnableEdgeGeometry,
	}

	chunks := make([][]byte, 11)
	for i := 0; i < 11; i++ {
		count := int(loc.BlockCount.at(i))
		if count == 0 {
			continue
		}
		firstOffset := int64(h.HeaderSize) + int64(loc.FirstBlockOffsets.at(i))
		firstIdx := int(loc.FirstBlockIndices.at(i))
		var chunk []byte
		cursor := firstOffset
		for k := 0; k < count; k++ {
			block, err := decodeBlock(r, cursor)
			if err != nil {
				return nil, err
			}
			chunk = append(chunk, block...)
			cursor += int64(blockSizes[firstIdx+k])
		}
		chunks[i] = chunk
	}

	synth.StackSize = uint32(len(chunks[0]))
	synth.RuntimeSize = uint32(len(chunks[1]))

	out := make([]byte, modelHeaderSize)
	out = append(out, chunks[0]...)
	out = append(out, chunks[1]...)
	for lod := 0; lod < 3; lod++ {
		vtxIdx, edgeIdx, idxIdx := 2+3*lod, 3+3*lod, 4+3*lod
		synth.VertexOffset[lod] = uint32(len(out))
		synth.VertexBufferSize[lod] = uint32(len(chunks[vtxIdx]))
		out = append(out, chunks[vtxIdx]...)
		out = append(out, chunks[edgeIdx]...) // in the stream, untracked by the header
		synth.IndexOffset[lod] = uint32(len(out))
		synth.IndexBufferSize[lod] = uint32(len(chunks[idxIdx]))
		out = append(out, chunks[idxIdx]...)
	}

	var hdrBuf bytes.Buffer
	if err := binary.Write(&hdrBuf, binary.LittleEndian, synth); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "encode synthetic model header", err)
	}
	copy(out[:modelHeaderSize], hdrBuf.Bytes())
	return out, nil
}

// decodeTextureEntry reconstructs a texture file: its own header copied
// verbatim, followed by every mipmap's decompressed sub-block stream
// (spec.md §4.F "Texture").
func decodeTextureEntry(r *io.SectionReader, h entryHeader) ([]byte, error) {
	mipCount := int(h.BlockCountOrVersion)
	locators := make([]textureBlockLocator, mipCount)
	if err := readAt(r, entryHeaderSize, &locators); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "read texture mipmap locators", err)
	}

	var subBlockTableLen int
	for _, l := range locators {
		subBlockTableLen += int(l.SubBlockCount)
	}
	subBlockSizes := make([]uint16, subBlockTableLen)
	subTableOffset := int64(entryHeaderSize) + int64(mipCount)*20
	if err := readAt(r, subTableOffset, &subBlockSizes); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "read texture sub-block size table", err)
	}

	mipOffsets := make([]uint32, mipCount)
	mipOffsetTableStart := subTableOffset + int64(subBlockTableLen)*2
	if err := readAt(r, mipOffsetTableStart, &mipOffsets); err != nil {
		return nil, xiv.New(xiv.KindCorruptData, "read texture mipmap offset table", err)
	}

	out := make([]byte, h.DecompressedSize)
	// The texture's own header sits at the start of the first mipmap's block
	// stream; decoding mipmap 0's first block also recovers it.
	if mipCount > 0 {
		texHeader, err := decodeBlock(r, int64(h.HeaderSize)+int64(locators[0].FirstBlockOffset))
		if err != nil {
			return nil, err
		}
		copy(out, texHeader)
	}

	for i, l := range locators {
		cursor := int64(h.HeaderSize) + int64(l.FirstBlockOffset)
		mipOut := make([]byte, 0, l.DecompressedSize)
		for k := uint32(0); k < l.SubBlockCount; k++ {
			block, err := decodeBlock(r, cursor)
			if err != nil {
				return nil, err
			}
			mipOut = append(mipOut, block...)
			cursor += int64(subBlockSizes[int(l.FirstSubBlockIndex)+int(k)])
		}
		copy(out[mipOffsets[i]:], mipOut)
	}
	return out, nil
}
